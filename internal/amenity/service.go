package amenity

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/audit"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type CreateRequest struct {
	Kind         stock.Kind
	Name         string
	Description  string
	Quantity     int
	MaxQuantity  *int
	Price        int64
	PricePerHour int64
}

type UpdateRequest struct {
	Name         *string
	Description  *string
	MaxQuantity  *int
	Price        *int64
	PricePerHour *int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Amenity, error)
	GetByID(ctx context.Context, kind stock.Kind, id string) (*Amenity, error)
	List(ctx context.Context, filter Filter) ([]*Amenity, int, error)
	Update(ctx context.Context, kind stock.Kind, id string, req UpdateRequest) (*Amenity, error)
	// Restock moves the stock counter by delta through the ledger.
	Restock(ctx context.Context, actor string, kind stock.Kind, id string, delta int) (*Amenity, error)
}

type service struct {
	repo   Repository
	ledger *stock.Ledger
	audit  audit.Recorder
	log    logrus.FieldLogger
}

func NewService(repo Repository, store stock.Store, recorder audit.Recorder, log logrus.FieldLogger) Service {
	return &service{
		repo:   repo,
		ledger: stock.NewLedger(store),
		audit:  recorder,
		log:    log,
	}
}

func validate(a *Amenity) error {
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if a.Price < 0 || a.PricePerHour < 0 {
		return ErrInvalidPrice
	}
	switch a.Kind {
	case stock.KindOptional:
		if a.PricePerHour != 0 {
			return ErrHourlyOnOptional
		}
		if a.MaxQuantity != nil && *a.MaxQuantity < 1 {
			return ErrInvalidMaxQuantity
		}
	case stock.KindRental:
		if a.MaxQuantity != nil {
			return ErrMaxOnRental
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Amenity, error) {
	a := &Amenity{
		Kind:         req.Kind,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Quantity:     req.Quantity,
		MaxQuantity:  req.MaxQuantity,
		Price:        req.Price,
		PricePerHour: req.PricePerHour,
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) GetByID(ctx context.Context, kind stock.Kind, id string) (*Amenity, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.repo.GetByID(ctx, kind, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Amenity, int, error) {
	if !filter.Kind.Valid() {
		return nil, 0, ErrInvalidKind
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, kind stock.Kind, id string, req UpdateRequest) (*Amenity, error) {
	a, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		a.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.MaxQuantity != nil {
		a.MaxQuantity = req.MaxQuantity
	}
	if req.Price != nil {
		a.Price = *req.Price
	}
	if req.PricePerHour != nil {
		a.PricePerHour = *req.PricePerHour
	}
	if err := validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Restock(ctx context.Context, actor string, kind stock.Kind, id string, delta int) (*Amenity, error) {
	a, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	quantity, err := s.ledger.Apply(ctx, a.Key(), delta)
	if err != nil {
		return nil, err
	}
	a.Quantity = quantity

	audit.Safe(ctx, s.audit, s.log, audit.Entry{
		Actor:    actor,
		Action:   "stock.restock",
		Entity:   string(kind) + "_amenity",
		EntityID: id,
		Details:  map[string]any{"delta": delta, "quantity": quantity},
	})
	return a, nil
}
