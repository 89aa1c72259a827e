package room

import (
	"context"
	"strings"
)

type CreateRequest struct {
	Name          string
	Type          string
	Description   string
	Capacity      int
	TotalQuantity int
	NightlyPrice  int64
	ExtraPaxRate  int64
}

type UpdateRequest struct {
	Name          *string
	Type          *string
	Description   *string
	Capacity      *int
	TotalQuantity *int
	NightlyPrice  *int64
	ExtraPaxRate  *int64
}

type CreateCottageRequest struct {
	Name          string
	Description   string
	TotalQuantity int
	Price         int64
}

type UpdateCottageRequest struct {
	Name          *string
	Description   *string
	TotalQuantity *int
	Price         *int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Room, error)
	Delete(ctx context.Context, id string) error

	CreateCottage(ctx context.Context, req CreateCottageRequest) (*Cottage, error)
	GetCottageByID(ctx context.Context, id string) (*Cottage, error)
	ListCottages(ctx context.Context, filter Filter) ([]*Cottage, int, error)
	UpdateCottage(ctx context.Context, id string, req UpdateCottageRequest) (*Cottage, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validateRoom(r *Room) error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if r.TotalQuantity < 0 {
		return ErrInvalidQuantity
	}
	if r.NightlyPrice < 0 || r.ExtraPaxRate < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func validateCottage(c *Cottage) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.TotalQuantity < 0 {
		return ErrInvalidQuantity
	}
	if c.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Room, error) {
	r := &Room{
		Name:          strings.TrimSpace(req.Name),
		Type:          req.Type,
		Description:   req.Description,
		Capacity:      req.Capacity,
		TotalQuantity: req.TotalQuantity,
		NightlyPrice:  req.NightlyPrice,
		ExtraPaxRate:  req.ExtraPaxRate,
	}
	if err := validateRoom(r); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Room, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		r.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		r.Type = *req.Type
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Capacity != nil {
		r.Capacity = *req.Capacity
	}
	if req.TotalQuantity != nil {
		r.TotalQuantity = *req.TotalQuantity
	}
	if req.NightlyPrice != nil {
		r.NightlyPrice = *req.NightlyPrice
	}
	if req.ExtraPaxRate != nil {
		r.ExtraPaxRate = *req.ExtraPaxRate
	}
	if err := validateRoom(r); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) CreateCottage(ctx context.Context, req CreateCottageRequest) (*Cottage, error) {
	c := &Cottage{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		TotalQuantity: req.TotalQuantity,
		Price:         req.Price,
	}
	if err := validateCottage(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCottage(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetCottageByID(ctx context.Context, id string) (*Cottage, error) {
	return s.repo.GetCottageByID(ctx, id)
}

func (s *service) ListCottages(ctx context.Context, filter Filter) ([]*Cottage, int, error) {
	return s.repo.ListCottages(ctx, filter)
}

func (s *service) UpdateCottage(ctx context.Context, id string, req UpdateCottageRequest) (*Cottage, error) {
	c, err := s.repo.GetCottageByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.TotalQuantity != nil {
		c.TotalQuantity = *req.TotalQuantity
	}
	if req.Price != nil {
		c.Price = *req.Price
	}
	if err := validateCottage(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCottage(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
