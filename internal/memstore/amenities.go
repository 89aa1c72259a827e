package memstore

import (
	"context"
	"sort"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type amenityRepo struct {
	v view
}

func (r *amenityRepo) Create(_ context.Context, a *amenity.Amenity) error {
	if !a.Kind.Valid() {
		return stock.ErrInvalidKind
	}
	return r.v.write(func(d *data) error {
		a.ID = newID()
		a.CreatedAt = r.v.now()
		a.UpdatedAt = a.CreatedAt
		d.amenities[a.Key()] = *a
		return nil
	})
}

func (r *amenityRepo) GetByID(_ context.Context, kind stock.Kind, id string) (*amenity.Amenity, error) {
	if !kind.Valid() {
		return nil, stock.ErrInvalidKind
	}
	var out *amenity.Amenity
	err := r.v.read(func(d *data) error {
		a, ok := d.amenities[stock.Key{Kind: kind, ID: id}]
		if !ok {
			return amenity.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *amenityRepo) GetByIDs(_ context.Context, kind stock.Kind, ids []string) (map[string]*amenity.Amenity, error) {
	if !kind.Valid() {
		return nil, stock.ErrInvalidKind
	}
	out := make(map[string]*amenity.Amenity, len(ids))
	err := r.v.read(func(d *data) error {
		for _, id := range ids {
			if a, ok := d.amenities[stock.Key{Kind: kind, ID: id}]; ok {
				out[id] = &a
			}
		}
		return nil
	})
	return out, err
}

func (r *amenityRepo) List(_ context.Context, filter amenity.Filter) ([]*amenity.Amenity, int, error) {
	if !filter.Kind.Valid() {
		return nil, 0, stock.ErrInvalidKind
	}
	var items []*amenity.Amenity
	err := r.v.read(func(d *data) error {
		for key, a := range d.amenities {
			if key.Kind != filter.Kind {
				continue
			}
			a := a
			items = append(items, &a)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].ID < items[j].ID
		}
		return items[i].Name < items[j].Name
	})
	return paginate(items, filter.Page, filter.PageSize), len(items), nil
}

// Update never touches quantity; stock only moves through the ledger.
func (r *amenityRepo) Update(_ context.Context, a *amenity.Amenity) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.amenities[a.Key()]
		if !ok {
			return amenity.ErrNotFound
		}
		cur.Name = a.Name
		cur.Description = a.Description
		cur.Price = a.Price
		if a.Kind == stock.KindRental {
			cur.PricePerHour = a.PricePerHour
		} else {
			cur.MaxQuantity = a.MaxQuantity
		}
		cur.UpdatedAt = r.v.now()
		a.UpdatedAt = cur.UpdatedAt
		d.amenities[a.Key()] = cur
		return nil
	})
}

type stockStore struct {
	v view
}

// ApplyDelta mirrors the conditional UPDATE: the counter moves only if it
// stays non-negative.
func (s *stockStore) ApplyDelta(_ context.Context, key stock.Key, delta int) (int, error) {
	if !key.Kind.Valid() {
		return 0, stock.ErrInvalidKind
	}
	var quantity int
	err := s.v.write(func(d *data) error {
		a, ok := d.amenities[key]
		if !ok {
			return stock.ErrNotFound
		}
		if a.Quantity+delta < 0 {
			return stock.NewInsufficientStock(key, a.Name, a.Quantity, -delta)
		}
		a.Quantity += delta
		a.UpdatedAt = s.v.now()
		d.amenities[key] = a
		quantity = a.Quantity
		return nil
	})
	return quantity, err
}
