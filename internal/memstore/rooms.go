package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/room"
)

type roomRepo struct {
	v view
}

func (r *roomRepo) Create(_ context.Context, rm *room.Room) error {
	return r.v.write(func(d *data) error {
		rm.ID = newID()
		rm.CreatedAt = r.v.now()
		rm.UpdatedAt = rm.CreatedAt
		d.rooms[rm.ID] = *rm
		return nil
	})
}

func (r *roomRepo) GetByID(_ context.Context, id string) (*room.Room, error) {
	var out *room.Room
	err := r.v.read(func(d *data) error {
		rm, ok := d.rooms[id]
		if !ok {
			return room.ErrNotFound
		}
		out = &rm
		return nil
	})
	return out, err
}

func (r *roomRepo) GetByIDs(_ context.Context, ids []string) (map[string]*room.Room, error) {
	out := make(map[string]*room.Room, len(ids))
	err := r.v.read(func(d *data) error {
		for _, id := range ids {
			if rm, ok := d.rooms[id]; ok {
				out[id] = &rm
			}
		}
		return nil
	})
	return out, err
}

func (r *roomRepo) List(_ context.Context, filter room.Filter) ([]*room.Room, int, error) {
	var items []*room.Room
	err := r.v.read(func(d *data) error {
		for _, rm := range d.rooms {
			if filter.Type != "" && rm.Type != filter.Type {
				continue
			}
			rm := rm
			items = append(items, &rm)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	desc := strings.EqualFold(filter.SortOrder, "desc")
	switch filter.SortBy {
	case "name":
		sort.Slice(items, func(i, j int) bool { return (items[i].Name < items[j].Name) != desc })
	case "nightly_price":
		sort.Slice(items, func(i, j int) bool { return (items[i].NightlyPrice < items[j].NightlyPrice) != desc })
	default:
		sortByCreated(items, func(rm *room.Room) time.Time { return rm.CreatedAt }, func(rm *room.Room) string { return rm.ID }, desc)
	}
	return paginate(items, filter.Page, filter.PageSize), len(items), nil
}

func (r *roomRepo) Update(_ context.Context, rm *room.Room) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.rooms[rm.ID]
		if !ok {
			return room.ErrNotFound
		}
		rm.CreatedAt = cur.CreatedAt
		rm.UpdatedAt = r.v.now()
		d.rooms[rm.ID] = *rm
		return nil
	})
}

func (r *roomRepo) Delete(_ context.Context, id string) error {
	return r.v.write(func(d *data) error {
		if _, ok := d.rooms[id]; !ok {
			return room.ErrNotFound
		}
		for _, b := range d.bookings {
			for _, line := range b.Rooms {
				if line.RoomID == id {
					return room.ErrInUse
				}
			}
		}
		delete(d.rooms, id)
		return nil
	})
}

func (r *roomRepo) CreateCottage(_ context.Context, c *room.Cottage) error {
	return r.v.write(func(d *data) error {
		c.ID = newID()
		c.CreatedAt = r.v.now()
		c.UpdatedAt = c.CreatedAt
		d.cottages[c.ID] = *c
		return nil
	})
}

func (r *roomRepo) GetCottageByID(_ context.Context, id string) (*room.Cottage, error) {
	var out *room.Cottage
	err := r.v.read(func(d *data) error {
		c, ok := d.cottages[id]
		if !ok {
			return room.ErrCottageNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *roomRepo) GetCottagesByIDs(_ context.Context, ids []string) (map[string]*room.Cottage, error) {
	out := make(map[string]*room.Cottage, len(ids))
	err := r.v.read(func(d *data) error {
		for _, id := range ids {
			if c, ok := d.cottages[id]; ok {
				out[id] = &c
			}
		}
		return nil
	})
	return out, err
}

func (r *roomRepo) ListCottages(_ context.Context, filter room.Filter) ([]*room.Cottage, int, error) {
	var items []*room.Cottage
	err := r.v.read(func(d *data) error {
		for _, c := range d.cottages {
			c := c
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	desc := strings.EqualFold(filter.SortOrder, "desc")
	switch filter.SortBy {
	case "name":
		sort.Slice(items, func(i, j int) bool { return (items[i].Name < items[j].Name) != desc })
	case "price":
		sort.Slice(items, func(i, j int) bool { return (items[i].Price < items[j].Price) != desc })
	default:
		sortByCreated(items, func(c *room.Cottage) time.Time { return c.CreatedAt }, func(c *room.Cottage) string { return c.ID }, desc)
	}
	return paginate(items, filter.Page, filter.PageSize), len(items), nil
}

func (r *roomRepo) UpdateCottage(_ context.Context, c *room.Cottage) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.cottages[c.ID]
		if !ok {
			return room.ErrCottageNotFound
		}
		c.CreatedAt = cur.CreatedAt
		c.UpdatedAt = r.v.now()
		d.cottages[c.ID] = *c
		return nil
	})
}
