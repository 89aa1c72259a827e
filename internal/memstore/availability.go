package memstore

import (
	"context"

	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
)

type availabilitySource struct {
	v view
}

func (s *availabilitySource) Resource(_ context.Context, kind availability.Kind, id string) (*availability.Resource, error) {
	var out *availability.Resource
	err := s.v.read(func(d *data) error {
		switch kind {
		case availability.KindRoom:
			if rm, ok := d.rooms[id]; ok {
				out = &availability.Resource{Kind: kind, ID: rm.ID, Name: rm.Name, Total: rm.TotalQuantity}
				return nil
			}
		case availability.KindCottage:
			if c, ok := d.cottages[id]; ok {
				out = &availability.Resource{Kind: kind, ID: c.ID, Name: c.Name, Total: c.TotalQuantity}
				return nil
			}
		default:
			return availability.ErrInvalidKind
		}
		return availability.ErrNotFound
	})
	return out, err
}

func active(s booking.Status) bool {
	for _, a := range availability.ActiveStatuses {
		if string(s) == a {
			return true
		}
	}
	return false
}

func (s *availabilitySource) Committed(_ context.Context, q availability.Query) (int, error) {
	total := 0
	err := s.v.read(func(d *data) error {
		for _, b := range d.bookings {
			if b.ID == q.ExcludeBookingID || b.IsDeleted || !active(b.Status) {
				continue
			}
			if b.HeldUntil != nil && !b.HeldUntil.After(q.Now) {
				continue
			}
			if !availability.Overlaps(b.CheckIn, b.CheckOut, q.CheckIn, q.CheckOut) {
				continue
			}
			switch q.Kind {
			case availability.KindRoom:
				for _, line := range b.Rooms {
					if line.RoomID == q.ResourceID {
						total += line.Quantity
					}
				}
			case availability.KindCottage:
				for _, line := range b.Cottages {
					if line.CottageID == q.ResourceID {
						total += line.Quantity
					}
				}
			}
		}
		return nil
	})
	return total, err
}
