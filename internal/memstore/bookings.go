package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
)

// cloneBooking detaches b from any caller-held slices and pointers.
func cloneBooking(b booking.Booking) booking.Booking {
	b.Rooms = append([]booking.RoomLine(nil), b.Rooms...)
	b.Cottages = append([]booking.CottageLine(nil), b.Cottages...)
	b.Amenities = append([]booking.AmenityLine(nil), b.Amenities...)
	b.GuestID = clonePtr(b.GuestID)
	b.HeldUntil = clonePtr(b.HeldUntil)
	b.CancellationReason = clonePtr(b.CancellationReason)
	b.CancelledAt = clonePtr(b.CancelledAt)
	return b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type bookingRepo struct {
	v view
}

// Create stores the booking row only; lines arrive through ReplaceLines.
func (r *bookingRepo) Create(_ context.Context, b *booking.Booking) error {
	return r.v.write(func(d *data) error {
		b.ID = newID()
		b.CreatedAt = r.v.now()
		b.UpdatedAt = b.CreatedAt
		row := cloneBooking(*b)
		row.Lines = booking.Lines{}
		d.bookings[b.ID] = row
		return nil
	})
}

func (r *bookingRepo) get(id string, includeDeleted bool) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.v.read(func(d *data) error {
		b, ok := d.bookings[id]
		if !ok || (b.IsDeleted && !includeDeleted) {
			return booking.ErrNotFound
		}
		cp := cloneBooking(b)
		out = &cp
		return nil
	})
	return out, err
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	return r.get(id, false)
}

func (r *bookingRepo) GetForUpdate(_ context.Context, id string) (*booking.Booking, error) {
	return r.get(id, true)
}

func (r *bookingRepo) List(_ context.Context, filter booking.Filter) ([]*booking.Booking, int, error) {
	var items []*booking.Booking
	err := r.v.read(func(d *data) error {
		for _, b := range d.bookings {
			if b.IsDeleted {
				continue
			}
			if filter.GuestID != "" && (b.GuestID == nil || *b.GuestID != filter.GuestID) {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			if filter.CheckInFrom != nil && b.CheckIn.Before(*filter.CheckInFrom) {
				continue
			}
			if filter.CheckInTo != nil && !b.CheckIn.Before(*filter.CheckInTo) {
				continue
			}
			cp := cloneBooking(b)
			items = append(items, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	desc := filter.SortOrder == "" || strings.EqualFold(filter.SortOrder, "desc")
	if filter.SortBy == "check_in" {
		sort.Slice(items, func(i, j int) bool {
			if items[i].CheckIn.Equal(items[j].CheckIn) {
				return items[i].ID < items[j].ID
			}
			return items[i].CheckIn.Before(items[j].CheckIn) != desc
		})
	} else {
		sortByCreated(items, func(b *booking.Booking) time.Time { return b.CreatedAt }, func(b *booking.Booking) string { return b.ID }, desc)
	}
	return paginate(items, filter.Page, filter.PageSize), len(items), nil
}

func (r *bookingRepo) Update(_ context.Context, b *booking.Booking) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.bookings[b.ID]
		if !ok {
			return booking.ErrNotFound
		}
		row := cloneBooking(*b)
		row.Lines = cur.Lines
		row.CreatedAt = cur.CreatedAt
		row.UpdatedAt = r.v.now()
		b.UpdatedAt = row.UpdatedAt
		d.bookings[b.ID] = row
		return nil
	})
}

func (r *bookingRepo) ReplaceLines(_ context.Context, bookingID string, lines booking.Lines) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.bookings[bookingID]
		if !ok {
			return booking.ErrNotFound
		}
		cur.Lines = lines
		d.bookings[bookingID] = cloneBooking(cur)
		return nil
	})
}

func (r *bookingRepo) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]string, error) {
	var expired []booking.Booking
	err := r.v.read(func(d *data) error {
		for _, b := range d.bookings {
			if booking.IsExpired(&b, now) {
				expired = append(expired, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(expired, func(i, j int) bool { return expired[i].HeldUntil.Before(*expired[j].HeldUntil) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, len(expired))
	for i, b := range expired {
		ids[i] = b.ID
	}
	return ids, nil
}
