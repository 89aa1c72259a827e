package memstore

import (
	"context"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
)

type paymentRepo struct {
	v view
}

func (r *paymentRepo) Create(_ context.Context, p *payment.Payment) error {
	return r.v.write(func(d *data) error {
		p.ID = newID()
		p.CreatedAt = r.v.now()
		p.UpdatedAt = p.CreatedAt
		row := *p
		row.Reference = clonePtr(p.Reference)
		row.CheckoutURL = clonePtr(p.CheckoutURL)
		d.payments[p.ID] = row
		return nil
	})
}

func (r *paymentRepo) find(match func(p payment.Payment) bool) (*payment.Payment, error) {
	var out *payment.Payment
	err := r.v.read(func(d *data) error {
		for _, p := range d.payments {
			if match(p) {
				p := p
				out = &p
				return nil
			}
		}
		return payment.ErrNotFound
	})
	return out, err
}

func (r *paymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	return r.find(func(p payment.Payment) bool { return p.ID == id })
}

func (r *paymentRepo) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) GetByReference(_ context.Context, reference string) (*payment.Payment, error) {
	return r.find(func(p payment.Payment) bool { return p.Reference != nil && *p.Reference == reference })
}

func (r *paymentRepo) ListByBooking(_ context.Context, bookingID string) ([]*payment.Payment, error) {
	var items []*payment.Payment
	err := r.v.read(func(d *data) error {
		for _, p := range d.payments {
			if p.BookingID == bookingID {
				p := p
				items = append(items, &p)
			}
		}
		return nil
	})
	sortByCreated(items, func(p *payment.Payment) time.Time { return p.CreatedAt }, func(p *payment.Payment) string { return p.ID }, false)
	return items, err
}

func (r *paymentRepo) UpdateStatus(_ context.Context, id string, status payment.Status) error {
	return r.v.write(func(d *data) error {
		p, ok := d.payments[id]
		if !ok {
			return payment.ErrNotFound
		}
		p.Status = status
		p.UpdatedAt = r.v.now()
		d.payments[id] = p
		return nil
	})
}
