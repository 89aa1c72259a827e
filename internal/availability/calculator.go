package availability

import (
	"context"
	"time"
)

// Source reads capacity and committed quantities. Inside a unit of work the
// resource lookup also locks the row so concurrent writers queue up.
type Source interface {
	Resource(ctx context.Context, kind Kind, id string) (*Resource, error)
	Committed(ctx context.Context, q Query) (int, error)
}

// Calculator answers how many units of a resource are free for a stay.
type Calculator struct {
	source Source
}

func NewCalculator(source Source) *Calculator {
	return &Calculator{source: source}
}

// Available computes max(0, total - committed) for the interval.
func (c *Calculator) Available(ctx context.Context, q Query) (*Availability, error) {
	if q.Kind != KindRoom && q.Kind != KindCottage {
		return nil, ErrInvalidKind
	}
	if !q.CheckIn.Before(q.CheckOut) {
		return nil, ErrInvalidDateRange
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}

	res, err := c.source.Resource(ctx, q.Kind, q.ResourceID)
	if err != nil {
		return nil, err
	}
	committed, err := c.source.Committed(ctx, q)
	if err != nil {
		return nil, err
	}

	free := res.Total - committed
	if free < 0 {
		free = 0
	}
	return &Availability{
		Kind:       q.Kind,
		ResourceID: res.ID,
		Name:       res.Name,
		CheckIn:    q.CheckIn,
		CheckOut:   q.CheckOut,
		Total:      res.Total,
		Committed:  committed,
		Available:  free,
	}, nil
}

// Require fails with an UnavailableError when fewer than requested units are free.
func (c *Calculator) Require(ctx context.Context, q Query, requested int) (*Availability, error) {
	a, err := c.Available(ctx, q)
	if err != nil {
		return nil, err
	}
	if requested > a.Available {
		return a, newUnavailable(a, requested)
	}
	return a, nil
}
