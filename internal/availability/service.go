package availability

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache stores read-side snapshots. Misses return (nil, nil).
type Cache interface {
	Get(ctx context.Context, q Query) (*Availability, error)
	Set(ctx context.Context, a *Availability) error
	Invalidate(ctx context.Context, kind Kind, ids ...string) error
}

// Service serves availability lookups for display. It never feeds the booking
// write path, which always recomputes inside its own transaction.
type Service interface {
	Check(ctx context.Context, kind Kind, id string, checkIn, checkOut time.Time) (*Availability, error)
}

type service struct {
	calc  *Calculator
	cache Cache
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewService wires a read-only calculator. cache may be nil.
func NewService(source Source, cache Cache, log logrus.FieldLogger) Service {
	return &service{
		calc:  NewCalculator(source),
		cache: cache,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Check(ctx context.Context, kind Kind, id string, checkIn, checkOut time.Time) (*Availability, error) {
	q := Query{Kind: kind, ResourceID: id, CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC(), Now: s.now()}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, q)
		if err != nil {
			s.log.WithError(err).Warn("availability cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	a, err := s.calc.Available(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, a); err != nil {
			s.log.WithError(err).Warn("availability cache write failed")
		}
	}
	return a, nil
}
