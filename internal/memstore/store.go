// Package memstore keeps every repository in process memory. Transactions run
// one at a time against a copy of the data that replaces the original only on
// commit, which makes them trivially serializable.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// Stored values are never mutated in place: writers replace them with fresh
// copies, so a shallow map clone is a consistent snapshot.
type data struct {
	rooms     map[string]room.Room
	cottages  map[string]room.Cottage
	amenities map[stock.Key]amenity.Amenity
	bookings  map[string]booking.Booking
	payments  map[string]payment.Payment
}

func newData() *data {
	return &data{
		rooms:     make(map[string]room.Room),
		cottages:  make(map[string]room.Cottage),
		amenities: make(map[stock.Key]amenity.Amenity),
		bookings:  make(map[string]booking.Booking),
		payments:  make(map[string]payment.Payment),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.rooms {
		c.rooms[k] = v
	}
	for k, v := range d.cottages {
		c.cottages[k] = v
	}
	for k, v := range d.amenities {
		c.amenities[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	return c
}

type Store struct {
	mu  sync.RWMutex
	d   *data
	now func() time.Time
}

func New() *Store {
	return &Store{d: newData(), now: func() time.Time { return time.Now().UTC() }}
}

// InTx runs fn against a private copy of the data and publishes it when fn
// returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.d.clone()
	if err := fn(ctx, &txView{v: view{s: s, d: work}}); err != nil {
		return err
	}
	s.d = work
	return nil
}

func (s *Store) Bookings() booking.Repository       { return &bookingRepo{view{s: s}} }
func (s *Store) Payments() payment.Repository       { return &paymentRepo{view{s: s}} }
func (s *Store) Rooms() room.Repository             { return &roomRepo{view{s: s}} }
func (s *Store) Amenities() amenity.Repository      { return &amenityRepo{view{s: s}} }
func (s *Store) Stock() stock.Store                 { return &stockStore{view{s: s}} }
func (s *Store) Availability() availability.Source { return &availabilitySource{view{s: s}} }

// view is either bound to a transaction copy (d set) or reads and writes the
// published data under the store lock.
type view struct {
	s *Store
	d *data
}

func (v view) read(fn func(d *data) error) error {
	if v.d != nil {
		return fn(v.d)
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.d)
}

func (v view) write(fn func(d *data) error) error {
	if v.d != nil {
		return fn(v.d)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.d)
}

func (v view) now() time.Time {
	return v.s.now()
}

type txView struct {
	v view
}

func (t *txView) Bookings() booking.Repository       { return &bookingRepo{t.v} }
func (t *txView) Payments() payment.Repository       { return &paymentRepo{t.v} }
func (t *txView) Rooms() room.Repository             { return &roomRepo{t.v} }
func (t *txView) Amenities() amenity.Repository      { return &amenityRepo{t.v} }
func (t *txView) Stock() stock.Store                 { return &stockStore{t.v} }
func (t *txView) Availability() availability.Source { return &availabilitySource{t.v} }

func newID() string {
	return uuid.NewString()
}

// paginate slices items for a 1-based page; zero values fall back to page 1 of 20.
func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortByCreated[T any](items []T, created func(T) time.Time, id func(T) string, desc bool) {
	sort.Slice(items, func(i, j int) bool {
		a, b := created(items[i]), created(items[j])
		if a.Equal(b) {
			return id(items[i]) < id(items[j])
		}
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})
}
