package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

func TestInTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	rm := &room.Room{Name: "Deluxe", Capacity: 2, TotalQuantity: 2}
	require.NoError(t, s.Rooms().Create(ctx, rm))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b := &booking.Booking{Status: booking.StatusPending, CheckIn: time.Now(), CheckOut: time.Now().Add(24 * time.Hour)}
		require.NoError(t, tx.Bookings().Create(ctx, b))
		require.NoError(t, tx.Rooms().Delete(ctx, rm.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Rooms().GetByID(ctx, rm.ID)
	assert.NoError(t, err)
	_, total, err := s.Bookings().List(ctx, booking.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInTx_CommitsOnNil(t *testing.T) {
	s := New()
	ctx := context.Background()

	var id string
	err := s.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b := &booking.Booking{Status: booking.StatusPending}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		id = b.ID
		return tx.Bookings().ReplaceLines(ctx, b.ID, booking.Lines{Rooms: []booking.RoomLine{{RoomID: "r", Quantity: 1}}})
	})
	require.NoError(t, err)

	b, err := s.Bookings().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, b.Rooms, 1)
}

func TestApplyDelta_NeverNegative(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := &amenity.Amenity{Kind: stock.KindRental, Name: "Kayak", Quantity: 2}
	require.NoError(t, s.Amenities().Create(ctx, a))

	q, err := s.Stock().ApplyDelta(ctx, a.Key(), -2)
	require.NoError(t, err)
	assert.Zero(t, q)

	_, err = s.Stock().ApplyDelta(ctx, a.Key(), -1)
	detail, ok := stock.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, 0, detail.Available)

	_, err = s.Stock().ApplyDelta(ctx, stock.Key{Kind: stock.KindRental, ID: "missing"}, 1)
	assert.ErrorIs(t, err, stock.ErrNotFound)
}

func TestAmenityUpdate_KeepsQuantity(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := &amenity.Amenity{Kind: stock.KindOptional, Name: "Towel", Quantity: 5, Price: 100}
	require.NoError(t, s.Amenities().Create(ctx, a))

	edit := *a
	edit.Quantity = 999
	edit.Price = 150
	require.NoError(t, s.Amenities().Update(ctx, &edit))

	got, err := s.Amenities().GetByID(ctx, a.Kind, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, int64(150), got.Price)
}

func TestCommitted(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	in, out := now.Add(24*time.Hour), now.Add(72*time.Hour)
	lapsed := now.Add(-time.Minute)

	seed := func(status booking.Status, heldUntil *time.Time, qty int, checkIn, checkOut time.Time) string {
		var id string
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
			b := &booking.Booking{Status: status, PaymentStatus: booking.PaymentPending, HeldUntil: heldUntil, CheckIn: checkIn, CheckOut: checkOut}
			if err := tx.Bookings().Create(ctx, b); err != nil {
				return err
			}
			id = b.ID
			return tx.Bookings().ReplaceLines(ctx, b.ID, booking.Lines{Rooms: []booking.RoomLine{{RoomID: "r1", Quantity: qty}}})
		}))
		return id
	}

	mine := seed(booking.StatusConfirmed, nil, 1, in, out)
	seed(booking.StatusPending, nil, 2, in, out)
	seed(booking.StatusPending, &lapsed, 4, in, out)
	seed(booking.StatusCancelled, nil, 8, in, out)
	seed(booking.StatusConfirmed, nil, 16, out, out.Add(24*time.Hour))

	q := availability.Query{Kind: availability.KindRoom, ResourceID: "r1", CheckIn: in, CheckOut: out, Now: now}
	committed, err := s.Availability().Committed(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 3, committed)

	q.ExcludeBookingID = mine
	committed, err = s.Availability().Committed(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, committed)
}

func TestListExpiredHolds(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	early, late, future := now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)

	ids := map[string]*time.Time{"early": &early, "late": &late, "future": &future}
	created := map[string]string{}
	for name, held := range ids {
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
			b := &booking.Booking{Status: booking.StatusPending, PaymentStatus: booking.PaymentPending, HeldUntil: held}
			err := tx.Bookings().Create(ctx, b)
			created[name] = b.ID
			return err
		}))
	}

	got, err := s.Bookings().ListExpiredHolds(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{created["early"], created["late"]}, got)

	got, err = s.Bookings().ListExpiredHolds(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{created["early"]}, got)
}
