package room_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/resort-booking-backend/internal/memstore"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
)

func newService() room.Service {
	return room.NewService(memstore.New().Rooms())
}

func TestCreateRoom_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  room.CreateRequest
		want error
	}{
		{"empty name", room.CreateRequest{Name: " ", Capacity: 2}, room.ErrEmptyName},
		{"zero capacity", room.CreateRequest{Name: "Deluxe", Capacity: 0}, room.ErrInvalidCapacity},
		{"negative quantity", room.CreateRequest{Name: "Deluxe", Capacity: 2, TotalQuantity: -1}, room.ErrInvalidQuantity},
		{"negative price", room.CreateRequest{Name: "Deluxe", Capacity: 2, NightlyPrice: -1}, room.ErrInvalidPrice},
		{"negative extra pax", room.CreateRequest{Name: "Deluxe", Capacity: 2, ExtraPaxRate: -1}, room.ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoomLifecycle(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	deluxe, err := svc.Create(ctx, room.CreateRequest{Name: " Deluxe ", Type: "suite", Capacity: 2, TotalQuantity: 3, NightlyPrice: 5000})
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", deluxe.Name)
	assert.NotEmpty(t, deluxe.ID)

	_, err = svc.Create(ctx, room.CreateRequest{Name: "Bunk", Type: "dorm", Capacity: 6, TotalQuantity: 1, NightlyPrice: 1500})
	require.NoError(t, err)

	t.Run("List filters by type", func(t *testing.T) {
		items, total, err := svc.List(ctx, room.Filter{Type: "suite"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, deluxe.ID, items[0].ID)
	})

	t.Run("List sorts by price", func(t *testing.T) {
		items, total, err := svc.List(ctx, room.Filter{SortBy: "nightly_price", SortOrder: "desc"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "Deluxe", items[0].Name)
	})

	t.Run("Update applies only given fields", func(t *testing.T) {
		qty := 5
		updated, err := svc.Update(ctx, deluxe.ID, room.UpdateRequest{TotalQuantity: &qty})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.TotalQuantity)
		assert.Equal(t, int64(5000), updated.NightlyPrice)
	})

	t.Run("Update rejects invalid values", func(t *testing.T) {
		capacity := 0
		_, err := svc.Update(ctx, deluxe.ID, room.UpdateRequest{Capacity: &capacity})
		assert.ErrorIs(t, err, room.ErrInvalidCapacity)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, deluxe.ID))
		_, err := svc.GetByID(ctx, deluxe.ID)
		assert.ErrorIs(t, err, room.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, deluxe.ID), room.ErrNotFound)
	})
}

func TestCottages(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateCottage(ctx, room.CreateCottageRequest{Name: "", TotalQuantity: 1})
	assert.ErrorIs(t, err, room.ErrEmptyName)

	c, err := svc.CreateCottage(ctx, room.CreateCottageRequest{Name: "Cabana", TotalQuantity: 2, Price: 800})
	require.NoError(t, err)

	price := int64(900)
	updated, err := svc.UpdateCottage(ctx, c.ID, room.UpdateCottageRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.Price)

	_, err = svc.GetCottageByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, room.ErrCottageNotFound)
}
