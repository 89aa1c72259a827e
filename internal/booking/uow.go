package booking

import (
	"context"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// Tx exposes the repositories bound to one unit of work. Everything read or
// written through it commits or rolls back together.
type Tx interface {
	Bookings() Repository
	Payments() payment.Repository
	Rooms() room.Repository
	Amenities() amenity.Repository
	Stock() stock.Store
	Availability() availability.Source
}

// TxRunner runs fn in a single transaction. A nil return commits; anything
// else rolls back and is returned unchanged.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
