package amenity

import (
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

var (
	ErrNotFound           = stock.ErrNotFound
	ErrInvalidKind        = stock.ErrInvalidKind
	ErrEmptyName          = apperror.Validation("name cannot be empty")
	ErrInvalidPrice       = apperror.Validation("prices must not be negative")
	ErrInvalidQuantity    = apperror.Validation("quantity must not be negative")
	ErrInvalidMaxQuantity = apperror.Validation("max_quantity must be at least 1")
	ErrHourlyOnOptional   = apperror.Validation("price_per_hour applies to rental amenities only")
	ErrMaxOnRental        = apperror.Validation("max_quantity applies to optional amenities only")
)

// Amenity is an inventoried add-on. Optional amenities carry a per-booking
// cap; rental amenities are priced per unit plus per hour.
type Amenity struct {
	ID           string
	Kind         stock.Kind
	Name         string
	Description  string
	Quantity     int
	MaxQuantity  *int
	Price        int64
	PricePerHour int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key is the ledger address of the amenity's stock counter.
func (a *Amenity) Key() stock.Key {
	return stock.Key{Kind: a.Kind, ID: a.ID}
}

// Filter defines parameters for listing amenities.
type Filter struct {
	Kind     stock.Kind
	Page     int
	PageSize int
}
