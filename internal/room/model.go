package room

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "room not found")
	ErrCottageNotFound = apperror.New(http.StatusNotFound, "cottage not found")
	ErrEmptyName       = apperror.Validation("name cannot be empty")
	ErrInvalidQuantity = apperror.Validation("total_quantity must not be negative")
	ErrInvalidPrice    = apperror.Validation("prices must not be negative")
	ErrInvalidCapacity = apperror.Validation("capacity must be at least 1")
	ErrInUse           = apperror.Conflict("resource is referenced by bookings")
)

// Room is a room type with a fixed number of identical units.
// Prices are in minor currency units.
type Room struct {
	ID            string
	Name          string
	Type          string
	Description   string
	Capacity      int
	TotalQuantity int
	NightlyPrice  int64
	ExtraPaxRate  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Cottage is a day-use or overnight shelter priced per stay.
type Cottage struct {
	ID            string
	Name          string
	Description   string
	TotalQuantity int
	Price         int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Filter defines parameters for listing rooms and cottages.
type Filter struct {
	Type      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
