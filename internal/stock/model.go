package stock

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
)

// Kind identifies which counter table a stock key refers to.
type Kind string

const (
	KindOptional Kind = "optional"
	KindRental   Kind = "rental"
)

// Valid reports whether k names a known inventoriable resource kind.
func (k Kind) Valid() bool {
	return k == KindOptional || k == KindRental
}

var (
	ErrNotFound    = apperror.New(http.StatusNotFound, "amenity not found")
	ErrInvalidKind = apperror.New(http.StatusBadRequest, "invalid amenity kind")
	ErrZeroDelta   = apperror.New(http.StatusBadRequest, "stock delta must not be zero")
)

// Key addresses one stock counter.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Selection maps counters to quantities: either held quantities or signed deltas.
type Selection map[Key]int

// InsufficientStockError reports which counter could not cover a decrement.
type InsufficientStockError struct {
	Kind      Kind   `json:"kind"`
	ID        string `json:"resource_id"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
	Shortfall int    `json:"shortfall"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s %q: available %d, requested %d", e.Kind, e.Name, e.Available, e.Requested)
}

// NewInsufficientStock builds the user-facing 409 for a failed decrement.
func NewInsufficientStock(key Key, name string, available, requested int) error {
	detail := &InsufficientStockError{
		Kind:      key.Kind,
		ID:        key.ID,
		Name:      name,
		Available: available,
		Requested: requested,
		Shortfall: requested - available,
	}
	return apperror.Wrap(detail, http.StatusConflict, detail.Error()).WithDetails(detail)
}

// AsInsufficientStock extracts the structured detail from err, if any.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var detail *InsufficientStockError
	if errors.As(err, &detail) {
		return detail, true
	}
	return nil, false
}
