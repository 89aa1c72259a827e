package availability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
)

// Kind is a resource whose capacity is shared across overlapping stays.
type Kind string

const (
	KindRoom    Kind = "room"
	KindCottage Kind = "cottage"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "resource not found")
	ErrInvalidDateRange = apperror.New(http.StatusBadRequest, "check_in must be before check_out")
	ErrInvalidKind      = apperror.New(http.StatusBadRequest, "invalid resource kind")
)

// Resource is the capacity row for a room or cottage.
type Resource struct {
	Kind  Kind
	ID    string
	Name  string
	Total int
}

// Query selects the bookings that compete with a stay for one resource.
type Query struct {
	Kind       Kind
	ResourceID string
	CheckIn    time.Time
	CheckOut   time.Time
	// Now is compared against held_until; lapsed holds no longer count.
	Now time.Time
	// ExcludeBookingID drops a booking from the sum, so an edit does not compete with itself.
	ExcludeBookingID string
}

// Availability is a point-in-time capacity snapshot.
type Availability struct {
	Kind       Kind      `json:"kind"`
	ResourceID string    `json:"resource_id"`
	Name       string    `json:"name"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Total      int       `json:"total"`
	Committed  int       `json:"committed"`
	Available  int       `json:"available"`
}

// UnavailableError is the structured 409 payload for an over-requested resource.
type UnavailableError struct {
	Kind       Kind   `json:"kind"`
	ResourceID string `json:"resource_id"`
	Name       string `json:"name"`
	Available  int    `json:"available"`
	Requested  int    `json:"requested"`
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %q has only %d available for the selected dates, requested %d", e.Kind, e.Name, e.Available, e.Requested)
}

func newUnavailable(a *Availability, requested int) error {
	detail := &UnavailableError{
		Kind:       a.Kind,
		ResourceID: a.ResourceID,
		Name:       a.Name,
		Available:  a.Available,
		Requested:  requested,
	}
	return apperror.Wrap(detail, http.StatusConflict, detail.Error()).WithDetails(detail)
}

// AsUnavailable extracts the structured detail from err, if any.
func AsUnavailable(err error) (*UnavailableError, bool) {
	var detail *UnavailableError
	if errors.As(err, &detail) {
		return detail, true
	}
	return nil, false
}

// Overlaps is the half-open interval test: a checkout on day D frees the
// resource for a check-in on day D.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}
