package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type Status string

const (
	StatusHeld      Status = "held"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentReservation PaymentStatus = "reservation"
	PaymentPartial     PaymentStatus = "partial"
	PaymentPaid        PaymentStatus = "paid"
)

// Mode selects the initial state of a new booking.
type Mode string

const (
	ModeStandard Mode = ""
	ModeHold     Mode = "hold"
	ModeWalkIn   Mode = "walk_in"
)

var (
	ErrNotFound               = apperror.New(http.StatusNotFound, "booking not found")
	ErrPermissionDenied       = apperror.New(http.StatusForbidden, "permission denied")
	ErrStaffOnly              = apperror.New(http.StatusForbidden, "only staff may create holds or walk-ins")
	ErrInvalidDateRange       = apperror.Validation("check_in must be before check_out")
	ErrCheckInPast            = apperror.Validation("check_in cannot be in the past")
	ErrStayTooLong            = apperror.Validation("stay exceeds the maximum number of nights")
	ErrPriceOverflow          = apperror.Validation("booking total is too large")
	ErrNoRooms                = apperror.Validation("at least one room is required")
	ErrInvalidQuantity        = apperror.Validation("quantities must not be negative")
	ErrDuplicateLine          = apperror.Validation("each room, cottage and amenity may appear only once")
	ErrInvalidGuests          = apperror.Validation("guest counts must not be negative")
	ErrInvalidHours           = apperror.Validation("rental amenities need hours_used of at least 1")
	ErrHoursOnOptional        = apperror.Validation("hours_used applies to rental amenities only")
	ErrInvalidMode            = apperror.Validation("invalid booking mode")
	ErrReasonRequired         = apperror.Validation("a cancellation reason is required")
	ErrInvalidAmount          = apperror.Validation("amount must be positive")
	ErrAmountExceedsBalance   = apperror.Validation("amount exceeds the outstanding balance")
	ErrAlreadyCheckedIn       = apperror.Conflict("booking has already reached check-in")
	ErrAlreadyCancelled       = apperror.Conflict("booking is already cancelled")
	ErrBookingClosed          = apperror.Conflict("booking is cancelled and can no longer change")
	ErrHoldExpired            = apperror.Conflict("booking hold has expired")
	ErrAlreadyPaid            = apperror.Conflict("booking is already fully paid")
	ErrNotCancelled           = apperror.Conflict("only cancelled bookings can be deleted")
	ErrRequestInProgress      = apperror.Conflict("a request with this idempotency key is still in progress")
	ErrTemporarilyUnavailable = apperror.New(http.StatusServiceUnavailable, "booking is temporarily unavailable, please retry")
)

// MaxQuantityError reports an optional amenity requested above its per-booking cap.
type MaxQuantityError struct {
	AmenityID   string `json:"resource_id"`
	Name        string `json:"name"`
	MaxQuantity int    `json:"max_quantity"`
	Requested   int    `json:"requested"`
}

func (e *MaxQuantityError) Error() string {
	return fmt.Sprintf("%q allows at most %d per booking, requested %d", e.Name, e.MaxQuantity, e.Requested)
}

func newMaxQuantityError(id, name string, max, requested int) error {
	detail := &MaxQuantityError{AmenityID: id, Name: name, MaxQuantity: max, Requested: requested}
	return apperror.Wrap(detail, http.StatusBadRequest, detail.Error()).WithDetails(detail)
}

// RoomLine is one room type in a booking. Prices are snapshots taken when the
// selection was last written.
type RoomLine struct {
	RoomID       string
	RoomName     string
	Quantity     int
	Adults       int
	Children     int
	ExtraPax     int
	UnitPrice    int64
	ExtraPaxRate int64
	ExtraPaxFee  int64
	TotalPrice   int64
}

type CottageLine struct {
	CottageID  string
	Name       string
	Quantity   int
	UnitPrice  int64
	TotalPrice int64
}

// AmenityLine covers both optional and rental amenities; HoursUsed and
// HourlyPrice are zero for optional ones.
type AmenityLine struct {
	Kind        stock.Kind
	AmenityID   string
	Name        string
	Quantity    int
	HoursUsed   int
	UnitPrice   int64
	HourlyPrice int64
	TotalPrice  int64
}

// Lines is the full, replace-as-a-unit selection of a booking.
type Lines struct {
	Rooms     []RoomLine
	Cottages  []CottageLine
	Amenities []AmenityLine
}

// StockSelection is the amenity quantity this booking holds out of stock.
func (l Lines) StockSelection() stock.Selection {
	sel := make(stock.Selection, len(l.Amenities))
	for _, a := range l.Amenities {
		sel[stock.Key{Kind: a.Kind, ID: a.AmenityID}] += a.Quantity
	}
	return sel
}

// RoomCount is the number of room units, which scales the reservation threshold.
func (l Lines) RoomCount() int {
	n := 0
	for _, r := range l.Rooms {
		n += r.Quantity
	}
	return n
}

type Booking struct {
	ID                 string
	GuestID            *string
	CheckIn            time.Time
	CheckOut           time.Time
	Status             Status
	PaymentStatus      PaymentStatus
	HeldUntil          *time.Time
	TotalPrice         int64
	IsDeleted          bool
	CancellationReason *string
	CancelledAt        *time.Time
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Lines
}

// Filter defines parameters for listing bookings.
type Filter struct {
	GuestID     string
	Status      Status
	CheckInFrom *time.Time
	CheckInTo   *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Actor is the caller a transition is attributed to.
type Actor struct {
	ID    string
	Staff bool
}

func (a Actor) owns(b *Booking) bool {
	return b.GuestID != nil && *b.GuestID == a.ID
}
