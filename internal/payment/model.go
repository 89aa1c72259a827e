package payment

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Final reports whether the payment can no longer change on its own.
func (s Status) Final() bool {
	return s != StatusPending
}

const (
	ProviderManual = "manual"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "payment not found")
	ErrInvalidAmount = apperror.Validation("amount must be positive")
	ErrUpstream      = apperror.New(http.StatusBadGateway, "payment provider error")
)

// Payment is one attempt to collect money for a booking. Amounts are minor units.
type Payment struct {
	ID          string
	BookingID   string
	Amount      int64
	Status      Status
	Provider    string
	Method      string
	Reference   *string
	CheckoutURL *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaidTotal sums the payments that count toward a booking's paid amount.
func PaidTotal(payments []*Payment) int64 {
	var total int64
	for _, p := range payments {
		if p.Status == StatusPaid {
			total += p.Amount
		}
	}
	return total
}
