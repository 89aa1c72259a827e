package booking

import (
	"strings"
	"time"
)

const expiredReason = "hold expired"

func paymentRank(p PaymentStatus) int {
	switch p {
	case PaymentReservation:
		return 1
	case PaymentPartial:
		return 2
	case PaymentPaid:
		return 3
	}
	return 0
}

// ReservationThreshold is the amount that secures a booking without confirming it.
func ReservationThreshold(roomCount int, feePerRoom int64) int64 {
	return int64(roomCount) * feePerRoom
}

// paymentFor is the payment status paid earns against b's current total.
func paymentFor(b *Booking, paid, feePerRoom int64) PaymentStatus {
	switch {
	case paid <= 0:
		return PaymentPending
	case paid >= b.TotalPrice:
		return PaymentPaid
	case paid*2 >= b.TotalPrice:
		return PaymentPartial
	case paid >= ReservationThreshold(b.RoomCount(), feePerRoom):
		return PaymentReservation
	}
	return PaymentPending
}

// statusFor lifts status to what ps requires. It never lowers it.
func statusFor(status Status, ps PaymentStatus) Status {
	switch ps {
	case PaymentPaid, PaymentPartial:
		return StatusConfirmed
	case PaymentReservation:
		if status == StatusHeld {
			return StatusPending
		}
	}
	return status
}

// EvaluatePayment returns the joint state implied by the paid total. Neither the
// status nor the payment status ever moves backwards, and cancelled bookings
// are left alone.
func EvaluatePayment(b *Booking, paid, feePerRoom int64) (Status, PaymentStatus) {
	if b.Status == StatusCancelled || paid <= 0 {
		return b.Status, b.PaymentStatus
	}

	next := paymentFor(b, paid, feePerRoom)
	if paymentRank(next) < paymentRank(b.PaymentStatus) {
		next = b.PaymentStatus
	}
	return statusFor(b.Status, next), next
}

// Reevaluate recomputes the payment status after b's total changed. The payment
// status follows the balance and may drop, so a booking repriced above what was
// paid can take the difference. The booking status never drops: a confirmed
// booking stays confirmed and a released hold is not reinstated.
func Reevaluate(b *Booking, paid, feePerRoom int64) bool {
	if b.Status == StatusCancelled {
		return false
	}
	ps := paymentFor(b, paid, feePerRoom)
	status := statusFor(b.Status, ps)
	changed := status != b.Status || ps != b.PaymentStatus
	b.Status, b.PaymentStatus = status, ps
	if b.HeldUntil != nil && paymentRank(ps) >= paymentRank(PaymentReservation) {
		b.HeldUntil = nil
		changed = true
	}
	return changed
}

// Balance is what is still owed on b given paid.
func Balance(b *Booking, paid int64) int64 {
	if paid >= b.TotalPrice {
		return 0
	}
	return b.TotalPrice - paid
}

// ApplyPayment moves b to the state implied by paid and reports whether anything
// changed. Once a booking is secured its hold no longer applies.
func ApplyPayment(b *Booking, paid, feePerRoom int64) bool {
	status, ps := EvaluatePayment(b, paid, feePerRoom)
	changed := status != b.Status || ps != b.PaymentStatus
	b.Status, b.PaymentStatus = status, ps
	if b.HeldUntil != nil && paymentRank(ps) >= paymentRank(PaymentReservation) {
		b.HeldUntil = nil
		changed = true
	}
	return changed
}

// CheckCancel validates an explicit cancellation.
func CheckCancel(b *Booking, reason string, now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if !b.CheckIn.After(now) {
		return ErrAlreadyCheckedIn
	}
	return nil
}

// Cancel marks b cancelled. Payment status is left as it was.
func Cancel(b *Booking, reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	b.Status = StatusCancelled
	b.HeldUntil = nil
	b.CancellationReason = &reason
	b.CancelledAt = &now
}

// Expire cancels a lapsed hold.
func Expire(b *Booking, now time.Time) {
	Cancel(b, expiredReason, now)
}
