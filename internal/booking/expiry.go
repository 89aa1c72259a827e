package booking

import "time"

// IsExpired reports whether an unpaid hold has lapsed. Readers exclude such
// bookings from availability directly; writers cancel them before proceeding.
func IsExpired(b *Booking, now time.Time) bool {
	if b.HeldUntil == nil || !b.HeldUntil.Before(now) {
		return false
	}
	if b.Status != StatusPending && b.Status != StatusHeld {
		return false
	}
	return b.PaymentStatus != PaymentReservation && b.PaymentStatus != PaymentPaid
}
