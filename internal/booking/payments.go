package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/audit"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
)

// PaymentRequest asks to collect Amount for a booking. Reference is the desk
// receipt number for manual payments.
type PaymentRequest struct {
	Amount    int64
	Method    string
	Reference *string
}

func (s *service) ListPayments(ctx context.Context, actor Actor, bookingID string) ([]*payment.Payment, error) {
	if _, err := s.GetByID(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.payments.ListByBooking(ctx, bookingID)
}

// payable locks the booking and checks it can take amount. An expired hold is
// released on the way and reported through expired.
func (s *service) payable(ctx context.Context, tx Tx, actor Actor, bookingID string, amount int64, now time.Time, e *effects) (b *Booking, expired bool, err error) {
	if amount <= 0 {
		return nil, false, ErrInvalidAmount
	}
	b, err = tx.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}
	if b.IsDeleted {
		return nil, false, ErrNotFound
	}
	if err := s.authorize(actor, b); err != nil {
		return nil, false, err
	}
	if IsExpired(b, now) {
		return b, true, s.expireInTx(ctx, tx, b, now, e)
	}
	if b.Status == StatusCancelled {
		return nil, false, ErrBookingClosed
	}
	if err := checkBalance(ctx, tx, b, amount); err != nil {
		return nil, false, err
	}
	return b, false, nil
}

// checkBalance rejects amount unless it fits in what b still owes. The balance
// is read from the payments themselves, not the cached payment status.
func checkBalance(ctx context.Context, tx Tx, b *Booking, amount int64) error {
	payments, err := tx.Payments().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	balance := Balance(b, payment.PaidTotal(payments))
	if balance == 0 {
		return ErrAlreadyPaid
	}
	if amount > balance {
		return ErrAmountExceedsBalance
	}
	return nil
}

func (s *service) CreatePayment(ctx context.Context, actor Actor, bookingID string, req PaymentRequest) (*payment.Payment, error) {
	now := s.now()

	var expired bool
	var e *effects
	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e = &effects{}
		var err error
		_, expired, err = s.payable(ctx, tx, actor, bookingID, req.Amount, now, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.flush(ctx, e)
		return nil, ErrHoldExpired
	}

	// The provider call stays outside any transaction.
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	src, gerr := s.gateway.CreateSource(gctx, payment.SourceRequest{Amount: req.Amount, BookingID: bookingID, Method: req.Method})
	cancel()

	if gerr != nil {
		failed := &payment.Payment{
			BookingID: bookingID,
			Amount:    req.Amount,
			Status:    payment.StatusFailed,
			Provider:  s.gateway.Name(),
			Method:    req.Method,
		}
		if err := s.run(ctx, func(ctx context.Context, tx Tx) error {
			return tx.Payments().Create(ctx, failed)
		}); err != nil {
			s.log.WithError(err).WithField("booking_id", bookingID).Error("failed to record failed payment")
		}
		s.log.WithError(gerr).WithField("booking_id", bookingID).Warn("payment provider rejected source")
		return nil, apperror.Wrap(gerr, payment.ErrUpstream.Code, payment.ErrUpstream.Message)
	}

	var created *payment.Payment
	var rejected error
	err = s.run(ctx, func(ctx context.Context, tx Tx) error {
		e, rejected = &effects{}, nil
		reference, checkoutURL := src.Reference, src.CheckoutURL
		p := &payment.Payment{
			BookingID:   bookingID,
			Amount:      req.Amount,
			Status:      payment.StatusPending,
			Provider:    s.gateway.Name(),
			Method:      req.Method,
			Reference:   &reference,
			CheckoutURL: &checkoutURL,
		}

		// Another payment may have landed while the provider was called.
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusCancelled && !IsExpired(b, s.now()) {
			if err := checkBalance(ctx, tx, b, req.Amount); err != nil {
				if !errors.Is(err, ErrAlreadyPaid) && !errors.Is(err, ErrAmountExceedsBalance) {
					return err
				}
				rejected = err
				return s.recordRejected(ctx, tx, b, p, src.Status, e)
			}
		}

		if err := tx.Payments().Create(ctx, p); err != nil {
			return err
		}
		if err := s.settle(ctx, tx, p, src.Status, e); err != nil {
			return err
		}
		e.audit(audit.Entry{
			Actor:    actorName(actor),
			Action:   "payment.create",
			Entity:   "payment",
			EntityID: p.ID,
			Details:  map[string]any{"booking_id": bookingID, "amount": p.Amount, "provider": p.Provider},
		})
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	if rejected != nil {
		return nil, rejected
	}
	return created, nil
}

// recordRejected stores a source the booking can no longer take. Money the
// provider already holds is marked for refund.
func (s *service) recordRejected(ctx context.Context, tx Tx, b *Booking, p *payment.Payment, status payment.SourceStatus, e *effects) error {
	p.Status = payment.StatusCancelled
	if status == payment.SourcePaid || status == payment.SourceChargeable {
		p.Status = payment.StatusRefunded
	}
	if err := tx.Payments().Create(ctx, p); err != nil {
		return err
	}
	if p.Status == payment.StatusRefunded {
		e.notify(notify.Message{
			Role:      notify.RoleAdmin,
			Event:     "payment.refund_required",
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("Payment %s of %d exceeded the booking balance and must be refunded.", p.ID, p.Amount),
		})
	}
	e.audit(audit.Entry{
		Actor:    audit.SystemActor,
		Action:   "payment.reject",
		Entity:   "payment",
		EntityID: p.ID,
		Details:  map[string]any{"booking_id": b.ID, "amount": p.Amount, "status": p.Status},
	})
	return nil
}

func (s *service) RecordManualPayment(ctx context.Context, actor Actor, bookingID string, req PaymentRequest) (*payment.Payment, error) {
	if !actor.Staff {
		return nil, ErrPermissionDenied
	}
	now := s.now()

	var recorded *payment.Payment
	var expired bool
	var e *effects
	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e, recorded = &effects{}, nil
		b, exp, err := s.payable(ctx, tx, actor, bookingID, req.Amount, now, e)
		if err != nil || exp {
			expired = exp
			return err
		}

		method := req.Method
		if method == "" {
			method = "cash"
		}
		p := &payment.Payment{
			BookingID: b.ID,
			Amount:    req.Amount,
			Status:    payment.StatusPending,
			Provider:  payment.ProviderManual,
			Method:    method,
			Reference: req.Reference,
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			return err
		}
		if err := s.settle(ctx, tx, p, payment.SourcePaid, e); err != nil {
			return err
		}
		e.audit(audit.Entry{
			Actor:    actorName(actor),
			Action:   "payment.manual",
			Entity:   "payment",
			EntityID: p.ID,
			Details:  map[string]any{"booking_id": b.ID, "amount": p.Amount, "method": method},
		})
		recorded = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	if expired {
		return nil, ErrHoldExpired
	}
	return recorded, nil
}

func (s *service) SyncPayment(ctx context.Context, actor Actor, paymentID string) (*payment.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetByID(ctx, actor, p.BookingID); err != nil {
		return nil, err
	}
	if p.Status.Final() || p.Reference == nil {
		return p, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	status, gerr := s.gateway.PollStatus(gctx, *p.Reference)
	cancel()
	if gerr != nil {
		s.log.WithError(gerr).WithField("payment_id", p.ID).Warn("payment status poll failed")
		return nil, apperror.Wrap(gerr, payment.ErrUpstream.Code, payment.ErrUpstream.Message)
	}

	return s.settleByID(ctx, p.ID, status, actorName(actor))
}

func (s *service) HandleWebhook(ctx context.Context, reference string, status payment.SourceStatus) (*payment.Payment, error) {
	p, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.settleByID(ctx, p.ID, status, audit.SystemActor)
}

func (s *service) settleByID(ctx context.Context, paymentID string, status payment.SourceStatus, actor string) (*payment.Payment, error) {
	var settled *payment.Payment
	var e *effects
	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e = &effects{}
		p, err := tx.Payments().GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		before := p.Status
		if err := s.settle(ctx, tx, p, status, e); err != nil {
			return err
		}
		if p.Status != before {
			e.audit(audit.Entry{
				Actor:    actor,
				Action:   "payment.settle",
				Entity:   "payment",
				EntityID: p.ID,
				Details:  map[string]any{"from": before, "to": p.Status, "provider_status": status},
			})
		}
		settled = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	return settled, nil
}

// settle applies a provider status to a pending payment and feeds the result
// into the booking state machine. Final payments are left untouched.
func (s *service) settle(ctx context.Context, tx Tx, p *payment.Payment, status payment.SourceStatus, e *effects) error {
	if p.Status.Final() {
		return nil
	}

	now := s.now()
	b, err := tx.Bookings().GetForUpdate(ctx, p.BookingID)
	if err != nil {
		return err
	}
	if IsExpired(b, now) {
		if err := s.expireInTx(ctx, tx, b, now, e); err != nil {
			return err
		}
	}

	var next payment.Status
	switch status {
	case payment.SourcePaid, payment.SourceChargeable:
		next = payment.StatusPaid
	case payment.SourceFailed:
		next = payment.StatusFailed
	default:
		if b.Status == StatusCancelled {
			next = payment.StatusCancelled
		} else {
			return nil
		}
	}

	// Money that arrives for a booking that can no longer take it is handed back.
	if next == payment.StatusPaid && b.Status == StatusCancelled {
		next = payment.StatusRefunded
		e.notify(notify.Message{
			Role:      notify.RoleAdmin,
			Event:     "payment.refund_required",
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("Payment %s of %d arrived after the booking was cancelled and must be refunded.", p.ID, p.Amount),
		})
	}

	if err := tx.Payments().UpdateStatus(ctx, p.ID, next); err != nil {
		return err
	}
	p.Status = next
	if next != payment.StatusPaid {
		return nil
	}

	payments, err := tx.Payments().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	paid := payment.PaidTotal(payments)
	prevStatus, prevPayment := b.Status, b.PaymentStatus
	if !ApplyPayment(b, paid, s.feePerRoom) {
		return nil
	}
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
		"paid":           paid,
	}).Info("booking payment state advanced")

	if b.Status != prevStatus || b.PaymentStatus != prevPayment {
		e.notify(notify.Message{
			Role:      notify.RoleGuest,
			Event:     "booking.payment_" + string(b.PaymentStatus),
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("Payment received. Your booking is %s (%s).", b.Status, b.PaymentStatus),
		})
		e.notify(notify.Message{
			Role:      notify.RoleAdmin,
			Event:     "booking.payment_" + string(b.PaymentStatus),
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("Booking paid %d of %d.", paid, b.TotalPrice),
		})
	}
	return nil
}

// ReleaseExpired sweeps lapsed holds one transaction at a time. A failure on
// one booking is logged and the sweep moves on.
func (s *service) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	now := s.now()
	ids, err := s.bookings.ListExpiredHolds(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return released, err
		}

		var done bool
		var e *effects
		err := s.run(ctx, func(ctx context.Context, tx Tx) error {
			e, done = &effects{}, false
			b, err := tx.Bookings().GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !IsExpired(b, now) {
				return nil
			}
			done = true
			return s.expireInTx(ctx, tx, b, now, e)
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			s.log.WithError(err).WithField("booking_id", id).Warn("failed to release expired hold")
			continue
		}
		s.flush(ctx, e)
		if done {
			released++
		}
	}

	if released > 0 {
		s.log.WithField("released", released).Info("expired holds released")
	}
	return released, nil
}
