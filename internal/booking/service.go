package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/audit"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type RoomSelection struct {
	RoomID   string
	Quantity int
	Adults   int
	Children int
}

type CottageSelection struct {
	CottageID string
	Quantity  int
}

type AmenitySelection struct {
	Kind      stock.Kind
	AmenityID string
	Quantity  int
	HoursUsed int
}

// Selection is everything a booking asks for. Zero-quantity entries are no-ops.
type Selection struct {
	Rooms     []RoomSelection
	Cottages  []CottageSelection
	Amenities []AmenitySelection
}

type CreateRequest struct {
	// GuestID is taken from the actor for guests; staff may leave it nil for walk-ins.
	GuestID        *string
	CheckIn        time.Time
	CheckOut       time.Time
	Mode           Mode
	Selection      Selection
	IdempotencyKey string
}

// UpdateRequest changes dates and/or the selection. A nil Selection keeps the
// current lines and re-validates them against the new dates.
type UpdateRequest struct {
	CheckIn   *time.Time
	CheckOut  *time.Time
	Selection *Selection
}

type Service interface {
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, actor Actor, id string) (*Booking, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Booking, error)
	Cancel(ctx context.Context, actor Actor, id string, reason string) (*Booking, error)
	Delete(ctx context.Context, actor Actor, id string) error

	ListPayments(ctx context.Context, actor Actor, bookingID string) ([]*payment.Payment, error)
	CreatePayment(ctx context.Context, actor Actor, bookingID string, req PaymentRequest) (*payment.Payment, error)
	RecordManualPayment(ctx context.Context, actor Actor, bookingID string, req PaymentRequest) (*payment.Payment, error)
	SyncPayment(ctx context.Context, actor Actor, paymentID string) (*payment.Payment, error)
	HandleWebhook(ctx context.Context, reference string, status payment.SourceStatus) (*payment.Payment, error)

	// ReleaseExpired cancels lapsed holds and returns how many were released.
	ReleaseExpired(ctx context.Context, limit int) (int, error)
}

// AvailabilityInvalidator drops cached availability for resources a commit touched.
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, kind availability.Kind, ids ...string) error
}

// IdempotencyStore remembers which booking a client request key produced.
type IdempotencyStore interface {
	// Reserve claims key. When it is already claimed, bookingID is the finished
	// result or empty while the first request is still running.
	Reserve(ctx context.Context, key string) (reserved bool, bookingID string, err error)
	Complete(ctx context.Context, key, bookingID string) error
	Release(ctx context.Context, key string) error
}

// Deps holds the collaborators and settings of the booking service.
type Deps struct {
	Tx       TxRunner
	Bookings Repository
	Payments payment.Repository
	Gateway  payment.Gateway
	Notifier notify.Notifier
	Audit    audit.Recorder
	Cache    AvailabilityInvalidator
	Idem     IdempotencyStore
	Retry    db.RetryPolicy
	Log      logrus.FieldLogger
	Now      func() time.Time

	HoldTTL        time.Duration
	FeePerRoom     int64
	MaxStayNights  int
	GatewayTimeout time.Duration
}

type service struct {
	tx             TxRunner
	bookings       Repository
	payments       payment.Repository
	gateway        payment.Gateway
	notifier       notify.Notifier
	audit          audit.Recorder
	cache          AvailabilityInvalidator
	idem           IdempotencyStore
	retry          db.RetryPolicy
	log            logrus.FieldLogger
	now            func() time.Time
	holdTTL        time.Duration
	feePerRoom     int64
	maxStayNights  int
	gatewayTimeout time.Duration
}

func NewService(d Deps) Service {
	s := &service{
		tx:             d.Tx,
		bookings:       d.Bookings,
		payments:       d.Payments,
		gateway:        d.Gateway,
		notifier:       d.Notifier,
		audit:          d.Audit,
		cache:          d.Cache,
		idem:           d.Idem,
		retry:          d.Retry,
		log:            d.Log,
		now:            d.Now,
		holdTTL:        d.HoldTTL,
		feePerRoom:     d.FeePerRoom,
		maxStayNights:  d.MaxStayNights,
		gatewayTimeout: d.GatewayTimeout,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.holdTTL <= 0 {
		s.holdTTL = 15 * time.Minute
	}
	if s.maxStayNights <= 0 {
		s.maxStayNights = 30
	}
	if s.gatewayTimeout <= 0 {
		s.gatewayTimeout = 10 * time.Second
	}
	return s
}

// run executes fn as one retried unit of work and maps exhausted contention to
// ErrTemporarilyUnavailable.
func (s *service) run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.tx.InTx(ctx, fn)
	})
	if errors.Is(err, db.ErrRetriesExhausted) {
		s.log.WithError(err).Warn("booking transaction gave up after contention")
		return apperror.Wrap(err, ErrTemporarilyUnavailable.Code, ErrTemporarilyUnavailable.Message)
	}
	return err
}

func (s *service) authorize(actor Actor, b *Booking) error {
	if actor.Staff || actor.owns(b) {
		return nil
	}
	return ErrPermissionDenied
}

func actorName(actor Actor) string {
	if actor.ID == "" {
		return audit.SystemActor
	}
	return actor.ID
}

func guestOf(b *Booking) string {
	if b.GuestID == nil {
		return ""
	}
	return *b.GuestID
}

// normalize drops zero-quantity entries and validates the rest without
// touching any store.
func normalize(sel Selection) (Selection, error) {
	var out Selection
	seen := make(map[string]bool)
	claim := func(key string) error {
		if seen[key] {
			return ErrDuplicateLine
		}
		seen[key] = true
		return nil
	}

	for _, r := range sel.Rooms {
		if r.Quantity < 0 {
			return out, ErrInvalidQuantity
		}
		if r.Adults < 0 || r.Children < 0 {
			return out, ErrInvalidGuests
		}
		if r.Quantity == 0 {
			continue
		}
		if err := claim("room:" + r.RoomID); err != nil {
			return out, err
		}
		out.Rooms = append(out.Rooms, r)
	}
	if len(out.Rooms) == 0 {
		return out, ErrNoRooms
	}

	for _, c := range sel.Cottages {
		if c.Quantity < 0 {
			return out, ErrInvalidQuantity
		}
		if c.Quantity == 0 {
			continue
		}
		if err := claim("cottage:" + c.CottageID); err != nil {
			return out, err
		}
		out.Cottages = append(out.Cottages, c)
	}

	for _, a := range sel.Amenities {
		if !a.Kind.Valid() {
			return out, stock.ErrInvalidKind
		}
		if a.Quantity < 0 {
			return out, ErrInvalidQuantity
		}
		if a.Quantity == 0 {
			continue
		}
		switch a.Kind {
		case stock.KindRental:
			if a.HoursUsed < 1 {
				return out, ErrInvalidHours
			}
		case stock.KindOptional:
			if a.HoursUsed != 0 {
				return out, ErrHoursOnOptional
			}
		}
		if err := claim(string(a.Kind) + ":" + a.AmenityID); err != nil {
			return out, err
		}
		out.Amenities = append(out.Amenities, a)
	}

	// Lock rows in id order so concurrent writers cannot deadlock on each other.
	sort.Slice(out.Rooms, func(i, j int) bool { return out.Rooms[i].RoomID < out.Rooms[j].RoomID })
	sort.Slice(out.Cottages, func(i, j int) bool { return out.Cottages[i].CottageID < out.Cottages[j].CottageID })
	sort.Slice(out.Amenities, func(i, j int) bool {
		if out.Amenities[i].Kind != out.Amenities[j].Kind {
			return out.Amenities[i].Kind < out.Amenities[j].Kind
		}
		return out.Amenities[i].AmenityID < out.Amenities[j].AmenityID
	})
	return out, nil
}

func selectionOf(lines Lines) Selection {
	var sel Selection
	for _, r := range lines.Rooms {
		sel.Rooms = append(sel.Rooms, RoomSelection{RoomID: r.RoomID, Quantity: r.Quantity, Adults: r.Adults, Children: r.Children})
	}
	for _, c := range lines.Cottages {
		sel.Cottages = append(sel.Cottages, CottageSelection{CottageID: c.CottageID, Quantity: c.Quantity})
	}
	for _, a := range lines.Amenities {
		sel.Amenities = append(sel.Amenities, AmenitySelection{Kind: a.Kind, AmenityID: a.AmenityID, Quantity: a.Quantity, HoursUsed: a.HoursUsed})
	}
	return sel
}

// reserve validates sel against capacity and stock for b's dates, moves amenity
// stock from the previous lines to the new ones, and reprices b. b.ID is
// excluded from availability so an edit never competes with itself.
func (s *service) reserve(ctx context.Context, tx Tx, b *Booking, previous Lines, sel Selection, now time.Time) error {
	roomIDs := make([]string, len(sel.Rooms))
	for i, r := range sel.Rooms {
		roomIDs[i] = r.RoomID
	}
	rooms, err := tx.Rooms().GetByIDs(ctx, roomIDs)
	if err != nil {
		return err
	}
	cottageIDs := make([]string, len(sel.Cottages))
	for i, c := range sel.Cottages {
		cottageIDs[i] = c.CottageID
	}
	cottages, err := tx.Rooms().GetCottagesByIDs(ctx, cottageIDs)
	if err != nil {
		return err
	}
	amenities, err := s.loadAmenities(ctx, tx, sel.Amenities)
	if err != nil {
		return err
	}

	var next Lines
	for _, a := range sel.Amenities {
		item := amenities[stock.Key{Kind: a.Kind, ID: a.AmenityID}]
		if item.Kind == stock.KindOptional && item.MaxQuantity != nil && a.Quantity > *item.MaxQuantity {
			return newMaxQuantityError(item.ID, item.Name, *item.MaxQuantity, a.Quantity)
		}
		next.Amenities = append(next.Amenities, AmenityLine{
			Kind:        a.Kind,
			AmenityID:   a.AmenityID,
			Name:        item.Name,
			Quantity:    a.Quantity,
			HoursUsed:   a.HoursUsed,
			UnitPrice:   item.Price,
			HourlyPrice: item.PricePerHour,
		})
	}

	calc := availability.NewCalculator(tx.Availability())
	for _, r := range sel.Rooms {
		rm, ok := rooms[r.RoomID]
		if !ok {
			return fmt.Errorf("room %s: %w", r.RoomID, room.ErrNotFound)
		}
		if _, err := calc.Require(ctx, availability.Query{
			Kind:             availability.KindRoom,
			ResourceID:       r.RoomID,
			CheckIn:          b.CheckIn,
			CheckOut:         b.CheckOut,
			Now:              now,
			ExcludeBookingID: b.ID,
		}, r.Quantity); err != nil {
			return err
		}
		next.Rooms = append(next.Rooms, RoomLine{
			RoomID:       rm.ID,
			RoomName:     rm.Name,
			Quantity:     r.Quantity,
			Adults:       r.Adults,
			Children:     r.Children,
			ExtraPax:     extraPax(r.Adults, r.Children, rm.Capacity, r.Quantity),
			UnitPrice:    rm.NightlyPrice,
			ExtraPaxRate: rm.ExtraPaxRate,
		})
	}
	for _, c := range sel.Cottages {
		ct, ok := cottages[c.CottageID]
		if !ok {
			return fmt.Errorf("cottage %s: %w", c.CottageID, room.ErrCottageNotFound)
		}
		if _, err := calc.Require(ctx, availability.Query{
			Kind:             availability.KindCottage,
			ResourceID:       c.CottageID,
			CheckIn:          b.CheckIn,
			CheckOut:         b.CheckOut,
			Now:              now,
			ExcludeBookingID: b.ID,
		}, c.Quantity); err != nil {
			return err
		}
		next.Cottages = append(next.Cottages, CottageLine{
			CottageID: ct.ID,
			Name:      ct.Name,
			Quantity:  c.Quantity,
			UnitPrice: ct.Price,
		})
	}

	// The previous lines were read in this same transaction, so the diff is
	// taken against what is actually held.
	if _, err := stock.NewLedger(tx.Stock()).Reconcile(ctx, previous.StockSelection(), next.StockSelection()); err != nil {
		return err
	}

	total, err := Reprice(&next, b.CheckIn, b.CheckOut)
	if err != nil {
		return err
	}
	b.TotalPrice = total
	b.Lines = next
	return nil
}

func (s *service) loadAmenities(ctx context.Context, tx Tx, sel []AmenitySelection) (map[stock.Key]*amenity.Amenity, error) {
	byKind := make(map[stock.Kind][]string)
	for _, a := range sel {
		byKind[a.Kind] = append(byKind[a.Kind], a.AmenityID)
	}

	result := make(map[stock.Key]*amenity.Amenity, len(sel))
	for kind, ids := range byKind {
		found, err := tx.Amenities().GetByIDs(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			a, ok := found[id]
			if !ok {
				return nil, fmt.Errorf("%s amenity %s: %w", kind, id, amenity.ErrNotFound)
			}
			result[stock.Key{Kind: kind, ID: id}] = a
		}
	}
	return result, nil
}

// expireInTx cancels a lapsed hold and hands its amenity stock back.
func (s *service) expireInTx(ctx context.Context, tx Tx, b *Booking, now time.Time, e *effects) error {
	if _, err := stock.NewLedger(tx.Stock()).Release(ctx, b.Lines.StockSelection()); err != nil {
		return err
	}
	Expire(b, now)
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return err
	}

	e.touch(b.Lines)
	e.audit(audit.Entry{Actor: audit.SystemActor, Action: "booking.expire", Entity: "booking", EntityID: b.ID})
	e.notify(notify.Message{
		Role:      notify.RoleGuest,
		Event:     "booking.expired",
		BookingID: b.ID,
		GuestID:   guestOf(b),
		Text:      "Your booking hold expired before payment and has been released.",
	})
	return nil
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error) {
	now := s.now()

	switch req.Mode {
	case ModeStandard:
	case ModeHold, ModeWalkIn:
		if !actor.Staff {
			return nil, ErrStaffOnly
		}
	default:
		return nil, ErrInvalidMode
	}
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, ErrInvalidDateRange
	}
	if Nights(req.CheckIn, req.CheckOut) > s.maxStayNights {
		return nil, ErrStayTooLong
	}
	if req.Mode == ModeWalkIn {
		if !req.CheckOut.After(now) {
			return nil, ErrCheckInPast
		}
	} else if req.CheckIn.Before(now) {
		return nil, ErrCheckInPast
	}
	sel, err := normalize(req.Selection)
	if err != nil {
		return nil, err
	}

	guestID := req.GuestID
	if !actor.Staff {
		id := actor.ID
		guestID = &id
	}

	if req.IdempotencyKey != "" && s.idem != nil {
		key := "booking:" + actor.ID + ":" + req.IdempotencyKey
		reserved, existing, err := s.idem.Reserve(ctx, key)
		if err != nil {
			s.log.WithError(err).Warn("idempotency store unavailable, continuing without it")
		} else if !reserved {
			if existing == "" {
				return nil, ErrRequestInProgress
			}
			return s.bookings.GetByID(ctx, existing)
		} else {
			b, err := s.create(ctx, actor, guestID, req, sel, now)
			if err != nil {
				if rerr := s.idem.Release(ctx, key); rerr != nil {
					s.log.WithError(rerr).Warn("idempotency key release failed")
				}
				return nil, err
			}
			if cerr := s.idem.Complete(ctx, key, b.ID); cerr != nil {
				s.log.WithError(cerr).Warn("idempotency key completion failed")
			}
			return b, nil
		}
	}

	return s.create(ctx, actor, guestID, req, sel, now)
}

func (s *service) create(ctx context.Context, actor Actor, guestID *string, req CreateRequest, sel Selection, now time.Time) (*Booking, error) {
	var created *Booking
	var e *effects

	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e = &effects{}
		b := &Booking{
			GuestID:       guestID,
			CheckIn:       req.CheckIn.UTC(),
			CheckOut:      req.CheckOut.UTC(),
			Status:        StatusPending,
			PaymentStatus: PaymentPending,
			CreatedBy:     actorName(actor),
		}
		switch req.Mode {
		case ModeHold:
			b.Status = StatusHeld
		case ModeWalkIn:
			b.Status = StatusConfirmed
		}
		if b.Status == StatusPending || b.Status == StatusHeld {
			heldUntil := now.Add(s.holdTTL)
			b.HeldUntil = &heldUntil
		}

		if err := s.reserve(ctx, tx, b, Lines{}, sel, now); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := tx.Bookings().ReplaceLines(ctx, b.ID, b.Lines); err != nil {
			return err
		}

		e.touch(b.Lines)
		e.audit(audit.Entry{
			Actor:    actorName(actor),
			Action:   "booking.create",
			Entity:   "booking",
			EntityID: b.ID,
			Details:  map[string]any{"status": b.Status, "total_price": b.TotalPrice, "mode": string(req.Mode)},
		})
		e.notify(notify.Message{
			Role:      notify.RoleAdmin,
			Event:     "booking.created",
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("New %s booking for %s to %s, total %d.", b.Status, b.CheckIn.Format(time.DateOnly), b.CheckOut.Format(time.DateOnly), b.TotalPrice),
		})
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	s.log.WithFields(logrus.Fields{"booking_id": created.ID, "status": created.Status}).Info("booking created")
	return created, nil
}

func (s *service) GetByID(ctx context.Context, actor Actor, id string) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor Actor, filter Filter) ([]*Booking, int, error) {
	if !actor.Staff {
		filter.GuestID = actor.ID
	}
	return s.bookings.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Booking, error) {
	now := s.now()

	var updated *Booking
	var expired bool
	var e *effects

	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e, expired, updated = &effects{}, false, nil

		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.IsDeleted {
			return ErrNotFound
		}
		if err := s.authorize(actor, b); err != nil {
			return err
		}
		if IsExpired(b, now) {
			expired = true
			return s.expireInTx(ctx, tx, b, now, e)
		}
		if b.Status == StatusCancelled {
			return ErrBookingClosed
		}
		if !b.CheckIn.After(now) {
			return ErrAlreadyCheckedIn
		}

		checkIn, checkOut := b.CheckIn, b.CheckOut
		if req.CheckIn != nil {
			checkIn = req.CheckIn.UTC()
		}
		if req.CheckOut != nil {
			checkOut = req.CheckOut.UTC()
		}
		if !checkIn.Before(checkOut) {
			return ErrInvalidDateRange
		}
		if Nights(checkIn, checkOut) > s.maxStayNights {
			return ErrStayTooLong
		}
		if !checkIn.Equal(b.CheckIn) && checkIn.Before(now) {
			return ErrCheckInPast
		}

		raw := selectionOf(b.Lines)
		if req.Selection != nil {
			raw = *req.Selection
		}
		sel, err := normalize(raw)
		if err != nil {
			return err
		}

		previous := b.Lines
		b.CheckIn, b.CheckOut = checkIn, checkOut
		if err := s.reserve(ctx, tx, b, previous, sel, now); err != nil {
			return err
		}

		payments, err := tx.Payments().ListByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		Reevaluate(b, payment.PaidTotal(payments), s.feePerRoom)

		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}
		if err := tx.Bookings().ReplaceLines(ctx, b.ID, b.Lines); err != nil {
			return err
		}

		e.touch(previous)
		e.touch(b.Lines)
		e.audit(audit.Entry{
			Actor:    actorName(actor),
			Action:   "booking.update",
			Entity:   "booking",
			EntityID: b.ID,
			Details:  map[string]any{"total_price": b.TotalPrice, "payment_status": b.PaymentStatus},
		})
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	if expired {
		return nil, ErrHoldExpired
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, id string, reason string) (*Booking, error) {
	now := s.now()

	var cancelled *Booking
	var e *effects

	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e, cancelled = &effects{}, nil

		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.IsDeleted {
			return ErrNotFound
		}
		if err := s.authorize(actor, b); err != nil {
			return err
		}
		if IsExpired(b, now) {
			cancelled = b
			return s.expireInTx(ctx, tx, b, now, e)
		}
		if err := CheckCancel(b, reason, now); err != nil {
			return err
		}

		if _, err := stock.NewLedger(tx.Stock()).Release(ctx, b.Lines.StockSelection()); err != nil {
			return err
		}

		payments, err := tx.Payments().ListByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		var refunds int
		var refundTotal int64
		for _, p := range payments {
			if p.Status != payment.StatusPaid {
				continue
			}
			if err := tx.Payments().UpdateStatus(ctx, p.ID, payment.StatusRefunded); err != nil {
				return err
			}
			refunds++
			refundTotal += p.Amount
		}

		Cancel(b, reason, now)
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}

		e.touch(b.Lines)
		e.audit(audit.Entry{
			Actor:    actorName(actor),
			Action:   "booking.cancel",
			Entity:   "booking",
			EntityID: b.ID,
			Details:  map[string]any{"reason": *b.CancellationReason, "refunds": refunds, "refund_total": refundTotal},
		})
		e.notify(notify.Message{
			Role:      notify.RoleAdmin,
			Event:     "booking.cancelled",
			BookingID: b.ID,
			GuestID:   guestOf(b),
			Text:      fmt.Sprintf("Booking cancelled: %s", *b.CancellationReason),
		})
		if refunds > 0 {
			e.notify(notify.Message{
				Role:      notify.RoleAdmin,
				Event:     "payment.refund_required",
				BookingID: b.ID,
				GuestID:   guestOf(b),
				Text:      fmt.Sprintf("Refund %d across %d payment(s).", refundTotal, refunds),
			})
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, e)
	return cancelled, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Staff {
		return ErrPermissionDenied
	}

	var e *effects
	err := s.run(ctx, func(ctx context.Context, tx Tx) error {
		e = &effects{}
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.IsDeleted {
			return ErrNotFound
		}
		if b.Status != StatusCancelled {
			return ErrNotCancelled
		}
		b.IsDeleted = true
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}
		e.audit(audit.Entry{Actor: actorName(actor), Action: "booking.delete", Entity: "booking", EntityID: b.ID})
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(ctx, e)
	return nil
}
