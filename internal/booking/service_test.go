package booking_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/logging"
	"github.com/nekogravitycat/resort-booking-backend/internal/memstore"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

const feePerRoom = 1000

var (
	guest      = booking.Actor{ID: "guest-1"}
	otherGuest = booking.Actor{ID: "guest-2"}
	staff      = booking.Actor{ID: "staff-1", Staff: true}
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.msgs {
		out = append(out, m.Event)
	}
	return out
}

type memIdempotency struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memIdempotency) Reserve(_ context.Context, key string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return false, v, nil
	}
	s.m[key] = ""
	return true, "", nil
}

func (s *memIdempotency) Complete(_ context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = id
	return nil
}

func (s *memIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

type fixture struct {
	store    *memstore.Store
	svc      booking.Service
	gateway  *payment.SandboxGateway
	notifier *recordingNotifier
	now      time.Time

	deluxe *room.Room
	cabana *room.Cottage
	towels *amenity.Amenity
	kayak  *amenity.Amenity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:    memstore.New(),
		gateway:  payment.NewSandboxGateway(false),
		notifier: &recordingNotifier{},
		now:      time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	f.deluxe = &room.Room{Name: "Deluxe", Capacity: 2, TotalQuantity: 3, NightlyPrice: 5000, ExtraPaxRate: 500}
	require.NoError(t, f.store.Rooms().Create(ctx, f.deluxe))
	f.cabana = &room.Cottage{Name: "Cabana", TotalQuantity: 2, Price: 800}
	require.NoError(t, f.store.Rooms().CreateCottage(ctx, f.cabana))

	maxTowels := 2
	f.towels = &amenity.Amenity{Kind: stock.KindOptional, Name: "Towel set", Quantity: 10, MaxQuantity: &maxTowels, Price: 100}
	require.NoError(t, f.store.Amenities().Create(ctx, f.towels))
	f.kayak = &amenity.Amenity{Kind: stock.KindRental, Name: "Kayak", Quantity: 2, Price: 200, PricePerHour: 100}
	require.NoError(t, f.store.Amenities().Create(ctx, f.kayak))

	f.svc = f.service(f.store)
	return f
}

func (f *fixture) service(tx booking.TxRunner) booking.Service {
	return booking.NewService(f.deps(tx))
}

func (f *fixture) deps(tx booking.TxRunner) booking.Deps {
	return booking.Deps{
		Tx:         tx,
		Bookings:   f.store.Bookings(),
		Payments:   f.store.Payments(),
		Gateway:    f.gateway,
		Notifier:   f.notifier,
		Idem:       &memIdempotency{m: make(map[string]string)},
		Retry:      db.RetryPolicy{MaxAttempts: 3},
		Log:        logging.Discard(),
		Now:        func() time.Time { return f.now },
		HoldTTL:    15 * time.Minute,
		FeePerRoom: feePerRoom,
	}
}

func (f *fixture) stay() (time.Time, time.Time) {
	in := f.now.Add(48 * time.Hour)
	return in, in.Add(48 * time.Hour)
}

func (f *fixture) request(rooms int, extra ...booking.AmenitySelection) booking.CreateRequest {
	in, out := f.stay()
	return booking.CreateRequest{
		CheckIn:  in,
		CheckOut: out,
		Selection: booking.Selection{
			Rooms:     []booking.RoomSelection{{RoomID: f.deluxe.ID, Quantity: rooms, Adults: 2}},
			Amenities: extra,
		},
	}
}

func (f *fixture) stockOf(t *testing.T, a *amenity.Amenity) int {
	t.Helper()
	got, err := f.store.Amenities().GetByID(context.Background(), a.Kind, a.ID)
	require.NoError(t, err)
	return got.Quantity
}

func errCode(err error) int {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

func TestCreate_PendingWithHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.PaymentPending, b.PaymentStatus)
	require.NotNil(t, b.HeldUntil)
	assert.Equal(t, f.now.Add(15*time.Minute), *b.HeldUntil)
	require.NotNil(t, b.GuestID)
	assert.Equal(t, guest.ID, *b.GuestID)
	// 5000 x 1 room x 2 nights + 2 towels x 100
	assert.Equal(t, int64(10200), b.TotalPrice)
	assert.True(t, booking.VerifyTotal(b))
	assert.Equal(t, 8, f.stockOf(t, f.towels))

	stored, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Rooms, 1)
	assert.Len(t, stored.Amenities, 1)
	assert.Contains(t, f.notifier.events(), "booking.created")
}

func TestCreate_RoomUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, guest, f.request(2))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, otherGuest, f.request(2))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, errCode(err))

	detail, ok := availability.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, f.deluxe.ID, detail.ResourceID)
	assert.Equal(t, 1, detail.Available)
	assert.Equal(t, 2, detail.Requested)
}

func TestCreate_AdjacentStaysDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.request(3)
	_, err := f.svc.Create(ctx, guest, first)
	require.NoError(t, err)

	next := f.request(3)
	next.CheckIn = first.CheckOut
	next.CheckOut = first.CheckOut.Add(24 * time.Hour)
	_, err = f.svc.Create(ctx, otherGuest, next)
	assert.NoError(t, err)
}

func TestCreate_MaxQuantityRejectedBeforeStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), guest, f.request(1, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 3}))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, errCode(err))

	var detail *booking.MaxQuantityError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, 2, detail.MaxQuantity)
	assert.Equal(t, 3, detail.Requested)
	assert.Equal(t, 10, f.stockOf(t, f.towels))
}

func TestCreate_InsufficientStockLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, guest, f.request(1,
		booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 1},
		booking.AmenitySelection{Kind: stock.KindRental, AmenityID: f.kayak.ID, Quantity: 3, HoursUsed: 2},
	))
	require.Error(t, err)

	detail, ok := stock.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, 2, detail.Available)
	assert.Equal(t, 3, detail.Requested)
	assert.Equal(t, 1, detail.Shortfall)

	assert.Equal(t, 10, f.stockOf(t, f.towels))
	assert.Equal(t, 2, f.stockOf(t, f.kayak))
	_, total, err := f.svc.List(ctx, staff, booking.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.request(1)
	past.CheckIn = f.now.Add(-time.Hour)
	_, err := f.svc.Create(ctx, guest, past)
	assert.ErrorIs(t, err, booking.ErrCheckInPast)

	reversed := f.request(1)
	reversed.CheckIn, reversed.CheckOut = reversed.CheckOut, reversed.CheckIn
	_, err = f.svc.Create(ctx, guest, reversed)
	assert.ErrorIs(t, err, booking.ErrInvalidDateRange)

	hold := f.request(1)
	hold.Mode = booking.ModeHold
	_, err = f.svc.Create(ctx, guest, hold)
	assert.ErrorIs(t, err, booking.ErrStaffOnly)

	unknown := f.request(1)
	unknown.Selection.Rooms[0].RoomID = "00000000-0000-0000-0000-000000000000"
	_, err = f.svc.Create(ctx, guest, unknown)
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestCreate_StayTooLong(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	longest := f.request(1)
	longest.CheckOut = longest.CheckIn.AddDate(0, 0, 30)
	b, err := f.svc.Create(ctx, guest, longest)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), b.TotalPrice)

	centuries := f.request(1)
	centuries.CheckIn = time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC)
	centuries.CheckOut = time.Date(2430, 1, 3, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.Create(ctx, guest, centuries)
	assert.ErrorIs(t, err, booking.ErrStayTooLong)
	assert.Equal(t, http.StatusBadRequest, errCode(err))

	out := b.CheckOut.AddDate(0, 0, 1)
	_, err = f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{CheckOut: &out})
	assert.ErrorIs(t, err, booking.ErrStayTooLong)

	got, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, booking.Nights(got.CheckIn, got.CheckOut))
	assert.Equal(t, int64(150000), got.TotalPrice)
}

func TestCreate_StaffModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold := f.request(1)
	hold.Mode = booking.ModeHold
	held, err := f.svc.Create(ctx, staff, hold)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusHeld, held.Status)
	assert.NotNil(t, held.HeldUntil)
	assert.Nil(t, held.GuestID)

	walkIn := f.request(1)
	walkIn.Mode = booking.ModeWalkIn
	walkIn.CheckIn = f.now.Add(-time.Hour)
	walkIn.CheckOut = f.now.Add(23 * time.Hour)
	confirmed, err := f.svc.Create(ctx, staff, walkIn)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.HeldUntil)
}

func TestCreate_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(1)
	req.IdempotencyKey = "abc"

	first, err := f.svc.Create(ctx, guest, req)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, guest, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, total, err := f.svc.List(ctx, staff, booking.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreate_ConcurrentAttemptsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 10
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, guest, f.request(1))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if _, ok := availability.AsUnavailable(err); ok {
				unavailable++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, f.deluxe.TotalQuantity, successes)
	assert.Equal(t, attempts-f.deluxe.TotalQuantity, unavailable)
}

type contendedRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *contendedRunner) InTx(context.Context, func(context.Context, booking.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
}

func TestCreate_ContentionBecomesTemporarilyUnavailable(t *testing.T) {
	f := newFixture(t)
	runner := &contendedRunner{}
	svc := f.service(runner)

	_, err := svc.Create(context.Background(), guest, f.request(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrTemporarilyUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, errCode(err))
	assert.Equal(t, 3, runner.calls)
	_, unavailable := availability.AsUnavailable(err)
	assert.False(t, unavailable)
}

func TestExpiredHoldIsExcludedFromCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, err := f.svc.Create(ctx, guest, f.request(3, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 2}))
	require.NoError(t, err)

	f.now = f.now.Add(16 * time.Minute)

	_, err = f.svc.Create(ctx, otherGuest, f.request(3))
	require.NoError(t, err)

	// The stale hold only gives its stock back once a writer sees it.
	assert.Equal(t, 8, f.stockOf(t, f.towels))
	_, err = f.svc.Update(ctx, guest, stale.ID, booking.UpdateRequest{})
	assert.ErrorIs(t, err, booking.ErrHoldExpired)
	assert.Equal(t, 10, f.stockOf(t, f.towels))

	expired, err := f.svc.GetByID(ctx, guest, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, expired.Status)
	assert.Nil(t, expired.HeldUntil)
}

func TestUpdate_ReconcilesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 2}))
	require.NoError(t, err)
	require.Equal(t, 8, f.stockOf(t, f.towels))

	sel := booking.Selection{
		Rooms: []booking.RoomSelection{{RoomID: f.deluxe.ID, Quantity: 1, Adults: 2}},
		Amenities: []booking.AmenitySelection{
			{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 1},
			{Kind: stock.KindRental, AmenityID: f.kayak.ID, Quantity: 1, HoursUsed: 3},
		},
	}
	updated, err := f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{Selection: &sel})
	require.NoError(t, err)
	assert.Equal(t, 9, f.stockOf(t, f.towels))
	assert.Equal(t, 1, f.stockOf(t, f.kayak))
	// 10000 rooms + 100 towel + 1 x (200 + 3 x 100) kayak
	assert.Equal(t, int64(10600), updated.TotalPrice)

	// Reapplying the same selection moves nothing.
	_, err = f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{Selection: &sel})
	require.NoError(t, err)
	assert.Equal(t, 9, f.stockOf(t, f.towels))
	assert.Equal(t, 1, f.stockOf(t, f.kayak))
}

func TestUpdate_DoesNotCompeteWithItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(3))
	require.NoError(t, err)

	out := b.CheckOut.Add(24 * time.Hour)
	updated, err := f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{CheckOut: &out})
	require.NoError(t, err)
	assert.Equal(t, 3, booking.Nights(updated.CheckIn, updated.CheckOut))
	assert.Equal(t, int64(45000), updated.TotalPrice)
}

func TestUpdate_FailureKeepsPreviousState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 2}))
	require.NoError(t, err)

	sel := booking.Selection{
		Rooms: []booking.RoomSelection{{RoomID: f.deluxe.ID, Quantity: 1}},
		Amenities: []booking.AmenitySelection{
			{Kind: stock.KindRental, AmenityID: f.kayak.ID, Quantity: 5, HoursUsed: 1},
		},
	}
	_, err = f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{Selection: &sel})
	require.Error(t, err)

	assert.Equal(t, 8, f.stockOf(t, f.towels))
	assert.Equal(t, 2, f.stockOf(t, f.kayak))
	stored, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.TotalPrice, stored.TotalPrice)
	require.Len(t, stored.Amenities, 1)
	assert.Equal(t, f.towels.ID, stored.Amenities[0].AmenityID)
}

func TestUpdate_RejectedAfterCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: b.TotalPrice})
	require.NoError(t, err)

	f.now = b.CheckIn.Add(time.Hour)
	_, err = f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{})
	assert.ErrorIs(t, err, booking.ErrAlreadyCheckedIn)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, otherGuest, b.ID)
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)
	_, err = f.svc.Cancel(ctx, otherGuest, b.ID, "not mine")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)
	_, err = f.svc.RecordManualPayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: 100})
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	items, total, err := f.svc.List(ctx, otherGuest, booking.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, err = f.svc.GetByID(ctx, staff, b.ID)
	assert.NoError(t, err)
}

func TestManualPayments_AdvanceStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)
	require.Equal(t, int64(10000), b.TotalPrice)

	steps := []struct {
		amount      int64
		wantStatus  booking.Status
		wantPayment booking.PaymentStatus
	}{
		{feePerRoom, booking.StatusPending, booking.PaymentReservation},
		{4000, booking.StatusConfirmed, booking.PaymentPartial},
		{5000, booking.StatusConfirmed, booking.PaymentPaid},
	}
	for _, step := range steps {
		p, err := f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: step.amount})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPaid, p.Status)
		assert.Equal(t, payment.ProviderManual, p.Provider)

		got, err := f.svc.GetByID(ctx, guest, b.ID)
		require.NoError(t, err)
		assert.Equal(t, step.wantStatus, got.Status)
		assert.Equal(t, step.wantPayment, got.PaymentStatus)
		assert.Nil(t, got.HeldUntil)
	}

	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 1})
	assert.ErrorIs(t, err, booking.ErrAlreadyPaid)
}

func TestUpdate_RaisedTotalReopensBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: b.TotalPrice})
	require.NoError(t, err)

	sel := booking.Selection{Rooms: []booking.RoomSelection{{RoomID: f.deluxe.ID, Quantity: 3, Adults: 6}}}
	updated, err := f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{Selection: &sel})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), updated.TotalPrice)
	assert.Equal(t, booking.StatusConfirmed, updated.Status)
	assert.Equal(t, booking.PaymentReservation, updated.PaymentStatus)

	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 20001})
	assert.ErrorIs(t, err, booking.ErrAmountExceedsBalance)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 20000})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
}

func TestManualPayment_AmountChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)

	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 0})
	assert.ErrorIs(t, err, booking.ErrInvalidAmount)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: b.TotalPrice + 1})
	assert.ErrorIs(t, err, booking.ErrAmountExceedsBalance)
}

func TestGatewayPayment_SyncAndWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)

	p, err := f.svc.CreatePayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: 5000, Method: "gcash"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)
	require.NotNil(t, p.Reference)
	require.NotNil(t, p.CheckoutURL)

	synced, err := f.svc.SyncPayment(ctx, guest, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, synced.Status)

	f.gateway.Settle(*p.Reference, payment.SourcePaid)
	synced, err = f.svc.SyncPayment(ctx, guest, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, synced.Status)

	got, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.Equal(t, booking.PaymentPartial, got.PaymentStatus)

	rest, err := f.svc.CreatePayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: 5000})
	require.NoError(t, err)
	settled, err := f.svc.HandleWebhook(ctx, *rest.Reference, payment.SourcePaid)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, settled.Status)

	// Replayed webhooks are no-ops.
	_, err = f.svc.HandleWebhook(ctx, *rest.Reference, payment.SourceFailed)
	require.NoError(t, err)

	got, err = f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)

	payments, err := f.svc.ListPayments(ctx, guest, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, int64(10000), payment.PaidTotal(payments))
}

func TestGatewayPayment_UpstreamFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)

	f.gateway.FailWith(errors.New("connection reset"))
	_, err = f.svc.CreatePayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: 1000})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, errCode(err))

	payments, err := f.svc.ListPayments(ctx, guest, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusFailed, payments[0].Status)

	got, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
}

// racingGateway runs before ahead of the first source it creates and reports
// every source with status when set.
type racingGateway struct {
	*payment.SandboxGateway
	before func()
	status payment.SourceStatus
}

func (g *racingGateway) CreateSource(ctx context.Context, req payment.SourceRequest) (*payment.Source, error) {
	if g.before != nil {
		g.before()
		g.before = nil
	}
	src, err := g.SandboxGateway.CreateSource(ctx, req)
	if err == nil && g.status != "" {
		src.Status = g.status
	}
	return src, err
}

func TestGatewayPayment_BalanceRecheckedAfterProviderCall(t *testing.T) {
	tests := []struct {
		name       string
		source     payment.SourceStatus
		paidFirst  int64
		amount     int64
		wantErr    error
		wantStatus payment.Status
	}{
		{"settled meanwhile", "", 10000, 5000, booking.ErrAlreadyPaid, payment.StatusCancelled},
		{"paid source over balance", payment.SourcePaid, 9500, 1000, booking.ErrAmountExceedsBalance, payment.StatusRefunded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			b, err := f.svc.Create(ctx, guest, f.request(1))
			require.NoError(t, err)

			gw := &racingGateway{SandboxGateway: payment.NewSandboxGateway(false), status: tt.source}
			gw.before = func() {
				_, err := f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: tt.paidFirst})
				require.NoError(t, err)
			}
			d := f.deps(f.store)
			d.Gateway = gw
			svc := booking.NewService(d)

			_, err = svc.CreatePayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: tt.amount})
			assert.ErrorIs(t, err, tt.wantErr)

			payments, err := f.svc.ListPayments(ctx, guest, b.ID)
			require.NoError(t, err)
			require.Len(t, payments, 2)
			assert.Equal(t, tt.paidFirst, payment.PaidTotal(payments))
			var statuses []payment.Status
			for _, p := range payments {
				statuses = append(statuses, p.Status)
			}
			assert.Contains(t, statuses, tt.wantStatus)

			if tt.wantStatus == payment.StatusRefunded {
				assert.Contains(t, f.notifier.events(), "payment.refund_required")
			}
		})
	}
}

func TestWebhookAfterExpiryRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1, booking.AmenitySelection{Kind: stock.KindRental, AmenityID: f.kayak.ID, Quantity: 1, HoursUsed: 1}))
	require.NoError(t, err)
	p, err := f.svc.CreatePayment(ctx, guest, b.ID, booking.PaymentRequest{Amount: 1000})
	require.NoError(t, err)
	require.Equal(t, 1, f.stockOf(t, f.kayak))

	f.now = f.now.Add(20 * time.Minute)
	settled, err := f.svc.HandleWebhook(ctx, *p.Reference, payment.SourcePaid)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, settled.Status)

	got, err := f.svc.GetByID(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
	assert.Equal(t, 2, f.stockOf(t, f.kayak))
	assert.Contains(t, f.notifier.events(), "payment.refund_required")
}

func TestCancel_ReleasesAndRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(2, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 12000})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, guest, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrReasonRequired)

	cancelled, err := f.svc.Cancel(ctx, guest, b.ID, "family emergency")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, booking.PaymentPartial, cancelled.PaymentStatus)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "family emergency", *cancelled.CancellationReason)
	assert.Equal(t, 10, f.stockOf(t, f.towels))

	payments, err := f.svc.ListPayments(ctx, guest, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusRefunded, payments[0].Status)
	assert.Contains(t, f.notifier.events(), "payment.refund_required")

	// Capacity is free again.
	_, err = f.svc.Create(ctx, otherGuest, f.request(3))
	assert.NoError(t, err)

	_, err = f.svc.Cancel(ctx, guest, b.ID, "again")
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	_, err = f.svc.Update(ctx, guest, b.ID, booking.UpdateRequest{})
	assert.ErrorIs(t, err, booking.ErrBookingClosed)
	_, err = f.svc.RecordManualPayment(ctx, staff, b.ID, booking.PaymentRequest{Amount: 100})
	assert.ErrorIs(t, err, booking.ErrBookingClosed)
}

func TestCancel_AfterCheckInRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	walkIn := f.request(1)
	walkIn.Mode = booking.ModeWalkIn
	walkIn.CheckIn = f.now.Add(-time.Hour)
	walkIn.CheckOut = f.now.Add(23 * time.Hour)
	b, err := f.svc.Create(ctx, staff, walkIn)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, staff, b.ID, "changed mind")
	assert.ErrorIs(t, err, booking.ErrAlreadyCheckedIn)
	assert.Equal(t, http.StatusConflict, errCode(err))
}

func TestDelete_OnlyCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, guest, b.ID), booking.ErrPermissionDenied)
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, b.ID), booking.ErrNotCancelled)

	_, err = f.svc.Cancel(ctx, guest, b.ID, "no longer needed")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, staff, b.ID))

	_, err = f.svc.GetByID(ctx, staff, b.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, b.ID), booking.ErrNotFound)
}

func TestReleaseExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Create(ctx, guest, f.request(1, booking.AmenitySelection{Kind: stock.KindOptional, AmenityID: f.towels.ID, Quantity: 1}))
		require.NoError(t, err)
	}
	secured, err := f.svc.Create(ctx, guest, f.request(1))
	require.NoError(t, err)
	_, err = f.svc.RecordManualPayment(ctx, staff, secured.ID, booking.PaymentRequest{Amount: feePerRoom})
	require.NoError(t, err)
	require.Equal(t, 8, f.stockOf(t, f.towels))

	released, err := f.svc.ReleaseExpired(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, released)

	f.now = f.now.Add(time.Hour)
	released, err = f.svc.ReleaseExpired(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.Equal(t, 10, f.stockOf(t, f.towels))

	got, err := f.svc.GetByID(ctx, guest, secured.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, booking.PaymentReservation, got.PaymentStatus)
}
