// Package uow runs booking units of work as serializable postgres transactions.
package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Runner struct {
	pool Beginner
}

var _ booking.TxRunner = (*Runner)(nil)

func NewRunner(pool Beginner) *Runner {
	return &Runner{pool: pool}
}

// InTx commits when fn returns nil and rolls back otherwise. Serialization
// failures surface as *pgconn.PgError for the caller's retry policy.
//
// The snapshot is fixed by fn's first statement, before any FOR UPDATE lock is
// granted. A writer that queued behind a lock therefore reads capacity as of
// its own start; serializable conflict detection aborts it at the conflicting
// write and the retry re-reads fresh rows.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(ctx, newTx(tx))
	})
}

type pgxTx struct {
	q db.DBTX
}

func newTx(q db.DBTX) booking.Tx {
	return &pgxTx{q: q}
}

func (t *pgxTx) Bookings() booking.Repository  { return booking.NewPgxRepository(t.q) }
func (t *pgxTx) Payments() payment.Repository  { return payment.NewPgxRepository(t.q) }
func (t *pgxTx) Rooms() room.Repository        { return room.NewPgxRepository(t.q) }
func (t *pgxTx) Amenities() amenity.Repository { return amenity.NewPgxRepository(t.q) }
func (t *pgxTx) Stock() stock.Store            { return stock.NewPgxStore(t.q) }

// Availability locks each resource row it reads, so writers on the same room
// queue behind one another.
func (t *pgxTx) Availability() availability.Source { return availability.NewPgxSource(t.q, true) }
