package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
)

// ActiveStatuses are the booking states that consume capacity.
var ActiveStatuses = []string{"pending", "confirmed", "held"}

type resourceTables struct {
	resource string
	lines    string
	fk       string
	total    string
}

func tablesFor(kind Kind) (resourceTables, error) {
	switch kind {
	case KindRoom:
		return resourceTables{"public.rooms", "public.booking_rooms", "room_id", "total_quantity"}, nil
	case KindCottage:
		return resourceTables{"public.cottages", "public.booking_cottages", "cottage_id", "total_quantity"}, nil
	}
	return resourceTables{}, ErrInvalidKind
}

type pgxSource struct {
	q    db.DBTX
	lock bool
}

// NewPgxSource reads availability from postgres. With lock set the resource row
// is taken FOR UPDATE, which is what the booking unit of work wants.
func NewPgxSource(q db.DBTX, lock bool) Source {
	return &pgxSource{q: q, lock: lock}
}

func (s *pgxSource) Resource(ctx context.Context, kind Kind, id string) (*Resource, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select("id", "name", t.total).From(t.resource).Where(squirrel.Eq{"id": id})
	if s.lock {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build resource query failed: %w", err)
	}

	res := Resource{Kind: kind}
	if err := s.q.QueryRow(ctx, query, args...).Scan(&res.ID, &res.Name, &res.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return &res, nil
}

func (s *pgxSource) Committed(ctx context.Context, q Query) (int, error) {
	t, err := tablesFor(q.Kind)
	if err != nil {
		return 0, err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select("COALESCE(SUM(l.quantity), 0)").
		From(t.lines + " l").
		Join("public.bookings b ON b.id = l.booking_id").
		Where(squirrel.Eq{"l." + t.fk: q.ResourceID}).
		Where(squirrel.Eq{"b.status": ActiveStatuses}).
		Where(squirrel.Eq{"b.is_deleted": false}).
		Where(squirrel.Lt{"b.check_in": q.CheckOut}).
		Where(squirrel.Gt{"b.check_out": q.CheckIn}).
		Where(squirrel.Or{
			squirrel.Eq{"b.held_until": nil},
			squirrel.Gt{"b.held_until": q.Now},
		})
	if q.ExcludeBookingID != "" {
		builder = builder.Where(squirrel.NotEq{"b.id": q.ExcludeBookingID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build committed query failed: %w", err)
	}

	var committed int
	if err := s.q.QueryRow(ctx, query, args...).Scan(&committed); err != nil {
		return 0, fmt.Errorf("sum committed quantity failed: %w", err)
	}
	return committed, nil
}
