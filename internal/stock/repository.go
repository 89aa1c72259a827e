package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
)

// TableFor maps a kind to its counter table.
func TableFor(kind Kind) (string, error) {
	switch kind {
	case KindOptional:
		return "public.optional_amenities", nil
	case KindRental:
		return "public.rental_amenities", nil
	}
	return "", ErrInvalidKind
}

type pgxStore struct {
	q db.DBTX
}

// NewPgxStore returns a Store backed by a conditional UPDATE, so a decrement
// either succeeds against the committed quantity or changes nothing.
func NewPgxStore(q db.DBTX) Store {
	return &pgxStore{q: q}
}

func (s *pgxStore) ApplyDelta(ctx context.Context, key Key, delta int) (int, error) {
	table, err := TableFor(key.Kind)
	if err != nil {
		return 0, err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update(table).
		Set("quantity", squirrel.Expr("quantity + ?", delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": key.ID}).
		Where(squirrel.Expr("quantity + ? >= 0", delta)).
		Suffix("RETURNING quantity").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build apply stock delta query failed: %w", err)
	}

	var quantity int
	err = s.q.QueryRow(ctx, query, args...).Scan(&quantity)
	if err == nil {
		return quantity, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply stock delta failed: %w", err)
	}

	// Nothing matched: either the row is missing or the guard rejected the decrement.
	var name string
	lookup, largs, err := psql.Select("name", "quantity").From(table).Where(squirrel.Eq{"id": key.ID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stock lookup query failed: %w", err)
	}
	if err := s.q.QueryRow(ctx, lookup, largs...).Scan(&name, &quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stock lookup failed: %w", err)
	}
	return 0, NewInsufficientStock(key, name, quantity, -delta)
}
