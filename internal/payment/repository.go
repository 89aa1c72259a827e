package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	// GetForUpdate locks the payment row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*Payment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

var paymentColumns = []string{
	"id", "booking_id", "amount", "status", "provider", "method", "reference", "checkout_url", "created_at", "updated_at",
}

type pgxRepository struct {
	q db.DBTX
}

func NewPgxRepository(q db.DBTX) Repository {
	return &pgxRepository{q: q}
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Status, &p.Provider, &p.Method,
		&p.Reference, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Payment) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payments").
		Columns("booking_id", "amount", "status", "provider", "method", "reference", "checkout_url").
		Values(p.BookingID, p.Amount, p.Status, p.Provider, p.Method, p.Reference, p.CheckoutURL).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create payment query failed: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create payment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) get(ctx context.Context, where squirrel.Sqlizer, lock bool) (*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(paymentColumns...).From("public.payments").Where(where)
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get payment query failed: %w", err)
	}

	p, err := scanPayment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Payment, error) {
	return r.get(ctx, squirrel.Eq{"id": id}, false)
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Payment, error) {
	return r.get(ctx, squirrel.Eq{"id": id}, true)
}

func (r *pgxRepository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	return r.get(ctx, squirrel.Eq{"reference": reference}, false)
}

func (r *pgxRepository) ListByBooking(ctx context.Context, bookingID string) ([]*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(paymentColumns...).
		From("public.payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list payments query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments failed: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment failed: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.payments").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update payment query failed: %w", err)
	}

	ct, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update payment failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
