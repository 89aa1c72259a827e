package amenity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// Repository manages amenity catalog rows. It never writes quantity after
// creation; stock movements belong to the ledger.
type Repository interface {
	Create(ctx context.Context, a *Amenity) error
	GetByID(ctx context.Context, kind stock.Kind, id string) (*Amenity, error)
	GetByIDs(ctx context.Context, kind stock.Kind, ids []string) (map[string]*Amenity, error)
	List(ctx context.Context, filter Filter) ([]*Amenity, int, error)
	Update(ctx context.Context, a *Amenity) error
}

type pgxRepository struct {
	q db.DBTX
}

func NewPgxRepository(q db.DBTX) Repository {
	return &pgxRepository{q: q}
}

func columnsFor(kind stock.Kind) []string {
	if kind == stock.KindRental {
		return []string{"id", "name", "description", "quantity", "NULL::int", "price", "price_per_hour", "created_at", "updated_at"}
	}
	return []string{"id", "name", "description", "quantity", "max_quantity", "price", "0::bigint", "created_at", "updated_at"}
}

func scanAmenity(row pgx.Row, kind stock.Kind, extra ...any) (*Amenity, error) {
	a := Amenity{Kind: kind}
	dest := []any{&a.ID, &a.Name, &a.Description, &a.Quantity, &a.MaxQuantity, &a.Price, &a.PricePerHour, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *pgxRepository) Create(ctx context.Context, a *Amenity) error {
	table, err := stock.TableFor(a.Kind)
	if err != nil {
		return err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	insert := psql.Insert(table)
	if a.Kind == stock.KindRental {
		insert = insert.Columns("name", "description", "quantity", "price", "price_per_hour").
			Values(a.Name, a.Description, a.Quantity, a.Price, a.PricePerHour)
	} else {
		insert = insert.Columns("name", "description", "quantity", "max_quantity", "price").
			Values(a.Name, a.Description, a.Quantity, a.MaxQuantity, a.Price)
	}

	query, args, err := insert.Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("build create amenity query failed: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create amenity failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, kind stock.Kind, id string) (*Amenity, error) {
	table, err := stock.TableFor(kind)
	if err != nil {
		return nil, err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(columnsFor(kind)...).From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get amenity query failed: %w", err)
	}

	a, err := scanAmenity(r.q.QueryRow(ctx, query, args...), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get amenity failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) GetByIDs(ctx context.Context, kind stock.Kind, ids []string) (map[string]*Amenity, error) {
	result := make(map[string]*Amenity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	table, err := stock.TableFor(kind)
	if err != nil {
		return nil, err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(columnsFor(kind)...).From(table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get amenities query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get amenities failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAmenity(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan amenity failed: %w", err)
		}
		result[a.ID] = a
	}
	return result, rows.Err()
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Amenity, int, error) {
	table, err := stock.TableFor(filter.Kind)
	if err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(append(columnsFor(filter.Kind), "count(*) OVER() AS total_count")...).
		From(table).
		OrderBy("name ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list amenities query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list amenities failed: %w", err)
	}
	defer rows.Close()

	var items []*Amenity
	var total int
	for rows.Next() {
		a, err := scanAmenity(rows, filter.Kind, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan amenity failed: %w", err)
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, a *Amenity) error {
	table, err := stock.TableFor(a.Kind)
	if err != nil {
		return err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	update := psql.Update(table).
		Set("name", a.Name).
		Set("description", a.Description).
		Set("price", a.Price).
		Set("updated_at", squirrel.Expr("now()"))
	if a.Kind == stock.KindRental {
		update = update.Set("price_per_hour", a.PricePerHour)
	} else {
		update = update.Set("max_quantity", a.MaxQuantity)
	}

	query, args, err := update.Where(squirrel.Eq{"id": a.ID}).Suffix("RETURNING updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("build update amenity query failed: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update amenity failed: %w", err)
	}
	return nil
}
