package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	// GetByIDs returns the rooms found; missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id string) error

	CreateCottage(ctx context.Context, c *Cottage) error
	GetCottageByID(ctx context.Context, id string) (*Cottage, error)
	GetCottagesByIDs(ctx context.Context, ids []string) (map[string]*Cottage, error)
	ListCottages(ctx context.Context, filter Filter) ([]*Cottage, int, error)
	UpdateCottage(ctx context.Context, c *Cottage) error
}

var roomColumns = []string{
	"id", "name", "type", "description", "capacity", "total_quantity",
	"nightly_price", "extra_pax_rate", "created_at", "updated_at",
}

var cottageColumns = []string{
	"id", "name", "description", "total_quantity", "price", "created_at", "updated_at",
}

type pgxRepository struct {
	q db.DBTX
}

func NewPgxRepository(q db.DBTX) Repository {
	return &pgxRepository{q: q}
}

func scanRoom(row pgx.Row, extra ...any) (*Room, error) {
	var r Room
	dest := []any{
		&r.ID, &r.Name, &r.Type, &r.Description, &r.Capacity, &r.TotalQuantity,
		&r.NightlyPrice, &r.ExtraPaxRate, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanCottage(row pgx.Row, extra ...any) (*Cottage, error) {
	var c Cottage
	dest := []any{&c.ID, &c.Name, &c.Description, &c.TotalQuantity, &c.Price, &c.CreatedAt, &c.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgxRepository) Create(ctx context.Context, room *Room) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.rooms").
		Columns("name", "type", "description", "capacity", "total_quantity", "nightly_price", "extra_pax_rate").
		Values(room.Name, room.Type, room.Description, room.Capacity, room.TotalQuantity, room.NightlyPrice, room.ExtraPaxRate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create room query failed: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return fmt.Errorf("create room failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(roomColumns...).From("public.rooms").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get room query failed: %w", err)
	}

	room, err := scanRoom(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room failed: %w", err)
	}
	return room, nil
}

func (r *pgxRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*Room, error) {
	result := make(map[string]*Room, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(roomColumns...).From("public.rooms").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get rooms query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get rooms failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room failed: %w", err)
		}
		result[room.ID] = room
	}
	return result, rows.Err()
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(roomColumns, "count(*) OVER() AS total_count")...).From("public.rooms")

	if filter.Type != "" {
		query = query.Where(squirrel.Eq{"type": filter.Type})
	}
	query = paginate(query, filter, "name")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list rooms query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rooms failed: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	var total int
	for rows.Next() {
		room, err := scanRoom(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan room failed: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, room *Room) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.rooms").
		Set("name", room.Name).
		Set("type", room.Type).
		Set("description", room.Description).
		Set("capacity", room.Capacity).
		Set("total_quantity", room.TotalQuantity).
		Set("nightly_price", room.NightlyPrice).
		Set("extra_pax_rate", room.ExtraPaxRate).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": room.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update room query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&room.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update room failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.rooms").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete room query failed: %w", err)
	}

	ct, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete room failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) CreateCottage(ctx context.Context, c *Cottage) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.cottages").
		Columns("name", "description", "total_quantity", "price").
		Values(c.Name, c.Description, c.TotalQuantity, c.Price).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create cottage query failed: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("create cottage failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetCottageByID(ctx context.Context, id string) (*Cottage, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(cottageColumns...).From("public.cottages").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get cottage query failed: %w", err)
	}

	c, err := scanCottage(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCottageNotFound
		}
		return nil, fmt.Errorf("get cottage failed: %w", err)
	}
	return c, nil
}

func (r *pgxRepository) GetCottagesByIDs(ctx context.Context, ids []string) (map[string]*Cottage, error) {
	result := make(map[string]*Cottage, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(cottageColumns...).From("public.cottages").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get cottages query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get cottages failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCottage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cottage failed: %w", err)
		}
		result[c.ID] = c
	}
	return result, rows.Err()
}

func (r *pgxRepository) ListCottages(ctx context.Context, filter Filter) ([]*Cottage, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := paginate(psql.Select(append(cottageColumns, "count(*) OVER() AS total_count")...).From("public.cottages"), filter, "name")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list cottages query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cottages failed: %w", err)
	}
	defer rows.Close()

	var cottages []*Cottage
	var total int
	for rows.Next() {
		c, err := scanCottage(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cottage failed: %w", err)
		}
		cottages = append(cottages, c)
	}
	return cottages, total, rows.Err()
}

func (r *pgxRepository) UpdateCottage(ctx context.Context, c *Cottage) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.cottages").
		Set("name", c.Name).
		Set("description", c.Description).
		Set("total_quantity", c.TotalQuantity).
		Set("price", c.Price).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update cottage query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCottageNotFound
		}
		return fmt.Errorf("update cottage failed: %w", err)
	}
	return nil
}

func paginate(query squirrel.SelectBuilder, filter Filter, defaultSort string) squirrel.SelectBuilder {
	orderBy := defaultSort
	switch filter.SortBy {
	case "name", "created_at", "nightly_price", "price":
		orderBy = filter.SortBy
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" || filter.SortOrder == "desc" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	return query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))
}
