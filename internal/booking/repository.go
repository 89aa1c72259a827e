package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	// GetByID loads a visible booking with its lines.
	GetByID(ctx context.Context, id string) (*Booking, error)
	// GetForUpdate locks the booking row and loads its lines, including soft-deleted rows.
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, b *Booking) error
	// ReplaceLines deletes every line item of the booking and inserts lines.
	ReplaceLines(ctx context.Context, bookingID string, lines Lines) error
	// ListExpiredHolds returns ids of bookings whose hold lapsed before now.
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

var bookingColumns = []string{
	"b.id", "b.guest_id", "b.check_in", "b.check_out", "b.status", "b.payment_status",
	"b.held_until", "b.total_price", "b.is_deleted", "b.cancellation_reason", "b.cancelled_at",
	"b.created_by", "b.created_at", "b.updated_at",
}

type pgxRepository struct {
	q db.DBTX
}

func NewPgxRepository(q db.DBTX) Repository {
	return &pgxRepository{q: q}
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.GuestID, &b.CheckIn, &b.CheckOut, &b.Status, &b.PaymentStatus,
		&b.HeldUntil, &b.TotalPrice, &b.IsDeleted, &b.CancellationReason, &b.CancelledAt,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("guest_id", "check_in", "check_out", "status", "payment_status", "held_until", "total_price", "created_by").
		Values(b.GuestID, b.CheckIn, b.CheckOut, b.Status, b.PaymentStatus, b.HeldUntil, b.TotalPrice, b.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) get(ctx context.Context, id string, forUpdate bool) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(bookingColumns...).From("public.bookings b").Where(squirrel.Eq{"b.id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	} else {
		builder = builder.Where(squirrel.Eq{"b.is_deleted": false})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}

	if b.Lines, err = r.lines(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	return r.get(ctx, id, false)
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return r.get(ctx, id, true)
}

func (r *pgxRepository) lines(ctx context.Context, bookingID string) (Lines, error) {
	var lines Lines
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select(
		"l.room_id", "r.name", "l.quantity", "l.adults", "l.children", "l.extra_pax",
		"l.unit_price", "l.extra_pax_rate", "l.extra_pax_fee", "l.total_price",
	).
		From("public.booking_rooms l").
		Join("public.rooms r ON r.id = l.room_id").
		Where(squirrel.Eq{"l.booking_id": bookingID}).
		OrderBy("r.name").
		ToSql()
	if err != nil {
		return lines, fmt.Errorf("build booking rooms query failed: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return lines, fmt.Errorf("list booking rooms failed: %w", err)
	}
	for rows.Next() {
		var l RoomLine
		if err := rows.Scan(&l.RoomID, &l.RoomName, &l.Quantity, &l.Adults, &l.Children, &l.ExtraPax,
			&l.UnitPrice, &l.ExtraPaxRate, &l.ExtraPaxFee, &l.TotalPrice); err != nil {
			rows.Close()
			return lines, fmt.Errorf("scan booking room failed: %w", err)
		}
		lines.Rooms = append(lines.Rooms, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return lines, fmt.Errorf("list booking rooms failed: %w", err)
	}

	query, args, err = psql.Select("l.cottage_id", "c.name", "l.quantity", "l.unit_price", "l.total_price").
		From("public.booking_cottages l").
		Join("public.cottages c ON c.id = l.cottage_id").
		Where(squirrel.Eq{"l.booking_id": bookingID}).
		OrderBy("c.name").
		ToSql()
	if err != nil {
		return lines, fmt.Errorf("build booking cottages query failed: %w", err)
	}
	rows, err = r.q.Query(ctx, query, args...)
	if err != nil {
		return lines, fmt.Errorf("list booking cottages failed: %w", err)
	}
	for rows.Next() {
		var l CottageLine
		if err := rows.Scan(&l.CottageID, &l.Name, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			rows.Close()
			return lines, fmt.Errorf("scan booking cottage failed: %w", err)
		}
		lines.Cottages = append(lines.Cottages, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return lines, fmt.Errorf("list booking cottages failed: %w", err)
	}

	// Optional and rental lines share one shape; the union keeps it to one round trip.
	const amenitySQL = `
		SELECT 'optional', l.amenity_id, a.name, l.quantity, 0, l.unit_price, 0::bigint, l.total_price
		FROM public.booking_optional_amenities l
		JOIN public.optional_amenities a ON a.id = l.amenity_id
		WHERE l.booking_id = $1
		UNION ALL
		SELECT 'rental', l.amenity_id, a.name, l.quantity, l.hours_used, l.unit_price, l.price_per_hour, l.total_price
		FROM public.booking_rental_amenities l
		JOIN public.rental_amenities a ON a.id = l.amenity_id
		WHERE l.booking_id = $1
		ORDER BY 1, 3
	`
	rows, err = r.q.Query(ctx, amenitySQL, bookingID)
	if err != nil {
		return lines, fmt.Errorf("list booking amenities failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l AmenityLine
		if err := rows.Scan(&l.Kind, &l.AmenityID, &l.Name, &l.Quantity, &l.HoursUsed,
			&l.UnitPrice, &l.HourlyPrice, &l.TotalPrice); err != nil {
			return lines, fmt.Errorf("scan booking amenity failed: %w", err)
		}
		lines.Amenities = append(lines.Amenities, l)
	}
	if err := rows.Err(); err != nil {
		return lines, fmt.Errorf("list booking amenities failed: %w", err)
	}
	return lines, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.is_deleted": false})

	if filter.GuestID != "" {
		query = query.Where(squirrel.Eq{"b.guest_id": filter.GuestID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.CheckInFrom != nil {
		query = query.Where(squirrel.GtOrEq{"b.check_in": filter.CheckInFrom})
	}
	if filter.CheckInTo != nil {
		query = query.Where(squirrel.LtOrEq{"b.check_in": filter.CheckInTo})
	}

	// Sorting
	orderBy := "b.check_in"
	switch filter.SortBy {
	case "check_in", "check_out", "created_at", "status", "total_price":
		orderBy = "b." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" || filter.SortOrder == "asc" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("check_in", b.CheckIn).
		Set("check_out", b.CheckOut).
		Set("status", b.Status).
		Set("payment_status", b.PaymentStatus).
		Set("held_until", b.HeldUntil).
		Set("total_price", b.TotalPrice).
		Set("is_deleted", b.IsDeleted).
		Set("cancellation_reason", b.CancellationReason).
		Set("cancelled_at", b.CancelledAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ReplaceLines(ctx context.Context, bookingID string, lines Lines) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	for _, table := range []string{
		"public.booking_rooms", "public.booking_cottages",
		"public.booking_optional_amenities", "public.booking_rental_amenities",
	} {
		query, args, err := psql.Delete(table).Where(squirrel.Eq{"booking_id": bookingID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete lines query failed: %w", err)
		}
		if _, err := r.q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s failed: %w", table, err)
		}
	}

	if len(lines.Rooms) > 0 {
		insert := psql.Insert("public.booking_rooms").Columns(
			"booking_id", "room_id", "quantity", "adults", "children", "extra_pax",
			"unit_price", "extra_pax_rate", "extra_pax_fee", "total_price",
		)
		for _, l := range lines.Rooms {
			insert = insert.Values(bookingID, l.RoomID, l.Quantity, l.Adults, l.Children, l.ExtraPax,
				l.UnitPrice, l.ExtraPaxRate, l.ExtraPaxFee, l.TotalPrice)
		}
		if err := r.exec(ctx, insert, "booking rooms"); err != nil {
			return err
		}
	}

	if len(lines.Cottages) > 0 {
		insert := psql.Insert("public.booking_cottages").
			Columns("booking_id", "cottage_id", "quantity", "unit_price", "total_price")
		for _, l := range lines.Cottages {
			insert = insert.Values(bookingID, l.CottageID, l.Quantity, l.UnitPrice, l.TotalPrice)
		}
		if err := r.exec(ctx, insert, "booking cottages"); err != nil {
			return err
		}
	}

	optional := psql.Insert("public.booking_optional_amenities").
		Columns("booking_id", "amenity_id", "quantity", "unit_price", "total_price")
	rental := psql.Insert("public.booking_rental_amenities").
		Columns("booking_id", "amenity_id", "quantity", "hours_used", "unit_price", "price_per_hour", "total_price")
	var nOptional, nRental int
	for _, l := range lines.Amenities {
		switch l.Kind {
		case stock.KindOptional:
			optional = optional.Values(bookingID, l.AmenityID, l.Quantity, l.UnitPrice, l.TotalPrice)
			nOptional++
		case stock.KindRental:
			rental = rental.Values(bookingID, l.AmenityID, l.Quantity, l.HoursUsed, l.UnitPrice, l.HourlyPrice, l.TotalPrice)
			nRental++
		}
	}
	if nOptional > 0 {
		if err := r.exec(ctx, optional, "booking optional amenities"); err != nil {
			return err
		}
	}
	if nRental > 0 {
		if err := r.exec(ctx, rental, "booking rental amenities"); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgxRepository) exec(ctx context.Context, insert squirrel.InsertBuilder, what string) error {
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s query failed: %w", what, err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s failed: %w", what, err)
	}
	return nil
}

func (r *pgxRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select("id").
		From("public.bookings").
		Where(squirrel.Eq{"status": []Status{StatusPending, StatusHeld}}).
		Where(squirrel.NotEq{"payment_status": []PaymentStatus{PaymentReservation, PaymentPaid}}).
		Where(squirrel.NotEq{"held_until": nil}).
		Where(squirrel.Lt{"held_until": now}).
		OrderBy("held_until ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expired holds query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expired holds failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
