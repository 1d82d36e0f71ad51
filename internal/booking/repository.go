package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Mutator edits a booking inside CompareAndUpdate. Returning an error aborts the write.
type Mutator func(b *Booking) error

type Repository interface {
	// Create inserts b and its first history entry. b.ID is filled in.
	Create(ctx context.Context, b *Booking, change Change) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	ListHistory(ctx context.Context, bookingID string) ([]*HistoryEntry, error)

	// CompareAndUpdate applies mutate only if the booking's status is one of expected,
	// with no other write landing in between. It returns *TransitionError when the
	// status does not match and ErrNotFound for an unknown id.
	CompareAndUpdate(ctx context.Context, id string, expected []Status, change Change, mutate Mutator) (*Booking, error)
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"id", "customer_id", "provider_id",
	"scheduled_date", "to_char(scheduled_time, 'HH24:MI')", "duration_hours", "service_type",
	"address", "city", "state", "zip_code", "COALESCE(special_instructions, '')",
	"hourly_rate::text", "subtotal::text", "service_fee::text", "tax::text", "total_amount::text",
	"status", "confirmed_at", "started_at", "completed_at", "cancelled_at", "cancellation_reason",
	"version", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner, extra ...any) (*Booking, error) {
	var b Booking
	var rate, subtotal, fee, tax, total string

	dest := []any{
		&b.ID, &b.CustomerID, &b.ProviderID,
		&b.ScheduledDate, &b.ScheduledTime, &b.DurationHours, &b.ServiceType,
		&b.Address, &b.City, &b.State, &b.ZipCode, &b.SpecialInstructions,
		&rate, &subtotal, &fee, &tax, &total,
		&b.Status, &b.ConfirmedAt, &b.StartedAt, &b.CompletedAt, &b.CancelledAt, &b.CancellationReason,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	for _, m := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{rate, &b.HourlyRate}, {subtotal, &b.Subtotal}, {fee, &b.ServiceFee}, {tax, &b.Tax}, {total, &b.TotalAmount},
	} {
		v, err := decimal.NewFromString(m.src)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q of booking %s: %w", m.src, b.ID, err)
		}
		*m.dst = v
	}
	return &b, nil
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking, change Change) error {
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"customer_id", "provider_id", "scheduled_date", "scheduled_time", "duration_hours", "service_type",
			"address", "city", "state", "zip_code", "special_instructions",
			"hourly_rate", "subtotal", "service_fee", "tax", "total_amount",
			"status", "version", "created_at", "updated_at",
		).
		Values(
			b.CustomerID, b.ProviderID, b.ScheduledDate, clockTime(b.ScheduledTime), b.DurationHours, b.ServiceType,
			b.Address, b.City, b.State, b.ZipCode, b.SpecialInstructions,
			numeric(b.HourlyRate), numeric(b.Subtotal), numeric(b.ServiceFee), numeric(b.Tax), numeric(b.TotalAmount),
			b.Status, b.Version, b.CreatedAt, b.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
			if missing := missingParty(err); missing != nil {
				return missing
			}
			return fmt.Errorf("create booking failed: %w", err)
		}
		return insertHistory(ctx, tx, b.ID, "", b.Status, change)
	})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) CompareAndUpdate(ctx context.Context, id string, expected []Status, change Change, mutate Mutator) (*Booking, error) {
	selectQuery, selectArgs, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock booking query failed: %w", err)
	}

	var updated *Booking
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock is held until commit, so the status check and the write are atomic.
		b, err := scanBooking(tx.QueryRow(ctx, selectQuery, selectArgs...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock booking failed: %w", err)
		}

		if !slices.Contains(expected, b.Status) {
			return &TransitionError{Transition: change.Transition, Current: b.Status}
		}

		from := b.Status
		if err := mutate(b); err != nil {
			return err
		}

		query, args, err := psql.Update("public.bookings").
			Set("scheduled_date", b.ScheduledDate).
			Set("scheduled_time", clockTime(b.ScheduledTime)).
			Set("duration_hours", b.DurationHours).
			Set("special_instructions", b.SpecialInstructions).
			Set("hourly_rate", numeric(b.HourlyRate)).
			Set("subtotal", numeric(b.Subtotal)).
			Set("service_fee", numeric(b.ServiceFee)).
			Set("tax", numeric(b.Tax)).
			Set("total_amount", numeric(b.TotalAmount)).
			Set("status", b.Status).
			Set("confirmed_at", b.ConfirmedAt).
			Set("started_at", b.StartedAt).
			Set("completed_at", b.CompletedAt).
			Set("cancelled_at", b.CancelledAt).
			Set("cancellation_reason", b.CancellationReason).
			Set("updated_at", b.UpdatedAt).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"id": b.ID}).
			Suffix("RETURNING version").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update booking query failed: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&b.Version); err != nil {
			return fmt.Errorf("update booking failed: %w", err)
		}

		if err := insertHistory(ctx, tx, b.ID, from, b.Status, change); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(slices.Clone(bookingColumns), "count(*) OVER() as total_count")...).
		From("public.bookings")

	if filter.CustomerID != "" {
		query = query.Where(squirrel.Eq{"customer_id": filter.CustomerID})
	}
	if filter.ProviderID != "" {
		query = query.Where(squirrel.Eq{"provider_id": filter.ProviderID})
	}
	if filter.PartyID != "" {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"customer_id": filter.PartyID},
			squirrel.Eq{"provider_id": filter.PartyID},
		})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy("scheduled_date "+orderDir, "scheduled_time "+orderDir, "id")

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

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, 0, nil
		}
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
	if err := rows.Err(); err != nil {
		// A malformed party id matches nothing.
		if isInvalidUUID(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) ListHistory(ctx context.Context, bookingID string) ([]*HistoryEntry, error) {
	query, args, err := psql.Select(
		"id", "booking_id", "COALESCE(from_status, '')", "to_status", "transition",
		"COALESCE(actor_id::text, '')", "actor_role", "COALESCE(reason, '')", "created_at",
	).
		From("public.booking_status_history").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list history query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &e.Transition,
			&e.ActorID, &e.ActorRole, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history failed: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history failed: %w", err)
	}
	return entries, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, bookingID string, from, to Status, change Change) error {
	var fromStatus, reason any
	if from != "" {
		fromStatus = from
	}
	if change.Reason != "" {
		reason = change.Reason
	}

	query, args, err := psql.Insert("public.booking_status_history").
		Columns("booking_id", "from_status", "to_status", "transition", "actor_id", "actor_role", "reason", "created_at").
		Values(bookingID, fromStatus, to, change.Transition, change.ActorID, change.ActorRole, reason, change.At).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history failed: %w", err)
	}
	return nil
}

// Money and clock values travel as text and are cast server-side.
func numeric(d decimal.Decimal) squirrel.Sqlizer {
	return squirrel.Expr("?::text::numeric", d.StringFixed(2))
}

func clockTime(hhmm string) squirrel.Sqlizer {
	return squirrel.Expr("?::text::time", hhmm)
}

// Foreign key names from migrations/0001_init.up.sql.
const (
	customerFKey = "bookings_customer_id_fkey"
	providerFKey = "bookings_provider_id_fkey"
)

// missingParty maps a foreign key violation on insert to the party that does not exist.
func missingParty(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case customerFKey:
			return ErrCustomerNotFound
		case providerFKey:
			return ErrProviderNotFound
		}
	case pgerrcode.InvalidTextRepresentation:
		// Malformed uuid. The service has already resolved the provider, so it is the customer.
		return ErrCustomerNotFound
	}
	return nil
}

// isInvalidUUID reports a malformed id, which can never match a row.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
