/**
 * @description
 * This file provides the PostgreSQL implementation of the `BookingStore`
 * interface. It contains all the SQL needed to persist bookings and to run
 * the guarded, state-conditional updates the lifecycle relies on.
 *
 * @notes
 * - Guarded updates use `UPDATE ... WHERE <current state>` and inspect
 *   RowsAffected. A zero row count means another writer got there first; the
 *   caller receives a typed error instead of a silent overwrite.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAlreadyDecided  = errors.New("booking already decided")
	ErrStaleStatus     = errors.New("booking status changed concurrently")
)

const bookingColumns = `id, tour_id, product_type, total_amount, currency, deposit_amount,
	balance_amount, payment_method, user_id, booker_name, booker_email, booker_phone,
	adults, children, selected_date, special_requests, status, payment_status,
	approval_status, admin_notes, rejection_reason, decided_by, decided_at,
	payment_intent_id, created_at, updated_at`

// PostgresBookingStore is a concrete implementation of BookingStore for PostgreSQL.
type PostgresBookingStore struct {
	db *pgxpool.Pool
}

// NewPostgresBookingStore creates a new instance of PostgresBookingStore.
func NewPostgresBookingStore(db *pgxpool.Pool) *PostgresBookingStore {
	return &PostgresBookingStore{db: db}
}

// Create inserts a new booking row and fills in the generated timestamps.
func (r *PostgresBookingStore) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, tour_id, product_type, total_amount, currency, deposit_amount,
			balance_amount, payment_method, user_id, booker_name, booker_email,
			booker_phone, adults, children, selected_date, special_requests,
			status, payment_status, approval_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		b.ID, b.TourID, b.ProductType, b.TotalAmount, b.Currency, b.DepositAmount,
		b.BalanceAmount, b.PaymentMethod, b.UserID, b.BookerName, b.BookerEmail,
		b.BookerPhone, b.Travelers.Adults, b.Travelers.Children, b.SelectedDate,
		b.SpecialRequests, b.Status, b.PaymentStatus, b.ApprovalStatus,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its primary key.
func (r *PostgresBookingStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindByPaymentIntentID retrieves the booking linked to a payment intent.
func (r *PostgresBookingStore) FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE payment_intent_id = $1`, bookingColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, intentID))
}

// LinkPaymentIntent attaches the intent id to a pending booking without one.
func (r *PostgresBookingStore) LinkPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	query := `
		UPDATE bookings
		SET payment_intent_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4 AND payment_intent_id IS NULL
	`
	result, err := r.db.Exec(ctx, query, id, intentID, domain.BookingPendingPayment, domain.BookingPending)
	if err != nil {
		return fmt.Errorf("link payment intent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// MarkPaymentOutcome records the payment status and advances the booking,
// conditional on the booking still awaiting its payment outcome.
func (r *PostgresBookingStore) MarkPaymentOutcome(ctx context.Context, id uuid.UUID, payment domain.PaymentStatus, next domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET payment_status = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
	`
	result, err := r.db.Exec(ctx, query, id, payment, next, domain.BookingPending, domain.BookingPendingPayment)
	if err != nil {
		return fmt.Errorf("mark payment outcome: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SetDecision records an approval decision. The WHERE clause on
// approval_status makes a double decision resolve to ErrAlreadyDecided for
// the second writer. decided_by/decided_at name the acting admin for both
// outcomes, approvals and rejections alike.
func (r *PostgresBookingStore) SetDecision(ctx context.Context, id uuid.UUID, d DecisionParams) error {
	query := `
		UPDATE bookings
		SET approval_status = $2, status = $3, admin_notes = COALESCE($4, admin_notes),
			rejection_reason = $5, decided_by = $6, decided_at = $7, updated_at = NOW()
		WHERE id = $1 AND approval_status = $8
	`
	result, err := r.db.Exec(ctx, query,
		id, d.Approval, d.Status, d.AdminNotes, d.RejectionReason, d.AdminID, d.DecidedAt,
		domain.ApprovalPending,
	)
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}
	return nil
}

// UpdateStatus transitions status conditional on the current value.
func (r *PostgresBookingStore) UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.BookingStatus, to domain.BookingStatus) error {
	if len(from) == 0 {
		return ErrStaleStatus
	}
	placeholders := make([]string, 0, len(from))
	args := []interface{}{id, to}
	for i, s := range from {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		args = append(args, s)
	}
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN (%s)
	`, strings.Join(placeholders, ", "))
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SetCancellation cancels a non-terminal booking and persists the reason.
func (r *PostgresBookingStore) SetCancellation(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE bookings
		SET status = $2, rejection_reason = COALESCE(NULLIF($3, ''), rejection_reason), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	result, err := r.db.Exec(ctx, query, id, domain.BookingCancelled, reason,
		domain.BookingCancelled, domain.BookingCompleted, domain.BookingRefunded)
	if err != nil {
		return fmt.Errorf("set cancellation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// FindPendingApproval returns the admin review queue, oldest first.
func (r *PostgresBookingStore) FindPendingApproval(ctx context.Context) ([]domain.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE approval_status = $1 AND status = $2
		ORDER BY created_at ASC
	`, bookingColumns)
	rows, err := r.db.Query(ctx, query, domain.ApprovalPending, domain.BookingAwaitingApproval)
	if err != nil {
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// FindAll lists bookings for the admin surface with optional filters.
func (r *PostgresBookingStore) FindAll(ctx context.Context, filters domain.BookingFilters) ([]domain.Booking, error) {
	var conditions []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != "" {
		conditions = append(conditions, "status = "+next(filters.Status))
	}
	if filters.ProductType != "" {
		conditions = append(conditions, "product_type = "+next(filters.ProductType))
	}
	if filters.BookerEmail != "" {
		conditions = append(conditions, "lower(booker_email) = lower("+next(filters.BookerEmail)+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, bookingColumns, where, next(limit), next(offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// FindPendingWithoutIntent returns bookings that never got a payment intent
// attached, so a reconciliation pass can retry or reap them. Cash bookings
// carry no intent and are excluded to keep the sweep set bounded.
func (r *PostgresBookingStore) FindPendingWithoutIntent(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE status = $1 AND payment_intent_id IS NULL AND payment_method <> $2
			AND created_at < NOW() - $3::interval
		ORDER BY created_at ASC
	`, bookingColumns)
	rows, err := r.db.Query(ctx, query, domain.BookingPending, domain.PaymentMethodCashOnArrival, olderThan.String())
	if err != nil {
		return nil, fmt.Errorf("find pending without intent: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *PostgresBookingStore) scanOne(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.TourID, &b.ProductType, &b.TotalAmount, &b.Currency, &b.DepositAmount,
		&b.BalanceAmount, &b.PaymentMethod, &b.UserID, &b.BookerName, &b.BookerEmail,
		&b.BookerPhone, &b.Travelers.Adults, &b.Travelers.Children, &b.SelectedDate,
		&b.SpecialRequests, &b.Status, &b.PaymentStatus, &b.ApprovalStatus,
		&b.AdminNotes, &b.RejectionReason, &b.DecidedBy, &b.DecidedAt,
		&b.PaymentIntentID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBookingStore) scanMany(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		err := rows.Scan(
			&b.ID, &b.TourID, &b.ProductType, &b.TotalAmount, &b.Currency, &b.DepositAmount,
			&b.BalanceAmount, &b.PaymentMethod, &b.UserID, &b.BookerName, &b.BookerEmail,
			&b.BookerPhone, &b.Travelers.Adults, &b.Travelers.Children, &b.SelectedDate,
			&b.SpecialRequests, &b.Status, &b.PaymentStatus, &b.ApprovalStatus,
			&b.AdminNotes, &b.RejectionReason, &b.DecidedBy, &b.DecidedAt,
			&b.PaymentIntentID, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
