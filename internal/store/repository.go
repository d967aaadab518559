/**
 * @description
 * This file defines the data access contracts for the booking service. By
 * defining interfaces, we decouple the application's business logic from the
 * specific database implementation (PostgreSQL), making the code more modular
 * and easier to test with stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

// BookingStore defines the set of methods for persisting bookings. Guarded
// updates are conditional on the current row state so that concurrent writers
// resolve at the data layer rather than through in-process locks.
type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error)

	// LinkPaymentIntent attaches an intent to a pending booking that has none
	// yet, moving it to pending_payment. Returns ErrStaleStatus when the row
	// is no longer in that state.
	LinkPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error

	// MarkPaymentOutcome records the payment status and advances the booking
	// status, conditional on the booking still awaiting payment.
	MarkPaymentOutcome(ctx context.Context, id uuid.UUID, payment domain.PaymentStatus, next domain.BookingStatus) error

	// SetDecision records an admin approval decision, conditional on
	// approval_status still being pending. Returns ErrAlreadyDecided when a
	// concurrent writer decided first.
	SetDecision(ctx context.Context, id uuid.UUID, d DecisionParams) error

	// UpdateStatus transitions the booking status, conditional on the current
	// status being one of `from`. Returns ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.BookingStatus, to domain.BookingStatus) error

	// SetCancellation cancels a non-terminal booking and persists the reason.
	SetCancellation(ctx context.Context, id uuid.UUID, reason string) error

	FindPendingApproval(ctx context.Context) ([]domain.Booking, error)
	FindAll(ctx context.Context, filters domain.BookingFilters) ([]domain.Booking, error)

	// FindPendingWithoutIntent returns bookings stuck in pending with no
	// payment intent attached, for the reconciliation path. Cash bookings
	// are excluded; they never carry an intent.
	FindPendingWithoutIntent(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error)
}

// DecisionParams carries an admin approval decision.
type DecisionParams struct {
	Approval        domain.ApprovalStatus
	Status          domain.BookingStatus
	AdminID         uuid.UUID
	AdminNotes      *string
	RejectionReason *string
	DecidedAt       time.Time
}

// UserStore defines identity resolution and provisioning. The users table
// enforces a unique constraint on normalized email; CreateUser surfaces a
// unique violation as ErrDuplicateEmail so callers can re-fetch instead of
// failing.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
}

// PriceSource resolves the canonical per-adult price for a bookable item from
// the content catalog. Day tours take priority over vacation packages, which
// take priority over the generic destination catalog.
type PriceSource interface {
	GetCanonicalUnitPrice(ctx context.Context, itemID string) (*domain.CatalogItem, error)
}
