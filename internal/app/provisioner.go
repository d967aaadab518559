/**
 * @description
 * GuestAccountProvisioner resolves a purchasing identity by email, creating a
 * temporary-password account when none exists. Guest checkout provisions the
 * account from the booking details instead of requiring prior signup.
 *
 * @notes
 * - Idempotent on normalized email. The identity store enforces a unique
 *   constraint; a unique violation on insert means a concurrent request won
 *   the race, so the provisioner re-fetches instead of erroring. There is no
 *   in-memory lock because multiple process instances run concurrently.
 * - The provisioner never sends email. It returns the temp credential and a
 *   password-reset token so the orchestrator can hand them to the
 *   notification collaborator.
 *
 * @dependencies
 * - crypto/rand: Temp password entropy.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - github.com/google/uuid: User ids and reset tokens.
 */

package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// GuestAccountProvisioner resolves or creates purchaser accounts.
type GuestAccountProvisioner struct {
	users         store.UserStore
	resetTokenTTL time.Duration
}

// NewGuestAccountProvisioner creates a new GuestAccountProvisioner.
func NewGuestAccountProvisioner(users store.UserStore, resetTokenTTL time.Duration) *GuestAccountProvisioner {
	if resetTokenTTL <= 0 {
		resetTokenTTL = 48 * time.Hour
	}
	return &GuestAccountProvisioner{users: users, resetTokenTTL: resetTokenTTL}
}

// NormalizeEmail trims and lowercases an email for identity resolution.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResolveOrCreate returns the account for the email, provisioning a guest
// account with a temporary credential when none exists.
func (p *GuestAccountProvisioner) ResolveOrCreate(ctx context.Context, email, name string) (*domain.GuestAccount, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}

	existing, err := p.users.FindByEmail(ctx, normalized)
	if err == nil {
		return &domain.GuestAccount{User: existing, IsNew: false}, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash temp password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        normalized,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		IsGuest:      true,
	}

	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			// A concurrent request created the account between our lookup and
			// insert. Re-fetch and treat it as an existing account.
			winner, fetchErr := p.users.FindByEmail(ctx, normalized)
			if fetchErr != nil {
				return nil, fmt.Errorf("re-fetch after duplicate email: %w", fetchErr)
			}
			return &domain.GuestAccount{User: winner, IsNew: false}, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	resetToken := uuid.NewString()
	resetExpiry := time.Now().UTC().Add(p.resetTokenTTL)
	if err := p.users.CreatePasswordResetToken(ctx, user.ID, resetToken, resetExpiry); err != nil {
		// The account exists either way; the guest can still request a reset
		// through the normal flow.
		return &domain.GuestAccount{User: user, IsNew: true, TempPassword: tempPassword}, nil
	}

	return &domain.GuestAccount{
		User:         user,
		IsNew:        true,
		TempPassword: tempPassword,
		ResetToken:   resetToken,
		ResetExpiry:  &resetExpiry,
	}, nil
}

func generateTempPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
