package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the purchasing identity attached to a booking. The identity store
// owns the user lifecycle; this service only resolves or requests creation.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsGuest      bool      `json:"is_guest"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuestAccount is the result of resolving or provisioning a purchaser by
// email. TempPassword and the reset token fields are only set when a new
// account was created, and exist so the orchestrator can hand them to the
// notification collaborator; the provisioner never sends email itself.
type GuestAccount struct {
	User         *User      `json:"user"`
	IsNew        bool       `json:"is_new"`
	TempPassword string     `json:"-"`
	ResetToken   string     `json:"-"`
	ResetExpiry  *time.Time `json:"-"`
}
