package account

import (
	"time"

	"github.com/google/uuid"
)

// State is derived from stored fields; there is no status column.
type State string

const (
	StateUnverified         State = "UNVERIFIED"
	StateVerifiedIdle       State = "VERIFIED_IDLE"
	StateVerifiedOTPPending State = "VERIFIED_OTP_PENDING"
)

type Account struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	PasswordHash      string     `json:"-"` // Never expose password hash in JSON
	IsVerified        bool       `json:"isVerified"`
	IsAdmin           bool       `json:"isAdmin"`
	VerificationToken *string    `json:"-"`
	OTPCode           *string    `json:"-"`
	OTPExpiresAt      *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (a *Account) State() State {
	switch {
	case !a.IsVerified:
		return StateUnverified
	case a.OTPCode != nil:
		return StateVerifiedOTPPending
	default:
		return StateVerifiedIdle
	}
}

// NewAccount carries the fields supplied at registration.
type NewAccount struct {
	Email             string
	FirstName         string
	LastName          string
	PasswordHash      string
	VerificationToken string
}

// ProfileUpdate lists the profile fields to overwrite; nil means unchanged.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
}

func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.PasswordHash == nil
}
