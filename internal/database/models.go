package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the row stored in the accounts table.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID                uuid.UUID  `bun:"id,pk,type:uuid"`
	Email             string     `bun:"email,notnull,unique"`
	FirstName         string     `bun:"first_name,notnull"`
	LastName          string     `bun:"last_name,notnull"`
	PasswordHash      string     `bun:"password_hash,notnull"`
	IsVerified        bool       `bun:"is_verified,notnull"`
	IsAdmin           bool       `bun:"is_admin,notnull"`
	VerificationToken *string    `bun:"verification_token"`
	OTPCode           *string    `bun:"otp_code"`
	OTPExpiresAt      *time.Time `bun:"otp_expires_at"`
	CreatedAt         time.Time  `bun:"created_at,notnull"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull"`
}
