package auth

import (
	"context"
	"time"

	"github.com/redmonkez12/advising-auth/internal/account"
	"github.com/redmonkez12/advising-auth/internal/secret"
)

// AccountStore persists accounts. Implemented by account.Repository.
type AccountStore interface {
	Create(ctx context.Context, in account.NewAccount) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*account.Account, error)
	MarkEmailAsVerified(ctx context.Context, email, token string) error
	SetOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, email, code string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateVerificationToken(ctx context.Context, email, token string) error
	UpdateProfile(ctx context.Context, email string, upd account.ProfileUpdate) error
}

// PasswordHasher is implemented by secret.Argon2.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// OTPGenerator is implemented by secret.Generator.
type OTPGenerator interface {
	RandomOTP() (string, error)
}

// LinkTokenService issues and checks verification-link tokens.
// Implemented by secret.LinkTokens.
type LinkTokenService interface {
	Issue(email string, ttl time.Duration) (string, error)
	Parse(token string) (*secret.LinkClaims, error)
}

// Mailer sends the account lifecycle emails. Implemented by email.Service.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, firstName, link string, ttl time.Duration) error
	SendOTPEmail(ctx context.Context, toEmail, firstName, code string, ttl time.Duration) error
	SendPasswordResetEmail(ctx context.Context, toEmail, link string) error
}
