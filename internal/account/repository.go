package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/advising-auth/internal/database"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrStore wraps every failure of the underlying database.
	ErrStore = errors.New("account store failure")
)

const uniqueViolation = "23505"

// Repository handles account persistence
type Repository struct {
	db      *bun.DB
	backoff func() retry.Backoff
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{
		db: db,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(25*time.Millisecond))
		},
	}
}

// Create inserts a new unverified account
func (r *Repository) Create(ctx context.Context, in NewAccount) (*Account, error) {
	now := time.Now().UTC()
	token := in.VerificationToken
	row := &database.Account{
		ID:                uuid.New(),
		Email:             in.Email,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		PasswordHash:      in.PasswordHash,
		VerificationToken: &token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := r.db.NewInsert().
		Model(row).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: create account: %w", ErrStore, err)
	}

	return mapRowToAccount(row), nil
}

// GetByEmail retrieves an account by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.selectOne(ctx, "get account by email", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email = ?", email)
	})
}

// GetByVerificationToken retrieves the account whose pending token matches exactly
func (r *Repository) GetByVerificationToken(ctx context.Context, token string) (*Account, error) {
	return r.selectOne(ctx, "get account by verification token", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("verification_token = ?", token)
	})
}

func (r *Repository) selectOne(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*Account, error) {
	row, err := retry.DoValue(ctx, r.backoff(), func(ctx context.Context) (*database.Account, error) {
		row := new(database.Account)
		err := where(r.db.NewSelect().Model(row)).Limit(1).Scan(ctx)
		switch {
		case err == nil:
			return row, nil
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, retry.RetryableError(err)
		}
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrStore, op, err)
	}

	return mapRowToAccount(row), nil
}

// MarkEmailAsVerified consumes the verification token. Only the request that
// still sees the token stored wins; later ones get ErrNotFound.
func (r *Repository) MarkEmailAsVerified(ctx context.Context, email, token string) error {
	return r.update(ctx, "mark email as verified", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("is_verified = ?", true).
			Set("verification_token = NULL").
			Where("email = ?", email).
			Where("verification_token = ?", token)
	})
}

// SetOTP stores a pending one-time passcode, replacing any earlier one
func (r *Repository) SetOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	return r.update(ctx, "set otp", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("otp_code = ?", code).
			Set("otp_expires_at = ?", expiresAt.UTC()).
			Where("email = ?", email)
	})
}

// ClearOTP consumes the passcode if it is still the current one
func (r *Repository) ClearOTP(ctx context.Context, email, code string) error {
	return r.update(ctx, "clear otp", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("otp_code = NULL").
			Set("otp_expires_at = NULL").
			Where("email = ?", email).
			Where("otp_code = ?", code)
	})
}

// UpdatePassword overwrites the stored password hash
func (r *Repository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.update(ctx, "update password", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("password_hash = ?", passwordHash).
			Where("email = ?", email)
	})
}

// UpdateVerificationToken rotates the token of an account that is still unverified
func (r *Repository) UpdateVerificationToken(ctx context.Context, email, token string) error {
	return r.update(ctx, "update verification token", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("verification_token = ?", token).
			Where("email = ?", email).
			Where("is_verified = ?", false)
	})
}

// UpdateProfile writes only the fields present in the update
func (r *Repository) UpdateProfile(ctx context.Context, email string, upd ProfileUpdate) error {
	if upd.Empty() {
		return nil
	}

	return r.update(ctx, "update profile", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		if upd.FirstName != nil {
			q = q.Set("first_name = ?", *upd.FirstName)
		}
		if upd.LastName != nil {
			q = q.Set("last_name = ?", *upd.LastName)
		}
		if upd.PasswordHash != nil {
			q = q.Set("password_hash = ?", *upd.PasswordHash)
		}
		return q.Where("email = ?", email)
	})
}

func (r *Repository) update(ctx context.Context, op string, build func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("updated_at = ?", time.Now().UTC())

	result, err := build(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: rows affected: %w", ErrStore, op, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	// modernc.org/sqlite reports constraint failures only through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapRowToAccount converts database model to domain model
func mapRowToAccount(row *database.Account) *Account {
	return &Account{
		ID:                row.ID,
		Email:             row.Email,
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		PasswordHash:      row.PasswordHash,
		IsVerified:        row.IsVerified,
		IsAdmin:           row.IsAdmin,
		VerificationToken: row.VerificationToken,
		OTPCode:           row.OTPCode,
		OTPExpiresAt:      row.OTPExpiresAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}
