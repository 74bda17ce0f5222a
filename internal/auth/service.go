package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/redmonkez12/advising-auth/internal/account"
	"github.com/redmonkez12/advising-auth/internal/logging"
	"github.com/redmonkez12/advising-auth/internal/secret"
)

const (
	minPasswordLen = 8
	maxEmailLen    = 254
)

var tracer = otel.Tracer("github.com/redmonkez12/advising-auth/internal/auth")

// Config holds the lifetimes and public URLs the engine needs.
type Config struct {
	// PublicURL is where this API is reachable; verification links point here.
	PublicURL string
	// ClientURL hosts the static sign-in and reset pages.
	ClientURL       string
	OTPTTL          time.Duration
	VerificationTTL time.Duration
}

// RegisterInput is the data a new registrant supplies.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileInput lists profile fields to change. Empty fields are left as is.
type ProfileInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Profile is the public view of an account.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	IsAdmin    bool      `json:"isAdmin"`
}

// Service runs the account lifecycle: registration, email verification,
// password sign-in, OTP confirmation, password recovery and profile upkeep.
// It holds no per-account state; the store is the only shared mutable
// resource.
type Service struct {
	store  AccountStore
	hasher PasswordHasher
	otps   OTPGenerator
	links  LinkTokenService
	mailer Mailer
	logger *logging.Logger
	cfg    Config
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(
	store AccountStore,
	hasher PasswordHasher,
	otps OTPGenerator,
	links LinkTokenService,
	mailer Mailer,
	logger *logging.Logger,
	cfg Config,
) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		otps:   otps,
		links:  links,
		mailer: mailer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Register creates an unverified account and emails its verification link.
// If the email cannot be sent the account still exists and ErrNotify is
// returned; ResendVerification can issue a new link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (acc *account.Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" || in.Email == "" || in.Password == "" {
		return nil, ErrAllFieldsRequired
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := s.links.Issue(in.Email, s.cfg.VerificationTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	// The unique constraint decides concurrent registrations for one email.
	acc, err = s.store.Create(ctx, account.NewAccount{
		Email:             in.Email,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		PasswordHash:      passwordHash,
		VerificationToken: token,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, ErrConflict
		}
		return nil, storeErr("create account", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, in.Email, in.FirstName, s.verificationLink(token), s.cfg.VerificationTTL); err != nil {
		return acc, fmt.Errorf("%w: verification email: %w", ErrNotify, err)
	}

	return acc, nil
}

// VerifyEmail consumes a verification token and marks its account verified.
// A token works once; resubmitting it yields ErrInvalidVerificationToken.
func (s *Service) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyEmail")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return ErrVerificationTokenRequired
	}

	acc, err := s.store.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return storeErr("find account by verification token", err)
	}

	claims, err := s.links.Parse(token)
	switch {
	case errors.Is(err, secret.ErrExpiredToken):
		return ErrVerificationExpired
	case err != nil:
		return ErrInvalidVerificationToken
	case claims.Email != acc.Email:
		return ErrInvalidVerificationToken
	}

	// Conditional on the token still being stored, so only one of several
	// concurrent submissions succeeds.
	if err := s.store.MarkEmailAsVerified(ctx, acc.Email, token); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return storeErr("mark email as verified", err)
	}

	s.loggerFrom(ctx).Info("email verified", "account_id", acc.ID)
	return nil
}

// SignIn checks the password of a verified account and emails a fresh OTP,
// replacing any OTP issued earlier.
func (s *Service) SignIn(ctx context.Context, email, password string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.SignIn")
	defer func() { endSpan(span, err) }()

	if email == "" || password == "" {
		return ErrCredentialsRequired
	}

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Same work as a real check so response time does not reveal the email.
			_, _ = s.hasher.Verify(password, s.dummy())
			return ErrInvalidCredentials
		}
		return storeErr("get account", err)
	}

	ok, err := s.hasher.Verify(password, acc.PasswordHash)
	if err != nil {
		s.loggerFrom(ctx).Error("stored password hash is unusable", "account_id", acc.ID, "error", err)
		return ErrInvalidCredentials
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if !acc.IsVerified {
		return ErrEmailNotVerified
	}

	code, err := s.otps.RandomOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	if err := s.store.SetOTP(ctx, email, code, s.now().Add(s.cfg.OTPTTL)); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return storeErr("set otp", err)
	}

	if err := s.mailer.SendOTPEmail(ctx, email, acc.FirstName, code, s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("%w: otp email: %w", ErrNotify, err)
	}

	return nil
}

// ConfirmOTP consumes the pending OTP of an account. A code matches only if
// it is the most recently issued one and has not expired.
func (s *Service) ConfirmOTP(ctx context.Context, email, otp string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ConfirmOTP")
	defer func() { endSpan(span, err) }()

	// A blank code never matches a pending one.
	if email == "" || otp == "" {
		return ErrInvalidOTP
	}

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidOTP
		}
		return storeErr("get account", err)
	}

	if acc.OTPCode == nil || subtle.ConstantTimeCompare([]byte(*acc.OTPCode), []byte(otp)) != 1 {
		return ErrInvalidOTP
	}

	if acc.OTPExpiresAt != nil && !s.now().Before(*acc.OTPExpiresAt) {
		if err := s.store.ClearOTP(ctx, email, otp); err != nil && !errors.Is(err, account.ErrNotFound) {
			s.loggerFrom(ctx).Warn("failed to clear expired otp", "error", err)
		}
		return ErrInvalidOTP
	}

	// Conditional on the code, so a code is consumed at most once.
	if err := s.store.ClearOTP(ctx, email, otp); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidOTP
		}
		return storeErr("clear otp", err)
	}

	return nil
}

// ForgotPassword emails a link to the password reset page. No state changes.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ForgotPassword")
	defer func() { endSpan(span, err) }()

	if email == "" {
		return ErrEmailRequired
	}

	if _, err := s.store.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("get account", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, email, s.resetLink(email)); err != nil {
		return fmt.Errorf("%w: password reset email: %w", ErrNotify, err)
	}

	return nil
}

// ResetPassword replaces the password of the account identified by email.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ResetPassword")
	defer func() { endSpan(span, err) }()

	if email == "" {
		return ErrEmailRequired
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, email, passwordHash); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("update password", err)
	}

	return nil
}

// UpdateProfile overwrites the supplied profile fields. The password, if
// given, is re-hashed. Unknown emails return ErrNotFound without a write.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (err error) {
	ctx, span := tracer.Start(ctx, "auth.UpdateProfile")
	defer func() { endSpan(span, err) }()

	if in.Email == "" {
		return ErrEmailRequired
	}

	var upd account.ProfileUpdate
	if name := strings.TrimSpace(in.FirstName); name != "" {
		upd.FirstName = &name
	}
	if name := strings.TrimSpace(in.LastName); name != "" {
		upd.LastName = &name
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return err
		}
		passwordHash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		upd.PasswordHash = &passwordHash
	}
	if upd.Empty() {
		return ErrNothingToUpdate
	}

	if err := s.store.UpdateProfile(ctx, in.Email, upd); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("update profile", err)
	}

	return nil
}

// GetProfile returns the public profile. The password hash is never included.
func (s *Service) GetProfile(ctx context.Context, email string) (p *Profile, err error) {
	ctx, span := tracer.Start(ctx, "auth.GetProfile")
	defer func() { endSpan(span, err) }()

	if email == "" {
		return nil, ErrEmailRequired
	}

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get account", err)
	}

	return &Profile{
		ID:         acc.ID,
		FirstName:  acc.FirstName,
		LastName:   acc.LastName,
		Email:      acc.Email,
		IsVerified: acc.IsVerified,
		IsAdmin:    acc.IsAdmin,
	}, nil
}

// ResendVerification rotates the verification token of an unverified account
// and emails a new link. Unknown and already verified emails are ignored so
// the caller cannot tell them apart; other failures are only logged.
func (s *Service) ResendVerification(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ResendVerification")
	defer func() { endSpan(span, err) }()

	if email == "" {
		return ErrEmailRequired
	}

	logger := s.loggerFrom(ctx)

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			logger.Warn("failed to get account for resend verification", "error", err)
		}
		return nil
	}
	if acc.IsVerified {
		return nil
	}

	token, err := s.links.Issue(email, s.cfg.VerificationTTL)
	if err != nil {
		logger.Warn("failed to issue verification token", "error", err)
		return nil
	}

	if err := s.store.UpdateVerificationToken(ctx, email, token); err != nil {
		// ErrNotFound here means it was verified in the meantime.
		if !errors.Is(err, account.ErrNotFound) {
			logger.Warn("failed to update verification token", "error", err)
		}
		return nil
	}

	if err := s.mailer.SendVerificationEmail(ctx, email, acc.FirstName, s.verificationLink(token), s.cfg.VerificationTTL); err != nil {
		logger.Warn("failed to resend verification email", "error", err)
	}

	return nil
}

// SignInURL is the client page users land on after verifying their email.
func (s *Service) SignInURL() string {
	return s.cfg.ClientURL + "/signin.html"
}

func (s *Service) verificationLink(token string) string {
	return s.cfg.PublicURL + "/user/verify-email?token=" + url.QueryEscape(token)
}

func (s *Service) resetLink(email string) string {
	return s.cfg.ClientURL + "/reset.html?email=" + url.QueryEscape(email)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) loggerFrom(ctx context.Context) *logging.Logger {
	if logger, ok := ctx.Value(logging.LoggerContextKey).(*logging.Logger); ok {
		return logger
	}
	return s.logger
}

func validateEmail(email string) error {
	if len(email) > maxEmailLen {
		return ErrInvalidEmailFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// endSpan marks infrastructure failures as span errors. Expected outcomes
// such as a wrong password are recorded as events only.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrStore) || errors.Is(err, ErrNotify) {
			span.SetStatus(otelcodes.Error, err.Error())
		}
	}
	span.End()
}
