package email

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/advising-auth/internal/logging"
)

// ErrDeliveryFailed is returned when a message could not be handed to the
// mail server in time.
var ErrDeliveryFailed = errors.New("email delivery failed")

// Sender hands a rendered message to a mail server.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Deduper suppresses identical messages sent within a window.
type Deduper interface {
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Options struct {
	ProductName string
	SendTimeout time.Duration
	DedupWindow time.Duration
	// Deduper is optional; nil disables de-duplication.
	Deduper Deduper
}

type Service struct {
	sender  Sender
	deduper Deduper
	product string
	timeout time.Duration
	window  time.Duration
}

func NewService(sender Sender, opts Options) *Service {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &Service{
		sender:  sender,
		deduper: opts.Deduper,
		product: opts.ProductName,
		timeout: opts.SendTimeout,
		window:  opts.DedupWindow,
	}
}

// SendVerificationEmail sends the link that activates a new account
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, firstName, link string, ttl time.Duration) error {
	body, err := render(verificationTmpl, templateData{
		Product:    s.product,
		Name:       firstName,
		Link:       link,
		Expiry:     humanDuration(ttl),
		ExpiryNoun: "link",
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, "verification", toEmail, s.subject("Verify your email"), body)
}

// SendOTPEmail sends the one-time passcode that completes sign-in
func (s *Service) SendOTPEmail(ctx context.Context, toEmail, firstName, code string, ttl time.Duration) error {
	body, err := render(otpTmpl, templateData{
		Product:    s.product,
		Name:       firstName,
		Code:       code,
		Expiry:     humanDuration(ttl),
		ExpiryNoun: "code",
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, "otp", toEmail, s.subject("Your OTP Code"), body)
}

// SendPasswordResetEmail sends the link to the password reset page
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, link string) error {
	body, err := render(resetTmpl, templateData{
		Product: s.product,
		Link:    link,
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, "password_reset", toEmail, s.subject("Password Reset"), body)
}

func (s *Service) subject(base string) string {
	if s.product == "" {
		return base
	}
	return base + " - " + s.product
}

func (s *Service) deliver(ctx context.Context, kind, to, subject, body string) error {
	logger := logging.GetLoggerFromContext(ctx).WithFields(map[string]any{
		"email_kind": kind,
		"email":      to,
	})

	key := messageKey(to, subject, body)
	if s.deduper != nil && s.window > 0 {
		fresh, err := s.deduper.Acquire(ctx, key, s.window)
		switch {
		case err != nil:
			// Redis being down must not block mail.
			logger.Warn("email dedup unavailable", "error", err)
		case !fresh:
			logger.Info("identical email sent recently, skipping")
			return nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sender.Send(sendCtx, to, subject, body); err != nil {
		logger.Error("failed to send email", "error", err)
		if s.deduper != nil && s.window > 0 {
			if relErr := s.deduper.Release(context.WithoutCancel(ctx), key); relErr != nil {
				logger.Warn("failed to release email dedup key", "error", relErr)
			}
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	logger.Info("email sent")
	return nil
}

func messageKey(to, subject, body string) string {
	sum := sha256.Sum256([]byte(to + "\x00" + subject + "\x00" + body))
	return hex.EncodeToString(sum[:])
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
