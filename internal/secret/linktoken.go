package secret

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const linkPurpose = "email-verification"

// LinkClaims are carried inside a verification link token.
type LinkClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LinkTokens issues opaque verification-link tokens with PASETO v4.local
// (XChaCha20-Poly1305). Each token embeds a 32-byte random jti so two tokens
// for the same email never collide.
type LinkTokens struct {
	symmetricKey paseto.V4SymmetricKey
	gen          Generator
	now          func() time.Time
}

func NewLinkTokens(symmetricKey []byte) (*LinkTokens, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &LinkTokens{symmetricKey: key, now: time.Now}, nil
}

// Issue creates a token for email that expires after ttl.
func (s *LinkTokens) Issue(email string, ttl time.Duration) (string, error) {
	jti, err := s.gen.RandomToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetJti(jti)
	token.SetSubject(email)
	token.SetString("purpose", linkPurpose)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Parse decrypts a token and checks its expiry against the injected clock.
func (s *LinkTokens) Parse(tokenStr string) (*LinkClaims, error) {
	// Expiry is checked below so the clock stays injectable in tests.
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	purpose, err := token.GetString("purpose")
	if err != nil || purpose != linkPurpose {
		return nil, ErrInvalidToken
	}

	email, err := token.GetSubject()
	if err != nil || email == "" {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	return &LinkClaims{Email: email, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}
