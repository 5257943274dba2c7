// Package token issues and verifies the signed bearer credentials used by the admin API.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification errors. Every one of them matches ErrInvalidCredential.
var (
	ErrInvalidCredential = errors.New("token: invalid credential")
	ErrInvalidSignature  = fmt.Errorf("%w: signature mismatch", ErrInvalidCredential)
	ErrExpired           = fmt.Errorf("%w: expired", ErrInvalidCredential)
	ErrMalformed         = fmt.Errorf("%w: malformed", ErrInvalidCredential)
)

// Construction and issuing errors.
var (
	ErrEmptySecret = errors.New("token: signing secret must not be empty")
	ErrInvalidTTL  = errors.New("token: ttl must be positive")
)

var signingMethod = jwt.SigningMethodHS256

// Claims are the verified fields carried by a credential.
type Claims struct {
	SubjectID   int64
	RoleID      int64
	DisplayName string
	ExpiresAt   time.Time
}

// Codec signs and verifies credentials with a process-wide symmetric secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec constructs a Codec. The secret is copied.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a credential for the subject that expires ttl from now.
func (c *Codec) Issue(subjectID, roleID int64, displayName string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	now := c.now()
	claims := wireClaims{
		Subject:  &subjectID,
		RoleID:   &roleID,
		Username: &displayName,
		Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (c *Codec) Verify(raw string) (Claims, error) {
	var parsed wireClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, classify(err)
	}
	if parsed.Subject == nil || parsed.RoleID == nil || parsed.Username == nil {
		return Claims{}, fmt.Errorf("%w: missing required claim", ErrMalformed)
	}
	return Claims{
		SubjectID:   *parsed.Subject,
		RoleID:      *parsed.RoleID,
		DisplayName: *parsed.Username,
		ExpiresAt:   parsed.Expiry.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// wireClaims is the JSON payload. Pointers distinguish absent claims from zero values.
type wireClaims struct {
	Subject  *int64           `json:"sub"`
	RoleID   *int64           `json:"role_id"`
	Username *string          `json:"username"`
	Expiry   *jwt.NumericDate `json:"exp"`
	IssuedAt *jwt.NumericDate `json:"iat,omitempty"`
	ID       string           `json:"jti,omitempty"`
}

func (w wireClaims) GetExpirationTime() (*jwt.NumericDate, error) { return w.Expiry, nil }
func (w wireClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return w.IssuedAt, nil }
func (w wireClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (w wireClaims) GetIssuer() (string, error)                   { return "", nil }
func (w wireClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (w wireClaims) GetSubject() (string, error) {
	if w.Subject == nil {
		return "", nil
	}
	return strconv.FormatInt(*w.Subject, 10), nil
}
