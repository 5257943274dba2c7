package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("codec-test-secret-0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueRejectsNonPositiveTTL(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	_, err = codec.Issue(1, 1, "admin", 0)
	require.ErrorIs(t, err, ErrInvalidTTL)
	_, err = codec.Issue(1, 1, "admin", -time.Minute)
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, WithClock(fixedClock(now)))
	require.NoError(t, err)

	cases := []struct {
		name    string
		subject int64
		role    int64
		display string
	}{
		{name: "regular", subject: 101, role: 2, display: "john_doe"},
		{name: "zero ids", subject: 0, role: 0, display: ""},
		{name: "negative ids", subject: -7, role: -1, display: "weird"},
		{name: "large ids", subject: 1 << 52, role: 1<<40 + 3, display: "big"},
		{name: "unicode name", subject: 5, role: 9, display: "관리자 ✓"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := codec.Issue(tc.subject, tc.role, tc.display, time.Hour)
			require.NoError(t, err)

			claims, err := codec.Verify(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.subject, claims.SubjectID)
			assert.Equal(t, tc.role, claims.RoleID)
			assert.Equal(t, tc.display, claims.DisplayName)
			assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)), "expires at %s", claims.ExpiresAt)
		})
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer, err := NewCodec(testSecret, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	raw, err := issuer.Issue(1, 2, "admin", time.Minute)
	require.NoError(t, err)

	for _, offset := range []time.Duration{time.Minute, time.Minute + time.Second, 24 * time.Hour} {
		verifier, err := NewCodec(testSecret, WithClock(fixedClock(issuedAt.Add(offset))))
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, ErrExpired, "offset %s", offset)
		require.ErrorIs(t, err, ErrInvalidCredential)
	}

	verifier, err := NewCodec(testSecret, WithClock(fixedClock(issuedAt.Add(59*time.Second))))
	require.NoError(t, err)
	_, err = verifier.Verify(raw)
	require.NoError(t, err)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other, err := NewCodec([]byte("another-secret-entirely-different"))
	require.NoError(t, err)
	raw, err := other.Issue(1, 2, "admin", time.Hour)
	require.NoError(t, err)

	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	raw, err := codec.Issue(1, 2, "admin", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role_id":2`, `"role_id":1`, 1)
	require.NotEqual(t, string(payload), forged)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = codec.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	claims := jwt.MapClaims{"sub": 1, "role_id": 2, "username": "admin", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSignature)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(unsigned)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Unix()

	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return raw
	}

	cases := map[string]string{
		"garbage":          "not-a-token",
		"empty":            "",
		"two segments":     "abc.def",
		"missing sub":      sign(jwt.MapClaims{"role_id": 2, "username": "a", "exp": exp}),
		"missing role":     sign(jwt.MapClaims{"sub": 1, "username": "a", "exp": exp}),
		"missing username": sign(jwt.MapClaims{"sub": 1, "role_id": 2, "exp": exp}),
		"missing exp":      sign(jwt.MapClaims{"sub": 1, "role_id": 2, "username": "a"}),
		"string subject":   sign(jwt.MapClaims{"sub": "1", "role_id": 2, "username": "a", "exp": exp}),
		"string role":      sign(jwt.MapClaims{"sub": 1, "role_id": "admin", "username": "a", "exp": exp}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := codec.Verify(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.Equal(t, Claims{}, claims)
		})
	}
}
