package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("s3cret")

func TestAccessToken_RoundTrip(t *testing.T) {
	now := time.Now()
	tok, exp, err := SignAccessToken(secret, 42, 50, "Root", 15*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := ParseAccessToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, 50, claims.RoleID)
	assert.Equal(t, "Root", claims.Name)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	now := time.Now()
	good, _, err := SignAccessToken(secret, 42, 10, "", time.Minute, now)
	require.NoError(t, err)
	expired, _, err := SignAccessToken(secret, 42, 10, "", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	anonymous, _, err := SignAccessToken(secret, 0, 10, "", time.Minute, now)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 42}).SignedString(secret)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           42,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		secret []byte
		token  string
	}{
		"wrong secret": {[]byte("other"), good},
		"expired":      {secret, expired},
		"no subject":   {secret, anonymous},
		"no expiry":    {secret, noExp},
		"alg none":     {secret, none},
		"garbage":      {secret, "a.b.c"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.secret, tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseAccessToken_Leeway(t *testing.T) {
	tok, _, err := SignAccessToken(secret, 1, 10, "", time.Minute, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, tok)
	assert.NoError(t, err, "expired a minute ago, inside leeway")
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(0)
	require.NoError(t, err)
	b, err := NewRefreshToken(16)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a[:32], b)
}
