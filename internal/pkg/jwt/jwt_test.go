package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(42, "user", testSecret, 24)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestParseToken_Valid(t *testing.T) {
	token, err := GenerateToken(42, "admin", testSecret, 24)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(42, "user", testSecret, 24)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken("not-a-jwt", testSecret)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Now()
	claims := Claims{
		UserID: 42,
		Role:   "user",
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(-time.Hour)),
			IssuedAt:  jwtlib.NewNumericDate(now.Add(-2 * time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		UserID: 42,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Equal(t, ErrInvalidToken, err)
}
