package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	token := signToken(t, testSecret, &Claims{
		UserID:    42,
		SubjectID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := auth.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, int64(7), claims.SubjectID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	expired := signToken(t, testSecret, &Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongSecret := signToken(t, "other-secret", &Claims{UserID: 42})

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"missing scheme", "sometoken"},
		{"wrong scheme", "Basic " + wrongSecret},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Verify(tt.header)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
