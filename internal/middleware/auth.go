package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for missing, malformed, expired or
// otherwise invalid bearer tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Claims are the token claims this service relies on. This service only
// verifies tokens, it never issues them.
type Claims struct {
	UserID    int64 `json:"userId"`
	SubjectID int64 `json:"subjectId"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens with a shared HMAC secret.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates a token verifier.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify checks an Authorization header value and extracts the claims.
func (a *Authenticator) Verify(authorization string) (*Claims, error) {
	if authorization == "" {
		return nil, ErrUnauthorized
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	return claims, nil
}
