// Package jwtactor attaches the subject of an HS256 bearer token to the
// request context as the audit actor.
package jwtactor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mickamy/auditlog"
)

// ErrInvalidToken is returned when a token cannot be parsed or has expired.
var ErrInvalidToken = errors.New("jwtactor: invalid or expired token")

// Claims is the token payload. The actor id is the registered subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue signs an access token for subject, valid for ttl.
func Issue(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("jwtactor.Issue: %w", err)
	}
	return signed, nil
}

// Subject validates tokenString and returns its subject.
func Subject(secret, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("jwtactor.Subject: %w", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("jwtactor.Subject: missing subject: %w", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware stores the bearer token's subject with auditlog.WithActor.
// Requests without a valid token pass through unchanged, so their audit rows
// carry no user.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				if sub, err := Subject(secret, tok); err == nil {
					r = r.WithContext(auditlog.WithActor(r.Context(), sub))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}
