// Package auth resolves the acting user principal from a bearer token
// issued by the external auth provider (out of scope for this service).
// It only verifies and extracts claims; it never issues tokens itself.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relayforge/knowbase/internal/apperr"
)

// Verifier validates HMAC-signed bearer tokens and extracts the subject
// (user id) claim.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

// VerifySubject parses the bearer token's claims and returns the acting
// user id from the "sub" claim.
func (v *Verifier) VerifySubject(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return "", apperr.New(apperr.KindUnauthorized, "missing bearer token")
	}

	claims := jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)

	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Wrap(apperr.KindExpired, "bearer token expired", err)
		}
		return "", apperr.Wrap(apperr.KindUnauthorized, "invalid bearer token", err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", apperr.New(apperr.KindUnauthorized, "bearer token has no subject")
	}
	return subject, nil
}
