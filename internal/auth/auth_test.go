package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/relayforge/knowbase/internal/apperr"
)

func sign(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifySubjectAcceptsValidToken(t *testing.T) {
	v := NewVerifier("secret", "knowbase")
	signed := sign(t, "secret", jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    "knowbase",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	sub, err := v.VerifySubject("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "user-123" {
		t.Fatalf("expected subject user-123, got %s", sub)
	}
}

func TestVerifySubjectRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("secret", "knowbase")
	signed := sign(t, "other-secret", jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.VerifySubject(signed); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected KindUnauthorized, got %v", err)
	}
}

func TestVerifySubjectRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("secret", "")
	signed := sign(t, "secret", jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, err := v.VerifySubject(signed); !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected KindExpired, got %v", err)
	}
}

func TestVerifySubjectRejectsWrongIssuer(t *testing.T) {
	v := NewVerifier("secret", "knowbase")
	signed := sign(t, "secret", jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.VerifySubject(signed); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected KindUnauthorized for mismatched issuer, got %v", err)
	}
}

func TestVerifySubjectRejectsEmptyHeader(t *testing.T) {
	v := NewVerifier("secret", "")
	if _, err := v.VerifySubject(""); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected KindUnauthorized for empty header, got %v", err)
	}
}

func TestVerifySubjectRejectsMissingSubject(t *testing.T) {
	v := NewVerifier("secret", "")
	signed := sign(t, "secret", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := v.VerifySubject(signed); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected KindUnauthorized for missing subject, got %v", err)
	}
}
