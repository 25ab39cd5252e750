package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndVerify(t *testing.T) {
	v := NewVerifier("test-secret", "baatcheet", time.Hour)

	token, err := v.GenerateToken("u1", "User One")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	participantID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("failed to verify token: %v", err)
	}
	if participantID != "u1" {
		t.Errorf("participant = %s, want u1", participantID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret", "baatcheet", -time.Minute)

	token, err := v.GenerateToken("u1", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := v.Verify(token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-a", "baatcheet", time.Hour)
	verifier := NewVerifier("secret-b", "baatcheet", time.Hour)

	token, err := issuer.GenerateToken("u1", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier("test-secret", "baatcheet", time.Hour)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := v.Verify(tokenString); err != ErrInvalidToken {
			t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tokenString, err)
		}
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	v := NewVerifier("test-secret", "baatcheet", time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "baatcheet",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for empty subject, got %v", err)
	}
}

func TestVerifyRejectsWrongSigningMethod(t *testing.T) {
	v := NewVerifier("test-secret", "baatcheet", time.Hour)

	// alg=none tokens must never verify.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ParticipantID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}
