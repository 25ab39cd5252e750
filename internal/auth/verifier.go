// Package auth is the identity collaborator: it turns an opaque signed
// token into a participant ID. The routing core calls Verify exactly
// once per connection, at registration, and trusts the identity for the
// session's lifetime.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the custom claims structure carried in tokens.
type Claims struct {
	ParticipantID string `json:"sub"`
	DisplayName   string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates and issues participant tokens.
type Verifier struct {
	secretKey []byte
	issuer    string
	validity  time.Duration
}

// NewVerifier creates a Verifier.
func NewVerifier(secretKey, issuer string, validity time.Duration) *Verifier {
	return &Verifier{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		validity:  validity,
	}
}

// GenerateToken creates a signed token for a participant. The routing
// core itself never issues tokens; this exists for tooling and tests.
func (v *Verifier) GenerateToken(participantID, displayName string) (string, error) {
	claims := Claims{
		ParticipantID: participantID,
		DisplayName:   displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}

// Verify parses and validates a token string and returns the
// participant ID it certifies.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ParticipantID == "" {
		return "", ErrInvalidToken
	}
	return claims.ParticipantID, nil
}
