package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is the single failure outcome of session validation.
// Missing, malformed, tampered and expired credentials all collapse into it.
var ErrInvalidCredential = errors.New("invalid session credential")

const opaqueTokenBytes = 32

// Claims defines the JWT claims carried by a session credential.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer generates opaque one-time tokens and signed session credentials.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewIssuer(secret string, sessionTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// SessionTTL returns the configured lifetime of issued session credentials.
func (i *Issuer) SessionTTL() time.Duration {
	return i.sessionTTL
}

// NewOpaqueToken returns a 256-bit random token encoded as hex, used for email
// verification and password reset links.
func (i *Issuer) NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueSession signs a session credential for the given subject.
func (i *Issuer) IssueSession(userID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.sessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session credential: %w", err)
	}
	return signed, nil
}

// ValidateSession parses and verifies a session credential. Expiry is the only
// invalidation mechanism; no revocation list is consulted.
func (i *Issuer) ValidateSession(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidCredential
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.UserID == "" {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
