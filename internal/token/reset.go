// Package token issues and verifies the signed, time-limited tokens embedded
// in password-reset links.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, expired,
// malformed, wrong claims. Callers must not distinguish the causes in
// user-facing output.
var ErrInvalidToken = errors.New("invalid or expired reset token")

// ResetIssuer creates and verifies HMAC-signed reset tokens carrying a user id
// and an expiry. A token stays valid for any number of uses until it expires;
// single use is intentionally not enforced (see DESIGN.md).
type ResetIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewResetIssuer returns an issuer signing with the given secret. ttl is the
// default token lifetime.
func NewResetIssuer(secret string, ttl time.Duration) *ResetIssuer {
	return &ResetIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user id using the default lifetime.
func (i *ResetIssuer) Issue(userID uint) (string, error) {
	return i.IssueWithTTL(userID, i.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime.
func (i *ResetIssuer) IssueWithTTL(userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing reset token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded user id.
func (i *ResetIssuer) Verify(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}
