// Package auth hashes passwords and issues and verifies stateless session
// tokens (HS256 JWTs carrying sub, iat and exp).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned by NewTokenIssuer when the signing secret is empty.
var ErrNoSecret = errors.New("auth: signing secret is empty")

// TokenIssuer signs and verifies session tokens with a process secret.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenIssuer refuses an empty secret so that unsigned tokens can never be
// issued.
func NewTokenIssuer(secret string, validity time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &TokenIssuer{secret: []byte(secret), validity: validity, now: time.Now}, nil
}

// WithClock replaces the time source; intended for tests.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// Issue returns a token for userID valid for the configured lifetime.
func (i *TokenIssuer) Issue(userID string) (string, error) {
	iat := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(i.validity)),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the subject of a valid token. Every failure (malformed,
// bad signature, expired, missing subject) yields common.ErrInvalidToken.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
