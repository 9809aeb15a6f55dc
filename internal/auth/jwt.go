// Package auth authenticates a caller's identity from a bearer JWT. It
// never decides what that caller may do — role and status live in the
// actors table and are resolved by internal/core's policy guard, not from
// token claims, so a stale or forged role claim can't grant access.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT claims this service issues and verifies. Subject
// is the actor id, formatted as a decimal string per the JWT spec's
// requirement that "sub" be a string.
type Claims struct {
	jwt.RegisteredClaims
}

// ActorID parses the subject claim back into an actor id.
func (c *Claims) ActorID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// ValidateToken parses and validates a JWT token string with the given
// secret.
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("no secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// NewToken issues a token identifying actorID, valid for expiry.
func NewToken(secret []byte, actorID int64, expiry time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("no secret configured")
	}
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
