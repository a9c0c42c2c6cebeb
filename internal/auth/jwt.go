// Package auth verifies the access tokens the hosted identity provider hands
// to the app. Sign-up and passwords stay with the provider.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultAudience = "authenticated"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
)

type TokenMaker struct {
	secret   []byte
	audience string
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{
		secret:   []byte(secret),
		audience: DefaultAudience,
	}
}

// Claims follows the provider's access token: the user id is the subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) UserID() string { return c.Subject }

// New mints a token with the same shape as the provider's. Used by local
// tooling and tests.
func (t *TokenMaker) New(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Email: email,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenMaker) Parse(tokenStr string) (Claims, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if strings.TrimSpace(c.Subject) == "" {
		return Claims{}, ErrNoSubject
	}
	return c, nil
}
