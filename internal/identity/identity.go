// Package identity issues and verifies anonymous guest identities.
//
// A guest is a random player id plus a display name, carried in an HS256
// signed token. There are no accounts.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

var (
	ErrInvalidSigningAlg = errors.New("unexpected token signing method")
	ErrExpiredToken      = errors.New("token expired")
	ErrInvalidToken      = errors.New("invalid token")
)

// Guest is the identity attached to a request.
type Guest struct {
	ID   string `json:"playerId"`
	Name string `json:"name"`
}

type guestClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewIssuer(secretKey string, maxAge time.Duration) *Issuer {
	return &Issuer{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

// Issue creates a new guest named name and signs a token for it.
func (i *Issuer) Issue(name string, now time.Time) (Guest, string, error) {
	name, err := quiz.NormalizeName(name)
	if err != nil {
		return Guest{}, "", err
	}
	g := Guest{ID: uuid.NewString(), Name: name}

	claims := guestClaims{
		Name: g.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secretKey)
	if err != nil {
		return Guest{}, "", fmt.Errorf("signing token: %w", err)
	}
	return g, signed, nil
}

// Verify checks the token signature and expiry at now.
func (i *Issuer) Verify(token string, now time.Time) (Guest, error) {
	parsed, err := jwt.ParseWithClaims(token, &guestClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningAlg
		}
		return i.secretKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))

	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSigningAlg):
			return Guest{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return Guest{}, ErrExpiredToken
		default:
			return Guest{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	claims, ok := parsed.Claims.(*guestClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Guest{}, ErrInvalidToken
	}
	return Guest{ID: claims.Subject, Name: claims.Name}, nil
}
