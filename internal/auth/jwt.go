package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, tampered and mis-signed tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken signals the token's lifetime ran out.
	ErrExpiredToken = errors.New("auth: token expired")
)

// JWTManager issues and validates the HS512-signed session tokens.
type JWTManager struct {
	secret   []byte
	lifetime time.Duration
}

func NewJWTManager(secret string, lifetime time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), lifetime: lifetime}
}

// Lifetime is how long issued tokens stay valid.
func (m *JWTManager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue creates a token whose subject is the username.
func (m *JWTManager) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(m.secret)
}

// Validate checks the signature and expiry and returns the subject.
func (m *JWTManager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
