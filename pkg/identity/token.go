package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallerClaims binds a bearer token to a caller address. The subject is
// the address; writes on the HTTP surface derive their caller identity
// from it.
type CallerClaims struct {
	jwt.RegisteredClaims
}

// TokenManager signs and validates caller tokens with an HMAC secret.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager creates a TokenManager from a shared secret.
func NewTokenManager(secret []byte) *TokenManager {
	return &TokenManager{secret: secret, issuer: "trustmesh/identity"}
}

// Generate creates a signed token for a caller address.
func (tm *TokenManager) Generate(addr Address, duration time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(addr),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Validate parses a token and returns the caller address it asserts.
func (tm *TokenManager) Validate(tokenString string) (Address, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenSignatureInvalid
	}
	return Address(claims.Subject), nil
}
