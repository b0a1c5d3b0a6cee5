// Package auth issues and verifies session tokens.
//
// Tokens are HS256 JWTs whose subject is the user ID. A token is accepted from
// the Authorization header ("Bearer <token>") or from the "token" cookie.
// Logging out revokes a token by storing its ID in the key-value store until
// the token would have expired anyway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-signpdf/internal/kv"
	"go-signpdf/internal/users"
	"go-signpdf/internal/utils"
)

const (
	CookieName = "token"

	revokedKeyPrefix = "revoked:"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnknownUser  = errors.New("user not found")
)

type Authenticator struct {
	Secret []byte
	Expire time.Duration
	KV     kv.Store
	Users  users.Store
}

func NewAuthenticator(secret string, expire time.Duration, keys kv.Store, dir users.Store) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Expire: expire, KV: keys, Users: dir}
}

// Issue returns a signed token for userID.
func (a *Authenticator) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.Expire)
	claims := jwt.RegisteredClaims{
		ID:        utils.GenerateUUID(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signed and returns its claims. Revocation is not checked.
func (a *Authenticator) Parse(signed string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Authenticate resolves the caller of r to a user ID.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	signed := TokenFromRequest(r)
	if signed == "" {
		return "", ErrUnauthorized
	}
	claims, err := a.Parse(signed)
	if err != nil {
		return "", err
	}
	revoked, err := a.KV.Exists(r.Context(), revokedKeyPrefix+claims.ID)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", ErrUnauthorized
	}
	if _, err := a.Users.FindByID(r.Context(), claims.Subject); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", ErrUnknownUser
		}
		return "", err
	}
	return claims.Subject, nil
}

// Revoke invalidates signed for the rest of its lifetime. Tokens that fail
// verification are ignored.
func (a *Authenticator) Revoke(ctx context.Context, signed string) error {
	claims, err := a.Parse(signed)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return a.KV.Set(ctx, revokedKeyPrefix+claims.ID, claims.Subject, ttl)
}

// TokenFromRequest returns the bearer token of r, falling back to the token
// cookie.
func TokenFromRequest(r *http.Request) string {
	if token := ExtractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
