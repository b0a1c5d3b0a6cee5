package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-signpdf/internal/kv"
	"go-signpdf/internal/utils"
)

const resetKeyPrefix = "reset:"

// Accounts implements the account flows on top of a Store. Reset tokens are
// kept in KV under the SHA-256 of the token, never the token itself.
type Accounts struct {
	Store    Store
	KV       kv.Store
	ResetTTL time.Duration
	now      func() time.Time
}

func NewAccounts(store Store, keys kv.Store, resetTTL time.Duration) *Accounts {
	return &Accounts{Store: store, KV: keys, ResetTTL: resetTTL, now: time.Now}
}

func (a *Accounts) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := a.now().UTC()
	u := &User{
		ID:           utils.GenerateUUID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login returns the user owning email if password matches.
func (a *Accounts) Login(ctx context.Context, email, password string) (*User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, inputError("Please Enter Email & Password")
	}
	u, err := a.Store.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *Accounts) Get(ctx context.Context, id string) (*User, error) {
	return a.Store.FindByID(ctx, id)
}

func (a *Accounts) UpdateProfile(ctx context.Context, id, name, email string) (*User, error) {
	u, err := a.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	u.Name, u.Email = name, email
	u.UpdatedAt = a.now().UTC()
	if err := a.Store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Accounts) UpdatePassword(ctx context.Context, id, oldPassword, newPassword, confirm string) (*User, error) {
	u, err := a.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(oldPassword) {
		return nil, inputError("Old password is incorrect")
	}
	if newPassword != confirm {
		return nil, inputError("Passwords do not match")
	}
	if err := a.setPassword(ctx, u, newPassword); err != nil {
		return nil, err
	}
	return u, nil
}

// StartReset issues a reset token for the user registered under email.
func (a *Accounts) StartReset(ctx context.Context, email string) (string, *User, error) {
	u, err := a.Store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, err
	}
	token, digest, err := utils.GenerateToken(20)
	if err != nil {
		return "", nil, err
	}
	if err := a.KV.Set(ctx, resetKeyPrefix+digest, u.ID, a.ResetTTL); err != nil {
		return "", nil, fmt.Errorf("store reset token: %w", err)
	}
	return token, u, nil
}

// CancelReset drops a token issued by StartReset, e.g. when the mail could
// not be sent.
func (a *Accounts) CancelReset(ctx context.Context, token string) error {
	_, err := a.KV.Delete(ctx, resetKeyPrefix+utils.HashToken(token))
	return err
}

// CompleteReset sets a new password for the owner of token. Tokens are
// single use.
func (a *Accounts) CompleteReset(ctx context.Context, token, password, confirm string) (*User, error) {
	key := resetKeyPrefix + utils.HashToken(token)
	id, found, err := a.KV.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load reset token: %w", err)
	}
	if !found {
		return nil, ErrInvalidResetToken
	}
	if password != confirm {
		return nil, inputError("Passwords do not match")
	}
	u, err := a.Store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}
	if err := a.setPassword(ctx, u, password); err != nil {
		return nil, err
	}
	if _, err := a.KV.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("drop reset token: %w", err)
	}
	return u, nil
}

func (a *Accounts) setPassword(ctx context.Context, u *User, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = a.now().UTC()
	return a.Store.Update(ctx, u)
}
