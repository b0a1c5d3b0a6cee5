// Package kv is a small expiring key-value store used for revoked tokens and
// password reset tokens.
package kv

import (
	"context"
	"time"
)

type Store interface {
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error) // val, found, err
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
