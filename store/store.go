// Package store defines the key-value capability that owns every durable record:
// authorization codes, refresh tokens and client registrations.
package store

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = apperrors.ErrNotFound

// ErrUnavailable wraps backend failures. Callers must not treat it as a missing key.
var ErrUnavailable = apperrors.ErrStoreUnavailable

const (
	AuthCodePrefix = "authcode:"
	RefreshPrefix  = "refresh:"
	ClientPrefix   = "client:"
)

// Store is a key-value store with optional per-key expiry.
type Store interface {
	// Get returns ErrNotFound for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key. A ttl of zero never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Take atomically reads and removes key. Of several concurrent callers
	// at most one receives the value; the rest get ErrNotFound.
	Take(ctx context.Context, key string) ([]byte, error)
}

func AuthCodeKey(code string) string { return AuthCodePrefix + code }

func RefreshKey(token string) string { return RefreshPrefix + token }

func ClientKey(clientID string) string { return ClientPrefix + clientID }

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return decode(key, data, v)
}

// TakeJSON atomically consumes key and decodes it into v.
func TakeJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Take(ctx, key)
	if err != nil {
		return err
	}
	return decode(key, data, v)
}

// PutJSON encodes v and writes it under key.
func PutJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrapf(err, "encode %s", keyKind(key))
	}
	return s.Put(ctx, key, data, ttl)
}

func decode(key string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrapf(err, "decode %s", keyKind(key))
	}
	return nil
}

// keyKind names the record type without echoing the key, which may be a live credential.
func keyKind(key string) string {
	for _, prefix := range []string{AuthCodePrefix, RefreshPrefix, ClientPrefix} {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return prefix[:len(prefix)-1] + " record"
		}
	}
	return "record"
}
