package storage

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a storage key.
const MaxKeyLength = 512

// Sentinel errors for storage operations.
var (
	ErrNilAdapter = errors.New("storage: adapter is nil")
	ErrInvalidKey = errors.New("storage: key is invalid")
	ErrKeyTooLong = errors.New("storage: key exceeds max length")
)

// Adapter is the interface for persisting queue snapshots.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Load returns (nil, false, nil) when the key is absent; an error
//   return means the backend itself failed.
type Adapter interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Load retrieves the data stored under key. The boolean reports
	// whether the key was present.
	Load(ctx context.Context, key string) ([]byte, bool, error)

	// Remove deletes the data stored under key. Idempotent - no error
	// when the key is absent.
	Remove(ctx context.Context, key string) error
}

// ValidateKey checks whether a key is acceptable to all adapters.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
