// Package blobstore provides named key/value blob stores. Every backend
// exposes the same small surface: get, set, list and delete.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"spinly/internal/types"
)

// ErrNotFound is returned by Get and Delete for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Metadata is free-form string metadata stored alongside a blob.
type Metadata map[string]string

// Blob is a stored value.
type Blob struct {
	Key      string
	Data     []byte
	Metadata Metadata
}

// Store is a single named blob store.
type Store interface {
	// Get returns the blob for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Blob, error)
	// Set creates or replaces the blob for key.
	Set(ctx context.Context, key string, data []byte, meta Metadata) error
	// List returns all keys in the store, in no particular order.
	List(ctx context.Context) ([]string, error)
	// Delete removes key, or returns ErrNotFound.
	Delete(ctx context.Context, key string) error
}

// Provider opens named stores on one backend.
type Provider interface {
	Store(name string) (Store, error)
	Close() error
}

// MaxKeyLen keeps encoded keys within common file name limits.
const MaxKeyLen = 160

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks a store name. Names end up in file paths and redis
// keys, so they are restricted to a safe alphabet.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return types.Errorf(types.ErrNotFound, "invalid store name %q", name)
	}
	return nil
}

// ValidateKey rejects keys no backend can hold.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLen {
		return types.Errorf(types.ErrValidation, "invalid blob key %q", key)
	}
	return nil
}

func ioError(op, store, key string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return types.WrapError(types.ErrIO, fmt.Sprintf("%s %s/%s", op, store, key), err)
}

func copyMeta(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
