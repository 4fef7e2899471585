// Package assets stores uploaded item images and serves them back.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"spinly/internal/blobstore"
	"spinly/internal/types"
)

const (
	// UploadsStore is the blob store that receives uploads.
	UploadsStore = "uploads"

	fallbackContentType = "application/octet-stream"
	maxNameLen          = 64
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Asset is a stored binary with its content type.
type Asset struct {
	Data        []byte
	ContentType string
	Name        string
}

// Store puts and gets binary assets on a blob provider.
type Store struct {
	provider blobstore.Provider
	newID    func() string
}

// NewStore creates an asset store.
func NewStore(provider blobstore.Provider) *Store {
	return &Store{provider: provider, newID: func() string { return uuid.New().String() }}
}

// Put stores data under a generated key and returns the URL it is served from.
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", types.NewError(types.ErrValidation, "empty upload")
	}
	store, err := s.provider.Store(UploadsStore)
	if err != nil {
		return "", types.WrapError(types.ErrIO, "failed to open upload store", err)
	}

	key := fmt.Sprintf("upload-%s-%s", s.newID(), cleanName(name))
	meta := blobstore.Metadata{"name": name, "contentType": contentType}
	if err := store.Set(ctx, key, data, meta); err != nil {
		return "", types.WrapError(types.ErrIO, "failed to store upload", err)
	}
	return URL(UploadsStore, key), nil
}

// Get returns the asset stored under key in the named store.
func (s *Store) Get(ctx context.Context, storeName, key string) (*Asset, error) {
	store, err := s.provider.Store(storeName)
	if err != nil {
		return nil, err
	}
	blob, err := store.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, types.Errorf(types.ErrNotFound, "blob %s/%s not found", storeName, key)
	}
	if err != nil {
		return nil, types.WrapError(types.ErrIO, "failed to fetch blob", err)
	}

	ct := blob.Metadata["contentType"]
	if ct == "" {
		ct = fallbackContentType
	}
	return &Asset{Data: blob.Data, ContentType: ct, Name: blob.Metadata["name"]}, nil
}

// URL is the path an asset is served from.
func URL(storeName, key string) string {
	return "/api/blob/" + storeName + "/" + key
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > maxNameLen {
		name = name[len(name)-maxNameLen:]
	}
	return name
}
