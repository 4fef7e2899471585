package spinlog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"spinly/internal/blobstore"
	"spinly/internal/models"
	"spinly/internal/types"
)

// StoreName is the blob store holding log entries.
const StoreName = "logs"

// BlobSink writes one blob per entry. Keys carry a random suffix so two
// entries for the same item at the same instant never share a blob.
type BlobSink struct {
	store  blobstore.Store
	suffix func() string
}

// NewBlobSink creates a sink on store.
func NewBlobSink(store blobstore.Store) *BlobSink {
	return &BlobSink{store: store, suffix: shortID}
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Key returns the storage key of an entry: <RFC3339Nano>_<itemId>_<suffix>.
func Key(entry models.LogEntry, suffix string) string {
	return entry.Timestamp.UTC().Format(time.RFC3339Nano) + "_" + entry.ItemID + "_" + suffix
}

func (s *BlobSink) Append(ctx context.Context, entry models.LogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.ID = ""

	data, err := json.Marshal(entry)
	if err != nil {
		return types.WrapError(types.ErrIO, "failed to encode log entry", err)
	}
	key, err := s.freeKey(ctx, entry)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, data, blobstore.Metadata{"contentType": "application/json"}); err != nil {
		return types.WrapError(types.ErrIO, "failed to append log entry", err)
	}
	return nil
}

// freeKey returns a key no existing entry uses. The log is append-only, so
// an occupied key is never written over.
func (s *BlobSink) freeKey(ctx context.Context, entry models.LogEntry) (string, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		key := Key(entry, s.suffix())
		_, err := s.store.Get(ctx, key)
		if errors.Is(err, blobstore.ErrNotFound) {
			return key, nil
		}
		if err != nil {
			return "", types.WrapError(types.ErrIO, "failed to check log key", err)
		}
	}
	return "", types.Errorf(types.ErrIO, "no free log key for item %s after %d attempts", entry.ItemID, attempts)
}

func (s *BlobSink) List(ctx context.Context) ([]models.LogEntry, error) {
	keys, err := s.store.List(ctx)
	if err != nil {
		return nil, types.WrapError(types.ErrIO, "failed to list log entries", err)
	}

	entries := make([]models.LogEntry, 0, len(keys))
	for _, key := range keys {
		blob, err := s.store.Get(ctx, key)
		if errors.Is(err, blobstore.ErrNotFound) {
			// Deleted between List and Get.
			continue
		}
		if err != nil {
			return nil, types.WrapError(types.ErrIO, "failed to read log entry", err)
		}

		var entry models.LogEntry
		if err := json.Unmarshal(blob.Data, &entry); err != nil {
			logger.Warningf("Skipping unreadable log entry %s: %v", key, err)
			continue
		}
		if err := entry.Validate(); err != nil {
			logger.Warningf("Skipping malformed log entry %s: %v", key, err)
			continue
		}
		entry.ID = key
		entries = append(entries, entry)
	}
	return entries, nil
}
