package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/logger"
	"gopkg.in/yaml.v3"

	"spinly/internal/blobstore"
	"spinly/internal/models"
	"spinly/internal/types"
)

const (
	// StoreName is the blob store holding the stock document.
	StoreName = "stock"
	itemsKey  = "items"
)

// BlobRepository stores the ordered item list as a single JSON document, so
// a replace is one blob write and readers always see a whole list.
type BlobRepository struct {
	store blobstore.Store
}

// NewBlobRepository creates a repository on store.
func NewBlobRepository(store blobstore.Store) *BlobRepository {
	return &BlobRepository{store: store}
}

func (r *BlobRepository) List(ctx context.Context) ([]models.Item, error) {
	items, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return models.Available(items), nil
}

func (r *BlobRepository) ListAll(ctx context.Context) ([]models.Item, error) {
	blob, err := r.store.Get(ctx, itemsKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return []models.Item{}, nil
	}
	if err != nil {
		return nil, types.WrapError(types.ErrIO, "failed to read stock", err)
	}

	var items []models.Item
	if err := json.Unmarshal(blob.Data, &items); err != nil {
		return nil, types.WrapError(types.ErrIO, "stock document is corrupt", err)
	}
	// A document written by hand could still be malformed.
	if err := models.ValidateItems(items); err != nil {
		return nil, types.WrapError(types.ErrIO, "stock document is invalid", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

func (r *BlobRepository) Replace(ctx context.Context, items []models.Item) error {
	if err := models.ValidateItems(items); err != nil {
		return err
	}
	if items == nil {
		items = []models.Item{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return types.WrapError(types.ErrIO, "failed to encode stock", err)
	}
	if err := r.store.Set(ctx, itemsKey, data, blobstore.Metadata{"contentType": "application/json"}); err != nil {
		return types.WrapError(types.ErrIO, "failed to write stock", err)
	}
	logger.Infof("Stock replaced with %d items", len(items))
	return nil
}

type seedFile struct {
	Items []models.Item `yaml:"items"`
}

// SeedFromYAML loads items from path into repo if the repository is empty.
// It reports whether a seed was written.
func SeedFromYAML(ctx context.Context, repo Repository, path string) (bool, error) {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	var seed seedFile
	if err := yaml.NewDecoder(f).Decode(&seed); err != nil {
		return false, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	if err := repo.Replace(ctx, seed.Items); err != nil {
		return false, err
	}
	return true, nil
}
