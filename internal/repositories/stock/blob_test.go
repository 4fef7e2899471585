package stock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinly/internal/blobstore"
	"spinly/internal/models"
	"spinly/internal/types"
)

type failingStore struct {
	blobstore.Store
	err error
}

func (f failingStore) Get(ctx context.Context, key string) (*blobstore.Blob, error) {
	return nil, f.err
}

func (f failingStore) Set(ctx context.Context, key string, data []byte, meta blobstore.Metadata) error {
	return f.err
}

func TestBlobRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobRepository(blobstore.NewMemoryStore())

	items := []models.Item{
		{ID: "1", Name: "A", Quantity: 5, IsWinner: true},
		{ID: "2", Name: "B", Quantity: 0},
		{ID: "3", Name: "C", Quantity: 2, Color: "#EB1C24"},
	}
	require.NoError(t, repo.Replace(ctx, items))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, all)

	available, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "1", available[0].ID)
	assert.Equal(t, "3", available[1].ID)
}

func TestBlobRepository_EmptyStore(t *testing.T) {
	repo := NewBlobRepository(blobstore.NewMemoryStore())

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestBlobRepository_DuplicateIDRejectedWithoutWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobRepository(blobstore.NewMemoryStore())
	original := []models.Item{{ID: "x", Name: "Original", Quantity: 1}}
	require.NoError(t, repo.Replace(ctx, original))

	err := repo.Replace(ctx, []models.Item{
		{ID: "a", Name: "First", Quantity: 1},
		{ID: "a", Name: "Second", Quantity: 3},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	stored, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, stored)
}

func TestBlobRepository_MalformedItemRejected(t *testing.T) {
	repo := NewBlobRepository(blobstore.NewMemoryStore())

	err := repo.Replace(context.Background(), []models.Item{{ID: "1", Name: "A", Quantity: -3}})
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestBlobRepository_StorageFailuresAreIOErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobRepository(failingStore{err: errors.New("disk full")})

	_, err := repo.List(ctx)
	assert.True(t, types.IsCode(err, types.ErrIO))

	err = repo.Replace(ctx, []models.Item{{ID: "1", Name: "A"}})
	assert.True(t, types.IsCode(err, types.ErrIO))
}

func TestBlobRepository_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, itemsKey, []byte(`[{"id":"1","name":"A"},{"id":"1","name":"B"}]`), nil))

	_, err := NewBlobRepository(store).List(ctx)
	assert.True(t, types.IsCode(err, types.ErrIO))

	require.NoError(t, store.Set(ctx, itemsKey, []byte(`{not json`), nil))
	_, err = NewBlobRepository(store).List(ctx)
	assert.True(t, types.IsCode(err, types.ErrIO))
}

func TestSeedFromYAML(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stock.yaml")
	seed := `items:
  - id: "1"
    name: Whiskey Cola Cap
    quantity: 10
    color: "#D5AE60"
    isWinner: true
  - id: "2"
    name: Try Again
    quantity: 99
`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))
	repo := NewBlobRepository(blobstore.NewMemoryStore())

	seeded, err := SeedFromYAML(ctx, repo, path)
	require.NoError(t, err)
	assert.True(t, seeded)

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Whiskey Cola Cap", items[0].Name)
	assert.True(t, items[0].IsWinner)
	assert.False(t, items[1].IsWinner)

	// A non-empty repository is left alone.
	seeded, err = SeedFromYAML(ctx, repo, path)
	require.NoError(t, err)
	assert.False(t, seeded)
}
