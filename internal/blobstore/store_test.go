package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"spinly/internal/types"
)

// StoreTestSuite runs the same contract against every backend.
type StoreTestSuite struct {
	suite.Suite
	newProvider func() (Provider, error)

	provider Provider
	store    Store
}

func (s *StoreTestSuite) SetupTest() {
	p, err := s.newProvider()
	s.Require().NoError(err)
	s.provider = p

	st, err := p.Store("suite")
	s.Require().NoError(err)
	s.store = st

	// Redis persists across tests; start clean.
	keys, err := st.List(context.Background())
	s.Require().NoError(err)
	for _, k := range keys {
		s.Require().NoError(st.Delete(context.Background(), k))
	}
}

func (s *StoreTestSuite) TearDownTest() {
	s.Require().NoError(s.provider.Close())
}

func (s *StoreTestSuite) TestSetAndGet() {
	ctx := context.Background()
	meta := Metadata{"contentType": "image/png", "name": "cap.png"}

	s.Require().NoError(s.store.Set(ctx, "upload-1-cap.png", []byte{0x89, 'P', 'N', 'G'}, meta))

	blob, err := s.store.Get(ctx, "upload-1-cap.png")
	s.Require().NoError(err)
	s.Equal("upload-1-cap.png", blob.Key)
	s.Equal([]byte{0x89, 'P', 'N', 'G'}, blob.Data)
	s.Equal(meta, blob.Metadata)
}

func (s *StoreTestSuite) TestOverwriteReplacesMetadata() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "items", []byte("v1"), Metadata{"a": "1"}))
	s.Require().NoError(s.store.Set(ctx, "items", []byte("v2"), nil))

	blob, err := s.store.Get(ctx, "items")
	s.Require().NoError(err)
	s.Equal("v2", string(blob.Data))
	s.Empty(blob.Metadata)
}

func (s *StoreTestSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "nope")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreTestSuite) TestListAndDelete() {
	ctx := context.Background()
	for _, k := range []string{"2025-01-01T00:00:00Z_1", "2025-01-02T00:00:00Z_2", "weird/key with spaces"} {
		s.Require().NoError(s.store.Set(ctx, k, []byte(k), nil))
	}

	keys, err := s.store.List(ctx)
	s.Require().NoError(err)
	sort.Strings(keys)
	s.Equal([]string{"2025-01-01T00:00:00Z_1", "2025-01-02T00:00:00Z_2", "weird/key with spaces"}, keys)

	s.Require().NoError(s.store.Delete(ctx, "weird/key with spaces"))
	s.ErrorIs(s.store.Delete(ctx, "weird/key with spaces"), ErrNotFound)

	keys, err = s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(keys, 2)
}

func (s *StoreTestSuite) TestStoresAreIsolated() {
	ctx := context.Background()
	other, err := s.provider.Store("other")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Set(ctx, "shared", []byte("mine"), nil))
	_, err = other.Get(ctx, "shared")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreTestSuite) TestRejectsBadNamesAndKeys() {
	_, err := s.provider.Store("../escape")
	s.Error(err)

	err = s.store.Set(context.Background(), "", []byte("x"), nil)
	s.True(types.IsCode(err, types.ErrValidation))
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{newProvider: func() (Provider, error) {
		return NewMemoryProvider(), nil
	}})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	suite.Run(t, &StoreTestSuite{newProvider: func() (Provider, error) {
		sub, err := os.MkdirTemp(dir, "blobs")
		if err != nil {
			return nil, err
		}
		return NewFileProvider(sub)
	}})
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	suite.Run(t, &StoreTestSuite{newProvider: func() (Provider, error) {
		f, err := os.CreateTemp(dir, "*.db")
		if err != nil {
			return nil, err
		}
		f.Close()
		return NewSQLiteProvider(f.Name())
	}})
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SPINLY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SPINLY_TEST_REDIS_ADDR not set")
	}
	suite.Run(t, &StoreTestSuite{newProvider: func() (Provider, error) {
		return NewRedisProvider(context.Background(), RedisOptions{Addr: addr, Prefix: "spinly-test"})
	}})
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	p, err := NewFileProvider(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st, err := p.Store("logs")
	if err != nil {
		t.Fatal(err)
	}
	fs := st.(*FileStore)
	if err := os.WriteFile(filepath.Join(fs.dir, "README.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fs.dir, "!!!.blob"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	keys, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "s3"}); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}
