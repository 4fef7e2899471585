package blobstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	blobSuffix = ".blob"
	metaSuffix = ".meta.json"
)

// FileProvider stores each named store as a directory under root.
type FileProvider struct {
	root string

	mu     sync.Mutex
	stores map[string]*FileStore
}

// NewFileProvider creates root if needed.
func NewFileProvider(root string) (*FileProvider, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileProvider{root: root, stores: make(map[string]*FileStore)}, nil
}

// Store returns the named store, creating its directory on first use.
func (p *FileProvider) Store(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[name]; ok {
		return s, nil
	}
	dir := filepath.Join(p.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ioError("open", name, "", err)
	}
	s := &FileStore{name: name, dir: dir}
	p.stores[name] = s
	return s, nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }

// FileStore keeps one data file and one metadata sidecar per key. Keys are
// base64url-encoded into file names so any key is a safe path element.
type FileStore struct {
	name string
	dir  string
	mu   sync.RWMutex
}

func (s *FileStore) path(key, suffix string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+suffix)
}

func (s *FileStore) Get(ctx context.Context, key string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key, blobSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ioError("get", s.name, key, err)
	}

	var meta Metadata
	raw, err := os.ReadFile(s.path(key, metaSuffix))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, ioError("get", s.name, key, err)
	default:
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, ioError("get", s.name, key, fmt.Errorf("corrupt metadata: %w", err))
		}
	}

	return &Blob{Key: key, Data: data, Metadata: meta}, nil
}

func (s *FileStore) Set(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return ioError("set", s.name, key, err)
		}
		if err := writeAtomic(s.dir, s.path(key, metaSuffix), raw); err != nil {
			return ioError("set", s.name, key, err)
		}
	} else if err := os.Remove(s.path(key, metaSuffix)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError("set", s.name, key, err)
	}

	if err := writeAtomic(s.dir, s.path(key, blobSuffix), data); err != nil {
		return ioError("set", s.name, key, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ioError("list", s.name, "", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), blobSuffix) {
			continue
		}
		key, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(e.Name(), blobSuffix))
		if err != nil {
			// Not ours.
			continue
		}
		keys = append(keys, string(key))
	}
	return keys, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key, blobSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return ioError("delete", s.name, key, err)
	}
	if err := os.Remove(s.path(key, metaSuffix)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError("delete", s.name, key, err)
	}
	return nil
}

// writeAtomic writes via a temp file in the same directory and renames it
// over path, so readers never see a partial blob.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
