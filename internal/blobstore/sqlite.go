package blobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createBlobsTableSQL = `
	CREATE TABLE IF NOT EXISTS blobs (
		store TEXT NOT NULL,
		key TEXT NOT NULL,
		data BLOB NOT NULL,
		metadata TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (store, key)
	)`

// SQLiteProvider keeps every store in one SQLite table.
type SQLiteProvider struct {
	db *sql.DB
}

// NewSQLiteProvider opens (or creates) the database at dbPath.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.Exec(createBlobsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating blobs table: %w", err)
	}

	return &SQLiteProvider{db: db}, nil
}

// Store returns a view of the blobs table scoped to name.
func (p *SQLiteProvider) Store(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: p.db, name: name}, nil
}

// Close closes the database.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

// SQLiteStore is one named store inside the blobs table.
type SQLiteStore struct {
	db   *sql.DB
	name string
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Blob, error) {
	query := `SELECT data, metadata FROM blobs WHERE store = ? AND key = ?`

	var data []byte
	var rawMeta sql.NullString
	err := s.db.QueryRowContext(ctx, query, s.name, key).Scan(&data, &rawMeta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ioError("get", s.name, key, err)
	}

	var meta Metadata
	if rawMeta.Valid && rawMeta.String != "" {
		if err := json.Unmarshal([]byte(rawMeta.String), &meta); err != nil {
			return nil, ioError("get", s.name, key, fmt.Errorf("corrupt metadata: %w", err))
		}
	}
	if data == nil {
		data = []byte{}
	}
	return &Blob{Key: key, Data: data, Metadata: meta}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	var rawMeta sql.NullString
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return ioError("set", s.name, key, err)
		}
		rawMeta = sql.NullString{String: string(raw), Valid: true}
	}
	if data == nil {
		data = []byte{}
	}

	query := `
		INSERT INTO blobs (store, key, data, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store, key) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`
	updatedAt := time.Now().UTC().Format("2006-01-02 15:04:05")
	if _, err := s.db.ExecContext(ctx, query, s.name, key, data, rawMeta, updatedAt); err != nil {
		return ioError("set", s.name, key, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM blobs WHERE store = ?`, s.name)
	if err != nil {
		return nil, ioError("list", s.name, "", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, ioError("list", s.name, "", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("list", s.name, "", err)
	}
	return keys, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE store = ? AND key = ?`, s.name, key)
	if err != nil {
		return ioError("delete", s.name, key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return ioError("delete", s.name, key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
