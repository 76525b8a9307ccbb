package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is the default durable store, backed by a single sqlite
// database file. An empty filename opens a shared in-memory database.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex sync.Mutex
}

func NewSQLiteStore(filename string) (*SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		generation TEXT NOT NULL,
		key TEXT NOT NULL,
		stored_at INTEGER,
		bytes BLOB,
		PRIMARY KEY (generation, key)
	)`)
	if err != nil {
		return nil, fmt.Errorf("create responses table: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, generation, key string) (*Entry, error) {
	var bytes []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT bytes FROM responses WHERE generation = ? AND key = ?",
		generation, key,
	).Scan(&bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(bytes)
}

func (s *SQLiteStore) Put(ctx context.Context, generation, key string, e *Entry) error {
	b, err := encodeEntry(e)
	if err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO responses (generation, key, stored_at, bytes) VALUES (?, ?, ?, ?)",
		generation, key, e.StoredAt.Unix(), b)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, generation, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM responses WHERE generation = ? AND key = ?", generation, key)
	return err
}

func (s *SQLiteStore) Keys(ctx context.Context, generation string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM responses WHERE generation = ? ORDER BY key", generation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Generations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT generation FROM responses ORDER BY generation")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	generations := make([]string, 0)
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return generations, err
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

func (s *SQLiteStore) DropGeneration(ctx context.Context, generation string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM responses WHERE generation = ?", generation)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
