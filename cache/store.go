package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrNotFound is returned by Get when no entry exists for the key
	// in the given generation.
	ErrNotFound = errors.New("cache entry not found")
	// ErrUnknownBackend is returned by Open for unrecognized backend names.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// Entry is a stored HTTP response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store is a durable store of HTTP responses, partitioned into named
// generations. A generation holds the responses cached by one deployed
// version of the gateway; superseded generations are dropped wholesale.
//
// Implementations must be safe for concurrent use. Individual operations
// are atomic; callers need no cross-request coordination.
type Store interface {
	// Get returns the entry stored under key in the given generation,
	// or ErrNotFound.
	Get(ctx context.Context, generation, key string) (*Entry, error)
	// Put stores the entry under key in the given generation,
	// replacing any previous entry for the same key.
	Put(ctx context.Context, generation, key string, e *Entry) error
	// Delete removes the entry for key, if present.
	Delete(ctx context.Context, generation, key string) error
	// Keys returns all keys stored in the given generation.
	Keys(ctx context.Context, generation string) ([]string, error)
	// Generations returns the names of all generations present in the store.
	Generations(ctx context.Context) ([]string, error)
	// DropGeneration removes a generation and every entry in it.
	DropGeneration(ctx context.Context, generation string) error
	Close() error
}

// Open creates a store for the named backend.
// Recognized backends are "sqlite", "leveldb" and "memory".
// The path argument is the database file (sqlite) or directory (leveldb);
// an empty path opens sqlite in memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "sqlite":
		return NewSQLiteStore(path)
	case "leveldb":
		return NewLevelDBStore(path)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, ErrUnknownBackend
}

// Key returns the cache identity of a request: method plus request URI.
// The query string is part of the identity even though it plays no role
// in request classification.
func Key(r *http.Request) string {
	return r.Method + " " + r.URL.RequestURI()
}

func encodeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(b []byte) (*Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func init() {
	gob.Register(http.Header{})
}
