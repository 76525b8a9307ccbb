package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// entry keys are "e:<generation>\x00<key>"; the NUL separator keeps
// generation names and request keys from colliding in the flat keyspace
const entryPrefix = "e:"

// LevelDBStore is an alternate durable backend storing entries in a
// leveldb directory.
type LevelDBStore struct {
	db *leveldb.DB
}

func NewLevelDBStore(path string) (*LevelDBStore, error) {
	if path == "" {
		return nil, errors.New("leveldb store requires a directory path")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

func entryKey(generation, key string) []byte {
	b := make([]byte, 0, len(entryPrefix)+len(generation)+1+len(key))
	b = append(b, entryPrefix...)
	b = append(b, generation...)
	b = append(b, 0)
	b = append(b, key...)
	return b
}

func generationPrefix(generation string) []byte {
	return entryKey(generation, "")
}

func (s *LevelDBStore) Get(_ context.Context, generation, key string) (*Entry, error) {
	b, err := s.db.Get(entryKey(generation, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(b)
}

func (s *LevelDBStore) Put(_ context.Context, generation, key string, e *Entry) error {
	b, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return s.db.Put(entryKey(generation, key), b, nil)
}

func (s *LevelDBStore) Delete(_ context.Context, generation, key string) error {
	return s.db.Delete(entryKey(generation, key), nil)
}

func (s *LevelDBStore) Keys(_ context.Context, generation string) ([]string, error) {
	prefix := generationPrefix(generation)
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	keys := make([]string, 0)
	for it.Next() {
		keys = append(keys, string(bytes.TrimPrefix(it.Key(), prefix)))
	}
	return keys, it.Error()
}

func (s *LevelDBStore) Generations(_ context.Context) ([]string, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer it.Release()
	seen := make(map[string]struct{})
	generations := make([]string, 0)
	for it.Next() {
		rest := bytes.TrimPrefix(it.Key(), []byte(entryPrefix))
		sep := bytes.IndexByte(rest, 0)
		if sep < 0 {
			continue
		}
		g := string(rest[:sep])
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			generations = append(generations, g)
		}
	}
	return generations, it.Error()
}

func (s *LevelDBStore) DropGeneration(_ context.Context, generation string) error {
	it := s.db.NewIterator(util.BytesPrefix(generationPrefix(generation)), nil)
	defer it.Release()
	batch := new(leveldb.Batch)
	for it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		batch.Delete(k)
	}
	if err := it.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
