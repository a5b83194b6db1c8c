package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/triedb"
)

var (
	errMemDBClosed   = errors.New("storage: memdb already closed")
	errMemDBNotFound = errors.New("storage: key not found")
)

// MemDB is an in-memory Database used by tests and short-lived tooling. It
// implements the go-ethereum key-value store contract so a trie database can
// be mounted on it just like on the persistent backend.
type MemDB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
	trieDB *triedb.Database
}

// NewMemDB creates an empty in-memory database.
func NewMemDB() *MemDB {
	db := &MemDB{data: make(map[string][]byte)}
	db.trieDB = triedb.NewDatabase(rawdb.NewDatabase(db), nil)
	return db
}

// Get retrieves the value stored under key, erroring when absent.
func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, errMemDBClosed
	}
	if value, ok := db.data[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return nil, errMemDBNotFound
}

// Has reports whether key is present.
func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return false, errMemDBClosed
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

// Put inserts or overwrites the value stored under key.
func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return errMemDBClosed
	}
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete removes the value stored under key, if any.
func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return errMemDBClosed
	}
	delete(db.data, string(key))
	return nil
}

// DeleteRange removes every key in the half-open interval [start, end).
func (db *MemDB) DeleteRange(start, end []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return errMemDBClosed
	}
	for key := range db.data {
		if key >= string(start) && (len(end) == 0 || key < string(end)) {
			delete(db.data, key)
		}
	}
	return nil
}

// TrieDB returns the trie node database mounted on this store.
func (db *MemDB) TrieDB() *triedb.Database { return db.trieDB }

// Close drops the backing map. Subsequent operations fail.
func (db *MemDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data = nil
	db.closed = true
	return nil
}

// Len returns the number of stored keys, for tests.
func (db *MemDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}

// Stat is a no-op for the in-memory backend.
func (db *MemDB) Stat() (string, error) { return "", nil }

// Compact is a no-op for the in-memory backend.
func (db *MemDB) Compact(start []byte, limit []byte) error { return nil }

// SyncKeyValue is a no-op for the in-memory backend.
func (db *MemDB) SyncKeyValue() error { return nil }

// NewBatch creates a write batch that is applied atomically on Write.
func (db *MemDB) NewBatch() ethdb.Batch {
	return &memBatch{db: db}
}

// NewBatchWithSize creates a write batch with a pre-allocated buffer.
func (db *MemDB) NewBatchWithSize(size int) ethdb.Batch {
	return &memBatch{db: db, writes: make([]memWrite, 0, size)}
}

// NewIterator creates an iterator over a snapshot of the keyspace prefixed
// by prefix and starting at start (applied after the prefix), in ascending
// byte order.
func (db *MemDB) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var (
		first  = string(prefix) + string(start)
		keys   = make([]string, 0, len(db.data))
		values = make([][]byte, 0, len(db.data))
	)
	for key := range db.data {
		if strings.HasPrefix(key, string(prefix)) && key >= first {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		values = append(values, append([]byte(nil), db.data[key]...))
	}
	return &memIterator{keys: keys, values: values, index: -1}
}

type memWrite struct {
	key    string
	value  []byte
	delete bool
}

// memBatch buffers writes until Write flushes them under one lock.
type memBatch struct {
	db     *MemDB
	writes []memWrite
	size   int
}

func (b *memBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, memWrite{key: string(key), value: append([]byte(nil), value...)})
	b.size += len(key) + len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.writes = append(b.writes, memWrite{key: string(key), delete: true})
	b.size += len(key)
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	if b.db.closed {
		return errMemDBClosed
	}
	for _, w := range b.writes {
		if w.delete {
			delete(b.db.data, w.key)
			continue
		}
		b.db.data[w.key] = w.value
	}
	return nil
}

func (b *memBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

func (b *memBatch) Replay(w ethdb.KeyValueWriter) error {
	for _, entry := range b.writes {
		if entry.delete {
			if err := w.Delete([]byte(entry.key)); err != nil {
				return err
			}
			continue
		}
		if err := w.Put([]byte(entry.key), entry.value); err != nil {
			return err
		}
	}
	return nil
}

// memIterator walks a sorted snapshot taken when the iterator was created.
type memIterator struct {
	keys   []string
	values [][]byte
	index  int
}

func (it *memIterator) Next() bool {
	if it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *memIterator) Error() error { return nil }

func (it *memIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}

func (it *memIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.values) {
		return nil
	}
	return it.values[it.index]
}

func (it *memIterator) Release() {
	it.keys, it.values, it.index = nil, nil, 0
}

var (
	_ Database            = (*MemDB)(nil)
	_ ethdb.KeyValueStore = (*MemDB)(nil)
)
