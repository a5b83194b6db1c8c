package storage

import (
	"github.com/ethereum/go-ethereum/triedb"
)

// Database is the key-value store backing all ledger state. Implementations
// double as go-ethereum ethdb stores so the trie layer can be mounted on top
// of them; TrieDB exposes that mount point.
//
// Get returns an error for missing keys (use Has for presence checks), which
// matches the behaviour the trie database expects from its backend.
type Database interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error

	// TrieDB returns the trie node database mounted on this store. The
	// handle is created once per store and shared by every trie opened
	// against it.
	TrieDB() *triedb.Database

	Close() error
}
