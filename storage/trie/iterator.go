package trie

import (
	"bytes"

	gethtrie "github.com/ethereum/go-ethereum/trie"
)

// PrefixIterator walks the key/value pairs of a trie whose keys share a fixed
// prefix. It wraps go-ethereum's leaf iterator, which visits leaves in
// ascending key order, and stops as soon as a key falls outside the prefix.
//
// The iterator borrows the trie it was created from; mutating the trie while
// an iteration is open is undefined.
type PrefixIterator struct {
	it     *gethtrie.Iterator
	prefix []byte
	key    []byte
	value  []byte
	done   bool
}

func newPrefixIterator(it *gethtrie.Iterator, prefix []byte) *PrefixIterator {
	return &PrefixIterator{it: it, prefix: append([]byte(nil), prefix...)}
}

// Next advances the iterator to the next key under the prefix, returning false
// when the prefix range or the trie is exhausted. Callers must check Err after
// Next returns false.
func (pi *PrefixIterator) Next() bool {
	if pi.done {
		return false
	}
	if !pi.it.Next() || !bytes.HasPrefix(pi.it.Key, pi.prefix) {
		pi.done = true
		pi.key = nil
		pi.value = nil
		return false
	}
	pi.key = pi.it.Key
	pi.value = pi.it.Value
	return true
}

// Key returns the full physical key at the current position. The returned
// slice is only valid until the next call to Next.
func (pi *PrefixIterator) Key() []byte { return pi.key }

// Value returns the value at the current position. The returned slice is only
// valid until the next call to Next.
func (pi *PrefixIterator) Value() []byte { return pi.value }

// Err returns the first error encountered by the underlying trie traversal.
// A fully consumed prefix range reports nil.
func (pi *PrefixIterator) Err() error { return pi.it.Err }
