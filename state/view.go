package state

import (
	"sort"
	"strings"

	"zenithchain/storage/trie"
)

// CacheMode selects how aggressively a view memoises reads from the backing
// trie. The mode changes how often the trie is touched, never what a read
// returns.
type CacheMode uint8

const (
	// CacheModeNone reads through to the trie on every lookup.
	CacheModeNone CacheMode = iota
	// CacheModeReads remembers resolved values so repeated lookups of the
	// same key do not touch the trie again.
	CacheModeReads
)

// pendingWrite is one buffered mutation: either a value to store or a
// tombstone marking the key deleted.
type pendingWrite struct {
	value   []byte
	deleted bool
}

// View is the transactional window through which one contract invocation
// reads and writes trie state. Mutations are buffered in an overlay and stay
// invisible to the backing trie, and to any other view, until Commit flushes
// them. Reads consult the overlay first and fall back to the trie.
//
// A view exclusively owns its trie for the duration of the invocation and is
// not safe for concurrent use.
type View struct {
	tr        *trie.Trie
	pending   map[string]pendingWrite
	readCache map[string][]byte
	cacheMode CacheMode

	// generation increments on every mutating operation. Value references
	// and open iterators record the generation they were created under and
	// refuse to proceed once it moves on.
	generation uint64

	// touched counts backing-trie accesses: value reads and iterator steps.
	// Purely observational; the host's cost accounting consumes it.
	touched uint64
}

// NewView creates a view over the provided trie. The trie must not be used
// directly while the view is live.
func NewView(tr *trie.Trie) *View {
	return &View{
		tr:      tr,
		pending: make(map[string]pendingWrite),
	}
}

// Set buffers an unconditional overwrite of key. An empty value is
// equivalent to Remove: the Merkle trie cannot represent empty values, so
// treating them as deletions keeps reads consistent before and after Commit.
func (v *View) Set(key, value []byte) {
	v.generation++
	delete(v.readCache, string(key))
	if len(value) == 0 {
		v.pending[string(key)] = pendingWrite{deleted: true}
		return
	}
	v.pending[string(key)] = pendingWrite{value: append([]byte(nil), value...)}
}

// Remove buffers a deletion of key. Removing an absent key is a no-op, so
// the operation is idempotent and never fails.
func (v *View) Remove(key []byte) {
	v.generation++
	delete(v.readCache, string(key))
	v.pending[string(key)] = pendingWrite{deleted: true}
}

// Get returns a copy of the value stored under key, or nil when the key is
// absent. Errors indicate a failed read against the backing trie, never
// legitimate absence.
func (v *View) Get(key []byte) ([]byte, error) {
	data, err := v.lookup(key)
	if err != nil || data == nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// GetRef returns a lazy reference to the value stored under key, or nil when
// the key is absent. The reference borrows storage owned by the view: it
// exposes the value length without copying and must be dereferenced before
// the next mutating operation on the view.
func (v *View) GetRef(key []byte) (*ValueRef, error) {
	data, err := v.lookup(key)
	if err != nil || data == nil {
		return nil, err
	}
	return &ValueRef{view: v, data: data, generation: v.generation}, nil
}

// Has reports whether key is present, without materialising the value.
func (v *View) Has(key []byte) (bool, error) {
	data, err := v.lookup(key)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// lookup resolves key against the overlay, the read cache, and finally the
// backing trie. The returned slice is borrowed; callers copy as needed. A nil
// slice with nil error means the key is absent.
func (v *View) lookup(key []byte) ([]byte, error) {
	if w, ok := v.pending[string(key)]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}
	if cached, ok := v.readCache[string(key)]; ok {
		return cached, nil
	}
	v.touched++
	data, err := v.tr.Get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = nil
	}
	if v.cacheMode == CacheModeReads {
		if v.readCache == nil {
			v.readCache = make(map[string][]byte)
		}
		v.readCache[string(key)] = data
	}
	return data, nil
}

// IteratePrefix returns an iterator over every key in the view that starts
// with prefix, in ascending byte order: buffered writes merged with committed
// trie keys, pending deletions suppressing the keys they shadow. The view
// must not be mutated while the iteration is open; collect the keys first
// when the point of iterating is to mutate them.
func (v *View) IteratePrefix(prefix []byte) *PrefixIterator {
	it := &PrefixIterator{view: v, generation: v.generation}
	for key, w := range v.pending {
		if strings.HasPrefix(key, string(prefix)) {
			it.overlay = append(it.overlay, overlayEntry{key: key, write: w})
		}
	}
	sort.Slice(it.overlay, func(i, j int) bool { return it.overlay[i].key < it.overlay[j].key })

	trieIt, err := v.tr.IteratePrefix(prefix)
	if err != nil {
		it.err = err
		return it
	}
	it.trieIt = trieIt
	it.advanceTrie()
	return it
}

// SetCacheMode toggles read memoisation. Switching to CacheModeNone drops
// the accumulated cache.
func (v *View) SetCacheMode(mode CacheMode) {
	v.cacheMode = mode
	if mode == CacheModeNone {
		v.readCache = nil
	}
}

// TouchedNodes returns the number of backing-trie accesses performed so far.
// The counter increases monotonically for the lifetime of the view.
func (v *View) TouchedNodes() uint64 {
	return v.touched
}

// Commit flushes the buffered mutations into the backing trie, in ascending
// key order, and resets the overlay. The trie itself still has to be
// committed by the host to persist the new state; Commit only moves the
// view's pending writes out of the overlay.
func (v *View) Commit() error {
	keys := make([]string, 0, len(v.pending))
	for key := range v.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		w := v.pending[key]
		if w.deleted {
			if err := v.tr.Delete([]byte(key)); err != nil {
				return err
			}
			continue
		}
		if err := v.tr.Update([]byte(key), w.value); err != nil {
			return err
		}
	}
	v.pending = make(map[string]pendingWrite)
	v.readCache = nil
	v.generation++
	return nil
}

// ValueRef is a lazy handle to a value that exists in the view. It reports
// the value's length without copying and defers the copy to Deref. The handle
// borrows storage owned by the view; once the view mutates, the handle is
// stale and Deref fails.
type ValueRef struct {
	view       *View
	data       []byte
	generation uint64
}

// Len returns the value's length in bytes without materialising it.
func (r *ValueRef) Len() uint32 {
	return uint32(len(r.data))
}

// Deref copies the referenced value out of the view. It fails with
// ErrStaleValueRef when the view has been mutated since the reference was
// created.
func (r *ValueRef) Deref() ([]byte, error) {
	if r.generation != r.view.generation {
		return nil, ErrStaleValueRef
	}
	return append([]byte(nil), r.data...), nil
}

type overlayEntry struct {
	key   string
	write pendingWrite
}

// PrefixIterator merges the view's buffered writes with the committed trie
// keys under one prefix. Overlay entries win over trie entries for the same
// key; tombstones drop the key entirely.
type PrefixIterator struct {
	view       *View
	generation uint64

	overlay []overlayEntry
	oi      int

	trieIt  *trie.PrefixIterator
	trieKey []byte
	trieVal []byte

	key   []byte
	value []byte
	err   error
	done  bool
}

// Next advances to the next live key under the prefix. It returns false when
// the range is exhausted or an error occurred; check Err afterwards.
func (it *PrefixIterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}
	if it.generation != it.view.generation {
		it.err = ErrIteratorInvalidated
		return false
	}
	for {
		haveOverlay := it.oi < len(it.overlay)
		haveTrie := it.trieKey != nil
		if !haveOverlay && !haveTrie {
			it.done = true
			it.key = nil
			it.value = nil
			return false
		}

		switch {
		case haveOverlay && (!haveTrie || it.overlay[it.oi].key < string(it.trieKey)):
			entry := it.overlay[it.oi]
			it.oi++
			if entry.write.deleted {
				continue
			}
			it.key = []byte(entry.key)
			it.value = entry.write.value
			return true

		case haveOverlay && haveTrie && it.overlay[it.oi].key == string(it.trieKey):
			entry := it.overlay[it.oi]
			it.oi++
			it.advanceTrie()
			if it.err != nil {
				return false
			}
			if entry.write.deleted {
				continue
			}
			it.key = []byte(entry.key)
			it.value = entry.write.value
			return true

		default:
			it.key = it.trieKey
			it.value = it.trieVal
			it.advanceTrie()
			if it.err != nil {
				return false
			}
			return true
		}
	}
}

// advanceTrie steps the underlying trie iterator, recording the touched node
// and capturing the next committed entry, or the traversal error that ended
// it.
func (it *PrefixIterator) advanceTrie() {
	if it.trieIt == nil {
		it.trieKey, it.trieVal = nil, nil
		return
	}
	if it.trieIt.Next() {
		it.view.touched++
		it.trieKey = it.trieIt.Key()
		it.trieVal = it.trieIt.Value()
		return
	}
	it.err = it.trieIt.Err()
	it.trieKey, it.trieVal = nil, nil
	it.trieIt = nil
}

// Key returns the physical key at the current position. The slice is only
// valid until the next call to Next.
func (it *PrefixIterator) Key() []byte { return it.key }

// Value returns the value at the current position. The slice is only valid
// until the next call to Next.
func (it *PrefixIterator) Value() []byte { return it.value }

// Err returns the first error encountered during iteration, nil when the
// range was merely exhausted.
func (it *PrefixIterator) Err() error { return it.err }
