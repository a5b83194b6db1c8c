package storage

import (
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the persistent Database used by long-running hosts. It wraps
// goleveldb and exposes the go-ethereum key-value store contract so the trie
// layer can run directly on top of it.
type LevelDB struct {
	db     *leveldb.DB
	trieDB *triedb.Database
}

// NewLevelDB creates or opens a LevelDB database at the given path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	ldb := &LevelDB{db: db}
	ldb.trieDB = triedb.NewDatabase(rawdb.NewDatabase(ldb), nil)
	return ldb, nil
}

// Get retrieves the value stored under key, erroring when absent.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return ldb.db.Get(key, nil)
}

// Has reports whether key is present.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

// Put inserts or overwrites the value stored under key.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Delete removes the value stored under key, if any.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

// DeleteRange removes every key in the half-open interval [start, end).
func (ldb *LevelDB) DeleteRange(start, end []byte) error {
	it := ldb.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	return ldb.db.Write(batch, nil)
}

// TrieDB returns the trie node database mounted on this store.
func (ldb *LevelDB) TrieDB() *triedb.Database { return ldb.trieDB }

// Close flushes and closes the underlying database files.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

// Stat returns the leveldb internal statistics property.
func (ldb *LevelDB) Stat() (string, error) {
	return ldb.db.GetProperty("leveldb.stats")
}

// Compact flattens the underlying key range into the bottommost level.
func (ldb *LevelDB) Compact(start []byte, limit []byte) error {
	return ldb.db.CompactRange(util.Range{Start: start, Limit: limit})
}

// SyncKeyValue forces an fsync of the write-ahead log.
func (ldb *LevelDB) SyncKeyValue() error {
	return ldb.db.Write(new(leveldb.Batch), &opt.WriteOptions{Sync: true})
}

// NewBatch creates a write batch that is applied atomically on Write.
func (ldb *LevelDB) NewBatch() ethdb.Batch {
	return &levelBatch{db: ldb.db, batch: new(leveldb.Batch)}
}

// NewBatchWithSize creates a write batch with a pre-allocated buffer.
func (ldb *LevelDB) NewBatchWithSize(size int) ethdb.Batch {
	return &levelBatch{db: ldb.db, batch: leveldb.MakeBatch(size)}
}

// NewIterator creates an iterator over the keyspace prefixed by prefix and
// starting at start (applied after the prefix), in ascending byte order.
func (ldb *LevelDB) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	return ldb.db.NewIterator(prefixRange(prefix, start), nil)
}

// prefixRange converts a (prefix, start) pair into a goleveldb key range.
func prefixRange(prefix, start []byte) *util.Range {
	r := util.BytesPrefix(prefix)
	r.Start = append(r.Start, start...)
	return r
}

// levelBatch adapts a goleveldb batch to the ethdb contract, tracking the
// byte volume goleveldb does not expose.
type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
	size  int
}

func (b *levelBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelBatch) ValueSize() int { return b.size }

func (b *levelBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (b *levelBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}

func (b *levelBatch) Replay(w ethdb.KeyValueWriter) error {
	replay := &batchReplayer{writer: w}
	if err := b.batch.Replay(replay); err != nil {
		return err
	}
	return replay.failure
}

// batchReplayer bridges goleveldb's error-less replay callbacks onto an
// ethdb writer, remembering the first failure.
type batchReplayer struct {
	writer  ethdb.KeyValueWriter
	failure error
}

func (r *batchReplayer) Put(key, value []byte) {
	if r.failure != nil {
		return
	}
	r.failure = r.writer.Put(key, value)
}

func (r *batchReplayer) Delete(key []byte) {
	if r.failure != nil {
		return
	}
	r.failure = r.writer.Delete(key)
}

var (
	_ Database            = (*LevelDB)(nil)
	_ ethdb.KeyValueStore = (*LevelDB)(nil)
)
