package runtime

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	bolt "go.etcd.io/bbolt"

	"zenithchain/core/types"
)

var bucketContractCode = []byte("contract-code")

// CodeCache memoises contract code by content hash across invocations.
//
// GetOrCompute returns the cached code for hash, or invokes compute and
// caches its result. Absence (nil code with nil error) is a valid outcome
// and is never cached: a later deploy must become visible on the next
// lookup. Implementations must be safe for concurrent use; compute may run
// more than once under concurrent misses for the same hash.
type CodeCache interface {
	GetOrCompute(hash common.Hash, compute func() (*types.ContractCode, error)) (*types.ContractCode, error)
}

// NopCodeCache caches nothing; every lookup computes.
type NopCodeCache struct{}

// GetOrCompute implements CodeCache.
func (NopCodeCache) GetOrCompute(_ common.Hash, compute func() (*types.ContractCode, error)) (*types.ContractCode, error) {
	return compute()
}

// LRUCodeCache keeps recently used contract code in memory, bounded by entry
// count. Entries are immutable once inserted; the content hash is the key,
// so a hit can never serve stale bytecode.
type LRUCodeCache struct {
	cache *lru.Cache
}

// NewLRUCodeCache builds an in-memory cache holding up to size entries.
func NewLRUCodeCache(size int) (*LRUCodeCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCodeCache{cache: cache}, nil
}

// GetOrCompute implements CodeCache.
func (c *LRUCodeCache) GetOrCompute(hash common.Hash, compute func() (*types.ContractCode, error)) (*types.ContractCode, error) {
	if cached, ok := c.cache.Get(hash); ok {
		return cached.(*types.ContractCode), nil
	}
	code, err := compute()
	if err != nil || code == nil {
		return nil, err
	}
	c.cache.Add(hash, code)
	return code, nil
}

// BoltCodeCache persists contract code in a BoltDB file so the cache
// survives restarts. Entries are verified against their key hash on read; a
// corrupted entry is treated as a miss and overwritten by the recomputed
// code.
type BoltCodeCache struct {
	db *bolt.DB
}

// NewBoltCodeCache opens (and initialises) the cache file at path.
func NewBoltCodeCache(path string, options *bolt.Options) (*BoltCodeCache, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketContractCode)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltCodeCache{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (c *BoltCodeCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// GetOrCompute implements CodeCache.
func (c *BoltCodeCache) GetOrCompute(hash common.Hash, compute func() (*types.ContractCode, error)) (*types.ContractCode, error) {
	var cached *types.ContractCode
	if err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketContractCode).Get(hash.Bytes())
		if raw == nil {
			return nil
		}
		code := types.NewContractCode(append([]byte(nil), raw...))
		if code.Hash() != hash {
			return nil
		}
		cached = code
		return nil
	}); err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	code, err := compute()
	if err != nil || code == nil {
		return nil, err
	}
	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContractCode).Put(hash.Bytes(), code.Bytes())
	}); err != nil {
		return nil, err
	}
	return code, nil
}

var (
	_ CodeCache = NopCodeCache{}
	_ CodeCache = (*LRUCodeCache)(nil)
	_ CodeCache = (*BoltCodeCache)(nil)
)
