package epoch

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/types"
)

// ErrUnknownEpoch is returned when no snapshot is registered for the
// requested (epoch, block hash) pair.
var ErrUnknownEpoch = errors.New("epoch: no snapshot for requested epoch and block")

// InfoProvider answers validator stake queries for a given epoch, scoped to
// the block hash the epoch information was anchored to. Absence of a
// validator is a valid answer, not an error; errors mean the provider could
// not resolve the epoch at all.
type InfoProvider interface {
	// ValidatorStake returns the stake of account in the epoch, or false
	// when the account is not a validator in that epoch.
	ValidatorStake(epochID uint64, blockHash common.Hash, account types.AccountID) (*big.Int, bool, error)

	// ValidatorTotalStake returns the aggregate stake of the epoch's
	// validator set.
	ValidatorTotalStake(epochID uint64, blockHash common.Hash) (*big.Int, error)
}

// indexedSnapshot is a registered snapshot reshaped for lookups.
type indexedSnapshot struct {
	stakes map[types.AccountID]*big.Int
	total  *big.Int
}

type snapshotKey struct {
	epoch uint64
	hash  common.Hash
}

// SnapshotProvider serves stake queries from registered epoch snapshots. It
// is shared across invocations and safe for concurrent use; registration and
// queries may interleave as epochs roll over.
type SnapshotProvider struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]*indexedSnapshot
}

// NewSnapshotProvider creates an empty provider.
func NewSnapshotProvider() *SnapshotProvider {
	return &SnapshotProvider{snapshots: make(map[snapshotKey]*indexedSnapshot)}
}

// Register validates and indexes a snapshot, replacing any previous snapshot
// registered for the same (epoch, block hash) pair.
func (p *SnapshotProvider) Register(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("register snapshot: %w", err)
	}
	indexed := &indexedSnapshot{
		stakes: make(map[types.AccountID]*big.Int, len(s.Entries)),
		total:  s.Total(),
	}
	for _, entry := range s.Entries {
		indexed.stakes[entry.Account] = new(big.Int).Set(entry.Stake)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[snapshotKey{epoch: s.Epoch, hash: s.BlockHash}] = indexed
	return nil
}

// ValidatorStake implements InfoProvider.
func (p *SnapshotProvider) ValidatorStake(epochID uint64, blockHash common.Hash, account types.AccountID) (*big.Int, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot, ok := p.snapshots[snapshotKey{epoch: epochID, hash: blockHash}]
	if !ok {
		return nil, false, fmt.Errorf("epoch %d block %s: %w", epochID, blockHash, ErrUnknownEpoch)
	}
	stake, ok := snapshot.stakes[account]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(stake), true, nil
}

// ValidatorTotalStake implements InfoProvider.
func (p *SnapshotProvider) ValidatorTotalStake(epochID uint64, blockHash common.Hash) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot, ok := p.snapshots[snapshotKey{epoch: epochID, hash: blockHash}]
	if !ok {
		return nil, fmt.Errorf("epoch %d block %s: %w", epochID, blockHash, ErrUnknownEpoch)
	}
	return new(big.Int).Set(snapshot.total), nil
}

var _ InfoProvider = (*SnapshotProvider)(nil)
