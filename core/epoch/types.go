package epoch

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/types"
)

// Entry records one validator's stake within an epoch snapshot.
type Entry struct {
	Account types.AccountID
	Stake   *big.Int
}

// Snapshot captures the validator set and stake distribution agreed for one
// epoch, anchored to the block hash the epoch information was derived from.
// Stake queries are answered from snapshots, never recomputed, so every node
// holding the same snapshot answers identically.
type Snapshot struct {
	Epoch      uint64
	BlockHash  common.Hash
	Entries    []Entry
	TotalStake *big.Int
}

// Summary provides a lightweight view over an epoch snapshot for external
// consumers such as the ops tooling.
type Summary struct {
	Epoch          uint64
	BlockHash      common.Hash
	TotalStake     *big.Int
	Validators     []types.AccountID
	ValidatorCount int
}

// Summary converts a snapshot into its summary representation with validators
// listed in deterministic order.
func (s Snapshot) Summary() Summary {
	entries := append([]Entry(nil), s.Entries...)
	SortEntries(entries)
	validators := make([]types.AccountID, len(entries))
	for i := range entries {
		validators[i] = entries[i].Account
	}
	return Summary{
		Epoch:          s.Epoch,
		BlockHash:      s.BlockHash,
		TotalStake:     s.Total(),
		Validators:     validators,
		ValidatorCount: len(entries),
	}
}

// Total returns the snapshot's aggregate stake. When the TotalStake field is
// unset it is derived by summing the entries.
func (s Snapshot) Total() *big.Int {
	if s.TotalStake != nil {
		return new(big.Int).Set(s.TotalStake)
	}
	total := new(big.Int)
	for _, entry := range s.Entries {
		if entry.Stake != nil {
			total.Add(total, entry.Stake)
		}
	}
	return total
}

// Validate ensures the snapshot is self-consistent: valid account ids, no
// duplicate validators, no negative stakes, and a TotalStake (when set) that
// matches the sum of the entries.
func (s Snapshot) Validate() error {
	seen := make(map[types.AccountID]struct{}, len(s.Entries))
	sum := new(big.Int)
	for _, entry := range s.Entries {
		if !entry.Account.Valid() {
			return fmt.Errorf("epoch %d: invalid validator account %q", s.Epoch, entry.Account)
		}
		if _, dup := seen[entry.Account]; dup {
			return fmt.Errorf("epoch %d: duplicate validator %q", s.Epoch, entry.Account)
		}
		seen[entry.Account] = struct{}{}
		if entry.Stake == nil || entry.Stake.Sign() < 0 {
			return fmt.Errorf("epoch %d: validator %q has invalid stake", s.Epoch, entry.Account)
		}
		sum.Add(sum, entry.Stake)
	}
	if s.TotalStake != nil && s.TotalStake.Cmp(sum) != 0 {
		return fmt.Errorf("epoch %d: total stake %s does not match entry sum %s", s.Epoch, s.TotalStake, sum)
	}
	return nil
}

// SortEntries sorts entries by descending stake with a deterministic
// tie-breaker on the account identifier.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stake == nil && entries[j].Stake == nil {
			return entries[i].Account < entries[j].Account
		}
		if entries[i].Stake == nil {
			return false
		}
		if entries[j].Stake == nil {
			return true
		}
		cmp := entries[i].Stake.Cmp(entries[j].Stake)
		if cmp == 0 {
			return entries[i].Account < entries[j].Account
		}
		return cmp > 0
	})
}
