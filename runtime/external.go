package runtime

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/types"
)

// External is the storage and environment surface exposed to sandboxed
// contract code. Every operation is scoped to the account of the current
// invocation and fails only with the opaque *HostError, never with anything
// that reveals internal failure shape.
//
// Implementations are single-invocation and synchronous: each call runs to
// completion before the next begins, and no call suspends or retries.
type External interface {
	// StorageSet unconditionally overwrites the value under the logical
	// key. An empty value is equivalent to StorageRemove.
	StorageSet(key, value []byte) error

	// StorageGet returns a lazy pointer to the value under the logical
	// key, or nil when the key is absent. Absence is not an error.
	StorageGet(key []byte) (ValuePtr, error)

	// StorageRemove marks the logical key deleted. Removing an absent key
	// is a no-op.
	StorageRemove(key []byte) error

	// StorageHasKey reports presence of the logical key without
	// materialising the value.
	StorageHasKey(key []byte) (bool, error)

	// StorageRemoveSubtree deletes every logical key of the account that
	// starts with prefix. Collection of the doomed keys happens before any
	// deletion: if it fails, no key is removed.
	StorageRemoveSubtree(prefix []byte) error

	// GenerateDataID derives the next deterministic identifier of the
	// invocation. Identifiers are unique within the invocation and
	// reproducible byte-for-byte across every node re-executing it.
	GenerateDataID() common.Hash

	// ContractCode resolves a code hash to deployed bytecode, consulting
	// the shared code cache before storage. Absent code returns nil
	// without error.
	ContractCode(codeHash common.Hash) (*types.ContractCode, error)

	// ValidatorStake returns the stake of account in the invocation's
	// epoch, or false when the account is not a validator in it.
	ValidatorStake(account types.AccountID) (*big.Int, bool, error)

	// ValidatorTotalStake returns the aggregate stake of the epoch's
	// validator set.
	ValidatorTotalStake() (*big.Int, error)

	// TouchedNodes reports how many backing-store nodes the invocation has
	// visited so far. Purely observational input to the host's cost
	// accounting.
	TouchedNodes() uint64
}

// ValuePtr is a lazy handle to a stored value: it exposes the length without
// forcing a read and defers the copy to Deref. The handle is only valid for
// the current operation window; it must be consumed before the next mutating
// storage operation.
type ValuePtr interface {
	Len() uint32
	Deref() ([]byte, error)
}
