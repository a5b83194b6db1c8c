package runtime

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/epoch"
	"zenithchain/core/types"
	"zenithchain/observability"
	"zenithchain/state"
)

// Env is the production External implementation: the single trust boundary
// through which one contract invocation reaches trie state, deterministic
// identifier generation, and validator stake information.
//
// The identity context (account, action hash, epoch, block anchors, protocol
// version) is fixed at construction for the lifetime of the invocation; the
// only state Env mutates across calls is the data-id counter. Env owns its
// view exclusively and is not safe for concurrent use.
type Env struct {
	view      *state.View
	account   types.AccountID
	action    common.Hash
	epochID   uint64
	prevBlock common.Hash
	lastBlock common.Hash
	epochInfo epoch.InfoProvider
	version   types.ProtocolVersion

	// dataCount is the zero-based index of the next generated identifier.
	// It never resets within an invocation and is never exposed to the
	// sandbox.
	dataCount uint64

	codeCache CodeCache
	logger    *slog.Logger
	metrics   *observability.RuntimeMetrics
}

// EnvOption customises an Env beyond its required identity context.
type EnvOption func(*Env)

// WithCodeCache installs the shared contract code cache consulted by
// ContractCode. Defaults to NopCodeCache.
func WithCodeCache(cache CodeCache) EnvOption {
	return func(e *Env) {
		if cache != nil {
			e.codeCache = cache
		}
	}
}

// WithLogger installs the logger carrying host-side diagnostics. Defaults to
// slog.Default.
func WithLogger(logger *slog.Logger) EnvOption {
	return func(e *Env) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnv builds the adapter for one contract invocation. The view must be
// exclusively owned by this invocation; the epoch info provider and code
// cache may be shared across invocations.
func NewEnv(
	view *state.View,
	account types.AccountID,
	actionHash common.Hash,
	epochID uint64,
	prevBlockHash common.Hash,
	lastBlockHash common.Hash,
	epochInfo epoch.InfoProvider,
	protocolVersion types.ProtocolVersion,
	opts ...EnvOption,
) *Env {
	env := &Env{
		view:      view,
		account:   account,
		action:    actionHash,
		epochID:   epochID,
		prevBlock: prevBlockHash,
		lastBlock: lastBlockHash,
		epochInfo: epochInfo,
		version:   protocolVersion,
		codeCache: NopCodeCache{},
		logger:    slog.Default(),
		metrics:   observability.Runtime(),
	}
	for _, opt := range opts {
		opt(env)
	}
	env.logger = env.logger.With(slog.String("account", string(account)))
	return env
}

// AccountID returns the account whose storage this invocation is scoped to.
func (e *Env) AccountID() types.AccountID { return e.account }

// ProtocolVersion returns the protocol version fixed for this invocation.
func (e *Env) ProtocolVersion() types.ProtocolVersion { return e.version }

// StorageSet implements External.
func (e *Env) StorageSet(key, value []byte) error {
	e.view.Set(state.ContractStorageKey(e.account, key), value)
	e.metrics.RecordOp("storage_set", nil)
	return nil
}

// StorageGet implements External.
func (e *Env) StorageGet(key []byte) (ValuePtr, error) {
	ref, err := e.view.GetRef(state.ContractStorageKey(e.account, key))
	if err != nil {
		return nil, e.fault("storage_get", FaultStorage, err)
	}
	e.metrics.RecordOp("storage_get", nil)
	if ref == nil {
		return nil, nil
	}
	return &envValuePtr{env: e, ref: ref}, nil
}

// StorageRemove implements External.
func (e *Env) StorageRemove(key []byte) error {
	e.view.Remove(state.ContractStorageKey(e.account, key))
	e.metrics.RecordOp("storage_remove", nil)
	return nil
}

// StorageHasKey implements External.
func (e *Env) StorageHasKey(key []byte) (bool, error) {
	ok, err := e.view.Has(state.ContractStorageKey(e.account, key))
	if err != nil {
		return false, e.fault("storage_has_key", FaultStorage, err)
	}
	e.metrics.RecordOp("storage_has_key", nil)
	return ok, nil
}

// StorageRemoveSubtree implements External. The doomed keys are collected in
// full before the first deletion: a physical key that fails to parse back to
// a logical key aborts the whole operation as inconsistent state, leaving
// the subtree untouched. Once collection succeeds the deletions are buffered
// removals and cannot fail.
func (e *Env) StorageRemoveSubtree(prefix []byte) error {
	const op = "storage_remove_subtree"

	it := e.view.IteratePrefix(state.ContractStoragePrefix(e.account, prefix))
	var doomed [][]byte
	for it.Next() {
		logical, err := state.ParseContractStorageKey(it.Key(), e.account)
		if err != nil {
			return e.fault(op, FaultStorage, err)
		}
		doomed = append(doomed, logical)
	}
	if err := it.Err(); err != nil {
		return e.fault(op, FaultStorage, err)
	}

	for _, logical := range doomed {
		e.view.Remove(state.ContractStorageKey(e.account, logical))
	}
	e.metrics.RecordOp(op, nil)
	return nil
}

// GenerateDataID implements External. The identifier is derived from the
// invocation's fixed identity context and the running counter; no node-local
// input ever contributes, so independent re-executions agree byte-for-byte.
func (e *Env) GenerateDataID() common.Hash {
	id := createDataID(e.version, e.action, e.prevBlock, e.lastBlock, e.dataCount)
	e.dataCount++
	e.metrics.RecordOp("generate_data_id", nil)
	return id
}

// ContractCode implements External: cache first, storage on miss. Absent
// code is a valid non-error outcome and is never cached.
func (e *Env) ContractCode(codeHash common.Hash) (*types.ContractCode, error) {
	e.logger.Debug("loading contract code", slog.String("code_hash", codeHash.Hex()))
	code, err := e.codeCache.GetOrCompute(codeHash, func() (*types.ContractCode, error) {
		return e.loadCode(codeHash)
	})
	if err != nil {
		return nil, e.fault("contract_code", FaultStorage, err)
	}
	e.metrics.RecordOp("contract_code", nil)
	return code, nil
}

// loadCode reads the account's stored bytecode and checks it against the
// requested hash. A mismatch means the stored code is not the code this
// invocation agreed on, which is inconsistent state, not absence.
func (e *Env) loadCode(codeHash common.Hash) (*types.ContractCode, error) {
	data, err := e.view.Get(state.ContractCodeKey(e.account))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	code := types.NewContractCode(data)
	if code.Hash() != codeHash {
		return nil, fmt.Errorf("stored code hash %s for account %q does not match requested %s: %w",
			code.Hash(), e.account, codeHash, state.ErrInconsistentState)
	}
	return code, nil
}

// ValidatorStake implements External, scoped to the invocation's epoch and
// previous block anchor. A non-validator account reports absence, not
// failure.
func (e *Env) ValidatorStake(account types.AccountID) (*big.Int, bool, error) {
	stake, ok, err := e.epochInfo.ValidatorStake(e.epochID, e.prevBlock, account)
	if err != nil {
		return nil, false, e.fault("validator_stake", FaultValidator, err)
	}
	e.metrics.RecordOp("validator_stake", nil)
	return stake, ok, nil
}

// ValidatorTotalStake implements External with the same scoping as
// ValidatorStake.
func (e *Env) ValidatorTotalStake() (*big.Int, error) {
	total, err := e.epochInfo.ValidatorTotalStake(e.epochID, e.prevBlock)
	if err != nil {
		return nil, e.fault("validator_total_stake", FaultValidator, err)
	}
	e.metrics.RecordOp("validator_total_stake", nil)
	return total, nil
}

// TouchedNodes implements External.
func (e *Env) TouchedNodes() uint64 {
	return e.view.TouchedNodes()
}

// SetTrieCacheMode toggles the view's read memoisation. Host-side knob; it
// changes how often the backing trie is touched, never what reads return.
func (e *Env) SetTrieCacheMode(mode state.CacheMode) {
	e.view.SetCacheMode(mode)
}

// fault records an internal failure and erases it into the opaque boundary
// error. The original cause reaches host-side diagnostics (debug log and
// fault metrics) and nothing else.
func (e *Env) fault(op string, kind FaultKind, err error) error {
	e.metrics.RecordOp(op, err)
	e.metrics.RecordFault(kind.String())
	e.logger.Debug("host operation failed",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Any("error", err),
	)
	return newHostError(kind, err)
}

// envValuePtr adapts a state.ValueRef to the sandbox-facing ValuePtr,
// erasing dereference failures at the boundary.
type envValuePtr struct {
	env *Env
	ref *state.ValueRef
}

func (p *envValuePtr) Len() uint32 {
	return p.ref.Len()
}

func (p *envValuePtr) Deref() ([]byte, error) {
	data, err := p.ref.Deref()
	if err != nil {
		return nil, p.env.fault("value_deref", FaultStorage, err)
	}
	return data, nil
}

var (
	_ External = (*Env)(nil)
	_ ValuePtr = (*envValuePtr)(nil)
)
