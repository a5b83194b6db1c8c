package state

import (
	"bytes"
	"fmt"

	"zenithchain/core/types"
)

// Physical key layout. Every key the contract runtime stores in the trie is
// built here and parsed here; no other package composes these byte layouts.
// AccountID validation guarantees the separator byte never occurs inside an
// account identifier, so keys of two different accounts can never collide.
const (
	contractStorageTag = "contract-storage:"
	contractCodeTag    = "contract-code:"
	keySeparator       = byte(':')
)

// ContractStorageKey maps a caller-supplied logical key to the physical trie
// key scoped to the given account. Deterministic and total: every (account,
// key) pair has exactly one physical key.
func ContractStorageKey(account types.AccountID, key []byte) []byte {
	buf := make([]byte, 0, len(contractStorageTag)+len(account)+1+len(key))
	buf = append(buf, contractStorageTag...)
	buf = append(buf, account...)
	buf = append(buf, keySeparator)
	buf = append(buf, key...)
	return buf
}

// ContractStoragePrefix returns the raw physical prefix covering every
// storage key of the account whose logical key starts with prefix. The layout
// is identical to ContractStorageKey, so iterating the returned prefix visits
// exactly the keys the account stored under it.
func ContractStoragePrefix(account types.AccountID, prefix []byte) []byte {
	return ContractStorageKey(account, prefix)
}

// ParseContractStorageKey recovers the logical key from a physical trie key
// belonging to account. A raw key that does not carry the account's storage
// prefix wraps ErrInconsistentState: the trie handed back a key this schema
// could not have produced.
func ParseContractStorageKey(raw []byte, account types.AccountID) ([]byte, error) {
	scope := ContractStorageKey(account, nil)
	if !bytes.HasPrefix(raw, scope) {
		return nil, fmt.Errorf("parse storage key %q for account %q: %w", raw, account, ErrInconsistentState)
	}
	return append([]byte(nil), raw[len(scope):]...), nil
}

// ContractCodeKey returns the physical key holding the account's deployed
// contract bytecode.
func ContractCodeKey(account types.AccountID) []byte {
	buf := make([]byte, 0, len(contractCodeTag)+len(account))
	buf = append(buf, contractCodeTag...)
	buf = append(buf, account...)
	return buf
}
