package types

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ContractCode pairs deployed bytecode with its keccak256 content hash. The
// hash is computed once at construction and is the identity under which the
// code is cached and looked up.
type ContractCode struct {
	code []byte
	hash common.Hash
}

// NewContractCode wraps raw bytecode, computing its content hash.
func NewContractCode(code []byte) *ContractCode {
	return &ContractCode{
		code: code,
		hash: ethcrypto.Keccak256Hash(code),
	}
}

// Bytes returns the raw bytecode. Callers must not mutate the returned
// slice; contract code is shared across invocations through the code cache.
func (c *ContractCode) Bytes() []byte { return c.code }

// Hash returns the keccak256 hash of the bytecode.
func (c *ContractCode) Hash() common.Hash { return c.hash }

// Len returns the bytecode length in bytes.
func (c *ContractCode) Len() int { return len(c.code) }
