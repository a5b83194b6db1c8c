package epoch

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"zenithchain/core/types"
)

// snapshotFile mirrors the YAML representation of one epoch snapshot.
type snapshotFile struct {
	Epoch      uint64          `yaml:"epoch"`
	BlockHash  string          `yaml:"block_hash"`
	TotalStake string          `yaml:"total_stake,omitempty"`
	Validators []validatorFile `yaml:"validators"`
}

type validatorFile struct {
	Account string `yaml:"account"`
	Stake   string `yaml:"stake"`
}

// LoadSnapshotFile reads epoch snapshots from a YAML file on disk. Devnets,
// tests, and the ops tooling use fixture files in place of a live epoch
// manager; production hosts register snapshots programmatically.
func LoadSnapshotFile(path string) ([]Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshots: %w", err)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	var entries []snapshotFile
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(entries))
	seen := make(map[snapshotKey]struct{})
	for _, entry := range entries {
		blockHash, err := parseBlockHash(entry.BlockHash)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", entry.Epoch, err)
		}
		key := snapshotKey{epoch: entry.Epoch, hash: blockHash}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate snapshot for epoch %d block %s", entry.Epoch, blockHash)
		}
		seen[key] = struct{}{}

		snapshot := Snapshot{Epoch: entry.Epoch, BlockHash: blockHash}
		for _, v := range entry.Validators {
			account, err := types.ParseAccountID(strings.TrimSpace(v.Account))
			if err != nil {
				return nil, fmt.Errorf("epoch %d: %w", entry.Epoch, err)
			}
			stake, err := parseStake(v.Stake)
			if err != nil {
				return nil, fmt.Errorf("epoch %d validator %s: %w", entry.Epoch, account, err)
			}
			snapshot.Entries = append(snapshot.Entries, Entry{Account: account, Stake: stake})
		}
		if trimmed := strings.TrimSpace(entry.TotalStake); trimmed != "" {
			total, err := parseStake(trimmed)
			if err != nil {
				return nil, fmt.Errorf("epoch %d total_stake: %w", entry.Epoch, err)
			}
			snapshot.TotalStake = total
		}
		if err := snapshot.Validate(); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func parseBlockHash(raw string) (common.Hash, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Hash{}, fmt.Errorf("block_hash required")
	}
	decoded := common.FromHex(trimmed)
	if len(decoded) != common.HashLength {
		return common.Hash{}, fmt.Errorf("block_hash %q must be %d hex bytes", trimmed, common.HashLength)
	}
	return common.BytesToHash(decoded), nil
}

func parseStake(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stake amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("stake amount %q must not be negative", raw)
	}
	return value, nil
}
