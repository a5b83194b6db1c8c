package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/types"
)

type Config struct {
	DataDir             string `toml:"DataDir"`
	StateRoot           string `toml:"StateRoot"`
	EpochSnapshots      string `toml:"EpochSnapshots"`
	CodeCachePath       string `toml:"CodeCachePath"`
	CodeCacheSize       int    `toml:"CodeCacheSize"`
	ProtocolVersion     uint32 `toml:"ProtocolVersion"`
	LogEnv              string `toml:"LogEnv"`
	LogRotatePath       string `toml:"LogRotatePath"`
	LogRotateMaxSizeMB  int    `toml:"LogRotateMaxSizeMB"`
	LogRotateMaxBackups int    `toml:"LogRotateMaxBackups"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s contains unknown fields: %s", path, strings.Join(keys, ", "))
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./zenith-data"
	}
	if cfg.CodeCacheSize == 0 {
		cfg.CodeCacheSize = 256
	}
	if strings.TrimSpace(cfg.LogEnv) == "" {
		cfg.LogEnv = "dev"
	}
	if cfg.LogRotateMaxSizeMB == 0 {
		cfg.LogRotateMaxSizeMB = 64
	}
	if cfg.LogRotateMaxBackups == 0 {
		cfg.LogRotateMaxBackups = 5
	}
}

// Root parses the configured state root. An empty StateRoot selects the empty
// trie.
func (c *Config) Root() (common.Hash, error) {
	trimmed := strings.TrimSpace(c.StateRoot)
	if trimmed == "" {
		return common.Hash{}, nil
	}
	raw := common.FromHex(trimmed)
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("config: StateRoot %q is not a 32-byte hex hash", c.StateRoot)
	}
	return common.BytesToHash(raw), nil
}

// Version returns the protocol version the tooling should run under. Zero
// selects the current version.
func (c *Config) Version() types.ProtocolVersion {
	if c.ProtocolVersion == 0 {
		return types.CurrentProtocolVersion
	}
	return types.ProtocolVersion(c.ProtocolVersion)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:             "./zenith-data",
		CodeCacheSize:       256,
		ProtocolVersion:     uint32(types.CurrentProtocolVersion),
		LogEnv:              "dev",
		LogRotateMaxSizeMB:  64,
		LogRotateMaxBackups: 5,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
