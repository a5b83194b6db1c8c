package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the tooling cannot act on. Defaults are
// applied before validation, so only genuinely contradictory settings fail.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if _, err := c.Root(); err != nil {
		return err
	}
	if c.CodeCacheSize <= 0 {
		return fmt.Errorf("config: CodeCacheSize must be positive, got %d", c.CodeCacheSize)
	}
	if c.LogRotateMaxSizeMB <= 0 {
		return fmt.Errorf("config: LogRotateMaxSizeMB must be positive, got %d", c.LogRotateMaxSizeMB)
	}
	if c.LogRotateMaxBackups < 0 {
		return fmt.Errorf("config: LogRotateMaxBackups must not be negative, got %d", c.LogRotateMaxBackups)
	}
	return nil
}
