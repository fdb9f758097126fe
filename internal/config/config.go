// Package config assembles the simulator's runtime settings from defaults,
// an optional config file and command-line flags, in that order of
// precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the safekeeper simulator.
//
// Fields:
//   - ImagePath: file backing the 1 KB store image.
//   - MaxTries: consecutive failed sign-ins before the system locks.
//   - InputTimeout: idle time during credential entry that counts as a timeout.
//   - RecoverySecret: base32 TOTP secret for the master recovery code; empty disables it.
//   - AuditDBPath: SQLite file for archived events.
//   - SnapshotPassphrase: default passphrase for sealed image exports.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ImagePath          string
	MaxTries           uint8
	InputTimeout       time.Duration
	RecoverySecret     string
	AuditDBPath        string
	SnapshotPassphrase string
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ImagePath = "safekeeper.img"
	c.MaxTries = 3
	c.InputTimeout = 30 * time.Second
	c.RecoverySecret = ""
	c.AuditDBPath = "safekeeper-audit.db"
	c.SnapshotPassphrase = ""
	c.LogLevel = "info"
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.ImagePath == "" {
		return fmt.Errorf("image path is empty")
	}
	if c.MaxTries == 0 {
		return fmt.Errorf("max tries must be at least 1")
	}
	if c.InputTimeout < 0 {
		return fmt.Errorf("input timeout %s is negative", c.InputTimeout)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the file named by -c/-config
// (if any), then the remaining flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
