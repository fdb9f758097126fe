package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/safekeeper/internal/flagx"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Absent keys leave the
// current value alone. Durations are strings such as "30s".
type FileConfig struct {
	ImagePath          *string `json:"image_path" yaml:"image_path" toml:"image_path"`
	MaxTries           *uint8  `json:"max_tries" yaml:"max_tries" toml:"max_tries"`
	InputTimeout       *string `json:"input_timeout" yaml:"input_timeout" toml:"input_timeout"`
	RecoverySecret     *string `json:"recovery_secret" yaml:"recovery_secret" toml:"recovery_secret"`
	AuditDBPath        *string `json:"audit_db_path" yaml:"audit_db_path" toml:"audit_db_path"`
	SnapshotPassphrase *string `json:"snapshot_passphrase" yaml:"snapshot_passphrase" toml:"snapshot_passphrase"`
	LogLevel           *string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. The format is
// picked by extension: .json, .yaml/.yml or .toml.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	fc, err := decodeFile(filepath.Ext(path), data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc.apply(cfg)
}

func decodeFile(ext string, data []byte) (*FileConfig, error) {
	var fc FileConfig
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) error {
	if fc.ImagePath != nil {
		cfg.ImagePath = *fc.ImagePath
	}
	if fc.MaxTries != nil {
		cfg.MaxTries = *fc.MaxTries
	}
	if fc.InputTimeout != nil {
		d, err := time.ParseDuration(*fc.InputTimeout)
		if err != nil {
			return fmt.Errorf("input_timeout: %w", err)
		}
		cfg.InputTimeout = d
	}
	if fc.RecoverySecret != nil {
		cfg.RecoverySecret = *fc.RecoverySecret
	}
	if fc.AuditDBPath != nil {
		cfg.AuditDBPath = *fc.AuditDBPath
	}
	if fc.SnapshotPassphrase != nil {
		cfg.SnapshotPassphrase = *fc.SnapshotPassphrase
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return nil
}
