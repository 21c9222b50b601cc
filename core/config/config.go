package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/defistack/automate/core/chain"
	"github.com/defistack/automate/core/pools"
)

// Config is everything the automator process needs, read once at boot
type Config struct {
	Environment string `yaml:"environment" validate:"omitempty,oneof=production development"`
	DbPath      string `yaml:"db_path" validate:"required"`

	// MetricsAddr exposes prometheus counters when set, e.g. ":9100"
	MetricsAddr string `yaml:"metrics_addr"`

	// SignerPrivateKey is a hex ECDSA key for the automate run action.
	// Leave empty on read-only deployments.
	SignerPrivateKey string `yaml:"signer_private_key"`

	Workers                 int `yaml:"workers" validate:"omitempty,min=1"`
	PollIntervalSeconds     int `yaml:"poll_interval_seconds" validate:"omitempty,min=1"`
	TriggerScanIntervalSecs int `yaml:"trigger_scan_interval_seconds" validate:"omitempty,min=1"`
	PoolScanIntervalSeconds int `yaml:"pool_scan_interval_seconds" validate:"omitempty,min=1"`

	// BackupDir receives pre-migration snapshots and, when
	// BackupIntervalMinutes is set, periodic full backups too
	BackupDir             string `yaml:"backup_dir"`
	BackupIntervalMinutes int    `yaml:"backup_interval_minutes" validate:"omitempty,min=1"`

	Networks []chain.NetworkConfig `yaml:"networks" validate:"required,min=1,dive"`

	// Scanners seeds one reconciliation task per entry on boot
	Scanners []pools.ScannerParams `yaml:"scanners"`
}

// Load reads, decodes and validates a YAML config file
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 1
	}
	if c.TriggerScanIntervalSecs == 0 {
		c.TriggerScanIntervalSecs = 60
	}
	if c.BackupDir == "" {
		c.BackupDir = "./data/backups"
	}

	for i := range c.Scanners {
		if c.Scanners[i].IntervalSeconds == 0 {
			c.Scanners[i].IntervalSeconds = c.PoolScanIntervalSeconds
		}
	}
}

// PollInterval is how often an idle queue worker re-checks the store
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// TriggerScanInterval is the cadence of the trigger broker fan-out
func (c *Config) TriggerScanInterval() time.Duration {
	return time.Duration(c.TriggerScanIntervalSecs) * time.Second
}

// BackupInterval returns zero when periodic backups are disabled
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.BackupIntervalMinutes) * time.Minute
}
