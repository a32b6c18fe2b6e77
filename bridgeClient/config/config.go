package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every derived environment key, e.g. FSA_LEDGER_FEE.
	EnvPrefix = "FSA"

	DefaultConfigFileName = "fsa_config.json"
)

//go:embed default_config.json
var defaultConfigJSON []byte

// Well known environment variable names, honoured alongside the FSA_ prefixed keys.
var envAliases = map[string]string{
	"chain.rpc_urls":    "FLR_RPC_URL",
	"chain.private_key": "FLR_PRIVATE_KEY",
	"ledger.rpc_url":    "XRPL_RPC_URL",
	"ledger.secret":     "XRPL_SECRET",
	"ledger.address":    "XRPL_ADDRESS",
	"deployment_name":   "DEPLOYMENT_NAME",
}

func validateConfig(cfg *Config) error {
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.DeploymentName != "" && cfg.DeploymentName != DeploymentProduction && cfg.DeploymentName != DeploymentStaging {
		return fmt.Errorf("deployment name must be '%s' or '%s'", DeploymentProduction, DeploymentStaging)
	}

	if cfg.StatusServerPort < 0 || cfg.StatusServerPort > 65535 {
		return fmt.Errorf("status server port must be between 0 and 65535")
	}

	// Chain defaults
	if cfg.Chain.ScanStride == 0 {
		cfg.Chain.ScanStride = 30
	}
	if cfg.Chain.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if cfg.Chain.RequestsPerSecond > 0 && cfg.Chain.RequestBurst == 0 {
		cfg.Chain.RequestBurst = 1
	}

	// Ledger defaults
	if cfg.Ledger.RequestsPerSecond < 0 {
		return fmt.Errorf("ledger requests per second must not be negative")
	}
	if cfg.Ledger.RequestsPerSecond > 0 && cfg.Ledger.RequestBurst == 0 {
		cfg.Ledger.RequestBurst = 1
	}
	if cfg.Ledger.Fee == "" {
		cfg.Ledger.Fee = "10"
	}
	if cfg.Ledger.LastLedgerOffset == 0 {
		cfg.Ledger.LastLedgerOffset = 20
	}
	if cfg.Ledger.RequestTimeoutSeconds == 0 {
		cfg.Ledger.RequestTimeoutSeconds = 30
	}
	if cfg.Ledger.ValidationPollMilliseconds == 0 {
		cfg.Ledger.ValidationPollMilliseconds = 1000
	}

	// Locator defaults
	if cfg.Locator.SampleDistance == 0 {
		cfg.Locator.SampleDistance = 1_000_000
	}
	if cfg.Locator.Overshoot == 0 {
		cfg.Locator.Overshoot = 2
	}
	if cfg.Locator.ToleranceSeconds == 0 {
		cfg.Locator.ToleranceSeconds = 10
	}
	if cfg.Locator.MaxIterations == 0 {
		cfg.Locator.MaxIterations = 64
	}

	// Bridge defaults
	if cfg.Bridge.LookbackSeconds == 0 {
		cfg.Bridge.LookbackSeconds = 90
	}
	if cfg.Bridge.WindowBlocks == 0 {
		cfg.Bridge.WindowBlocks = 4 * 90
	}
	if cfg.Bridge.PollIntervalSeconds == 0 {
		cfg.Bridge.PollIntervalSeconds = 10
	}

	for _, tmpl := range []string{cfg.Explorers.LedgerTxURL, cfg.Explorers.ChainTxURL} {
		if tmpl != "" && strings.Count(tmpl, "%s") != 1 {
			return fmt.Errorf("explorer url %q must contain exactly one %%s", tmpl)
		}
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, alias)
	}
	return v
}

// Load layers the embedded defaults, the optional JSON file at path and the
// environment, in that order, and validates the result.
func Load(path string) (Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(defaultConfigJSON)); err != nil {
		return Config{}, fmt.Errorf("failed to read default config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the given config as indented JSON to path.
func Save(cfg *Config, path string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}
