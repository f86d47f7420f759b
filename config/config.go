// Package config loads and validates the daemon's YAML configuration
// file (spec.md §6), translating the section layout and validation
// rules of original_source/stealth-swapd/src/config/mod.rs into Go/
// yaml.v3 idiom.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file
// path (spec.md §6).
const EnvConfigPath = "STEALTH_SWAP_CONFIG"

// DefaultConfigPath is used when EnvConfigPath is unset.
const DefaultConfigPath = "./config.yaml"

// EnvFailWebhookURL names the optional failure-webhook URL. No config
// file field carries it: cmd/swapd reads it with os.Getenv and hands
// it to the coordinator, matching spec.md §6's listing of it as a
// bare env var.
const EnvFailWebhookURL = "FAIL_WEBHOOK_URL"

// Config is the top-level document; each field is one of §6's config
// sections.
type Config struct {
	Solana   SolanaConfig   `yaml:"solana"`
	Monero   MoneroConfig   `yaml:"monero"`
	Quoting  QuotingConfig  `yaml:"quoting"`
	Relayer  RelayerConfig  `yaml:"relayer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
}

// SolanaConfig describes chain A's RPC endpoint and signing key.
type SolanaConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	KeypairPath string `yaml:"keypair_path"`
	USDCMint    string `yaml:"usdc_mint"`
	Commitment  string `yaml:"commitment,omitempty"`
}

// MoneroConfig describes chain B's wallet RPC endpoint and the
// environment variable holding its passphrase.
type MoneroConfig struct {
	WalletRPCURL string `yaml:"wallet_rpc_url"`
	WalletFile   string `yaml:"wallet_file"`
	PasswordEnv  string `yaml:"password_env"`
	DaemonURL    string `yaml:"daemon_url,omitempty"`
}

// QuotingConfig bounds the amounts quote.Manager enforces. ExpiryMinutes
// is parsed but not passed on: quotes always live for
// quote.DefaultLifetime.
type QuotingConfig struct {
	MinUSDC       uint64 `yaml:"min_usdc"`
	MaxUSDC       uint64 `yaml:"max_usdc"`
	SpreadBps     uint64 `yaml:"spread_bps"`
	ExpiryMinutes uint64 `yaml:"expiry_minutes,omitempty"`
}

// RelayerConfig caps the optional fee a relayer may charge for
// submitting a redeem transaction on the beneficiary's behalf.
type RelayerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	FeeBps         uint64 `yaml:"fee_bps"`
	MaxGasLamports uint64 `yaml:"max_gas_lamports"`
}

// LoggingConfig is the parsed logging section. cmd/swapd does not read
// it: the log level and log directory come from its --loglevel and
// --logdir flags.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output,omitempty"`
}

// ServerConfig configures the HTTP listener httpapi.Server is mounted
// behind.
type ServerConfig struct {
	BindAddress string `yaml:"bind_address"`
}

// DatabaseConfig names the SQLite file store.Open opens.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Load reads path, parses it as YAML, and validates the result. A
// missing path is an error: unlike the source implementation this
// does not silently fall back to built-in defaults, since spec.md §7
// treats a missing config file as a fatal startup error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PathFromEnv returns the configured path: EnvConfigPath if set, else
// DefaultConfigPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Validate checks the fields spec.md §7 requires to fail fast at
// startup: the quoting range, the two basis-point caps, and that the
// Monero wallet passphrase environment variable is both set and
// non-empty.
func (c *Config) Validate() error {
	if c.Quoting.MinUSDC >= c.Quoting.MaxUSDC {
		return fmt.Errorf("config: quoting.min_usdc must be less than quoting.max_usdc")
	}
	if c.Quoting.SpreadBps > 10_000 {
		return fmt.Errorf("config: quoting.spread_bps %d exceeds 10000", c.Quoting.SpreadBps)
	}
	if c.Relayer.FeeBps > 10_000 {
		return fmt.Errorf("config: relayer.fee_bps %d exceeds 10000", c.Relayer.FeeBps)
	}
	if c.Monero.PasswordEnv == "" {
		return fmt.Errorf("config: monero.password_env must be set")
	}
	if c.Server.BindAddress == "" {
		return fmt.Errorf("config: server.bind_address must be set")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}

	if _, err := c.MoneroPassword(); err != nil {
		return err
	}
	return nil
}

// MoneroPassword resolves the wallet passphrase named by
// Monero.PasswordEnv, rejecting a missing or empty value.
func (c *Config) MoneroPassword() (string, error) {
	pw, ok := os.LookupEnv(c.Monero.PasswordEnv)
	if !ok {
		return "", fmt.Errorf("config: environment variable %s is not set", c.Monero.PasswordEnv)
	}
	if pw == "" {
		return "", fmt.Errorf("config: environment variable %s is empty", c.Monero.PasswordEnv)
	}
	return pw, nil
}
