package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Wallet provider modes
const (
	WalletModeNone     = "none"     // no provider injected
	WalletModeRPC      = "rpc"      // node-managed accounts
	WalletModeKey      = "key"      // local private key
	WalletModeMnemonic = "mnemonic" // local HD wallet
)

// WalletConfig wallet provider settings
type WalletConfig struct {
	Mode           string
	PrivateKey     string
	Mnemonic       string
	DerivationPath string
	AutoApprove    bool // grant interactive account requests without asking
	PreApproved    bool // account is visible to eth_accounts from the start
}

// LogConfig logging settings
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

// Config application config
type Config struct {
	RPCURL              string
	ChainID             int64 // 0 = ask the node
	ContractAddress     string
	Wallet              WalletConfig
	Listen              string
	Log                 LogConfig
	ReceiptPollInterval time.Duration
	TimestampLayout     string
	Timezone            string
}

// ConfigFile config file layout (YAML/JSON)
type ConfigFile struct {
	RPCURL          string `yaml:"rpc_url" json:"rpc_url"`
	ChainID         int64  `yaml:"chain_id" json:"chain_id"`
	ContractAddress string `yaml:"contract_address" json:"contract_address"`
	Wallet          struct {
		Mode           string `yaml:"mode" json:"mode"`
		PrivateKey     string `yaml:"private_key" json:"private_key"`
		Mnemonic       string `yaml:"mnemonic" json:"mnemonic"`
		DerivationPath string `yaml:"derivation_path" json:"derivation_path"`
		AutoApprove    *bool  `yaml:"auto_approve" json:"auto_approve"`
		PreApproved    *bool  `yaml:"pre_approved" json:"pre_approved"`
	} `yaml:"wallet" json:"wallet"`
	Listen string `yaml:"listen" json:"listen"`
	Log    struct {
		Level      string `yaml:"level" json:"level"`
		File       string `yaml:"file" json:"file"`
		MaxSize    int    `yaml:"max_size" json:"max_size"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups"`
		MaxAge     int    `yaml:"max_age" json:"max_age"`
	} `yaml:"log" json:"log"`
	ReceiptPollIntervalMs int    `yaml:"receipt_poll_interval_ms" json:"receipt_poll_interval_ms"`
	TimestampLayout       string `yaml:"timestamp_layout" json:"timestamp_layout"`
	Timezone              string `yaml:"timezone" json:"timezone"`
}

// LoadFromFile loads config. Priority: environment > config file > defaults
// An empty path loads from environment and defaults only.
func LoadFromFile(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", filePath, err)
		}
	}

	walletMode := getEnv("WALLET_MODE", cf.Wallet.Mode)
	if walletMode == "" {
		walletMode = inferWalletMode(cf)
	}

	c := &Config{
		RPCURL:          getEnv("RPC_URL", orDefault(cf.RPCURL, "http://127.0.0.1:8545")),
		ChainID:         parseInt64Env("CHAIN_ID", cf.ChainID),
		ContractAddress: getEnv("CONTRACT_ADDRESS", cf.ContractAddress),
		Wallet: WalletConfig{
			Mode:           strings.ToLower(walletMode),
			PrivateKey:     getEnv("WALLET_PRIVATE_KEY", cf.Wallet.PrivateKey),
			Mnemonic:       getEnv("WALLET_MNEMONIC", cf.Wallet.Mnemonic),
			DerivationPath: getEnv("WALLET_DERIVATION_PATH", cf.Wallet.DerivationPath),
			AutoApprove:    parseBoolEnv("WALLET_AUTO_APPROVE", boolOr(cf.Wallet.AutoApprove, true)),
			PreApproved:    parseBoolEnv("WALLET_PRE_APPROVED", boolOr(cf.Wallet.PreApproved, false)),
		},
		Listen: getEnv("LISTEN_ADDR", orDefault(cf.Listen, ":8080")),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", orDefault(cf.Log.Level, "info")),
			File:       getEnv("LOG_FILE", cf.Log.File),
			MaxSize:    intOr(cf.Log.MaxSize, 100),
			MaxBackups: intOr(cf.Log.MaxBackups, 3),
			MaxAge:     intOr(cf.Log.MaxAge, 7),
		},
		ReceiptPollInterval: time.Duration(parseIntEnv("RECEIPT_POLL_INTERVAL_MS", intOr(cf.ReceiptPollIntervalMs, 1000))) * time.Millisecond,
		TimestampLayout:     getEnv("TIMESTAMP_LAYOUT", cf.TimestampLayout),
		Timezone:            getEnv("TIMEZONE", cf.Timezone),
	}
	return c, nil
}

// Validate checks the config
func (c *Config) Validate() error {
	switch c.Wallet.Mode {
	case WalletModeNone:
		return nil
	case WalletModeRPC:
	case WalletModeKey:
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("WALLET_PRIVATE_KEY is required for wallet mode %q", c.Wallet.Mode)
		}
	case WalletModeMnemonic:
		if c.Wallet.Mnemonic == "" {
			return fmt.Errorf("WALLET_MNEMONIC is required for wallet mode %q", c.Wallet.Mode)
		}
	default:
		return fmt.Errorf("unknown wallet mode: %s", c.Wallet.Mode)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS is not a valid address: %q", c.ContractAddress)
	}
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("receipt poll interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location timezone for displayed timestamps (empty = local)
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func inferWalletMode(cf *ConfigFile) string {
	switch {
	case os.Getenv("WALLET_PRIVATE_KEY") != "" || cf.Wallet.PrivateKey != "":
		return WalletModeKey
	case os.Getenv("WALLET_MNEMONIC") != "" || cf.Wallet.Mnemonic != "":
		return WalletModeMnemonic
	default:
		return WalletModeNone
	}
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cf ConfigFile
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (.yaml, .yml, .json)", ext)
	}
	return &cf, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
