package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

const defaultConfigTOML = `ListenAddress = ":8558"
DataDir = "./strategy-data"
ChainRPCURL = ""
Environment = ""
# Amounts at or below this floor stay idle instead of being converted.
# Empty uses the engine default (1 gwei).
DustFloorWei = ""

[Custody]
Owner = ""
LSTToken = ""

[Pool]
Address = ""
AssetIndex = 0
LSTIndex = 1

[Staking]
Address = ""
Referral = ""

[Queue]
Address = ""

[Auth]
ManagementToken = ""
EmergencyToken = ""
ManagementAddress = ""
EmergencyAddress = ""
`

// Config captures the runtime settings for the strategy daemon.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	ChainRPCURL   string `toml:"ChainRPCURL"`
	Environment   string `toml:"Environment"`
	DustFloorWei  string `toml:"DustFloorWei"`

	Custody CustodyConfig `toml:"Custody"`
	Pool    PoolConfig    `toml:"Pool"`
	Staking StakingConfig `toml:"Staking"`
	Queue   QueueConfig   `toml:"Queue"`
	Auth    AuthConfig    `toml:"Auth"`
}

// CustodyConfig identifies the strategy's custody account and the LST token
// it holds. The liquid balance is the custody account's native balance.
type CustodyConfig struct {
	Owner    string `toml:"Owner"`
	LSTToken string `toml:"LSTToken"`
}

// PoolConfig identifies the market-making pool and its coin indices.
type PoolConfig struct {
	Address    string `toml:"Address"`
	AssetIndex int64  `toml:"AssetIndex"`
	LSTIndex   int64  `toml:"LSTIndex"`
}

// StakingConfig identifies the staking protocol's mint entry point.
type StakingConfig struct {
	Address  string `toml:"Address"`
	Referral string `toml:"Referral"`
}

// QueueConfig identifies the withdrawal queue contract.
type QueueConfig struct {
	Address string `toml:"Address"`
}

// AuthConfig maps the management RPC bearer tokens to governance principals.
// Tokens left empty disable the corresponding tier over RPC.
type AuthConfig struct {
	ManagementToken   string `toml:"ManagementToken"`
	EmergencyToken    string `toml:"EmergencyToken"`
	ManagementAddress string `toml:"ManagementAddress"`
	EmergencyAddress  string `toml:"EmergencyAddress"`
}

// Load reads the TOML configuration from disk and validates the result. When
// the file does not exist a commented skeleton is written in its place and an
// error is returned so the operator can fill in the deployment addresses.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if writeErr := os.WriteFile(path, []byte(defaultConfigTOML), 0o600); writeErr != nil {
			return nil, fmt.Errorf("write default config %s: %w", path, writeErr)
		}
		return nil, fmt.Errorf("config %s did not exist; default written, fill in the deployment addresses", path)
	}
	cfg := &Config{
		ListenAddress: ":8558",
		DataDir:       "./strategy-data",
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.ChainRPCURL = strings.TrimSpace(cfg.ChainRPCURL)
	cfg.DustFloorWei = strings.TrimSpace(cfg.DustFloorWei)
	cfg.Custody.Owner = strings.TrimSpace(cfg.Custody.Owner)
	cfg.Custody.LSTToken = strings.TrimSpace(cfg.Custody.LSTToken)
	cfg.Pool.Address = strings.TrimSpace(cfg.Pool.Address)
	cfg.Staking.Address = strings.TrimSpace(cfg.Staking.Address)
	cfg.Staking.Referral = strings.TrimSpace(cfg.Staking.Referral)
	cfg.Queue.Address = strings.TrimSpace(cfg.Queue.Address)
	cfg.Auth.ManagementToken = strings.TrimSpace(cfg.Auth.ManagementToken)
	cfg.Auth.EmergencyToken = strings.TrimSpace(cfg.Auth.EmergencyToken)
	cfg.Auth.ManagementAddress = strings.TrimSpace(cfg.Auth.ManagementAddress)
	cfg.Auth.EmergencyAddress = strings.TrimSpace(cfg.Auth.EmergencyAddress)
}

// Validate checks address formats and required fields.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if cfg.ListenAddress == "" {
		return fmt.Errorf("ListenAddress required")
	}
	if cfg.ChainRPCURL == "" {
		return fmt.Errorf("ChainRPCURL required")
	}
	required := map[string]string{
		"Custody.Owner":    cfg.Custody.Owner,
		"Custody.LSTToken": cfg.Custody.LSTToken,
		"Pool.Address":     cfg.Pool.Address,
		"Staking.Address":  cfg.Staking.Address,
		"Queue.Address":    cfg.Queue.Address,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("%s required", field)
		}
		if !common.IsHexAddress(value) {
			return fmt.Errorf("%s is not a valid address: %s", field, value)
		}
	}
	optional := map[string]string{
		"Staking.Referral":       cfg.Staking.Referral,
		"Auth.ManagementAddress": cfg.Auth.ManagementAddress,
		"Auth.EmergencyAddress":  cfg.Auth.EmergencyAddress,
	}
	for field, value := range optional {
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("%s is not a valid address: %s", field, value)
		}
	}
	if cfg.Pool.AssetIndex == cfg.Pool.LSTIndex {
		return fmt.Errorf("Pool.AssetIndex and Pool.LSTIndex must differ")
	}
	// Two live tokens mean two tiers; collapsing both onto one principal would
	// silently hand the management token the emergency tier.
	if cfg.Auth.ManagementToken != "" && cfg.Auth.EmergencyToken != "" {
		if cfg.Auth.ManagementToken == cfg.Auth.EmergencyToken {
			return fmt.Errorf("Auth.ManagementToken and Auth.EmergencyToken must differ")
		}
		if cfg.Auth.ManagementAddress == "" || cfg.Auth.EmergencyAddress == "" {
			return fmt.Errorf("Auth.ManagementAddress and Auth.EmergencyAddress required when both tokens are configured")
		}
		if common.HexToAddress(cfg.Auth.ManagementAddress) == common.HexToAddress(cfg.Auth.EmergencyAddress) {
			return fmt.Errorf("Auth.ManagementAddress and Auth.EmergencyAddress must be distinct principals")
		}
	}
	if _, err := cfg.DustFloor(); err != nil {
		return err
	}
	return nil
}

// DustFloor parses the optional dust floor override. Nil means "use the
// engine default".
func (cfg *Config) DustFloor() (*big.Int, error) {
	if cfg == nil || cfg.DustFloorWei == "" {
		return nil, nil
	}
	floor, ok := new(big.Int).SetString(cfg.DustFloorWei, 10)
	if !ok || floor.Sign() < 0 {
		return nil, fmt.Errorf("DustFloorWei is not a valid amount: %s", cfg.DustFloorWei)
	}
	return floor, nil
}
