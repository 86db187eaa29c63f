package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/toncenter"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// EnvAPIKey overrides the toncenter api key from the file.
const EnvAPIKey = "TONCENTER_API_KEY"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Network   string    `yaml:"network"`
	Toncenter Toncenter `yaml:"toncenter"`
	Template  Template  `yaml:"template"`
	Deploy    Deploy    `yaml:"deploy"`
}

type Toncenter struct {
	// URL is picked by network when empty.
	URL       string        `yaml:"url,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Template points to BOC files with compiled minter and wallet code.
type Template struct {
	Minter string `yaml:"minter"`
	Wallet string `yaml:"wallet"`
}

type Deploy struct {
	// Amount of TON attached to the deploy message.
	Amount string `yaml:"amount"`
	// MintGas is forwarded by the minter to the new jetton wallet.
	MintGas string `yaml:"mint_gas"`
	// ValidFor limits how long the wallet may hold the request before sending.
	ValidFor time.Duration `yaml:"valid_for"`
	// PollInterval of the deployment status check.
	PollInterval time.Duration `yaml:"poll_interval"`
}

func Default() *Config {
	return &Config{
		Network: NetworkMainnet,
		Toncenter: Toncenter{
			RateLimit: 1,
			Timeout:   10 * time.Second,
		},
		Deploy: Deploy{
			Amount:       "0.25",
			MintGas:      "0.2",
			ValidFor:     5 * time.Minute,
			PollInterval: 5 * time.Second,
		},
	}
}

// Load reads config from the file, applies env overrides and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes yaml on top of the defaults, unknown fields are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err = decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv(EnvAPIKey); key != "" {
		c.Toncenter.APIKey = key
	}
}

func (c *Config) Validate() error {
	switch c.Network {
	case NetworkMainnet, NetworkTestnet:
	default:
		return fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, c.Network)
	}

	if c.Toncenter.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}

	if c.Toncenter.Timeout <= 0 {
		return fmt.Errorf("%w: timeout should be positive", ErrInvalidConfig)
	}

	if c.Template.Minter == "" || c.Template.Wallet == "" {
		return fmt.Errorf("%w: template minter and wallet paths are required", ErrInvalidConfig)
	}

	if _, err := c.DeployAmount(); err != nil {
		return fmt.Errorf("%w: deploy amount: %v", ErrInvalidConfig, err)
	}

	if _, err := c.MintGasAmount(); err != nil {
		return fmt.Errorf("%w: mint gas: %v", ErrInvalidConfig, err)
	}

	if c.Deploy.ValidFor <= 0 || c.Deploy.PollInterval <= 0 {
		return fmt.Errorf("%w: valid_for and poll_interval should be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) DeployAmount() (tlb.Coins, error) {
	return tlb.FromTON(c.Deploy.Amount)
}

func (c *Config) MintGasAmount() (tlb.Coins, error) {
	return tlb.FromTON(c.Deploy.MintGas)
}

func (c *Config) IsTestnet() bool {
	return c.Network == NetworkTestnet
}

func (c *Config) ToncenterURL() string {
	if c.Toncenter.URL != "" {
		return c.Toncenter.URL
	}

	if c.IsTestnet() {
		return toncenter.TestnetURL
	}
	return toncenter.MainnetURL
}

// ToncenterClient creates api client with the configured limits.
func (c *Config) ToncenterClient(opts ...toncenter.Option) *toncenter.Client {
	all := []toncenter.Option{
		toncenter.WithTimeout(c.Toncenter.Timeout),
		toncenter.WithRateLimit(c.Toncenter.RateLimit),
	}
	if c.Toncenter.APIKey != "" {
		all = append(all, toncenter.WithAPIKey(c.Toncenter.APIKey))
	}

	return toncenter.New(c.ToncenterURL(), append(all, opts...)...)
}
