/*
Package config provides configuration of the safechain application.

Configuration is a YAML document:

	rpc:
	  endpoint: http://localhost:30333
	  dial_timeout: 5s
	  request_timeout: 15s
	contract: NXV7ZhHiyM1aHXwpVsRZC6BwNFP2jghXAq
	wallet:
	  path: wallet.json
	  address: NbUgTSFvPmsRxmGeWpuuGeJUoRoi6PErcM
	  password: ""
	cache:
	  path: known.db
	  size: 1024
	  ttl: 720h
	discovery:
	  look_back: 1000
	  seeds:
	    - NbUgTSFvPmsRxmGeWpuuGeJUoRoi6PErcM
	concurrency: 8

Only the RPC endpoint is required. The contract address is required by all
the commands except the deployment.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"gopkg.in/yaml.v3"
)

// Defaults of the optional values.
const (
	DefaultDialTimeout    = 5 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultCacheSize      = 1024
	DefaultCacheTTL       = 30 * 24 * time.Hour
	DefaultLookBack       = 1000
	DefaultConcurrency    = 8
)

// RPC configures connection to the Neo RPC server.
type RPC struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Wallet selects account signing the transactions.
type Wallet struct {
	Path string `yaml:"path"`
	// Address of the account in the wallet, the default one if empty.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// Cache configures storage of the identities met during discovery.
type Cache struct {
	// Path to the bbolt file, in-memory cache is used if empty.
	Path string        `yaml:"path"`
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Discovery configures heuristic sharer discovery used when the reverse grant
// index is unavailable.
type Discovery struct {
	LookBack uint32   `yaml:"look_back"`
	Seeds    []string `yaml:"seeds"`
}

// Config is the application configuration.
type Config struct {
	RPC         RPC       `yaml:"rpc"`
	Contract    string    `yaml:"contract"`
	Wallet      Wallet    `yaml:"wallet"`
	Cache       Cache     `yaml:"cache"`
	Discovery   Discovery `yaml:"discovery"`
	Concurrency int       `yaml:"concurrency"`
}

// Load reads the configuration from the YAML file. Unknown fields are
// rejected. Defaults are applied to the omitted optional values and the result
// is validated.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var c Config

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	c.SetDefaults()

	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &c, nil
}

// SetDefaults fills zero optional values with defaults.
func (c *Config) SetDefaults() {
	if c.RPC.DialTimeout == 0 {
		c.RPC.DialTimeout = DefaultDialTimeout
	}
	if c.RPC.RequestTimeout == 0 {
		c.RPC.RequestTimeout = DefaultRequestTimeout
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Discovery.LookBack == 0 {
		c.Discovery.LookBack = DefaultLookBack
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.RPC.Endpoint == "":
		return errors.New("missing RPC endpoint")
	case c.RPC.DialTimeout < 0:
		return errors.New("negative RPC dial timeout")
	case c.RPC.RequestTimeout < 0:
		return errors.New("negative RPC request timeout")
	case c.Cache.Size < 0:
		return errors.New("negative cache size")
	case c.Cache.TTL < 0:
		return errors.New("negative cache TTL")
	case c.Concurrency < 0:
		return errors.New("negative concurrency")
	}

	if c.Contract != "" {
		_, err := c.ContractHash()
		if err != nil {
			return err
		}
	}

	if c.Wallet.Address != "" {
		_, err := address.StringToUint160(c.Wallet.Address)
		if err != nil {
			return fmt.Errorf("invalid wallet address: %w", err)
		}
	}

	_, err := c.SeedHashes()
	return err
}

// ContractHash returns the FileStore contract address. Both Neo address and
// hex-encoded little-endian script hash are accepted.
func (c *Config) ContractHash() (util.Uint160, error) {
	if c.Contract == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}

	h, err := ParseIdentity(c.Contract)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract address: %w", err)
	}

	return h, nil
}

// SeedHashes returns parsed discovery seeds.
func (c *Config) SeedHashes() ([]util.Uint160, error) {
	res := make([]util.Uint160, len(c.Discovery.Seeds))

	for i := range c.Discovery.Seeds {
		var err error
		res[i], err = ParseIdentity(c.Discovery.Seeds[i])
		if err != nil {
			return nil, fmt.Errorf("invalid discovery seed #%d: %w", i, err)
		}
	}

	return res, nil
}

// ParseIdentity decodes Neo address or hex-encoded little-endian script hash
// with optional 0x prefix.
func ParseIdentity(s string) (util.Uint160, error) {
	if h, err := address.StringToUint160(s); err == nil {
		return h, nil
	}

	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("%q is neither Neo address nor script hash", s)
	}

	return h, nil
}
