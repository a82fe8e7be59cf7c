package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the bridge configuration.
type Config struct {
	// Backend is the daemon address as a multiaddr, e.g. /ip4/127.0.0.1/udp/41244
	Backend     string            `yaml:"backend" json:"backend"`
	API         APIConfig         `yaml:"api" json:"api"`
	Storage     StorageConfig     `yaml:"storage" json:"storage"`
	KeyExchange KeyExchangeConfig `yaml:"key_exchange" json:"key_exchange"`
}

// APIConfig controls the local HTTP API
type APIConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	Listen         string   `yaml:"listen" json:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins"`
}

// StorageConfig controls the history database. An empty path disables it.
type StorageConfig struct {
	Path       string `yaml:"path" json:"path"`
	Passphrase string `yaml:"passphrase" json:"-"`
}

// KeyExchangeConfig holds defaults for key requests
type KeyExchangeConfig struct {
	DefaultHops  uint64 `yaml:"default_hops" json:"default_hops"`
	SecretLength int    `yaml:"secret_length" json:"secret_length"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Backend: network.DefaultBackend,
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8431",
		},
		Storage: StorageConfig{
			Path: filepath.Join(defaultDir(), "history.db"),
		},
		KeyExchange: KeyExchangeConfig{
			DefaultHops:  3,
			SecretLength: crypto.DefaultSecretLength,
		},
	}
}

// DefaultPath returns the default config file path: ~/.xchat/config.yaml
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".xchat")
	}
	return filepath.Join(home, ".xchat")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns the default Config with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	// The passphrase may live in this file.
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		log.Printf("⚠️  Config file %s has permissions %04o, expected 0600", path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field ranges and that the backend is a loopback UDP address
func (c *Config) Validate() error {
	if _, err := network.ParseBackend(c.Backend); err != nil {
		return fmt.Errorf("%w: backend: %v", ErrInvalidConfig, err)
	}
	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("%w: api.listen is required when the api is enabled", ErrInvalidConfig)
	}
	if c.KeyExchange.DefaultHops > protocol.MaxUint48 {
		return fmt.Errorf("%w: key_exchange.default_hops must be at most %d", ErrInvalidConfig, uint64(protocol.MaxUint48))
	}
	if c.KeyExchange.SecretLength <= 0 {
		return fmt.Errorf("%w: key_exchange.secret_length must be positive", ErrInvalidConfig)
	}
	return nil
}

// Save writes the configuration as YAML with owner-only permissions
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
