package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// APIKeys holds optional third-party credentials and endpoints read from
// config.json. Every key is optional; features needing a missing key degrade
// to an error reply at invocation time.
type APIKeys struct {
	CryptoAPIKey  string `json:"crypto_api_key,omitempty"`
	EtherscanKey  string `json:"etherscan_api_key,omitempty"`
	KickAPIBase   string `json:"kick_api_base,omitempty"`
	PokeAPIBase   string `json:"pokeapi_base,omitempty"`
	CryptoAPIBase string `json:"crypto_api_base,omitempty"`
}

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string

	// Command configuration
	Prefix string

	// Persistence
	DataDir string

	// Third-party APIs
	Keys APIKeys

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables and config.json
func load() (*Config, error) {
	config := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		Prefix:       "!",
		DataDir:      "data",
		Environment:  os.Getenv("ENVIRONMENT"),
	}

	if prefix := os.Getenv("COMMAND_PREFIX"); prefix != "" {
		config.Prefix = prefix
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
	if config.Environment == "" {
		config.Environment = "development"
	}

	// config.json carries the optional third-party API keys. A missing
	// file is fine.
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.json"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &config.Keys); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if config.Keys.PokeAPIBase == "" {
		config.Keys.PokeAPIBase = "https://pokeapi.co/api/v2"
	}
	if config.Keys.KickAPIBase == "" {
		config.Keys.KickAPIBase = "https://kick.com/api/v2"
	}
	if config.Keys.CryptoAPIBase == "" {
		config.Keys.CryptoAPIBase = "https://api.coingecko.com/api/v3"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
	}

	return config, nil
}
