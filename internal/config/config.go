// Package config loads the node configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"Dauction/internal/auction"
	"Dauction/internal/types"
)

// OracleAnswer seeds the in-process price oracle.
type OracleAnswer struct {
	Feed     types.Address `yaml:"feed"`
	Price    string        `yaml:"price"`
	Decimals uint8         `yaml:"decimals"`
}

// Config is the node configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Data struct {
		Path string `yaml:"path"`
		// SnapshotInterval is how often the ledger is snapshotted to
		// <path>/ledger.snap. Zero disables it.
		SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	} `yaml:"data"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Auction struct {
		MinBiddingDuration time.Duration           `yaml:"min_bidding_duration"`
		ReferenceToken     types.Address           `yaml:"reference_token"`
		AcceptedTokens     []auction.AcceptedToken `yaml:"accepted_tokens"`
	} `yaml:"auction"`
	Oracle struct {
		MaxAge  time.Duration  `yaml:"max_age"`
		Answers []OracleAnswer `yaml:"answers"`
	} `yaml:"oracle"`
	Indexer struct {
		DSN string `yaml:"dsn"`
	} `yaml:"indexer"`
	Devnet struct {
		Enabled     bool            `yaml:"enabled"`
		Collections []types.Address `yaml:"collections"`
	} `yaml:"devnet"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Data.Path = "./data"
	cfg.Data.SnapshotInterval = time.Minute
	cfg.Log.Level = "info"
	cfg.Auction.MinBiddingDuration = auction.DefaultMinBiddingDuration
	cfg.Devnet.Enabled = true

	return cfg
}

// Load reads path over the defaults and applies environment overrides.
// An empty path falls back to DAUCTION_CONFIG, then to defaults only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DAUCTION_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config:\n%w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s:\n%w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the fields the node cannot start without.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Data.Path == "" {
		return errors.New("data.path is required")
	}
	if c.Auction.ReferenceToken.IsZero() {
		return errors.New("auction.reference_token is required")
	}
	if len(c.Auction.AcceptedTokens) == 0 {
		return errors.New("auction.accepted_tokens is required")
	}
	if c.Auction.MinBiddingDuration < time.Second {
		return errors.New("auction.min_bidding_duration must be at least 1s")
	}

	for _, a := range c.Oracle.Answers {
		if _, err := a.PriceInt(); err != nil {
			return fmt.Errorf("oracle answer for %s:\n%w", a.Feed, err)
		}
	}

	return nil
}

// Tokens builds the accepted token registry.
func (c *Config) Tokens() (*auction.TokenRegistry, error) {
	return auction.NewTokenRegistry(c.Auction.ReferenceToken, c.Auction.AcceptedTokens)
}

// PriceInt parses the configured price.
func (a OracleAnswer) PriceInt() (*big.Int, error) {
	return types.ParseAmount(a.Price)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DAUCTION_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DAUCTION_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCommaList(v)
	}
	if v := os.Getenv("DAUCTION_DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("DAUCTION_SNAPSHOT_INTERVAL"); v != "" {
		cfg.Data.SnapshotInterval = durationOr(cfg.Data.SnapshotInterval, v)
	}
	if v := os.Getenv("DAUCTION_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DAUCTION_INDEXER_DSN"); v != "" {
		cfg.Indexer.DSN = v
	}
	if v := os.Getenv("DAUCTION_MIN_BIDDING_DURATION"); v != "" {
		cfg.Auction.MinBiddingDuration = durationOr(cfg.Auction.MinBiddingDuration, v)
	}
	if v := os.Getenv("DAUCTION_ORACLE_MAX_AGE"); v != "" {
		cfg.Oracle.MaxAge = durationOr(cfg.Oracle.MaxAge, v)
	}
	if v := os.Getenv("DAUCTION_DEVNET"); v != "" {
		cfg.Devnet.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func durationOr(fallback time.Duration, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
