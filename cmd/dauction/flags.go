package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"Dauction/internal/config"
	"Dauction/internal/types"
)

// Flags holds the command-line overrides applied on top of the config file.
type Flags struct {
	// ConfigPath is the YAML configuration file.
	ConfigPath string

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string

	// RestorePath is a snapshot loaded into empty storage before start.
	RestorePath string

	DataPath    string
	HTTPAddress string
	LogLevel    string
}

// parseFlags parses command-line flags.
func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "YAML config path (defaults to $DAUCTION_CONFIG)")
	flag.StringVar(&f.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	flag.StringVar(&f.RestorePath, "restore", "", "Snapshot file to restore into empty storage")
	flag.StringVar(&f.DataPath, "data", "", "Data directory path")
	flag.StringVar(&f.HTTPAddress, "http", "", "HTTP API address")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	return f
}

// apply overrides cfg with the flags that were set.
func (f *Flags) apply(cfg *config.Config) {
	if f.DataPath != "" {
		cfg.Data.Path = f.DataPath
	}
	if f.HTTPAddress != "" {
		cfg.Server.Addr = f.HTTPAddress
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}

// deriveAddress returns the first 20 bytes of blake3(tag || pubkey).
// Distinct tags give the node distinct operator and escrow identities.
func deriveAddress(key ed25519.PrivateKey, tag string) types.Address {
	pub := key.Public().(ed25519.PublicKey)

	h := blake3.New()
	h.Write([]byte(tag))
	h.Write(pub)

	var addr types.Address
	copy(addr[:], h.Sum(nil))

	return addr
}
