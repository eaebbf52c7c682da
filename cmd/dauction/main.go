package main

import (
	"fmt"
	"os"

	"Dauction/internal/config"
	"Dauction/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config:\n%w", err)
	}

	flags.apply(cfg)

	// The level comes from config, so the logger starts after it loads.
	logger.InitLevel(logger.ParseLevel(cfg.Log.Level))

	key, err := loadOrGenerateKey(flags.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg, key, flags.RestorePath)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg, node)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *config.Config, n *Node) {
	params := n.machine.Params()

	logger.Info("starting auction node",
		"operator", params.Operator,
		"escrow", params.Self,
		"http", cfg.Server.Addr,
		"data", cfg.Data.Path,
		"reference_token", cfg.Auction.ReferenceToken,
		"min_bidding", params.MinBiddingDuration,
		"devnet", cfg.Devnet.Enabled,
		"indexer", cfg.Indexer.DSN != "",
	)
}
