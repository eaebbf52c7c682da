package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"Dauction/internal/api"
	"Dauction/internal/auction"
	"Dauction/internal/config"
	"Dauction/internal/devnet"
	"Dauction/internal/events"
	"Dauction/internal/indexer"
	"Dauction/internal/logger"
	"Dauction/internal/pricing"
	"Dauction/internal/snapshot"
	"Dauction/internal/storage"
)

const (
	operatorTag = "dauction/operator"
	escrowTag   = "dauction/escrow"
)

// Node is a running auction node.
type Node struct {
	cfg     *config.Config
	key     ed25519.PrivateKey
	storage *storage.Storage
	bus     *events.Bus
	log     *events.Log
	oracle  *pricing.StaticOracle
	net     *devnet.Registry
	machine *auction.Machine
	api     *api.Server
	pool    *pgxpool.Pool // pool is nil without an indexer DSN
	snaps   *snapshot.Manager
	cancel  context.CancelFunc
}

// NewNode creates and initializes a node. restore, when set, is a snapshot
// file loaded into the fresh storage before anything reads it.
func NewNode(cfg *config.Config, key ed25519.PrivateKey, restore string) (*Node, error) {
	n := &Node{cfg: cfg, key: key}

	if err := n.initStorage(restore); err != nil {
		return nil, err
	}

	if err := n.initEvents(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.initOracle(); err != nil {
		n.Close()
		return nil, err
	}

	n.initDevnet()

	if err := n.initMachine(); err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initStorage opens the Pebble storage and applies the restore snapshot.
func (n *Node) initStorage(restore string) error {
	dbPath := filepath.Join(n.cfg.Data.Path, "db")

	if err := os.MkdirAll(n.cfg.Data.Path, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	if restore == "" {
		return nil
	}

	data, err := os.ReadFile(restore)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	info, err := snapshot.Apply(db, data)
	if err != nil {
		return fmt.Errorf("restore snapshot %s:\n%w", restore, err)
	}

	logger.Info("snapshot restored", "entries", info.Entries, "checksum", fmt.Sprintf("%x", info.Checksum[:8]))

	return nil
}

func (n *Node) initEvents() error {
	n.bus = events.NewBus()

	log, err := events.OpenLog(n.storage, n.bus)
	if err != nil {
		return fmt.Errorf("open event log:\n%w", err)
	}

	n.log = log

	return nil
}

// initOracle seeds the in-process price oracle from the configured answers.
func (n *Node) initOracle() error {
	n.oracle = pricing.NewStaticOracle(nil)

	for _, a := range n.cfg.Oracle.Answers {
		price, err := a.PriceInt()
		if err != nil {
			return fmt.Errorf("oracle answer for %s:\n%w", a.Feed, err)
		}

		n.oracle.Set(a.Feed, price, a.Decimals)
	}

	return nil
}

// initDevnet deploys the configured collections and one token per accepted
// bid token.
func (n *Node) initDevnet() {
	n.net = devnet.NewRegistry()

	for _, addr := range n.cfg.Devnet.Collections {
		n.net.AddCollection(addr)
	}

	for _, t := range n.cfg.Auction.AcceptedTokens {
		n.net.AddToken(t.Token, t.Decimals)
	}

	logger.Debug("devnet deployed", "collections", n.net.Collections(), "tokens", len(n.cfg.Auction.AcceptedTokens))
}

func (n *Node) initMachine() error {
	tokens, err := n.cfg.Tokens()
	if err != nil {
		return fmt.Errorf("build token registry:\n%w", err)
	}

	m, err := auction.New(
		n.storage,
		tokens,
		pricing.NewNormalizer(n.oracle, n.cfg.Oracle.MaxAge, nil),
		n.net,
		n.net,
		n.log,
		auction.Params{
			Self:               deriveAddress(n.key, escrowTag),
			Operator:           deriveAddress(n.key, operatorTag),
			MinBiddingDuration: n.cfg.Auction.MinBiddingDuration,
		},
	)
	if err != nil {
		return fmt.Errorf("create auction machine:\n%w", err)
	}

	n.machine = m

	return nil
}

// Run starts the API and the indexer, then blocks until shutdown signal.
func (n *Node) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	if n.cfg.Indexer.DSN != "" {
		if err := n.startIndexer(ctx); err != nil {
			n.Close()
			return err
		}
	}

	apiCfg := api.Config{
		Addr:        n.cfg.Server.Addr,
		CORSOrigins: n.cfg.Server.CORSOrigins,
		Machine:     n.machine,
		Events:      n.log,
		Bus:         n.bus,
		Storage:     n.storage,
	}

	if n.cfg.Devnet.Enabled {
		apiCfg.Devnet = &api.Devnet{Registry: n.net, Oracle: n.oracle}
	}

	if n.cfg.Data.SnapshotInterval > 0 {
		path := filepath.Join(n.cfg.Data.Path, "ledger.snap")
		n.snaps = snapshot.NewManager(n.storage, n.log, path, n.cfg.Data.SnapshotInterval)
		n.snaps.Start()
	}

	n.api = api.New(apiCfg)
	if err := n.api.Start(); err != nil {
		n.Close()
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// startIndexer connects to Postgres, migrates the schema and mirrors the
// event log in the background.
func (n *Node) startIndexer(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := indexer.Connect(connectCtx, n.cfg.Indexer.DSN)
	if err != nil {
		return fmt.Errorf("connect indexer:\n%w", err)
	}

	n.pool = pool
	ix := indexer.New(pool)

	if err := ix.Migrate(connectCtx); err != nil {
		return fmt.Errorf("migrate indexer:\n%w", err)
	}

	go func() {
		if err := ix.Run(ctx, n.log, n.bus); err != nil && ctx.Err() == nil {
			logger.Error("indexer stopped", "error", err)
		}
	}()

	logger.Info("indexer started")

	return nil
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.cancel != nil {
		n.cancel()
	}

	if n.snaps != nil {
		n.snaps.Stop()
	}

	if n.pool != nil {
		n.pool.Close()
	}

	if n.storage != nil {
		return n.storage.Close()
	}

	return nil
}
