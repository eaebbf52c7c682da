// Package indexer mirrors the node's event log into Postgres for off-node
// queries.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"Dauction/internal/events"
	"Dauction/internal/logger"
	"Dauction/internal/types"
)

// backfillPage is how many log events are read per backfill query.
const backfillPage = 500

const schema = `
CREATE TABLE IF NOT EXISTS auction_events (
	seq             BIGINT PRIMARY KEY,
	id              UUID NOT NULL,
	kind            TEXT NOT NULL,
	asset_contract  TEXT NOT NULL,
	asset_id        NUMERIC(78,0) NOT NULL,
	owner           TEXT,
	bidder          TEXT,
	winner          TEXT,
	commitment      TEXT,
	unveil_hash     TEXT,
	salt            TEXT,
	amount          NUMERIC(78,0),
	min_bid_price   NUMERIC(78,0),
	start_time      BIGINT,
	end_time        BIGINT,
	reveal_deadline BIGINT,
	emitted_at      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS auction_events_asset ON auction_events (asset_contract, asset_id);
`

const insertEvent = `
INSERT INTO auction_events (
	seq, id, kind, asset_contract, asset_id, owner, bidder, winner,
	commitment, unveil_hash, salt, amount, min_bid_price,
	start_time, end_time, reveal_deadline, emitted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (seq) DO NOTHING
`

// DB is the subset of *pgxpool.Pool the indexer uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a Postgres pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn:\n%w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect:\n%w", err)
	}

	return pool, nil
}

// Indexer writes events into the auction_events table.
type Indexer struct {
	db DB
}

// New creates an Indexer.
func New(db DB) *Indexer {
	return &Indexer{db: db}
}

// Migrate creates the table if needed.
func (ix *Indexer) Migrate(ctx context.Context) error {
	if _, err := ix.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate:\n%w", err)
	}

	return nil
}

// LastSeq returns the highest indexed sequence number, zero if none.
func (ix *Indexer) LastSeq(ctx context.Context) (uint64, error) {
	var last int64

	err := ix.db.QueryRow(ctx, "SELECT COALESCE(MAX(seq), 0) FROM auction_events").Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last seq:\n%w", err)
	}

	return uint64(last), nil
}

// Record inserts one event. Re-inserting a sequence number is a no-op.
func (ix *Indexer) Record(ctx context.Context, ev events.Event) error {
	_, err := ix.db.Exec(ctx, insertEvent,
		int64(ev.Seq),
		ev.ID.String(),
		string(ev.Kind),
		ev.Contract.String(),
		numeric(ev.AssetID, "0"),
		address(ev.Owner),
		address(ev.Bidder),
		address(ev.Winner),
		hash(ev.Commitment),
		hash(ev.Unveil),
		hash(ev.Salt),
		numeric(ev.Amount, ""),
		numeric(ev.MinBidPrice, ""),
		instant(ev.StartTime),
		instant(ev.EndTime),
		instant(ev.RevealDeadline),
		int64(ev.At),
	)
	if err != nil {
		return fmt.Errorf("insert event %d:\n%w", ev.Seq, err)
	}

	return nil
}

// Run backfills events the table is missing, then indexes live events from
// bus until ctx is done.
func (ix *Indexer) Run(ctx context.Context, log *events.Log, bus *events.Bus) error {
	lg := logger.With("component", "indexer")

	// Subscribe before backfilling so nothing committed in between is lost.
	live, cancel := bus.Subscribe(256)
	defer cancel()

	last, err := ix.LastSeq(ctx)
	if err != nil {
		return err
	}

	last, err = ix.backfill(ctx, log, last)
	if err != nil {
		return err
	}

	lg.Info("indexer caught up", "seq", last)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-live:
			if !ok {
				return nil
			}

			if ev.Seq <= last {
				continue
			}

			// A gap means the subscriber channel dropped events.
			if ev.Seq > last+1 {
				if last, err = ix.backfill(ctx, log, last); err != nil {
					return err
				}
				if ev.Seq <= last {
					continue
				}
			}

			if err := ix.Record(ctx, ev); err != nil {
				lg.Warn("index event failed", "seq", ev.Seq, "error", err)
				continue
			}

			last = ev.Seq
		}
	}
}

// backfill indexes log events after last and returns the new high mark.
func (ix *Indexer) backfill(ctx context.Context, log *events.Log, last uint64) (uint64, error) {
	for {
		evs, err := log.Since(last+1, backfillPage)
		if err != nil {
			return last, fmt.Errorf("read event log:\n%w", err)
		}

		for _, ev := range evs {
			if err := ix.Record(ctx, ev); err != nil {
				return last, err
			}
			last = ev.Seq
		}

		if len(evs) < backfillPage {
			return last, nil
		}
	}
}

func address(a types.Address) any {
	if a.IsZero() {
		return nil
	}

	return a.String()
}

func hash(h types.Hash) any {
	if h.IsZero() {
		return nil
	}

	return h.String()
}

func numeric(v *big.Int, fallback string) any {
	if v == nil {
		if fallback == "" {
			return nil
		}
		return fallback
	}

	return v.String()
}

func instant(t uint64) any {
	if t == 0 {
		return nil
	}

	return int64(t)
}
