// Package store implements the relational backing store: one append-only
// table of gossip envelopes and one table of periodic aggregates, backed
// by Postgres via pgx/v5 and pgxpool. Retention and sender-statistics
// queries read the JSON `nonce` field inside `messages.message` as the
// logical timestamp; size-cap pruning orders by id instead, per spec.md §4.2.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/graphindexer/gossip-listener/internal/logging"
)

// Row is one persisted envelope: database-assigned id plus the decoded
// envelope+payload as a structured JSON document.
type Row struct {
	ID      int64
	Message []byte // raw JSON, as stored; callers unmarshal as needed
}

// Aggregate is one periodic per-sender snapshot.
type Aggregate struct {
	ID               int64
	CreatedAtTS      int64
	GraphAccount     string
	MessageCount     int64
	SubgraphsCount   int64
}

// SenderStats is the per-sender result of sender_stats / active window
// queries.
type SenderStats struct {
	GraphAccount   string
	MessageCount   int64
	SubgraphsCount int64
}

// Store is the concrete Postgres-backed implementation of every operation
// in spec.md §4.2's table.
type Store struct {
	pool *pgxpool.Pool
	log  *logging.Logger
}

// Config controls pool sizing. MaxConns caps the pool; AcquireTimeout bounds
// establishing each new connection. Waiting for a free connection in a full
// pool is bounded only by the caller's ctx.
type Config struct {
	DatabaseURL     string
	MaxConns        int32
	AcquireTimeout  time.Duration
}

// DefaultConfig returns the resource policy defaults from spec.md §5.
func DefaultConfig(databaseURL string) Config {
	return Config{
		DatabaseURL:    databaseURL,
		MaxConns:       50,
		AcquireTimeout: 3 * time.Second,
	}
}

// Open creates the pgxpool and runs the embedded migrations. The returned
// Store owns the pool; callers must call Close when done.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database_url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}

	s := &Store{pool: pool, log: logging.Module("store")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping verifies connectivity, bounded by ctx; dialing a new connection is
// also bounded by Config.AcquireTimeout.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withTimeout bounds ctx by d, falling back to 3s when d <= 0. The query
// methods in queries.go do not call it; they run under the caller's ctx.
func (s *Store) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 3 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// nonceToTime converts a stored nonce (unix seconds) into a time.Time, the
// Go equivalent of the original resolver's nonce_to_unix helper.
func nonceToTime(nonce uint64) time.Time {
	return time.Unix(int64(nonce), 0).UTC()
}
