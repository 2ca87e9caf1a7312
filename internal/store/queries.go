package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/graphindexer/gossip-listener/internal/errs"
	"github.com/graphindexer/gossip-listener/internal/gossipcast"
)

// Insert appends one decoded envelope and returns its database-assigned id.
func (s *Store) Insert(ctx context.Context, env *gossipcast.StoredEnvelope) (int64, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal envelope: %v", errs.ErrStore, err)
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (message) VALUES ($1) RETURNING id`, body,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert: %v", errs.ErrStore, err)
	}
	return id, nil
}

// ListAll returns every row ordered by id ascending (arrival order).
func (s *Store) ListAll(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, message FROM messages ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list_all: %v", errs.ErrStore, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Count returns the current row count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", errs.ErrStore, err)
	}
	return n, nil
}

// Get returns the row with the given id, or errs.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx,
		`SELECT id, message FROM messages WHERE id = $1`, id,
	).Scan(&r.ID, &r.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", errs.ErrStore, err)
	}
	return &r, nil
}

// Delete removes the row with the given id and returns its prior contents.
func (s *Store) Delete(ctx context.Context, id int64) (*Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx,
		`DELETE FROM messages WHERE id = $1 RETURNING id, message`, id,
	).Scan(&r.ID, &r.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: delete: %v", errs.ErrStore, err)
	}
	return &r, nil
}

// DeleteAll removes every row and returns what was deleted.
func (s *Store) DeleteAll(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM messages RETURNING id, message`)
	if err != nil {
		return nil, fmt.Errorf("%w: delete_all: %v", errs.ErrStore, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// RetainNewest deletes every row except the n highest-id rows and returns
// the number deleted. Uses id (arrival order), never nonce, because id is
// the only strictly monotone ordering (spec.md §4.2).
func (s *Store) RetainNewest(ctx context.Context, n int64) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: retain_newest: n must be >= 0", errs.ErrStore)
	}
	tag, err := s.pool.Exec(ctx, `
		WITH keep AS (
			SELECT id FROM messages ORDER BY id DESC LIMIT $1
		)
		DELETE FROM messages WHERE id NOT IN (SELECT id FROM keep)`, n)
	if err != nil {
		return 0, fmt.Errorf("%w: retain_newest: %v", errs.ErrStore, err)
	}
	return tag.RowsAffected(), nil
}

// PruneOlderThan deletes rows whose JSON nonce is strictly less than
// now-retentionMinutes*60, in batches of batch rows, looping until a batch
// returns fewer than batch rows. Rows with a non-numeric or missing nonce
// are excluded from the predicate rather than erroring. Each batch is an
// independent statement using FOR UPDATE SKIP LOCKED so concurrent prune
// loops (or ingestion inserts) never block on it (spec.md §4.2, §9).
func (s *Store) PruneOlderThan(ctx context.Context, retentionMinutes int64, batch int64) (int64, error) {
	if batch <= 0 {
		return 0, fmt.Errorf("%w: prune_older_than: batch must be > 0", errs.ErrStore)
	}
	cutoff := time.Now().Unix() - retentionMinutes*60

	var total int64
	for {
		tag, err := s.pool.Exec(ctx, `
			WITH doomed AS (
				SELECT id FROM messages
				WHERE CASE WHEN message->>'nonce' ~ '^[0-9]+$'
				           THEN (message->>'nonce')::bigint
				      END < $1
				ORDER BY id
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			DELETE FROM messages WHERE id IN (SELECT id FROM doomed)`, cutoff, batch)
		if err != nil {
			return total, fmt.Errorf("%w: prune_older_than: %v", errs.ErrStore, err)
		}
		n := tag.RowsAffected()
		total += n
		if n < batch {
			return total, nil
		}
	}
}

// ActiveSenders returns distinct graph_account values with any row whose
// nonce is strictly greater than fromTS. If filter is non-nil, the result
// is restricted to that allow-list.
func (s *Store) ActiveSenders(ctx context.Context, filter []string, fromTS int64) ([]string, error) {
	query := `
		SELECT DISTINCT message->>'graph_account'
		FROM messages
		WHERE message->>'nonce' ~ '^[0-9]+$'
		  AND (message->>'nonce')::bigint > $1`
	args := []any{fromTS}
	if filter != nil {
		query += ` AND message->>'graph_account' = ANY($2)`
		args = append(args, filter)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: active_senders: %v", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("%w: active_senders scan: %v", errs.ErrStore, err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// SenderStats returns, per sender, message_count (rows with nonce > fromTS)
// and subgraphs_count (distinct identifier among them).
func (s *Store) SenderStats(ctx context.Context, filter []string, fromTS int64) ([]SenderStats, error) {
	query := `
		SELECT message->>'graph_account' AS account,
		       count(*) AS message_count,
		       count(DISTINCT message->>'identifier') AS subgraphs_count
		FROM messages
		WHERE message->>'nonce' ~ '^[0-9]+$'
		  AND (message->>'nonce')::bigint > $1`
	args := []any{fromTS}
	if filter != nil {
		query += ` AND message->>'graph_account' = ANY($2)`
		args = append(args, filter)
	}
	query += ` GROUP BY account`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: sender_stats: %v", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []SenderStats
	for rows.Next() {
		var st SenderStats
		if err := rows.Scan(&st.GraphAccount, &st.MessageCount, &st.SubgraphsCount); err != nil {
			return nil, fmt.Errorf("%w: sender_stats scan: %v", errs.ErrStore, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// InsertAggregate appends one aggregate snapshot row.
func (s *Store) InsertAggregate(ctx context.Context, createdAtTS int64, account string, messageCount, subgraphsCount int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregates (created_at_ts, graph_account, message_count, subgraphs_count)
		VALUES ($1, $2, $3, $4)`, createdAtTS, account, messageCount, subgraphsCount)
	if err != nil {
		return fmt.Errorf("%w: insert_aggregate: %v", errs.ErrStore, err)
	}
	return nil
}

// FetchAggregates returns aggregates whose created_at_ts is strictly
// greater than sinceTS.
func (s *Store) FetchAggregates(ctx context.Context, sinceTS int64) ([]Aggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at_ts, graph_account, message_count, subgraphs_count
		FROM aggregates WHERE created_at_ts > $1
		ORDER BY id ASC`, sinceTS)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch_aggregates: %v", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		if err := rows.Scan(&a.ID, &a.CreatedAtTS, &a.GraphAccount, &a.MessageCount, &a.SubgraphsCount); err != nil {
			return nil, fmt.Errorf("%w: fetch_aggregates scan: %v", errs.ErrStore, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountDistinctSubgraphs counts distinct identifier values among messages
// with nonce > sinceTS.
func (s *Store) CountDistinctSubgraphs(ctx context.Context, sinceTS int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(DISTINCT message->>'identifier')
		FROM messages
		WHERE message->>'nonce' ~ '^[0-9]+$'
		  AND (message->>'nonce')::bigint > $1`, sinceTS,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count_distinct_subgraphs: %v", errs.ErrStore, err)
	}
	return n, nil
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Message); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", errs.ErrStore, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
