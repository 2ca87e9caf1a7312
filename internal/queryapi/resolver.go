// Package queryapi implements spec.md §4.5's typed read/mutate surface: a
// hand-written GraphQL schema bound to a Resolver root type via
// graph-gophers/graphql-go, mounted by an HTTP server in server.go.
package queryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/graphindexer/gossip-listener/internal/errs"
	"github.com/graphindexer/gossip-listener/internal/logging"
	"github.com/graphindexer/gossip-listener/internal/store"
)

func defaultNow() time.Time { return time.Now() }

// Store is the subset of *store.Store the query API reads and mutates, so
// tests can substitute a fake without standing up Postgres.
type Store interface {
	ListAll(ctx context.Context) ([]store.Row, error)
	Get(ctx context.Context, id int64) (*store.Row, error)
	Delete(ctx context.Context, id int64) (*store.Row, error)
	DeleteAll(ctx context.Context) ([]store.Row, error)
	ActiveSenders(ctx context.Context, filter []string, fromTS int64) ([]string, error)
	SenderStats(ctx context.Context, filter []string, fromTS int64) ([]store.SenderStats, error)
	FetchAggregates(ctx context.Context, sinceTS int64) ([]store.Aggregate, error)
	CountDistinctSubgraphs(ctx context.Context, sinceTS int64) (int64, error)
}

var _ Store = (*store.Store)(nil)

// nowFunc is overridable in tests so minutesAgo/days windows are
// deterministic.
var nowFunc = defaultNow

// Resolver is the GraphQL root resolver for both Query and Mutation.
type Resolver struct {
	store Store
	log   *logging.Logger
}

// New builds a Resolver over the given store.
func New(st Store) *Resolver {
	return &Resolver{store: st, log: logging.Module("queryapi")}
}

// Health always returns the constant health string (spec.md §4.5).
func (r *Resolver) Health() string { return "Healthy" }

// Rows returns every stored row.
func (r *Resolver) Rows(ctx context.Context) ([]*RowResolver, error) {
	rows, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*RowResolver, len(rows))
	for i, row := range rows {
		out[i] = &RowResolver{row: row}
	}
	return out, nil
}

// RowArgs carries the single "id" argument shared by row/message/deleteMessage.
type RowArgs struct {
	ID graphql.ID
}

// Row returns a single row, or nil if not found.
func (r *Resolver) Row(ctx context.Context, args RowArgs) (*RowResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, err
	}
	row, err := r.store.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &RowResolver{row: *row}, nil
}

// Messages returns every stored row decoded as an envelope.
func (r *Resolver) Messages(ctx context.Context) ([]*EnvelopeResolver, error) {
	rows, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*EnvelopeResolver, 0, len(rows))
	for _, row := range rows {
		er, err := newEnvelopeResolver(row)
		if err != nil {
			r.log.Warn("skipping unparseable stored row", "id", row.ID, "err", err)
			continue
		}
		out = append(out, er)
	}
	return out, nil
}

// Message returns one decoded envelope, or nil if not found.
func (r *Resolver) Message(ctx context.Context, args RowArgs) (*EnvelopeResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, err
	}
	row, err := r.store.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return newEnvelopeResolver(*row)
}

// SenderArgs carries the filter/minutesAgo arguments shared by
// activeSenders and senderStats.
type SenderArgs struct {
	Filter     *[]string
	MinutesAgo *int32
}

func (a SenderArgs) fromTS() int64 {
	minutes := int32(1440)
	if a.MinutesAgo != nil {
		minutes = *a.MinutesAgo
	}
	return nowFunc().Add(-time.Duration(minutes) * time.Minute).Unix()
}

// ActiveSenders returns distinct senders active in the trailing window.
func (r *Resolver) ActiveSenders(ctx context.Context, args SenderArgs) ([]string, error) {
	var filter []string
	if args.Filter != nil {
		filter = *args.Filter
	}
	senders, err := r.store.ActiveSenders(ctx, filter, args.fromTS())
	if err != nil {
		return nil, wrapErr(err)
	}
	if senders == nil {
		senders = []string{}
	}
	return senders, nil
}

// SenderStats returns per-sender message/distinct-identifier counts.
func (r *Resolver) SenderStats(ctx context.Context, args SenderArgs) ([]*SenderStatResolver, error) {
	var filter []string
	if args.Filter != nil {
		filter = *args.Filter
	}
	stats, err := r.store.SenderStats(ctx, filter, args.fromTS())
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*SenderStatResolver, len(stats))
	for i, st := range stats {
		out[i] = &SenderStatResolver{stat: st}
	}
	return out, nil
}

// AggregateSummaryArgs carries the "days" window argument.
type AggregateSummaryArgs struct {
	Days int32
}

// AggregateSummary summarizes aggregate rows over the trailing N days,
// per spec.md §4.5.
func (r *Resolver) AggregateSummary(ctx context.Context, args AggregateSummaryArgs) (*AggregateSummaryResolver, error) {
	sinceTS := nowFunc().Add(-time.Duration(args.Days) * 24 * time.Hour).Unix()

	aggregates, err := r.store.FetchAggregates(ctx, sinceTS)
	if err != nil {
		return nil, wrapErr(err)
	}
	covered, err := r.store.CountDistinctSubgraphs(ctx, sinceTS)
	if err != nil {
		return nil, wrapErr(err)
	}

	type acc struct {
		messageCount int64
		subgraphSum  int64
		rowCount     int64
	}
	byAccount := make(map[string]*acc)
	var order []string
	for _, a := range aggregates {
		entry, ok := byAccount[a.GraphAccount]
		if !ok {
			entry = &acc{}
			byAccount[a.GraphAccount] = entry
			order = append(order, a.GraphAccount)
		}
		entry.messageCount += a.MessageCount
		entry.subgraphSum += a.SubgraphsCount
		entry.rowCount++
	}

	totalMessageCount := make([]*SenderCountResolver, 0, len(order))
	averageSubgraphsCount := make([]*SenderCountResolver, 0, len(order))
	for _, account := range order {
		entry := byAccount[account]
		totalMessageCount = append(totalMessageCount, &SenderCountResolver{account: account, count: entry.messageCount})
		avg := int32(math.Ceil(float64(entry.subgraphSum) / float64(entry.rowCount)))
		averageSubgraphsCount = append(averageSubgraphsCount, &SenderCountResolver{account: account, count: int64(avg)})
	}

	return &AggregateSummaryResolver{
		totalMessageCount:     totalMessageCount,
		averageSubgraphsCount: averageSubgraphsCount,
		totalSubgraphsCovered: covered,
	}, nil
}

// DeleteMessage removes one envelope by id and returns its prior contents.
func (r *Resolver) DeleteMessage(ctx context.Context, args RowArgs) (*EnvelopeResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, err
	}
	row, err := r.store.Delete(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return newEnvelopeResolver(*row)
}

// DeleteMessages removes every stored envelope and returns what was
// deleted.
func (r *Resolver) DeleteMessages(ctx context.Context) ([]*EnvelopeResolver, error) {
	rows, err := r.store.DeleteAll(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*EnvelopeResolver, 0, len(rows))
	for _, row := range rows {
		er, err := newEnvelopeResolver(row)
		if err != nil {
			continue
		}
		out = append(out, er)
	}
	return out, nil
}

func parseID(id graphql.ID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, badRequest("invalid id: " + string(id))
	}
	return n, nil
}

// RowResolver exposes a raw stored row.
type RowResolver struct {
	row store.Row
}

func (r *RowResolver) ID() graphql.ID { return graphql.ID(strconv.FormatInt(r.row.ID, 10)) }
func (r *RowResolver) Message() string { return string(r.row.Message) }

// envelopeJSON mirrors gossipcast.StoredEnvelope's wire shape but keeps
// Payload as raw JSON: the concrete payload type isn't needed here, only
// its already-decoded field values, so there is no need to reconstruct a
// gossipcast.Payload value just to read them back out.
type envelopeJSON struct {
	Nonce        uint64          `json:"nonce"`
	Identifier   string          `json:"identifier"`
	GraphAccount string          `json:"graph_account"`
	Kind         string          `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
}

// EnvelopeResolver exposes a row decoded as its envelope+payload.
type EnvelopeResolver struct {
	id  int64
	env envelopeJSON
}

func newEnvelopeResolver(row store.Row) (*EnvelopeResolver, error) {
	var env envelopeJSON
	if err := json.Unmarshal(row.Message, &env); err != nil {
		return nil, wrapErr(fmt.Errorf("%w: %v", errs.ErrDecode, err))
	}
	return &EnvelopeResolver{id: row.ID, env: env}, nil
}

func (e *EnvelopeResolver) ID() graphql.ID       { return graphql.ID(strconv.FormatInt(e.id, 10)) }
func (e *EnvelopeResolver) Nonce() string        { return strconv.FormatUint(e.env.Nonce, 10) }
func (e *EnvelopeResolver) Identifier() string   { return e.env.Identifier }
func (e *EnvelopeResolver) GraphAccount() string { return e.env.GraphAccount }
func (e *EnvelopeResolver) Kind() string         { return e.env.Kind }
func (e *EnvelopeResolver) Payload() string      { return string(e.env.Payload) }

// SenderStatResolver exposes one sender's message/distinct-identifier counts.
type SenderStatResolver struct {
	stat store.SenderStats
}

func (s *SenderStatResolver) GraphAccount() string  { return s.stat.GraphAccount }
func (s *SenderStatResolver) MessageCount() int32   { return int32(s.stat.MessageCount) }
func (s *SenderStatResolver) SubgraphsCount() int32 { return int32(s.stat.SubgraphsCount) }

// SenderCountResolver exposes one (account, count) pair.
type SenderCountResolver struct {
	account string
	count   int64
}

func (s *SenderCountResolver) GraphAccount() string { return s.account }
func (s *SenderCountResolver) Count() int32         { return int32(s.count) }

// AggregateSummaryResolver exposes the summary over a trailing window.
type AggregateSummaryResolver struct {
	totalMessageCount     []*SenderCountResolver
	averageSubgraphsCount []*SenderCountResolver
	totalSubgraphsCovered int64
}

func (a *AggregateSummaryResolver) TotalMessageCount() []*SenderCountResolver {
	return a.totalMessageCount
}
func (a *AggregateSummaryResolver) AverageSubgraphsCount() []*SenderCountResolver {
	return a.averageSubgraphsCount
}
func (a *AggregateSummaryResolver) TotalSubgraphsCovered() int32 {
	return int32(a.totalSubgraphsCovered)
}
