// Package scheduler runs the three periodic ticks (network, summary, daily
// aggregate) named in spec.md §4.4, guarded by a stall watchdog, in the
// idiom of the teacher's ticker-driven maintenance loop.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/graphindexer/gossip-listener/internal/logging"
	"github.com/graphindexer/gossip-listener/internal/metrics"
	"github.com/graphindexer/gossip-listener/internal/store"
	"github.com/graphindexer/gossip-listener/internal/transport"
)

// Store is the subset of *store.Store the scheduler calls, so tests can
// substitute a fake without standing up Postgres.
type Store interface {
	RetainNewest(ctx context.Context, n int64) (int64, error)
	PruneOlderThan(ctx context.Context, retentionMinutes, batch int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	SenderStats(ctx context.Context, filter []string, fromTS int64) ([]store.SenderStats, error)
	InsertAggregate(ctx context.Context, createdAtTS int64, account string, messageCount, subgraphsCount int64) error
}

var _ Store = (*store.Store)(nil)

// Config controls tick periods and retention/size-cap policy. Start from
// DefaultConfig for the spec.md §4.4 defaults; New does not replace zero
// values with defaults, and Run needs positive tick and watchdog intervals.
type Config struct {
	NetworkInterval     time.Duration // default 600s
	SummaryInterval     time.Duration // default 180s
	DailyInterval       time.Duration // default 86400s
	WatchdogInterval    time.Duration // default 180s
	MaintenanceTimeout  time.Duration // default 5s, per spec.md §5
	RetentionMinutes    int64         // default 1440
	PruneBatch          int64         // default 1000
	MaxStorage          int64         // 0 disables size-cap pruning
	FilterTopicsEnabled bool
	Topics              []string
	TopicUpdateTimeout  time.Duration // default 5s
	ZeroPeerSleep       time.Duration // default 10s
}

// DefaultConfig returns the tick periods and policy defaults from
// spec.md §4.4/§5/§6.
func DefaultConfig() Config {
	return Config{
		NetworkInterval:    600 * time.Second,
		SummaryInterval:    180 * time.Second,
		DailyInterval:      86400 * time.Second,
		WatchdogInterval:   180 * time.Second,
		MaintenanceTimeout: 5 * time.Second,
		RetentionMinutes:   1440,
		PruneBatch:         1000,
		TopicUpdateTimeout: 5 * time.Second,
		ZeroPeerSleep:      10 * time.Second,
	}
}

// Scheduler owns the three tickers plus the watchdog timer.
type Scheduler struct {
	cfg   Config
	store Store
	sub   transport.Subscriber
	m     *metrics.Registry
	log   *logging.Logger

	running atomic.Bool
	skip    atomic.Bool
}

// New builds a Scheduler. Run starts the loop; Stop flips the running flag
// observed between iterations, per spec.md §4.4's "shared atomic running
// flag" termination model.
func New(cfg Config, st Store, sub transport.Subscriber, m *metrics.Registry) *Scheduler {
	s := &Scheduler{cfg: cfg, store: st, sub: sub, m: m, log: logging.Module("scheduler")}
	s.running.Store(true)
	return s
}

// Stop flips the running flag observed by Run's select loop.
func (s *Scheduler) Stop() { s.running.Store(false) }

// Run blocks, servicing whichever ticker fires first, until ctx is done or
// Stop is called. The watchdog timer is reset after every iteration that
// actually performs work; if no iteration completes within
// WatchdogInterval, the next iteration's work is skipped and the flag reset
// (spec.md §4.4's "watchdog via flag, not cancellation", spec.md §9).
func (s *Scheduler) Run(ctx context.Context) {
	networkT := time.NewTicker(s.cfg.NetworkInterval)
	summaryT := time.NewTicker(s.cfg.SummaryInterval)
	dailyT := time.NewTicker(s.cfg.DailyInterval)
	watchdog := time.NewTimer(s.cfg.WatchdogInterval)
	defer networkT.Stop()
	defer summaryT.Stop()
	defer dailyT.Stop()
	defer watchdog.Stop()

	for s.running.Load() {
		if s.sub.ConnectedPeerCount() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ZeroPeerSleep):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-watchdog.C:
			s.skip.Store(true)
			s.log.Warn("scheduler watchdog fired: skipping next iteration")
			watchdog.Reset(s.cfg.WatchdogInterval)
		case <-networkT.C:
			s.runGuarded(ctx, watchdog, s.networkTick)
		case <-summaryT.C:
			s.runGuarded(ctx, watchdog, s.summaryTick)
		case <-dailyT.C:
			s.runGuarded(ctx, watchdog, s.dailyTick)
		}
	}
}

func (s *Scheduler) runGuarded(ctx context.Context, watchdog *time.Timer, fn func(context.Context)) {
	if s.skip.CompareAndSwap(true, false) {
		s.log.Warn("skipping iteration: watchdog was set")
		return
	}
	fn(ctx)
	if !watchdog.Stop() {
		<-watchdog.C
	}
	watchdog.Reset(s.cfg.WatchdogInterval)
}

func (s *Scheduler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.MaintenanceTimeout)
}

// networkTick updates peer-count gauges and, if topic filtering is
// enabled, pushes the current topic list to the transport.
func (s *Scheduler) networkTick(ctx context.Context) {
	s.m.ActivePeers.Set(float64(s.sub.NumberOfPeers()))
	s.m.ConnectedPeers.Set(float64(s.sub.ConnectedPeerCount()))
	s.m.GossipPeers.Set(float64(s.sub.ConnectedPeerCount()))

	if !s.cfg.FilterTopicsEnabled {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TopicUpdateTimeout)
	defer cancel()
	if err := s.sub.UpdateContentTopics(tctx, s.cfg.Topics); err != nil {
		s.log.Warn("network tick: update content topics failed", "err", err)
	}
}

// summaryTick applies size-cap pruning, retention pruning, updates gauges,
// and logs totals, per spec.md §4.4.
func (s *Scheduler) summaryTick(ctx context.Context) {
	var pruned int64

	if s.cfg.MaxStorage > 0 {
		mctx, cancel := s.withTimeout(ctx)
		n, err := s.store.RetainNewest(mctx, s.cfg.MaxStorage)
		cancel()
		if err != nil {
			s.log.Debug("summary tick: retain_newest failed", "err", err)
		} else {
			pruned += n
		}
	}

	mctx, cancel := s.withTimeout(ctx)
	n, err := s.store.PruneOlderThan(mctx, s.cfg.RetentionMinutes, s.cfg.PruneBatch)
	cancel()
	if err != nil {
		s.log.Debug("summary tick: prune_older_than failed", "err", err)
	} else {
		pruned += n
	}

	mctx, cancel = s.withTimeout(ctx)
	total, err := s.store.Count(mctx)
	cancel()
	if err != nil {
		s.log.Debug("summary tick: count failed", "err", err)
		return
	}

	s.m.PrunedMessages.Set(float64(pruned))
	s.m.CachedMessages.Set(float64(total))
	s.log.Info("summary tick complete", "total_messages", total, "total_pruned", pruned)
}

// dailyTick computes per-sender stats over the trailing 24h and inserts one
// aggregate row per sender.
func (s *Scheduler) dailyTick(ctx context.Context) {
	fromTS := time.Now().Add(-24 * time.Hour).Unix()
	now := time.Now().Unix()

	mctx, cancel := s.withTimeout(ctx)
	stats, err := s.store.SenderStats(mctx, nil, fromTS)
	cancel()
	if err != nil {
		s.log.Debug("daily tick: sender_stats failed", "err", err)
		return
	}

	for _, st := range stats {
		ictx, icancel := s.withTimeout(ctx)
		err := s.store.InsertAggregate(ictx, now, st.GraphAccount, st.MessageCount, st.SubgraphsCount)
		icancel()
		if err != nil {
			s.log.Debug("daily tick: insert_aggregate failed", "account", st.GraphAccount, "err", err)
		}
	}
	s.log.Info("daily aggregate tick complete", "senders", len(stats))
}
