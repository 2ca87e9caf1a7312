// Package operator wires every collaborator (store, transport, ingest
// pipeline, scheduler, metrics, notifier, query API) into one process, in
// the teacher's node.go shape: New(config) builds and connects everything,
// Run(ctx) starts it and blocks until ctx is cancelled or a shutdown signal
// arrives.
package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/graphindexer/gossip-listener/internal/config"
	"github.com/graphindexer/gossip-listener/internal/identity"
	"github.com/graphindexer/gossip-listener/internal/ingest"
	"github.com/graphindexer/gossip-listener/internal/logging"
	"github.com/graphindexer/gossip-listener/internal/metrics"
	"github.com/graphindexer/gossip-listener/internal/notifier"
	"github.com/graphindexer/gossip-listener/internal/queryapi"
	"github.com/graphindexer/gossip-listener/internal/scheduler"
	"github.com/graphindexer/gossip-listener/internal/store"
	"github.com/graphindexer/gossip-listener/internal/transport"
)

const shutdownTimeout = 10 * time.Second

// Operator owns every subsystem's lifetime.
type Operator struct {
	cfg config.Config
	log *logging.Logger

	store     *store.Store
	sub       *transport.GossipSub
	pipeline  *ingest.Pipeline
	scheduler *scheduler.Scheduler
	metrics   *metrics.Registry
	notifier  *notifier.Notifier

	metricsServer *http.Server
	queryServer   *http.Server
}

// New validates cfg, then builds and connects every subsystem. The transport
// host is created, listening, and joined to its topics here; the HTTP
// servers, ingest pipeline and scheduler are not started until Run.
func New(ctx context.Context, cfg config.Config) (*Operator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(levelFromString(cfg.LogLevel), cfg.LogFormat)
	logging.SetDefault(log)

	st, err := store.Open(ctx, store.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sub, err := transport.New(ctx, transport.Config{
		ListenHost:    cfg.WakuHost,
		ListenPort:    cfg.WakuPort,
		BootNodeAddrs: cfg.BootNodeAddresses,
		Topics:        cfg.Topics,
		QueueSize:     256,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("start transport: %w", err)
	}

	m := metrics.Default()
	idv := identity.New(cfg.IDValidation)
	pipeline := ingest.New(sub, st, m, idv)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.RetentionMinutes = cfg.RetentionMinutes
	schedCfg.MaxStorage = cfg.MaxStorage
	schedCfg.FilterTopicsEnabled = cfg.FilterProtocol
	schedCfg.Topics = cfg.Topics
	sched := scheduler.New(schedCfg, st, sub, m)

	notif := notifier.New(cfg.RadioName, buildDestinations(cfg)...)

	resolver := queryapi.New(st)
	handler, err := queryapi.NewServer(resolver)
	if err != nil {
		sub.Close()
		st.Close()
		return nil, fmt.Errorf("build query api: %w", err)
	}

	op := &Operator{
		cfg:       cfg,
		log:       log.Module("operator"),
		store:     st,
		sub:       sub,
		pipeline:  pipeline,
		scheduler: sched,
		metrics:   m,
		notifier:  notif,
		metricsServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort),
			Handler: m.Handler(),
		},
		queryServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler: handler,
		},
	}
	return op, nil
}

// buildDestinations constructs every configured notifier.Destination. Each
// constructor returns a nil *concrete* pointer when unconfigured, so the
// nil check below must happen before the value is boxed into the
// Destination interface — comparing an interface holding a typed nil to
// nil is never true.
func buildDestinations(cfg config.Config) []notifier.Destination {
	var dests []notifier.Destination
	if d := notifier.NewSlackDestination(cfg.SlackWebhook); d != nil {
		dests = append(dests, d)
	}
	if d := notifier.NewDiscordDestination(cfg.DiscordWebhook); d != nil {
		dests = append(dests, d)
	}
	if d := notifier.NewTelegramDestination(cfg.TelegramToken, cfg.TelegramChatID); d != nil {
		dests = append(dests, d)
	}
	return dests
}

func levelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Run starts every subsystem and blocks until ctx is cancelled or a
// SIGINT/SIGTERM arrives, then shuts everything down in reverse order.
func (op *Operator) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	op.notifier.Notify(ctx, fmt.Sprintf("%s starting", op.cfg.RadioName))
	op.log.Info("operator starting",
		"metrics_addr", op.metricsServer.Addr,
		"query_addr", op.queryServer.Addr,
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := op.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			op.log.Error("metrics server error", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := op.queryServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			op.log.Error("query api server error", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		op.pipeline.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		op.scheduler.Run(ctx)
	}()

	<-ctx.Done()
	op.log.Info("shutdown signal received, stopping")
	op.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := op.metricsServer.Shutdown(shutdownCtx); err != nil {
		op.log.Warn("metrics server shutdown error", "err", err)
	}
	if err := op.queryServer.Shutdown(shutdownCtx); err != nil {
		op.log.Warn("query api server shutdown error", "err", err)
	}
	if err := op.sub.Close(); err != nil {
		op.log.Warn("transport close error", "err", err)
	}

	wg.Wait()
	op.store.Close()

	op.notifier.Notify(context.Background(), fmt.Sprintf("%s stopped", op.cfg.RadioName))
	op.log.Info("operator stopped")
	return nil
}
