// Package ingest bridges the transport's raw message channel into the
// store: one worker goroutine per pipeline, decode-fan-in under a 1-second
// timeout, store.Insert on success, drop-and-log otherwise (spec.md §4.3).
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/graphindexer/gossip-listener/internal/errs"
	"github.com/graphindexer/gossip-listener/internal/gossipcast"
	"github.com/graphindexer/gossip-listener/internal/identity"
	"github.com/graphindexer/gossip-listener/internal/logging"
	"github.com/graphindexer/gossip-listener/internal/metrics"
	"github.com/graphindexer/gossip-listener/internal/store"
	"github.com/graphindexer/gossip-listener/internal/transport"
)

// perMessageTimeout bounds decode+store per spec.md §4.3/§5.
const perMessageTimeout = 1 * time.Second

// Store is the subset of *store.Store the pipeline needs, so tests can
// substitute a fake without standing up Postgres.
type Store interface {
	Insert(ctx context.Context, env *gossipcast.StoredEnvelope) (int64, error)
}

var _ Store = (*store.Store)(nil)

// Pipeline reads RawMessage off a transport.Subscriber and inserts decoded
// envelopes into a Store. One Pipeline owns exactly one worker goroutine,
// matching spec.md §9's single-producer/single-consumer boundary.
type Pipeline struct {
	sub      transport.Subscriber
	store    Store
	m        *metrics.Registry
	log      *logging.Logger
	identity *identity.Validator
}

// New builds a Pipeline. idv may be nil, which skips identity validation
// entirely (equivalent to the no-check policy). Run must be called to
// start consuming.
func New(sub transport.Subscriber, st Store, m *metrics.Registry, idv *identity.Validator) *Pipeline {
	return &Pipeline{sub: sub, store: st, m: m, log: logging.Module("ingest"), identity: idv}
}

// Run consumes sub.Messages() until the channel closes or ctx is done,
// processing each message synchronously in arrival order — this is what
// gives the "message-id order equals arrival order" guarantee of spec.md §5.
func (p *Pipeline) Run(ctx context.Context) {
	ch := p.sub.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			p.process(ctx, raw)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, raw transport.RawMessage) {
	p.m.ReceivedMessages.Inc()

	msgCtx, cancel := context.WithTimeout(ctx, perMessageTimeout)
	defer cancel()

	env, err := decodeWithTimeout(msgCtx, raw.Data)
	if err != nil {
		p.log.Trace("dropping message: decode failed", "content_topic", raw.ContentTopic, "err", err)
		p.m.InvalidatedMessages.WithLabelValues(errorKind(err)).Inc()
		return
	}

	if p.identity != nil {
		if _, err := p.identity.Validate(identity.Digest(raw.Data), env.Signature); err != nil {
			p.log.Trace("dropping message: identity validation failed", "content_topic", raw.ContentTopic, "err", err)
			p.m.InvalidatedMessages.WithLabelValues("identity").Inc()
			return
		}
	}

	id, err := p.store.Insert(msgCtx, env)
	if err != nil {
		p.log.Trace("dropping message: store insert failed", "content_topic", raw.ContentTopic, "err", err)
		p.m.InvalidatedMessages.WithLabelValues("store").Inc()
		return
	}

	p.m.ValidatedMessages.WithLabelValues(env.Identifier).Inc()
	p.log.Info("inserted message", "id", id, "kind", env.Kind, "content_topic", raw.ContentTopic)
}

// decodeWithTimeout runs the (synchronous, CPU-bound) decoder fan-in on a
// separate goroutine and returns when it finishes or when ctx's deadline
// for the per-message budget passes, whichever comes first; a decode that
// overruns keeps running in the background until it completes. Decode never
// blocks on I/O, so this only guards the pathological case of a huge buffer
// taking too long to unmarshal.
func decodeWithTimeout(ctx context.Context, data []byte) (*gossipcast.StoredEnvelope, error) {
	type result struct {
		env *gossipcast.StoredEnvelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		env, err := gossipcast.DecodeFanIn(data)
		done <- result{env, err}
	}()

	select {
	case r := <-done:
		return r.env, r.err
	case <-ctx.Done():
		return nil, errors.Join(errs.ErrTimeout, ctx.Err())
	}
}

func errorKind(err error) string {
	if errors.Is(err, errs.ErrTimeout) {
		return "timeout"
	}
	if errors.Is(err, errs.ErrDecode) {
		return "decode"
	}
	return "unknown"
}
