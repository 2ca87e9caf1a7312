package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/graphindexer/gossip-listener/internal/errs"
	"github.com/graphindexer/gossip-listener/internal/logging"
)

// Config configures the gossipsub adapter from spec.md §6's
// waku_host/waku_port/boot_node_addresses options; the adapter does not use
// waku_node_key or waku_addr.
// The adapter is a deliberately thin stand-in for the real Waku transport
// (SPEC_FULL.md Non-goals): no peer scoring, NAT traversal, or RLN.
type Config struct {
	ListenHost    string
	ListenPort    int
	BootNodeAddrs []string
	Topics        []string
	QueueSize     int // buffered channel capacity, default 256
}

// topicHandle bundles a joined topic with its active subscription.
type topicHandle struct {
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	stop  context.CancelFunc
}

// GossipSub is the concrete Subscriber backed by go-libp2p + gossipsub.
type GossipSub struct {
	host host.Host
	ps   *pubsub.PubSub
	log  *logging.Logger

	mu     sync.Mutex
	topics map[string]*topicHandle

	out     chan RawMessage
	dropped atomic.Uint64
	closed  atomic.Bool
}

// New dials into the gossip substrate, joins the configured content
// topics, and starts one read-loop goroutine per topic feeding a single
// shared output channel. Each read loop performs only sub.Next(ctx) plus a
// non-blocking channel send, per spec.md §4.3/§9's "callback must never
// block" requirement — a full queue increments the dropped counter instead
// of blocking.
func New(ctx context.Context, cfg Config) (*GossipSub, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	listenAddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", cfg.ListenHost, cfg.ListenPort))
	if err != nil {
		return nil, fmt.Errorf("%w: listen multiaddr: %v", errs.ErrTransport, err)
	}

	h, err := libp2p.New(libp2p.ListenAddrs(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("%w: create host: %v", errs.ErrTransport, err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("%w: create gossipsub router: %v", errs.ErrTransport, err)
	}

	g := &GossipSub{
		host:   h,
		ps:     ps,
		log:    logging.Module("transport"),
		topics: make(map[string]*topicHandle),
		out:    make(chan RawMessage, cfg.QueueSize),
	}

	for _, addr := range cfg.BootNodeAddrs {
		if err := g.connectBootNode(ctx, addr); err != nil {
			g.log.Warn("boot node dial failed", "addr", addr, "err", err)
		}
	}

	if err := g.UpdateContentTopics(ctx, cfg.Topics); err != nil {
		h.Close()
		return nil, err
	}

	return g, nil
}

func (g *GossipSub) connectBootNode(ctx context.Context, addr string) error {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("parse boot node addr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("parse peer info: %w", err)
	}
	return g.host.Connect(ctx, *info)
}

// Messages returns the channel the ingestion worker reads from.
func (g *GossipSub) Messages() <-chan RawMessage { return g.out }

// NumberOfPeers returns the total number of peers the host knows about.
func (g *GossipSub) NumberOfPeers() int {
	return len(g.host.Peerstore().Peers())
}

// ConnectedPeerCount returns peers the host currently has an open
// connection to.
func (g *GossipSub) ConnectedPeerCount() int {
	return len(g.host.Network().Conns())
}

// NetworkCheck reports healthy when at least one connection is open.
func (g *GossipSub) NetworkCheck() error {
	if g.ConnectedPeerCount() == 0 {
		return fmt.Errorf("%w: no connected peers", errs.ErrTransport)
	}
	return nil
}

// UpdateContentTopics joins newly added topics and leaves removed ones,
// matching spec.md §4.4's network tick "push current topic list" action.
func (g *GossipSub) UpdateContentTopics(ctx context.Context, topics []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	want := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		want[t] = struct{}{}
	}

	for name, h := range g.topics {
		if _, ok := want[name]; !ok {
			h.stop()
			h.sub.Cancel()
			if err := h.topic.Close(); err != nil {
				g.log.Warn("close topic", "topic", name, "err", err)
			}
			delete(g.topics, name)
		}
	}

	for name := range want {
		if _, ok := g.topics[name]; ok {
			continue
		}
		if err := g.joinTopicLocked(ctx, name); err != nil {
			return fmt.Errorf("%w: join topic %s: %v", errs.ErrTransport, name, err)
		}
	}
	return nil
}

func (g *GossipSub) joinTopicLocked(ctx context.Context, name string) error {
	topic, err := g.ps.Join(name)
	if err != nil {
		return err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		topic.Close()
		return err
	}

	// The read loop outlives ctx, which only bounds this update; it stops
	// when the topic is left or the subscriber is closed.
	loopCtx, cancel := context.WithCancel(context.Background())
	g.topics[name] = &topicHandle{topic: topic, sub: sub, stop: cancel}
	go g.readLoop(loopCtx, name, sub)
	return nil
}

func (g *GossipSub) readLoop(ctx context.Context, name string, sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.log.Warn("subscription read error", "topic", name, "err", err)
			continue
		}
		if msg.ReceivedFrom == g.host.ID() {
			continue // gossipsub echoes local publishes back
		}
		select {
		case g.out <- RawMessage{ContentTopic: name, Data: msg.Data}:
		default:
			g.dropped.Add(1)
		}
	}
}

// DroppedMessages returns the count of messages discarded because the
// output queue was full, for metrics exposition.
func (g *GossipSub) DroppedMessages() uint64 { return g.dropped.Load() }

// Close tears every joined topic down and closes the host.
func (g *GossipSub) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.mu.Lock()
	for _, h := range g.topics {
		h.stop()
		h.sub.Cancel()
		h.topic.Close()
	}
	g.topics = nil
	g.mu.Unlock()

	close(g.out)
	return g.host.Close()
}
