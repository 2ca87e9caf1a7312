package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/graphindexer/gossip-listener/internal/config"
	"github.com/graphindexer/gossip-listener/internal/gossipcast"
	"github.com/graphindexer/gossip-listener/internal/identity"
	"github.com/graphindexer/gossip-listener/internal/metrics"
	"github.com/graphindexer/gossip-listener/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeStore records every inserted envelope in-process, avoiding a real
// Postgres dependency for pipeline-level tests.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*gossipcast.StoredEnvelope
}

func (f *fakeStore) Insert(_ context.Context, env *gossipcast.StoredEnvelope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rows = append(f.rows, env)
	return f.nextID, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeSubscriber feeds a fixed slice of RawMessage over a channel and then
// closes it, standing in for the transport boundary.
type fakeSubscriber struct {
	ch chan transport.RawMessage
}

func newFakeSubscriber(msgs ...transport.RawMessage) *fakeSubscriber {
	ch := make(chan transport.RawMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeSubscriber{ch: ch}
}

func (f *fakeSubscriber) Messages() <-chan transport.RawMessage { return f.ch }
func (f *fakeSubscriber) NumberOfPeers() int                    { return 1 }
func (f *fakeSubscriber) ConnectedPeerCount() int               { return 1 }
func (f *fakeSubscriber) NetworkCheck() error                   { return nil }
func (f *fakeSubscriber) UpdateContentTopics(context.Context, []string) error { return nil }
func (f *fakeSubscriber) Close() error                          { return nil }

func simpleTestBytes(t *testing.T, identifier, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"nonce":        1,
		"identifier":   identifier,
		"graph_account": "0xAA",
		"signature":    []byte("sig"),
		"payload":      map[string]string{"identifier": identifier, "content": content},
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return body
}

func TestPipelineInsertsDecodedMessages(t *testing.T) {
	st := &fakeStore{}
	sub := newFakeSubscriber(
		transport.RawMessage{ContentTopic: "t1", Data: simpleTestBytes(t, "QmA", "hello")},
		transport.RawMessage{ContentTopic: "t1", Data: simpleTestBytes(t, "QmB", "world")},
	)
	p := New(sub, st, metrics.New(prometheus.NewRegistry()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Run(ctx)

	if st.count() != 2 {
		t.Fatalf("want 2 inserted rows, got %d", st.count())
	}
}

func TestPipelineDropsUndecodableMessages(t *testing.T) {
	st := &fakeStore{}
	sub := newFakeSubscriber(
		transport.RawMessage{ContentTopic: "t1", Data: []byte(`not json`)},
	)
	reg := metrics.New(prometheus.NewRegistry())
	p := New(sub, st, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Run(ctx)

	if st.count() != 0 {
		t.Fatalf("want 0 inserted rows for undecodable message, got %d", st.count())
	}
}

func TestPipelineDropsMessagesFailingIdentityValidation(t *testing.T) {
	st := &fakeStore{}
	sub := newFakeSubscriber(
		transport.RawMessage{ContentTopic: "t1", Data: simpleTestBytes(t, "QmA", "hello")},
	)
	idv := identity.New(config.IDValidationValidAddress)
	p := New(sub, st, metrics.New(prometheus.NewRegistry()), idv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Run(ctx)

	// simpleTestBytes signs with a 3-byte placeholder signature, which fails
	// identity.Validator's length check under every policy except no-check.
	if st.count() != 0 {
		t.Fatalf("want 0 inserted rows for a message with an invalid signature, got %d", st.count())
	}
}
