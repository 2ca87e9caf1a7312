package transport

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
)

func peerInfo(g *GossipSub) peer.AddrInfo {
	return peer.AddrInfo{ID: g.host.ID(), Addrs: g.host.Addrs()}
}

// TestGossipSubRoundTrip joins two in-process hosts on the same topic and
// confirms a publish from one side surfaces on the other's Messages
// channel, exercising the real gossipsub router rather than a mock.
func TestGossipSubRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recv, err := New(ctx, Config{ListenHost: "127.0.0.1", ListenPort: 0, Topics: []string{"listener-radio-test"}})
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	defer recv.Close()

	senderHost, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("new sender host: %v", err)
	}
	defer senderHost.Close()

	senderPS, err := pubsub.NewGossipSub(ctx, senderHost)
	if err != nil {
		t.Fatalf("new sender gossipsub: %v", err)
	}

	if err := senderHost.Connect(ctx, peerInfo(recv)); err != nil {
		t.Fatalf("connect: %v", err)
	}

	topic, err := senderPS.Join("listener-radio-test")
	if err != nil {
		t.Fatalf("sender join: %v", err)
	}
	defer topic.Close()

	// Give the mesh time to form before publishing.
	time.Sleep(500 * time.Millisecond)

	if err := topic.Publish(ctx, []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-recv.Messages():
		if string(msg.Data) != `{"hello":"world"}` {
			t.Fatalf("unexpected payload: %s", msg.Data)
		}
		if msg.ContentTopic != "listener-radio-test" {
			t.Fatalf("unexpected topic: %s", msg.ContentTopic)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for gossiped message")
	}
}

func TestUpdateContentTopicsAddAndRemove(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, err := New(ctx, Config{ListenHost: "127.0.0.1", ListenPort: 0, Topics: []string{"a"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer g.Close()

	if err := g.UpdateContentTopics(ctx, []string{"b", "c"}); err != nil {
		t.Fatalf("update topics: %v", err)
	}
	if _, ok := g.topics["a"]; ok {
		t.Fatal("topic a should have been left")
	}
	if len(g.topics) != 2 {
		t.Fatalf("want 2 joined topics, got %d", len(g.topics))
	}
}
