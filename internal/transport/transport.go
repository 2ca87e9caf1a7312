// Package transport is the opaque gossip-substrate boundary: the core
// never opens sockets itself (spec.md §6). It consumes a Subscriber that
// yields raw, content-topic-tagged byte buffers and exposes peer counts,
// and is fed concretely by a libp2p/go-libp2p-pubsub gossipsub adapter.
package transport

import "context"

// RawMessage is one undecoded payload handed up from the substrate, still
// tagged with the topic it arrived on.
type RawMessage struct {
	ContentTopic string
	Data         []byte
}

// Subscriber is the boundary the ingestion pipeline and scheduler consume.
// It is deliberately thin: spec.md §6 treats the transport as an opaque
// subscriber plus a peer-count handle.
type Subscriber interface {
	// Messages returns the channel the ingestion worker reads from. The
	// channel is closed when the subscriber is stopped.
	Messages() <-chan RawMessage

	// NumberOfPeers returns the total peers known to the substrate.
	NumberOfPeers() int

	// ConnectedPeerCount returns peers currently connected.
	ConnectedPeerCount() int

	// NetworkCheck reports whether the substrate considers itself healthy
	// (has at least one connection).
	NetworkCheck() error

	// UpdateContentTopics replaces the set of subscribed topics, bounded
	// by the caller's context (scheduler applies a 5s timeout).
	UpdateContentTopics(ctx context.Context, topics []string) error

	// Close tears the subscriber down, closing the Messages channel.
	Close() error
}
