// Package metrics holds the process-wide Prometheus registry and the
// counters/gauges spec.md §4.6 names. The default registry is a global
// singleton built eagerly at package initialization — the one intentional
// piece of global mutable state in the system (spec.md §9).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a prometheus.Registerer and exposes every metric named in
// spec.md §4.6. Construct one with New(); the process-wide instance used by
// the operator is Default().
type Registry struct {
	reg prometheus.Registerer

	ValidatedMessages   *prometheus.CounterVec
	InvalidatedMessages *prometheus.CounterVec
	ReceivedMessages    prometheus.Counter

	CachedMessages   prometheus.Gauge
	ActivePeers      prometheus.Gauge
	ConnectedPeers   prometheus.Gauge
	GossipPeers      prometheus.Gauge
	PrunedMessages   prometheus.Gauge
}

var defaultRegistry = New(prometheus.NewRegistry())

// Default returns the process-wide registry used by the operator.
func Default() *Registry { return defaultRegistry }

// New builds a Registry bound to reg, registering every metric eagerly so
// first use never pays a get-or-create branch (unlike the teacher's
// lazily-created map-backed registry, Prometheus collectors must be
// registered up front).
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		reg: reg,
		ValidatedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listener_radio_validated_messages_total",
			Help: "Messages that decoded and validated successfully, labelled by deployment.",
		}, []string{"deployment"}),
		InvalidatedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listener_radio_invalidated_messages_total",
			Help: "Messages dropped during decode/validation, labelled by error kind.",
		}, []string{"error_type"}),
		ReceivedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "listener_radio_received_messages_total",
			Help: "Raw messages received from the transport, before decode.",
		}),
		CachedMessages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listener_radio_cached_messages",
			Help: "Current row count in the messages table.",
		}),
		ActivePeers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listener_radio_active_peers",
			Help: "Peers known to the transport.",
		}),
		ConnectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listener_radio_connected_peers",
			Help: "Peers currently connected.",
		}),
		GossipPeers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listener_radio_gossip_peers",
			Help: "Peers participating in gossip for subscribed topics.",
		}),
		PrunedMessages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listener_radio_pruned_messages",
			Help: "Rows deleted by the most recent summary tick.",
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	gatherer, ok := r.reg.(prometheus.Gatherer)
	if !ok {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
