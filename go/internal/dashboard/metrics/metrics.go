package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives sync-layer events for monitoring
type Collector interface {
	MessageReceived(kind string)
	MessageDropped(reason string)
	ResyncRequested(reason string)
	ResyncCollapsed()
	ResyncCompleted(applied, stale int)
	ResyncFailed()
	Reconnected()
	ChannelState(state string)
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) MessageReceived(string)   {}
func (NoOp) MessageDropped(string)    {}
func (NoOp) ResyncRequested(string)   {}
func (NoOp) ResyncCollapsed()         {}
func (NoOp) ResyncCompleted(int, int) {}
func (NoOp) ResyncFailed()            {}
func (NoOp) Reconnected()             {}
func (NoOp) ChannelState(string)      {}

var (
	_ Collector = NoOp{}
	_ Collector = (*Prometheus)(nil)
)

var channelStates = []string{"connecting", "open", "closed"}

// Prometheus exports the sync counters on its own registry
type Prometheus struct {
	registry *prometheus.Registry

	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	resyncsRequested *prometheus.CounterVec
	resyncsCollapsed prometheus.Counter
	resyncsCompleted prometheus.Counter
	resyncsFailed    prometheus.Counter
	snapshotApplied  prometheus.Counter
	snapshotStale    prometheus.Counter
	reconnects       prometheus.Counter
	channelState     *prometheus.GaugeVec
}

// NewPrometheus creates and registers the dashboard metrics.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "push_messages_received_total",
			Help:      "Push messages decoded, by message type.",
		}, []string{"type"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "push_messages_dropped_total",
			Help:      "Push messages dropped as malformed, by reason.",
		}, []string{"reason"}),
		resyncsRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "resyncs_requested_total",
			Help:      "Full resyncs requested, by reason.",
		}, []string{"reason"}),
		resyncsCollapsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "resyncs_collapsed_total",
			Help:      "Resync requests folded into an outstanding pull.",
		}),
		resyncsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "resyncs_completed_total",
			Help:      "Snapshots fetched and merged.",
		}),
		resyncsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "resyncs_failed_total",
			Help:      "Snapshot fetches that failed.",
		}),
		snapshotApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "snapshot_entries_applied_total",
			Help:      "Snapshot entries merged into the cache.",
		}),
		snapshotStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "snapshot_entries_stale_total",
			Help:      "Snapshot entries discarded because a newer push arrived.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficdash",
			Name:      "push_reconnects_total",
			Help:      "Times the push channel reopened after a disconnect.",
		}),
		channelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trafficdash",
			Name:      "push_channel_state",
			Help:      "1 for the push channel's current state, 0 otherwise.",
		}, []string{"state"}),
	}

	p.registry.MustRegister(
		p.messagesReceived,
		p.messagesDropped,
		p.resyncsRequested,
		p.resyncsCollapsed,
		p.resyncsCompleted,
		p.resyncsFailed,
		p.snapshotApplied,
		p.snapshotStale,
		p.reconnects,
		p.channelState,
	)
	return p
}

// Registry returns the registry to expose over HTTP.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) MessageReceived(kind string) {
	p.messagesReceived.WithLabelValues(kind).Inc()
}

func (p *Prometheus) MessageDropped(reason string) {
	p.messagesDropped.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ResyncRequested(reason string) {
	p.resyncsRequested.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ResyncCollapsed() {
	p.resyncsCollapsed.Inc()
}

func (p *Prometheus) ResyncCompleted(applied, stale int) {
	p.resyncsCompleted.Inc()
	p.snapshotApplied.Add(float64(applied))
	p.snapshotStale.Add(float64(stale))
}

func (p *Prometheus) ResyncFailed() {
	p.resyncsFailed.Inc()
}

func (p *Prometheus) Reconnected() {
	p.reconnects.Inc()
}

func (p *Prometheus) ChannelState(state string) {
	for _, s := range channelStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.channelState.WithLabelValues(s).Set(v)
	}
}
