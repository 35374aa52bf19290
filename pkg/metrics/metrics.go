package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parkfinder"

// Check-in outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds every collector the API exports. A nil *Metrics is a no-op.
type Metrics struct {
	httpDuration     *prometheus.HistogramVec
	checkIns         *prometheus.CounterVec
	walletOps        *prometheus.CounterVec
	occupancyUpdates *prometheus.CounterVec
	relayDelivered   prometheus.Counter
	relayDropped     prometheus.Counter
	relayClients     prometheus.Gauge
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Check-in attempts by outcome.",
		}, []string{"outcome", "reason"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet credits and debits by result.",
		}, []string{"kind", "result"}),
		occupancyUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occupancy_updates_total",
			Help:      "Occupancy counter mutations.",
		}, []string{"op", "vehicle_class", "result"}),
		relayDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_delivered_total",
			Help:      "Live-update messages queued to websocket clients.",
		}),
		relayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_dropped_total",
			Help:      "Live-update messages dropped because a client queue was full.",
		}),
		relayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_connected_clients",
			Help:      "Websocket clients connected to this instance.",
		}),
	}
	reg.MustRegister(
		m.httpDuration,
		m.checkIns,
		m.walletOps,
		m.occupancyUpdates,
		m.relayDelivered,
		m.relayDropped,
		m.relayClients,
	)
	return m
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

// IncCheckIn counts a check-in attempt. reason is the error code for rejections.
func (m *Metrics) IncCheckIn(outcome, reason string) {
	if m == nil || m.checkIns == nil {
		return
	}
	m.checkIns.WithLabelValues(normalizeLabel(outcome), reason).Inc()
}

// IncWalletOp counts a credit or debit attempt.
func (m *Metrics) IncWalletOp(kind, result string) {
	if m == nil || m.walletOps == nil {
		return
	}
	m.walletOps.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// IncOccupancyUpdate counts an occupancy mutation.
func (m *Metrics) IncOccupancyUpdate(op, class, result string) {
	if m == nil || m.occupancyUpdates == nil {
		return
	}
	m.occupancyUpdates.WithLabelValues(normalizeLabel(op), normalizeLabel(class), normalizeLabel(result)).Inc()
}

// AddRelayDelivered counts messages queued to clients.
func (m *Metrics) AddRelayDelivered(n int) {
	if m == nil || m.relayDelivered == nil || n <= 0 {
		return
	}
	m.relayDelivered.Add(float64(n))
}

// AddRelayDropped counts messages dropped on full client queues.
func (m *Metrics) AddRelayDropped(n int) {
	if m == nil || m.relayDropped == nil || n <= 0 {
		return
	}
	m.relayDropped.Add(float64(n))
}

// SetRelayClients reports the current number of connected clients.
func (m *Metrics) SetRelayClients(n int) {
	if m == nil || m.relayClients == nil {
		return
	}
	m.relayClients.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
