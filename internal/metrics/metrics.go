// Package metrics exposes ledger, miner and RPC activity as Prometheus
// collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "ledger"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	// Outcome label values for proof searches
	OutcomeFound    = "found"
	OutcomeCanceled = "canceled"
	OutcomeStale    = "stale"
)

// Labels holds constant labels applied to all metrics.
type Labels struct {
	NodeID string
}

func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.NodeID != "" {
		labels["node_id"] = l.NodeID
	}
	return labels
}

type Metrics struct {
	// Chain state
	height       prometheus.Gauge
	pending      prometheus.Gauge
	blocksMinted prometheus.Counter
	txsMinted    prometheus.Counter

	// Proof-of-work
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram

	// RPC
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// New creates a Metrics instance and registers all collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels is New with constant labels applied to every collector.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	if promLabels := labels.toPrometheusLabels(); len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	m := &Metrics{
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "chain_height",
			Help:      "Index of the tail block",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_transactions",
			Help:      "Transactions waiting for the next block",
		}),
		blocksMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_minted_total",
			Help:      "Total number of blocks appended, genesis included",
		}),
		txsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transactions_minted_total",
			Help:      "Total number of transactions sealed into blocks",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pow_searches_total",
			Help:      "Proof searches by outcome",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pow_search_duration_seconds",
			Help:      "Wall time spent searching for a proof",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rpc_calls_total",
			Help:      "RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handler latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	err := errors.Join(
		reg.Register(m.height),
		reg.Register(m.pending),
		reg.Register(m.blocksMinted),
		reg.Register(m.txsMinted),
		reg.Register(m.searches),
		reg.Register(m.searchDuration),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BlockMinted records a newly appended block.
func (m *Metrics) BlockMinted(index uint64, txCount int) {
	if m == nil {
		return
	}
	m.height.Set(float64(index))
	m.blocksMinted.Inc()
	m.txsMinted.Add(float64(txCount))
}

// PendingChanged sets the pending pool gauge.
func (m *Metrics) PendingChanged(count int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(count))
}

// RecordSearch records one proof search and how it ended.
func (m *Metrics) RecordSearch(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(durationSeconds)
}

// RecordRPCCall records an RPC invocation.
func (m *Metrics) RecordRPCCall(method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rpcCalls.WithLabelValues(method, status).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}
