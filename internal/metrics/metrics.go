package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var GateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_gate_outcomes_total",
	Help: "Terminal outcomes of the message pipeline",
}, []string{"path", "action"})

var GateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_gate_errors_total",
	Help: "Errors swallowed by pipeline gates",
}, []string{"gate", "kind"})

var DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sentinel_command_dispatch_duration_seconds",
	Help:    "Time spent running a command handler",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 10, 12),
}, []string{"command"})
