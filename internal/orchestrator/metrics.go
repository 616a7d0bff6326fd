package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chunkgen/pkg/types"
)

var (
	remoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chunkgen",
			Subsystem: "client",
			Name:      "remote_calls_total",
			Help:      "Remote calls issued, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	remoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chunkgen",
			Subsystem: "client",
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of remote calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	windowLayers = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chunkgen",
			Subsystem: "client",
			Name:      "window_layers",
			Help:      "Cache layers sent with each advance call",
			Buckets:   prometheus.LinearBuckets(0, 2, 9),
		},
		[]string{"phase"},
	)

	fragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chunkgen",
			Subsystem: "client",
			Name:      "emitted_fragments_total",
			Help:      "Text fragments emitted by completed phase steps",
		},
	)
)

func init() {
	prometheus.MustRegister(remoteCallsTotal, remoteCallDuration, windowLayers, fragmentsTotal)
}

func observeCall(op types.Op, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	remoteCallsTotal.WithLabelValues(string(op), outcome).Inc()
	remoteCallDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

func observeWindow(phase types.Phase, layers int) {
	windowLayers.WithLabelValues(string(phase)).Observe(float64(layers))
}
