package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signals",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of market and sentiment API calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signals",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed market and sentiment API calls",
		},
		[]string{"source"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(UpstreamLatency, UpstreamErrors)
	})
}

// ObserveUpstream records one call to an upstream API that started at start.
func ObserveUpstream(source string, start time.Time, err error) {
	UpstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(source).Inc()
	}
}
