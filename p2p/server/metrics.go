package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-sharedlog/metrics"
)

const (
	subsystem  = "server"
	protoLabel = "protocol"
)

var (
	targetQueue = metrics.NewGauge(
		"target_queue",
		subsystem,
		"target size of the queue",
		[]string{protoLabel},
	)
	queue = metrics.NewGauge(
		"queue",
		subsystem,
		"actual size of the queue",
		[]string{protoLabel},
	)
	targetRps = metrics.NewGauge(
		"rps",
		subsystem,
		"target requests per second",
		[]string{protoLabel},
	)
	requests = metrics.NewCounter(
		"requests",
		subsystem,
		"requests counter",
		[]string{protoLabel, "state"},
	)
	clientRequests = metrics.NewCounter(
		"client_requests",
		subsystem,
		"outbound messages",
		[]string{protoLabel, "result"},
	)
	clientLatency = metrics.NewHistogramWithBuckets(
		"client_latency_seconds",
		subsystem,
		"latency of sending a message",
		[]string{protoLabel, "result"},
		prometheus.ExponentialBuckets(0.01, 2, 10),
	)
	serverLatency = metrics.NewHistogramWithBuckets(
		"server_latency_seconds",
		subsystem,
		"latency since accepting new stream",
		[]string{protoLabel},
		prometheus.ExponentialBuckets(0.01, 2, 10),
	)
)

func newTracker(protocol string) *tracker {
	return &tracker{
		targetQueue:          targetQueue.WithLabelValues(protocol),
		queue:                queue.WithLabelValues(protocol),
		targetRps:            targetRps.WithLabelValues(protocol),
		completed:            requests.WithLabelValues(protocol, "completed"),
		accepted:             requests.WithLabelValues(protocol, "accepted"),
		dropped:              requests.WithLabelValues(protocol, "dropped"),
		failed:               requests.WithLabelValues(protocol, "failed"),
		clientSucceeded:      clientRequests.WithLabelValues(protocol, "success"),
		clientFailed:         clientRequests.WithLabelValues(protocol, "failure"),
		serverLatency:        serverLatency.WithLabelValues(protocol),
		clientLatency:        clientLatency.WithLabelValues(protocol, "success"),
		clientLatencyFailure: clientLatency.WithLabelValues(protocol, "failure"),
	}
}

type tracker struct {
	targetQueue                         prometheus.Gauge
	queue                               prometheus.Gauge
	targetRps                           prometheus.Gauge
	completed                           prometheus.Counter
	accepted                            prometheus.Counter
	dropped                             prometheus.Counter
	failed                              prometheus.Counter
	clientSucceeded                     prometheus.Counter
	clientFailed                        prometheus.Counter
	serverLatency                       prometheus.Observer
	clientLatency, clientLatencyFailure prometheus.Observer
}
