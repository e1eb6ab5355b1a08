package sql

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-sharedlog/metrics"
)

const subsystem = "database"

// queryDuration in nanoseconds.
var queryDuration = metrics.NewHistogramWithBuckets(
	"query_duration",
	subsystem,
	"Duration of the query in nanoseconds",
	[]string{"query"},
	prometheus.ExponentialBuckets(100_000, 2, 20),
)

var connWaitLatency = metrics.NewHistogramWithBuckets(
	"conn_wait_latency",
	subsystem,
	"Time spent waiting for a pooled connection in seconds",
	[]string{},
	prometheus.ExponentialBuckets(0.0001, 2, 16),
).WithLabelValues()
