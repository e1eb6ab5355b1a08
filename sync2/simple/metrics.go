package simple

import "github.com/spacemeshos/go-sharedlog/metrics"

const subsystem = "simple_sync"

var (
	messagesSent = metrics.NewCounter("messages_sent", subsystem, "Messages sent by the simple synchronizer", []string{"type"})
	entriesSent  = metrics.NewSimpleCounter("entries_sent", subsystem, "Entries sent to peers")
	entriesRecv  = metrics.NewSimpleCounter("entries_received", subsystem, "Entries received from peers")
	inflight     = metrics.NewSimpleGauge("inflight", subsystem, "Hashes and coordinates requested and not yet received")
)
