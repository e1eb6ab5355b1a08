package oplog

import "github.com/spacemeshos/go-sharedlog/metrics"

const subsystem = "oplog"

var (
	entriesJoined = metrics.NewSimpleCounter("entries_joined", subsystem, "Number of entries added to logs")
	joinRejected  = metrics.NewSimpleCounter("join_rejected", subsystem, "Number of foreign entries rejected on join")
)
