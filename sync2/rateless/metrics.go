package rateless

import "github.com/spacemeshos/go-sharedlog/metrics"

const subsystem = "rateless_sync"

var (
	sessionsStarted   = metrics.NewCounter("sessions_started", subsystem, "IBLT sessions started", []string{"direction"})
	sessionsCompleted = metrics.NewCounter("sessions_completed", subsystem, "IBLT sessions decoded", []string{"direction"})
	sessionsTimedOut  = metrics.NewCounter("sessions_timed_out", subsystem, "IBLT sessions expired", []string{"direction"})
	liveSessions      = metrics.NewGauge("sessions_live", subsystem, "Live IBLT sessions", []string{"direction"})
	fallbacks         = metrics.NewCounter("fallbacks", subsystem, "Entries routed to the simple synchronizer", []string{"reason"})
	symbolsSent       = metrics.NewSimpleCounter("symbols_sent", subsystem, "Coded symbols sent")
	symbolsReceived   = metrics.NewSimpleCounter("symbols_received", subsystem, "Coded symbols received")
	decodedSymbols    = metrics.NewCounter("decoded_symbols", subsystem, "Symbols recovered by decoding", []string{"side"})
)
