package sync2

import "time"

type Config struct {
	MinSyncIbltSize         int           `mapstructure:"min-sync-iblt-size"`
	MaxSyncWithSimpleMethod int           `mapstructure:"max-sync-with-simple-method"`
	OutgoingTimeout         time.Duration `mapstructure:"outgoing-timeout"`
	IngoingTimeout          time.Duration `mapstructure:"ingoing-timeout"`
	MaxSymbolBatch          int           `mapstructure:"max-symbol-batch"`
	MaxHashesPerMessage     int           `mapstructure:"max-hashes-per-message"`
	MaxEntriesPerMessage    int           `mapstructure:"max-entries-per-message"`
	MaxMessageSize          int           `mapstructure:"max-message-size"`
	RequestTimeout          time.Duration `mapstructure:"request-timeout"`
	RetryInterval           time.Duration `mapstructure:"retry-interval"`
	SweepInterval           time.Duration `mapstructure:"sweep-interval"`
	FinishedSessions        int           `mapstructure:"finished-sessions"`
	Redundancy              int           `mapstructure:"redundancy"`
}

func DefaultConfig() Config {
	return Config{
		MinSyncIbltSize:         333,
		MaxSyncWithSimpleMethod: 1000,
		OutgoingTimeout:         10 * time.Second,
		IngoingTimeout:          20 * time.Second,
		MaxSymbolBatch:          1024,
		MaxHashesPerMessage:     4096,
		MaxEntriesPerMessage:    256,
		MaxMessageSize:          16 << 20,
		RequestTimeout:          30 * time.Second,
		RetryInterval:           3 * time.Second,
		SweepInterval:           time.Second,
		FinishedSessions:        4096,
		Redundancy:              1,
	}
}
