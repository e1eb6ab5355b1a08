package ranges

import "time"

// Resolution names the coordinate width.
type Resolution string

const (
	U32 Resolution = "u32"
	U64 Resolution = "u64"
)

// Config is the replication configuration.
type Config struct {
	Resolution Resolution `mapstructure:"resolution"`
	// Replicas is the minimal number of peers that must replicate a coordinate
	// before entries at it are considered safely replicated.
	Replicas int `mapstructure:"replicas"`
	// RoleAge is the age at which a range counts towards coverage.
	RoleAge time.Duration `mapstructure:"role-age"`
}

// DefaultConfig returns the default replication configuration.
func DefaultConfig() Config {
	return Config{
		Resolution: U64,
		Replicas:   2,
		RoleAge:    time.Minute,
	}
}
