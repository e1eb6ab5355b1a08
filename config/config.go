// Package config contains the configuration of a shared log replica.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-sharedlog/metrics"
	"github.com/spacemeshos/go-sharedlog/oplog"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/p2p/server"
	"github.com/spacemeshos/go-sharedlog/ranges"
	"github.com/spacemeshos/go-sharedlog/sync2"
)

// Config defines the top level configuration of a replica.
type Config struct {
	Log     oplog.Config  `mapstructure:"log"`
	Ranges  ranges.Config `mapstructure:"ranges"`
	Sync    sync2.Config  `mapstructure:"sync"`
	P2P     p2p.Config    `mapstructure:"p2p"`
	Server  server.Config `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggerConfig  `mapstructure:"logging"`
}

// MetricsConfig enables the prometheus endpoint and optional push gateway.
type MetricsConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Listen  string             `mapstructure:"listen"`
	Push    metrics.PushConfig `mapstructure:"push"`
}

// DefaultConfig returns the default configuration of every component.
func DefaultConfig() Config {
	return Config{
		Log:     oplog.DefaultConfig(),
		Ranges:  ranges.DefaultConfig(),
		Sync:    sync2.DefaultConfig(),
		P2P:     p2p.DefaultConfig(),
		Server:  server.DefaultConfig(),
		Storage: DefaultStorageConfig(),
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:1010",
			Push: metrics.PushConfig{
				Period: time.Minute,
				Job:    "sharedlog",
			},
		},
		Logging: DefaultLoggerConfig(),
	}
}

// Load reads the config file at path on top of the defaults.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs is Load reading from afs.
func LoadFs(afs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	vip := viper.New()
	vip.SetFs(afs)
	vip.SetConfigFile(path)
	if err := vip.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values that components can't recover from.
func (cfg *Config) Validate() error {
	switch cfg.Ranges.Resolution {
	case ranges.U32, ranges.U64:
	default:
		return fmt.Errorf("unknown resolution %q", cfg.Ranges.Resolution)
	}
	switch cfg.Storage.Backend {
	case MemoryBackend, LevelDBBackend, SQLiteBackend:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Sync.MinSyncIbltSize < 1 {
		return fmt.Errorf("min-sync-iblt-size must be positive, got %d", cfg.Sync.MinSyncIbltSize)
	}
	if cfg.Server.RequestsPerInterval < 1 || cfg.Server.Interval <= 0 {
		return errors.New("server rate limit must be positive")
	}
	return nil
}
