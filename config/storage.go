package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/blocks/leveldb"
	"github.com/spacemeshos/go-sharedlog/signing"
	"github.com/spacemeshos/go-sharedlog/sql"
	sqlblocks "github.com/spacemeshos/go-sharedlog/sql/blocks"
)

const (
	MemoryBackend  = "memory"
	LevelDBBackend = "leveldb"
	SQLiteBackend  = "sqlite"

	blocksDir    = "blocks"
	dbFile       = "state.sql"
	identityFile = "identity.key"
)

// StorageConfig selects where blocks and replication ranges are kept.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data-dir"`
	// BlockCacheSize is the number of decoded blocks kept in memory in front
	// of the backend. Zero disables the cache.
	BlockCacheSize int `mapstructure:"block-cache-size"`
	// LevelDBCache is the leveldb block cache in MiB.
	LevelDBCache int `mapstructure:"leveldb-cache"`
	Connections  int `mapstructure:"connections"`
	// LatencyMetering records sqlite query durations.
	LatencyMetering bool `mapstructure:"latency-metering"`
}

func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:        MemoryBackend,
		DataDir:        "./data",
		BlockCacheSize: 1024,
		LevelDBCache:   16,
		Connections:    16,
	}
}

// Storage holds opened storage backends.
type Storage struct {
	Blocks blocks.Store
	// DB is set for the sqlite backend and also persists replication ranges.
	DB *sql.Database

	closers []func() error
}

// Close releases every opened backend.
func (s *Storage) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open opens the configured backend.
func (c StorageConfig) Open(logger *zap.Logger) (*Storage, error) {
	st := &Storage{}
	switch c.Backend {
	case MemoryBackend:
		st.Blocks = blocks.NewMemStore()
	case LevelDBBackend:
		store, err := leveldb.Open(filepath.Join(c.DataDir, blocksDir),
			leveldb.WithLogger(logger),
			leveldb.WithCache(c.LevelDBCache),
		)
		if err != nil {
			return nil, fmt.Errorf("open leveldb: %w", err)
		}
		st.Blocks = store
		st.closers = append(st.closers, store.Close)
	case SQLiteBackend:
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sql.Open("file:"+filepath.Join(c.DataDir, dbFile),
			sql.WithLogger(logger),
			sql.WithConnections(c.Connections),
			sql.WithLatencyMetering(c.LatencyMetering),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		st.DB = db
		st.Blocks = sqlblocks.NewStore(db)
		st.closers = append(st.closers, db.Close)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	if c.BlockCacheSize > 0 {
		cached, err := blocks.NewCached(st.Blocks, c.BlockCacheSize)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Blocks = cached
	}
	return st, nil
}

// Identity loads the replica identity from the data directory, creating it
// on first use.
func (c StorageConfig) Identity(opts ...signing.EdSignerOptionFunc) (*signing.EdSigner, error) {
	return signing.LoadOrCreate(filepath.Join(c.DataDir, identityFile), opts...)
}
