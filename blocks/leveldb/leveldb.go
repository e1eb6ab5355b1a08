// Package leveldb implements blocks.Store on top of goleveldb.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/hash"
)

const lockFile = "blocks.lock"

// ErrLocked is returned when the directory is in use by another process.
var ErrLocked = errors.New("block store directory is locked")

type config struct {
	logger  *zap.Logger
	cache   int
	handles int
}

// Opt configures the Store.
type Opt func(*config)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCache sets the leveldb cache size in MiB.
func WithCache(mib int) Opt {
	return func(c *config) {
		c.cache = mib
	}
}

// WithHandles sets the number of open file handles.
func WithHandles(n int) Opt {
	return func(c *config) {
		c.handles = n
	}
}

// Store is a leveldb-backed blocks.Store.
type Store struct {
	logger *zap.Logger
	dir    string
	db     *leveldb.DB
	lock   *flock.Flock

	closeMu sync.Mutex
	closed  bool
}

var (
	_ blocks.Store   = &Store{}
	_ blocks.Remover = &Store{}
)

// Open opens (creating if needed) the store in dir.
// The directory is locked for the lifetime of the Store.
func Open(dir string, opts ...Opt) (*Store, error) {
	cfg := config{logger: zap.NewNop(), cache: 16, handles: 16}
	for _, o := range opts {
		o(&cfg)
	}
	// Ensure we have some minimal caching and file guarantees
	cfg.cache = max(cfg.cache, 16)
	cfg.handles = max(cfg.handles, 16)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create block store dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	db, err := leveldb.OpenFile(dir, &opt.Options{
		OpenFilesCacheCapacity: cfg.handles,
		BlockCacheCapacity:     cfg.cache / 2 * opt.MiB,
		WriteBuffer:            cfg.cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	var corrupted *lerrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		cfg.logger.Warn("recovering corrupted block store", zap.String("dir", dir), zap.Error(err))
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open block store: %w", err)
	}
	cfg.logger.Debug("opened block store",
		zap.String("dir", dir),
		zap.Int("cache_size", cfg.cache),
		zap.Int("num_handles", cfg.handles))
	return &Store{logger: cfg.logger, dir: dir, db: db, lock: lock}, nil
}

// OpenInMemory opens a Store backed by memory. It is used in tests.
func OpenInMemory() *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic("can't open in-memory leveldb: " + err.Error())
	}
	return &Store{logger: zap.NewNop(), db: db}
}

// Get implements blocks.Store.
func (s *Store) Get(_ context.Context, h string) ([]byte, error) {
	b, err := s.db.Get([]byte(h), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, blocks.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get block %s: %w", h, err)
	}
	return b, nil
}

// Put implements blocks.Store.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	h := hash.Multihash(data)
	if err := s.db.Put([]byte(h), data, nil); err != nil {
		return "", fmt.Errorf("put block %s: %w", h, err)
	}
	return h, nil
}

// Has implements blocks.Store.
func (s *Store) Has(_ context.Context, h string) (bool, error) {
	has, err := s.db.Has([]byte(h), nil)
	if err != nil {
		return false, fmt.Errorf("check block %s: %w", h, err)
	}
	return has, nil
}

// Remove implements blocks.Remover.
func (s *Store) Remove(_ context.Context, h string) error {
	if err := s.db.Delete([]byte(h), nil); err != nil {
		return fmt.Errorf("delete block %s: %w", h, err)
	}
	return nil
}

// Close closes the database and releases the directory lock.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if s.lock != nil {
		err = errors.Join(err, s.lock.Unlock())
	}
	if err != nil {
		return fmt.Errorf("close block store: %w", err)
	}
	return nil
}
