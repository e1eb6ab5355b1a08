// Package sql keeps blocks and replication ranges in a pooled sqlite database.
package sql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite "github.com/go-llsqlite/crawshaw"
	"github.com/go-llsqlite/crawshaw/sqlitex"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrNoConnection is returned if pooled connection is not available.
	ErrNoConnection = errors.New("database: no free connection")
	// ErrNotFound is returned if requested record is not found.
	ErrNotFound = errors.New("database: not found")
	// ErrObjectExists is returned if database constraints didn't allow to insert an object.
	ErrObjectExists = errors.New("database: object exists")
)

// Executor is an interface for executing raw statement.
// Both Database and Tx implement it.
type Executor interface {
	Exec(string, Encoder, Decoder) (int, error)
}

// Statement is an sqlite statement.
type Statement = sqlite.Stmt

// Encoder binds parameters, positional (?1) or named (@hash).
type Encoder func(*Statement)

// Decoder is called for every row. Returning false stops the iteration.
type Decoder func(*Statement) bool

type options struct {
	migrations  bool
	memory      bool
	connections int
	latency     bool
	logger      *zap.Logger
}

// Opt for configuring database.
type Opt func(*options)

// WithConnections overwrites number of pooled connections.
func WithConnections(n int) Opt {
	return func(o *options) {
		o.connections = n
	}
}

// WithLogger specifies logger for the database.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMigrationsDisabled leaves the schema untouched.
func WithMigrationsDisabled() Opt {
	return func(o *options) {
		o.migrations = false
	}
}

// WithLatencyMetering records the duration of every query by query text.
func WithLatencyMetering(enable bool) Opt {
	return func(o *options) {
		o.latency = enable
	}
}

// OpenInMemory creates an in-memory database with a single connection.
func OpenInMemory(opts ...Opt) (*Database, error) {
	opts = append(opts, WithConnections(1), func(o *options) { o.memory = true })
	return Open("file::memory:?mode=memory", opts...)
}

// InMemory is OpenInMemory for tests. It panics on error.
func InMemory(opts ...Opt) *Database {
	db, err := OpenInMemory(opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// Open opens or creates the database at uri and applies the embedded
// migrations. File databases use WAL journaling.
func Open(uri string, opts ...Opt) (*Database, error) {
	o := options{migrations: true, connections: 16, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	var flags sqlite.OpenFlags
	if !o.memory {
		flags = sqlite.SQLITE_OPEN_READWRITE |
			sqlite.SQLITE_OPEN_CREATE |
			sqlite.SQLITE_OPEN_WAL |
			sqlite.SQLITE_OPEN_URI |
			sqlite.SQLITE_OPEN_NOMUTEX
	}
	pool, err := sqlitex.Open(uri, flags, o.connections)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", uri, err)
	}
	db := &Database{pool: pool}
	if o.latency {
		db.latency = queryDuration
	}
	if !o.migrations {
		return db, nil
	}
	if err := migrate(db, o.logger.With(zap.String("uri", uri))); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

func migrate(db *Database, logger *zap.Logger) error {
	before, err := version(db)
	if err != nil {
		return err
	}
	if err := embeddedMigrations(db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	after, err := version(db)
	if err != nil {
		return err
	}
	if after != before {
		logger.Info("database migrated", zap.Int("from", before), zap.Int("to", after))
	}
	return nil
}

// Database is an instance of sqlite database.
type Database struct {
	pool    *sqlitex.Pool
	latency *prometheus.HistogramVec

	closeOnce sync.Once
	closeErr  error
}

func (db *Database) conn(ctx context.Context) (*sqlite.Conn, error) {
	start := time.Now()
	conn := db.pool.Get(ctx)
	if conn == nil {
		return nil, ErrNoConnection
	}
	connWaitLatency.Observe(time.Since(start).Seconds())
	return conn, nil
}

func (db *Database) observe(query string, start time.Time) {
	if db.latency != nil {
		db.latency.WithLabelValues(query).Observe(float64(time.Since(start)))
	}
}

// Tx starts a deferred transaction. It is upgraded to a write transaction by
// the first write statement.
//
// https://www.sqlite.org/lang_transaction.html
func (db *Database) Tx(ctx context.Context) (*Tx, error) {
	return db.begin(ctx, "BEGIN;")
}

// WithTx runs exec in an immediate transaction and commits if exec returns nil.
func (db *Database) WithTx(ctx context.Context, exec func(*Tx) error) error {
	tx, err := db.begin(ctx, "BEGIN IMMEDIATE;")
	if err != nil {
		return err
	}
	defer tx.Release()
	if err := exec(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *Database) begin(ctx context.Context, stmt string) (*Tx, error) {
	conn, err := db.conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Prep(stmt).Step(); err != nil {
		db.pool.Put(conn)
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{db: db, conn: conn}, nil
}

// Exec runs the statement on a pooled connection, blocking until one is free.
func (db *Database) Exec(query string, encoder Encoder, decoder Decoder) (int, error) {
	conn, err := db.conn(context.Background())
	if err != nil {
		return 0, err
	}
	defer db.pool.Put(conn)
	defer db.observe(query, time.Now())
	return exec(conn, query, encoder, decoder)
}

// Close closes all pooled connections. Subsequent calls are no-ops.
func (db *Database) Close() error {
	db.closeOnce.Do(func() {
		if err := db.pool.Close(); err != nil {
			db.closeErr = fmt.Errorf("close pool: %w", err)
		}
	})
	return db.closeErr
}

func exec(conn *sqlite.Conn, query string, encoder Encoder, decoder Decoder) (int, error) {
	stmt, err := conn.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("prepare %s: %w", query, err)
	}
	if encoder != nil {
		encoder(stmt)
	}
	defer stmt.ClearBindings()

	for rows := 0; ; rows++ {
		row, err := stmt.Step()
		switch code := sqlite.ErrCode(err); {
		case err == nil:
		case code == sqlite.SQLITE_CONSTRAINT_PRIMARYKEY, code == sqlite.SQLITE_CONSTRAINT_UNIQUE:
			return 0, ErrObjectExists
		default:
			return 0, fmt.Errorf("step %d: %w", rows, err)
		}
		if !row {
			return rows, nil
		}
		if decoder != nil && !decoder(stmt) {
			if err := stmt.Reset(); err != nil {
				return rows + 1, fmt.Errorf("statement reset: %w", err)
			}
			return rows + 1, nil
		}
	}
}

// Tx is a transaction holding one pooled connection until released.
type Tx struct {
	db        *Database
	conn      *sqlite.Conn
	committed bool
}

// Commit transaction.
func (tx *Tx) Commit() error {
	if _, err := tx.conn.Prep("COMMIT;").Step(); err != nil {
		return err
	}
	tx.committed = true
	return nil
}

// Release rolls back an uncommitted transaction and returns the connection to
// the pool. Every transaction must be released.
func (tx *Tx) Release() error {
	defer tx.db.pool.Put(tx.conn)
	if tx.committed {
		return nil
	}
	_, err := tx.conn.Prep("ROLLBACK;").Step()
	return err
}

// Exec query.
func (tx *Tx) Exec(query string, encoder Encoder, decoder Decoder) (int, error) {
	defer tx.db.observe(query, time.Now())
	return exec(tx.conn, query, encoder, decoder)
}
