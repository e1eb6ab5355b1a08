// Package blocks stores encoded entries in the blocks table.
package blocks

import (
	"context"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/sql"
)

// Add stores data under its content address and returns the address.
// Adding the same data twice is not an error.
func Add(db sql.Executor, data []byte) (string, error) {
	h := hash.Multihash(data)
	if _, err := db.Exec("insert into blocks (hash, data) values (?1, ?2) on conflict do nothing;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, h)
			stmt.BindBytes(2, data)
		}, nil); err != nil {
		return "", fmt.Errorf("insert %s: %w", h, err)
	}
	return h, nil
}

// Has returns true if the block is stored.
func Has(db sql.Executor, h string) (bool, error) {
	rows, err := db.Exec("select 1 from blocks where hash = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, h)
		}, nil,
	)
	if err != nil {
		return false, fmt.Errorf("has block %s: %w", h, err)
	}
	return rows > 0, nil
}

// Get returns the block data.
func Get(db sql.Executor, h string) (rst []byte, err error) {
	if rows, err := db.Exec("select data from blocks where hash = ?1;", func(stmt *sql.Statement) {
		stmt.BindText(1, h)
	}, func(stmt *sql.Statement) bool {
		rst = make([]byte, stmt.ColumnLen(0))
		stmt.ColumnBytes(0, rst)
		return true
	}); err != nil {
		return nil, fmt.Errorf("get %s: %w", h, err)
	} else if rows == 0 {
		return nil, fmt.Errorf("%w block %s", sql.ErrNotFound, h)
	}
	return rst, nil
}

// Delete removes the block.
func Delete(db sql.Executor, h string) error {
	if _, err := db.Exec("delete from blocks where hash = ?1;", func(stmt *sql.Statement) {
		stmt.BindText(1, h)
	}, nil); err != nil {
		return fmt.Errorf("delete %s: %w", h, err)
	}
	return nil
}

// Count returns the number of stored blocks.
func Count(db sql.Executor) (n int, err error) {
	if _, err := db.Exec("select count(*) from blocks;", nil, func(stmt *sql.Statement) bool {
		n = stmt.ColumnInt(0)
		return true
	}); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

// Store adapts the blocks table to blocks.Store.
type Store struct {
	db sql.Executor
}

// NewStore returns a block store on top of db.
func NewStore(db sql.Executor) *Store {
	return &Store{db: db}
}

var (
	_ blocks.Store   = (*Store)(nil)
	_ blocks.Remover = (*Store)(nil)
)

// Get implements blocks.Store.
func (s *Store) Get(_ context.Context, h string) ([]byte, error) {
	data, err := Get(s.db, h)
	if errors.Is(err, sql.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", blocks.ErrNotFound, h)
	}
	return data, err
}

// Put implements blocks.Store.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	return Add(s.db, data)
}

// Has implements blocks.Store.
func (s *Store) Has(_ context.Context, h string) (bool, error) {
	return Has(s.db, h)
}

// Remove implements blocks.Remover.
func (s *Store) Remove(_ context.Context, h string) error {
	return Delete(s.db, h)
}
