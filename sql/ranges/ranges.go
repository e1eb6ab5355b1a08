// Package ranges persists replication ranges.
package ranges

import (
	"context"
	"fmt"
	"time"

	"github.com/spacemeshos/go-sharedlog/ranges"
	"github.com/spacemeshos/go-sharedlog/sql"
)

func resolution[T ranges.Coordinate]() int {
	return ranges.Numbers[T]{}.Bits()
}

// Add inserts the range or replaces the range with the same id.
func Add[T ranges.Coordinate](db sql.Executor, r ranges.ReplicationRange[T]) error {
	if _, err := db.Exec(`insert into ranges (id, resolution, peer, start, width, mode, timestamp)
	values (?1, ?2, ?3, ?4, ?5, ?6, ?7)
	on conflict(id) do update set
		peer = ?3, start = ?4, width = ?5, mode = ?6, timestamp = ?7;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, r.ID)
			stmt.BindInt64(2, int64(resolution[T]()))
			stmt.BindText(3, r.Peer)
			stmt.BindInt64(4, int64(r.Offset))
			stmt.BindInt64(5, int64(r.Width))
			stmt.BindInt64(6, int64(r.Mode))
			stmt.BindInt64(7, r.Timestamp.UnixNano())
		}, nil); err != nil {
		return fmt.Errorf("insert range %x: %w", r.ID, err)
	}
	return nil
}

// Delete removes the range.
func Delete(db sql.Executor, id []byte) error {
	if _, err := db.Exec("delete from ranges where id = ?1;", func(stmt *sql.Statement) {
		stmt.BindBytes(1, id)
	}, nil); err != nil {
		return fmt.Errorf("delete range %x: %w", id, err)
	}
	return nil
}

// DeletePeer removes all ranges of the peer.
func DeletePeer[T ranges.Coordinate](db sql.Executor, peer string) error {
	if _, err := db.Exec("delete from ranges where resolution = ?1 and peer = ?2;", func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(resolution[T]()))
		stmt.BindText(2, peer)
	}, nil); err != nil {
		return fmt.Errorf("delete ranges of %s: %w", peer, err)
	}
	return nil
}

func decode[T ranges.Coordinate](stmt *sql.Statement) ranges.ReplicationRange[T] {
	r := ranges.ReplicationRange[T]{
		ID:        make([]byte, stmt.ColumnLen(0)),
		Peer:      stmt.ColumnText(1),
		Offset:    T(stmt.ColumnInt64(2)),
		Width:     T(stmt.ColumnInt64(3)),
		Mode:      ranges.Mode(stmt.ColumnInt64(4)),
		Timestamp: time.Unix(0, stmt.ColumnInt64(5)).UTC(),
	}
	stmt.ColumnBytes(0, r.ID)
	return r
}

// All returns all ranges of resolution T.
func All[T ranges.Coordinate](db sql.Executor) (rst []ranges.ReplicationRange[T], err error) {
	if _, err := db.Exec(`select id, peer, start, width, mode, timestamp from ranges
	where resolution = ?1 order by start, id;`, func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(resolution[T]()))
	}, func(stmt *sql.Statement) bool {
		rst = append(rst, decode[T](stmt))
		return true
	}); err != nil {
		return nil, fmt.Errorf("select ranges: %w", err)
	}
	return rst, nil
}

// ByPeer returns the ranges of one peer.
func ByPeer[T ranges.Coordinate](db sql.Executor, peer string) (rst []ranges.ReplicationRange[T], err error) {
	if _, err := db.Exec(`select id, peer, start, width, mode, timestamp from ranges
	where resolution = ?1 and peer = ?2 order by start, id;`, func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(resolution[T]()))
		stmt.BindText(2, peer)
	}, func(stmt *sql.Statement) bool {
		rst = append(rst, decode[T](stmt))
		return true
	}); err != nil {
		return nil, fmt.Errorf("select ranges of %s: %w", peer, err)
	}
	return rst, nil
}

// Store implements ranges.Store.
type Store[T ranges.Coordinate] struct {
	db *sql.Database
}

// NewStore returns a range store for resolution T.
func NewStore[T ranges.Coordinate](db *sql.Database) *Store[T] {
	return &Store[T]{db: db}
}

// Update implements ranges.Store. Removals and additions are applied in one
// immediate transaction.
func (s *Store[T]) Update(ctx context.Context, added []ranges.ReplicationRange[T], removed [][]byte) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, id := range removed {
			if err := Delete(tx, id); err != nil {
				return err
			}
		}
		for _, r := range added {
			if err := Add(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// All implements ranges.Store.
func (s *Store[T]) All(_ context.Context) ([]ranges.ReplicationRange[T], error) {
	return All[T](s.db)
}
