package leveldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-sharedlog/blocks"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	h, err := s.Put(ctx, []byte("entry"))
	require.NoError(t, err)
	has, err := s.Has(ctx, h)
	require.NoError(t, err)
	require.True(t, has)

	_, err = Open(dir)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	b, err := s.Get(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []byte("entry"), b)

	require.NoError(t, s.Remove(ctx, h))
	_, err = s.Get(ctx, h)
	require.ErrorIs(t, err, blocks.ErrNotFound)
}

func TestInMemory(t *testing.T) {
	s := OpenInMemory()
	t.Cleanup(func() { s.Close() })
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, blocks.ErrNotFound)
}
