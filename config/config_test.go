package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/ranges"
)

func writeConfig(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	require.Equal(t, 333, cfg.Sync.MinSyncIbltSize)
	require.Equal(t, 1000, cfg.Sync.MaxSyncWithSimpleMethod)
	require.Equal(t, 10*time.Second, cfg.Sync.OutgoingTimeout)
	require.Equal(t, 20*time.Second, cfg.Sync.IngoingTimeout)
	require.Equal(t, ranges.U64, cfg.Ranges.Resolution)
	require.Equal(t, 4096, cfg.Log.EntryCacheSize)
	require.Equal(t, 1000, cfg.Server.QueueSize)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[sync]
min-sync-iblt-size = 100
outgoing-timeout = "15s"

[ranges]
resolution = "u32"
role-age = "2m"

[server]
queue-size = 10

[p2p]
listen = "/ip4/127.0.0.1/tcp/7000,/ip4/127.0.0.1/udp/7000/quic-v1"

[storage]
backend = "leveldb"

[logging]
rateless = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.Sync.MinSyncIbltSize = 100
	expected.Sync.OutgoingTimeout = 15 * time.Second
	expected.Ranges.Resolution = ranges.U32
	expected.Ranges.RoleAge = 2 * time.Minute
	expected.Server.QueueSize = 10
	expected.P2P.Listen = []string{"/ip4/127.0.0.1/tcp/7000", "/ip4/127.0.0.1/udp/7000/quic-v1"}
	expected.Storage.Backend = LevelDBBackend
	expected.Logging.RatelessLevel = "debug"
	if diff := cmp.Diff(expected, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/sharedlog.yaml", []byte(`
sync:
  max-symbol-batch: 64
p2p:
  bootnodes: "/ip4/10.0.0.1/tcp/7613/p2p/12D3KooWJv7pA3GLjBNjTT5RWaHZuqT1vbm8z2KoNuzjnhSiZgDz"
`), 0o600))
	cfg, err := LoadFs(fs, "/etc/sharedlog.yaml")
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Sync.MaxSymbolBatch)
	require.Len(t, cfg.P2P.Bootnodes, 1)

	cfg, err = LoadFs(fs, "/etc/missing.yaml")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		content string
	}{
		{"resolution", "[ranges]\nresolution = \"u16\"\n"},
		{"backend", "[storage]\nbackend = \"bolt\"\n"},
		{"iblt size", "[sync]\nmin-sync-iblt-size = 0\n"},
		{"syntax", "[sync\n"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.toml", tc.content))
			require.Error(t, err)
		})
	}
}

func TestNamedLogger(t *testing.T) {
	cfg := DefaultLoggerConfig()
	cfg.RatelessLevel = "debug"
	cfg.ServerLevel = "error"

	core, logs := observer.New(zapcore.DebugLevel)
	root := zap.New(core)

	cfg.Named(root, "rateless").Debug("visible")
	cfg.Named(root, "server").Warn("hidden")
	cfg.Named(root, "sync").Debug("hidden")
	cfg.Named(root, "sync").Info("visible")
	cfg.Named(root, "unknown").Info("visible")

	require.Equal(t, 3, logs.Len())
	for _, entry := range logs.All() {
		require.Equal(t, "visible", entry.Message)
	}
	require.Equal(t, "rateless", logs.All()[0].LoggerName)
}

func TestBuildLogger(t *testing.T) {
	for _, enc := range []LogEncoder{ConsoleLogEncoder, JSONLogEncoder} {
		cfg := DefaultLoggerConfig()
		cfg.Encoder = enc
		logger, err := cfg.Build()
		require.NoError(t, err)
		require.NotNil(t, logger)
	}
}

func TestOpenStorage(t *testing.T) {
	for _, backend := range []string{MemoryBackend, LevelDBBackend, SQLiteBackend} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultStorageConfig()
			cfg.Backend = backend
			cfg.DataDir = t.TempDir()
			st, err := cfg.Open(zaptest.NewLogger(t))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, st.Close()) })
			if backend == SQLiteBackend {
				require.NotNil(t, st.DB)
			} else {
				require.Nil(t, st.DB)
			}

			ctx := context.Background()
			h, err := st.Blocks.Put(ctx, []byte("block"))
			require.NoError(t, err)
			data, err := st.Blocks.Get(ctx, h)
			require.NoError(t, err)
			require.Equal(t, []byte("block"), data)
			_, err = st.Blocks.Get(ctx, "missing")
			require.ErrorIs(t, err, blocks.ErrNotFound)
		})
	}
}

func TestOpenStorageUnknown(t *testing.T) {
	cfg := DefaultStorageConfig()
	cfg.Backend = "bolt"
	_, err := cfg.Open(zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestStorageIdentity(t *testing.T) {
	cfg := DefaultStorageConfig()
	cfg.DataDir = t.TempDir()
	first, err := cfg.Identity()
	require.NoError(t, err)
	second, err := cfg.Identity()
	require.NoError(t, err)
	require.True(t, first.PublicKey().Equals(second.PublicKey()))
}
