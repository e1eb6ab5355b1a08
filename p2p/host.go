package p2p

import (
	"context"
	"fmt"
	"time"

	lp2plog "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-sharedlog/signing"
)

// DefaultConfig config.
func DefaultConfig() Config {
	return Config{
		Listen:             []string{"/ip4/0.0.0.0/tcp/7613"},
		LowPeers:           40,
		HighPeers:          100,
		GracePeersShutdown: 30 * time.Second,
		ConnectTimeout:     10 * time.Second,
		LogLevel:           "error",
	}
}

// Config for the libp2p host.
type Config struct {
	// see https://lwn.net/Articles/542629/ for reuseport explanation
	DisableReusePort   bool          `mapstructure:"disable-reuseport"`
	Listen             []string      `mapstructure:"listen"`
	Bootnodes          []string      `mapstructure:"bootnodes"`
	LowPeers           int           `mapstructure:"low-peers"`
	HighPeers          int           `mapstructure:"high-peers"`
	GracePeersShutdown time.Duration `mapstructure:"grace-peers-shutdown"`
	ConnectTimeout     time.Duration `mapstructure:"connect-timeout"`
	// LogLevel applies to libp2p internal loggers.
	LogLevel string `mapstructure:"log-level"`
}

// New creates a libp2p host whose peer id is derived from the replica identity,
// and connects to the configured bootnodes. Bootnodes that can't be reached
// are logged and skipped.
func New(ctx context.Context, logger *zap.Logger, cfg Config, identity *signing.EdSigner) (host.Host, error) {
	key, err := crypto.UnmarshalEd25519PrivateKey(identity.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("convert identity: %w", err)
	}
	listen := make([]ma.Multiaddr, 0, len(cfg.Listen))
	for _, addr := range cfg.Listen {
		parsed, err := ma.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("parse listen address %s: %w", addr, err)
		}
		listen = append(listen, parsed)
	}
	bootnodes := make([]peer.AddrInfo, 0, len(cfg.Bootnodes))
	for _, bootnode := range cfg.Bootnodes {
		info, err := peer.AddrInfoFromString(bootnode)
		if err != nil {
			return nil, fmt.Errorf("parse into peer.AddrInfo %s: %w", bootnode, err)
		}
		bootnodes = append(bootnodes, *info)
	}
	lvl, err := lp2plog.LevelFromString(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("libp2p log level: %w", err)
	}
	lp2plog.SetPrimaryCore(logger.Named("libp2p").Core())
	lp2plog.SetAllLoggers(lvl)
	cm, err := connmgr.NewConnManager(cfg.LowPeers, cfg.HighPeers, connmgr.WithGracePeriod(cfg.GracePeersShutdown))
	if err != nil {
		return nil, fmt.Errorf("p2p create conn mgr: %w", err)
	}
	ps, err := pstoremem.NewPeerstore()
	if err != nil {
		return nil, fmt.Errorf("can't create peer store: %w", err)
	}
	var tcpOpts []any
	if cfg.DisableReusePort {
		tcpOpts = append(tcpOpts, tcp.DisableReuseport())
	}
	h, err := libp2p.New(
		libp2p.Identity(key),
		libp2p.ListenAddrs(listen...),
		libp2p.UserAgent("go-sharedlog"),
		libp2p.Transport(tcp.NewTCPTransport, tcpOpts...),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.ConnectionManager(cm),
		libp2p.Peerstore(ps),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize libp2p host: %w", err)
	}
	logger.Info("libp2p host started",
		zap.Stringer("id", h.ID()),
		zap.Any("addresses", h.Addrs()),
	)
	for _, info := range bootnodes {
		cctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err := h.Connect(cctx, info)
		cancel()
		if err != nil {
			logger.Warn("failed to connect to bootnode", zap.Stringer("peer", info.ID), zap.Error(err))
			continue
		}
		// keep bootnodes out of connection manager trimming
		h.ConnManager().Protect(info.ID, "bootnode")
	}
	return h, nil
}
