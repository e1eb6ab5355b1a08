// Package server delivers sync messages over libp2p streams. Each stream
// carries a single varint length-prefixed message.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-sharedlog/log"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

// ErrNotConnected is returned when peer is not connected.
var ErrNotConnected = errors.New("peer is not connected")

type Config struct {
	Protocol            string        `mapstructure:"protocol"`
	Timeout             time.Duration `mapstructure:"timeout"`
	QueueSize           int           `mapstructure:"queue-size"`
	RequestsPerInterval int           `mapstructure:"requests-per-interval"`
	Interval            time.Duration `mapstructure:"interval"`
	MessageSizeLimit    int           `mapstructure:"message-size-limit"`
}

func DefaultConfig() Config {
	return Config{
		Protocol:            "/sharedlog/sync/1.0.0",
		Timeout:             10 * time.Second,
		QueueSize:           1000,
		RequestsPerInterval: 100,
		Interval:            time.Second,
		MessageSizeLimit:    80 << 20,
	}
}

// Opt is a type to configure a server.
type Opt func(s *Server)

// WithLogger configures logger for the server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithConfig replaces the default config.
func WithConfig(cfg Config) Opt {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithMetrics will enable metrics collection in the server.
func WithMetrics() Opt {
	return func(s *Server) {
		s.metrics = newTracker(s.cfg.Protocol)
	}
}

// Handler is called for every received message.
type Handler func(ctx context.Context, from p2p.Peer, msg wire.Message) error

// Server receives messages for the handler and sends messages to peers.
type Server struct {
	logger  *zap.Logger
	cfg     Config
	handler Handler
	h       host.Host

	metrics *tracker // metrics can be nil
}

var _ sync2.Transport = (*Server)(nil)

// New server for the handler.
func New(h host.Host, handler Handler, opts ...Opt) *Server {
	srv := &Server{
		logger:  zap.NewNop(),
		cfg:     DefaultConfig(),
		handler: handler,
		h:       h,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

type request struct {
	stream   network.Stream
	received time.Time
}

// Run accepts streams until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	limit := rate.NewLimiter(
		rate.Every(s.cfg.Interval/time.Duration(s.cfg.RequestsPerInterval)),
		s.cfg.RequestsPerInterval,
	)
	queue := make(chan request, s.cfg.QueueSize)
	if s.metrics != nil {
		s.metrics.targetQueue.Set(float64(s.cfg.QueueSize))
		s.metrics.targetRps.Set(float64(limit.Limit()))
	}
	s.h.SetStreamHandler(protocol.ID(s.cfg.Protocol), func(stream network.Stream) {
		select {
		case queue <- request{stream: stream, received: time.Now()}:
			if s.metrics != nil {
				s.metrics.queue.Set(float64(len(queue)))
				s.metrics.accepted.Inc()
			}
		default:
			if s.metrics != nil {
				s.metrics.dropped.Inc()
			}
			stream.Reset()
		}
	})
	defer s.h.RemoveStreamHandler(protocol.ID(s.cfg.Protocol))

	var eg errgroup.Group
	eg.SetLimit(s.cfg.QueueSize)
	for {
		select {
		case <-ctx.Done():
			eg.Wait()
			return nil
		case req := <-queue:
			if err := limit.Wait(ctx); err != nil {
				req.stream.Reset()
				eg.Wait()
				return nil
			}
			eg.Go(func() error {
				ok := s.queueHandler(ctx, req.stream)
				if s.metrics != nil {
					s.metrics.serverLatency.Observe(time.Since(req.received).Seconds())
					if ok {
						s.metrics.completed.Inc()
					} else {
						s.metrics.failed.Inc()
					}
				}
				return nil
			})
		}
	}
}

func (s *Server) queueHandler(ctx context.Context, stream network.Stream) bool {
	defer stream.Close()
	from := stream.Conn().RemotePeer()
	if err := stream.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		s.logger.Debug("failed to set stream deadline", zap.Stringer("peer", from), zap.Error(err))
	}
	rd := msgio.NewVarintReaderSize(stream, s.cfg.MessageSizeLimit)
	buf, err := rd.ReadMsg()
	if err != nil {
		s.logger.Debug("error reading message",
			zap.Stringer("peer", from),
			zap.Stringer("remote_multiaddr", stream.Conn().RemoteMultiaddr()),
			zap.Error(err),
		)
		return false
	}
	msg, err := wire.Decode(buf)
	rd.ReleaseMsg(buf)
	if err != nil {
		s.logger.Debug("invalid message", zap.Stringer("peer", from), zap.Error(err))
		return false
	}
	start := time.Now()
	ctx = log.WithNewRequestID(ctx)
	if err := s.handler(ctx, from, msg); err != nil {
		s.logger.Debug("handler reported error",
			log.ZContext(ctx),
			zap.Stringer("peer", from),
			zap.Stringer("type", msg.Type()),
			zap.Error(err),
		)
		return false
	}
	s.logger.Debug("handler execution time",
		log.ZContext(ctx),
		zap.Stringer("peer", from),
		zap.Stringer("type", msg.Type()),
		zap.Duration("duration", time.Since(start)),
	)
	return true
}

// Send delivers the message to every peer in opts.To over existing
// connections. Each peer gets up to Redundancy attempts.
func (s *Server) Send(ctx context.Context, msg wire.Message, opts sync2.SendOpts) error {
	buf, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if len(buf) > s.cfg.MessageSizeLimit {
		return fmt.Errorf("message length (%d) is longer than limit %d", len(buf), s.cfg.MessageSizeLimit)
	}
	var errs []error
	for _, pid := range opts.To {
		for attempt := range max(opts.Redundancy, 1) {
			start := time.Now()
			err = s.send(ctx, pid, buf)
			s.observe(time.Since(start), err)
			if err == nil || errors.Is(err, ErrNotConnected) || ctx.Err() != nil {
				break
			}
			s.logger.Debug("failed to send message",
				zap.Stringer("peer", pid),
				zap.Stringer("type", msg.Type()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", msg.Type(), pid, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) send(ctx context.Context, pid p2p.Peer, buf []byte) error {
	if s.h.Network().Connectedness(pid) != network.Connected {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	stream, err := s.h.NewStream(network.WithNoDial(ctx, "existing connection"), pid, protocol.ID(s.cfg.Protocol))
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := stream.SetDeadline(deadline); err != nil {
		s.logger.Debug("failed to set stream deadline", zap.Stringer("peer", pid), zap.Error(err))
	}
	if err := msgio.NewVarintWriter(stream).WriteMsg(buf); err != nil {
		stream.Reset()
		return fmt.Errorf("address %s: %w", stream.Conn().RemoteMultiaddr(), err)
	}
	return stream.Close()
}

func (s *Server) observe(took time.Duration, err error) {
	switch {
	case s.metrics == nil:
	case err != nil:
		s.metrics.clientFailed.Inc()
		s.metrics.clientLatencyFailure.Observe(took.Seconds())
	default:
		s.metrics.clientSucceeded.Inc()
		s.metrics.clientLatency.Observe(took.Seconds())
	}
}

// NumAcceptedRequests returns the number of accepted requests for this server.
// It is used for testing.
func (s *Server) NumAcceptedRequests() int {
	if s.metrics == nil {
		return -1
	}
	m := &dto.Metric{}
	if err := s.metrics.accepted.Write(m); err != nil {
		panic("failed to get metric: " + err.Error())
	}
	return int(m.Counter.GetValue())
}
