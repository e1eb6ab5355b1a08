package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushConfig configures pushing metrics to a prometheus push gateway.
type PushConfig struct {
	URL        string        `mapstructure:"url"`
	Period     time.Duration `mapstructure:"period"`
	Job        string        `mapstructure:"job"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry-delay"`
}

// A wrapper around zap.Logger to make it compatible with
// retryablehttp.LeveledLogger interface.
type retryableHttpLogger struct {
	inner *zap.Logger
}

func (r retryableHttpLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHttpLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHttpLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHttpLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

// Push pushes the default registry every period until ctx is done.
func Push(ctx context.Context, logger *zap.Logger, clock clockwork.Clock, cfg PushConfig, peerID string) {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = cfg.RetryDelay
	client.RetryWaitMax = 2 * cfg.RetryDelay
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.Logger = retryableHttpLogger{inner: logger.Named("push")}
	client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		logger.Debug("push gateway response",
			zap.Stringer("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode),
		)
	}

	pusher := push.New(cfg.URL, cfg.Job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("peer", peerID).
		Client(client.StandardClient())
	ticker := clock.NewTicker(cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
		}
	}
}
