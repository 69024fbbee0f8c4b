package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"actflow/internal/logging"
	"actflow/internal/metrics"
	"actflow/internal/port"
)

// ResilientConfig tunes a ResilientClient. Zero values pick defaults.
type ResilientConfig struct {
	Name              string
	RequestsPerMinute int
	MaxRetries        int
	RetryDelay        time.Duration
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// ResilientClient throttles, retries and circuit-breaks a single provider.
// Rate-limit answers are not retried here; they are surfaced so that a
// FallbackClient can move to the next provider.
type ResilientClient struct {
	name     string
	next     port.LLMClient
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*port.CompletionResponse]
	attempts uint
	delay    time.Duration
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger
}

// NewResilientClient wraps next.
func NewResilientClient(next port.LLMClient, cfg ResilientConfig, m *metrics.PipelineMetrics, logger *slog.Logger) *ResilientClient {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	breaker := gobreaker.NewCircuitBreaker[*port.CompletionResponse](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm.ResilientClient: circuit state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})

	return &ResilientClient{
		name:     cfg.Name,
		next:     next,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  breaker,
		attempts: uint(cfg.MaxRetries) + 1,
		delay:    cfg.RetryDelay,
		metrics:  m,
		logger:   logger,
	}
}

func (c *ResilientClient) Complete(ctx context.Context, req *port.CompletionRequest) (*port.CompletionResponse, error) {
	var resp *port.CompletionResponse
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			out, err := c.breaker.Execute(func() (*port.CompletionResponse, error) {
				return c.next.Complete(ctx, req)
			})
			c.metrics.ObserveLLMCall(c.name, err)
			if err != nil {
				return err
			}
			resp = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("llm.ResilientClient: retrying", "provider", c.name, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if resp.Provider == "" {
		resp.Provider = c.name
	}
	return resp, nil
}

// IsCircuitOpen reports whether err was produced by an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || IsCircuitOpen(err) {
		return false
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// countsAsOutage decides which failures trip the breaker: transport errors
// and 5xx do, client errors and rate limits do not.
func countsAsOutage(err error) bool {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
