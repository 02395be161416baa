package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/telemetry"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultMaxRetryDelay  = 8 * time.Second
	defaultAttemptTimeout = 60 * time.Second
)

// Client adapts a Provider into an Extractor with bounded retries, a hard
// per-attempt timeout and output validation.
type Client struct {
	provider       Provider
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAttempts sets the total number of provider calls for transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay; later delays double.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithMaxRetryDelay caps the backoff delay.
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithAttemptTimeout bounds each provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithSleep replaces the backoff sleeper, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient wraps provider. A nil provider behaves like Placeholder.
func NewClient(provider Provider, opts ...Option) *Client {
	if provider == nil {
		provider = Placeholder{}
	}
	c := &Client{
		provider:       provider,
		maxAttempts:    defaultMaxAttempts,
		baseDelay:      defaultRetryBaseDelay,
		maxDelay:       defaultMaxRetryDelay,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderName reports the wrapped provider.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Extract implements Extractor. The returned error always wraps either
// ErrUnavailable or ErrRejected.
func (c *Client) Extract(ctx context.Context, in Input) (Result, error) {
	if len(in.Data) == 0 {
		return Result{}, Reject("empty document")
	}
	if !in.DocumentType.Valid() {
		return Result{}, Reject(fmt.Sprintf("unsupported document type %q", in.DocumentType))
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := c.attempt(ctx, in)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrRejected) {
			return Result{}, err
		}
		lastErr = err

		fields := c.logFields(ctx, in, attempt)
		fields["error"] = err.Error()
		if attempt == c.maxAttempts || ctx.Err() != nil {
			telemetry.Warn("extraction.attempt_failed", fields)
			break
		}

		delay := c.backoff(attempt)
		fields["retry_in_ms"] = delay.Milliseconds()
		telemetry.Warn("extraction.retry", fields)
		metrics.IncExtractionRetry()
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if errors.Is(lastErr, ErrUnavailable) {
		return Result{}, lastErr
	}
	return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) attempt(ctx context.Context, in Input) (res Result, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: provider panic: %v", ErrUnavailable, rec)
		}
	}()

	raw, err := c.provider.Extract(attemptCtx, in)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return Result{}, err
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %s timed out after %s", ErrUnavailable, c.provider.Name(), c.attemptTimeout)
		}
		return Result{}, err
	}
	return Parse(raw)
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func (c *Client) logFields(ctx context.Context, in Input, attempt int) map[string]any {
	return map[string]any{
		"request_id":    telemetry.RequestID(ctx),
		"document_id":   in.DocumentID,
		"document_type": string(in.DocumentType),
		"provider":      c.provider.Name(),
		"attempt":       attempt,
		"max_attempts":  c.maxAttempts,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Extractor = (*Client)(nil)
