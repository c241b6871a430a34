// Package transport sends HTTP requests with retry on transport failures.
//
// Only failures to obtain a response (connection reset, DNS failure, dial
// timeout) are retried. Any response, including 4xx and 5xx, is returned to
// the caller on the attempt that produced it.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/internal/metrics"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"go.uber.org/zap"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Executor retries transport failures of a single request with capped exponential backoff.
type Executor struct {
	doer    Doer
	policy  RetryPolicy
	sleep   Sleeper
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) ExecutorOption {
	return func(e *Executor) {
		e.policy = policy
	}
}

// WithSleeper replaces the timer based sleep between attempts.
func WithSleeper(sleep Sleeper) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithExecutorLogger sets the logger used to report retries.
func WithExecutorLogger(l *logger.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l.Named("transport")
	}
}

// WithExecutorMetrics sets the collectors updated on every attempt.
func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an Executor sending through doer. A nil doer uses http.DefaultClient.
func NewExecutor(doer Doer, opts ...ExecutorOption) *Executor {
	if doer == nil {
		doer = http.DefaultClient
	}

	e := &Executor{
		doer:    doer,
		policy:  DefaultRetryPolicy,
		sleep:   SleepContext,
		logger:  logger.NewNopLogger(),
		metrics: nil,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.policy.MaxAttempts < 1 {
		e.policy.MaxAttempts = 1
	}

	return e
}

// Policy returns the retry policy in effect.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Execute sends req, retrying transport failures up to the policy's attempt budget.
//
// The request must be replayable: a request carrying a body must have GetBody set
// (http.NewRequest does this for bytes, strings and bytes.Buffer readers), otherwise
// an ErrCodeInternal error is returned without sending anything. Once the attempts
// are exhausted the last transport error is returned wrapped in ErrCodeTimeout.
func (e *Executor) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeInternal, "nil request")
	}

	if hasBody(req) && req.GetBody == nil {
		return nil, errors.Newf(errors.ErrCodeInternal, "request %s %s cannot be cloned for retry", req.Method, req.URL.Redacted())
	}

	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		attemptReq, err := cloneRequest(ctx, req)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to clone request", err)
		}

		e.metrics.RequestAttempted()

		resp, err := e.doer.Do(attemptReq)
		if err == nil {
			return resp, nil
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "request cancelled", ctx.Err())
		}

		if attempt == e.policy.MaxAttempts {
			break
		}

		delay := Delay(attempt, e.policy)
		e.logger.Warn("Request failed, retrying",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		e.metrics.RequestRetried()

		if err := e.sleep(ctx, delay); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "request cancelled while backing off", err)
		}
	}

	e.logger.Error("Request attempts exhausted",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("attempts", e.policy.MaxAttempts),
		zap.Error(lastErr),
	)

	return nil, errors.Wrapf(errors.ErrCodeTimeout, lastErr, "request failed after %d attempts", e.policy.MaxAttempts)
}

// SleepContext waits for d, returning ctx.Err() if ctx finishes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if !hasBody(req) {
		return clone, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body

	return clone, nil
}
