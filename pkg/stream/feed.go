package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"go.uber.org/zap"
)

const (
	// DefaultBuffer is the capacity of a Feed's message channel.
	DefaultBuffer = 256
	// DefaultMaxConsecutiveParseErrors is how many undecodable frames in a row end a session.
	DefaultMaxConsecutiveParseErrors = 5

	defaultReconnectInitial = 250 * time.Millisecond
	defaultReconnectMax     = 30 * time.Second
)

// Feed keeps an activity subscription alive across connection losses.
type Feed struct {
	config         Config
	buffer         int
	onError        func(error)
	maxParseErrors int
	newBackOff     func() backoff.BackOff
	logger         *logger.Logger

	messages chan ActivityMessage
	cancel   context.CancelFunc
	done     chan struct{}
	sessions atomic.Uint64
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithBuffer sets the capacity of the message channel. The feed stops reading
// from the socket while the channel is full, and pings are only answered while
// reading, so a consumer that stalls long enough can make the server drop the
// session. The feed then reconnects.
func WithBuffer(size int) FeedOption {
	return func(f *Feed) {
		if size >= 0 {
			f.buffer = size
		}
	}
}

// WithErrorHandler receives every error the feed recovers from. It is called
// from the feed goroutine and must not block.
func WithErrorHandler(handler func(error)) FeedOption {
	return func(f *Feed) {
		f.onError = handler
	}
}

// WithMaxConsecutiveParseErrors sets how many undecodable frames in a row
// force a reconnect. Zero or less never forces one.
func WithMaxConsecutiveParseErrors(n int) FeedOption {
	return func(f *Feed) {
		f.maxParseErrors = n
	}
}

// WithReconnectBackOff replaces the delay policy between sessions.
func WithReconnectBackOff(factory func() backoff.BackOff) FeedOption {
	return func(f *Feed) {
		if factory != nil {
			f.newBackOff = factory
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultReconnectInitial
	b.MaxInterval = defaultReconnectMax
	b.MaxElapsedTime = 0

	return b
}

// Subscribe starts a feed that connects, subscribes and streams until ctx is
// cancelled or Close is called. Each session dials once; the delay between
// sessions grows exponentially and resets after every successful handshake.
func Subscribe(ctx context.Context, cfg Config, opts ...FeedOption) *Feed {
	cfg = cfg.withDefaults()
	// reconnect pacing belongs to the feed's backoff
	cfg.RetryPolicy = transport.RetryPolicy{
		MaxAttempts: 1,
		BaseDelay:   cfg.RetryPolicy.BaseDelay,
		MaxDelay:    cfg.RetryPolicy.MaxDelay,
	}

	f := &Feed{
		config:         cfg,
		buffer:         DefaultBuffer,
		onError:        nil,
		maxParseErrors: DefaultMaxConsecutiveParseErrors,
		newBackOff:     defaultBackOff,
		logger:         cfg.Logger.Named("feed"),
		messages:       nil,
		cancel:         nil,
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.messages = make(chan ActivityMessage, f.buffer)

	ctx, f.cancel = context.WithCancel(ctx)
	go f.run(ctx)

	return f
}

// Messages returns the channel of decoded messages. It is closed when the feed stops.
func (f *Feed) Messages() <-chan ActivityMessage {
	return f.messages
}

// Done is closed once the feed goroutine has exited.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Sessions returns the number of handshakes completed so far. Sequence numbers
// restart whenever it changes.
func (f *Feed) Sessions() uint64 {
	return f.sessions.Load()
}

// Close stops the feed, closes the socket and waits for the goroutine to exit.
func (f *Feed) Close() error {
	f.cancel()
	<-f.done

	return nil
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	defer close(f.messages)

	if err := f.config.validate(); err != nil {
		f.report(err)

		return
	}

	policy := f.newBackOff()
	policy.Reset()

	for {
		session, err := Connect(ctx, f.config)
		if err == nil {
			f.sessions.Add(1)
			policy.Reset()

			err = f.stream(ctx, session)
			_ = session.Close()
		}

		if ctx.Err() != nil {
			return
		}

		f.report(err)

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			delay = defaultReconnectMax
		}

		f.logger.Info("Reconnecting to account activity",
			zap.String("account_id", f.config.AccountID),
			zap.Duration("delay", delay),
		)

		if err := transport.SleepContext(ctx, delay); err != nil {
			return
		}

		f.config.Metrics.StreamReconnected()
	}
}

func (f *Feed) stream(ctx context.Context, session *Session) error {
	consecutive := 0

	for {
		msg, err := session.Next(ctx)
		if err != nil {
			if IsSessionClosed(err) {
				return err
			}

			consecutive++
			if f.maxParseErrors > 0 && consecutive >= f.maxParseErrors {
				return errors.Wrapf(errors.ErrCodeParse, err,
					"%d consecutive frames failed to decode, reconnecting", consecutive)
			}

			f.report(err)

			continue
		}

		consecutive = 0

		select {
		case f.messages <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Feed) report(err error) {
	f.logger.Warn("Account activity error",
		zap.String("account_id", f.config.AccountID),
		zap.String("kind", errors.GetCode(err).String()),
		zap.Error(err),
	)

	if f.onError != nil {
		f.onError(err)
	}
}
