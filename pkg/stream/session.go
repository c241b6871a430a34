// Package stream implements the account activity websocket protocol.
//
// Two modes are offered. Connect returns a Session that the caller drives with
// Next or Messages and that ends at the first connection loss. Subscribe
// returns a Feed that reconnects on its own and delivers decoded messages on a
// bounded channel.
package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/internal/metrics"
	"github.com/rxtech-lab/clearstreet-go/pkg/auth"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"go.uber.org/zap"
)

const (
	// DefaultURL is the production activity endpoint.
	DefaultURL = "wss://api.clearstreet.io/studio/v2/ws"

	writeWait        = 10 * time.Second
	handshakeTimeout = 15 * time.Second
	maxRejectBody    = 4096
)

// ErrSessionClosed is in the chain of every error that ends a Session.
var ErrSessionClosed = stderrors.New("activity session closed")

// Dialer opens the websocket. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Config describes one activity subscription.
type Config struct {
	URL         string
	AccountID   string
	TokenSource auth.TokenSource
	// Dialer defaults to a websocket.Dialer with a 15s handshake timeout.
	Dialer Dialer
	// RetryPolicy bounds dial attempts. The zero value means transport.DefaultRetryPolicy.
	RetryPolicy transport.RetryPolicy
	// IdleTimeout ends the session when no frame or ping arrives in time. Zero disables it.
	IdleTimeout time.Duration
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}

	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}

	if c.RetryPolicy.MaxAttempts < 1 {
		c.RetryPolicy = transport.DefaultRetryPolicy
	}

	if c.Logger == nil {
		c.Logger = logger.NewNopLogger()
	}

	return c
}

func (c Config) validate() error {
	if c.AccountID == "" {
		return errors.New(errors.ErrCodeInternal, "account id is required for an activity subscription")
	}

	if c.TokenSource == nil {
		return errors.New(errors.ErrCodeInternal, "token source is required for an activity subscription")
	}

	return nil
}

// Session is one handshaken websocket connection.
type Session struct {
	conn    *websocket.Conn
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Connect dials the activity endpoint and sends the subscribe request.
// It returns as soon as the request is written; the acknowledgement arrives
// as the first SubscribeAck message.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger.Named("stream")

	conn, err := dial(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	session := &Session{
		conn:    conn,
		config:  cfg,
		logger:  log,
		metrics: cfg.Metrics,
	}
	conn.SetPingHandler(session.handlePing)

	if err := session.handshake(ctx); err != nil {
		_ = session.Close()

		return nil, err
	}

	log.Debug("Subscribed to account activity",
		zap.String("account_id", cfg.AccountID),
		zap.String("url", cfg.URL),
	)

	return session, nil
}

func dial(ctx context.Context, cfg Config, log *logger.Logger) (*websocket.Conn, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.RetryPolicy.MaxAttempts; attempt++ {
		conn, resp, err := cfg.Dialer.DialContext(ctx, cfg.URL, nil)
		if err == nil {
			return conn, nil
		}

		if resp != nil {
			return nil, rejectedUpgrade(resp)
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "activity stream dial cancelled", ctx.Err())
		}

		if attempt == cfg.RetryPolicy.MaxAttempts {
			break
		}

		delay := transport.Delay(attempt, cfg.RetryPolicy)
		log.Debug("Activity stream dial failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := transport.SleepContext(ctx, delay); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "activity stream dial cancelled", err)
		}
	}

	return nil, errors.Wrapf(errors.ErrCodeTimeout, lastErr,
		"activity stream dial failed after %d attempts", cfg.RetryPolicy.MaxAttempts)
}

func rejectedUpgrade(resp *http.Response) error {
	var body []byte

	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxRejectBody))
		_ = resp.Body.Close()
	}

	return errors.NewHTTPError(resp.StatusCode, string(body))
}

func (s *Session) handshake(ctx context.Context) error {
	token, err := s.config.TokenSource.Token(ctx)
	if err != nil {
		return err
	}

	frame, err := encodeSubscribeRequest(NewSubscribeRequest(token, s.config.AccountID))
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	_ = s.conn.SetWriteDeadline(deadline)

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return connectionLost("failed to send subscribe request", err)
	}

	_ = s.conn.SetWriteDeadline(time.Time{})

	return nil
}

func (s *Session) handlePing(appData string) error {
	s.extendDeadline()

	err := s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	if err == websocket.ErrCloseSent {
		return nil
	}

	return err
}

func (s *Session) extendDeadline() {
	if s.config.IdleTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
	}
}

// Next blocks until the next frame arrives and returns it decoded.
//
// A frame that fails to decode is returned as an ErrCodeParse error and the
// session stays usable. Any other error is terminal: the session is closed and
// IsSessionClosed reports true. Cancelling ctx while Next is blocked closes the
// session.
func (s *Session) Next(ctx context.Context) (ActivityMessage, error) {
	if s.closed.Load() {
		return nil, connectionLost("activity session is closed", nil)
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.extendDeadline()

	messageType, frame, err := s.conn.ReadMessage()
	if err != nil {
		_ = s.Close()

		if ctx.Err() != nil {
			return nil, connectionLost("activity stream cancelled", ctx.Err())
		}

		return nil, connectionLost("activity stream connection lost", err)
	}

	if messageType != websocket.TextMessage {
		s.metrics.ParseFailed()

		return nil, errors.Newf(errors.ErrCodeParse, "unexpected websocket message type %d", messageType)
	}

	msg, err := ParseMessage(frame)
	if err != nil {
		s.metrics.ParseFailed()
		s.logger.Warn("Failed to decode activity frame",
			zap.Int("size", len(frame)),
			zap.Error(err),
		)

		return nil, err
	}

	s.metrics.FrameDecoded(string(msg.PayloadType()))

	return msg, nil
}

// Messages yields decoded messages until the session ends.
// Decode failures are yielded as errors and iteration continues; the terminal
// error is yielded last. Breaking out of the loop closes the session.
func (s *Session) Messages(ctx context.Context) iter.Seq2[ActivityMessage, error] {
	return func(yield func(ActivityMessage, error) bool) {
		defer s.Close()

		for {
			msg, err := s.Next(ctx)
			if err != nil {
				if !yield(nil, err) || IsSessionClosed(err) {
					return
				}

				continue
			}

			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close sends a normal close frame and releases the socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// IsSessionClosed reports whether err ended a Session.
func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

func connectionLost(message string, cause error) error {
	if cause == nil {
		return errors.Wrap(errors.ErrCodeTimeout, message, ErrSessionClosed)
	}

	return errors.Wrap(errors.ErrCodeTimeout, message, fmt.Errorf("%w: %w", ErrSessionClosed, cause))
}
