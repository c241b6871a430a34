// Package client is the entry point of the library. A Client owns the token
// source, the retrying executor and the account configuration, and exposes
// the Studio v2 REST resources and the account activity stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/internal/metrics"
	"github.com/rxtech-lab/clearstreet-go/internal/version"
	"github.com/rxtech-lab/clearstreet-go/pkg/auth"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/stream"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"go.uber.org/zap"
)

// Client talks to one Studio deployment on behalf of one set of credentials.
// It is safe for concurrent use.
type Client struct {
	options   Options
	executor  *transport.Executor
	tokens    auth.TokenSource
	dialer    stream.Dialer
	logger    *logger.Logger
	metrics   *metrics.Metrics
	userAgent string
}

type settings struct {
	doer       transport.Doer
	tokens     auth.TokenSource
	dialer     stream.Dialer
	logger     *logger.Logger
	registerer prometheus.Registerer
	sleeper    transport.Sleeper
}

// Option customizes how New wires a Client.
type Option func(*settings)

// WithHTTPClient replaces http.DefaultClient for REST and token requests.
func WithHTTPClient(doer transport.Doer) Option {
	return func(s *settings) {
		s.doer = doer
	}
}

// WithTokenSource replaces the token source built from the options.
func WithTokenSource(tokens auth.TokenSource) Option {
	return func(s *settings) {
		s.tokens = tokens
	}
}

// WithDialer replaces the websocket dialer used by Connect and Subscribe.
func WithDialer(dialer stream.Dialer) Option {
	return func(s *settings) {
		s.dialer = dialer
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithRegisterer registers the client's collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithSleeper replaces the wait between transport retries.
func WithSleeper(sleep transport.Sleeper) Option {
	return func(s *settings) {
		s.sleeper = sleep
	}
}

// New validates options and builds a Client. Unless options.LazyAuth is set,
// the first token is fetched before New returns so bad credentials fail here.
func New(ctx context.Context, options Options, opts ...Option) (*Client, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	s := &settings{
		doer:       nil,
		tokens:     nil,
		dialer:     nil,
		logger:     logger.NewNopLogger(),
		registerer: nil,
		sleeper:    nil,
	}
	for _, opt := range opts {
		opt(s)
	}

	collectors, err := metrics.New(s.registerer)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to register metrics", err)
	}

	executorOptions := []transport.ExecutorOption{
		transport.WithRetryPolicy(options.RetryPolicy),
		transport.WithExecutorLogger(s.logger),
		transport.WithExecutorMetrics(collectors),
	}
	if s.sleeper != nil {
		executorOptions = append(executorOptions, transport.WithSleeper(s.sleeper))
	}

	executor := transport.NewExecutor(s.doer, executorOptions...)
	userAgent := version.UserAgent()

	tokens := s.tokens
	if tokens == nil {
		tokens = newTokenSource(options, executor, userAgent, s.logger, collectors)
	}

	c := &Client{
		options:   options,
		executor:  executor,
		tokens:    tokens,
		dialer:    s.dialer,
		logger:    s.logger.Named("client"),
		metrics:   collectors,
		userAgent: userAgent,
	}

	if !options.LazyAuth {
		if _, err := c.tokens.Token(ctx); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("Client ready",
		zap.String("api_url", options.APIURL),
		zap.String("account_id", options.AccountID),
		zap.Bool("static_token", options.StaticToken != ""),
	)

	return c, nil
}

func newTokenSource(
	options Options,
	executor *transport.Executor,
	userAgent string,
	l *logger.Logger,
	m *metrics.Metrics,
) auth.TokenSource {
	if options.StaticToken != "" {
		return auth.NewStaticToken(options.StaticToken)
	}

	credential := auth.Credential{
		ClientID:     options.ClientID,
		ClientSecret: options.ClientSecret,
		Audience:     options.Audience,
		TokenURL:     options.AuthURL,
	}

	return auth.NewTokenCache(credential, executor,
		auth.WithUserAgent(userAgent),
		auth.WithTokenLogger(l),
		auth.WithTokenMetrics(m),
	)
}

// Options returns the options the client was built with.
func (c *Client) Options() Options {
	return c.options
}

// AccountID returns the configured account.
func (c *Client) AccountID() string {
	return c.options.AccountID
}

// Token returns a bearer token valid for at least the safety margin.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// NewRequest builds an authenticated request for path relative to the API URL.
// A non-nil body is encoded as JSON; an encoding failure is an ErrCodeSerialization error.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.options.APIURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSerialization, "failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, "failed to build request", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// Do sends req through the retrying executor. A non-2xx response is an
// ErrCodeHTTP error carrying the status and body. When out is non-nil the
// body is decoded into it; a decode failure is an ErrCodeParse error.
func (c *Client) Do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "failed to read response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Debug("Request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)

		return errors.NewHTTPError(resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(errors.ErrCodeParse, err, "failed to decode %s %s response", req.Method, req.URL.Path)
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.NewRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	return c.Do(ctx, req, out)
}

func (c *Client) accountPath(elements ...string) (string, error) {
	if c.options.AccountID == "" {
		return "", errors.New(errors.ErrCodeInternal, "account id is not configured")
	}

	return accountPath(c.options.AccountID, elements...), nil
}

func accountPath(accountID string, elements ...string) string {
	var b strings.Builder

	b.WriteString("/studio/v2/accounts/")
	b.WriteString(url.PathEscape(accountID))

	for _, element := range elements {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(element))
	}

	return b.String()
}

// StreamConfig returns the activity stream configuration for the client's account.
func (c *Client) StreamConfig() stream.Config {
	return stream.Config{
		URL:         c.options.WebsocketURL,
		AccountID:   c.options.AccountID,
		TokenSource: c.tokens,
		Dialer:      c.dialer,
		RetryPolicy: c.options.RetryPolicy,
		IdleTimeout: 0,
		Logger:      c.logger,
		Metrics:     c.metrics,
	}
}

// Connect opens a single activity session for the client's account.
func (c *Client) Connect(ctx context.Context) (*stream.Session, error) {
	return stream.Connect(ctx, c.StreamConfig())
}

// Subscribe starts a self-healing activity feed for the client's account.
func (c *Client) Subscribe(ctx context.Context, opts ...stream.FeedOption) *stream.Feed {
	return stream.Subscribe(ctx, c.StreamConfig(), opts...)
}
