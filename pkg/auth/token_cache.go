// Package auth owns the bearer token used by every authenticated call.
//
// A TokenCache fetches an OAuth2 client-credentials token on first use and
// refreshes it once it comes within the safety margin of its expiry. Any
// number of goroutines may call Token concurrently; while a valid token is
// cached they only take the read lock, and an expired token is refreshed by
// exactly one of them.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/internal/metrics"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"go.uber.org/zap"
)

// DefaultSafetyMargin is subtracted from the server-reported lifetime of every token.
const DefaultSafetyMargin = 60 * time.Second

// TokenSource returns a bearer token valid for at least the safety margin.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Executor sends the token request. *transport.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *http.Request) (*http.Response, error)
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenCache caches one client-credentials token behind a reader/writer lock.
type TokenCache struct {
	credential Credential
	executor   Executor
	margin     time.Duration
	now        func() time.Time
	userAgent  string
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	token *cachedToken
}

var _ TokenSource = (*TokenCache)(nil)

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithSafetyMargin overrides DefaultSafetyMargin.
func WithSafetyMargin(margin time.Duration) TokenCacheOption {
	return func(c *TokenCache) {
		if margin >= 0 {
			c.margin = margin
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		c.now = now
	}
}

// WithUserAgent sets the User-Agent header of token requests.
func WithUserAgent(userAgent string) TokenCacheOption {
	return func(c *TokenCache) {
		c.userAgent = userAgent
	}
}

// WithTokenLogger sets the logger used to report refreshes.
func WithTokenLogger(l *logger.Logger) TokenCacheOption {
	return func(c *TokenCache) {
		c.logger = l.Named("auth")
	}
}

// WithTokenMetrics sets the collectors updated on every refresh.
func WithTokenMetrics(m *metrics.Metrics) TokenCacheOption {
	return func(c *TokenCache) {
		c.metrics = m
	}
}

// NewTokenCache creates an empty cache. No request is made until Token or Refresh is called.
func NewTokenCache(credential Credential, executor Executor, opts ...TokenCacheOption) *TokenCache {
	if credential.TokenURL == "" {
		credential.TokenURL = DefaultTokenURL
	}
	if credential.Audience == "" {
		credential.Audience = DefaultAudience
	}

	c := &TokenCache{
		credential: credential,
		executor:   executor,
		margin:     DefaultSafetyMargin,
		now:        time.Now,
		userAgent:  "",
		logger:     logger.NewNopLogger(),
		metrics:    nil,
		mu:         sync.RWMutex{},
		token:      nil,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token returns the cached bearer value, fetching a new one when the cache is empty or expired.
//
// A failed fetch returns the error and leaves any previous token in place.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	if value, ok := c.validLocked(); ok {
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have refreshed while we waited for the write lock
	if value, ok := c.validLocked(); ok {
		return value, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token

	return token.value, nil
}

// Refresh fetches a new token regardless of the cached one.
func (c *TokenCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.token = token

	return nil
}

// ExpiresAt returns when the cached token stops being handed out, and false when nothing is cached.
func (c *TokenCache) ExpiresAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil {
		return time.Time{}, false
	}

	return c.token.expiresAt, true
}

func (c *TokenCache) validLocked() (string, bool) {
	if c.token == nil || !c.now().Before(c.token.expiresAt) {
		return "", false
	}

	return c.token.value, true
}

func (c *TokenCache) fetch(ctx context.Context) (*cachedToken, error) {
	// measured before the request so the in-flight time counts against the token
	issuedAt := c.now()

	token, err := c.requestToken(ctx, issuedAt)
	c.metrics.TokenRefreshed(err == nil)
	if err != nil {
		c.logger.Error("Failed to refresh access token",
			zap.String("client_id", c.credential.ClientID),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("Refreshed access token",
		zap.String("client_id", c.credential.ClientID),
		zap.Time("expires_at", token.expiresAt),
	)

	return token, nil
}

func (c *TokenCache) requestToken(ctx context.Context, issuedAt time.Time) (*cachedToken, error) {
	payload, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.credential.ClientID,
		ClientSecret: c.credential.ClientSecret,
		Audience:     c.credential.Audience,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, "failed to encode token request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.credential.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build token request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, "failed to read token response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrap(errors.ErrCodeAuthentication, "token endpoint rejected credentials",
			errors.NewStatusError(resp.StatusCode, string(body)))
	}

	var decoded tokenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, "failed to decode token response", err)
	}

	if decoded.AccessToken == "" {
		return nil, errors.New(errors.ErrCodeAuthentication, "token endpoint returned an empty access token")
	}

	lifetime := time.Duration(decoded.ExpiresIn)*time.Second - c.margin
	if lifetime < 0 {
		lifetime = 0
	}

	return &cachedToken{
		value:     decoded.AccessToken,
		expiresAt: issuedAt.Add(lifetime),
	}, nil
}
