package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/clearstreet-go/mocks"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// tokenServer is a programmable client-credentials endpoint.
type tokenServer struct {
	*httptest.Server
	calls     atomic.Int32
	expiresIn atomic.Int64
	status    atomic.Int32
	delay     time.Duration
	lastBody  atomic.Value
}

func newTokenServer(delay time.Duration) *tokenServer {
	ts := &tokenServer{delay: delay}
	ts.expiresIn.Store(3600)
	ts.status.Store(http.StatusOK)
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	return ts
}

func (ts *tokenServer) handle(w http.ResponseWriter, r *http.Request) {
	n := ts.calls.Add(1)
	if ts.delay > 0 {
		time.Sleep(ts.delay)
	}

	body := map[string]string{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	body["method"] = r.Method
	body["content_type"] = r.Header.Get("Content-Type")
	body["accept"] = r.Header.Get("Accept")
	ts.lastBody.Store(body)

	status := int(ts.status.Load())
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"access_denied"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": fmt.Sprintf("token-%d", n),
		"expires_in":   ts.expiresIn.Load(),
	})
}

type TokenCacheTestSuite struct {
	suite.Suite
	server *tokenServer
	clock  *fakeClock
}

func TestTokenCacheSuite(t *testing.T) {
	suite.Run(t, new(TokenCacheTestSuite))
}

func (suite *TokenCacheTestSuite) SetupTest() {
	suite.server = newTokenServer(0)
	suite.clock = &fakeClock{now: time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)}
}

func (suite *TokenCacheTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *TokenCacheTestSuite) newCache(opts ...TokenCacheOption) *TokenCache {
	credential := Credential{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Audience:     "https://api.clearstreet.io",
		TokenURL:     suite.server.URL + "/oauth/token",
	}
	opts = append([]TokenCacheOption{WithClock(suite.clock.Now)}, opts...)
	return NewTokenCache(credential, transport.NewExecutor(suite.server.Client()), opts...)
}

func (suite *TokenCacheTestSuite) TestFetchesLazily() {
	cache := suite.newCache()
	suite.Equal(int32(0), suite.server.calls.Load())

	_, ok := cache.ExpiresAt()
	suite.False(ok)

	token, err := cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-1", token)
	suite.Equal(int32(1), suite.server.calls.Load())

	expiresAt, ok := cache.ExpiresAt()
	suite.True(ok)
	suite.Equal(suite.clock.Now().Add(3540*time.Second), expiresAt)
}

func (suite *TokenCacheTestSuite) TestTokenRequestShape() {
	cache := suite.newCache()
	_, err := cache.Token(context.Background())
	suite.Require().NoError(err)

	body, ok := suite.server.lastBody.Load().(map[string]string)
	suite.Require().True(ok)
	suite.Equal(http.MethodPost, body["method"])
	suite.Equal("application/json", body["content_type"])
	suite.Equal("application/json", body["accept"])
	suite.Equal("client_credentials", body["grant_type"])
	suite.Equal("client-id", body["client_id"])
	suite.Equal("client-secret", body["client_secret"])
	suite.Equal("https://api.clearstreet.io", body["audience"])
}

func (suite *TokenCacheTestSuite) TestCachedTokenReused() {
	cache := suite.newCache()
	for i := 0; i < 10; i++ {
		token, err := cache.Token(context.Background())
		suite.NoError(err)
		suite.Equal("token-1", token)
	}
	suite.Equal(int32(1), suite.server.calls.Load())
}

func (suite *TokenCacheTestSuite) TestSafetyMarginRespected() {
	cache := suite.newCache()

	_, err := cache.Token(context.Background())
	suite.Require().NoError(err)
	issuedAt := suite.clock.Now()
	serverExpiry := issuedAt.Add(3600 * time.Second)

	// one second before the margin starts the cached token is still handed out
	suite.clock.Advance(3539 * time.Second)
	token, err := cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-1", token)
	suite.GreaterOrEqual(serverExpiry.Sub(suite.clock.Now()), DefaultSafetyMargin)

	// inside the margin it is never returned
	suite.clock.Advance(time.Second)
	token, err = cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-2", token)
	suite.Equal(int32(2), suite.server.calls.Load())
}

func (suite *TokenCacheTestSuite) TestNeverReturnsTokenInsideMargin() {
	cache := suite.newCache()
	serverExpiry := map[string]time.Time{}

	for step := 0; step < 200; step++ {
		before := suite.server.calls.Load()
		now := suite.clock.Now()
		token, err := cache.Token(context.Background())
		suite.Require().NoError(err)
		if suite.server.calls.Load() != before {
			serverExpiry[token] = now.Add(3600 * time.Second)
		}
		suite.GreaterOrEqual(serverExpiry[token].Sub(suite.clock.Now()), DefaultSafetyMargin)
		suite.clock.Advance(97 * time.Second)
	}
}

func (suite *TokenCacheTestSuite) TestShortLifetimeClampsToZero() {
	suite.server.expiresIn.Store(30)
	cache := suite.newCache()

	token, err := cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-1", token)

	expiresAt, ok := cache.ExpiresAt()
	suite.True(ok)
	suite.Equal(suite.clock.Now(), expiresAt)

	token, err = cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-2", token)
}

func (suite *TokenCacheTestSuite) TestCustomSafetyMargin() {
	cache := suite.newCache(WithSafetyMargin(10 * time.Minute))
	_, err := cache.Token(context.Background())
	suite.Require().NoError(err)

	expiresAt, _ := cache.ExpiresAt()
	suite.Equal(suite.clock.Now().Add(50*time.Minute), expiresAt)
}

func (suite *TokenCacheTestSuite) TestConcurrentCallersShareOneFetch() {
	suite.server.Close()
	suite.server = newTokenServer(50 * time.Millisecond)
	cache := suite.newCache()

	const callers = 64
	var wg sync.WaitGroup
	start := make(chan struct{})
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tokens[i], errs[i] = cache.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	suite.Equal(int32(1), suite.server.calls.Load())
	for i := 0; i < callers; i++ {
		suite.NoError(errs[i])
		suite.Equal("token-1", tokens[i])
	}
}

func (suite *TokenCacheTestSuite) TestConcurrentCallersOnExpiryShareOneFetch() {
	cache := suite.newCache()
	_, err := cache.Token(context.Background())
	suite.Require().NoError(err)

	suite.clock.Advance(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := cache.Token(context.Background())
			suite.NoError(err)
			suite.Equal("token-2", token)
		}()
	}
	wg.Wait()

	suite.Equal(int32(2), suite.server.calls.Load())
}

func (suite *TokenCacheTestSuite) TestRejectedCredentialsKeepStaleToken() {
	cache := suite.newCache()
	_, err := cache.Token(context.Background())
	suite.Require().NoError(err)

	suite.clock.Advance(time.Hour)
	suite.server.status.Store(http.StatusUnauthorized)

	token, err := cache.Token(context.Background())
	suite.Empty(token)
	suite.True(errors.IsAuthentication(err))
	status, ok := errors.StatusCode(err)
	suite.True(ok)
	suite.Equal(http.StatusUnauthorized, status)

	// the stale token is left in place, not cleared
	suite.Require().NotNil(cache.token)
	suite.Equal("token-1", cache.token.value)

	// a later caller retries independently
	suite.server.status.Store(http.StatusOK)
	token, err = cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-3", token)
}

func (suite *TokenCacheTestSuite) TestMalformedResponseIsParseError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":`))
	}))
	defer server.Close()

	cache := NewTokenCache(Credential{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL},
		transport.NewExecutor(server.Client()))
	_, err := cache.Token(context.Background())
	suite.True(errors.IsParse(err))
}

func (suite *TokenCacheTestSuite) TestEmptyAccessTokenIsAuthenticationError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"","expires_in":3600}`))
	}))
	defer server.Close()

	cache := NewTokenCache(Credential{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL},
		transport.NewExecutor(server.Client()))
	_, err := cache.Token(context.Background())
	suite.True(errors.IsAuthentication(err))
}

func (suite *TokenCacheTestSuite) TestExecutorFailurePropagates() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	executor := mocks.NewMockExecutor(ctrl)
	timeout := errors.New(errors.ErrCodeTimeout, "request failed after 5 attempts")
	executor.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(nil, timeout).Times(2)

	cache := NewTokenCache(Credential{ClientID: "id", ClientSecret: "secret"}, executor)
	_, err := cache.Token(context.Background())
	suite.Equal(timeout, err)

	// nothing was cached, so the next caller tries again
	_, err = cache.Token(context.Background())
	suite.True(errors.IsTimeout(err))
}

func (suite *TokenCacheTestSuite) TestDefaultsApplied() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *http.Request) (*http.Response, error) {
			suite.Equal(DefaultTokenURL, req.URL.String())
			return nil, errors.New(errors.ErrCodeTimeout, "offline")
		})

	cache := NewTokenCache(Credential{ClientID: "id", ClientSecret: "secret"}, executor)
	_, _ = cache.Token(context.Background())
	suite.Equal(DefaultAudience, cache.credential.Audience)
}

func (suite *TokenCacheTestSuite) TestRefreshForcesFetch() {
	cache := suite.newCache()
	suite.NoError(cache.Refresh(context.Background()))
	suite.NoError(cache.Refresh(context.Background()))

	token, err := cache.Token(context.Background())
	suite.NoError(err)
	suite.Equal("token-2", token)
	suite.Equal(int32(2), suite.server.calls.Load())
}

func (suite *TokenCacheTestSuite) TestStaticToken() {
	source := NewStaticToken("static-bearer")
	for i := 0; i < 3; i++ {
		token, err := source.Token(context.Background())
		suite.NoError(err)
		suite.Equal("static-bearer", token)
	}
	suite.NotContains(source.String(), "static-bearer")

	_, err := NewStaticToken("").Token(context.Background())
	suite.True(errors.IsAuthentication(err))
}

func (suite *TokenCacheTestSuite) TestCredentialRedacted() {
	credential := Credential{ClientID: "client-id", ClientSecret: "hunter2"}
	suite.NotContains(credential.String(), "hunter2")
	suite.NotContains(fmt.Sprintf("%v", credential), "hunter2")
	suite.NotContains(fmt.Sprintf("%#v", credential), "hunter2")
	suite.Contains(credential.String(), "client-id")
}
