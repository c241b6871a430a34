package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/clearstreet-go/e2e/mockserver"
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// lockedBuffer lets the stream command write while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

type CLITestSuite struct {
	suite.Suite
	server *mockserver.MockClearStreetServer
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (suite *CLITestSuite) SetupTest() {
	suite.server = mockserver.NewMockClearStreetServer(mockserver.ServerConfig{
		ClientID:     "cli-id",
		ClientSecret: "cli-secret",
		SendAck:      true,
	})
	suite.Require().NoError(suite.server.Start(":0"))

	t := suite.T()
	t.Setenv("CLEARSTREET_API_URL", suite.server.BaseURL())
	t.Setenv("CLEARSTREET_AUTH_URL", suite.server.TokenURL())
	t.Setenv("CLEARSTREET_WEBSOCKET_URL", suite.server.WebSocketURL())
	t.Setenv("CLEARSTREET_CLIENT_ID", "cli-id")
	t.Setenv("CLEARSTREET_CLIENT_SECRET", "cli-secret")
	t.Setenv("CLEARSTREET_ACCOUNT_ID", suite.server.AccountID())
	t.Setenv("CLEARSTREET_LOG_LEVEL", "error")
}

func (suite *CLITestSuite) TearDownTest() {
	suite.server.Stop()
}

func (suite *CLITestSuite) run(ctx context.Context, out *lockedBuffer, args ...string) error {
	app := newApp()
	app.Writer = out
	app.ErrWriter = &lockedBuffer{}

	return app.Run(ctx, append([]string{"clearstreet"}, args...))
}

func (suite *CLITestSuite) runOK(args ...string) string {
	out := &lockedBuffer{}
	suite.Require().NoError(suite.run(context.Background(), out, args...))

	return out.String()
}

func (suite *CLITestSuite) TestTokenPrintsAccessToken() {
	output := suite.runOK("token")

	suite.Equal("mock-token-1", strings.TrimSpace(output))
	suite.Equal(1, suite.server.TokenCalls())
}

func (suite *CLITestSuite) TestAccounts() {
	var accounts []types.Account
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("accounts")), &accounts))
	suite.Require().Len(accounts, 1)
	suite.Equal("CS100000", accounts[0].AccountNumber)

	var account types.Account
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("accounts", "100000")), &account))
	suite.Equal("Mock Trading Account", account.Name)
}

func (suite *CLITestSuite) TestOrderLifecycle() {
	var created types.CreateOrderResponse
	output := suite.runOK("orders", "create", "--symbol", "aapl", "--side", "buy", "--type", "limit",
		"--quantity", "10", "--price", "187.25", "--urgency", "aggressive")
	suite.Require().NoError(json.Unmarshal([]byte(output), &created))
	suite.Require().NotEmpty(created.OrderID)

	order, ok := suite.server.GetOrder(created.OrderID)
	suite.Require().True(ok)
	suite.Equal("AAPL", order.Symbol)
	suite.True(order.Price.Unwrap().Equal(decimal.RequireFromString("187.25")))
	suite.Equal(types.UrgencyAggressive, order.Strategy.Urgency.Unwrap())

	var fetched types.Order
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("orders", "get", created.OrderID)), &fetched))
	suite.Equal(created.OrderID, fetched.OrderID)

	suite.runOK("orders", "replace", created.OrderID, "--quantity", "12", "--price", "186")
	order, _ = suite.server.GetOrder(created.OrderID)
	suite.True(order.Quantity.Equal(decimal.NewFromInt(12)))

	suite.runOK("orders", "cancel", created.OrderID)
	order, _ = suite.server.GetOrder(created.OrderID)
	suite.Equal(types.OrderStateClosed, order.State)
}

func (suite *CLITestSuite) TestListAllOrdersFollowsPages() {
	for range 3 {
		suite.runOK("orders", "create", "--symbol", "MSFT", "--quantity", "1")
	}

	var orders []types.Order
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("orders", "list", "--all", "--page-size", "2")), &orders))
	suite.Len(orders, 3)

	var page types.ListOrdersResponse
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("orders", "list", "--page-size", "2")), &page))
	suite.Len(page.Data, 2)
	suite.True(page.NextPageToken.IsSome())
}

func (suite *CLITestSuite) TestCancelAllBySymbol() {
	suite.runOK("orders", "create", "--symbol", "AAPL", "--quantity", "1")
	suite.runOK("orders", "create", "--symbol", "MSFT", "--quantity", "1")

	suite.runOK("orders", "cancel-all", "--symbol", "aapl")

	for _, order := range suite.server.Orders() {
		if order.Symbol == "AAPL" {
			suite.Equal(types.OrderStateClosed, order.State)
		} else {
			suite.Equal(types.OrderStateOpen, order.State)
		}
	}
}

func (suite *CLITestSuite) TestCreateRequiresQuantity() {
	err := suite.run(context.Background(), &lockedBuffer{}, "orders", "create", "--symbol", "AAPL")
	suite.Error(err)
	suite.Empty(suite.server.Orders())
}

func (suite *CLITestSuite) TestCreateRejectsBadDecimal() {
	err := suite.run(context.Background(), &lockedBuffer{}, "orders", "create", "--symbol", "AAPL", "--quantity", "ten")
	suite.ErrorContains(err, "invalid --quantity")
}

func (suite *CLITestSuite) TestMissingOrderID() {
	err := suite.run(context.Background(), &lockedBuffer{}, "orders", "get")
	suite.ErrorContains(err, "ORDER_ID is required")
}

func (suite *CLITestSuite) TestPositionsAndTrades() {
	var created types.CreateOrderResponse
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("orders", "create", "--symbol", "AAPL", "--quantity", "5")), &created))

	trade, err := suite.server.Fill(created.OrderID, decimal.NewFromInt(5), decimal.NewFromInt(100))
	suite.Require().NoError(err)

	var positions types.ListPositionsResponse
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("positions")), &positions))
	suite.Require().Len(positions.Data, 1)
	suite.True(positions.Data[0].Quantity.Equal(decimal.NewFromInt(5)))

	var fetched types.Trade
	suite.Require().NoError(json.Unmarshal([]byte(suite.runOK("trades", trade.TradeID)), &fetched))
	suite.Equal(created.OrderID, fetched.OrderID)
}

func (suite *CLITestSuite) TestAccountFlagOverridesEnvironment() {
	err := suite.run(context.Background(), &lockedBuffer{}, "--account", "999999",
		"orders", "create", "--symbol", "AAPL", "--quantity", "1")
	suite.ErrorContains(err, "404")
	suite.Empty(suite.server.Orders())
}

func (suite *CLITestSuite) TestConfigFile() {
	path := filepath.Join(suite.T().TempDir(), "clearstreet.yaml")
	config := strings.Join([]string{
		"apiUrl: " + suite.server.BaseURL(),
		"authUrl: " + suite.server.TokenURL(),
		"websocketUrl: " + suite.server.WebSocketURL(),
		"clientId: cli-id",
		"clientSecret: cli-secret",
		"accountId: " + suite.server.AccountID(),
	}, "\n")
	suite.Require().NoError(os.WriteFile(path, []byte(config), 0o600))

	suite.T().Setenv("CLEARSTREET_CLIENT_SECRET", "wrong")

	err := suite.run(context.Background(), &lockedBuffer{}, "--config", path, "token")
	suite.Error(err, "environment takes precedence over the file")
}

func (suite *CLITestSuite) TestSchema() {
	output := suite.runOK("schema")

	suite.Contains(output, "\"apiUrl\"")
	suite.Contains(output, "\"retryPolicy\"")
}

func (suite *CLITestSuite) TestStreamOncePrintsActivity() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- suite.run(ctx, out, "stream", "--once")
	}()

	suite.Require().True(suite.server.WaitForSubscribers(1, 5*time.Second))
	suite.server.PublishBuyingPower(suite.server.AccountID(), decimal.NewFromInt(25000))

	suite.Eventually(func() bool {
		return strings.Contains(out.String(), "buying-power-update")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("stream command did not stop")
	}

	suite.Contains(out.String(), "subscribe-activity-ack")
}

func (suite *CLITestSuite) TestStreamFeedReconnects() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- suite.run(ctx, out, "stream", "--buffer", "4")
	}()

	suite.Require().True(suite.server.WaitForSubscribers(1, 5*time.Second))
	suite.server.DropConnections()

	suite.Eventually(func() bool {
		return suite.server.ClosedConnections() == 1 && suite.server.ActiveConnections() == 1
	}, 5*time.Second, 10*time.Millisecond)

	suite.server.PublishHeartbeat()
	suite.Eventually(func() bool {
		return strings.Contains(out.String(), "\"session\":2")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("stream command did not stop")
	}
}
