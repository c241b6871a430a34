package stream

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rxtech-lab/clearstreet-go/e2e/mockserver"
	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/mocks"
	"github.com/rxtech-lab/clearstreet-go/pkg/auth"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const staticToken = "static-test-token"

type SessionTestSuite struct {
	suite.Suite
	server *mockserver.MockClearStreetServer
	ctx    context.Context
	cancel context.CancelFunc
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (suite *SessionTestSuite) SetupTest() {
	suite.server = mockserver.NewMockClearStreetServer(mockserver.ServerConfig{
		StaticToken: staticToken,
		SendAck:     true,
	})
	suite.Require().NoError(suite.server.Start(":0"))

	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), 10*time.Second)
}

func (suite *SessionTestSuite) TearDownTest() {
	suite.cancel()
	if suite.server != nil {
		suite.server.Stop()
	}
}

func (suite *SessionTestSuite) config() Config {
	return Config{
		URL:         suite.server.WebSocketURL(),
		AccountID:   suite.server.AccountID(),
		TokenSource: auth.NewStaticToken(staticToken),
		RetryPolicy: transport.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}
}

func (suite *SessionTestSuite) connect() *Session {
	session, err := Connect(suite.ctx, suite.config())
	suite.Require().NoError(err)
	suite.Require().True(suite.server.WaitForSubscribers(1, 2*time.Second))

	return session
}

func (suite *SessionTestSuite) TestHandshakeSendsSubscribeRequest() {
	session := suite.connect()
	defer session.Close()

	subscriptions := suite.server.Subscriptions()
	suite.Require().Len(subscriptions, 1)
	suite.Equal(staticToken, subscriptions[0].Authorization)
	suite.Equal(suite.server.AccountID(), subscriptions[0].AccountID)

	msg, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	ack, ok := msg.(SubscribeAck)
	suite.Require().True(ok)
	suite.True(ack.Payload.Success)
	suite.Equal(suite.server.AccountID(), ack.Payload.AccountID)
}

func (suite *SessionTestSuite) TestHeartbeatIsDelivered() {
	session := suite.connect()
	defer session.Close()

	_, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	suite.server.PublishHeartbeat()

	msg, err := session.Next(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(PayloadTypeHeartbeat, msg.PayloadType())
}

func (suite *SessionTestSuite) TestMessagesArriveInSequenceOrder() {
	session := suite.connect()
	defer session.Close()

	_, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	orderFrame := func(sequence int64, status, filled string) string {
		return fmt.Sprintf(`{"timestamp":%d,"sequence":%d,"payload":{"type":"order-update","data":{`+
			`"order_id":"ord-1","account_id":"100000","state":"open","status":%q,"symbol":"AAPL",`+
			`"order_type":"limit","side":"buy","quantity":"10","price":"187.25","time_in_force":"day",`+
			`"filled_quantity":%q,"average_price":"187.25",`+
			`"strategy":{"type":"sor","urgency":"moderate"}}}}`, sequence, sequence, status, filled)
	}
	suite.server.SendRaw(orderFrame(5, "partially-filled", "4"))
	suite.server.SendRaw(orderFrame(6, "partially-filled", "7"))

	first, err := session.Next(suite.ctx)
	suite.Require().NoError(err)
	second, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	firstSeq, _ := first.EventSequence()
	secondSeq, _ := second.EventSequence()
	suite.Equal(int64(5), firstSeq)
	suite.Equal(int64(6), secondSeq)

	suite.Require().IsType(OrderUpdate{}, first)
	suite.Require().IsType(OrderUpdate{}, second)
	earlier := first.(OrderUpdate).Payload.Data
	later := second.(OrderUpdate).Payload.Data
	suite.True(decimal.NewFromInt(4).Equal(earlier.FilledQuantity))
	suite.True(decimal.NewFromInt(7).Equal(later.FilledQuantity))
	suite.True(decimal.RequireFromString("187.25").Equal(later.Price.Unwrap()))
	suite.Equal(types.StrategyTypeSmartOrderRoute, later.Strategy.Type)
	suite.Equal(types.UrgencyModerate, later.Strategy.Urgency.Unwrap())
}

func (suite *SessionTestSuite) TestUnknownTypeIsNotFatal() {
	session := suite.connect()
	defer session.Close()

	_, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	suite.server.SendRaw(`{"timestamp":1,"payload":{"type":"mystery"}}`)
	suite.server.PublishHeartbeat()

	_, err = session.Next(suite.ctx)
	suite.Require().Error(err)
	suite.True(errors.IsParse(err))
	suite.False(IsSessionClosed(err))
	suite.False(session.Closed())

	msg, err := session.Next(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(PayloadTypeHeartbeat, msg.PayloadType())
}

func (suite *SessionTestSuite) TestPingIsAnsweredWithPong() {
	session := suite.connect()
	defer session.Close()

	go func() {
		for {
			if _, err := session.Next(suite.ctx); IsSessionClosed(err) {
				return
			}
		}
	}()

	suite.server.SendPing("keepalive")

	suite.Eventually(func() bool {
		for _, pong := range suite.server.Pongs() {
			if pong == "keepalive" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func (suite *SessionTestSuite) TestConnectionLossIsTerminal() {
	session := suite.connect()

	_, err := session.Next(suite.ctx)
	suite.Require().NoError(err)

	suite.server.DropConnections()

	_, err = session.Next(suite.ctx)
	suite.Require().Error(err)
	suite.True(errors.IsTimeout(err))
	suite.True(IsSessionClosed(err))
	suite.True(session.Closed())

	_, err = session.Next(suite.ctx)
	suite.True(IsSessionClosed(err))
}

func (suite *SessionTestSuite) TestCancelClosesSocket() {
	session := suite.connect()

	ctx, cancel := context.WithCancel(suite.ctx)

	_, err := session.Next(ctx)
	suite.Require().NoError(err)

	done := make(chan error, 1)
	go func() {
		_, err := session.Next(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		suite.True(IsSessionClosed(err))
		suite.True(errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		suite.Fail("Next did not return after cancellation")
	}

	suite.True(suite.server.WaitForClosed(1, 2*time.Second))
	suite.Equal(0, suite.server.ActiveConnections())
}

func (suite *SessionTestSuite) TestMessagesIterator() {
	session := suite.connect()

	suite.server.PublishOrderUpdate(types.Order{
		OrderID:   "ord-1",
		AccountID: suite.server.AccountID(),
		State:     types.OrderStateOpen,
		Status:    types.OrderStatusNew,
		Symbol:    "AAPL",
		Quantity:  decimal.NewFromInt(10),
		Strategy:  types.SmartOrderRoute(),
	})
	suite.server.SendRaw(`garbage`)
	suite.server.PublishHeartbeat()

	var received []PayloadType
	var parseErrors int

	for msg, err := range session.Messages(suite.ctx) {
		if err != nil {
			suite.True(errors.IsParse(err))
			parseErrors++
			continue
		}

		received = append(received, msg.PayloadType())
		if msg.PayloadType() == PayloadTypeHeartbeat {
			break
		}
	}

	suite.Equal([]PayloadType{
		PayloadTypeSubscribeActivityAck,
		PayloadTypeOrderUpdate,
		PayloadTypeHeartbeat,
	}, received)
	suite.Equal(1, parseErrors)
	suite.True(session.Closed())
	suite.True(suite.server.WaitForClosed(1, 2*time.Second))
}

func (suite *SessionTestSuite) TestCloseIsIdempotent() {
	session := suite.connect()

	suite.NoError(session.Close())
	suite.NotPanics(func() { _ = session.Close() })
	suite.True(session.Closed())
	suite.True(suite.server.WaitForClosed(1, 2*time.Second))
}

func (suite *SessionTestSuite) TestRejectedUpgradeIsHTTPError() {
	suite.server.RejectUpgrades(http.StatusForbidden)

	session, err := Connect(suite.ctx, suite.config())
	suite.Nil(session)
	suite.Require().Error(err)
	suite.True(errors.IsHTTP(err))

	status, ok := errors.StatusCode(err)
	suite.True(ok)
	suite.Equal(http.StatusForbidden, status)
}

func (suite *SessionTestSuite) TestDialExhaustionIsTimeout() {
	cfg := suite.config()
	cfg.URL = "ws://127.0.0.1:1/studio/v2/ws"

	session, err := Connect(suite.ctx, cfg)
	suite.Nil(session)
	suite.Require().Error(err)
	suite.True(errors.IsTimeout(err))
	suite.Contains(err.Error(), "after 2 attempts")
}

func (suite *SessionTestSuite) TestTokenFailureSurfacesUnchanged() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	tokens := mocks.NewMockTokenSource(ctrl)
	expected := errors.New(errors.ErrCodeAuthentication, "credentials rejected")
	tokens.EXPECT().Token(gomock.Any()).Return("", expected)

	cfg := suite.config()
	cfg.TokenSource = tokens

	session, err := Connect(suite.ctx, cfg)
	suite.Nil(session)
	suite.Same(expected, err)
	suite.True(suite.server.WaitForClosed(1, 2*time.Second))
}

func (suite *SessionTestSuite) TestInvalidTokenIsRejectedByServer() {
	cfg := suite.config()
	cfg.TokenSource = auth.NewStaticToken("wrong")

	session, err := Connect(suite.ctx, cfg)
	suite.Require().NoError(err)

	_, err = session.Next(suite.ctx)
	suite.True(IsSessionClosed(err))
}

func (suite *SessionTestSuite) TestInvalidConfig() {
	_, err := Connect(suite.ctx, Config{URL: suite.server.WebSocketURL()})
	suite.True(errors.IsInternal(err))

	_, err = Connect(suite.ctx, Config{URL: suite.server.WebSocketURL(), AccountID: "100000"})
	suite.True(errors.IsInternal(err))
}
