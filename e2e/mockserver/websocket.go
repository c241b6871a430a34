package mockserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
)

type subscribeFrame struct {
	Authorization string `json:"authorization"`
	Payload       struct {
		Type      string `json:"type"`
		AccountID string `json:"account_id"`
	} `json:"payload"`
}

// handleWebSocket upgrades the connection, waits for the subscribe request and
// keeps the client registered until the connection ends.
func (s *MockClearStreetServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsMu.RLock()
	rejectStatus := s.rejectStatus
	s.wsMu.RUnlock()

	if rejectStatus != 0 {
		http.Error(w, `{"error":"upgrade rejected"}`, rejectStatus)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{
		conn: conn,
		done: make(chan struct{}),
	}

	defer func() {
		close(client.done)

		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()

		conn.Close()
		s.closedConns.Add(1)
	}()

	conn.SetPongHandler(func(appData string) error {
		s.wsMu.Lock()
		s.pongs = append(s.pongs, appData)
		s.wsMu.Unlock()

		return nil
	})

	_ = conn.SetReadDeadline(time.Now().Add(subscribeWait))

	var subscribe subscribeFrame
	if err := conn.ReadJSON(&subscribe); err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Time{})

	if subscribe.Payload.Type != "subscribe-activity" || !s.validToken(subscribe.Authorization) {
		client.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid subscription"),
			time.Now().Add(writeWait),
		)
		client.writeMu.Unlock()

		return
	}

	client.accountID = subscribe.Payload.AccountID

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, Subscription{
		Authorization: subscribe.Authorization,
		AccountID:     subscribe.Payload.AccountID,
	})
	s.mu.Unlock()

	if s.config.SendAck {
		_ = client.write(frame(0, false, map[string]any{
			"type":       "subscribe-activity-ack",
			"account_id": client.accountID,
			"success":    true,
			"details":    "subscribed",
		}))
	}

	if s.config.ReplayOpenOrders {
		for _, order := range s.Orders() {
			if order.State == types.OrderStateOpen && order.AccountID == client.accountID {
				_ = s.send(client, true, map[string]any{"type": "order-update", "data": order})
			}
		}
		_ = client.write(frame(0, false, map[string]any{"type": "replay-complete"}))
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = client
	s.wsMu.Unlock()

	if s.config.HeartbeatInterval > 0 {
		go s.heartbeat(client)
	}

	// Drain until the client goes away. Control frames are handled by gorilla.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *MockClearStreetServer) heartbeat(client *wsClient) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-ticker.C:
			if err := client.write(frame(0, false, map[string]any{"type": "heartbeat"})); err != nil {
				return
			}
		}
	}
}

func frame(sequence int64, sequenced bool, payload map[string]any) []byte {
	envelope := map[string]any{
		"timestamp": time.Now().UnixMilli(),
		"payload":   payload,
	}
	if sequenced {
		envelope["sequence"] = sequence
	}

	data, _ := json.Marshal(envelope)

	return data
}

func (s *MockClearStreetServer) send(client *wsClient, sequenced bool, payload map[string]any) error {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	var sequence int64
	if sequenced {
		client.sequence++
		sequence = client.sequence
	}

	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return client.conn.WriteMessage(websocket.TextMessage, frame(sequence, sequenced, payload))
}

func (s *MockClearStreetServer) clients() []*wsClient {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()

	clients := make([]*wsClient, 0, len(s.wsConnections))
	for _, client := range s.wsConnections {
		clients = append(clients, client)
	}

	return clients
}

func (s *MockClearStreetServer) publish(accountID string, sequenced bool, payload map[string]any) {
	for _, client := range s.clients() {
		if accountID != "" && client.accountID != accountID {
			continue
		}
		_ = s.send(client, sequenced, payload)
	}
}

// PublishOrderUpdate pushes an order-update to subscribers of the order's account.
func (s *MockClearStreetServer) PublishOrderUpdate(order types.Order) {
	s.publish(order.AccountID, true, map[string]any{"type": "order-update", "data": order})
}

// PublishTradeNotice pushes a trade-notice to subscribers of the trade's account.
func (s *MockClearStreetServer) PublishTradeNotice(trade types.Trade) {
	s.publish(trade.AccountID, true, map[string]any{"type": "trade-notice", "data": trade})
}

// PublishPositionUpdate pushes a position-update to subscribers of the position's account.
func (s *MockClearStreetServer) PublishPositionUpdate(position types.Position) {
	s.publish(position.AccountID, true, map[string]any{"type": "position-update", "data": position})
}

// PublishBuyingPower pushes a buying-power-update.
func (s *MockClearStreetServer) PublishBuyingPower(accountID string, buyingPower decimal.Decimal) {
	s.publish(accountID, true, map[string]any{
		"type":         "buying-power-update",
		"account_id":   accountID,
		"buying_power": buyingPower,
	})
}

// PublishLocateInventory pushes a locate-inventory-update.
func (s *MockClearStreetServer) PublishLocateInventory(accountID, symbol string, quantity decimal.Decimal) {
	s.publish(accountID, true, map[string]any{
		"type":       "locate-inventory-update",
		"account_id": accountID,
		"symbol":     symbol,
		"quantity":   quantity,
	})
}

// PublishErrorNotice pushes an error-notice to every subscriber.
func (s *MockClearStreetServer) PublishErrorNotice(code, message string) {
	s.publish("", true, map[string]any{
		"type":    "error-notice",
		"code":    code,
		"message": message,
	})
}

// PublishHeartbeat pushes a heartbeat to every subscriber.
func (s *MockClearStreetServer) PublishHeartbeat() {
	s.publish("", false, map[string]any{"type": "heartbeat"})
}

// SendRaw writes frame unchanged to every subscriber.
func (s *MockClearStreetServer) SendRaw(frame string) {
	for _, client := range s.clients() {
		_ = client.write([]byte(frame))
	}
}

// SendPing sends a ping control frame with appData to every subscriber.
func (s *MockClearStreetServer) SendPing(appData string) {
	for _, client := range s.clients() {
		client.writeMu.Lock()
		_ = client.conn.WriteControl(websocket.PingMessage, []byte(appData), time.Now().Add(writeWait))
		client.writeMu.Unlock()
	}
}

// Pongs returns the application data of every pong received so far.
func (s *MockClearStreetServer) Pongs() []string {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()

	result := make([]string, len(s.pongs))
	copy(result, s.pongs)

	return result
}

// DropConnections closes every subscriber socket without a close handshake.
func (s *MockClearStreetServer) DropConnections() {
	for _, client := range s.clients() {
		_ = client.conn.Close()
	}
}

// Subscriptions returns every subscribe request received so far.
func (s *MockClearStreetServer) Subscriptions() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Subscription, len(s.subscriptions))
	copy(result, s.subscriptions)

	return result
}

// ActiveConnections returns the number of subscribed connections.
func (s *MockClearStreetServer) ActiveConnections() int {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()

	return len(s.wsConnections)
}

// ClosedConnections returns how many websocket connections have ended.
func (s *MockClearStreetServer) ClosedConnections() int {
	return int(s.closedConns.Load())
}

// WaitForSubscribers blocks until n connections are subscribed or timeout elapses.
func (s *MockClearStreetServer) WaitForSubscribers(n int, timeout time.Duration) bool {
	return waitFor(timeout, func() bool { return s.ActiveConnections() >= n })
}

// WaitForClosed blocks until n connections have ended or timeout elapses.
func (s *MockClearStreetServer) WaitForClosed(n int, timeout time.Duration) bool {
	return waitFor(timeout, func() bool { return s.ClosedConnections() >= n })
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}

	return condition()
}
