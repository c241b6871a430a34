// Package mockserver provides an in-memory brokerage for testing.
// It serves the OAuth2 token endpoint, the Studio v2 REST resources and the
// account activity websocket from a single listener.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	// TokenPath is the path of the token endpoint.
	TokenPath = "/oauth/token"
	// WebSocketPath is the path of the activity endpoint.
	WebSocketPath = "/studio/v2/ws"

	subscribeWait = 5 * time.Second
	writeWait     = 5 * time.Second
)

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// ClientID and ClientSecret are the only credentials the token endpoint accepts.
	ClientID     string
	ClientSecret string
	// StaticToken is accepted as a bearer token without being issued.
	StaticToken string
	// TokenExpiresIn is the lifetime reported for issued tokens in seconds. Defaults to 3600.
	TokenExpiresIn int64
	// Accounts seeds the account list. The first account receives created orders.
	Accounts []types.Account
	// Instruments seeds the instrument lookup, keyed by symbol.
	Instruments map[string]types.Instrument
	// SendAck makes the activity endpoint acknowledge every subscription.
	SendAck bool
	// ReplayOpenOrders sends one order-update per open order after the ack, then replay-complete.
	ReplayOpenOrders bool
	// HeartbeatInterval sends heartbeat frames on every subscribed connection. Zero disables them.
	HeartbeatInterval time.Duration
}

// Subscription is a subscribe request received on the activity endpoint.
type Subscription struct {
	Authorization string
	AccountID     string
}

type wsClient struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	sequence  int64
	accountID string
	done      chan struct{}
}

func (c *wsClient) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// MockClearStreetServer is an in-memory brokerage.
type MockClearStreetServer struct {
	mu sync.RWMutex

	config ServerConfig

	// HTTP server
	httpServer *http.Server
	listener   net.Listener

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Token state
	issuedTokens map[string]bool
	tokenSeq     int64
	tokenStatus  int
	tokenCalls   atomic.Int64

	// Brokerage state
	accounts    []types.Account
	orders      map[string]*types.Order
	orderIDs    []string
	positions   map[string]*types.Position
	trades      []*types.Trade
	instruments map[string]types.Instrument
	requests    atomic.Int64

	// WebSocket connections
	wsConnections map[*websocket.Conn]*wsClient
	wsMu          sync.RWMutex
	subscriptions []Subscription
	closedConns   atomic.Int64
	rejectStatus  int
	pongs         []string
}

// NewMockClearStreetServer creates a new mock server.
func NewMockClearStreetServer(config ServerConfig) *MockClearStreetServer {
	if config.TokenExpiresIn == 0 {
		config.TokenExpiresIn = 3600
	}

	if len(config.Accounts) == 0 {
		config.Accounts = []types.Account{{
			AccountID:     "100000",
			AccountNumber: "CS100000",
			EntityID:      "200000",
			Name:          "Mock Trading Account",
		}}
	}

	server := &MockClearStreetServer{
		mu:     sync.RWMutex{},
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		issuedTokens:  make(map[string]bool),
		accounts:      slices.Clone(config.Accounts),
		orders:        make(map[string]*types.Order),
		positions:     make(map[string]*types.Position),
		trades:        make([]*types.Trade, 0),
		instruments:   make(map[string]types.Instrument),
		wsConnections: make(map[*websocket.Conn]*wsClient),
		wsMu:          sync.RWMutex{},
		httpServer:    nil,
		listener:      nil,
	}

	for symbol, instrument := range config.Instruments {
		server.instruments[types.NormalizeSymbol(symbol)] = instrument
	}

	return server
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockClearStreetServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()

	router.HandleFunc(TokenPath, s.handleToken).Methods(http.MethodPost)
	router.HandleFunc(WebSocketPath, s.handleWebSocket)

	api := router.PathPrefix("/studio/v2").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}", s.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/orders", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{account_id}/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/orders", s.handleCancelAllOrders).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{account_id}/orders/{order_id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/orders/{order_id}", s.handleUpdateOrder).Methods(http.MethodPatch)
	api.HandleFunc("/accounts/{account_id}/orders/{order_id}", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{account_id}/positions", s.handleListPositions).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/positions/{symbol}", s.handleGetPosition).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/trades", s.handleListTrades).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_id}/trades/{trade_id}", s.handleGetTrade).Methods(http.MethodGet)
	api.HandleFunc("/instruments/{symbol}", s.handleGetInstrument).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop closes every websocket and shuts the server down.
func (s *MockClearStreetServer) Stop() error {
	s.DropConnections()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *MockClearStreetServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the REST base URL.
func (s *MockClearStreetServer) BaseURL() string {
	return "http://" + s.Address()
}

// TokenURL returns the token endpoint URL.
func (s *MockClearStreetServer) TokenURL() string {
	return s.BaseURL() + TokenPath
}

// WebSocketURL returns the activity endpoint URL.
func (s *MockClearStreetServer) WebSocketURL() string {
	return "ws://" + s.Address() + WebSocketPath
}

// AccountID returns the id of the first seeded account.
func (s *MockClearStreetServer) AccountID() string {
	return s.config.Accounts[0].AccountID
}

// TokenCalls returns how many times the token endpoint was called.
func (s *MockClearStreetServer) TokenCalls() int {
	return int(s.tokenCalls.Load())
}

// Requests returns how many authenticated REST requests were served.
func (s *MockClearStreetServer) Requests() int {
	return int(s.requests.Load())
}

// SetTokenStatus makes the token endpoint answer with status. Zero restores normal behavior.
func (s *MockClearStreetServer) SetTokenStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenStatus = status
}

// RejectUpgrades makes the activity endpoint refuse upgrades with status. Zero restores normal behavior.
func (s *MockClearStreetServer) RejectUpgrades(status int) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	s.rejectStatus = status
}

// RevokeTokens forgets every issued token.
func (s *MockClearStreetServer) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issuedTokens = make(map[string]bool)
}

// SetPosition stores a position for the first account.
func (s *MockClearStreetServer) SetPosition(symbol string, quantity, averageCost decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.accounts[0]
	symbol = types.NormalizeSymbol(symbol)
	s.positions[symbol] = &types.Position{
		AccountID:     account.AccountID,
		AccountNumber: account.AccountNumber,
		Symbol:        symbol,
		Quantity:      quantity,
		AverageCost:   averageCost,
	}
}

// GetOrder returns a copy of an order.
func (s *MockClearStreetServer) GetOrder(orderID string) (types.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return types.Order{}, false
	}

	return *order, true
}

// Orders returns copies of all orders in creation order.
func (s *MockClearStreetServer) Orders() []types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		result = append(result, *s.orders[id])
	}

	return result
}

// Fill executes quantity of an order at price, records a trade, updates the
// position and pushes trade, position and order frames to subscribers.
func (s *MockClearStreetServer) Fill(orderID string, quantity, price decimal.Decimal) (types.Trade, error) {
	if !quantity.IsPositive() {
		return types.Trade{}, fmt.Errorf("fill quantity must be positive, got %s", quantity)
	}

	s.mu.Lock()

	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()

		return types.Trade{}, fmt.Errorf("order %s not found", orderID)
	}

	if order.State != types.OrderStateOpen {
		s.mu.Unlock()

		return types.Trade{}, fmt.Errorf("order %s is %s", orderID, order.State)
	}

	if quantity.GreaterThan(order.RemainingQuantity()) {
		quantity = order.RemainingQuantity()
	}

	now := time.Now().UnixMilli()
	filled := order.FilledQuantity.Add(quantity)
	order.AveragePrice = order.AveragePrice.Mul(order.FilledQuantity).Add(price.Mul(quantity)).Div(filled)
	order.FilledQuantity = filled
	order.UpdatedAt = now
	order.Version++

	if order.FilledQuantity.Equal(order.Quantity) {
		order.Status = types.OrderStatusFilled
		order.State = types.OrderStateClosed
	} else {
		order.Status = types.OrderStatusPartiallyFilled
	}

	signed := quantity
	if order.Side != types.SideBuy {
		signed = quantity.Neg()
	}

	position, ok := s.positions[order.Symbol]
	if !ok {
		position = &types.Position{
			AccountID:     order.AccountID,
			AccountNumber: order.AccountNumber,
			Symbol:        order.Symbol,
			Quantity:      decimal.Zero,
			AverageCost:   decimal.Zero,
		}
		s.positions[order.Symbol] = position
	}

	if next := position.Quantity.Add(signed); next.IsZero() {
		position.AverageCost = decimal.Zero
		position.Quantity = next
	} else {
		if signed.Sign() == position.Quantity.Sign() || position.Quantity.IsZero() {
			position.AverageCost = position.AverageCost.Mul(position.Quantity).Add(price.Mul(signed)).Div(next)
		}
		position.Quantity = next
	}

	order.RunningPosition = position.Quantity

	trade := &types.Trade{
		CreatedAt:       now,
		AccountID:       order.AccountID,
		AccountNumber:   order.AccountNumber,
		TradeID:         uuid.New().String(),
		OrderID:         order.OrderID,
		Symbol:          order.Symbol,
		Side:            order.Side,
		Quantity:        quantity,
		Price:           price,
		RunningPosition: position.Quantity,
	}
	s.trades = append(s.trades, trade)

	orderCopy, positionCopy, tradeCopy := *order, *position, *trade
	s.mu.Unlock()

	s.PublishTradeNotice(tradeCopy)
	s.PublishPositionUpdate(positionCopy)
	s.PublishOrderUpdate(orderCopy)

	return tradeCopy, nil
}

// REST API Handlers

func (s *MockClearStreetServer) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokenStatus != 0 {
		http.Error(w, `{"error":"forced failure"}`, s.tokenStatus)

		return
	}

	var body struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		Audience     string `json:"audience"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)

		return
	}

	if body.GrantType != "client_credentials" || body.Audience == "" {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)

		return
	}

	if body.ClientID != s.config.ClientID || body.ClientSecret != s.config.ClientSecret {
		http.Error(w, `{"error":"access_denied"}`, http.StatusUnauthorized)

		return
	}

	s.tokenSeq++
	token := fmt.Sprintf("mock-token-%d", s.tokenSeq)
	s.issuedTokens[token] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_in":   s.config.TokenExpiresIn,
		"token_type":   "Bearer",
	})
}

func (s *MockClearStreetServer) validToken(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return false
	}

	return s.issuedTokens[token] || (s.config.StaticToken != "" && token == s.config.StaticToken)
}

func (s *MockClearStreetServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.validToken(token) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)

			return
		}

		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *MockClearStreetServer) account(id string) (types.Account, bool) {
	for _, account := range s.accounts {
		if account.AccountID == id {
			return account, true
		}
	}

	return types.Account{}, false
}

func (s *MockClearStreetServer) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, types.ListAccountsResponse{Data: slices.Clone(s.accounts)})
}

func (s *MockClearStreetServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.account(mux.Vars(r)["account_id"])
	if !ok {
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (s *MockClearStreetServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var params types.CreateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)

		return
	}

	if params.Symbol == "" || !params.Quantity.IsPositive() {
		http.Error(w, `{"error":"symbol and a positive quantity are required"}`, http.StatusBadRequest)

		return
	}

	if params.OrderType == types.OrderTypeLimit && params.Price.IsNone() {
		http.Error(w, `{"error":"limit orders require a price"}`, http.StatusBadRequest)

		return
	}

	s.mu.Lock()

	account, ok := s.account(mux.Vars(r)["account_id"])
	if !ok {
		s.mu.Unlock()
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)

		return
	}

	now := time.Now().UnixMilli()
	order := &types.Order{
		CreatedAt:         now,
		UpdatedAt:         now,
		OrderID:           uuid.New().String(),
		ReferenceID:       params.ReferenceID,
		Version:           1,
		AccountID:         account.AccountID,
		AccountNumber:     account.AccountNumber,
		State:             types.OrderStateOpen,
		Status:            types.OrderStatusNew,
		Symbol:            types.NormalizeSymbol(params.Symbol),
		OrderType:         params.OrderType,
		Side:              params.Side,
		Quantity:          params.Quantity,
		Price:             params.Price,
		StopPrice:         params.StopPrice,
		TimeInForce:       params.TimeInForce,
		AveragePrice:      decimal.Zero,
		FilledQuantity:    decimal.Zero,
		OrderUpdateReason: "place",
		Text:              "",
		Strategy:          params.Strategy,
		RunningPosition:   decimal.Zero,
	}

	if position, ok := s.positions[order.Symbol]; ok {
		order.RunningPosition = position.Quantity
	}

	s.orders[order.OrderID] = order
	s.orderIDs = append(s.orderIDs, order.OrderID)
	created := *order
	s.mu.Unlock()

	s.PublishOrderUpdate(created)

	writeJSON(w, http.StatusCreated, types.CreateOrderResponse{OrderID: created.OrderID})
}

func (s *MockClearStreetServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[mux.Vars(r)["order_id"]]
	if !ok || order.AccountID != mux.Vars(r)["account_id"] {
		http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, http.StatusOK, types.GetOrderResponse{Order: *order})
}

func (s *MockClearStreetServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, _ := strconv.ParseInt(query.Get("from"), 10, 64)
	to, _ := strconv.ParseInt(query.Get("to"), 10, 64)

	s.mu.RLock()
	matched := make([]types.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		order := s.orders[id]
		if order.AccountID != mux.Vars(r)["account_id"] {
			continue
		}
		if from > 0 && order.CreatedAt < from {
			continue
		}
		if to > 0 && order.CreatedAt > to {
			continue
		}
		matched = append(matched, *order)
	}
	s.mu.RUnlock()

	page, next, err := paginate(matched, query.Get("page_size"), query.Get("page_token"))
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)

		return
	}

	response := map[string]any{"data": page}
	if next != "" {
		response["next_page_token"] = next
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *MockClearStreetServer) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var params types.UpdateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)

		return
	}

	s.mu.Lock()

	order, ok := s.orders[mux.Vars(r)["order_id"]]
	if !ok {
		s.mu.Unlock()
		http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)

		return
	}

	if order.State != types.OrderStateOpen {
		s.mu.Unlock()
		http.Error(w, `{"error":"order is not open"}`, http.StatusConflict)

		return
	}

	order.Quantity = params.Quantity
	if params.Price.IsSome() {
		order.Price = params.Price
	}
	if params.StopPrice.IsSome() {
		order.StopPrice = params.StopPrice
	}
	order.Version++
	order.UpdatedAt = time.Now().UnixMilli()
	order.OrderUpdateReason = "replace"
	updated := *order
	s.mu.Unlock()

	s.PublishOrderUpdate(updated)

	w.WriteHeader(http.StatusOK)
}

func (s *MockClearStreetServer) cancel(order *types.Order) {
	order.Status = types.OrderStatusCanceled
	order.State = types.OrderStateClosed
	order.Version++
	order.UpdatedAt = time.Now().UnixMilli()
	order.OrderUpdateReason = "cancel"
}

func (s *MockClearStreetServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()

	order, ok := s.orders[mux.Vars(r)["order_id"]]
	if !ok {
		s.mu.Unlock()
		http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)

		return
	}

	if order.State != types.OrderStateOpen {
		s.mu.Unlock()
		http.Error(w, `{"error":"order is not open"}`, http.StatusConflict)

		return
	}

	s.cancel(order)
	canceled := *order
	s.mu.Unlock()

	s.PublishOrderUpdate(canceled)

	w.WriteHeader(http.StatusOK)
}

func (s *MockClearStreetServer) handleCancelAllOrders(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	s.mu.Lock()
	canceled := make([]types.Order, 0)
	for _, id := range s.orderIDs {
		order := s.orders[id]
		if order.State != types.OrderStateOpen || order.AccountID != mux.Vars(r)["account_id"] {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		s.cancel(order)
		canceled = append(canceled, *order)
	}
	s.mu.Unlock()

	for _, order := range canceled {
		s.PublishOrderUpdate(order)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *MockClearStreetServer) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	positions := make([]types.Position, 0, len(s.positions))
	for _, position := range s.positions {
		if position.AccountID == mux.Vars(r)["account_id"] {
			positions = append(positions, *position)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(positions, func(a, b types.Position) int { return strings.Compare(a.Symbol, b.Symbol) })

	writeJSON(w, http.StatusOK, map[string]any{"data": positions})
}

func (s *MockClearStreetServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.positions[types.NormalizeSymbol(mux.Vars(r)["symbol"])]
	if !ok || position.AccountID != mux.Vars(r)["account_id"] {
		http.Error(w, `{"error":"position not found"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, http.StatusOK, position)
}

func (s *MockClearStreetServer) handleListTrades(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	trades := make([]types.Trade, 0, len(s.trades))
	for _, trade := range s.trades {
		if trade.AccountID == mux.Vars(r)["account_id"] {
			trades = append(trades, *trade)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": trades})
}

func (s *MockClearStreetServer) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, trade := range s.trades {
		if trade.TradeID == mux.Vars(r)["trade_id"] {
			writeJSON(w, http.StatusOK, trade)

			return
		}
	}

	http.Error(w, `{"error":"trade not found"}`, http.StatusNotFound)
}

func (s *MockClearStreetServer) handleGetInstrument(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instrument, ok := s.instruments[types.NormalizeSymbol(mux.Vars(r)["symbol"])]
	if !ok {
		http.Error(w, `{"error":"instrument not found"}`, http.StatusNotFound)

		return
	}

	writeJSON(w, http.StatusOK, instrument)
}

func paginate[T any](items []T, pageSize, pageToken string) ([]T, string, error) {
	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("invalid page_token %q", pageToken)
		}
		offset = min(parsed, len(items))
	}

	size := len(items) - offset
	if pageSize != "" {
		parsed, err := strconv.Atoi(pageSize)
		if err != nil || parsed <= 0 {
			return nil, "", fmt.Errorf("invalid page_size %q", pageSize)
		}
		size = min(parsed, size)
	}

	end := offset + size
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}

	return items[offset:end], next, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
