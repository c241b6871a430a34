package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/shopspring/decimal"
)

// Order is an order as reported by the REST API and by order-update frames.
// Timestamps are epoch milliseconds.
type Order struct {
	CreatedAt         int64                            `json:"created_at"`
	UpdatedAt         int64                            `json:"updated_at"`
	OrderID           string                           `json:"order_id"`
	ReferenceID       string                           `json:"reference_id"`
	Version           int64                            `json:"version"`
	AccountID         string                           `json:"account_id"`
	AccountNumber     string                           `json:"account_number"`
	State             OrderState                       `json:"state"`
	Status            OrderStatus                      `json:"status"`
	Symbol            string                           `json:"symbol"`
	OrderType         OrderType                        `json:"order_type"`
	Side              Side                             `json:"side"`
	Quantity          decimal.Decimal                  `json:"quantity"`
	Price             optional.Option[decimal.Decimal] `json:"price,omitempty"`
	StopPrice         optional.Option[decimal.Decimal] `json:"stop_price,omitempty"`
	TimeInForce       TimeInForce                      `json:"time_in_force"`
	AveragePrice      decimal.Decimal                  `json:"average_price"`
	FilledQuantity    decimal.Decimal                  `json:"filled_quantity"`
	OrderUpdateReason string                           `json:"order_update_reason"`
	Text              string                           `json:"text"`
	Strategy          Strategy                         `json:"strategy"`
	RunningPosition   decimal.Decimal                  `json:"running_position"`
}

// RemainingQuantity is the part of the order not filled yet.
func (o Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// CreateOrderParams is the body of a new order request.
type CreateOrderParams struct {
	ReferenceID  string                           `json:"reference_id" validate:"required"`
	OrderType    OrderType                        `json:"order_type" validate:"required,oneof=market limit stop stop-limit"`
	Side         Side                             `json:"side" validate:"required,oneof=buy sell sell-short"`
	Quantity     decimal.Decimal                  `json:"quantity"`
	Price        optional.Option[decimal.Decimal] `json:"price,omitempty"`
	StopPrice    optional.Option[decimal.Decimal] `json:"stop_price,omitempty"`
	TimeInForce  TimeInForce                      `json:"time_in_force" validate:"required,oneof=day ioc day-plus at-open at-close"`
	Symbol       string                           `json:"symbol" validate:"required"`
	SymbolFormat SymbolFormat                     `json:"symbol_format" validate:"required,oneof=cms osi"`
	Strategy     Strategy                         `json:"strategy"`
}

// NewReferenceID returns a fresh client-side reference id for an order.
func NewReferenceID() string {
	return uuid.NewString()
}

// Validate checks that the request is well-formed. It does not apply trading rules.
func (p *CreateOrderParams) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeSerialization, "invalid create order params", err)
	}

	if p.Quantity.IsZero() {
		return errors.New(errors.ErrCodeSerialization, "invalid create order params: quantity is required")
	}

	if p.Strategy.Type == "" {
		return errors.New(errors.ErrCodeSerialization, "invalid create order params: strategy is required")
	}

	return nil
}

// CreateOrderResponse is returned by a successful create.
type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
}

// GetOrderResponse wraps a single order.
type GetOrderResponse struct {
	Order Order `json:"order"`
}

// ListOrdersParams filters an order listing. Zero values are not sent.
type ListOrdersParams struct {
	From      int64
	To        int64
	PageSize  int64
	PageToken string
}

// ListOrdersResponse is one page of orders.
type ListOrdersResponse struct {
	Data          []Order                 `json:"data"`
	NextPageToken optional.Option[string] `json:"next_page_token,omitempty"`
}

// UpdateOrderParams is the body of an order replace request.
type UpdateOrderParams struct {
	Quantity  decimal.Decimal                  `json:"quantity"`
	Price     optional.Option[decimal.Decimal] `json:"price,omitempty"`
	StopPrice optional.Option[decimal.Decimal] `json:"stop_price,omitempty"`
}

// NormalizeSymbol upper-cases a ticker the way the API expects it in query strings.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
