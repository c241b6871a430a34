package types

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type Account struct {
	AccountID     string `json:"account_id"`
	AccountNumber string `json:"account_number"`
	EntityID      string `json:"entity_id"`
	Name          string `json:"name"`
}

type ListAccountsResponse struct {
	Data []Account `json:"data"`
}

type Position struct {
	AccountID     string          `json:"account_id"`
	AccountNumber string          `json:"account_number"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AverageCost   decimal.Decimal `json:"average_cost"`
}

// MarketValue values the position at the given price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

type ListPositionsResponse struct {
	Data          []Position              `json:"data"`
	NextPageToken optional.Option[string] `json:"next_page_token,omitempty"`
}

// Trade is one execution against an order.
type Trade struct {
	CreatedAt       int64           `json:"created_at"`
	AccountID       string          `json:"account_id"`
	AccountNumber   string          `json:"account_number"`
	TradeID         string          `json:"trade_id"`
	OrderID         string          `json:"order_id"`
	Symbol          string          `json:"symbol"`
	Side            Side            `json:"side"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	RunningPosition decimal.Decimal `json:"running_position"`
}

// Notional is quantity times price.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

type ListTradesResponse struct {
	Data          []Trade                 `json:"data"`
	NextPageToken optional.Option[string] `json:"next_page_token,omitempty"`
}

type SymbolDetail struct {
	Symbol       string       `json:"symbol"`
	SymbolFormat SymbolFormat `json:"symbol_format"`
}

type Instrument struct {
	Symbols         []SymbolDetail `json:"symbols"`
	AssetClass      string         `json:"asset_class"`
	PrimaryExchange string         `json:"primary_exchange"`
	Description     string         `json:"description"`
}
