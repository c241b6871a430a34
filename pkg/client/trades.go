package client

import (
	"context"
	"net/http"

	"github.com/rxtech-lab/clearstreet-go/pkg/types"
)

// ListTrades returns the executions of the configured account.
func (c *Client) ListTrades(ctx context.Context) (types.ListTradesResponse, error) {
	path, err := c.accountPath("trades")
	if err != nil {
		return types.ListTradesResponse{}, err
	}

	var response types.ListTradesResponse
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return types.ListTradesResponse{}, err
	}

	return response, nil
}

// GetTrade returns one execution.
func (c *Client) GetTrade(ctx context.Context, tradeID string) (types.Trade, error) {
	path, err := c.accountPath("trades", tradeID)
	if err != nil {
		return types.Trade{}, err
	}

	var trade types.Trade
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &trade); err != nil {
		return types.Trade{}, err
	}

	return trade, nil
}
