package client

import (
	"context"
	"net/http"

	"github.com/rxtech-lab/clearstreet-go/pkg/types"
)

// ListPositions returns the positions of the configured account.
func (c *Client) ListPositions(ctx context.Context) (types.ListPositionsResponse, error) {
	path, err := c.accountPath("positions")
	if err != nil {
		return types.ListPositionsResponse{}, err
	}

	var response types.ListPositionsResponse
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return types.ListPositionsResponse{}, err
	}

	return response, nil
}

// GetPosition returns the position in one symbol.
func (c *Client) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	path, err := c.accountPath("positions", types.NormalizeSymbol(symbol))
	if err != nil {
		return types.Position{}, err
	}

	var position types.Position
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &position); err != nil {
		return types.Position{}, err
	}

	return position, nil
}
