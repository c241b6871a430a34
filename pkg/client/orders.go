package client

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rxtech-lab/clearstreet-go/pkg/types"
)

// CreateOrder places an order for the configured account. An empty
// ReferenceID is filled with a fresh UUID before validation.
func (c *Client) CreateOrder(ctx context.Context, params types.CreateOrderParams) (types.CreateOrderResponse, error) {
	if params.ReferenceID == "" {
		params.ReferenceID = types.NewReferenceID()
	}

	if err := params.Validate(); err != nil {
		return types.CreateOrderResponse{}, err
	}

	path, err := c.accountPath("orders")
	if err != nil {
		return types.CreateOrderResponse{}, err
	}

	var response types.CreateOrderResponse
	if err := c.call(ctx, http.MethodPost, path, nil, params, &response); err != nil {
		return types.CreateOrderResponse{}, err
	}

	return response, nil
}

// GetOrder returns one order of the configured account.
func (c *Client) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	path, err := c.accountPath("orders", orderID)
	if err != nil {
		return types.Order{}, err
	}

	var response types.GetOrderResponse
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return types.Order{}, err
	}

	return response.Order, nil
}

// ListOrders returns one page of orders.
func (c *Client) ListOrders(ctx context.Context, params types.ListOrdersParams) (types.ListOrdersResponse, error) {
	path, err := c.accountPath("orders")
	if err != nil {
		return types.ListOrdersResponse{}, err
	}

	var response types.ListOrdersResponse
	if err := c.call(ctx, http.MethodGet, path, listOrdersQuery(params), nil, &response); err != nil {
		return types.ListOrdersResponse{}, err
	}

	return response, nil
}

// Orders iterates over every order matching params, following page tokens.
// Iteration stops after the first error.
func (c *Client) Orders(ctx context.Context, params types.ListOrdersParams) iter.Seq2[types.Order, error] {
	return func(yield func(types.Order, error) bool) {
		for {
			page, err := c.ListOrders(ctx, params)
			if err != nil {
				yield(types.Order{}, err)
				return
			}

			for _, order := range page.Data {
				if !yield(order, nil) {
					return
				}
			}

			if page.NextPageToken.IsNone() || page.NextPageToken.Unwrap() == "" {
				return
			}
			params.PageToken = page.NextPageToken.Unwrap()
		}
	}
}

func listOrdersQuery(params types.ListOrdersParams) url.Values {
	query := url.Values{}

	if params.From != 0 {
		query.Set("from", strconv.FormatInt(params.From, 10))
	}
	if params.To != 0 {
		query.Set("to", strconv.FormatInt(params.To, 10))
	}
	if params.PageSize != 0 {
		query.Set("page_size", strconv.FormatInt(params.PageSize, 10))
	}
	if params.PageToken != "" {
		query.Set("page_token", params.PageToken)
	}

	return query
}

// UpdateOrder replaces the quantity and prices of an open order.
func (c *Client) UpdateOrder(ctx context.Context, orderID string, params types.UpdateOrderParams) error {
	path, err := c.accountPath("orders", orderID)
	if err != nil {
		return err
	}

	return c.call(ctx, http.MethodPatch, path, nil, params, nil)
}

// CancelOrder cancels one order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path, err := c.accountPath("orders", orderID)
	if err != nil {
		return err
	}

	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CancelAllOrders cancels every open order, or only those for symbol when it is not empty.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	path, err := c.accountPath("orders")
	if err != nil {
		return err
	}

	var query url.Values
	if symbol = types.NormalizeSymbol(symbol); symbol != "" {
		query = url.Values{"symbol": []string{symbol}}
	}

	return c.call(ctx, http.MethodDelete, path, query, nil, nil)
}
