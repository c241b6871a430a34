package client

import (
	"context"
	"net/http"

	"github.com/rxtech-lab/clearstreet-go/pkg/types"
)

// ListAccounts returns every account the credentials can see.
func (c *Client) ListAccounts(ctx context.Context) ([]types.Account, error) {
	var response types.ListAccountsResponse
	if err := c.call(ctx, http.MethodGet, "/studio/v2/accounts", nil, nil, &response); err != nil {
		return nil, err
	}

	return response.Data, nil
}

// GetAccount returns one account by id.
func (c *Client) GetAccount(ctx context.Context, accountID string) (types.Account, error) {
	var account types.Account
	if err := c.call(ctx, http.MethodGet, accountPath(accountID), nil, nil, &account); err != nil {
		return types.Account{}, err
	}

	return account, nil
}
