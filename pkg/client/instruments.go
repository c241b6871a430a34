package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rxtech-lab/clearstreet-go/pkg/types"
)

// GetInstrument looks up reference data for a symbol.
func (c *Client) GetInstrument(ctx context.Context, symbol string) (types.Instrument, error) {
	path := "/studio/v2/instruments/" + url.PathEscape(types.NormalizeSymbol(symbol))

	var instrument types.Instrument
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &instrument); err != nil {
		return types.Instrument{}, err
	}

	return instrument, nil
}
