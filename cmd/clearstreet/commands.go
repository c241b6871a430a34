package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/clearstreet-go/internal/logger"
	"github.com/rxtech-lab/clearstreet-go/pkg/client"
	"github.com/rxtech-lab/clearstreet-go/pkg/stream"
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// loadOptions resolves options from --config or the environment, then applies flag overrides.
func loadOptions(cmd *cli.Command) (client.Options, error) {
	var (
		options client.Options
		err     error
	)

	if path := cmd.String("config"); path != "" {
		options, err = client.LoadOptionsFile(path)
		if err != nil {
			return client.Options{}, err
		}

		if err := options.ApplyEnv(); err != nil {
			return client.Options{}, err
		}
	} else {
		options, err = client.LoadOptionsFromEnv(cmd.StringSlice("env-file")...)
		if err != nil {
			return client.Options{}, err
		}
	}

	if account := cmd.String("account"); account != "" {
		options.AccountID = account
	}

	if level := cmd.String("log-level"); level != "" {
		options.LogLevel = level
	}

	return options, nil
}

func newClient(ctx context.Context, cmd *cli.Command) (*client.Client, *logger.Logger, error) {
	options, err := loadOptions(cmd)
	if err != nil {
		return nil, nil, err
	}

	level := options.LogLevel
	if level == "" {
		level = "info"
	}

	log, err := logger.NewLoggerWithLevel(level, "stderr")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c, err := client.New(ctx, options, client.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	return c, log, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() < 1 || cmd.Args().First() == "" {
		return "", fmt.Errorf("%s is required", name)
	}

	return cmd.Args().First(), nil
}

func optionalDecimal(cmd *cli.Command, name string) (optional.Option[decimal.Decimal], error) {
	raw := cmd.String(name)
	if raw == "" {
		return optional.None[decimal.Decimal](), nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}

	return optional.Some(value), nil
}

func tokenAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output(cmd), token)

	return err
}

func accountsAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Args().Len() > 0 {
		account, err := c.GetAccount(ctx, cmd.Args().First())
		if err != nil {
			return err
		}

		return printJSON(output(cmd), account)
	}

	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return err
	}

	return printJSON(output(cmd), accounts)
}

func listOrdersAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	params := types.ListOrdersParams{
		From:      int64(cmd.Int("from")),
		To:        int64(cmd.Int("to")),
		PageSize:  int64(cmd.Int("page-size")),
		PageToken: "",
	}

	if !cmd.Bool("all") {
		page, err := c.ListOrders(ctx, params)
		if err != nil {
			return err
		}

		return printJSON(output(cmd), page)
	}

	orders := make([]types.Order, 0)
	for order, err := range c.Orders(ctx, params) {
		if err != nil {
			return err
		}
		orders = append(orders, order)
	}

	return printJSON(output(cmd), orders)
}

func getOrderAction(ctx context.Context, cmd *cli.Command) error {
	orderID, err := requireArg(cmd, "ORDER_ID")
	if err != nil {
		return err
	}

	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	return printJSON(output(cmd), order)
}

func createOrderAction(ctx context.Context, cmd *cli.Command) error {
	quantity, err := decimal.NewFromString(cmd.String("quantity"))
	if err != nil {
		return fmt.Errorf("invalid --quantity %q: %w", cmd.String("quantity"), err)
	}

	price, err := optionalDecimal(cmd, "price")
	if err != nil {
		return err
	}

	stopPrice, err := optionalDecimal(cmd, "stop-price")
	if err != nil {
		return err
	}

	strategy := types.SmartOrderRoute()
	if destination := cmd.String("destination"); destination != "" {
		strategy = types.DirectMarketAccess(types.Destination(destination))
	} else if urgency := cmd.String("urgency"); urgency != "" {
		strategy = strategy.WithUrgency(types.Urgency(urgency))
	}

	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	response, err := c.CreateOrder(ctx, types.CreateOrderParams{
		ReferenceID:  cmd.String("reference-id"),
		OrderType:    types.OrderType(cmd.String("type")),
		Side:         types.Side(cmd.String("side")),
		Quantity:     quantity,
		Price:        price,
		StopPrice:    stopPrice,
		TimeInForce:  types.TimeInForce(cmd.String("tif")),
		Symbol:       types.NormalizeSymbol(cmd.String("symbol")),
		SymbolFormat: types.SymbolFormatCMS,
		Strategy:     strategy,
	})
	if err != nil {
		return err
	}

	return printJSON(output(cmd), response)
}

func replaceOrderAction(ctx context.Context, cmd *cli.Command) error {
	orderID, err := requireArg(cmd, "ORDER_ID")
	if err != nil {
		return err
	}

	quantity, err := decimal.NewFromString(cmd.String("quantity"))
	if err != nil {
		return fmt.Errorf("invalid --quantity %q: %w", cmd.String("quantity"), err)
	}

	price, err := optionalDecimal(cmd, "price")
	if err != nil {
		return err
	}

	stopPrice, err := optionalDecimal(cmd, "stop-price")
	if err != nil {
		return err
	}

	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	return c.UpdateOrder(ctx, orderID, types.UpdateOrderParams{
		Quantity:  quantity,
		Price:     price,
		StopPrice: stopPrice,
	})
}

func cancelOrderAction(ctx context.Context, cmd *cli.Command) error {
	orderID, err := requireArg(cmd, "ORDER_ID")
	if err != nil {
		return err
	}

	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	return c.CancelOrder(ctx, orderID)
}

func cancelAllOrdersAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	return c.CancelAllOrders(ctx, cmd.String("symbol"))
}

func positionsAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Args().Len() > 0 {
		position, err := c.GetPosition(ctx, cmd.Args().First())
		if err != nil {
			return err
		}

		return printJSON(output(cmd), position)
	}

	positions, err := c.ListPositions(ctx)
	if err != nil {
		return err
	}

	return printJSON(output(cmd), positions)
}

func tradesAction(ctx context.Context, cmd *cli.Command) error {
	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Args().Len() > 0 {
		trade, err := c.GetTrade(ctx, cmd.Args().First())
		if err != nil {
			return err
		}

		return printJSON(output(cmd), trade)
	}

	trades, err := c.ListTrades(ctx)
	if err != nil {
		return err
	}

	return printJSON(output(cmd), trades)
}

func instrumentAction(ctx context.Context, cmd *cli.Command) error {
	symbol, err := requireArg(cmd, "SYMBOL")
	if err != nil {
		return err
	}

	c, _, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	instrument, err := c.GetInstrument(ctx, symbol)
	if err != nil {
		return err
	}

	return printJSON(output(cmd), instrument)
}

type streamLine struct {
	Session uint64                 `json:"session,omitempty"`
	Type    stream.PayloadType     `json:"type"`
	Message stream.ActivityMessage `json:"message"`
}

func streamAction(ctx context.Context, cmd *cli.Command) error {
	c, log, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(output(cmd))

	if cmd.Bool("once") {
		session, err := c.Connect(ctx)
		if err != nil {
			return err
		}

		for msg, err := range session.Messages(ctx) {
			if err != nil {
				if stream.IsSessionClosed(err) {
					if ctx.Err() != nil {
						return nil
					}

					return err
				}

				log.Warn("Skipping undecodable frame", zap.Error(err))

				continue
			}

			if err := encoder.Encode(streamLine{Session: 1, Type: msg.PayloadType(), Message: msg}); err != nil {
				return err
			}
		}

		return nil
	}

	feed := c.Subscribe(ctx, stream.WithBuffer(int(cmd.Int("buffer"))))
	defer feed.Close()

	for msg := range feed.Messages() {
		line := streamLine{Session: feed.Sessions(), Type: msg.PayloadType(), Message: msg}
		if err := encoder.Encode(line); err != nil {
			return err
		}
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := client.OptionsSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output(cmd), schema)

	return err
}
