package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/clearstreet-go/internal/version"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "clearstreet",
		Usage:   "Trade and watch account activity on Clear Street Studio",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or JSON options file",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Dotenv files holding CLEARSTREET_* variables (defaults to .env when present)",
			},
			&cli.StringFlag{
				Name:    "account",
				Aliases: []string{"a"},
				Usage:   "Account id, overriding the configured one",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level written to stderr: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "token",
				Usage:  "Fetch an access token and print it",
				Action: tokenAction,
			},
			{
				Name:   "accounts",
				Usage:  "List accounts, or show one when an id is given",
				Action: accountsAction,
			},
			ordersCommand(),
			{
				Name:   "positions",
				Usage:  "List positions, or show one when a symbol is given",
				Action: positionsAction,
			},
			{
				Name:   "trades",
				Usage:  "List trades, or show one when an id is given",
				Action: tradesAction,
			},
			{
				Name:      "instrument",
				Usage:     "Show reference data for a symbol",
				ArgsUsage: "SYMBOL",
				Action:    instrumentAction,
			},
			{
				Name:  "stream",
				Usage: "Print account activity as JSON lines until interrupted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Use a single session and exit when it ends instead of reconnecting",
					},
					&cli.IntFlag{
						Name:  "buffer",
						Usage: "Capacity of the message buffer",
						Value: 256,
					},
				},
				Action: streamAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the options file",
				Action: schemaAction,
			},
		},
	}
}

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "Place, inspect and cancel orders",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List orders",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "from", Usage: "Only orders created at or after this epoch millisecond"},
					&cli.IntFlag{Name: "to", Usage: "Only orders created at or before this epoch millisecond"},
					&cli.IntFlag{Name: "page-size", Usage: "Orders requested per page"},
					&cli.BoolFlag{Name: "all", Usage: "Follow page tokens until the last page"},
				},
				Action: listOrdersAction,
			},
			{
				Name:      "get",
				Usage:     "Show one order",
				ArgsUsage: "ORDER_ID",
				Action:    getOrderAction,
			},
			{
				Name:  "create",
				Usage: "Place an order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Required: true},
					&cli.StringFlag{Name: "side", Usage: "buy, sell or sell-short", Value: "buy"},
					&cli.StringFlag{Name: "type", Usage: "market, limit, stop or stop-limit", Value: "market"},
					&cli.StringFlag{Name: "quantity", Aliases: []string{"q"}, Required: true},
					&cli.StringFlag{Name: "price"},
					&cli.StringFlag{Name: "stop-price"},
					&cli.StringFlag{Name: "tif", Usage: "day, ioc, day-plus, at-open or at-close", Value: "day"},
					&cli.StringFlag{Name: "destination", Usage: "Route directly to this venue instead of smart order routing"},
					&cli.StringFlag{Name: "urgency", Usage: "Smart order routing urgency"},
					&cli.StringFlag{Name: "reference-id", Usage: "Client reference id (a UUID is generated when empty)"},
				},
				Action: createOrderAction,
			},
			{
				Name:      "replace",
				Usage:     "Change the quantity or prices of an open order",
				ArgsUsage: "ORDER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "quantity", Aliases: []string{"q"}, Required: true},
					&cli.StringFlag{Name: "price"},
					&cli.StringFlag{Name: "stop-price"},
				},
				Action: replaceOrderAction,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel one order",
				ArgsUsage: "ORDER_ID",
				Action:    cancelOrderAction,
			},
			{
				Name:  "cancel-all",
				Usage: "Cancel every open order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "symbol", Usage: "Only cancel orders for this symbol"},
				},
				Action: cancelAllOrdersAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
