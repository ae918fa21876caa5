package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"planpay/internal/catalog"
	"planpay/internal/checkout"
	"planpay/internal/env"
	"planpay/internal/logger"
	"planpay/internal/selector"
	"planpay/internal/widget"
)

func main() {
	gin.SetMode(gin.ReleaseMode)
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "planpay:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "planpay",
		Usage: "Pick a plan and pay for it through Razorpay Checkout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "planpay-server base URL",
				Value:   "http://localhost:5000",
				EnvVars: []string{"PLANPAY_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "key-id",
				Usage:   "Razorpay key id (fetched from the server when empty)",
				EnvVars: []string{"RAZORPAY_KEY_ID", "NEXT_PUBLIC_RAZORPAY_KEY_ID"},
			},
			&cli.StringFlag{
				Name:  "merchant",
				Usage: "Merchant name shown in the checkout",
				Value: "My App Inc.",
			},
			&cli.StringFlag{
				Name:  "script-url",
				Usage: "Checkout script URL",
				Value: widget.DefaultScriptURL,
			},
			&cli.DurationFlag{
				Name:  "order-timeout",
				Usage: "Order request timeout (0 = none)",
				Value: 30 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "widget-timeout",
				Usage: "How long to wait for the checkout to finish (0 = none)",
				Value: 15 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-verify",
				Usage: "Trust the checkout result without server-side signature verification",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the checkout URL instead of opening a browser",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log diagnostics to stderr",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "JSON diagnostics (with --verbose)",
			},
		},
		Before: func(c *cli.Context) error {
			return env.Load(".env", ".env.local")
		},
		Action: interactive,
		Commands: []*cli.Command{
			{
				Name:   "plans",
				Usage:  "List available plans",
				Action: listPlans,
			},
			{
				Name:  "buy",
				Usage: "Pay for one plan without the interactive selector",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "plan",
						Aliases:  []string{"p"},
						Usage:    "Plan id, e.g. plan_basic",
						Required: true,
					},
				},
				Action: buy,
			},
		},
	}
}

type deps struct {
	api    *checkout.HTTPClient
	cat    *catalog.Catalog
	loader *widget.ScriptLoader
	orch   *checkout.Orchestrator
	log    logger.Logger
}

func setup(ctx context.Context, c *cli.Context, out io.Writer) (*deps, error) {
	log := logger.Nop()
	if c.Bool("verbose") {
		l, err := logger.New(c.Bool("log-json"))
		if err != nil {
			return nil, err
		}
		log = l
	}

	api := checkout.NewHTTPClient(c.String("server"), nil)
	plans, err := api.Plans(ctx)
	if err != nil {
		log.Warn("plan list unavailable, using built-in plans", "error", err)
		plans = catalog.Default()
	}
	cat, err := catalog.New(plans)
	if err != nil {
		return nil, err
	}

	key := c.String("key-id")
	if key == "" {
		cfg, err := api.CheckoutConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch checkout config: %w", err)
		}
		key = cfg.PublicKey
	}

	noBrowser := c.Bool("no-browser")
	loader := widget.NewScriptLoader(c.String("script-url"), func(script []byte) checkout.Widget {
		w := widget.NewBrowserWidget(script, out, log)
		if noBrowser {
			w.Launch = nil
		}
		return w
	}, log)

	opts := checkout.Options{
		PublicKey:     key,
		MerchantName:  c.String("merchant"),
		OrderTimeout:  c.Duration("order-timeout"),
		WidgetTimeout: c.Duration("widget-timeout"),
		Log:           log,
	}
	if !c.Bool("no-verify") {
		opts.Verifier = api
	}
	return &deps{
		api:    api,
		cat:    cat,
		loader: loader,
		orch:   checkout.New(cat, api, loader, opts),
		log:    log,
	}, nil
}

func listPlans(c *cli.Context) error {
	api := checkout.NewHTTPClient(c.String("server"), nil)
	plans, err := api.Plans(c.Context)
	if err != nil {
		return err
	}
	for _, p := range plans {
		fmt.Fprintf(c.App.Writer, "%-12s %-8s %s\n", p.ID, p.Name, selector.FormatRupees(p.Price))
		for _, f := range p.Features {
			fmt.Fprintf(c.App.Writer, "    - %s\n", f)
		}
	}
	return nil
}

func buy(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	d, err := setup(ctx, c, c.App.Writer)
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()
	d.loader.Preload()

	snap, err := d.orch.Confirm(ctx, c.String("plan"))
	if err != nil {
		return err
	}
	switch snap.Result.Kind {
	case checkout.ResultSuccess:
		fmt.Fprintf(c.App.Writer, "Payment Verified\nPayment ID: %s\n", snap.Result.PaymentID)
		return nil
	case checkout.ResultCancelled:
		return cli.Exit("checkout closed", 2)
	default:
		return cli.Exit("payment failed: "+snap.Result.Reason, 1)
	}
}

func interactive(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := c.App.Writer
	d, err := setup(ctx, c, out)
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()

	sel, err := selector.New(d.cat.All())
	if err != nil {
		return err
	}
	s := newSession(sel, d.orch, out)
	s.started = d.loader.Preload
	lines := make(chan string)
	go readLines(os.Stdin, lines)

	s.run(ctx, lines)
	return nil
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
}
