package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skm-mango/storefront/internal/client"
	"github.com/skm-mango/storefront/internal/dispatch"
	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/platform/config"
	"github.com/skm-mango/storefront/internal/platform/localstore"
	"github.com/skm-mango/storefront/internal/platform/observability"
	"github.com/skm-mango/storefront/internal/session"
)

const (
	exitOK       = 0
	exitFailures = 1
	exitAborted  = 2
)

type options struct {
	sheet       string
	quickFill   string
	concurrency int
	timeout     time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(exitFailures)
	}

	code := run(ctx, os.Args[1:], os.Stdout, logger.Named("dispatcher"))
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out io.Writer, logger *zap.Logger) int {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(out, "configuration error: %v\n", err)
		return exitFailures
	}

	opts, err := parseFlags(args, cfg)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return exitFailures
	}

	tokens, closeTokens, err := tokenSource(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(out, "authentication error: %v\n", err)
		return exitFailures
	}
	defer closeTokens()

	api, err := client.New(cfg.BaseURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithTokenSource(tokens),
		client.WithLogger(logger.Named("client")),
	)
	if err != nil {
		fmt.Fprintf(out, "client error: %v\n", err)
		return exitFailures
	}

	var (
		orders []domain.Order
		rows   []sheetRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := api.ListOrders(gctx, client.AdminOrderFilter{Status: domain.OrderStatusConfirmed})
		if err != nil {
			return fmt.Errorf("load confirmed orders: %w", err)
		}
		orders = loaded
		return nil
	})
	g.Go(func() error {
		file, err := os.Open(opts.sheet)
		if err != nil {
			return fmt.Errorf("open dispatch sheet: %w", err)
		}
		defer file.Close()
		parsed, err := readSheet(file)
		if err != nil {
			return err
		}
		rows = parsed
		return nil
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return exitFailures
	}

	coord := dispatch.NewCoordinator(api,
		dispatch.WithConcurrency(opts.concurrency),
		dispatch.WithOrderTimeout(opts.timeout),
		dispatch.WithLogger(logger),
	)
	loaded := coord.Load(orders)
	applied, skipped := applySheet(coord, rows, logger)
	fmt.Fprintf(out, "loaded %d confirmed order(s), applied %d sheet row(s)\n", loaded, applied)
	for _, id := range skipped {
		fmt.Fprintf(out, "skipped %s: not a confirmed order\n", id)
	}
	if opts.quickFill != "" {
		touched := coord.ApplyQuickFill(opts.quickFill)
		fmt.Fprintf(out, "quick fill %q applied to %d order(s)\n", opts.quickFill, touched)
	}

	summary, err := coord.DispatchBatch(ctx)
	return report(out, summary, err)
}

func parseFlags(args []string, cfg config.ClientConfig) (options, error) {
	fs := flag.NewFlagSet("dispatcher", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.sheet, "sheet", "", "CSV sheet with order_id,selected,courier_name,tracking_id")
	fs.StringVar(&opts.quickFill, "quick-fill", "", "courier name applied to every selected order")
	fs.IntVar(&opts.concurrency, "concurrency", cfg.Concurrency, "orders dispatched in parallel")
	fs.DurationVar(&opts.timeout, "timeout", cfg.OrderTimeout, "time allowed per order")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.sheet = strings.TrimSpace(opts.sheet)
	opts.quickFill = strings.TrimSpace(opts.quickFill)
	if opts.sheet == "" {
		return options{}, errors.New("-sheet is required")
	}
	if opts.concurrency <= 0 {
		return options{}, errors.New("-concurrency must be positive")
	}
	return opts, nil
}

// tokenSource prefers STOREFRONT_TOKEN and falls back to the session stored by earlier logins.
func tokenSource(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) (client.TokenSource, func(), error) {
	if token := strings.TrimSpace(cfg.Token); token != "" {
		return client.StaticToken(token), func() {}, nil
	}
	store, err := localstore.OpenBolt(cfg.StatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Warn("session store close failed", zap.Error(err))
		}
	}
	sess := session.New(nil, store, session.WithLogger(logger.Named("session")))
	sess.Restore(ctx)
	if !sess.IsAuthenticated() {
		closeStore()
		return nil, nil, errors.New("no stored session; set STOREFRONT_TOKEN")
	}
	if !sess.IsStaff() {
		closeStore()
		return nil, nil, errors.New("stored session is not a staff account")
	}
	return sess, closeStore, nil
}

func report(out io.Writer, summary dispatch.Summary, err error) int {
	var incomplete *dispatch.IncompleteSelectionError
	switch {
	case errors.As(err, &incomplete):
		fmt.Fprintf(out, "aborted: %d selected order(s) need a courier name and tracking id: %s\n",
			incomplete.Count, strings.Join(incomplete.OrderIDs, ", "))
		return exitAborted
	case errors.Is(err, dispatch.ErrNothingSelected):
		fmt.Fprintln(out, "nothing selected")
		return exitAborted
	case err != nil:
		fmt.Fprintf(out, "dispatch failed: %v\n", err)
		return exitFailures
	}

	for _, outcome := range summary.Outcomes {
		if outcome.Success() {
			fmt.Fprintf(out, "%s\tshipped\n", outcome.OrderID)
			continue
		}
		fmt.Fprintf(out, "%s\tfailed at %s: %s\n", outcome.OrderID, outcome.Stage, failureMessage(outcome.Err))
	}
	fmt.Fprintf(out, "%d shipped, %d failed\n", summary.Succeeded, summary.Failed)
	if summary.Failed > 0 {
		return exitFailures
	}
	return exitOK
}

func failureMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.PublicMessage() != "" {
		return apiErr.PublicMessage()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	return err.Error()
}
