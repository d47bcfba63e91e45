package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/app"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain/solbc"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/config"
	"github.com/rovshanmuradov/burn-portal/internal/export"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/onchain"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

var errAborted = errors.New("aborted")

type cli struct {
	cfg    *config.Config
	logger *logger.Logger
	in     io.Reader
	out    io.Writer

	reader *bufio.Reader
}

func (c *cli) service(ctx context.Context, base *zap.Logger, autoApprove bool) (*app.Service, error) {
	sc := app.ServiceConfig{Config: c.cfg, Logger: base}
	if autoApprove {
		sc.Approver = solbc.AutoApprove
	} else {
		sc.Approver = c.approve
	}
	return app.NewService(ctx, sc)
}

// approve asks on the terminal before the wallet signs.
func (c *cli) approve(_ context.Context, req solbc.SignRequest) (bool, error) {
	return c.askYesNo(fmt.Sprintf("Sign transfer of %s %s to %s?",
		displayAmount(c.cfg, req), c.cfg.TokenSymbol, logger.ShortenAddress(req.To)))
}

func (c *cli) askYesNo(question string) (bool, error) {
	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	fmt.Fprintf(c.out, "%s [y/N] ", question)
	line, err := c.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// refreshAll reads balance, counters and price concurrently. A failed price
// read leaves the price unknown.
func refreshAll(ctx context.Context, svc *app.Service, log *zap.Logger) (price.Price, error) {
	var p price.Price
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Balance().Refresh(gctx) })
	g.Go(func() error { return svc.Stats().Refresh(gctx) })
	g.Go(func() error {
		v, err := svc.Prices().FetchPrice(gctx, svc.Config().TokenMint)
		if err != nil {
			log.Warn("Price unavailable", zap.Error(err))
			return nil
		}
		p = price.Price{Value: v, FetchedAt: time.Now()}
		return nil
	})
	return p, g.Wait()
}

func (c *cli) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := c.service(ctx, c.logger.Logger, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	p, err := refreshAll(ctx, svc, c.logger.Logger)
	if err != nil {
		return err
	}

	view := svc.Session().View()
	conv := valuation.NewConverter(c.cfg.TokenDecimals)
	st := svc.Stats().Value()
	market := onchain.DeriveMarket(st, p, wholeSupply(c.cfg), conv)

	w := &table{out: c.out}
	if view.Connected {
		w.row("Wallet", view.Address)
		w.row("Balance", fmt.Sprintf("%s %s (%s)", view.Balance, view.Symbol, conv.ToFiat(svc.Balance().Value(), p)))
	} else {
		w.row("Wallet", "not connected")
	}
	w.row("Price", valuation.FormatPrice(p))
	w.row("Burned through portal", fmt.Sprintf("%s (%s)", valuation.Grouped(conv.WholeTokens(st.TotalBurned)), conv.ToFiat(st.TotalBurned, p)))
	w.row("Burned last 24h", fmt.Sprintf("%s (%s)", valuation.Grouped(conv.WholeTokens(st.BurnedLast24h)), conv.ToFiat(st.BurnedLast24h, p)))
	w.row("Lifetime burned", fmt.Sprintf("%s (%s)", valuation.Grouped(conv.WholeTokens(st.LifetimeBurned)), conv.ToFiat(st.LifetimeBurned, p)))
	w.row("Market cap", valuation.FormatUSD(market.MarketCap))
	w.row("Remaining supply", valuation.Grouped(conv.WholeTokens(market.RemainingSupply)))
	return w.err
}

func (c *cli) burn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("burn", flag.ContinueOnError)
	amountFlag := fs.String("amount", "", "Amount of whole tokens to burn, grouping commas allowed")
	yes := fs.Bool("yes", false, "Skip the confirmation and signature prompts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *amountFlag == "" {
		return errors.New("-amount is required")
	}

	opLogger := logger.WithOperation(c.logger.Logger, "burn")
	svc, err := c.service(ctx, opLogger, *yes)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	session := svc.Session()
	if _, err := refreshAll(ctx, svc, opLogger); err != nil {
		return err
	}
	if err := session.SetAmountInput(*amountFlag); err != nil {
		return err
	}

	req, err := session.RequestBurn()
	if err != nil {
		return err
	}
	view := session.View()

	fmt.Fprintf(c.out, "Burn %s %s to %s\n", view.Amount, view.Symbol, req.Destination)
	fmt.Fprintln(c.out, "This action is irreversible. Burned tokens are permanently removed from circulation.")
	if req.Large {
		fmt.Fprintln(c.out, "Large burn: double-check the amount before confirming.")
	}

	if !*yes {
		ok, err := c.askYesNo("Confirm burn?")
		if err != nil {
			return err
		}
		if !ok {
			_ = session.Cancel()
			return errAborted
		}
	}

	var sig string
	sub := session.Machine().Subscribe(func(snap burn.Snapshot) {
		if snap.Signature != "" {
			sig = snap.Signature
		}
	})
	defer sub.Unsubscribe()

	if err := session.Confirm(ctx); err != nil {
		return err
	}
	c.logger.WithTransaction(sig).Info("Burn settled", zap.String("amount", req.Amount.String()))
	fmt.Fprintf(c.out, "Burned %s %s, signature %s\n", view.Amount, view.Symbol, sig)
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatFlag := fs.String("format", "csv", "Output format: csv or json")
	out := fs.String("out", ".", "Output directory")
	account := fs.String("account", "", "Only export burns from this account")
	from := fs.String("from", "", "First day to include (YYYY-MM-DD)")
	to := fs.String("to", "", "Last day to include (YYYY-MM-DD)")
	daily := fs.String("daily", "", "Write an hourly report for one day (YYYY-MM-DD) instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	end := c.logger.TrackPerformance("export")
	defer end()

	svc, err := c.service(ctx, c.logger.Logger, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	burns, err := svc.Ledger().List(ctx, 0)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	exporter := export.NewBurnExporter(c.cfg.TokenDecimals, c.logger.Logger)

	if *daily != "" {
		day, err := time.ParseInLocation(dateLayout, *daily, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -daily: %w", err)
		}
		path, err := exporter.ExportDailyReport(burns, day, *out)
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintf(c.out, "No burns on %s\n", *daily)
			return nil
		}
		fmt.Fprintln(c.out, path)
		return nil
	}

	opts := export.ExportOptions{Format: format, AccountFilter: *account, OutputDir: *out}
	if opts.StartTime, err = parseDay(*from, 0); err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	if opts.EndTime, err = parseDay(*to, 1); err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}

	path, err := exporter.ExportBurns(burns, opts)
	if errors.Is(err, export.ErrNoBurns) {
		fmt.Fprintln(c.out, "No burns to export")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, path)
	return nil
}

// parseDay returns the start of the day offset days after s, or the zero
// time for an empty s.
func parseDay(s string, offset int) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return day.AddDate(0, 0, offset), nil
}

func displayAmount(cfg *config.Config, req solbc.SignRequest) string {
	return amount.NewNormalizer(cfg.TokenDecimals).Display(req.Amount)
}

func wholeSupply(cfg *config.Config) amount.TokenAmount {
	return amount.Whole(cfg.TotalSupply, cfg.TokenDecimals)
}

type table struct {
	out io.Writer
	err error
}

func (t *table) row(label, value string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.out, "%-24s %s\n", label+":", value)
}
