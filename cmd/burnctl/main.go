// Command burnctl reads portal stats, runs single burns and exports the burn
// ledger without the terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rovshanmuradov/burn-portal/internal/config"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
)

const usage = `usage: burnctl [-config path] [-debug] <command> [flags]

commands:
  stats                         print balance, price and burn counters
  burn -amount N [-yes]         burn N tokens from the configured wallet
  export [-format csv|json] [-out dir] [-account addr] [-from date] [-to date] [-daily date]
                                export the burn ledger
`

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging || *debug

	appLogger, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	cli := &cli{
		cfg:    cfg,
		logger: appLogger,
		in:     os.Stdin,
		out:    os.Stdout,
	}

	args := flag.Args()
	switch args[0] {
	case "stats":
		err = cli.stats(ctx, args[1:])
	case "burn":
		err = cli.burn(ctx, args[1:])
	case "export":
		err = cli.export(ctx, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "burnctl %s: %v\n", args[0], err)
		_ = appLogger.Sync()
		os.Exit(1)
	}
}
