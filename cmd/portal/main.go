package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/burn-portal/internal/app"
	"github.com/rovshanmuradov/burn-portal/internal/config"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/ui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logs := logger.NewLogBuffer(logger.DefaultBufferSize)
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	logCfg.Console = false
	logCfg.Buffer = logs

	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("🔥 Starting burn portal", zap.String("token", cfg.TokenSymbol))

	var approvals *ui.Approvals
	svcCfg := app.ServiceConfig{Config: cfg, Logger: appLogger.Logger}
	if cfg.RequireApproval {
		approvals = ui.NewApprovals()
		svcCfg.Approver = approvals.Approve
	}

	svc, err := app.NewService(rootCtx, svcCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			appLogger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	bridge := ui.NewBridge(svc.Bus(), appLogger.Logger)
	defer bridge.Close()
	svc.Start()

	if view := svc.Session().View(); view.Connected {
		appLogger.WithWallet(view.Address).Info("Wallet connected")
	}

	uiLogger := appLogger.WithComponent("tui")
	recovery := ui.NewRecoveryHandler(uiLogger, func() (tea.Model, []tea.ProgramOption) {
		model := ui.NewModel(rootCtx, ui.Options{
			Session:   svc.Session(),
			Bridge:    bridge,
			Approvals: approvals,
			Logs:      logs,
			Logger:    uiLogger,
		})
		return ui.NewSafeUIWrapper(model, uiLogger), []tea.ProgramOption{tea.WithAltScreen()}
	})

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		defer stop()
		return recovery.Run(ctx)
	})
	g.Go(func() error {
		return svc.ServeMetrics(ctx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Burn portal stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("👋 Burn portal stopped")
}
