// Package app wires the portal's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain/solbc"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/config"
	"github.com/rovshanmuradov/burn-portal/internal/events"
	"github.com/rovshanmuradov/burn-portal/internal/live"
	"github.com/rovshanmuradov/burn-portal/internal/onchain"
	"github.com/rovshanmuradov/burn-portal/internal/portal"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/storage"
	"github.com/rovshanmuradov/burn-portal/internal/storage/memory"
	"github.com/rovshanmuradov/burn-portal/internal/storage/postgres"
	"github.com/rovshanmuradov/burn-portal/internal/utils/metrics"
	"github.com/rovshanmuradov/burn-portal/internal/wallet"
	"go.uber.org/zap"
)

var ErrApproverRequired = errors.New("require_approval is set but no approver was provided")

const eventBufferSize = 256

// ServiceConfig configuration for Service
type ServiceConfig struct {
	Config *config.Config
	Logger *zap.Logger
	// Approver prompts the holder before every signature. It is required when
	// Config.RequireApproval is set and ignored otherwise.
	Approver solbc.Approver
}

// Service owns every long-lived component of one portal process.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	client   *solbc.Client
	ledger   storage.Store
	wallet   *solbc.Wallet
	prices   *price.DexScreener
	feed     *price.Feed
	balance  *onchain.BalanceReader
	stats    *onchain.StatsAggregator
	bus      *events.Bus
	session  *portal.Session
	metrics  *metrics.Collector
	shutdown *ShutdownHandler

	observers []live.Subscription
}

func NewService(ctx context.Context, sc ServiceConfig) (*Service, error) {
	cfg := sc.Config
	logger := sc.Logger.Named("service")

	approver := solbc.Approver(solbc.AutoApprove)
	if cfg.RequireApproval {
		if sc.Approver == nil {
			return nil, ErrApproverRequired
		}
		approver = sc.Approver
	}

	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("invalid token_mint: %w", err)
	}
	sink, err := solana.PublicKeyFromBase58(cfg.BurnAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid burn_address: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		logger:   logger,
		shutdown: NewShutdownHandler(sc.Logger, DefaultShutdownTimeout),
		metrics:  metrics.NewCollector(cfg.TokenDecimals),
		bus:      events.NewBus(sc.Logger, eventBufferSize),
	}
	s.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.bus.Shutdown(ctx)
	})

	if err := s.openLedger(ctx, sc.Logger); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}

	s.client = solbc.NewClient(cfg.RPCURL, sc.Logger)

	reader, err := solbc.NewReader(s.client, solbc.ReaderConfig{
		Mint:          mint,
		BurnAddress:   sink,
		InitialSupply: amount.Whole(cfg.InitialSupply, cfg.TokenDecimals),
		Window:        s.ledger,
	}, sc.Logger)
	if err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}

	var key *wallet.Wallet
	if cfg.WalletKey != "" {
		key, err = wallet.NewWallet(cfg.WalletKey)
		if err != nil {
			_ = s.Close(context.Background())
			return nil, fmt.Errorf("invalid wallet_key: %w", err)
		}
	} else {
		logger.Warn("No wallet_key configured, burning is disabled")
	}

	s.wallet = solbc.NewWallet(s.client, key, solbc.WalletConfig{
		Mint:     mint,
		Decimals: cfg.TokenDecimals,
		Priority: solbc.PriorityFee{ComputeUnits: cfg.ComputeUnits, FeeSol: cfg.PriorityFeeSol},
		Approver: approver,
	}, sc.Logger)

	settle := solbc.SettleConfig{}
	if d := cfg.SettleTimeout(); d > 0 {
		settle.MaxWait = d
	}
	settler := solbc.NewSettler(s.client, settle, sc.Logger)

	s.prices = price.NewDexScreener(sc.Logger,
		price.WithBaseURL(cfg.PriceAPIURL),
		price.WithRateLimit(cfg.PriceRateLimit))
	s.feed = price.NewFeed(s.prices, cfg.TokenMint, cfg.PollInterval(), sc.Logger)

	chain := s.metrics.InstrumentReader(reader)
	s.balance = onchain.NewBalanceReader(chain, s.wallet, cfg.TokenMint, cfg.PollInterval(), sc.Logger)
	s.stats = onchain.NewStatsAggregator(chain, cfg.TokenMint, cfg.PollInterval(), sc.Logger)

	s.session = portal.NewSession(portal.Config{
		Decimals:    cfg.TokenDecimals,
		Symbol:      cfg.TokenSymbol,
		TokenMint:   cfg.TokenMint,
		TotalSupply: amount.Whole(cfg.TotalSupply, cfg.TokenDecimals),
		Wallet:      s.wallet,
		Feed:        s.feed,
		Balance:     s.balance,
		Stats:       s.stats,
		Bus:         s.bus,
		Machine: burn.Config{
			Settler:            settler,
			Destination:        cfg.BurnAddress,
			LargeBurnThreshold: amount.Whole(cfg.LargeBurnThreshold, cfg.TokenDecimals),
			MaxAmount:          solbc.MaxTransfer(),
			Recorder:           s.ledger,
			SignTimeout:        cfg.SignTimeout(),
			SettleTimeout:      cfg.SettleTimeout(),
		},
		Logger: sc.Logger,
	})
	s.shutdown.AddFunc("session", func() error {
		s.stopObservers()
		s.session.Close()
		return nil
	})

	logger.Info("Service initialized",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("token_mint", cfg.TokenMint),
		zap.Bool("postgres_ledger", cfg.PostgresURL != ""),
		zap.Bool("require_approval", cfg.RequireApproval))
	return s, nil
}

func (s *Service) openLedger(ctx context.Context, logger *zap.Logger) error {
	if s.cfg.PostgresURL == "" {
		s.ledger = memory.NewStore()
		return nil
	}

	store, err := postgres.NewStore(ctx, s.cfg.PostgresURL, logger)
	if err != nil {
		return err
	}
	s.shutdown.AddFunc("postgres", func() error {
		store.Close()
		return nil
	})
	if err := store.RunMigrations(ctx); err != nil {
		return err
	}
	s.ledger = store
	return nil
}

// Start begins polling and event forwarding, and attaches the metrics
// observers. It is a no-op when called twice.
func (s *Service) Start() {
	s.session.Start()
	if s.observers != nil {
		return
	}
	s.observers = []live.Subscription{
		s.session.Machine().Subscribe(s.metrics.ObserveBurn),
		s.feed.Subscribe(s.metrics.ObservePrice),
	}
}

func (s *Service) stopObservers() {
	for _, sub := range s.observers {
		sub.Unsubscribe()
	}
	s.observers = nil
}

// ServeMetrics serves /metrics on metrics_addr until ctx ends. It returns
// immediately when no address is configured.
func (s *Service) ServeMetrics(ctx context.Context) error {
	if s.cfg.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Metrics listener started", zap.String("addr", s.cfg.MetricsAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics listener: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics listener shutdown: %w", err)
		}
		return nil
	}
}

// Close stops every component, last started first.
func (s *Service) Close(ctx context.Context) error {
	return s.shutdown.Shutdown(ctx)
}

func (s *Service) Session() *portal.Session { return s.session }

func (s *Service) Bus() *events.Bus { return s.bus }

func (s *Service) Ledger() storage.Store { return s.ledger }

func (s *Service) Metrics() *metrics.Collector { return s.metrics }

func (s *Service) Balance() *onchain.BalanceReader { return s.balance }

func (s *Service) Stats() *onchain.StatsAggregator { return s.stats }

// Prices is the price source behind the feed, for one-off reads.
func (s *Service) Prices() price.Source { return s.prices }

func (s *Service) Config() *config.Config { return s.cfg }
