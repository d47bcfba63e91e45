// internal/blockchain/solbc/reader.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"go.uber.org/zap"
)

// WindowSource reports how much was burned since a point in time. The burn
// ledger implements it.
type WindowSource interface {
	BurnedSince(ctx context.Context, since time.Time) (amount.TokenAmount, error)
}

// ReaderConfig describes the token whose counters a Reader serves.
type ReaderConfig struct {
	Mint          solana.PublicKey
	BurnAddress   solana.PublicKey
	InitialSupply amount.TokenAmount
	Window        WindowSource
	Now           func() time.Time
}

// Reader implements blockchain.Reader on top of SPL token accounts.
type Reader struct {
	client  *Client
	cfg     ReaderConfig
	sinkATA solana.PublicKey
	logger  *zap.Logger
}

var _ blockchain.Reader = (*Reader)(nil)

func NewReader(client *Client, cfg ReaderConfig, logger *zap.Logger) (*Reader, error) {
	if cfg.BurnAddress.IsZero() {
		cfg.BurnAddress = solana.MustPublicKeyFromBase58(DefaultBurnAddress)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.InitialSupply.GreaterThan(MaxTransfer()) {
		return nil, fmt.Errorf("initial supply %s exceeds what a mint can hold", cfg.InitialSupply)
	}
	sink, _, err := solana.FindAssociatedTokenAddress(cfg.BurnAddress, cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive burn account: %w", err)
	}
	return &Reader{
		client:  client,
		cfg:     cfg,
		sinkATA: sink,
		logger:  logger.Named("solbc-reader"),
	}, nil
}

// SinkAccount is the token account burned tokens are sent to.
func (r *Reader) SinkAccount() solana.PublicKey {
	return r.sinkATA
}

func (r *Reader) ReadUint(ctx context.Context, contract, function string, args ...string) (amount.TokenAmount, error) {
	if contract != r.cfg.Mint.String() {
		return amount.Zero(), blockchain.NewError(function, fmt.Errorf("%w: %s", blockchain.ErrUnknownContract, contract))
	}

	var (
		v   amount.TokenAmount
		err error
	)
	switch function {
	case blockchain.FuncBalanceOf:
		v, err = r.balanceOf(ctx, args)
	case blockchain.FuncTotalBurned:
		v, err = r.accountBalance(ctx, r.sinkATA)
	case blockchain.FuncLifetimeBurned:
		v, err = r.lifetimeBurned(ctx)
	case blockchain.FuncBurnedLast24Hours:
		v, err = r.burnedLast24Hours(ctx)
	default:
		err = fmt.Errorf("%w: %s", blockchain.ErrUnknownFunction, function)
	}
	if err != nil {
		return amount.Zero(), blockchain.NewError(function, err)
	}
	return v, nil
}

func (r *Reader) balanceOf(ctx context.Context, args []string) (amount.TokenAmount, error) {
	if len(args) == 0 || args[0] == "" {
		return amount.Zero(), blockchain.ErrMissingArgument
	}
	owner, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return amount.Zero(), fmt.Errorf("invalid owner address: %w", err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, r.cfg.Mint)
	if err != nil {
		return amount.Zero(), fmt.Errorf("failed to derive token account: %w", err)
	}
	return r.accountBalance(ctx, ata)
}

// accountBalance treats a token account that was never created as empty.
func (r *Reader) accountBalance(ctx context.Context, account solana.PublicKey) (amount.TokenAmount, error) {
	raw, err := r.client.GetTokenAccountBalance(ctx, account)
	if errors.Is(err, ErrAccountNotFound) {
		return amount.Zero(), nil
	}
	if err != nil {
		return amount.Zero(), err
	}
	return amount.FromBaseUnits(raw)
}

// lifetimeBurned counts both supply destroyed through the token program and
// tokens parked in the sink account.
func (r *Reader) lifetimeBurned(ctx context.Context) (amount.TokenAmount, error) {
	sink, err := r.accountBalance(ctx, r.sinkATA)
	if err != nil {
		return amount.Zero(), err
	}
	if r.cfg.InitialSupply.IsZero() {
		return sink, nil
	}

	raw, err := r.client.GetTokenSupply(ctx, r.cfg.Mint)
	if err != nil {
		return amount.Zero(), err
	}
	supply, err := amount.FromBaseUnits(raw)
	if err != nil {
		return amount.Zero(), err
	}

	destroyed := r.cfg.InitialSupply.SaturatingSub(supply)
	total, overflow := destroyed.Add(sink)
	if overflow {
		return amount.Zero(), amount.ErrAmountOverflow
	}
	return total, nil
}

func (r *Reader) burnedLast24Hours(ctx context.Context) (amount.TokenAmount, error) {
	if r.cfg.Window == nil {
		return amount.Zero(), nil
	}
	return r.cfg.Window.BurnedSince(ctx, r.cfg.Now().Add(-24*time.Hour))
}
