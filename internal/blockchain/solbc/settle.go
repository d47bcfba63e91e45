// internal/blockchain/solbc/settle.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"go.uber.org/zap"
)

const (
	DefaultSettlePollInterval = 500 * time.Millisecond
	DefaultSettleMaxWait      = 15 * time.Minute
)

var errNotSettled = errors.New("transaction not settled yet")

// SettleConfig controls signature status polling.
type SettleConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	// Finalized waits for the finalized commitment instead of confirmed.
	Finalized bool
}

// Settler implements blockchain.Settler by polling signature statuses.
type Settler struct {
	client *Client
	cfg    SettleConfig
	logger *zap.Logger
}

var _ blockchain.Settler = (*Settler)(nil)

func NewSettler(client *Client, cfg SettleConfig, logger *zap.Logger) *Settler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSettlePollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultSettleMaxWait
	}
	return &Settler{
		client: client,
		cfg:    cfg,
		logger: logger.Named("settler"),
	}
}

// AwaitSettlement blocks until tx reaches the configured commitment, fails on
// chain, or ctx ends. RPC errors while polling are retried.
func (s *Settler) AwaitSettlement(ctx context.Context, tx blockchain.TxHandle) error {
	sig, err := solana.SignatureFromBase58(tx.Signature)
	if err != nil {
		return blockchain.NewError("await settlement", fmt.Errorf("invalid signature: %w", err))
	}
	logger := s.logger.With(zap.String("signature", tx.Signature))

	op := func() (struct{}, error) {
		res, err := s.client.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			logger.Debug("Error getting signature status", zap.Error(err))
			return struct{}{}, err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return struct{}{}, errNotSettled
		}

		status := res.Value[0]
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", blockchain.ErrTransactionFailed, status.Err))
		}
		if s.reached(status.ConfirmationStatus) {
			return struct{}{}, nil
		}
		return struct{}{}, errNotSettled
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.PollInterval)),
		backoff.WithMaxElapsedTime(s.cfg.MaxWait),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, blockchain.ErrTransactionFailed) {
			err = ctxErr
		}
		logger.Warn("Transaction did not settle", zap.Error(err))
		return blockchain.NewError("await settlement", err)
	}

	logger.Info("Transaction settled", zap.Duration("elapsed", time.Since(tx.SubmittedAt)))
	return nil
}

func (s *Settler) reached(status rpc.ConfirmationStatusType) bool {
	if status == rpc.ConfirmationStatusFinalized {
		return true
	}
	return !s.cfg.Finalized && status == rpc.ConfirmationStatusConfirmed
}
