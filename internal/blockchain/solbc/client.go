// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// DefaultBurnAddress is the Solana incinerator. Tokens sent to its associated
// token account can never be moved again.
const DefaultBurnAddress = "1nc1nerator11111111111111111111111111111111"

var ErrAccountNotFound = errors.New("account not found")

// RPC is the subset of the solana-go RPC client the adapters use.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// IsAccountNotFoundError reports whether err means the account does not exist.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not find account")
}

// Client is a thin adapter over the RPC endpoint. It reads token counters and
// waits for settlement.
type Client struct {
	rpc    RPC
	logger *zap.Logger
}

func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), logger)
}

// NewClientWithRPC wraps an existing RPC implementation.
func NewClientWithRPC(r RPC, logger *zap.Logger) *Client {
	return &Client{
		rpc:    r,
		logger: logger.Named("solbc-client"),
	}
}

// RPC exposes the underlying endpoint for the wallet adapter.
func (c *Client) RPC() RPC {
	return c.rpc
}

// GetRecentBlockhash returns the latest finalized blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction with preflight enabled.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", append(AnalyzeSendError(err).Fields(), zap.Error(err))...)
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetTokenAccountBalance returns the raw balance of a token account. A missing
// account yields ErrAccountNotFound.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (string, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return "", ErrAccountNotFound
		}
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return "", err
	}
	if result == nil || result.Value == nil {
		return "", ErrAccountNotFound
	}
	return result.Value.Amount, nil
}

// GetTokenSupply returns the raw circulating supply of mint.
func (c *Client) GetTokenSupply(ctx context.Context, mint solana.PublicKey) (string, error) {
	result, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetTokenSupply error",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return "", err
	}
	if result == nil || result.Value == nil {
		return "", ErrAccountNotFound
	}
	return result.Value.Amount, nil
}
