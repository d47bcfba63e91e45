// internal/blockchain/solbc/wallet.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/wallet"
	"go.uber.org/zap"
)

// SignRequest is what the account holder is asked to approve.
type SignRequest struct {
	From   string
	To     string
	Amount amount.TokenAmount
}

// Approver asks the account holder to sign. Returning false rejects the
// transaction.
type Approver func(ctx context.Context, req SignRequest) (bool, error)

// MaxTransfer is the largest amount one SPL transfer carries, which is u64 base units.
func MaxTransfer() amount.TokenAmount {
	return amount.MaxUint64()
}

// AutoApprove signs every request.
func AutoApprove(context.Context, SignRequest) (bool, error) { return true, nil }

// WalletConfig describes the token a Wallet transfers.
type WalletConfig struct {
	Mint     solana.PublicKey
	Decimals uint8
	Priority PriorityFee
	Approver Approver
}

// Wallet implements blockchain.Wallet with a local key.
type Wallet struct {
	client *Client
	key    *wallet.Wallet
	cfg    WalletConfig
	now    func() time.Time
	logger *zap.Logger
}

var _ blockchain.Wallet = (*Wallet)(nil)

// NewWallet returns a Wallet for key. A nil key yields a wallet with no connected account.
func NewWallet(client *Client, key *wallet.Wallet, cfg WalletConfig, logger *zap.Logger) *Wallet {
	if cfg.Approver == nil {
		cfg.Approver = AutoApprove
	}
	return &Wallet{
		client: client,
		key:    key,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("solbc-wallet"),
	}
}

func (w *Wallet) ConnectedAddress() (string, bool) {
	if w.key == nil {
		return "", false
	}
	return w.key.Address(), true
}

// SignAndSend transfers amt of the configured mint to the token account of
// owner, creating that account when missing.
func (w *Wallet) SignAndSend(ctx context.Context, owner string, amt amount.TokenAmount) (blockchain.TxHandle, error) {
	if w.key == nil {
		return blockchain.TxHandle{}, walletErr("no connected account", nil)
	}
	units, ok := amt.Uint64()
	if !ok {
		return blockchain.TxHandle{}, walletErr("amount does not fit a token transfer", amount.ErrAmountOverflow)
	}
	dest, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return blockchain.TxHandle{}, walletErr("invalid destination", err)
	}

	instructions, err := w.buildInstructions(dest, units)
	if err != nil {
		return blockchain.TxHandle{}, walletErr("failed to build transfer", err)
	}

	approved, err := w.cfg.Approver(ctx, SignRequest{From: w.key.Address(), To: owner, Amount: amt})
	if err != nil {
		return blockchain.TxHandle{}, walletErr("approval failed", err)
	}
	if !approved {
		w.logger.Info("Signature request rejected")
		return blockchain.TxHandle{}, blockchain.NewError("sign", blockchain.ErrUserRejected)
	}

	blockhash, err := w.client.GetRecentBlockhash(ctx)
	if err != nil {
		return blockchain.TxHandle{}, walletErr("failed to get recent blockhash", err)
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.key.PublicKey))
	if err != nil {
		return blockchain.TxHandle{}, walletErr("failed to create transaction", err)
	}
	if err := w.key.SignTransaction(tx); err != nil {
		return blockchain.TxHandle{}, walletErr("failed to sign transaction", err)
	}

	sig, err := w.client.SendTransaction(ctx, tx)
	if err != nil {
		return blockchain.TxHandle{}, walletErr("failed to send transaction", err)
	}

	w.logger.Info("Transfer submitted",
		zap.String("signature", sig.String()),
		zap.String("amount", amt.String()))
	return blockchain.TxHandle{Signature: sig.String(), SubmittedAt: w.now()}, nil
}

func (w *Wallet) buildInstructions(dest solana.PublicKey, units uint64) ([]solana.Instruction, error) {
	instructions, err := w.cfg.Priority.Instructions()
	if err != nil {
		return nil, err
	}

	source, err := w.key.GetATA(w.cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source account: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(dest, w.cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination account: %w", err)
	}
	create, err := wallet.CreateAssociatedTokenAccountIdempotentInstruction(w.key.PublicKey, dest, w.cfg.Mint)
	if err != nil {
		return nil, err
	}

	transfer := token.NewTransferCheckedInstruction(
		units,
		w.cfg.Decimals,
		source,
		w.cfg.Mint,
		destATA,
		w.key.PublicKey,
		nil,
	).Build()

	return append(instructions, create, transfer), nil
}

func walletErr(msg string, err error) error {
	if err == nil {
		return blockchain.NewError("sign", fmt.Errorf("%w: %s", blockchain.ErrWallet, msg))
	}
	return blockchain.NewError("sign", fmt.Errorf("%w: %s: %w", blockchain.ErrWallet, msg, err))
}
