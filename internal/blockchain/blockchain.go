// internal/blockchain/blockchain.go
package blockchain

import (
	"context"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
)

// Read functions understood by every Reader.
const (
	FuncBalanceOf         = "balanceOf"
	FuncTotalBurned       = "totalBurned"
	FuncBurnedLast24Hours = "burnedLast24Hours"
	FuncLifetimeBurned    = "lifetimeBurned"
)

// Reader reads unsigned integer views of token state.
type Reader interface {
	// ReadUint evaluates function on contract. Results are in base units.
	ReadUint(ctx context.Context, contract, function string, args ...string) (amount.TokenAmount, error)
}

// Account exposes the currently connected account, if any.
type Account interface {
	ConnectedAddress() (string, bool)
}

// Wallet signs and submits token transfers for the connected account.
type Wallet interface {
	Account
	// SignAndSend transfers amount to the owner address to. It fails with
	// ErrUserRejected when the holder declines to sign and ErrWallet otherwise.
	SignAndSend(ctx context.Context, to string, amount amount.TokenAmount) (TxHandle, error)
}

// Settler waits for a submitted transaction to be finalized.
type Settler interface {
	AwaitSettlement(ctx context.Context, tx TxHandle) error
}
