package solbc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/config"
	"github.com/rovshanmuradov/burn-portal/internal/portal"
	"github.com/rovshanmuradov/burn-portal/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeRPC serves token balances by account and scripted signature statuses.
type fakeRPC struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]string
	supply   string
	statuses []*rpc.SignatureStatusesResult
	polls    int
	sent     []*solana.Transaction
	sendErr  error
}

func (f *fakeRPC) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{7}}}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeRPC) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.statuses) == 0 {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	next := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{next}}, nil
}

func (f *fakeRPC) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.balances[account]
	if !ok {
		return nil, errors.New("Invalid param: could not find account")
	}
	return &rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: v, Decimals: 9}}, nil
}

func (f *fakeRPC) GetTokenSupply(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	return &rpc.GetTokenSupplyResult{Value: &rpc.UiTokenAmount{Amount: f.supply, Decimals: 9}}, nil
}

type fixedWindow struct {
	since time.Time
	value amount.TokenAmount
}

func (w *fixedWindow) BurnedSince(_ context.Context, since time.Time) (amount.TokenAmount, error) {
	w.since = since
	return w.value, nil
}

var testMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func ata(t *testing.T, owner solana.PublicKey) solana.PublicKey {
	t.Helper()
	addr, _, err := solana.FindAssociatedTokenAddress(owner, testMint)
	require.NoError(t, err)
	return addr
}

func newTestReader(t *testing.T, f *fakeRPC, cfg ReaderConfig) *Reader {
	t.Helper()
	cfg.Mint = testMint
	r, err := NewReader(NewClientWithRPC(f, zaptest.NewLogger(t)), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

func TestReaderBalanceOf(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	f := &fakeRPC{balances: map[solana.PublicKey]string{ata(t, owner): "5000000000000000000"}}
	r := newTestReader(t, f, ReaderConfig{})

	got, err := r.ReadUint(context.Background(), testMint.String(), blockchain.FuncBalanceOf, owner.String())
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", got.String())

	stranger := solana.NewWallet().PublicKey()
	got, err = r.ReadUint(context.Background(), testMint.String(), blockchain.FuncBalanceOf, stranger.String())
	require.NoError(t, err, "missing token account reads as zero")
	assert.True(t, got.IsZero())

	_, err = r.ReadUint(context.Background(), testMint.String(), blockchain.FuncBalanceOf)
	assert.ErrorIs(t, err, blockchain.ErrMissingArgument)
}

func TestReaderBurnCounters(t *testing.T) {
	sink := solana.MustPublicKeyFromBase58(DefaultBurnAddress)
	f := &fakeRPC{
		balances: map[solana.PublicKey]string{ata(t, sink): "300"},
		supply:   "900",
	}
	now := time.Unix(1_700_000_000, 0)
	window := &fixedWindow{value: amount.FromUint64(42)}
	r := newTestReader(t, f, ReaderConfig{
		InitialSupply: amount.FromUint64(1_000),
		Window:        window,
		Now:           func() time.Time { return now },
	})
	ctx := context.Background()

	total, err := r.ReadUint(ctx, testMint.String(), blockchain.FuncTotalBurned)
	require.NoError(t, err)
	assert.Equal(t, "300", total.String())

	lifetime, err := r.ReadUint(ctx, testMint.String(), blockchain.FuncLifetimeBurned)
	require.NoError(t, err)
	assert.Equal(t, "400", lifetime.String(), "destroyed supply plus the sink balance")

	day, err := r.ReadUint(ctx, testMint.String(), blockchain.FuncBurnedLast24Hours)
	require.NoError(t, err)
	assert.Equal(t, "42", day.String())
	assert.Equal(t, now.Add(-24*time.Hour), window.since)
}

func TestReaderRejectsUnknownCalls(t *testing.T) {
	r := newTestReader(t, &fakeRPC{}, ReaderConfig{})

	_, err := r.ReadUint(context.Background(), testMint.String(), "mint")
	assert.ErrorIs(t, err, blockchain.ErrUnknownFunction)

	_, err = r.ReadUint(context.Background(), "elsewhere", blockchain.FuncTotalBurned)
	assert.ErrorIs(t, err, blockchain.ErrUnknownContract)

	var be *blockchain.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, blockchain.FuncTotalBurned, be.Op)
}

func TestReaderRejectsUnrepresentableSupply(t *testing.T) {
	over, _ := MaxTransfer().Add(amount.FromUint64(1))
	_, err := NewReader(NewClientWithRPC(&fakeRPC{}, zaptest.NewLogger(t)), ReaderConfig{
		Mint:          testMint,
		InitialSupply: over,
	}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestReaderWithoutWindowReportsZero(t *testing.T) {
	r := newTestReader(t, &fakeRPC{}, ReaderConfig{})
	got, err := r.ReadUint(context.Background(), testMint.String(), blockchain.FuncBurnedLast24Hours)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func testHandle() blockchain.TxHandle {
	return blockchain.TxHandle{Signature: solana.Signature{1, 2, 3}.String(), SubmittedAt: time.Now()}
}

func TestSettlerWaitsForConfirmation(t *testing.T) {
	f := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		nil,
		{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	s := NewSettler(NewClientWithRPC(f, zaptest.NewLogger(t)), SettleConfig{PollInterval: time.Millisecond}, zaptest.NewLogger(t))

	require.NoError(t, s.AwaitSettlement(context.Background(), testHandle()))
	assert.Equal(t, 3, f.polls)
}

func TestSettlerReportsOnChainFailure(t *testing.T) {
	f := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		{Err: map[string]interface{}{"InstructionError": []interface{}{2, "InsufficientFunds"}}},
	}}
	s := NewSettler(NewClientWithRPC(f, zaptest.NewLogger(t)), SettleConfig{PollInterval: time.Millisecond}, zaptest.NewLogger(t))

	err := s.AwaitSettlement(context.Background(), testHandle())
	assert.ErrorIs(t, err, blockchain.ErrTransactionFailed)
	assert.Equal(t, 1, f.polls, "on-chain failures are not retried")
}

func TestSettlerHonorsContext(t *testing.T) {
	f := &fakeRPC{}
	s := NewSettler(NewClientWithRPC(f, zaptest.NewLogger(t)), SettleConfig{PollInterval: time.Millisecond}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.AwaitSettlement(ctx, testHandle())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func newTestWallet(t *testing.T, f *fakeRPC, approver Approver, priority PriorityFee) (*Wallet, *wallet.Wallet) {
	t.Helper()
	key, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	w := NewWallet(NewClientWithRPC(f, zaptest.NewLogger(t)), key, WalletConfig{
		Mint:     testMint,
		Decimals: 9,
		Priority: priority,
		Approver: approver,
	}, zaptest.NewLogger(t))
	return w, key
}

func TestWalletSignAndSend(t *testing.T) {
	f := &fakeRPC{}
	var asked SignRequest
	w, key := newTestWallet(t, f, func(_ context.Context, req SignRequest) (bool, error) {
		asked = req
		return true, nil
	}, PriorityFee{ComputeUnits: 100_000, FeeSol: "0.0001"})

	addr, ok := w.ConnectedAddress()
	require.True(t, ok)
	assert.Equal(t, key.Address(), addr)

	tx, err := w.SignAndSend(context.Background(), DefaultBurnAddress, amount.Whole(1_000, 9))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Signature)
	assert.Equal(t, DefaultBurnAddress, asked.To)
	assert.Equal(t, "1000000000000", asked.Amount.String())

	require.Len(t, f.sent, 1)
	assert.Len(t, f.sent[0].Message.Instructions, 4, "limit, price, create account, transfer")
}

func TestShippedPresetsTransfer(t *testing.T) {
	cfg, err := config.LoadConfig("../../../configs/config.json")
	require.NoError(t, err)

	f := &fakeRPC{}
	key, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	w := NewWallet(NewClientWithRPC(f, zaptest.NewLogger(t)), key, WalletConfig{
		Mint:     testMint,
		Decimals: cfg.TokenDecimals,
	}, zaptest.NewLogger(t))

	for _, whole := range portal.DefaultPresets {
		_, err := w.SignAndSend(context.Background(), cfg.BurnAddress, amount.Whole(whole, cfg.TokenDecimals))
		assert.NoError(t, err, "preset %d", whole)
	}
	assert.Len(t, f.sent, len(portal.DefaultPresets))

	_, err = w.SignAndSend(context.Background(), cfg.BurnAddress, amount.Whole(cfg.InitialSupply, cfg.TokenDecimals))
	assert.NoError(t, err, "the whole supply fits one transfer")
}

func TestWalletRejection(t *testing.T) {
	f := &fakeRPC{}
	w, _ := newTestWallet(t, f, func(context.Context, SignRequest) (bool, error) { return false, nil }, PriorityFee{})

	_, err := w.SignAndSend(context.Background(), DefaultBurnAddress, amount.FromUint64(1))
	assert.ErrorIs(t, err, blockchain.ErrUserRejected)
	assert.NotErrorIs(t, err, blockchain.ErrWallet)
	assert.Empty(t, f.sent)
}

func TestWalletErrors(t *testing.T) {
	f := &fakeRPC{sendErr: errors.New("node is behind")}
	w, _ := newTestWallet(t, f, nil, PriorityFee{})

	_, err := w.SignAndSend(context.Background(), DefaultBurnAddress, amount.FromUint64(1))
	assert.ErrorIs(t, err, blockchain.ErrWallet)

	huge, err := amount.FromBaseUnits("18446744073709551616")
	require.NoError(t, err)
	_, err = w.SignAndSend(context.Background(), DefaultBurnAddress, huge)
	assert.ErrorIs(t, err, blockchain.ErrWallet)

	disconnected := NewWallet(NewClientWithRPC(f, zaptest.NewLogger(t)), nil, WalletConfig{Mint: testMint}, zaptest.NewLogger(t))
	_, ok := disconnected.ConnectedAddress()
	assert.False(t, ok)
	_, err = disconnected.SignAndSend(context.Background(), DefaultBurnAddress, amount.FromUint64(1))
	assert.ErrorIs(t, err, blockchain.ErrWallet)
}

func TestPriorityFeeInstructions(t *testing.T) {
	none, err := PriorityFee{}.Instructions()
	require.NoError(t, err)
	assert.Empty(t, none)

	both, err := PriorityFee{ComputeUnits: 200_000, FeeSol: "0.001"}.Instructions()
	require.NoError(t, err)
	assert.Len(t, both, 2)

	_, err = PriorityFee{FeeSol: "fast"}.Instructions()
	assert.Error(t, err)
}
