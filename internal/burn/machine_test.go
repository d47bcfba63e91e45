package burn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sink = "1nc1nerator11111111111111111111111111111111"

type fakeWallet struct {
	addr  string
	err   error
	calls int
	// during runs inside SignAndSend before it returns.
	during func(ctx context.Context) error
}

func (w *fakeWallet) ConnectedAddress() (string, bool) { return w.addr, w.addr != "" }

func (w *fakeWallet) SignAndSend(ctx context.Context, to string, a amount.TokenAmount) (blockchain.TxHandle, error) {
	w.calls++
	if w.during != nil {
		if err := w.during(ctx); err != nil {
			return blockchain.TxHandle{}, err
		}
	}
	if w.err != nil {
		return blockchain.TxHandle{}, w.err
	}
	return blockchain.TxHandle{Signature: "sig-" + a.String(), SubmittedAt: time.Now()}, nil
}

type fakeSettler struct {
	err   error
	calls int
}

func (s *fakeSettler) AwaitSettlement(context.Context, blockchain.TxHandle) error {
	s.calls++
	return s.err
}

type fixedBalance struct{ v amount.TokenAmount }

func (b *fixedBalance) Value() amount.TokenAmount { return b.v }

type countingRefresher struct{ n int }

func (r *countingRefresher) Refresh(context.Context) error { r.n++; return nil }

type memRecorder struct{ burns []*models.Burn }

func (r *memRecorder) Record(_ context.Context, b *models.Burn) error {
	r.burns = append(r.burns, b)
	return nil
}

type note struct {
	kind Kind
	msg  string
}

type harness struct {
	m         *Machine
	wallet    *fakeWallet
	settler   *fakeSettler
	balance   *fixedBalance
	refresher *countingRefresher
	recorder  *memRecorder
	notes     []note
	states    []State
	cleared   int
}

func newHarness(t *testing.T, balance amount.TokenAmount) *harness {
	t.Helper()
	h := &harness{
		wallet:    &fakeWallet{addr: "owner"},
		settler:   &fakeSettler{},
		balance:   &fixedBalance{v: balance},
		refresher: &countingRefresher{},
		recorder:  &memRecorder{},
	}
	h.m = NewMachine(Config{
		Wallet:      h.wallet,
		Settler:     h.settler,
		Balance:     h.balance,
		Destination: sink,
		Decimals:    9,
		ClearAmount: func() { h.cleared++ },
		Refreshers:  []Refresher{h.refresher},
		Recorder:    h.recorder,
		Notifier:    NotifierFunc(func(k Kind, msg string) { h.notes = append(h.notes, note{k, msg}) }),
		Logger:      zaptest.NewLogger(t),
	})
	h.m.Subscribe(func(s Snapshot) { h.states = append(h.states, s.State) })
	return h
}

func whole(n uint64) amount.TokenAmount { return amount.Whole(n, 9) }

func TestRequestRefusals(t *testing.T) {
	h := newHarness(t, whole(10))

	_, err := h.m.Request(amount.Zero())
	assert.ErrorIs(t, err, ErrZeroAmount)
	assert.Empty(t, h.states, "zero amount never opens the confirmation view")

	h.wallet.addr = ""
	_, err = h.m.Request(whole(1))
	assert.ErrorIs(t, err, ErrNotConnected)

	h.wallet.addr = "owner"
	_, err = h.m.Request(whole(1))
	require.NoError(t, err)
	_, err = h.m.Request(whole(2))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, whole(1), h.m.Snapshot().Request.Amount)
}

func TestRequestAboveTransferLimit(t *testing.T) {
	h := newHarness(t, amount.MaxUint64())
	h.m.cfg.MaxAmount = amount.MaxUint64()

	over, _ := amount.MaxUint64().Add(amount.FromUint64(1))
	_, err := h.m.Request(over)
	assert.ErrorIs(t, err, ErrAboveLimit)
	assert.Empty(t, h.states, "the confirmation view never opens for an untransferable amount")
	assert.Equal(t, Idle, h.m.Snapshot().State)

	_, err = h.m.Request(amount.MaxUint64())
	require.NoError(t, err)
	assert.Equal(t, AwaitingConfirmation, h.m.Snapshot().State)
}

func TestCancel(t *testing.T) {
	h := newHarness(t, whole(10))

	assert.ErrorIs(t, h.m.Cancel(), ErrNoRequest)

	_, err := h.m.Request(whole(1))
	require.NoError(t, err)
	require.NoError(t, h.m.Cancel())

	assert.Equal(t, []State{AwaitingConfirmation, Cancelled, Idle}, h.states)
	assert.Zero(t, h.wallet.calls)
	assert.Empty(t, h.notes)
	assert.Zero(t, h.cleared)
	assert.False(t, h.m.Snapshot().DialogOpen)
}

func TestConfirmAboveBalanceFails(t *testing.T) {
	h := newHarness(t, whole(5_000_000_000))

	req, err := h.m.Request(whole(10_000_000_000))
	require.NoError(t, err)
	assert.False(t, req.Large)

	err = h.m.Confirm(context.Background())
	assert.Equal(t, InsufficientBalance, ReasonOf(err))

	assert.Equal(t, []State{AwaitingConfirmation, Failed, Idle}, h.states)
	assert.Equal(t, []note{{KindError, MsgInsufficientBalance}}, h.notes)
	assert.Zero(t, h.wallet.calls, "never signs")
	assert.Zero(t, h.cleared, "amount field is left alone")
	assert.Equal(t, Idle, h.m.Snapshot().State)
}

func TestConfirmRevalidatesAgainstCurrentBalance(t *testing.T) {
	h := newHarness(t, whole(100))

	_, err := h.m.Request(whole(100))
	require.NoError(t, err)
	h.balance.v = whole(99)

	err = h.m.Confirm(context.Background())
	assert.Equal(t, InsufficientBalance, ReasonOf(err))
}

func TestLargeBurnSettles(t *testing.T) {
	h := newHarness(t, whole(2_000_000_000_000))

	req, err := h.m.Request(whole(1_000_000_000_000))
	require.NoError(t, err)
	assert.True(t, req.Large, "advisory at 10^12 whole tokens")
	assert.True(t, h.m.Snapshot().DialogOpen)

	require.NoError(t, h.m.Confirm(context.Background()))

	assert.Equal(t, []State{AwaitingConfirmation, AwaitingSignature, Submitted, Settled, Idle}, h.states)
	assert.Equal(t, 1, h.cleared)
	assert.Equal(t, 1, h.refresher.n, "balance refresh is forced")
	assert.Equal(t, []note{{KindSuccess, MsgBurnSucceeded}}, h.notes)

	require.Len(t, h.recorder.burns, 1)
	assert.Equal(t, req.ID, h.recorder.burns[0].ID)
	assert.Equal(t, "owner", h.recorder.burns[0].Account)
	assert.True(t, h.recorder.burns[0].Amount.Equal(req.Amount))

	snap := h.m.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.DialogOpen)
	assert.Nil(t, snap.Request)
}

func TestLargeBurnAdvisoryIsInformational(t *testing.T) {
	h := newHarness(t, whole(500_000_000_000))

	req, err := h.m.Request(whole(1_000_000_000_000))
	require.NoError(t, err)
	assert.True(t, req.Large)
	assert.Equal(t, InsufficientBalance, ReasonOf(h.m.Confirm(context.Background())))

	assert.False(t, h.m.IsLarge(whole(999_999_999_999)))
}

func TestWalletFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason Reason
	}{
		{"user rejected", &blockchain.Error{Op: "sign", Err: blockchain.ErrUserRejected}, TransactionRejected},
		{"wallet error", blockchain.ErrWallet, TransactionError},
		{"rpc error", errors.New("connection reset"), TransactionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, whole(10))
			h.wallet.err = tt.err

			_, err := h.m.Request(whole(1))
			require.NoError(t, err)
			err = h.m.Confirm(context.Background())

			assert.Equal(t, tt.reason, ReasonOf(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, []State{AwaitingConfirmation, AwaitingSignature, Failed, Idle}, h.states)
			assert.Equal(t, []note{{KindError, MsgBurnFailed}}, h.notes)
			assert.Zero(t, h.settler.calls)
			assert.Zero(t, h.cleared)
			assert.Empty(t, h.recorder.burns)
		})
	}
}

func TestSettlementFailure(t *testing.T) {
	h := newHarness(t, whole(10))
	h.settler.err = blockchain.ErrTransactionFailed

	_, err := h.m.Request(whole(1))
	require.NoError(t, err)
	err = h.m.Confirm(context.Background())

	assert.Equal(t, TransactionError, ReasonOf(err))
	assert.Equal(t, []State{AwaitingConfirmation, AwaitingSignature, Submitted, Failed, Idle}, h.states)
	assert.Zero(t, h.cleared)
	assert.Zero(t, h.refresher.n)
	assert.Empty(t, h.recorder.burns)

	// A new request is accepted after the failure.
	h.settler.err = nil
	_, err = h.m.Request(whole(1))
	require.NoError(t, err)
	require.NoError(t, h.m.Confirm(context.Background()))
}

func TestPendingBlocksNewRequests(t *testing.T) {
	h := newHarness(t, whole(10))

	var during Snapshot
	var requestErr, cancelErr, confirmErr error
	h.wallet.during = func(context.Context) error {
		during = h.m.Snapshot()
		_, requestErr = h.m.Request(whole(1))
		cancelErr = h.m.Cancel()
		confirmErr = h.m.Confirm(context.Background())
		return nil
	}

	_, err := h.m.Request(whole(2))
	require.NoError(t, err)
	require.NoError(t, h.m.Confirm(context.Background()))

	assert.True(t, during.IsPending())
	assert.ErrorIs(t, requestErr, ErrBusy)
	assert.ErrorIs(t, cancelErr, ErrNoRequest, "no cancellation once signing started")
	assert.ErrorIs(t, confirmErr, ErrNoRequest)
	assert.Equal(t, []Step{
		{StepConfirm, StepCompleted},
		{StepSign, StepActive},
		{StepProcess, StepPending},
	}, during.Steps())
}

func TestSignTimeout(t *testing.T) {
	h := newHarness(t, whole(10))
	h.m.cfg.SignTimeout = 10 * time.Millisecond
	h.wallet.during = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := h.m.Request(whole(1))
	require.NoError(t, err)
	err = h.m.Confirm(context.Background())

	assert.Equal(t, TransactionError, ReasonOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSteps(t *testing.T) {
	labels := func(steps []Step) []string {
		var out []string
		for _, s := range steps {
			out = append(out, s.Label)
		}
		return out
	}
	statuses := func(s State) []StepStatus {
		var out []StepStatus
		for _, st := range (Snapshot{State: s}).Steps() {
			out = append(out, st.Status)
		}
		return out
	}

	assert.Equal(t, []string{"Confirm Transaction", "Sign Transaction", "Transaction Processing"}, labels(Snapshot{}.Steps()))
	assert.Equal(t, []StepStatus{StepActive, StepPending, StepPending}, statuses(AwaitingConfirmation))
	assert.Equal(t, []StepStatus{StepCompleted, StepCompleted, StepActive}, statuses(Submitted))
	assert.Equal(t, []StepStatus{StepCompleted, StepCompleted, StepCompleted}, statuses(Settled))
	assert.Equal(t, []StepStatus{StepPending, StepPending, StepPending}, statuses(Idle))

	assert.False(t, Snapshot{State: AwaitingConfirmation}.IsPending())
	assert.True(t, Snapshot{State: Submitted}.IsPending())
}

func TestObserversSeeTransitionsInOrder(t *testing.T) {
	h := newHarness(t, whole(10))

	var (
		mu   sync.Mutex
		seen []State
	)
	sub := h.m.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	_, err := h.m.Request(whole(1))
	require.NoError(t, err)
	require.NoError(t, h.m.Confirm(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, h.states, seen)
}
