package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct{ err error }

func (s stubReader) ReadUint(context.Context, string, string, ...string) (amount.TokenAmount, error) {
	return amount.FromUint64(7), s.err
}

func TestObserveBurn(t *testing.T) {
	c := NewCollector(9)
	req := &burn.Request{Amount: amount.Whole(1_000, 9), CreatedAt: time.Now().Add(-time.Second)}

	c.ObserveBurn(burn.Snapshot{State: burn.AwaitingConfirmation, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Settled, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Failed, Reason: burn.InsufficientBalance, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Failed, Reason: burn.TransactionRejected, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Failed, Reason: burn.TransactionError, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Cancelled, Request: req})
	c.ObserveBurn(burn.Snapshot{State: burn.Idle})

	for _, outcome := range []string{OutcomeSettled, OutcomeInsufficient, OutcomeRejected, OutcomeFailed, OutcomeCancelled} {
		assert.Equal(t, 1.0, testutil.ToFloat64(c.burns.WithLabelValues(outcome)), outcome)
	}
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.burnedTokens))
	assert.Equal(t, 1, testutil.CollectAndCount(c.burnDuration))
}

func TestInstrumentReader(t *testing.T) {
	c := NewCollector(9)
	ok := c.InstrumentReader(stubReader{})
	bad := c.InstrumentReader(stubReader{err: errors.New("rpc down")})

	v, err := ok.ReadUint(context.Background(), "mint", blockchain.FuncTotalBurned)
	require.NoError(t, err)
	assert.True(t, v.Equal(amount.FromUint64(7)))
	_, err = bad.ReadUint(context.Background(), "mint", blockchain.FuncBalanceOf, "owner")
	assert.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(c.chainReads))
}

func TestHandler(t *testing.T) {
	c := NewCollector(9)
	c.ObservePrice(price.Price{})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "burn_portal_price_updates_total 1"), body)
}
