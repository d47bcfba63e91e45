// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
)

const namespace = "burn_portal"

// Burn outcomes.
const (
	OutcomeSettled      = "settled"
	OutcomeFailed       = "failed"
	OutcomeRejected     = "rejected"
	OutcomeInsufficient = "insufficient"
	OutcomeCancelled    = "cancelled"
)

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry
	convert  *valuation.Converter

	burns        *prometheus.CounterVec
	burnedTokens prometheus.Counter
	burnDuration prometheus.Histogram
	chainReads   *prometheus.HistogramVec
	priceUpdates prometheus.Counter
}

func NewCollector(decimals uint8) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		convert:  valuation.NewConverter(decimals),
		burns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burns_total",
			Help:      "Burn requests by outcome",
		}, []string{"outcome"}),
		burnedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burned_tokens_total",
			Help:      "Whole tokens burned through settled requests",
		}),
		burnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "burn_duration_seconds",
			Help:      "Time from burn request to settlement",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		chainReads: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_read_seconds",
			Help:      "Latency of contract reads",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"function", "status"}),
		priceUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_updates_total",
			Help:      "Price changes received from the feed",
		}),
	}
	c.registry.MustRegister(c.burns, c.burnedTokens, c.burnDuration, c.chainReads, c.priceUpdates)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveBurn counts terminal machine states. Each terminal state is entered
// once per request.
func (c *Collector) ObserveBurn(snap burn.Snapshot) {
	switch snap.State {
	case burn.Settled:
		c.burns.WithLabelValues(OutcomeSettled).Inc()
		if snap.Request != nil {
			c.burnedTokens.Add(c.convert.WholeTokens(snap.Request.Amount).InexactFloat64())
			c.burnDuration.Observe(time.Since(snap.Request.CreatedAt).Seconds())
		}
	case burn.Failed:
		switch snap.Reason {
		case burn.InsufficientBalance:
			c.burns.WithLabelValues(OutcomeInsufficient).Inc()
		case burn.TransactionRejected:
			c.burns.WithLabelValues(OutcomeRejected).Inc()
		default:
			c.burns.WithLabelValues(OutcomeFailed).Inc()
		}
	case burn.Cancelled:
		c.burns.WithLabelValues(OutcomeCancelled).Inc()
	}
}

// ObservePrice counts a price change.
func (c *Collector) ObservePrice(price.Price) {
	c.priceUpdates.Inc()
}

// InstrumentReader times every read of r.
func (c *Collector) InstrumentReader(r blockchain.Reader) blockchain.Reader {
	return &timedReader{next: r, hist: c.chainReads}
}

type timedReader struct {
	next blockchain.Reader
	hist *prometheus.HistogramVec
}

func (t *timedReader) ReadUint(ctx context.Context, contract, function string, args ...string) (amount.TokenAmount, error) {
	start := time.Now()
	v, err := t.next.ReadUint(ctx, contract, function, args...)
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.hist.WithLabelValues(function, status).Observe(time.Since(start).Seconds())
	return v, err
}
