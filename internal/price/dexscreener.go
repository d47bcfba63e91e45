// internal/price/dexscreener.go
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const (
	DefaultDexScreenerURL = "https://api.dexscreener.com/latest/dex"
	DefaultRateLimit      = 300 // requests per minute
)

// dexScreenerResponse is the subset of the tokens endpoint we read.
type dexScreenerResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []pairInfo `json:"pairs"`
}

type pairInfo struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
}

// DexScreener is a Source backed by the DexScreener public API.
type DexScreener struct {
	client  *http.Client
	baseURL string
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// DexScreenerOption configures a DexScreener.
type DexScreenerOption func(*DexScreener)

func WithBaseURL(url string) DexScreenerOption {
	return func(d *DexScreener) {
		if url != "" {
			d.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) DexScreenerOption {
	return func(d *DexScreener) { d.client = c }
}

// WithRateLimit caps requests per minute; zero or less disables pacing.
func WithRateLimit(perMinute int) DexScreenerOption {
	return func(d *DexScreener) {
		if perMinute <= 0 {
			d.limiter = ratelimit.NewUnlimited()
			return
		}
		d.limiter = ratelimit.New(perMinute, ratelimit.Per(time.Minute))
	}
}

func NewDexScreener(logger *zap.Logger, opts ...DexScreenerOption) *DexScreener {
	d := &DexScreener{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: DefaultDexScreenerURL,
		limiter: ratelimit.New(DefaultRateLimit, ratelimit.Per(time.Minute)),
		logger:  logger.Named("dexscreener"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchPrice reads priceUsd from the first pair listed for the token.
func (d *DexScreener) FetchPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/tokens/%s", d.baseURL, tokenAddress)

	response, err := d.doRequest(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}
	if len(response.Pairs) == 0 {
		return decimal.Zero, ErrNoPrice
	}

	pair := response.Pairs[0]
	if pair.PriceUSD == "" {
		return decimal.Zero, ErrNoPrice
	}

	value, err := decimal.NewFromString(pair.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: priceUsd %q", ErrMalformedPayload, pair.PriceUSD)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative priceUsd %q", ErrMalformedPayload, pair.PriceUSD)
	}

	d.logger.Debug("Price fetched",
		zap.String("token", tokenAddress),
		zap.String("pair_address", pair.PairAddress),
		zap.String("dex", pair.DexID),
		zap.String("price_usd", value.String()))

	return value, nil
}

func (d *DexScreener) doRequest(ctx context.Context, url string) (*dexScreenerResponse, error) {
	d.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &response, nil
}
