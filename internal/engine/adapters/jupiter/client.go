// Package jupiter adapts the swap aggregator's quote and swap-instructions API.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/wire"
	"github.com/hxuan190/leverage-engine/internal/engine/services/quote"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

type Options struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	Timeout        time.Duration
}

type Client struct {
	http    *wire.Client
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		http:    wire.NewClient(opts.BaseURL, opts.Timeout, map[string]string{"x-api-key": opts.APIKey}),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type quoteResponse struct {
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	PriceImpactPct       string `json:"priceImpactPct"`
}

type swapInstructionsRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapInstructionsResponse struct {
	SetupInstructions           []*wire.Instruction `json:"setupInstructions"`
	SwapInstruction             *wire.Instruction   `json:"swapInstruction"`
	CleanupInstruction          *wire.Instruction   `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string            `json:"addressLookupTableAddresses"`
}

// Quote fetches a route and its instructions. Compute budget instructions
// from the aggregator are dropped; the engine sets its own.
func (c *Client) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.SwapQuote, error) {
	raw, err := c.call(ctx, "quote", http.MethodGet, "/quote", quoteParams(req), nil)
	if err != nil {
		return nil, err
	}
	var q quoteResponse
	if err := sonic.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	out, err := parseAmount(q.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("quote outAmount: %w", err)
	}
	sq := &domain.SwapQuote{
		InAmount:    req.Amount,
		ExpectedOut: out,
		MinimumOut:  quote.SlippageFloor(out, req.SlippageBps),
	}
	if in, err := parseAmount(q.InAmount); err == nil && in > 0 {
		sq.InAmount = in
	}
	if threshold, err := parseAmount(q.OtherAmountThreshold); err == nil && threshold > 0 {
		sq.MinimumOut = threshold
	}
	if impact, err := decimal.NewFromString(q.PriceImpactPct); err == nil {
		sq.PriceImpactPct = impact
	}
	if out == 0 {
		return sq, nil
	}

	body, err := c.call(ctx, "swap-instructions", http.MethodPost, "/swap-instructions", nil, &swapInstructionsRequest{
		QuoteResponse:    raw,
		UserPublicKey:    req.User.String(),
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return nil, err
	}
	var ixs swapInstructionsResponse
	if err := sonic.Unmarshal(body, &ixs); err != nil {
		return nil, fmt.Errorf("decode swap instructions: %w", err)
	}
	if ixs.SwapInstruction == nil {
		return sq, nil
	}

	ordered := append(append([]*wire.Instruction{}, ixs.SetupInstructions...), ixs.SwapInstruction, ixs.CleanupInstruction)
	sq.Instructions, err = wire.DecodeAll(ordered...)
	if err != nil {
		return nil, fmt.Errorf("swap instructions: %w", err)
	}
	sq.LookupTables, err = wire.PublicKeys(ixs.AddressLookupTableAddresses)
	if err != nil {
		return nil, fmt.Errorf("swap lookup tables: %w", err)
	}
	return sq, nil
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, query url.Values, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.AggregatorDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()
	return c.http.Raw(ctx, method, path, query, payload)
}

func quoteParams(req domain.QuoteRequest) url.Values {
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(req.SlippageBps)))
	if len(req.Dexes) > 0 {
		q.Set("dexes", strings.Join(req.Dexes, ","))
	}
	if req.DirectRoutesOnly {
		q.Set("onlyDirectRoutes", "true")
	}
	if req.MaxAccounts > 0 {
		q.Set("maxAccounts", strconv.Itoa(req.MaxAccounts))
	}
	return q
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
