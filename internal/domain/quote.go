package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// QuoteRequest is sent to the swap aggregator. Dexes restricts the route to
// the listed venues; an empty list means unrestricted.
type QuoteRequest struct {
	User             solana.PublicKey
	InputMint        solana.PublicKey
	OutputMint       solana.PublicKey
	Amount           uint64
	SlippageBps      uint16
	Dexes            []string
	DirectRoutesOnly bool
	MaxAccounts      int
}

// WithDexes returns a copy restricted to dexes.
func (r QuoteRequest) WithDexes(dexes []string) QuoteRequest {
	r.Dexes = dexes
	return r
}

type SwapQuote struct {
	InAmount       uint64          `json:"inAmount"`
	ExpectedOut    uint64          `json:"expectedOut"`
	MinimumOut     uint64          `json:"minimumOut"`
	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`

	Instructions []solana.Instruction `json:"-"`
	LookupTables []solana.PublicKey   `json:"lookupTables"`

	// Strategy names the route restriction that produced the quote.
	Strategy string `json:"strategy"`
}

// Empty reports whether the aggregator returned nothing usable.
func (q *SwapQuote) Empty() bool {
	return q == nil || q.ExpectedOut == 0 || len(q.Instructions) == 0
}

// Group wraps the swap instructions as an instruction group.
func (q *SwapQuote) Group() InstructionGroup {
	return InstructionGroup{Label: "swap", Instructions: q.Instructions, LookupTables: q.LookupTables}
}

type QuoteSummary struct {
	Strategy       string          `json:"strategy"`
	Attempts       []string        `json:"attempts"`
	InAmount       uint64          `json:"inAmount"`
	ExpectedOut    uint64          `json:"expectedOut"`
	MinimumOut     uint64          `json:"minimumOut"`
	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`
}

func (q *SwapQuote) Summary(attempts []string) *QuoteSummary {
	return &QuoteSummary{
		Strategy:       q.Strategy,
		Attempts:       attempts,
		InAmount:       q.InAmount,
		ExpectedOut:    q.ExpectedOut,
		MinimumOut:     q.MinimumOut,
		PriceImpactPct: q.PriceImpactPct,
	}
}
