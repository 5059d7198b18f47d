package domain

import "github.com/shopspring/decimal"

// RoundingOutcome reports what the safe-amount heuristic did to one leg.
// Dust stays in (down) or must come from (up) the wallet.
type RoundingOutcome struct {
	Leg       string          `json:"leg"`
	Direction string          `json:"direction"`
	Requested decimal.Decimal `json:"requested"`
	Rounded   decimal.Decimal `json:"rounded"`
	Dust      decimal.Decimal `json:"dust"`
}

type BuildResult struct {
	ID        string           `json:"id"`
	Operation Operation        `json:"operation"`
	Plan      *TransactionPlan `json:"plan,omitempty"`

	Quote    *QuoteSummary    `json:"quote,omitempty"`
	Rounding *RoundingOutcome `json:"rounding,omitempty"`

	// OperateInstructions counts what the protocol returned for the operate leg.
	OperateInstructions int `json:"operateInstructions,omitempty"`

	ProjectedLTV decimal.Decimal `json:"projectedLtv"`
	Amount       decimal.Decimal `json:"amount"`

	Rebalance  *RebalanceSummary `json:"rebalance,omitempty"`
	Simulation *SimulationResult `json:"simulation,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`

	// Reason explains an empty rebalance recommendation.
	Reason string `json:"reason,omitempty"`
}

type ExecutionResult struct {
	Mode       PlanMode `json:"mode"`
	Signatures []string `json:"signatures,omitempty"`
	BundleID   string   `json:"bundleId,omitempty"`
	Confirmed  bool     `json:"confirmed"`
}

// RebalanceSummary shows both positions' LTV around the recommended move.
type RebalanceSummary struct {
	SourceLTVBefore decimal.Decimal `json:"sourceLtvBefore"`
	SourceLTVAfter  decimal.Decimal `json:"sourceLtvAfter"`
	TargetLTVBefore decimal.Decimal `json:"targetLtvBefore"`
	TargetLTVAfter  decimal.Decimal `json:"targetLtvAfter"`
	// LTVLimit is the ceiling the source had to stay under.
	LTVLimit decimal.Decimal `json:"ltvLimit"`
	Capped   bool            `json:"capped"`
	Shrunk   bool            `json:"shrunk"`
}
