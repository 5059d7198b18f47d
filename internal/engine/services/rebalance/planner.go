// Package rebalance moves collateral from a healthier position to a riskier
// one sharing the same collateral asset until their LTVs match.
package rebalance

import (
	"github.com/shopspring/decimal"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

var hundred = decimal.NewFromInt(100)

const (
	ReasonNotHealthier   = "source position is not healthier than target"
	ReasonMarginExceeded = "source position has no room below its LTV limit"
	ReasonDust           = "transfer rounds to zero base units"
)

type PlanInput struct {
	Source      domain.Position
	Target      domain.Position
	SourceVault domain.VaultConfig
	TargetVault domain.VaultConfig

	// Percent points kept between the source LTV and the lower vault max.
	SafetyMarginPct decimal.Decimal
	// Percent of source collateral the move may take.
	MaxFractionPct decimal.Decimal
}

// Recommendation is empty when Amount is zero; Reason then says why.
type Recommendation struct {
	Amount  decimal.Decimal
	Reason  string
	Summary domain.RebalanceSummary
}

func (r Recommendation) Empty() bool {
	return r.Amount.Sign() <= 0
}

// Plan solves A/(sC-x) = B/(tC+x) for x, where A and B are each position's
// debt in collateral units, then applies the fraction cap and LTV margin.
func Plan(in PlanInput) Recommendation {
	sC, tC := in.Source.Collateral, in.Target.Collateral
	a := in.Source.DebtInCollateral()
	b := in.Target.DebtInCollateral()

	rec := Recommendation{Summary: domain.RebalanceSummary{
		SourceLTVBefore: in.Source.ComputeLTV(),
		TargetLTVBefore: in.Target.ComputeLTV(),
	}}

	denom := a.Add(b)
	if denom.Sign() <= 0 {
		rec.Reason = ReasonNotHealthier
		return rec
	}
	x := b.Mul(sC).Sub(a.Mul(tC)).Div(denom)
	if x.Sign() <= 0 {
		rec.Reason = ReasonNotHealthier
		return rec
	}

	maxMove := sC.Mul(in.MaxFractionPct).Div(hundred)
	if x.GreaterThan(maxMove) {
		x = maxMove
		rec.Summary.Capped = true
	}

	limit := decimal.Min(in.SourceVault.MaxLTV, in.TargetVault.MaxLTV).Sub(in.SafetyMarginPct)
	rec.Summary.LTVLimit = limit
	if limit.Sign() <= 0 {
		rec.Reason = ReasonMarginExceeded
		return rec
	}
	// 100*A/(sC-x) <= limit  =>  x <= sC - 100*A/limit
	bound := sC.Sub(a.Mul(hundred).Div(limit))
	if x.GreaterThan(bound) {
		x = bound
		rec.Summary.Shrunk = true
	}
	if x.Sign() <= 0 {
		rec.Reason = ReasonMarginExceeded
		return rec
	}

	// floor to base units so rounding never moves past the bounds above
	x = x.Truncate(int32(in.SourceVault.CollateralDecimals))
	if x.Sign() <= 0 {
		rec.Reason = ReasonDust
		return rec
	}

	rec.Amount = x
	rec.Summary.SourceLTVAfter = ltv(a, sC.Sub(x))
	rec.Summary.TargetLTVAfter = ltv(b, tC.Add(x))
	return rec
}

func ltv(debtInCollateral, collateral decimal.Decimal) decimal.Decimal {
	if collateral.Sign() <= 0 {
		return decimal.Zero
	}
	return debtInCollateral.Div(collateral).Mul(hundred)
}
