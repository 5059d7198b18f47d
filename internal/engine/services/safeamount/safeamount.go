// Package safeamount nudges protocol amounts onto values that only touch
// already-initialized tick/branch accounts.
package safeamount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Direction int

const (
	// Down is used when reducing debt (deleverage repay).
	Down Direction = iota
	// Up is used when increasing debt (leverage borrow).
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Table lists the known-safe whole amounts per decimal scale. The last entry
// is the threshold above which plain floor/ceil is safe. Values were measured
// offline.
var Table = map[uint8][]int64{
	6: {3, 5, 8},
}

type Result struct {
	Requested decimal.Decimal
	Amount    decimal.Decimal
	// Dust is |Requested - Amount|: left in the wallet when rounding down,
	// sourced from it when rounding up.
	Dust      decimal.Decimal
	Direction Direction
}

// Raw converts the rounded amount to base units.
func (r Result) Raw(decimals uint8) uint64 {
	return uint64(r.Amount.Shift(int32(decimals)).IntPart())
}

// Round snaps amount (UI scale) to a safe value for an asset with the given
// decimals. Scales without a table round at native precision.
func Round(amount decimal.Decimal, decimals uint8, dir Direction) Result {
	res := Result{Requested: amount, Direction: dir}
	if amount.Sign() <= 0 {
		res.Amount = decimal.Zero
		res.Dust = amount.Abs()
		return res
	}

	tiers, ok := Table[decimals]
	if !ok {
		res.Amount = roundNative(amount, decimals, dir)
	} else {
		res.Amount = roundTiered(amount, tiers, dir)
	}
	res.Dust = amount.Sub(res.Amount).Abs()
	return res
}

func roundTiered(amount decimal.Decimal, tiers []int64, dir Direction) decimal.Decimal {
	threshold := decimal.NewFromInt(tiers[len(tiers)-1])
	if amount.GreaterThanOrEqual(threshold) {
		if dir == Up {
			return amount.Ceil()
		}
		return amount.Floor()
	}

	if dir == Up {
		for _, t := range tiers {
			v := decimal.NewFromInt(t)
			if v.GreaterThanOrEqual(amount) {
				return v
			}
		}
		return threshold
	}

	best := decimal.Zero
	for _, t := range tiers[:len(tiers)-1] {
		v := decimal.NewFromInt(t)
		if v.LessThanOrEqual(amount) {
			best = v
		}
	}
	return best
}

func roundNative(amount decimal.Decimal, decimals uint8, dir Direction) decimal.Decimal {
	if dir == Up {
		return amount.RoundCeil(int32(decimals))
	}
	return amount.RoundFloor(int32(decimals))
}

// Describe renders the outcome for logs and warnings.
func (r Result) Describe() string {
	return fmt.Sprintf("%s rounded %s to %s (dust %s)", r.Requested, r.Direction, r.Amount, r.Dust)
}
