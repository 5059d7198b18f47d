package builder

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	maxUint = decimal.NewFromUint64(math.MaxUint64)
)

// ImpliedPrice is the collateral price in debt units implied by the
// position's own LTV: debt / (collateral * ltv/100).
func ImpliedPrice(collateral, debt, ltv decimal.Decimal) (decimal.Decimal, error) {
	if collateral.Sign() <= 0 {
		return decimal.Zero, domain.NewValidationError("position", "has no collateral")
	}
	if ltv.Sign() <= 0 {
		return decimal.Zero, domain.NewValidationError("position", "has no debt against its collateral")
	}
	return debt.Div(collateral.Mul(ltv).Div(hundred)), nil
}

// MaxWithdrawable is min(collateral, debt / impliedPrice), the most
// collateral a deleverage may flash-withdraw.
func MaxWithdrawable(collateral, debt, ltv decimal.Decimal) (decimal.Decimal, error) {
	price, err := ImpliedPrice(collateral, debt, ltv)
	if err != nil {
		return decimal.Zero, err
	}
	if price.Sign() <= 0 {
		return decimal.Zero, domain.NewValidationError("position", "has no debt")
	}
	return decimal.Min(collateral, debt.Div(price)), nil
}

// ProjectedLTV is the LTV in percent after the position holds collateral and
// debt at the given prices.
func ProjectedLTV(collateral, debt, collateralPrice, debtPrice decimal.Decimal) decimal.Decimal {
	colValue := collateral.Mul(collateralPrice)
	if colValue.Sign() <= 0 {
		if debt.Sign() > 0 {
			return decimal.NewFromInt(math.MaxInt32)
		}
		return decimal.Zero
	}
	return debt.Mul(debtPrice).Div(colValue).Mul(hundred)
}

// ToRaw converts a UI amount to base units, truncating below one unit.
func ToRaw(ui decimal.Decimal, decimals uint8) (uint64, error) {
	raw := ui.Shift(int32(decimals)).Truncate(0)
	if raw.Sign() < 0 {
		return 0, fmt.Errorf("negative amount %s", ui)
	}
	if raw.GreaterThan(maxUint) {
		return 0, fmt.Errorf("amount %s overflows u64", ui)
	}
	return raw.BigInt().Uint64(), nil
}

func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}

// ValidateInput checks the caller-supplied fields. It needs no chain or
// cache state, so it runs before the position id is resolved.
func ValidateInput(req domain.SwapOperationRequest) error {
	if req.Wallet.IsZero() {
		return domain.NewValidationError("wallet", "missing")
	}
	if req.Amount.Sign() <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	if req.SlippageBps >= 10_000 {
		return domain.NewValidationError("slippageBps", "must be below 10000")
	}
	return nil
}

// ValidateRequest runs the checks that must pass before any quote or
// protocol call.
func ValidateRequest(req domain.SwapOperationRequest) error {
	if err := ValidateInput(req); err != nil {
		return err
	}
	if req.Position.PositionID == 0 {
		return domain.NewValidationError("position", "no position selected")
	}
	return nil
}
