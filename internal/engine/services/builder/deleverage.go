package builder

import (
	"context"
	"fmt"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/safeamount"
)

// PrepareDeleverage plans flash-borrow(collateral) -> swap(collateral->debt)
// -> operate(-amount, -roundDown(minimum swap output)) ->
// flash-payback(collateral). The collateral leg is the exact flash amount so
// the payback balances; only the repay leg is rounded.
func (svc *BuilderService) PrepareDeleverage(ctx context.Context, snap domain.Snapshot, req domain.SwapOperationRequest) (*Prepared, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	vault := snap.Vault
	pos := snap.Position

	if pos.DebtRaw == 0 {
		return nil, domain.NewValidationError("position", "has no debt to repay")
	}
	maxAmount, err := MaxWithdrawable(pos.Collateral, pos.Debt, pos.LTV)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(maxAmount) {
		return nil, domain.NewValidationError("amount",
			fmt.Sprintf("%s exceeds max withdrawable %s", req.Amount, maxAmount.StringFixed(int32(vault.CollateralDecimals))))
	}

	flashRaw, err := ToRaw(req.Amount, vault.CollateralDecimals)
	if err != nil {
		return nil, domain.NewValidationError("amount", err.Error())
	}
	if flashRaw == 0 {
		return nil, domain.NewValidationError("amount", "below one base unit")
	}

	q, attempts, err := svc.quotes.Select(ctx, domain.QuoteRequest{
		User:             req.Wallet,
		InputMint:        vault.CollateralMint,
		OutputMint:       vault.DebtMint,
		Amount:           flashRaw,
		SlippageBps:      svc.slippage(req.SlippageBps),
		DirectRoutesOnly: req.DirectRoutesOnly,
		MaxAccounts:      req.MaxAccounts,
	}, req.PreferredDexes)
	if err != nil {
		return nil, err
	}

	rounding := safeamount.Round(FromRaw(q.MinimumOut, vault.DebtDecimals), vault.DebtDecimals, safeamount.Down)
	repayRaw := rounding.Raw(vault.DebtDecimals)
	if repayRaw == 0 {
		return nil, domain.NewValidationError("amount",
			fmt.Sprintf("swap output %s rounds to a zero repay", rounding.Requested))
	}

	p := &Prepared{
		Operation:      domain.OperationDeleverage,
		Request:        req,
		Snapshot:       snap,
		Quote:          q,
		Attempts:       attempts,
		FlashAsset:     vault.CollateralMint,
		FlashAmountRaw: flashRaw,
		CollateralRaw:  flashRaw,
		DebtRaw:        repayRaw,
		Rounding:       rounding,
		RoundingLeg:    "repay",
	}

	if repayRaw > pos.DebtRaw {
		p.DebtRaw = pos.DebtRaw
		p.Warnings = append(p.Warnings, fmt.Sprintf("repay clamped to outstanding debt %d", pos.DebtRaw))
	}
	p.noteRounding()

	newCollateral := pos.Collateral.Sub(FromRaw(flashRaw, vault.CollateralDecimals))
	newDebt := pos.Debt.Sub(FromRaw(p.DebtRaw, vault.DebtDecimals))
	p.ProjectedLTV = ProjectedLTV(newCollateral, newDebt, pos.CollateralPrice, pos.DebtPrice)
	if p.ProjectedLTV.GreaterThan(pos.LTV) && p.ProjectedLTV.GreaterThanOrEqual(vault.MaxLTV) {
		return nil, domain.NewValidationError("amount",
			fmt.Sprintf("repay too small: projected LTV %s%% reaches vault max %s%%", p.ProjectedLTV.StringFixed(2), vault.MaxLTV))
	}

	if err := svc.composeFlash(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
