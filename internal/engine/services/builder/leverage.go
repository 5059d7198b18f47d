package builder

import (
	"context"
	"fmt"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/safeamount"
)

// PrepareLeverage plans flash-borrow(debt) -> swap(debt->collateral) ->
// operate(+minimum swap output, +roundUp(amount)) -> flash-payback(debt).
func (svc *BuilderService) PrepareLeverage(ctx context.Context, snap domain.Snapshot, req domain.SwapOperationRequest) (*Prepared, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	vault := snap.Vault
	pos := snap.Position

	flashRaw, err := ToRaw(req.Amount, vault.DebtDecimals)
	if err != nil {
		return nil, domain.NewValidationError("amount", err.Error())
	}
	if flashRaw == 0 {
		return nil, domain.NewValidationError("amount", "below one base unit")
	}

	q, attempts, err := svc.quotes.Select(ctx, domain.QuoteRequest{
		User:             req.Wallet,
		InputMint:        vault.DebtMint,
		OutputMint:       vault.CollateralMint,
		Amount:           flashRaw,
		SlippageBps:      svc.slippage(req.SlippageBps),
		DirectRoutesOnly: req.DirectRoutesOnly,
		MaxAccounts:      req.MaxAccounts,
	}, req.PreferredDexes)
	if err != nil {
		return nil, err
	}

	rounding := safeamount.Round(req.Amount, vault.DebtDecimals, safeamount.Up)
	borrowRaw := rounding.Raw(vault.DebtDecimals)
	if borrowRaw < flashRaw {
		borrowRaw = flashRaw
	}

	p := &Prepared{
		Operation:      domain.OperationLeverage,
		Request:        req,
		Snapshot:       snap,
		Quote:          q,
		Attempts:       attempts,
		FlashAsset:     vault.DebtMint,
		FlashAmountRaw: flashRaw,
		CollateralRaw:  q.MinimumOut,
		DebtRaw:        borrowRaw,
		Rounding:       rounding,
		RoundingLeg:    "borrow",
	}
	p.noteRounding()

	newCollateral := pos.Collateral.Add(FromRaw(q.MinimumOut, vault.CollateralDecimals))
	newDebt := pos.Debt.Add(FromRaw(borrowRaw, vault.DebtDecimals))
	p.ProjectedLTV = ProjectedLTV(newCollateral, newDebt, pos.CollateralPrice, pos.DebtPrice)
	if p.ProjectedLTV.GreaterThanOrEqual(vault.MaxLTV) {
		return nil, domain.NewValidationError("amount",
			fmt.Sprintf("projected LTV %s%% reaches vault max %s%%", p.ProjectedLTV.StringFixed(2), vault.MaxLTV))
	}

	if err := svc.composeFlash(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
