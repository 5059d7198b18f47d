package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Position is a user's collateral/debt balance inside one vault.
type Position struct {
	VaultID    uint32           `json:"vaultId"`
	PositionID uint32           `json:"positionId"`
	Owner      solana.PublicKey `json:"owner"`

	CollateralRaw uint64 `json:"collateralRaw"`
	DebtRaw       uint64 `json:"debtRaw"`

	// UI-scale amounts derived from the raw amounts and mint decimals.
	Collateral decimal.Decimal `json:"collateral"`
	Debt       decimal.Decimal `json:"debt"`

	// USD prices at snapshot time.
	CollateralPrice decimal.Decimal `json:"collateralPrice"`
	DebtPrice       decimal.Decimal `json:"debtPrice"`

	// LTV in percent.
	LTV decimal.Decimal `json:"ltv"`
}

// ComputeLTV returns debt value over collateral value, in percent.
// A position with no collateral value reports zero.
func (p *Position) ComputeLTV() decimal.Decimal {
	colValue := p.Collateral.Mul(p.CollateralPrice)
	if colValue.Sign() <= 0 {
		return decimal.Zero
	}
	return p.Debt.Mul(p.DebtPrice).Div(colValue).Mul(hundred)
}

// DebtInCollateral expresses the debt in collateral units at snapshot prices.
func (p *Position) DebtInCollateral() decimal.Decimal {
	if p.CollateralPrice.Sign() <= 0 {
		return decimal.Zero
	}
	return p.Debt.Mul(p.DebtPrice).Div(p.CollateralPrice)
}

// VaultConfig is the protocol-side configuration of a collateral/debt pairing.
type VaultConfig struct {
	VaultID uint32           `json:"vaultId"`
	Address solana.PublicKey `json:"address"`

	CollateralMint     solana.PublicKey `json:"collateralMint"`
	DebtMint           solana.PublicKey `json:"debtMint"`
	CollateralDecimals uint8            `json:"collateralDecimals"`
	DebtDecimals       uint8            `json:"debtDecimals"`

	// Percent values.
	MaxLTV         decimal.Decimal `json:"maxLtv"`
	LiquidationLTV decimal.Decimal `json:"liquidationLtv"`

	Oracle solana.PublicKey `json:"oracle"`
}

func (v *VaultConfig) Validate() error {
	if v.MaxLTV.Sign() <= 0 {
		return NewValidationError("maxLtv", "must be positive")
	}
	if !v.LiquidationLTV.GreaterThan(v.MaxLTV) {
		return NewValidationError("liquidationLtv", "must be greater than maxLtv")
	}
	return nil
}

// Snapshot pins the chain-derived values a build reads. It is never mutated
// after LoadSnapshot returns it.
type Snapshot struct {
	Position Position    `json:"position"`
	Vault    VaultConfig `json:"vault"`
	TakenAt  time.Time   `json:"takenAt"`
}

// PositionRef points at a position discovered for a wallet.
type PositionRef struct {
	PositionID  uint32    `json:"positionId"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// WalletPositions is the persisted position-id cache entry for one wallet.
type WalletPositions struct {
	Wallet       string                            `json:"wallet"`
	ByVault      map[uint32]PositionRef            `json:"byVault"`
	ByCollateral map[string]map[uint32]PositionRef `json:"byCollateral"`
	RefreshedAt  time.Time                         `json:"refreshedAt"`
}

// PositionID returns the cached position id for a vault.
func (w *WalletPositions) PositionID(vaultID uint32) (uint32, bool) {
	if w == nil {
		return 0, false
	}
	ref, ok := w.ByVault[vaultID]
	return ref.PositionID, ok
}

// Stale reports whether the entry is older than maxAge.
func (w *WalletPositions) Stale(now time.Time, maxAge time.Duration) bool {
	return w == nil || now.Sub(w.RefreshedAt) > maxAge
}
