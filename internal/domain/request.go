package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type Operation string

const (
	OperationLeverage   Operation = "leverage"
	OperationDeleverage Operation = "deleverage"
	OperationRebalance  Operation = "rebalance"
)

// PositionKey identifies one position of a wallet.
type PositionKey struct {
	VaultID    uint32 `json:"vaultId"`
	PositionID uint32 `json:"positionId"`
}

// SwapOperationRequest drives leverage and deleverage. Amount is UI-scale:
// debt units for leverage, collateral units for deleverage.
type SwapOperationRequest struct {
	Wallet   solana.PublicKey
	Position PositionKey
	Amount   decimal.Decimal

	SlippageBps      uint16
	PreferredDexes   []string
	DirectRoutesOnly bool
	MaxAccounts      int

	// AllowBundle lets an oversized build fall back to a relay bundle.
	AllowBundle bool
	// ForceBundle skips the single-transaction attempt.
	ForceBundle    bool
	SkipSimulation bool
}

// RebalanceRequest has no simulation opt-out: every rebalance plan is
// simulated before it is returned.
type RebalanceRequest struct {
	Wallet      solana.PublicKey
	Source      PositionKey
	Target      PositionKey
	ForceBundle bool
}
