package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// OperateRequest moves collateral and debt of one position. Positive deltas
// deposit/borrow, negative deltas withdraw/repay.
type OperateRequest struct {
	VaultID         uint32
	PositionID      uint32
	CollateralDelta *big.Int
	DebtDelta       *big.Int
	Signer          solana.PublicKey
	Recipient       solana.PublicKey
}

type OperateResult struct {
	Instructions  []solana.Instruction
	PositionNftID uint32
	LookupTables  []solana.PublicKey
}

func (r *OperateResult) Group(label string) InstructionGroup {
	return InstructionGroup{Label: label, Instructions: r.Instructions, LookupTables: r.LookupTables}
}

type FlashRequest struct {
	Asset  solana.PublicKey
	Amount uint64
	Signer solana.PublicKey
}

// Delta converts a raw amount and a sign into a signed delta.
func Delta(raw uint64, negative bool) *big.Int {
	d := new(big.Int).SetUint64(raw)
	if negative {
		d.Neg(d)
	}
	return d
}
