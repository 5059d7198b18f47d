package builder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

const (
	GroupComputeBudget = "compute-budget"
	GroupFlashBorrow   = "flash-borrow"
	GroupSwap          = "swap"
	GroupOperate       = "operate"
	GroupFlashPayback  = "flash-payback"
	GroupTip           = "tip"
)

// Sequence is a flash-loan operation. Groups always come out in the order
// compute budget, flash borrow, swap, operate, flash payback.
type Sequence struct {
	ComputeBudget domain.InstructionGroup
	FlashBorrow   domain.InstructionGroup
	Swap          domain.InstructionGroup
	Operate       domain.InstructionGroup
	FlashPayback  domain.InstructionGroup
}

func (s Sequence) Groups() []domain.InstructionGroup {
	return Compose(s.ComputeBudget, s.FlashBorrow, s.Swap, s.Operate, s.FlashPayback)
}

// Compose keeps the given order and drops empty groups.
func Compose(groups ...domain.InstructionGroup) []domain.InstructionGroup {
	out := make([]domain.InstructionGroup, 0, len(groups))
	for _, g := range groups {
		if !g.Empty() {
			out = append(out, g)
		}
	}
	return out
}

// Instructions flattens groups in order.
func Instructions(groups []domain.InstructionGroup) []solana.Instruction {
	n := 0
	for _, g := range groups {
		n += len(g.Instructions)
	}
	out := make([]solana.Instruction, 0, n)
	for _, g := range groups {
		out = append(out, g.Instructions...)
	}
	return out
}

// LookupTables is the union of the groups' tables, first occurrence wins.
func LookupTables(groups []domain.InstructionGroup) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	out := make([]solana.PublicKey, 0)
	for _, g := range groups {
		for _, t := range g.LookupTables {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// WritableAccounts samples writable accounts for priority fee estimation.
func WritableAccounts(groups []domain.InstructionGroup, limit int) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	out := make([]solana.PublicKey, 0, limit)
	for _, ix := range Instructions(groups) {
		for _, acc := range ix.Accounts() {
			if !acc.IsWritable || acc.IsSigner {
				continue
			}
			if _, ok := seen[acc.PublicKey]; ok {
				continue
			}
			seen[acc.PublicKey] = struct{}{}
			out = append(out, acc.PublicKey)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func group(label string, ixs ...solana.Instruction) domain.InstructionGroup {
	return domain.InstructionGroup{Label: label, Instructions: ixs}
}
