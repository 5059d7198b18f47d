package domain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MaxTransactionSize is the serialized packet ceiling enforced by the network.
const MaxTransactionSize = 1232

type PlanMode string

const (
	PlanModeSingle PlanMode = "single"
	PlanModeBundle PlanMode = "bundle"
)

// InstructionGroup is an ordered run of instructions plus the lookup tables
// they need. Groups are concatenated, never reordered.
type InstructionGroup struct {
	Label        string
	Instructions []solana.Instruction
	LookupTables []solana.PublicKey
}

func (g InstructionGroup) Empty() bool {
	return len(g.Instructions) == 0
}

type PlannedTransaction struct {
	Label       string              `json:"label"`
	Transaction *solana.Transaction `json:"-"`
	Base64      string              `json:"transaction"`
	Size        int                 `json:"size"`
}

type Tip struct {
	Account  solana.PublicKey `json:"account"`
	Lamports uint64           `json:"lamports"`
}

type TransactionPlan struct {
	Mode                 PlanMode             `json:"mode"`
	Transactions         []PlannedTransaction `json:"transactions"`
	LastValidBlockHeight uint64               `json:"lastValidBlockHeight"`
	Tip                  *Tip                 `json:"tip,omitempty"`
}

var ErrEmptyPlan = errors.New("transaction plan has no transactions")

// NewTransactionPlan is the only way to build a plan. It refuses any
// transaction above MaxTransactionSize so an oversized plan never reaches a
// signer.
func NewTransactionPlan(mode PlanMode, txs []PlannedTransaction, lastValidBlockHeight uint64, tip *Tip) (*TransactionPlan, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyPlan
	}
	if mode == PlanModeSingle && len(txs) != 1 {
		return nil, fmt.Errorf("single plan must hold one transaction, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.Size <= 0 {
			return nil, fmt.Errorf("transaction %q has no measured size", tx.Label)
		}
		if tx.Size > MaxTransactionSize {
			return nil, &TransactionTooLargeError{Label: tx.Label, Size: tx.Size, Limit: MaxTransactionSize}
		}
	}
	return &TransactionPlan{
		Mode:                 mode,
		Transactions:         txs,
		LastValidBlockHeight: lastValidBlockHeight,
		Tip:                  tip,
	}, nil
}

// Encoded returns the base64 transactions in submission order.
func (p *TransactionPlan) Encoded() []string {
	out := make([]string, len(p.Transactions))
	for i, tx := range p.Transactions {
		out[i] = tx.Base64
	}
	return out
}
