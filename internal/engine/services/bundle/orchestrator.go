// Package bundle splits an operation that does not fit one transaction into
// an ordered relay bundle.
package bundle

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jito"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
)

// Leg is one transaction of a bundle, without its compute budget.
type Leg struct {
	Label   string
	Groups  []domain.InstructionGroup
	HasSwap bool
}

type BuildInput struct {
	Payer       solana.PublicKey
	Legs        []Leg
	MaxAccounts int
	// SimulateFirst simulates the first leg; later legs depend on its state.
	SimulateFirst bool
}

type Orchestrator struct {
	pipeline    *builder.Pipeline
	tipLamports uint64
	maxLegs     int
	pick        func(n int) int
}

func NewOrchestrator(pipeline *builder.Pipeline, tipLamports uint64) *Orchestrator {
	if tipLamports < common.MinJitoTipLamports {
		tipLamports = common.MinJitoTipLamports
	}
	return &Orchestrator{
		pipeline:    pipeline,
		tipLamports: tipLamports,
		maxLegs:     jito.MaxBundleTransactions,
		pick:        rand.IntN,
	}
}

// WithMaxLegs lowers the per-bundle transaction limit below the relay's.
func (o *Orchestrator) WithMaxLegs(n int) *Orchestrator {
	if n > 0 && n < jito.MaxBundleTransactions {
		o.maxLegs = n
	}
	return o
}

// Tip picks a tip account and builds the transfer paying it.
func (o *Orchestrator) Tip(payer solana.PublicKey) (domain.Tip, solana.Instruction, error) {
	account := common.JitoTipAccounts[o.pick(len(common.JitoTipAccounts))]
	ix, err := system.NewTransferInstruction(o.tipLamports, payer, account).ValidateAndBuild()
	if err != nil {
		return domain.Tip{}, nil, fmt.Errorf("tip transfer: %w", err)
	}
	return domain.Tip{Account: account, Lamports: o.tipLamports}, ix, nil
}

// Build assembles every leg against one blockhash and appends the tip to the
// last leg. Each leg is size-checked on its own.
func (o *Orchestrator) Build(ctx context.Context, in BuildInput) (*domain.TransactionPlan, *domain.SimulationResult, error) {
	if len(in.Legs) == 0 || len(in.Legs) > o.maxLegs {
		return nil, nil, fmt.Errorf("bundle must hold 1 to %d legs, got %d", o.maxLegs, len(in.Legs))
	}

	tip, tipIx, err := o.Tip(in.Payer)
	if err != nil {
		return nil, nil, err
	}

	blockhash, lastValid, err := o.pipeline.Blockhash(ctx)
	if err != nil {
		return nil, nil, err
	}

	txs := make([]domain.PlannedTransaction, 0, len(in.Legs))
	for i, leg := range in.Legs {
		groups := leg.Groups
		if i == len(in.Legs)-1 {
			groups = append(append([]domain.InstructionGroup{}, groups...), domain.InstructionGroup{
				Label:        builder.GroupTip,
				Instructions: []solana.Instruction{tipIx},
			})
		}
		budget, err := o.pipeline.BudgetGroup(ctx, groups)
		if err != nil {
			return nil, nil, err
		}

		tx, err := o.pipeline.Assemble(ctx, builder.AssembleRequest{
			Label:       leg.Label,
			Payer:       in.Payer,
			Blockhash:   blockhash,
			Groups:      builder.Compose(append([]domain.InstructionGroup{budget}, groups...)...),
			HasSwap:     leg.HasSwap,
			MaxAccounts: in.MaxAccounts,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bundle leg %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	var sim *domain.SimulationResult
	if in.SimulateFirst {
		sim, err = o.pipeline.Simulate(ctx, txs[0])
		if err != nil {
			return nil, sim, err
		}
	}

	plan, err := domain.NewTransactionPlan(domain.PlanModeBundle, txs, lastValid, &tip)
	if err != nil {
		return nil, sim, err
	}

	log.Info().
		Int("legs", len(txs)).
		Str("tipAccount", tip.Account.String()).
		Uint64("tipLamports", tip.Lamports).
		Msg("[BundleOrchestrator] assembled bundle")
	return plan, sim, nil
}

// FlashLegs splits a prepared leverage or deleverage into three legs that
// need no flash loan. Leverage borrows, swaps, then deposits; deleverage
// withdraws, swaps, then repays.
func FlashLegs(ctx context.Context, lend builder.LendingProtocol, p *builder.Prepared) ([]Leg, error) {
	first, last := p.OperateRequest(false, true), p.OperateRequest(true, false)
	firstLabel, lastLabel := "borrow", "deposit"
	if p.Operation == domain.OperationDeleverage {
		first, last = p.OperateRequest(true, false), p.OperateRequest(false, true)
		firstLabel, lastLabel = "withdraw", "repay"
	}

	firstOp, err := lend.Operate(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", firstLabel, err)
	}
	lastOp, err := lend.Operate(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", lastLabel, err)
	}

	return []Leg{
		{Label: firstLabel, Groups: []domain.InstructionGroup{firstOp.Group(builder.GroupOperate)}},
		{Label: "swap", Groups: []domain.InstructionGroup{p.Quote.Group()}, HasSwap: true},
		{Label: lastLabel, Groups: []domain.InstructionGroup{lastOp.Group(builder.GroupOperate)}},
	}, nil
}
