package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

// feeSampleAccounts caps the accounts sent to getRecentPrioritizationFees.
const feeSampleAccounts = 8

// Pipeline is the I/O shell shared by every builder: it fetches protocol
// instructions, compute budget, lookup tables and blockhashes, then hands
// the groups to the pure Assembler.
type Pipeline struct {
	Lending      LendingProtocol
	Chain        ChainReader
	Tables       TableResolver
	Budget       ComputeBudgeter
	Assembler    *Assembler
	ComputeUnits uint32
}

// BudgetGroup builds the compute-budget group for the instructions that will
// follow it. It also carries the static lookup tables.
func (p *Pipeline) BudgetGroup(ctx context.Context, following []domain.InstructionGroup) (domain.InstructionGroup, error) {
	ixs, err := p.Budget.Instructions(ctx, p.ComputeUnits, WritableAccounts(following, feeSampleAccounts))
	if err != nil {
		return domain.InstructionGroup{}, fmt.Errorf("compute budget: %w", err)
	}
	return domain.InstructionGroup{
		Label:        GroupComputeBudget,
		Instructions: ixs,
		LookupTables: p.Tables.Static(),
	}, nil
}

type AssembleRequest struct {
	Label       string
	Payer       solana.PublicKey
	Blockhash   solana.Hash
	Groups      []domain.InstructionGroup
	HasSwap     bool
	MaxAccounts int
}

// Assemble resolves the referenced lookup tables and compiles the groups.
func (p *Pipeline) Assemble(ctx context.Context, req AssembleRequest) (domain.PlannedTransaction, error) {
	tables, err := p.Tables.Resolve(ctx, LookupTables(req.Groups))
	if err != nil {
		return domain.PlannedTransaction{}, err
	}
	return p.Assembler.Assemble(AssembleInput{
		Label:       req.Label,
		Payer:       req.Payer,
		Blockhash:   req.Blockhash,
		Groups:      req.Groups,
		Tables:      tables,
		HasSwap:     req.HasSwap,
		MaxAccounts: req.MaxAccounts,
	})
}

func (p *Pipeline) Blockhash(ctx context.Context) (solana.Hash, uint64, error) {
	hash, lastValid, err := p.Chain.GetBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("get blockhash: %w", err)
	}
	return hash, lastValid, nil
}

// Simulate runs a pre-flight simulation and converts a rejection into a
// SimulationFailedError. The result is returned in both cases.
func (p *Pipeline) Simulate(ctx context.Context, tx domain.PlannedTransaction) (*domain.SimulationResult, error) {
	metrics.SimulationRequests.Inc()
	res, err := p.Chain.Simulate(ctx, tx.Transaction)
	if err != nil {
		metrics.SimulationFailures.WithLabelValues("rpc").Inc()
		return nil, &domain.SimulationFailedError{Label: tx.Label, Reason: err.Error()}
	}

	if res.Success {
		if res.ComputeUnitsConsumed > 0 {
			metrics.ComputeUnits.Observe(float64(res.ComputeUnitsConsumed))
		}
		return res, nil
	}

	reason := "program_error"
	switch {
	case res.InsufficientFunds:
		reason = "insufficient_funds"
	case res.SlippageExceeded:
		reason = "slippage_exceeded"
	}
	metrics.SimulationFailures.WithLabelValues(reason).Inc()
	log.Warn().
		Str("label", tx.Label).
		Str("error", res.Error).
		Str("line", res.FailureLine).
		Msg("[Pipeline] simulation rejected transaction")
	return res, res.AsError(tx.Label)
}
