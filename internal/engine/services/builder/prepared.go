package builder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/safeamount"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

// Prepared holds every decision of a leverage or deleverage build. It is
// enough to assemble either the single flash-loan transaction or a bundle.
type Prepared struct {
	Operation domain.Operation
	Request   domain.SwapOperationRequest
	Snapshot  domain.Snapshot
	Quote     *domain.SwapQuote
	Attempts  []string

	FlashAsset     solana.PublicKey
	FlashAmountRaw uint64

	// Absolute operate deltas. Leverage adds both, deleverage removes both.
	CollateralRaw uint64
	DebtRaw       uint64

	Rounding    safeamount.Result
	RoundingLeg string

	Sequence     Sequence
	OperateCount int
	ProjectedLTV decimal.Decimal
	Warnings     []string
}

// OperateRequest returns the combined operate call, optionally limited to
// one side for bundle legs.
func (p *Prepared) OperateRequest(collateral, debt bool) domain.OperateRequest {
	negative := p.Operation == domain.OperationDeleverage
	req := domain.OperateRequest{
		VaultID:         p.Snapshot.Position.VaultID,
		PositionID:      p.Snapshot.Position.PositionID,
		CollateralDelta: domain.Delta(0, false),
		DebtDelta:       domain.Delta(0, false),
		Signer:          p.Request.Wallet,
		Recipient:       p.Request.Wallet,
	}
	if collateral {
		req.CollateralDelta = domain.Delta(p.CollateralRaw, negative)
	}
	if debt {
		req.DebtDelta = domain.Delta(p.DebtRaw, negative)
	}
	return req
}

// noteOperate records how many instructions the protocol returned. More than
// one means it still wants to initialize accounts despite rounding; all of
// them are kept and the size check decides.
func (p *Prepared) noteOperate(count int) {
	p.OperateCount = count
	if count <= 1 {
		return
	}
	msg := fmt.Sprintf("operate returned %d instructions after rounding; protocol still initializes accounts", count)
	p.Warnings = append(p.Warnings, msg)
	metrics.InitializationWarnings.WithLabelValues(string(p.Operation)).Inc()
	log.Warn().
		Str("operation", string(p.Operation)).
		Int("instructions", count).
		Str("rounding", p.Rounding.Describe()).
		Msg("[BuilderService] safe-amount rounding did not avoid initialization")
}

func (p *Prepared) noteRounding() {
	metrics.RoundingDust.WithLabelValues(p.Rounding.Direction.String()).Observe(p.Rounding.Dust.InexactFloat64())
	if p.Rounding.Dust.IsZero() {
		return
	}
	p.Warnings = append(p.Warnings, p.RoundingLeg+": "+p.Rounding.Describe())
}

// Result summarizes the build for the caller.
func (p *Prepared) Result(id string, plan *domain.TransactionPlan, sim *domain.SimulationResult) *domain.BuildResult {
	return &domain.BuildResult{
		ID:        id,
		Operation: p.Operation,
		Plan:      plan,
		Quote:     p.Quote.Summary(p.Attempts),
		Rounding: &domain.RoundingOutcome{
			Leg:       p.RoundingLeg,
			Direction: p.Rounding.Direction.String(),
			Requested: p.Rounding.Requested,
			Rounded:   p.Rounding.Amount,
			Dust:      p.Rounding.Dust,
		},
		OperateInstructions: p.OperateCount,
		ProjectedLTV:        p.ProjectedLTV,
		Amount:              p.Request.Amount,
		Simulation:          sim,
		Warnings:            p.Warnings,
	}
}
