package rebalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
	"github.com/hxuan190/leverage-engine/internal/engine/services/bundle"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const REBALANCE_SERVICE = "rebalance-svc"

type Service struct {
	container.BaseDIInstance

	logger       *common.ServiceLogger
	builder      *builder.BuilderService
	bundles      *bundle.Service
	pipeline     *builder.Pipeline
	orchestrator *bundle.Orchestrator

	marginPct   decimal.Decimal
	fractionPct decimal.Decimal
}

// NewService wires the rebalance builder outside the container.
func NewService(pipeline *builder.Pipeline, orchestrator *bundle.Orchestrator, marginPct, fractionPct int64) *Service {
	svc := &Service{
		pipeline:     pipeline,
		orchestrator: orchestrator,
		marginPct:    decimal.NewFromInt(marginPct),
		fractionPct:  decimal.NewFromInt(fractionPct),
	}
	svc.logger = common.NewServiceLogger(svc)
	return svc
}

func (svc *Service) ID() string {
	return REBALANCE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	engineConfig := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	svc.builder = c.Instance(builder.BUILDER_SERVICE_NAME).(*builder.BuilderService)
	svc.bundles = c.Instance(bundle.BUNDLE_SERVICE).(*bundle.Service)
	svc.marginPct = decimal.NewFromInt(engineConfig.RebalanceSafetyMarginPct)
	svc.fractionPct = decimal.NewFromInt(engineConfig.RebalanceMaxFractionPct)
	return nil
}

func (svc *Service) Start() error {
	if svc.pipeline == nil {
		svc.pipeline = svc.builder.Pipeline()
	}
	if svc.orchestrator == nil {
		svc.orchestrator = svc.bundles.Orchestrator()
	}
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

// Recommend checks that the two positions can be rebalanced and runs the
// planner against their snapshots.
func (svc *Service) Recommend(req domain.RebalanceRequest, source, target domain.Snapshot) (Recommendation, error) {
	if req.Wallet.IsZero() {
		return Recommendation{}, domain.NewValidationError("wallet", "missing")
	}
	if req.Source.PositionID == 0 || req.Target.PositionID == 0 {
		return Recommendation{}, domain.NewValidationError("position", "no position selected")
	}
	if req.Source == req.Target {
		return Recommendation{}, domain.NewValidationError("target", "must differ from source")
	}
	if !source.Vault.CollateralMint.Equals(target.Vault.CollateralMint) {
		return Recommendation{}, domain.NewValidationError("target",
			fmt.Sprintf("collateral %s does not match source collateral %s", target.Vault.CollateralMint, source.Vault.CollateralMint))
	}

	return Plan(PlanInput{
		Source:          source.Position,
		Target:          target.Position,
		SourceVault:     source.Vault,
		TargetVault:     target.Vault,
		SafetyMarginPct: svc.marginPct,
		MaxFractionPct:  svc.fractionPct,
	}), nil
}

// Build tries withdraw and deposit in one simulated transaction and falls
// back to a two-leg bundle when that overflows or fails simulation.
func (svc *Service) Build(ctx context.Context, req domain.RebalanceRequest, source, target domain.Snapshot) (*domain.BuildResult, error) {
	rec, err := svc.Recommend(req, source, target)
	if err != nil {
		return nil, err
	}

	result := &domain.BuildResult{
		Operation:    domain.OperationRebalance,
		Amount:       rec.Amount,
		ProjectedLTV: rec.Summary.SourceLTVAfter,
		Rebalance:    &rec.Summary,
	}
	if rec.Empty() {
		metrics.RebalanceRecommendations.WithLabelValues("none").Inc()
		result.Reason = rec.Reason
		return result, nil
	}

	raw, err := builder.ToRaw(rec.Amount, source.Vault.CollateralDecimals)
	if err != nil {
		return nil, domain.NewValidationError("amount", err.Error())
	}

	withdraw, err := svc.pipeline.Lending.Operate(ctx, domain.OperateRequest{
		VaultID:         source.Position.VaultID,
		PositionID:      source.Position.PositionID,
		CollateralDelta: domain.Delta(raw, true),
		DebtDelta:       domain.Delta(0, false),
		Signer:          req.Wallet,
		Recipient:       req.Wallet,
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	deposit, err := svc.pipeline.Lending.Operate(ctx, domain.OperateRequest{
		VaultID:         target.Position.VaultID,
		PositionID:      target.Position.PositionID,
		CollateralDelta: domain.Delta(raw, false),
		DebtDelta:       domain.Delta(0, false),
		Signer:          req.Wallet,
		Recipient:       req.Wallet,
	})
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	withdrawGroup := withdraw.Group("withdraw")
	depositGroup := deposit.Group("deposit")

	if !req.ForceBundle {
		plan, sim, err := svc.single(ctx, req, withdrawGroup, depositGroup)
		switch {
		case err == nil:
			metrics.RebalanceRecommendations.WithLabelValues("single").Inc()
			result.Plan = plan
			result.Simulation = sim
			return result, nil
		case errors.Is(err, domain.ErrTransactionTooLarge), errors.Is(err, domain.ErrSimulationFailed):
			svc.logger.Warn().Err(err).Msg("single rebalance rejected, building bundle")
			result.Warnings = append(result.Warnings, "single transaction rejected: "+err.Error())
		default:
			return nil, err
		}
	}

	plan, sim, err := svc.orchestrator.Build(ctx, bundle.BuildInput{
		Payer: req.Wallet,
		Legs: []bundle.Leg{
			{Label: "withdraw", Groups: []domain.InstructionGroup{withdrawGroup}},
			{Label: "deposit", Groups: []domain.InstructionGroup{depositGroup}},
		},
		// rebalance plans are always simulated
		SimulateFirst: true,
	})
	if err != nil {
		return nil, err
	}
	metrics.RebalanceRecommendations.WithLabelValues("bundle").Inc()
	result.Plan = plan
	result.Simulation = sim
	return result, nil
}

func (svc *Service) single(ctx context.Context, req domain.RebalanceRequest, groups ...domain.InstructionGroup) (*domain.TransactionPlan, *domain.SimulationResult, error) {
	budget, err := svc.pipeline.BudgetGroup(ctx, groups)
	if err != nil {
		return nil, nil, err
	}
	blockhash, lastValid, err := svc.pipeline.Blockhash(ctx)
	if err != nil {
		return nil, nil, err
	}

	tx, err := svc.pipeline.Assemble(ctx, builder.AssembleRequest{
		Label:     string(domain.OperationRebalance),
		Payer:     req.Wallet,
		Blockhash: blockhash,
		Groups:    builder.Compose(append([]domain.InstructionGroup{budget}, groups...)...),
	})
	if err != nil {
		return nil, nil, err
	}

	sim, err := svc.pipeline.Simulate(ctx, tx)
	if err != nil {
		return nil, sim, err
	}
	plan, err := domain.NewTransactionPlan(domain.PlanModeSingle, []domain.PlannedTransaction{tx}, lastValid, nil)
	return plan, sim, err
}
