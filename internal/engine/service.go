// Package engine is the entry point for leverage, deleverage and rebalance
// builds and for executing the resulting plans.
package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/blockchain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jito"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
	"github.com/hxuan190/leverage-engine/internal/engine/services/bundle"
	"github.com/hxuan190/leverage-engine/internal/engine/services/positions"
	"github.com/hxuan190/leverage-engine/internal/engine/services/rebalance"
	"github.com/hxuan190/leverage-engine/internal/engine/services/registry"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const ENGINE_SERVICE = "engine-service"

var ErrNoSigner = errors.New("no signer configured")

type VaultRegistry interface {
	Snapshot(ctx context.Context, wallet solana.PublicKey, key domain.PositionKey) (domain.Snapshot, error)
	Vaults() map[uint32]*domain.VaultConfig
}

type PositionBook interface {
	Get(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error)
	Refresh(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error)
	Invalidate(wallet solana.PublicKey) error
	Resolve(ctx context.Context, wallet solana.PublicKey, vaultID uint32) (uint32, error)
}

type BundleRelay interface {
	Submit(ctx context.Context, signed []string) (string, error)
	Status(ctx context.Context, bundleID string) (*jito.BundleStatus, error)
}

type Sender interface {
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sigs []solana.Signature) error
}

// Deps wires the engine outside the container.
type Deps struct {
	Registry     VaultRegistry
	Positions    PositionBook
	Builder      *builder.BuilderService
	Orchestrator *bundle.Orchestrator
	Rebalancer   *rebalance.Service
	Relay        BundleRelay
	Sender       Sender
	Signer       Signer
}

type Service struct {
	container.BaseDIInstance
	logger *common.ServiceLogger

	registry     VaultRegistry
	positions    PositionBook
	builder      *builder.BuilderService
	bundles      *bundle.Service
	orchestrator *bundle.Orchestrator
	rebalancer   *rebalance.Service
	relay        BundleRelay
	sender       Sender
	signer       Signer
}

func NewService(deps Deps) *Service {
	svc := &Service{
		registry:     deps.Registry,
		positions:    deps.Positions,
		builder:      deps.Builder,
		orchestrator: deps.Orchestrator,
		rebalancer:   deps.Rebalancer,
		relay:        deps.Relay,
		sender:       deps.Sender,
		signer:       deps.Signer,
	}
	svc.logger = common.NewServiceLogger(svc)
	return svc
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)

	svc.registry = c.Instance(registry.REGISTRY_SERVICE).(*registry.Service)
	svc.positions = c.Instance(positions.POSITIONS_SERVICE).(*positions.Service)
	svc.builder = c.Instance(builder.BUILDER_SERVICE_NAME).(*builder.BuilderService)
	svc.bundles = c.Instance(bundle.BUNDLE_SERVICE).(*bundle.Service)
	svc.rebalancer = c.Instance(rebalance.REBALANCE_SERVICE).(*rebalance.Service)
	svc.sender = c.Instance(blockchain.READER_SERVICE).(*blockchain.ReaderService)
	svc.relay = svc.bundles

	if rpcConfig.SignerKey != "" {
		signer, err := NewKeypairSigner(rpcConfig.SignerKey)
		if err != nil {
			return err
		}
		svc.signer = signer
	}
	return nil
}

func (svc *Service) Start() error {
	if svc.orchestrator == nil {
		svc.orchestrator = svc.bundles.Orchestrator()
	}
	ev := svc.logger.Info()
	if svc.signer != nil {
		ev = ev.Str("signer", svc.signer.PublicKey().String())
	}
	ev.Msg("engine ready")
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

type prepareFunc func(ctx context.Context, snap domain.Snapshot, req domain.SwapOperationRequest) (*builder.Prepared, error)

// Leverage borrows debt against the position, swaps it to collateral and
// deposits the output, repaying a flash loan in the same transaction.
func (svc *Service) Leverage(ctx context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error) {
	return svc.buildSwap(ctx, domain.OperationLeverage, req, svc.builder.PrepareLeverage)
}

// Deleverage withdraws collateral, swaps it to debt and repays.
func (svc *Service) Deleverage(ctx context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error) {
	return svc.buildSwap(ctx, domain.OperationDeleverage, req, svc.builder.PrepareDeleverage)
}

func (svc *Service) buildSwap(ctx context.Context, op domain.Operation, req domain.SwapOperationRequest, prepare prepareFunc) (*domain.BuildResult, error) {
	start := time.Now()
	id := uuid.NewString()

	res, err := svc.doBuildSwap(ctx, id, req, prepare)
	svc.observe(op, start, res, err)
	if err != nil {
		svc.logger.Warn().Err(err).Str("buildId", id).Str("operation", string(op)).Msg("build failed")
		return nil, err
	}
	return res, nil
}

func (svc *Service) doBuildSwap(ctx context.Context, id string, req domain.SwapOperationRequest, prepare prepareFunc) (*domain.BuildResult, error) {
	if err := builder.ValidateInput(req); err != nil {
		return nil, err
	}
	if err := svc.resolvePosition(ctx, req.Wallet, &req.Position); err != nil {
		return nil, err
	}
	if err := builder.ValidateRequest(req); err != nil {
		return nil, err
	}

	snap, err := svc.registry.Snapshot(ctx, req.Wallet, req.Position)
	if err != nil {
		return nil, err
	}
	p, err := prepare(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	if !req.ForceBundle {
		plan, sim, err := svc.builder.AssembleSingle(ctx, p)
		if err == nil {
			return p.Result(id, plan, sim), nil
		}
		if !req.AllowBundle || !errors.Is(err, domain.ErrTransactionTooLarge) {
			return nil, err
		}
		p.Warnings = append(p.Warnings, "single transaction too large, split into bundle: "+err.Error())
	}

	legs, err := bundle.FlashLegs(ctx, svc.builder.Pipeline().Lending, p)
	if err != nil {
		return nil, err
	}
	plan, sim, err := svc.orchestrator.Build(ctx, bundle.BuildInput{
		Payer:         req.Wallet,
		Legs:          legs,
		MaxAccounts:   req.MaxAccounts,
		SimulateFirst: !req.SkipSimulation,
	})
	if err != nil {
		return nil, err
	}
	return p.Result(id, plan, sim), nil
}

// Rebalance moves collateral between two positions of the same wallet.
func (svc *Service) Rebalance(ctx context.Context, req domain.RebalanceRequest) (*domain.BuildResult, error) {
	start := time.Now()
	res, err := svc.doRebalance(ctx, req)
	svc.observe(domain.OperationRebalance, start, res, err)
	if err != nil {
		return nil, err
	}
	res.ID = uuid.NewString()
	return res, nil
}

func (svc *Service) doRebalance(ctx context.Context, req domain.RebalanceRequest) (*domain.BuildResult, error) {
	if err := svc.resolvePosition(ctx, req.Wallet, &req.Source); err != nil {
		return nil, err
	}
	if err := svc.resolvePosition(ctx, req.Wallet, &req.Target); err != nil {
		return nil, err
	}
	source, err := svc.registry.Snapshot(ctx, req.Wallet, req.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	target, err := svc.registry.Snapshot(ctx, req.Wallet, req.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return svc.rebalancer.Build(ctx, req, source, target)
}

// resolvePosition fills a missing position id from the wallet's cached
// positions in that vault.
func (svc *Service) resolvePosition(ctx context.Context, wallet solana.PublicKey, key *domain.PositionKey) error {
	if key.PositionID != 0 || svc.positions == nil || wallet.IsZero() {
		return nil
	}
	id, err := svc.positions.Resolve(ctx, wallet, key.VaultID)
	if err != nil {
		return err
	}
	key.PositionID = id
	return nil
}

func (svc *Service) observe(op domain.Operation, start time.Time, res *domain.BuildResult, err error) {
	mode, status := "none", "ok"
	switch {
	case err != nil:
		status = errorStatus(err)
	case res.Plan != nil:
		mode = string(res.Plan.Mode)
	}
	metrics.BuildRequests.WithLabelValues(string(op), mode, status).Inc()
	metrics.BuildDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return "quote_unavailable"
	case errors.Is(err, domain.ErrTransactionTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrSimulationFailed):
		return "simulation_failed"
	default:
		return "error"
	}
}

// Execute signs the plan and submits it: a single transaction is sent and
// confirmed, a bundle goes to the relay as a unit.
func (svc *Service) Execute(ctx context.Context, plan *domain.TransactionPlan, signer Signer) (*domain.ExecutionResult, error) {
	if signer == nil {
		signer = svc.signer
	}
	if signer == nil {
		return nil, ErrNoSigner
	}
	if plan == nil || len(plan.Transactions) == 0 {
		return nil, domain.ErrEmptyPlan
	}

	for _, tx := range plan.Transactions {
		if err := signer.Sign(ctx, tx.Transaction); err != nil {
			return nil, &domain.SigningRejectedError{Err: err}
		}
	}

	if plan.Mode == domain.PlanModeBundle {
		encoded := make([]string, len(plan.Transactions))
		for i, tx := range plan.Transactions {
			raw, err := tx.Transaction.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", tx.Label, err)
			}
			encoded[i] = base64.StdEncoding.EncodeToString(raw)
		}
		bundleID, err := svc.relay.Submit(ctx, encoded)
		if err != nil {
			return nil, err
		}
		return &domain.ExecutionResult{Mode: plan.Mode, BundleID: bundleID}, nil
	}

	tx := plan.Transactions[0]
	sig, err := svc.sender.Send(ctx, tx.Transaction)
	if err != nil {
		return nil, err
	}
	res := &domain.ExecutionResult{Mode: plan.Mode, Signatures: []string{sig.String()}}
	if err := svc.sender.Confirm(ctx, []solana.Signature{sig}); err != nil {
		return res, err
	}
	res.Confirmed = true
	svc.logger.Info().Str("signature", sig.String()).Msg("transaction confirmed")
	return res, nil
}

// SubmitBundle relays transactions the caller already signed.
func (svc *Service) SubmitBundle(ctx context.Context, signed []string) (string, error) {
	if len(signed) == 0 || len(signed) > jito.MaxBundleTransactions {
		return "", domain.NewValidationError("transactions",
			fmt.Sprintf("bundle must hold 1 to %d transactions, got %d", jito.MaxBundleTransactions, len(signed)))
	}
	for i, s := range signed {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", domain.NewValidationError("transactions", fmt.Sprintf("transaction %d is not base64", i))
		}
		if len(raw) > domain.MaxTransactionSize {
			return "", &domain.TransactionTooLargeError{
				Label:       fmt.Sprintf("bundle[%d]", i),
				Size:        len(raw),
				Limit:       domain.MaxTransactionSize,
				Mitigations: domain.RankMitigations(len(raw)-domain.MaxTransactionSize, false, 0),
			}
		}
	}
	return svc.relay.Submit(ctx, signed)
}

func (svc *Service) BundleStatus(ctx context.Context, bundleID string) (*jito.BundleStatus, error) {
	return svc.relay.Status(ctx, bundleID)
}

func (svc *Service) Positions(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error) {
	return svc.positions.Get(ctx, wallet)
}

func (svc *Service) RefreshPositions(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error) {
	return svc.positions.Refresh(ctx, wallet)
}

func (svc *Service) InvalidatePositions(wallet solana.PublicKey) error {
	return svc.positions.Invalidate(wallet)
}

func (svc *Service) Vaults() map[uint32]*domain.VaultConfig {
	return svc.registry.Vaults()
}
