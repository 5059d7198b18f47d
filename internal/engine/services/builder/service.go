package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/blockchain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jupiter"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/lending"
	"github.com/hxuan190/leverage-engine/internal/engine/services/priority"
	"github.com/hxuan190/leverage-engine/internal/engine/services/quote"
)

const BUILDER_SERVICE_NAME = "BuilderService"

type BuilderService struct {
	container.BaseDIInstance

	logger             *common.ServiceLogger
	quotes             SwapQuoter
	pipeline           *Pipeline
	lutManager         *LUTManager
	defaultSlippageBps uint16
	cancel             context.CancelFunc
}

// NewBuilderService wires a builder outside the container.
func NewBuilderService(quotes SwapQuoter, pipeline *Pipeline, defaultSlippageBps uint16) *BuilderService {
	svc := &BuilderService{
		quotes:             quotes,
		pipeline:           pipeline,
		defaultSlippageBps: defaultSlippageBps,
	}
	svc.logger = common.NewServiceLogger(svc)
	return svc
}

func (svc *BuilderService) ID() string {
	return BUILDER_SERVICE_NAME
}

func (svc *BuilderService) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	lutConfig := c.GetConfig(config.LUT_CONFIG_KEY).(*config.LUTConfig)
	engineConfig := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	adaptersConfig := c.GetConfig(config.ADAPTERS_CONFIG_KEY).(*config.AdaptersConfig)
	reader := c.Instance(blockchain.READER_SERVICE).(*blockchain.ReaderService)

	rpcClient := rpc.New(rpcConfig.RPCUrl)

	lutAddresses := make([]solana.PublicKey, 0, len(lutConfig.Addresses))
	for _, addr := range lutConfig.Addresses {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return fmt.Errorf("invalid LUT address %q: %w", addr, err)
		}
		lutAddresses = append(lutAddresses, pk)
	}
	svc.lutManager = NewLUTManager(rpcClient, lutAddresses, lutConfig.RefreshInterval)

	aggregator := jupiter.NewClient(jupiter.Options{
		BaseURL:        adaptersConfig.AggregatorURL,
		APIKey:         adaptersConfig.AggregatorAPIKey,
		RequestsPerSec: adaptersConfig.AggregatorRPS,
		Timeout:        adaptersConfig.Timeout,
	})
	svc.quotes = quote.NewSelector(aggregator, engineConfig.SingleRoutes)
	svc.defaultSlippageBps = engineConfig.DefaultSlippageBps

	svc.pipeline = &Pipeline{
		Lending:      lending.NewClient(adaptersConfig.LendingURL, adaptersConfig.Timeout),
		Chain:        reader,
		Tables:       svc.lutManager,
		Budget:       priority.NewService(rpcClient, engineConfig.PriorityUrgency, engineConfig.PriorityFeeMicroLamports),
		Assembler:    NewAssembler(engineConfig.MaxTransactionSize),
		ComputeUnits: engineConfig.ComputeUnitLimit,
	}
	return nil
}

func (svc *BuilderService) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.lutManager.Start(ctx)
	svc.logger.Info().Int("staticTables", len(svc.lutManager.Static())).Msg("builder started")
	return nil
}

func (svc *BuilderService) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	return nil
}

// Pipeline exposes the shared I/O shell to the bundle and rebalance builders.
func (svc *BuilderService) Pipeline() *Pipeline {
	return svc.pipeline
}

func (svc *BuilderService) slippage(bps uint16) uint16 {
	if bps == 0 {
		return svc.defaultSlippageBps
	}
	return bps
}

// composeFlash fetches the protocol instructions and compute budget and
// fills p.Sequence in the fixed flash-loan order.
func (svc *BuilderService) composeFlash(ctx context.Context, p *Prepared) error {
	lend := svc.pipeline.Lending
	flash := domain.FlashRequest{Asset: p.FlashAsset, Amount: p.FlashAmountRaw, Signer: p.Request.Wallet}

	borrowIx, err := lend.FlashBorrow(ctx, flash)
	if err != nil {
		return fmt.Errorf("flash borrow: %w", err)
	}
	operate, err := lend.Operate(ctx, p.OperateRequest(true, true))
	if err != nil {
		return fmt.Errorf("operate: %w", err)
	}
	p.noteOperate(len(operate.Instructions))
	paybackIx, err := lend.FlashPayback(ctx, flash)
	if err != nil {
		return fmt.Errorf("flash payback: %w", err)
	}

	p.Sequence = Sequence{
		FlashBorrow:  group(GroupFlashBorrow, borrowIx),
		Swap:         p.Quote.Group(),
		Operate:      operate.Group(GroupOperate),
		FlashPayback: group(GroupFlashPayback, paybackIx),
	}
	budget, err := svc.pipeline.BudgetGroup(ctx, p.Sequence.Groups())
	if err != nil {
		return err
	}
	p.Sequence.ComputeBudget = budget
	return nil
}

// AssembleSingle compiles the prepared flash-loan sequence into one
// transaction, simulates it unless skipped, and returns a single-mode plan.
// Overflow surfaces as a TransactionTooLargeError.
func (svc *BuilderService) AssembleSingle(ctx context.Context, p *Prepared) (*domain.TransactionPlan, *domain.SimulationResult, error) {
	blockhash, lastValid, err := svc.pipeline.Blockhash(ctx)
	if err != nil {
		return nil, nil, err
	}

	tx, err := svc.pipeline.Assemble(ctx, AssembleRequest{
		Label:       string(p.Operation),
		Payer:       p.Request.Wallet,
		Blockhash:   blockhash,
		Groups:      p.Sequence.Groups(),
		HasSwap:     true,
		MaxAccounts: p.Request.MaxAccounts,
	})
	if err != nil {
		return nil, nil, err
	}

	var sim *domain.SimulationResult
	if !p.Request.SkipSimulation {
		sim, err = svc.pipeline.Simulate(ctx, tx)
		if err != nil {
			return nil, sim, err
		}
	}

	plan, err := domain.NewTransactionPlan(domain.PlanModeSingle, []domain.PlannedTransaction{tx}, lastValid, nil)
	if err != nil {
		return nil, sim, err
	}

	svc.logger.Info().
		Str("operation", string(p.Operation)).
		Int("size", tx.Size).
		Int("operateInstructions", p.OperateCount).
		Msg("assembled single transaction")
	return plan, sim, nil
}
