// Package registry resolves vault configurations, mint decimals and oracle
// prices, and assembles the immutable snapshot a build reads.
package registry

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/blockchain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/lending"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const REGISTRY_SERVICE = "vault-registry-svc"

type AccountReader interface {
	AccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error)
}

type PositionSource interface {
	Position(ctx context.Context, vaultID, positionID uint32) (*lending.PositionState, error)
}

type vaultSnapshot map[uint32]*domain.VaultConfig

type Service struct {
	container.BaseDIInstance

	logger    *common.ServiceLogger
	accounts  AccountReader
	positions PositionSource

	vaults   atomic.Pointer[vaultSnapshot]
	decimals *decimalsCache

	preload  []uint32
	interval time.Duration
	cancel   context.CancelFunc
	now      func() time.Time
}

// NewService wires a registry outside the container.
func NewService(accounts AccountReader, positions PositionSource, decimalsCacheSize int) *Service {
	svc := &Service{}
	svc.init(accounts, positions, decimalsCacheSize)
	return svc
}

func (svc *Service) init(accounts AccountReader, positions PositionSource, decimalsCacheSize int) {
	svc.logger = common.NewServiceLogger(svc)
	svc.accounts = accounts
	svc.positions = positions
	svc.decimals = newDecimalsCache(decimalsCacheSize)
	svc.now = time.Now
	empty := vaultSnapshot{}
	svc.vaults.Store(&empty)
}

func (svc *Service) ID() string {
	return REGISTRY_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	engineConfig := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	cacheConfig := c.GetConfig(config.CACHE_CONFIG_KEY).(*config.CacheConfig)
	adaptersConfig := c.GetConfig(config.ADAPTERS_CONFIG_KEY).(*config.AdaptersConfig)
	reader := c.Instance(blockchain.READER_SERVICE).(*blockchain.ReaderService)

	svc.init(reader, lending.NewClient(adaptersConfig.LendingURL, adaptersConfig.Timeout), cacheConfig.DecimalsCacheMaxSize)
	for _, id := range engineConfig.VaultIDs {
		svc.preload = append(svc.preload, uint32(id))
	}
	svc.interval = cacheConfig.VaultRefresh
	return nil
}

func (svc *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel

	svc.refreshAll(ctx)
	if svc.interval > 0 && len(svc.preload) > 0 {
		go svc.refreshLoop(ctx)
	}
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	return nil
}

func (svc *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.refreshAll(ctx)
		}
	}
}

func (svc *Service) refreshAll(ctx context.Context) {
	loaded := 0
	for _, id := range svc.preload {
		if _, err := svc.loadVault(ctx, id); err != nil {
			svc.logger.Warn().Err(err).Uint32("vaultId", id).Msg("vault refresh failed")
			continue
		}
		loaded++
	}
	if len(svc.preload) > 0 {
		svc.logger.Info().Int("loaded", loaded).Int("configured", len(svc.preload)).Msg("vaults refreshed")
	}
}

// Vaults returns the current snapshot. Callers must not modify it.
func (svc *Service) Vaults() map[uint32]*domain.VaultConfig {
	return *svc.vaults.Load()
}

// Vault returns a cached config or loads it from chain.
func (svc *Service) Vault(ctx context.Context, vaultID uint32) (*domain.VaultConfig, error) {
	if v, ok := svc.Vaults()[vaultID]; ok {
		return v, nil
	}
	return svc.loadVault(ctx, vaultID)
}

func (svc *Service) loadVault(ctx context.Context, vaultID uint32) (*domain.VaultConfig, error) {
	if vaultID > 0xFFFF {
		return nil, domain.NewValidationError("vaultId", "out of range")
	}
	addr, err := blockchain.VaultConfigPDA(uint16(vaultID))
	if err != nil {
		return nil, fmt.Errorf("vault %d address: %w", vaultID, err)
	}
	data, err := svc.accounts.AccountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("vault %d: %w", vaultID, err)
	}
	acc, err := blockchain.DecodeVaultConfig(data)
	if err != nil {
		return nil, fmt.Errorf("vault %d: %w", vaultID, err)
	}

	colDecimals, err := svc.Decimals(ctx, acc.CollateralMint)
	if err != nil {
		return nil, err
	}
	debtDecimals, err := svc.Decimals(ctx, acc.DebtMint)
	if err != nil {
		return nil, err
	}

	v := &domain.VaultConfig{
		VaultID:            vaultID,
		Address:            addr,
		CollateralMint:     acc.CollateralMint,
		DebtMint:           acc.DebtMint,
		CollateralDecimals: colDecimals,
		DebtDecimals:       debtDecimals,
		MaxLTV:             acc.MaxLTV,
		LiquidationLTV:     acc.LiquidationLTV,
		Oracle:             acc.Oracle,
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("vault %d: %w", vaultID, err)
	}
	// vault mints are read on every build
	svc.decimals.pin(v.CollateralMint, colDecimals)
	svc.decimals.pin(v.DebtMint, debtDecimals)
	svc.publish(v)
	return v, nil
}

// publish swaps in a new snapshot containing v.
func (svc *Service) publish(v *domain.VaultConfig) {
	for {
		cur := svc.vaults.Load()
		next := make(vaultSnapshot, len(*cur)+1)
		maps.Copy(next, *cur)
		next[v.VaultID] = v
		if svc.vaults.CompareAndSwap(cur, &next) {
			metrics.VaultCount.Set(float64(len(next)))
			return
		}
	}
}

func (svc *Service) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	d, err := svc.decimals.lookup(ctx, mint, svc.loadDecimals)
	if err != nil {
		return 0, err
	}
	metrics.DecimalsCacheSize.Set(float64(svc.decimals.size()))
	return d, nil
}

func (svc *Service) loadDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, err := svc.accounts.AccountData(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("mint %s: %w", mint, err)
	}
	var mintState token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mintState); err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	return mintState.Decimals, nil
}

// Snapshot reads the position, its vault and the oracle price once. The
// returned value is never mutated afterwards.
func (svc *Service) Snapshot(ctx context.Context, wallet solana.PublicKey, key domain.PositionKey) (domain.Snapshot, error) {
	vault, err := svc.Vault(ctx, key.VaultID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	state, err := svc.positions.Position(ctx, key.VaultID, key.PositionID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("position %d/%d: %w", key.VaultID, key.PositionID, err)
	}
	if !state.Owner.Equals(wallet) {
		return domain.Snapshot{}, domain.NewValidationError("position", "not owned by wallet")
	}
	if state.DebtPriceUSD.Sign() <= 0 {
		return domain.Snapshot{}, domain.NewValidationError("debtPrice", "debt price is not positive")
	}

	// Oracle quotes collateral in debt units.
	ratio, err := blockchain.ResolveOraclePrice(ctx, svc.accounts.AccountData, vault.Oracle)
	if err != nil {
		return domain.Snapshot{}, err
	}

	pos := domain.Position{
		VaultID:         key.VaultID,
		PositionID:      key.PositionID,
		Owner:           state.Owner,
		CollateralRaw:   state.Collateral,
		DebtRaw:         state.Debt,
		Collateral:      decimal.NewFromUint64(state.Collateral).Shift(-int32(vault.CollateralDecimals)),
		Debt:            decimal.NewFromUint64(state.Debt).Shift(-int32(vault.DebtDecimals)),
		CollateralPrice: ratio.Mul(state.DebtPriceUSD),
		DebtPrice:       state.DebtPriceUSD,
	}
	pos.LTV = pos.ComputeLTV()

	return domain.Snapshot{Position: pos, Vault: *vault, TakenAt: svc.now()}, nil
}
