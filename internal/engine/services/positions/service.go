// Package positions discovers and caches which positions a wallet holds,
// keyed by vault and by collateral mint.
package positions

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/adapters/persistence"
	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/lending"
	"github.com/hxuan190/leverage-engine/internal/engine/services/registry"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const POSITIONS_SERVICE = "positions-svc"

type WalletSource interface {
	WalletPositions(ctx context.Context, wallet solana.PublicKey) ([]lending.WalletPosition, error)
}

type VaultSource interface {
	Vault(ctx context.Context, vaultID uint32) (*domain.VaultConfig, error)
}

type Store interface {
	SaveWallet(entry *domain.WalletPositions) error
	DeleteWallet(wallet string) error
	LoadAll() (map[string]*domain.WalletPositions, error)
}

type entries map[string]*domain.WalletPositions

type Service struct {
	container.BaseDIInstance

	logger  *common.ServiceLogger
	wallets WalletSource
	vaults  VaultSource
	store   Store
	closer  func() error

	cache    atomic.Pointer[entries]
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
}

// NewService wires the cache outside the container. store may be nil.
func NewService(wallets WalletSource, vaults VaultSource, store Store, maxAge time.Duration) *Service {
	svc := &Service{}
	svc.init(wallets, vaults, store, maxAge)
	return svc
}

func (svc *Service) init(wallets WalletSource, vaults VaultSource, store Store, maxAge time.Duration) {
	svc.logger = common.NewServiceLogger(svc)
	svc.wallets = wallets
	svc.vaults = vaults
	svc.store = store
	svc.maxAge = maxAge
	svc.now = time.Now
	empty := entries{}
	svc.cache.Store(&empty)
}

func (svc *Service) ID() string {
	return POSITIONS_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	cacheConfig := c.GetConfig(config.CACHE_CONFIG_KEY).(*config.CacheConfig)
	adaptersConfig := c.GetConfig(config.ADAPTERS_CONFIG_KEY).(*config.AdaptersConfig)
	reg := c.Instance(registry.REGISTRY_SERVICE).(*registry.Service)

	var store Store
	if cacheConfig.PersistenceEnabled {
		storage, err := persistence.NewStorage(cacheConfig.DBPath)
		if err != nil {
			return err
		}
		store = storage
		svc.closer = storage.Close
	}
	svc.init(lending.NewClient(adaptersConfig.LendingURL, adaptersConfig.Timeout), reg, store, cacheConfig.PositionMaxAge)
	svc.interval = cacheConfig.PositionRefresh
	return nil
}

func (svc *Service) Start() error {
	if svc.store != nil {
		loaded, err := svc.store.LoadAll()
		if err != nil {
			svc.logger.Error().Err(err).Msg("failed to load persisted positions")
		} else {
			next := entries(loaded)
			svc.cache.Store(&next)
			metrics.PositionCacheWallets.Set(float64(len(next)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	if svc.interval > 0 {
		go svc.refreshLoop(ctx)
	}
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	if svc.closer != nil {
		return svc.closer()
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
			svc.refreshStale(ctx)
		}
	}
}

func (svc *Service) refreshStale(ctx context.Context) {
	now := svc.now()
	for wallet, entry := range *svc.cache.Load() {
		if !entry.Stale(now, svc.maxAge) {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(wallet)
		if err != nil {
			continue
		}
		if _, err := svc.Refresh(ctx, pk); err != nil {
			svc.logger.Warn().Err(err).Str("wallet", wallet).Msg("background refresh failed")
		}
	}
}

// Get returns the cached entry while fresh and refreshes it otherwise.
func (svc *Service) Get(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error) {
	if entry, ok := (*svc.cache.Load())[wallet.String()]; ok && !entry.Stale(svc.now(), svc.maxAge) {
		metrics.PositionCacheLookups.WithLabelValues("hit").Inc()
		return entry, nil
	}
	metrics.PositionCacheLookups.WithLabelValues("miss").Inc()
	return svc.Refresh(ctx, wallet)
}

// Resolve returns the wallet's position in a vault.
func (svc *Service) Resolve(ctx context.Context, wallet solana.PublicKey, vaultID uint32) (uint32, error) {
	entry, err := svc.Get(ctx, wallet)
	if err != nil {
		return 0, err
	}
	id, ok := entry.PositionID(vaultID)
	if !ok {
		return 0, domain.NewValidationError("position", fmt.Sprintf("wallet has no position in vault %d", vaultID))
	}
	return id, nil
}

// Refresh rebuilds the wallet's entry from the protocol and replaces it
// wholesale.
func (svc *Service) Refresh(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error) {
	list, err := svc.wallets.WalletPositions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet positions: %w", err)
	}

	now := svc.now()
	entry := &domain.WalletPositions{
		Wallet:       wallet.String(),
		ByVault:      make(map[uint32]domain.PositionRef, len(list)),
		ByCollateral: make(map[string]map[uint32]domain.PositionRef),
		RefreshedAt:  now,
	}
	for _, p := range list {
		ref := domain.PositionRef{PositionID: p.PositionID, RefreshedAt: now}
		entry.ByVault[p.VaultID] = ref

		vault, err := svc.vaults.Vault(ctx, p.VaultID)
		if err != nil {
			svc.logger.Warn().Err(err).Uint32("vaultId", p.VaultID).Msg("skipping collateral index for vault")
			continue
		}
		mint := vault.CollateralMint.String()
		if entry.ByCollateral[mint] == nil {
			entry.ByCollateral[mint] = make(map[uint32]domain.PositionRef)
		}
		entry.ByCollateral[mint][p.VaultID] = ref
	}

	svc.update(func(m entries) { m[entry.Wallet] = entry })
	if svc.store != nil {
		if err := svc.store.SaveWallet(entry); err != nil {
			svc.logger.Error().Err(err).Str("wallet", entry.Wallet).Msg("failed to persist positions")
		}
	}
	return entry, nil
}

func (svc *Service) Invalidate(wallet solana.PublicKey) error {
	key := wallet.String()
	svc.update(func(m entries) { delete(m, key) })
	if svc.store != nil {
		return svc.store.DeleteWallet(key)
	}
	return nil
}

// update applies fn to a copy of the cache and swaps it in.
func (svc *Service) update(fn func(m entries)) {
	for {
		cur := svc.cache.Load()
		next := make(entries, len(*cur)+1)
		maps.Copy(next, *cur)
		fn(next)
		if svc.cache.CompareAndSwap(cur, &next) {
			metrics.PositionCacheWallets.Set(float64(len(next)))
			return
		}
	}
}
