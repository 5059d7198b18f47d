package builder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/metrics"
)

type tableFetcher func(ctx context.Context, addr solana.PublicKey) (solana.PublicKeySlice, error)

// LUTManager caches address lookup table contents. Static tables are loaded
// at start and refreshed in the background; tables named by aggregator or
// protocol responses are fetched on first use. Readers get an immutable map
// snapshot; writers publish a fresh copy.
type LUTManager struct {
	static   []solana.PublicKey
	tables   atomic.Value // map[solana.PublicKey]solana.PublicKeySlice
	writeMu  sync.Mutex
	fetch    tableFetcher
	interval time.Duration
}

func NewLUTManager(rpcClient *rpc.Client, static []solana.PublicKey, refreshInterval time.Duration) *LUTManager {
	return newLUTManager(func(ctx context.Context, addr solana.PublicKey) (solana.PublicKeySlice, error) {
		state, err := addresslookuptable.GetAddressLookupTable(ctx, rpcClient, addr)
		if err != nil {
			return nil, err
		}
		if state.DeactivationSlot != math.MaxUint64 {
			return nil, fmt.Errorf("lookup table %s is deactivated", addr)
		}
		return state.Addresses, nil
	}, static, refreshInterval)
}

func newLUTManager(fetch tableFetcher, static []solana.PublicKey, refreshInterval time.Duration) *LUTManager {
	m := &LUTManager{
		static:   static,
		fetch:    fetch,
		interval: refreshInterval,
	}
	m.tables.Store(make(map[solana.PublicKey]solana.PublicKeySlice))
	return m
}

// Start loads the static tables, then refreshes them in the background.
func (m *LUTManager) Start(ctx context.Context) {
	if len(m.static) == 0 {
		log.Info().Msg("[LUTManager] no static lookup tables configured")
		return
	}

	m.refresh(ctx)
	if m.interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
}

func (m *LUTManager) Static() []solana.PublicKey {
	return m.static
}

func (m *LUTManager) snapshot() map[solana.PublicKey]solana.PublicKeySlice {
	return m.tables.Load().(map[solana.PublicKey]solana.PublicKeySlice)
}

// Resolve returns the contents of addrs, fetching the ones not cached yet.
func (m *LUTManager) Resolve(ctx context.Context, addrs []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	cached := m.snapshot()
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(addrs))
	missing := make(map[solana.PublicKey]solana.PublicKeySlice)

	for _, addr := range addrs {
		if content, ok := cached[addr]; ok {
			out[addr] = content
			continue
		}
		content, err := m.fetch(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("resolve lookup table %s: %w", addr, err)
		}
		out[addr] = content
		missing[addr] = content
	}

	if len(missing) > 0 {
		m.publish(missing)
	}
	return out, nil
}

func (m *LUTManager) publish(updates map[solana.PublicKey]solana.PublicKeySlice) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current := m.snapshot()
	next := make(map[solana.PublicKey]solana.PublicKeySlice, len(current)+len(updates))
	for k, v := range current {
		next[k] = v
	}
	for k, v := range updates {
		next[k] = v
	}
	m.tables.Store(next)
	metrics.LookupTableCount.Set(float64(len(next)))
}

func (m *LUTManager) refresh(ctx context.Context) {
	updates := make(map[solana.PublicKey]solana.PublicKeySlice, len(m.static))
	for _, addr := range m.static {
		content, err := m.fetch(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Str("lut", addr.String()).Msg("[LUTManager] failed to fetch lookup table")
			continue
		}
		updates[addr] = content
	}
	m.publish(updates)
	log.Info().Int("tables", len(updates)).Msg("[LUTManager] refresh complete")
}
