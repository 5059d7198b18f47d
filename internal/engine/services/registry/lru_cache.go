package registry

import (
	"container/list"
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// decimalsCache maps mints to their decimals. Pinned mints are never
// evicted; the rest are kept in least-recently-used order up to capacity.
type decimalsCache struct {
	mu       sync.Mutex
	pinned   map[solana.PublicKey]uint8
	entries  map[solana.PublicKey]*list.Element
	order    *list.List
	capacity int
}

type decimalsEntry struct {
	mint     solana.PublicKey
	decimals uint8
}

func newDecimalsCache(capacity int) *decimalsCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &decimalsCache{
		pinned:   map[solana.PublicKey]uint8{solana.SolMint: 9},
		entries:  make(map[solana.PublicKey]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

func (c *decimalsCache) get(mint solana.PublicKey) (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.pinned[mint]; ok {
		return d, true
	}
	elem, ok := c.entries[mint]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*decimalsEntry).decimals, true
}

func (c *decimalsCache) put(mint solana.PublicKey, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pinned[mint]; ok {
		return
	}
	if elem, ok := c.entries[mint]; ok {
		elem.Value.(*decimalsEntry).decimals = decimals
		c.order.MoveToFront(elem)
		return
	}
	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*decimalsEntry).mint)
	}
	c.entries[mint] = c.order.PushFront(&decimalsEntry{mint: mint, decimals: decimals})
}

// pin marks a mint as permanent, typically a vault's collateral or debt mint.
func (c *decimalsCache) pin(mint solana.PublicKey, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[mint]; ok {
		c.order.Remove(elem)
		delete(c.entries, mint)
	}
	c.pinned[mint] = decimals
}

// lookup returns the cached decimals or loads and caches them. Concurrent
// misses for one mint may both load; the values are identical.
func (c *decimalsCache) lookup(ctx context.Context, mint solana.PublicKey, load func(context.Context, solana.PublicKey) (uint8, error)) (uint8, error) {
	if d, ok := c.get(mint); ok {
		return d, nil
	}
	d, err := load(ctx, mint)
	if err != nil {
		return 0, err
	}
	c.put(mint, d)
	return d, nil
}

func (c *decimalsCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pinned) + len(c.entries)
}
