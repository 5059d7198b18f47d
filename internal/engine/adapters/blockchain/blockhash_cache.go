package blockchain

import (
	"context"
	"sync/atomic"
	"time"

	pb "github.com/andrew-solarstorm/yellowstone-grpc-client-go/proto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"github.com/thehyperflames/yellowstone"

	"github.com/hxuan190/leverage-engine/internal/config"
)

const BLOCKHASH_CACHE_SERVICE = "cache-blockhash-svc"

const (
	blockhashMaxAge = 2 * time.Second
	// a blockhash stays usable for 150 blocks after the block that produced it
	blockhashValidity = 150
)

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

type blockhashFetcher func(ctx context.Context) (*CachedBlockhash, error)

// BlockhashCacheService serves the newest known blockhash. The block-meta
// stream keeps it warm; RPC is the fallback when the stream goes quiet. All
// legs of a bundle read one value, so their expiry heights match.
type BlockhashCacheService struct {
	container.BaseDIInstance

	current atomic.Pointer[CachedBlockhash]
	fetch   blockhashFetcher
	now     func() time.Time

	stream *yellowstone.Service
	subID  string
}

func newBlockhashCache(fetch blockhashFetcher) *BlockhashCacheService {
	return &BlockhashCacheService{fetch: fetch, now: time.Now}
}

func (svc *BlockhashCacheService) ID() string {
	return BLOCKHASH_CACHE_SERVICE
}

func (svc *BlockhashCacheService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.stream = c.Instance(yellowstone.YELLOWSTONE_SERVICE).(*yellowstone.Service)

	client := rpc.New(rpcConfig.RPCUrl)
	svc.now = time.Now
	svc.fetch = func(ctx context.Context) (*CachedBlockhash, error) {
		res, err := client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, err
		}
		return &CachedBlockhash{
			Blockhash:            res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
			Slot:                 res.Context.Slot,
			UpdatedAt:            svc.now(),
		}, nil
	}
	return nil
}

func (svc *BlockhashCacheService) Start() error {
	if _, err := svc.refresh(context.Background()); err != nil {
		log.Warn().Err(err).Msg("[BlockhashCache] initial fetch failed, first build will retry")
	}

	subID, err := svc.stream.SubscribeBlockMeta(svc.handleBlockMeta)
	if err != nil {
		// RPC alone still works, just with a round trip every blockhashMaxAge
		log.Error().Err(err).Msg("[BlockhashCache] block meta subscription failed, using RPC only")
		return nil
	}
	svc.subID = subID
	log.Info().Str("subID", subID).Msg("[BlockhashCache] following block meta stream")
	return nil
}

func (svc *BlockhashCacheService) Stop() error {
	if svc.subID == "" {
		return nil
	}
	return svc.stream.Unsubscribe(svc.subID)
}

// offer stores b unless a newer slot is already cached. Stream and RPC
// updates race, and an older blockhash would shorten the plan's lifetime.
func (svc *BlockhashCacheService) offer(b *CachedBlockhash) {
	for {
		cur := svc.current.Load()
		if cur != nil && cur.Slot > b.Slot {
			return
		}
		if svc.current.CompareAndSwap(cur, b) {
			return
		}
	}
}

func (svc *BlockhashCacheService) refresh(ctx context.Context) (*CachedBlockhash, error) {
	b, err := svc.fetch(ctx)
	if err != nil {
		return nil, err
	}
	svc.offer(b)
	return svc.current.Load(), nil
}

func (svc *BlockhashCacheService) handleBlockMeta(update *pb.SubscribeUpdate) error {
	meta := update.GetBlockMeta()
	if meta == nil || meta.GetBlockhash() == "" {
		return nil
	}
	hash, err := solana.HashFromBase58(meta.GetBlockhash())
	if err != nil {
		log.Debug().Err(err).Uint64("slot", meta.GetSlot()).Msg("[BlockhashCache] bad blockhash in stream")
		return nil
	}
	bh := meta.GetBlockHeight()
	if bh == nil {
		// without a height the expiry is unknown
		return nil
	}
	svc.offer(&CachedBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: bh.GetBlockHeight() + blockhashValidity,
		Slot:                 meta.GetSlot(),
		UpdatedAt:            svc.now(),
	})
	return nil
}

// GetBlockhash returns the cached blockhash while it is younger than
// blockhashMaxAge, otherwise refreshes over RPC. A failed refresh falls back
// to the stale value when one exists.
func (svc *BlockhashCacheService) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	cached := svc.current.Load()
	if cached != nil && svc.now().Sub(cached.UpdatedAt) < blockhashMaxAge {
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	fresh, err := svc.refresh(ctx)
	if err != nil {
		if cached == nil {
			return solana.Hash{}, 0, err
		}
		log.Warn().Err(err).Uint64("slot", cached.Slot).Msg("[BlockhashCache] refresh failed, serving stale blockhash")
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}
	return fresh.Blockhash, fresh.LastValidBlockHeight, nil
}
