package blockchain

import (
	"context"
	"errors"
	"testing"
	"time"

	pb "github.com/andrew-solarstorm/yellowstone-grpc-client-go/proto"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func hashN(n byte) solana.Hash {
	var h solana.Hash
	h[0] = n
	return h
}

func TestGetBlockhashCachesWhileFresh(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	calls := 0
	svc := newBlockhashCache(func(context.Context) (*CachedBlockhash, error) {
		calls++
		return &CachedBlockhash{
			Blockhash:            hashN(byte(calls)),
			LastValidBlockHeight: uint64(1000 + calls),
			Slot:                 uint64(calls),
			UpdatedAt:            clock.now(),
		}, nil
	})
	svc.now = clock.now

	hash, lastValid, err := svc.GetBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, hashN(1), hash)
	require.Equal(t, uint64(1001), lastValid)

	clock.t = clock.t.Add(blockhashMaxAge / 2)
	hash, _, err = svc.GetBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, hashN(1), hash)
	require.Equal(t, 1, calls)

	clock.t = clock.t.Add(blockhashMaxAge)
	hash, _, err = svc.GetBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, hashN(2), hash)
	require.Equal(t, 2, calls)
}

func TestGetBlockhashServesStaleOnFailure(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	fail := false
	svc := newBlockhashCache(func(context.Context) (*CachedBlockhash, error) {
		if fail {
			return nil, errors.New("rpc down")
		}
		return &CachedBlockhash{Blockhash: hashN(7), LastValidBlockHeight: 500, Slot: 10, UpdatedAt: clock.now()}, nil
	})
	svc.now = clock.now

	_, _, err := svc.GetBlockhash(context.Background())
	require.NoError(t, err)

	fail = true
	clock.t = clock.t.Add(time.Minute)
	hash, lastValid, err := svc.GetBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, hashN(7), hash)
	require.Equal(t, uint64(500), lastValid)

	empty := newBlockhashCache(func(context.Context) (*CachedBlockhash, error) {
		return nil, errors.New("rpc down")
	})
	_, _, err = empty.GetBlockhash(context.Background())
	require.Error(t, err)
}

func TestBlockMetaStreamKeepsNewestSlot(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	svc := newBlockhashCache(func(context.Context) (*CachedBlockhash, error) {
		return nil, errors.New("unused")
	})
	svc.now = clock.now

	meta := func(slot, height uint64, hash solana.Hash) *pb.SubscribeUpdate {
		return &pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_BlockMeta{BlockMeta: &pb.SubscribeUpdateBlockMeta{
			Slot:        slot,
			Blockhash:   hash.String(),
			BlockHeight: &pb.BlockHeight{BlockHeight: height},
		}}}
	}

	require.NoError(t, svc.handleBlockMeta(meta(200, 180, hashN(2))))
	require.NoError(t, svc.handleBlockMeta(meta(199, 179, hashN(1))))

	hash, lastValid, err := svc.GetBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, hashN(2), hash)
	require.Equal(t, uint64(180+blockhashValidity), lastValid)

	// no height, no update
	require.NoError(t, svc.handleBlockMeta(&pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_BlockMeta{
		BlockMeta: &pb.SubscribeUpdateBlockMeta{Slot: 300, Blockhash: hashN(3).String()},
	}}))
	require.Equal(t, uint64(200), svc.current.Load().Slot)
}
