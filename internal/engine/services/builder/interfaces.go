package builder

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

// SwapQuoter returns the first quote a route-restriction ladder produces.
type SwapQuoter interface {
	Select(ctx context.Context, req domain.QuoteRequest, preferred []string) (*domain.SwapQuote, []string, error)
}

// LendingProtocol returns opaque protocol instructions.
type LendingProtocol interface {
	Operate(ctx context.Context, req domain.OperateRequest) (*domain.OperateResult, error)
	FlashBorrow(ctx context.Context, req domain.FlashRequest) (solana.Instruction, error)
	FlashPayback(ctx context.Context, req domain.FlashRequest) (solana.Instruction, error)
}

type ChainReader interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	Simulate(ctx context.Context, tx *solana.Transaction) (*domain.SimulationResult, error)
}

// TableResolver returns the contents of the requested lookup tables.
type TableResolver interface {
	Resolve(ctx context.Context, addrs []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
	Static() []solana.PublicKey
}

type ComputeBudgeter interface {
	Instructions(ctx context.Context, units uint32, writable []solana.PublicKey) ([]solana.Instruction, error)
}
