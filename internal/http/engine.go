package http

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jito"
)

// Engine is the part of engine.Service the handlers use.
type Engine interface {
	Leverage(ctx context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error)
	Deleverage(ctx context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error)
	Rebalance(ctx context.Context, req domain.RebalanceRequest) (*domain.BuildResult, error)
	Execute(ctx context.Context, plan *domain.TransactionPlan, signer engine.Signer) (*domain.ExecutionResult, error)

	SubmitBundle(ctx context.Context, signed []string) (string, error)
	BundleStatus(ctx context.Context, bundleID string) (*jito.BundleStatus, error)

	Positions(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error)
	RefreshPositions(ctx context.Context, wallet solana.PublicKey) (*domain.WalletPositions, error)
	InvalidatePositions(wallet solana.PublicKey) error
	Vaults() map[uint32]*domain.VaultConfig
}
