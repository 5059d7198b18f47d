package rebalance

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
	"github.com/hxuan190/leverage-engine/internal/engine/services/bundle"
)

type stubChain struct {
	failFirst int
	simulated int
}

func (s *stubChain) GetBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{9}, 900, nil
}

func (s *stubChain) Simulate(context.Context, *solana.Transaction) (*domain.SimulationResult, error) {
	s.simulated++
	if s.simulated <= s.failFirst {
		return &domain.SimulationResult{Error: "InstructionError", FailureLine: "Program log: insufficient collateral"}, nil
	}
	return &domain.SimulationResult{Success: true}, nil
}

type stubTables struct{}

func (stubTables) Resolve(context.Context, []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	return map[solana.PublicKey]solana.PublicKeySlice{}, nil
}

func (stubTables) Static() []solana.PublicKey { return nil }

type stubBudget struct{}

func (stubBudget) Instructions(context.Context, uint32, []solana.PublicKey) ([]solana.Instruction, error) {
	return nil, nil
}

// stubLending returns one operate instruction over fresh writable keys.
type stubLending struct {
	accounts int
	requests []domain.OperateRequest
}

func (s *stubLending) Operate(_ context.Context, req domain.OperateRequest) (*domain.OperateResult, error) {
	s.requests = append(s.requests, req)
	metas := make(solana.AccountMetaSlice, 0, s.accounts)
	for range s.accounts {
		metas = append(metas, solana.Meta(solana.NewWallet().PublicKey()).WRITE())
	}
	ix := solana.NewInstruction(solana.NewWallet().PublicKey(), metas, []byte{0, 1, 2, 3, 4, 5, 6, 7})
	return &domain.OperateResult{Instructions: []solana.Instruction{ix}}, nil
}

func (s *stubLending) FlashBorrow(context.Context, domain.FlashRequest) (solana.Instruction, error) {
	return nil, nil
}

func (s *stubLending) FlashPayback(context.Context, domain.FlashRequest) (solana.Instruction, error) {
	return nil, nil
}

func newTestService(chain *stubChain, lend *stubLending) *Service {
	pipeline := &builder.Pipeline{
		Lending:   lend,
		Chain:     chain,
		Tables:    stubTables{},
		Budget:    stubBudget{},
		Assembler: builder.NewAssembler(domain.MaxTransactionSize),
	}
	return NewService(pipeline, bundle.NewOrchestrator(pipeline, 10_000), 2, 95)
}

func snapshots() (domain.Snapshot, domain.Snapshot, domain.RebalanceRequest) {
	mint := solana.NewWallet().PublicKey()
	source := domain.Snapshot{Position: position("10", "100", "100"), Vault: vault("80", 6)}
	source.Position.VaultID, source.Position.PositionID = 1, 11
	source.Vault.VaultID, source.Vault.CollateralMint = 1, mint

	target := domain.Snapshot{Position: position("10", "500", "100"), Vault: vault("75", 6)}
	target.Position.VaultID, target.Position.PositionID = 2, 22
	target.Vault.VaultID, target.Vault.CollateralMint = 2, mint

	req := domain.RebalanceRequest{
		Wallet: solana.NewWallet().PublicKey(),
		Source: domain.PositionKey{VaultID: 1, PositionID: 11},
		Target: domain.PositionKey{VaultID: 2, PositionID: 22},
	}
	return source, target, req
}

func TestBuildSingle(t *testing.T) {
	chain := &stubChain{}
	lend := &stubLending{accounts: 3}
	source, target, req := snapshots()

	res, err := newTestService(chain, lend).Build(context.Background(), req, source, target)
	require.NoError(t, err)
	require.Equal(t, domain.PlanModeSingle, res.Plan.Mode)
	require.Len(t, res.Plan.Transactions, 1)
	require.True(t, res.Simulation.Success)
	require.Equal(t, 1, chain.simulated)

	require.Len(t, lend.requests, 2)
	require.Equal(t, int64(-6_666_666), lend.requests[0].CollateralDelta.Int64())
	require.Equal(t, uint32(11), lend.requests[0].PositionID)
	require.Equal(t, int64(6_666_666), lend.requests[1].CollateralDelta.Int64())
	require.Equal(t, uint32(22), lend.requests[1].PositionID)
	require.Zero(t, lend.requests[1].DebtDelta.Sign())
}

func TestBuildOversizedFallsBackToTwoTransactions(t *testing.T) {
	chain := &stubChain{}
	// 18 fresh accounts per operate push the combined transaction past 1232
	// bytes while each leg stays well under it.
	lend := &stubLending{accounts: 18}
	source, target, req := snapshots()

	res, err := newTestService(chain, lend).Build(context.Background(), req, source, target)
	require.NoError(t, err)
	require.Equal(t, domain.PlanModeBundle, res.Plan.Mode)
	require.Len(t, res.Plan.Transactions, 2)
	for _, tx := range res.Plan.Transactions {
		require.LessOrEqual(t, tx.Size, domain.MaxTransactionSize)
	}
	require.Equal(t, "withdraw", res.Plan.Transactions[0].Label)
	require.Equal(t, "deposit", res.Plan.Transactions[1].Label)
	require.NotNil(t, res.Plan.Tip)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "byte limit")
	require.Equal(t, 1, chain.simulated)
}

func TestBuildSimulationFailureFallsBack(t *testing.T) {
	chain := &stubChain{failFirst: 1}
	source, target, req := snapshots()

	res, err := newTestService(chain, &stubLending{accounts: 3}).Build(context.Background(), req, source, target)
	require.NoError(t, err)
	require.Equal(t, domain.PlanModeBundle, res.Plan.Mode)
	require.Equal(t, 2, chain.simulated)
	require.True(t, res.Simulation.Success)
}

func TestBuildForceBundle(t *testing.T) {
	chain := &stubChain{}
	source, target, req := snapshots()
	req.ForceBundle = true

	res, err := newTestService(chain, &stubLending{accounts: 3}).Build(context.Background(), req, source, target)
	require.NoError(t, err)
	require.Equal(t, domain.PlanModeBundle, res.Plan.Mode)
	// first leg only
	require.Equal(t, 1, chain.simulated)
	require.NotNil(t, res.Simulation)
	require.True(t, res.Simulation.Success)
	require.Empty(t, res.Warnings)
}

func TestBuildNoRecommendation(t *testing.T) {
	lend := &stubLending{accounts: 3}
	source, target, req := snapshots()
	source, target = target, source
	source.Vault.CollateralMint = target.Vault.CollateralMint

	res, err := newTestService(&stubChain{}, lend).Build(context.Background(), req, source, target)
	require.NoError(t, err)
	require.Nil(t, res.Plan)
	require.Equal(t, ReasonNotHealthier, res.Reason)
	require.Empty(t, lend.requests)
}

func TestRecommendValidation(t *testing.T) {
	svc := newTestService(&stubChain{}, &stubLending{})

	tests := []struct {
		name   string
		mutate func(req *domain.RebalanceRequest, source, target *domain.Snapshot)
	}{
		{"missing wallet", func(req *domain.RebalanceRequest, _, _ *domain.Snapshot) { req.Wallet = solana.PublicKey{} }},
		{"no position", func(req *domain.RebalanceRequest, _, _ *domain.Snapshot) { req.Target.PositionID = 0 }},
		{"same position", func(req *domain.RebalanceRequest, _, _ *domain.Snapshot) { req.Target = req.Source }},
		{"different collateral", func(_ *domain.RebalanceRequest, _, target *domain.Snapshot) {
			target.Vault.CollateralMint = solana.NewWallet().PublicKey()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, target, req := snapshots()
			tt.mutate(&req, &source, &target)
			_, err := svc.Recommend(req, source, target)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
