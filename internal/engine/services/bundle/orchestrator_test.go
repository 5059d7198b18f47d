package bundle

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
)

type stubChain struct {
	simulated []string
	fail      bool
}

func (s *stubChain) GetBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{1, 2, 3}, 500, nil
}

func (s *stubChain) Simulate(_ context.Context, tx *solana.Transaction) (*domain.SimulationResult, error) {
	s.simulated = append(s.simulated, tx.Message.RecentBlockhash.String())
	if s.fail {
		return &domain.SimulationResult{Success: false, Error: "custom program error: 0x1"}, nil
	}
	return &domain.SimulationResult{Success: true, ComputeUnitsConsumed: 120000}, nil
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

type stubLending struct {
	requests []domain.OperateRequest
}

func (s *stubLending) Operate(_ context.Context, req domain.OperateRequest) (*domain.OperateResult, error) {
	s.requests = append(s.requests, req)
	return &domain.OperateResult{Instructions: []solana.Instruction{instruction(2)}}, nil
}

func (s *stubLending) FlashBorrow(context.Context, domain.FlashRequest) (solana.Instruction, error) {
	return instruction(1), nil
}

func (s *stubLending) FlashPayback(context.Context, domain.FlashRequest) (solana.Instruction, error) {
	return instruction(1), nil
}

func instruction(accounts int) solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, accounts)
	for range accounts {
		metas = append(metas, solana.Meta(solana.NewWallet().PublicKey()).WRITE())
	}
	return solana.NewInstruction(solana.NewWallet().PublicKey(), metas, []byte{1, 2, 3, 4})
}

func newOrchestrator(chain *stubChain) *Orchestrator {
	o := NewOrchestrator(&builder.Pipeline{
		Lending:   &stubLending{},
		Chain:     chain,
		Tables:    stubTables{},
		Budget:    stubBudget{},
		Assembler: builder.NewAssembler(domain.MaxTransactionSize),
	}, 5000)
	o.pick = func(int) int { return 3 }
	return o
}

func leg(label string, accounts int) Leg {
	return Leg{Label: label, Groups: []domain.InstructionGroup{{Label: label, Instructions: []solana.Instruction{instruction(accounts)}}}}
}

func TestBuildAppendsTipToLastLeg(t *testing.T) {
	chain := &stubChain{}
	payer := solana.NewWallet().PublicKey()

	plan, sim, err := newOrchestrator(chain).Build(context.Background(), BuildInput{
		Payer:         payer,
		Legs:          []Leg{leg("borrow", 4), leg("swap", 10), leg("deposit", 4)},
		SimulateFirst: true,
	})
	require.NoError(t, err)
	require.True(t, sim.Success)
	require.Len(t, chain.simulated, 1)

	require.Equal(t, domain.PlanModeBundle, plan.Mode)
	require.Len(t, plan.Transactions, 3)
	require.Equal(t, uint64(500), plan.LastValidBlockHeight)
	require.Equal(t, common.JitoTipAccounts[3], plan.Tip.Account)
	require.Equal(t, uint64(5000), plan.Tip.Lamports)

	hash := plan.Transactions[0].Transaction.Message.RecentBlockhash
	for _, tx := range plan.Transactions {
		require.LessOrEqual(t, tx.Size, domain.MaxTransactionSize)
		require.Equal(t, hash, tx.Transaction.Message.RecentBlockhash)
	}

	last := plan.Transactions[2].Transaction
	require.Len(t, last.Message.Instructions, 2)
	require.Contains(t, last.Message.AccountKeys, common.JitoTipAccounts[3])
	require.NotContains(t, plan.Transactions[0].Transaction.Message.AccountKeys, common.JitoTipAccounts[3])
}

func TestBuildRejectsLegCount(t *testing.T) {
	o := newOrchestrator(&stubChain{})
	legs := make([]Leg, 6)
	for i := range legs {
		legs[i] = leg("leg", 1)
	}
	_, _, err := o.Build(context.Background(), BuildInput{Payer: solana.NewWallet().PublicKey(), Legs: legs})
	require.Error(t, err)

	_, _, err = o.Build(context.Background(), BuildInput{Payer: solana.NewWallet().PublicKey()})
	require.Error(t, err)
}

func TestBuildOversizedLeg(t *testing.T) {
	o := newOrchestrator(&stubChain{})
	_, _, err := o.Build(context.Background(), BuildInput{
		Payer: solana.NewWallet().PublicKey(),
		Legs:  []Leg{leg("withdraw", 2), leg("swap", 45)},
	})
	var tooLarge *domain.TransactionTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	require.Equal(t, "swap", tooLarge.Label)
}

func TestBuildSimulationFailure(t *testing.T) {
	o := newOrchestrator(&stubChain{fail: true})
	_, sim, err := o.Build(context.Background(), BuildInput{
		Payer:         solana.NewWallet().PublicKey(),
		Legs:          []Leg{leg("withdraw", 2), leg("deposit", 2)},
		SimulateFirst: true,
	})
	require.ErrorIs(t, err, domain.ErrSimulationFailed)
	require.False(t, sim.Success)
}

func TestTipMinimum(t *testing.T) {
	o := NewOrchestrator(&builder.Pipeline{}, 10)
	tip, _, err := o.Tip(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Equal(t, common.MinJitoTipLamports, tip.Lamports)
	require.Contains(t, common.JitoTipAccounts, tip.Account)
}

func TestFlashLegs(t *testing.T) {
	tests := []struct {
		name      string
		operation domain.Operation
		labels    []string
		first     int64
		firstDebt int64
		last      int64
		lastDebt  int64
	}{
		{"leverage", domain.OperationLeverage, []string{"borrow", "swap", "deposit"}, 0, 300, 200, 0},
		{"deleverage", domain.OperationDeleverage, []string{"withdraw", "swap", "repay"}, -200, 0, 0, -300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lend := &stubLending{}
			p := &builder.Prepared{
				Operation:     tt.operation,
				Quote:         &domain.SwapQuote{Instructions: []solana.Instruction{instruction(3)}},
				CollateralRaw: 200,
				DebtRaw:       300,
			}
			legs, err := FlashLegs(context.Background(), lend, p)
			require.NoError(t, err)
			require.Len(t, legs, 3)
			for i, l := range legs {
				require.Equal(t, tt.labels[i], l.Label)
			}
			require.True(t, legs[1].HasSwap)

			require.Len(t, lend.requests, 2)
			require.Equal(t, tt.first, lend.requests[0].CollateralDelta.Int64())
			require.Equal(t, tt.firstDebt, lend.requests[0].DebtDelta.Int64())
			require.Equal(t, tt.last, lend.requests[1].CollateralDelta.Int64())
			require.Equal(t, tt.lastDebt, lend.requests[1].DebtDelta.Int64())
		})
	}
}

func TestWithMaxLegs(t *testing.T) {
	o := newOrchestrator(&stubChain{}).WithMaxLegs(2)
	_, _, err := o.Build(context.Background(), BuildInput{
		Payer: solana.NewWallet().PublicKey(),
		Legs:  []Leg{leg("a", 1), leg("b", 1), leg("c", 1)},
	})
	require.Error(t, err)
}
