package priority

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

// Service produces the compute budget prefix of every transaction.
type Service struct {
	feeCalculator *FeeCalculator
	urgency       Urgency
	staticFee     uint64
}

// NewService builds a service that samples fees at the given urgency. A
// non-zero staticFee skips sampling.
func NewService(rpcClient *rpc.Client, urgency string, staticFee uint64) *Service {
	u, err := ParseUrgency(urgency)
	if err != nil {
		log.Warn().Err(err).Msg("[PriorityService] falling back to medium urgency")
	}
	return &Service{
		feeCalculator: NewFeeCalculator(rpcClient),
		urgency:       u,
		staticFee:     staticFee,
	}
}

func (s *Service) FeePerCU(ctx context.Context, writable []solana.PublicKey) uint64 {
	return s.estimate(ctx, writable).FeePerCU
}

func (s *Service) estimate(ctx context.Context, writable []solana.PublicKey) *FeeEstimate {
	if s.staticFee > 0 {
		return &FeeEstimate{FeePerCU: s.staticFee, Urgency: s.urgency}
	}
	return s.feeCalculator.OptimalFee(ctx, s.urgency, writable)
}

// Instructions returns SetComputeUnitLimit followed by SetComputeUnitPrice.
func (s *Service) Instructions(ctx context.Context, units uint32, writable []solana.PublicKey) ([]solana.Instruction, error) {
	est := s.estimate(ctx, writable)
	log.Debug().
		Uint32("units", units).
		Uint64("feePerCU", est.FeePerCU).
		Int("samples", est.SampleCount).
		Uint64("priorityLamports", est.TotalLamports(units)).
		Msg("[PriorityService] compute budget")
	return BuildInstructions(units, est.FeePerCU)
}

func BuildInstructions(units uint32, microLamports uint64) ([]solana.Instruction, error) {
	limit, err := computebudget.NewSetComputeUnitLimitInstruction(units).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("compute unit limit: %w", err)
	}
	price, err := computebudget.NewSetComputeUnitPriceInstruction(microLamports).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("compute unit price: %w", err)
	}
	return []solana.Instruction{limit, price}, nil
}
