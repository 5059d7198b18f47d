package priority

import (
	"context"
	"fmt"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyExtreme
)

// MinFeePerCU is the floor applied to sampled fees, in microLamports.
const MinFeePerCU uint64 = 100

// DefaultFees are used when the RPC has no samples (microLamports per CU).
var DefaultFees = map[Urgency]uint64{
	UrgencyLow:     1000,
	UrgencyMedium:  10000,
	UrgencyHigh:    100000,
	UrgencyExtreme: 1000000,
}

func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "low":
		return UrgencyLow, nil
	case "", "medium":
		return UrgencyMedium, nil
	case "high":
		return UrgencyHigh, nil
	case "extreme":
		return UrgencyExtreme, nil
	}
	return UrgencyMedium, fmt.Errorf("unknown urgency %q", s)
}

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyHigh:
		return "high"
	case UrgencyExtreme:
		return "extreme"
	default:
		return "medium"
	}
}

type FeeCalculator struct {
	rpcClient *rpc.Client
}

func NewFeeCalculator(rpcClient *rpc.Client) *FeeCalculator {
	return &FeeCalculator{rpcClient: rpcClient}
}

type FeeEstimate struct {
	FeePerCU    uint64
	Urgency     Urgency
	Percentile  int
	SampleCount int
}

// OptimalFee samples recent prioritization fees for the writable accounts and
// picks the urgency percentile. RPC errors fall back to DefaultFees.
func (f *FeeCalculator) OptimalFee(ctx context.Context, urgency Urgency, accounts []solana.PublicKey) *FeeEstimate {
	percentile := percentileFor(urgency)
	fallback := &FeeEstimate{FeePerCU: DefaultFees[urgency], Urgency: urgency, Percentile: percentile}

	recent, err := f.rpcClient.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return fallback
	}
	fees := make([]uint64, 0, len(recent))
	for _, fee := range recent {
		if fee.PrioritizationFee > 0 {
			fees = append(fees, fee.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return fallback
	}
	return estimateFromSamples(fees, urgency)
}

func estimateFromSamples(fees []uint64, urgency Urgency) *FeeEstimate {
	slices.Sort(fees)
	percentile := percentileFor(urgency)
	fee := calculatePercentile(fees, percentile)
	if fee < MinFeePerCU {
		fee = MinFeePerCU
	}
	return &FeeEstimate{
		FeePerCU:    fee,
		Urgency:     urgency,
		Percentile:  percentile,
		SampleCount: len(fees),
	}
}

func percentileFor(urgency Urgency) int {
	switch urgency {
	case UrgencyLow:
		return 50
	case UrgencyHigh:
		return 90
	case UrgencyExtreme:
		return 99
	default:
		return 75
	}
}

// calculatePercentile interpolates linearly between the two nearest ranks.
func calculatePercentile(sorted []uint64, percentile int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(percentile) / 100.0 * float64(len(sorted)-1)
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		c = len(sorted) - 1
	}
	d := k - float64(f)
	return uint64(float64(sorted[f])*(1-d) + float64(sorted[c])*d)
}

// TotalLamports converts a per-CU price into the lamports paid for units.
func (e *FeeEstimate) TotalLamports(units uint32) uint64 {
	return e.FeePerCU * uint64(units) / 1_000_000
}
