package priority

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestCalculatePercentile(t *testing.T) {
	sorted := []uint64{100, 200, 300, 400, 500}

	tests := []struct {
		percentile int
		want       uint64
	}{
		{0, 100},
		{50, 300},
		{75, 400},
		{100, 500},
		{90, 460},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, calculatePercentile(sorted, tt.percentile), "p%d", tt.percentile)
	}
	require.Zero(t, calculatePercentile(nil, 50))
}

func TestEstimateFromSamplesAppliesFloor(t *testing.T) {
	est := estimateFromSamples([]uint64{5, 1, 3}, UrgencyHigh)
	require.Equal(t, MinFeePerCU, est.FeePerCU)
	require.Equal(t, 3, est.SampleCount)
	require.Equal(t, 90, est.Percentile)
}

func TestParseUrgency(t *testing.T) {
	u, err := ParseUrgency("extreme")
	require.NoError(t, err)
	require.Equal(t, UrgencyExtreme, u)
	require.Equal(t, "extreme", u.String())

	_, err = ParseUrgency("now")
	require.Error(t, err)
}

func TestStaticFeeInstructions(t *testing.T) {
	svc := NewService(nil, "medium", 5000)

	ixs, err := svc.Instructions(context.Background(), 400_000, nil)
	require.NoError(t, err)
	require.Len(t, ixs, 2)

	computeBudget := solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	for _, ix := range ixs {
		require.Equal(t, computeBudget, ix.ProgramID())
	}

	limit, err := ixs[0].Data()
	require.NoError(t, err)
	require.Equal(t, byte(2), limit[0])

	price, err := ixs[1].Data()
	require.NoError(t, err)
	require.Equal(t, byte(3), price[0])
}

func TestTotalLamports(t *testing.T) {
	est := &FeeEstimate{FeePerCU: 10_000}
	require.Equal(t, uint64(2_000), est.TotalLamports(200_000))
}

func TestInstructionsLogPriorityLamports(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = prev })

	svc := NewService(nil, "medium", 10_000)
	_, err := svc.Instructions(context.Background(), 200_000, nil)
	require.NoError(t, err)

	var entry struct {
		Units            uint32 `json:"units"`
		FeePerCU         uint64 `json:"feePerCU"`
		PriorityLamports uint64 `json:"priorityLamports"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, uint32(200_000), entry.Units)
	require.Equal(t, uint64(10_000), entry.FeePerCU)
	require.Equal(t, uint64(2_000), entry.PriorityLamports)
}
