package blockchain

import (
	"fmt"
	"strings"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

var (
	insufficientMarkers = []string{"insufficient", "not enough"}
	slippageMarkers     = []string{"slippage", "exceededslippage", "0x1771"}
	failureMarkers      = []string{"error", "failed", "panicked"}
)

// ParseSimulation turns the raw simulation fields into a SimulationResult.
// simErr is the RPC's err value, nil on success.
func ParseSimulation(simErr any, logs []string, unitsConsumed *uint64) *domain.SimulationResult {
	res := &domain.SimulationResult{
		Success: simErr == nil,
		Logs:    logs,
	}
	if unitsConsumed != nil {
		res.ComputeUnitsConsumed = *unitsConsumed
	}
	if res.Success {
		return res
	}

	res.Error = fmt.Sprintf("%v", simErr)
	res.FailureLine = failureLine(logs)

	haystack := strings.ToLower(res.Error + " " + res.FailureLine)
	res.InsufficientFunds = containsAny(haystack, insufficientMarkers)
	res.SlippageExceeded = containsAny(haystack, slippageMarkers)
	return res
}

// failureLine returns the first log line that reads like an error.
func failureLine(logs []string) string {
	for _, line := range logs {
		if containsAny(strings.ToLower(line), failureMarkers) {
			return line
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
