package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
)

type EngineConfig struct {
	// DefaultSlippageBps applies when a request leaves slippage unset.
	DefaultSlippageBps uint16

	// SingleRoutes are the venues tried one at a time after the preferred set.
	SingleRoutes []string

	MaxTransactionSize int
	ComputeUnitLimit   uint32

	// PriorityUrgency picks the fee percentile: low, medium, high, extreme.
	PriorityUrgency string
	// PriorityFeeMicroLamports overrides the sampled fee when non-zero.
	PriorityFeeMicroLamports uint64

	TipLamports   uint64
	MaxBundleSize int

	// RebalanceSafetyMarginPct is subtracted from the lower max LTV.
	RebalanceSafetyMarginPct int64
	// RebalanceMaxFraction caps the moved collateral as a percentage of the source.
	RebalanceMaxFractionPct int64

	// VaultIDs are loaded into the registry at startup.
	VaultIDs []uint16
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.DefaultSlippageBps = uint16(common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50))
	c.SingleRoutes = splitList(common.GetEnvOrDefault("SINGLE_ROUTES", "Raydium CLMM,Orca V2,Meteora DLMM"))
	c.MaxTransactionSize = common.GetEnvOrDefaultInt("MAX_TRANSACTION_SIZE", 1232)
	c.ComputeUnitLimit = uint32(common.GetEnvOrDefaultInt("COMPUTE_UNIT_LIMIT", 1_400_000))
	c.PriorityUrgency = strings.ToLower(common.GetEnvOrDefault("PRIORITY_URGENCY", "medium"))
	c.PriorityFeeMicroLamports = uint64(common.GetEnvOrDefaultInt("PRIORITY_FEE_MICROLAMPORTS", 0))
	c.TipLamports = uint64(common.GetEnvOrDefaultInt("JITO_TIP_LAMPORTS", 10_000))
	c.MaxBundleSize = common.GetEnvOrDefaultInt("MAX_BUNDLE_SIZE", 5)
	c.RebalanceSafetyMarginPct = int64(common.GetEnvOrDefaultInt("REBALANCE_SAFETY_MARGIN_PCT", 2))
	c.RebalanceMaxFractionPct = int64(common.GetEnvOrDefaultInt("REBALANCE_MAX_FRACTION_PCT", 95))

	ids, err := parseVaultIDs(os.Getenv("VAULT_IDS"))
	if err != nil {
		return err
	}
	c.VaultIDs = ids
	return c.Validate()
}

func (c *EngineConfig) Validate() error {
	if c.DefaultSlippageBps == 0 || c.DefaultSlippageBps >= 10_000 {
		return errors.New("invalid default slippage")
	}
	if c.MaxTransactionSize <= 0 || c.MaxTransactionSize > 1232 {
		return errors.New("invalid max transaction size")
	}
	if c.ComputeUnitLimit == 0 {
		return errors.New("invalid compute unit limit")
	}
	if c.MaxBundleSize < 2 || c.MaxBundleSize > 5 {
		return errors.New("bundle size must be between 2 and 5")
	}
	if c.RebalanceSafetyMarginPct < 2 {
		return errors.New("rebalance safety margin must be at least 2%")
	}
	if c.RebalanceMaxFractionPct <= 0 || c.RebalanceMaxFractionPct > 95 {
		return errors.New("rebalance max fraction must be between 1% and 95%")
	}
	switch c.PriorityUrgency {
	case "low", "medium", "high", "extreme":
	default:
		return fmt.Errorf("unknown priority urgency %q", c.PriorityUrgency)
	}
	return nil
}

func parseVaultIDs(raw string) ([]uint16, error) {
	parts := splitList(raw)
	ids := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid vault id %q: %w", p, err)
		}
		ids = append(ids, uint16(v))
	}
	return ids, nil
}
