package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type AdaptersConfig struct {
	AggregatorURL    string
	AggregatorAPIKey string
	AggregatorRPS    float64

	// LendingURL serves protocol instructions and position reads.
	LendingURL string

	JitoURL string

	Timeout time.Duration
}

func (c *AdaptersConfig) Key() string {
	return ADAPTERS_CONFIG_KEY
}

func (c *AdaptersConfig) Load() error {
	c.AggregatorURL = common.GetEnvOrDefault("AGGREGATOR_URL", "https://lite-api.jup.ag/swap/v1")
	c.AggregatorAPIKey = common.GetEnvOrDefault("AGGREGATOR_API_KEY", "")
	c.AggregatorRPS = float64(common.GetEnvOrDefaultInt("AGGREGATOR_RPS", 5))
	c.LendingURL = common.GetEnvOrDefault("LENDING_URL", "http://localhost:8090")
	c.JitoURL = common.GetEnvOrDefault("JITO_URL", "https://mainnet.block-engine.jito.wtf/api/v1/bundles")
	c.Timeout = time.Duration(common.GetEnvOrDefaultInt("ADAPTER_TIMEOUT_MS", 10_000)) * time.Millisecond
	return c.Validate()
}

func (c *AdaptersConfig) Validate() error {
	if c.AggregatorURL == "" || c.LendingURL == "" || c.JitoURL == "" {
		return errors.New("invalid adapters config")
	}
	if c.AggregatorRPS <= 0 || c.Timeout <= 0 {
		return errors.New("invalid adapter limits")
	}
	return nil
}
