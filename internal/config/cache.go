package config

import (
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type CacheConfig struct {
	// DBPath is the BoltDB file holding discovered positions.
	DBPath             string
	PersistenceEnabled bool

	PositionMaxAge       time.Duration
	PositionRefresh      time.Duration
	VaultRefresh         time.Duration
	DecimalsCacheMaxSize int
}

func (c *CacheConfig) Key() string {
	return CACHE_CONFIG_KEY
}

func (c *CacheConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("CACHE_DB_PATH", "./data/leverage-engine.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("CACHE_PERSISTENCE_ENABLED", "true") == "true"
	c.PositionMaxAge = time.Duration(common.GetEnvOrDefaultInt("POSITION_MAX_AGE_SEC", 300)) * time.Second
	c.PositionRefresh = time.Duration(common.GetEnvOrDefaultInt("POSITION_REFRESH_SEC", 120)) * time.Second
	c.VaultRefresh = time.Duration(common.GetEnvOrDefaultInt("VAULT_REFRESH_SEC", 600)) * time.Second
	c.DecimalsCacheMaxSize = common.GetEnvOrDefaultInt("DECIMALS_CACHE_SIZE", 10_000)
	return nil
}

func (c *CacheConfig) Validate() error {
	return nil
}
