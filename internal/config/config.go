package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY  = "general-config"
	RPC_CONFIG_KEY      = "rpc-config"
	ENGINE_CONFIG_KEY   = "engine-config"
	ADAPTERS_CONFIG_KEY = "adapters-config"
	CACHE_CONFIG_KEY    = "cache-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string

	// Per-IP limits for the public API.
	RateLimitPerSec float64
	RateLimitBurst  int
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.RateLimitPerSec = float64(common.GetEnvOrDefaultInt("RATE_LIMIT_PER_SEC", 10))
	gc.RateLimitBurst = common.GetEnvOrDefaultInt("RATE_LIMIT_BURST", 20)
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.RateLimitPerSec <= 0 || gc.RateLimitBurst <= 0 {
		return errors.New("invalid rate limit config")
	}
	return nil
}
