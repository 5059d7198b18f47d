package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"github.com/thehyperflames/yellowstone"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/engine"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/blockchain"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
	"github.com/hxuan190/leverage-engine/internal/engine/services/bundle"
	"github.com/hxuan190/leverage-engine/internal/engine/services/positions"
	"github.com/hxuan190/leverage-engine/internal/engine/services/rebalance"
	"github.com/hxuan190/leverage-engine/internal/engine/services/registry"
	"github.com/hxuan190/leverage-engine/internal/http"
)

// @title Leverage Engine API
// @version 1.0-beta
// @description Builds leverage, deleverage and rebalance transactions for lending vault positions on Solana.
// @description
// @description ## - Operations
// @description - **Leverage**: flash-borrow debt, swap it to collateral, deposit and borrow in one transaction
// @description - **Deleverage**: flash-borrow collateral, swap it to debt, repay and withdraw
// @description - **Rebalance**: move collateral between two positions so both end at the same LTV
// @description
// @description ## - Size limit
// @description Every transaction must fit in 1232 bytes. When it does not, the error lists mitigations
// @description ordered best first. Set `allowBundle` to fall back to an atomic relay bundle automatically.
// @description
// @description ## - Usage Tips
// @description - Amounts are UI decimals as strings, for example "6.5" USDC
// @description - Borrow legs round up and repay legs round down to avoid protocol dust
// @description - Default slippage is 50 bps (0.5%)
// @description - Transactions expire at lastValidBlockHeight, roughly 60 seconds after building
// @description - **Rate Limit**: 10 requests/second per IP (burst: 20)
// @BasePath /
// @schemes https http
// @tag.name operations
// @tag.description Build leverage, deleverage and rebalance plans
// @tag.name bundle
// @tag.description Submit signed bundles and track their status
// @tag.name positions
// @tag.description Cached wallet positions per vault
// @tag.name vaults
// @tag.description Vault configuration

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using process environment")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	common.SetupLogger(general.LogLevel, general.Env)
	common.InitRuntime()

	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&yellowstone.Config{},
		&config.LUTConfig{},
		&config.EngineConfig{},
		&config.AdaptersConfig{},
		&config.CacheConfig{},
	)

	dic, err := container.New(
		conf,

		// chain access
		&yellowstone.Service{},
		&blockchain.BlockhashCacheService{},
		&blockchain.ReaderService{},

		// state
		&registry.Service{},
		&positions.Service{},

		// builders
		&builder.BuilderService{},
		&bundle.Service{},
		&rebalance.Service{},
		&engine.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
