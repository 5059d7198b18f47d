package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/engine"
	"github.com/hxuan190/leverage-engine/internal/http/httputil"
	"github.com/hxuan190/leverage-engine/internal/http/middlewares"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

type HTTPService struct {
	container.BaseDIInstance

	engine      Engine
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	conf        *config.GeneralConfig
	cancel      context.CancelFunc
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

// NewRouter registers every handler on a fresh engine. Split from Start so
// tests can drive the routes through httptest.
func NewRouter(eng Engine, limiter *middlewares.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AllowCredentials = true
	corsConf.AddAllowHeaders("Authorization", "X-Wallet-Address", "X-Timestamp", "X-Signature")
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	if limiter != nil {
		r.Use(limiter.RateLimitMiddleware())
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)

	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))

	setupHandlers(pub, priv, admin, []httputil.IHttpHandler{
		NewOperationHandler(eng),
		NewBundleHandler(eng),
		NewPositionHandler(eng),
		NewVaultHandler(eng),
	})
	return r
}

func (svc *HTTPService) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	go svc.rateLimiter.SweepLoop(ctx, time.Minute)

	svc.server = &gohttp.Server{
		Addr:    svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler: NewRouter(svc.engine, svc.rateLimiter),
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if svc.conf == nil {
		return errors.New("invalid server config")
	}

	svc.engine = c.Instance(engine.ENGINE_SERVICE).(*engine.Service)
	svc.rateLimiter = middlewares.NewRateLimiter(svc.conf.RateLimitPerSec, svc.conf.RateLimitBurst)
	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

func setupHandlers(
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
	handlers []httputil.IHttpHandler,
) {
	for _, h := range handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
