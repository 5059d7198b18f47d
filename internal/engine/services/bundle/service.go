package bundle

import (
	"context"
	"fmt"
	"sync"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jito"
	"github.com/hxuan190/leverage-engine/internal/engine/services/builder"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const BUNDLE_SERVICE = "bundle-svc"

type Relay interface {
	SendBundle(ctx context.Context, txs []string) (string, error)
	BundleStatus(ctx context.Context, bundleID string) (*jito.BundleStatus, error)
}

type Service struct {
	container.BaseDIInstance

	logger       *common.ServiceLogger
	builder      *builder.BuilderService
	relay        Relay
	tipLamports  uint64
	maxLegs      int
	once         sync.Once
	orchestrator *Orchestrator
}

// NewService wires the bundle service outside the container.
func NewService(orchestrator *Orchestrator, relay Relay) *Service {
	svc := &Service{orchestrator: orchestrator, relay: relay}
	svc.logger = common.NewServiceLogger(svc)
	return svc
}

func (svc *Service) ID() string {
	return BUNDLE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	engineConfig := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	adaptersConfig := c.GetConfig(config.ADAPTERS_CONFIG_KEY).(*config.AdaptersConfig)
	svc.builder = c.Instance(builder.BUILDER_SERVICE_NAME).(*builder.BuilderService)
	svc.relay = jito.NewRelay(adaptersConfig.JitoURL)
	svc.tipLamports = engineConfig.TipLamports
	svc.maxLegs = engineConfig.MaxBundleSize
	return nil
}

// Start runs after every Configure, once the builder pipeline exists.
func (svc *Service) Start() error {
	svc.Orchestrator()
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

// Orchestrator builds on first use: the builder's pipeline only exists once
// its Configure has run, and dependents may start before this service.
func (svc *Service) Orchestrator() *Orchestrator {
	svc.once.Do(func() {
		if svc.orchestrator == nil {
			svc.orchestrator = NewOrchestrator(svc.builder.Pipeline(), svc.tipLamports).WithMaxLegs(svc.maxLegs)
		}
	})
	return svc.orchestrator
}

// Submit hands signed base64 transactions to the relay in order.
func (svc *Service) Submit(ctx context.Context, signed []string) (string, error) {
	bundleID, err := svc.relay.SendBundle(ctx, signed)
	if err != nil {
		metrics.BundleSubmissions.WithLabelValues("failed").Inc()
		return "", &domain.SubmissionFailedError{Stage: "bundle relay", Err: err, OnChainEffectUnknown: true}
	}
	metrics.BundleSubmissions.WithLabelValues("accepted").Inc()
	svc.logger.Info().Str("bundleId", bundleID).Int("transactions", len(signed)).Msg("bundle accepted by relay")
	return bundleID, nil
}

func (svc *Service) Status(ctx context.Context, bundleID string) (*jito.BundleStatus, error) {
	st, err := svc.relay.BundleStatus(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("bundle status: %w", err)
	}
	return st, nil
}
