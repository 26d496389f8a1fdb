// Package service is the caller-facing operation surface of the pipeline,
// abstracted from any transport. It wires the lifecycle gate, the report
// cache, the enhancement pipeline, and the synthesizer into the control flow:
// eligibility check, cache fast path, optional enhancement, synthesis, cache
// write. Enhancement failures never propagate past this package; a report
// request always ends in an artifact or one clearly classified error.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/capability"
	"github.com/halcyonsec/vantage/internal/config"
	"github.com/halcyonsec/vantage/internal/enhance"
	"github.com/halcyonsec/vantage/internal/lifecycle"
	"github.com/halcyonsec/vantage/internal/llmclient"
	"github.com/halcyonsec/vantage/internal/poller"
	"github.com/halcyonsec/vantage/internal/report"
)

// ClientFactory builds a provider client from configuration. Injectable so
// tests can substitute fakes for the real HTTP client.
type ClientFactory func(config.ProviderConfig, *zap.Logger) (schemas.LLMClient, error)

// Service exposes the report and tracking operations.
type Service struct {
	store     schemas.Store
	lifecycle *lifecycle.Manager
	cache     schemas.ReportCache
	storage   schemas.ArtifactStorage
	engine    poller.StatusClient

	providerCfg config.ProviderConfig
	enhancerCfg config.EnhancerConfig
	pollerCfg   config.PollerConfig

	newClient ClientFactory
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClientFactory overrides how provider clients are constructed.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) { s.newClient = f }
}

// New assembles the service. The engine client may be nil when tracking is
// not needed (e.g., report-only invocations).
func New(
	store schemas.Store,
	cache schemas.ReportCache,
	storage schemas.ArtifactStorage,
	engine poller.StatusClient,
	cfg config.Interface,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:       store,
		lifecycle:   lifecycle.NewManager(store, logger),
		cache:       cache,
		storage:     storage,
		engine:      engine,
		providerCfg: cfg.Provider(),
		enhancerCfg: cfg.Enhancer(),
		pollerCfg:   cfg.Poller(),
		newClient:   llmclient.NewClient,
		logger:      logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateReport returns the default-format baseline report for the scan,
// synthesizing and caching it on first request. ownerID "" skips the
// ownership check (trusted internal callers).
func (s *Service) GetOrCreateReport(ctx context.Context, ownerID, scanID string) (*schemas.Artifact, error) {
	key := schemas.ReportKey{
		ScanID: scanID,
		Format: schemas.FormatPDF,
		Mode:   schemas.ModeBaseline,
	}
	return s.produceReport(ctx, ownerID, key)
}

// DownloadReport synthesizes (or serves from cache, for the one cacheable
// key) a report in the requested format and mode. The image-processing flag
// participates in the cache key for the default format only; other formats
// ignore it.
func (s *Service) DownloadReport(ctx context.Context, ownerID, scanID string, format schemas.ReportFormat, mode schemas.ReportMode, imageProcessing bool) (*schemas.Artifact, error) {
	key := schemas.ReportKey{
		ScanID:          scanID,
		Format:          format,
		Mode:            mode,
		ImageProcessing: imageProcessing,
	}
	return s.produceReport(ctx, ownerID, key)
}

// CheckCapabilities reports the enhancement provider's configured abilities.
// It never errors: no provider configured is a normal snapshot.
func (s *Service) CheckCapabilities() schemas.CapabilitySnapshot {
	return capability.Probe(s.providerCfg)
}

// StartTracking begins a polling session over the scan's external analysis
// job. The returned session is owned by the caller: cancel ctx to stop
// tracking deterministically.
func (s *Service) StartTracking(ctx context.Context, ownerID, scanID string) (*poller.Session, error) {
	scan, err := s.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ownerID, scan); err != nil {
		return nil, err
	}
	if s.engine == nil {
		return nil, fmt.Errorf("no analysis engine client configured")
	}

	session := poller.NewSession(s.engine, scanID, s.pollerCfg, s.logger)
	session.Start(ctx)
	return session, nil
}

// Lifecycle exposes the lifecycle manager for callers that record engine
// transitions (e.g., the tracking command marking a scan failed).
func (s *Service) Lifecycle() *lifecycle.Manager {
	return s.lifecycle
}

// produceReport is the shared report path: gate, cache fast path, enhance,
// synthesize, cache write.
func (s *Service) produceReport(ctx context.Context, ownerID string, key schemas.ReportKey) (*schemas.Artifact, error) {
	scan, err := s.lifecycle.EnsureReportEligible(ctx, key.ScanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ownerID, scan); err != nil {
		return nil, err
	}

	// Fast path. Only the default baseline key can hit.
	if rec, err := s.cache.Lookup(ctx, key); err != nil {
		return nil, err
	} else if rec != nil && s.storage.Exists(rec.Path) {
		data, err := s.storage.Read(rec.Path)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Report served from cache", zap.String("scan_id", key.ScanID))
		return &schemas.Artifact{
			Bytes:       data,
			ContentType: report.ContentType(key.Format),
			Filename:    report.Filename(scan, key.Format),
		}, nil
	}

	findings, err := s.store.GetFindingsByScanID(ctx, key.ScanID)
	if err != nil {
		return nil, err
	}

	var overlay *schemas.EnhancementOverlay
	if key.Mode == schemas.ModeLLM {
		overlay = s.runEnhancement(ctx, scan, findings)
	}

	synth, err := report.New(key.Format)
	if err != nil {
		return nil, err
	}
	artifact, err := synth.Synthesize(scan, findings, overlay)
	if err != nil {
		return nil, err
	}

	if key.Cacheable() {
		s.cacheArtifact(ctx, key, artifact)
	}

	return artifact, nil
}

// runEnhancement executes the best-effort enhancement stage. Any failure,
// including an entirely unreachable provider, degrades to an empty overlay;
// it can never block artifact delivery.
func (s *Service) runEnhancement(ctx context.Context, scan *schemas.Scan, findings []schemas.Finding) *schemas.EnhancementOverlay {
	client, err := s.newClient(s.providerCfg, s.logger)
	if err != nil {
		s.logger.Warn("Enhancement unavailable, generating baseline content", zap.Error(err))
		return nil
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.logger.Debug("Provider client close failed", zap.Error(err))
		}
	}()

	pipeline := enhance.NewPipeline(client, s.enhancerCfg, s.providerCfg.Temperature, s.logger)
	overlay := pipeline.Run(ctx, scan, findings, enhance.All())
	if overlay.Empty() {
		s.logger.Info("Enhancement produced no usable output, using baseline content",
			zap.String("scan_id", scan.ID))
	}
	return overlay
}

// cacheArtifact persists the artifact bytes and records the cache entry.
// Failures here are logged and swallowed: the caller already has a valid
// artifact, and the next request simply re-synthesizes.
func (s *Service) cacheArtifact(ctx context.Context, key schemas.ReportKey, artifact *schemas.Artifact) {
	path, err := s.storage.Write(artifact.Bytes)
	if err != nil {
		s.logger.Warn("Failed to persist report artifact", zap.Error(err))
		return
	}
	rec := schemas.ArtifactRecord{
		ScanID:    key.ScanID,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cache.Store(ctx, key, rec); err != nil {
		s.logger.Warn("Failed to record report cache entry", zap.Error(err))
	}
}

func (s *Service) checkOwner(ownerID string, scan *schemas.Scan) error {
	if ownerID != "" && scan.OwnerID != ownerID {
		return fmt.Errorf("%w: scan %s", schemas.ErrForbidden, scan.ID)
	}
	return nil
}
