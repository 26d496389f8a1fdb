// Package enhance derives optional, provider-generated replacement text for
// finding descriptions, remediations, and the scan summary. Everything here
// is strictly best-effort: a rejected or failed item is simply absent from
// the overlay, a derivation that fails wholesale leaves the other derivations
// untouched, and no outcome of this package ever blocks artifact delivery.
// Overlays are ephemeral; nothing is persisted.
package enhance

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
)

// Options selects which derivations a pipeline run performs. The zero value
// runs nothing.
type Options struct {
	Descriptions bool
	Remediations bool
	Summary      bool
}

// All enables every derivation.
func All() Options {
	return Options{Descriptions: true, Remediations: true, Summary: true}
}

// Pipeline coordinates concurrent enhancement of one scan's findings.
type Pipeline struct {
	client        schemas.LLMClient
	limiter       *rate.Limiter
	maxConcurrent int
	temperature   float64
	logger        *zap.Logger
}

// NewPipeline builds a pipeline over an explicit provider client. The client
// is passed in rather than resolved from shared process state so callers
// decide per invocation which provider configuration applies.
func NewPipeline(client schemas.LLMClient, cfg config.EnhancerConfig, temperature float64, logger *zap.Logger) *Pipeline {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 4
	}
	return &Pipeline{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		maxConcurrent: maxConc,
		temperature:   temperature,
		logger:        logger.Named("enhance"),
	}
}

// Run executes the requested derivations concurrently and joins them. It
// always returns a usable overlay; with no client or a fully unreachable
// provider the overlay is simply empty.
func (p *Pipeline) Run(ctx context.Context, scan *schemas.Scan, findings []schemas.Finding, opts Options) *schemas.EnhancementOverlay {
	overlay := &schemas.EnhancementOverlay{}
	if p.client == nil || len(findings) == 0 {
		return overlay
	}

	// Each derivation writes a distinct overlay field, so the only join
	// needed is waiting for all of them.
	g, gctx := errgroup.WithContext(ctx)

	if opts.Descriptions {
		g.Go(func() error {
			overlay.Descriptions = p.enhanceDescriptions(gctx, scan, findings)
			return nil
		})
	}
	if opts.Remediations {
		g.Go(func() error {
			overlay.Remediations = p.enhanceRemediations(gctx, scan, findings)
			return nil
		})
	}
	if opts.Summary {
		g.Go(func() error {
			overlay.Summary = p.generateSummary(gctx, scan, findings)
			return nil
		})
	}

	// Derivations swallow their own failures, so Wait cannot return an error.
	_ = g.Wait()
	return overlay
}

// enhanceDescriptions produces improved descriptions per finding. Failures
// are per item: a finding whose generation errors or fails validation is
// left out of the map and the batch continues.
func (p *Pipeline) enhanceDescriptions(ctx context.Context, scan *schemas.Scan, findings []schemas.Finding) map[string]string {
	var mu sync.Mutex
	results := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for _, f := range findings {
		f := f
		g.Go(func() error {
			text, err := p.generateOne(gctx, descriptionSystemPrompt, buildDescriptionPrompt(scan, f))
			if err != nil {
				p.logger.Debug("Description enhancement skipped",
					zap.String("finding_id", f.ID), zap.Error(err))
				return nil
			}
			if err := validateDescription(text); err != nil {
				p.logger.Debug("Description enhancement rejected",
					zap.String("finding_id", f.ID), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[f.ID] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("Description enhancement batch finished",
		zap.Int("findings", len(findings)), zap.Int("enhanced", len(results)))
	return results
}

// enhanceRemediations follows the same per-item discipline as descriptions.
// Findings without original remediation text are skipped outright: there is
// nothing to enhance.
func (p *Pipeline) enhanceRemediations(ctx context.Context, scan *schemas.Scan, findings []schemas.Finding) map[string]string {
	var mu sync.Mutex
	results := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for _, f := range findings {
		if f.Remediation == "" {
			continue
		}
		f := f
		g.Go(func() error {
			text, err := p.generateOne(gctx, remediationSystemPrompt, buildRemediationPrompt(scan, f))
			if err != nil {
				p.logger.Debug("Remediation enhancement skipped",
					zap.String("finding_id", f.ID), zap.Error(err))
				return nil
			}
			if err := validateRemediation(text); err != nil {
				p.logger.Debug("Remediation enhancement rejected",
					zap.String("finding_id", f.ID), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[f.ID] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("Remediation enhancement batch finished",
		zap.Int("findings", len(findings)), zap.Int("enhanced", len(results)))
	return results
}

// generateSummary is a single derivation over the aggregate finding set.
func (p *Pipeline) generateSummary(ctx context.Context, scan *schemas.Scan, findings []schemas.Finding) string {
	text, err := p.generateOne(ctx, summarySystemPrompt, buildSummaryPrompt(scan, findings))
	if err != nil {
		p.logger.Debug("Summary generation skipped", zap.Error(err))
		return ""
	}
	if err := validateSummary(text); err != nil {
		p.logger.Debug("Summary generation rejected", zap.Error(err))
		return ""
	}
	return text
}

// generateOne issues one rate-limited provider call and returns the
// whitespace-normalized completion.
func (p *Pipeline) generateOne(ctx context.Context, system, user string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	text, err := p.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Options: schemas.GenerationOptions{
			Temperature: p.temperature,
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
