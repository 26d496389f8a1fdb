// Package reportcache implements the at-most-one-fresh-artifact policy over
// synthesized reports. Only the default combination (PDF, baseline mode, no
// image processing) is retained: its baseline rendering is deterministic and
// worth reusing, while enhanced or alternative-format renderings depend on
// non-deterministic generated text and are recomputed per request. That
// asymmetry is deliberate policy, not an oversight.
package reportcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/store"
)

// Cache is a PostgreSQL-backed report cache keyed by scan id.
type Cache struct {
	pool store.DBPool
	log  *zap.Logger
}

// New builds a cache over the shared database pool.
func New(pool store.DBPool, logger *zap.Logger) *Cache {
	return &Cache{
		pool: pool,
		log:  logger.Named("report_cache"),
	}
}

// Lookup returns the cached artifact record for the key, or (nil, nil) on
// miss. Every key other than the single cacheable combination misses by
// design without touching the database.
func (c *Cache) Lookup(ctx context.Context, key schemas.ReportKey) (*schemas.ArtifactRecord, error) {
	if !key.Cacheable() {
		return nil, nil
	}

	query := `
        SELECT scan_id, path, created_at
        FROM report_artifacts
        WHERE scan_id = $1;
    `
	var rec schemas.ArtifactRecord
	err := c.pool.QueryRow(ctx, query, key.ScanID).Scan(&rec.ScanID, &rec.Path, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report cache: %w", err)
	}
	return &rec, nil
}

// Store upserts the record for the key's scan id. Two concurrent synthesis
// runs for the same scan may both land here; the later write silently
// replaces the earlier one, which is acceptable duplicate work, not
// corruption. Non-cacheable keys are ignored.
func (c *Cache) Store(ctx context.Context, key schemas.ReportKey, rec schemas.ArtifactRecord) error {
	if !key.Cacheable() {
		return nil
	}

	query := `
        INSERT INTO report_artifacts (scan_id, path, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (scan_id) DO UPDATE SET
            path = EXCLUDED.path,
            created_at = EXCLUDED.created_at;
    `
	if _, err := c.pool.Exec(ctx, query, rec.ScanID, rec.Path, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to store report cache entry: %w", err)
	}

	c.log.Debug("Report artifact cached",
		zap.String("scan_id", rec.ScanID), zap.String("path", rec.Path))
	return nil
}
