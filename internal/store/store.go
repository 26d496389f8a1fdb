package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides a PostgreSQL implementation of schemas.Store. Scans and
// findings are written by the analysis engine; this side only reads them,
// except for the lifecycle manager's conditional status update.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// GetScan loads a single scan row, including its engine settings blob.
func (s *Store) GetScan(ctx context.Context, scanID string) (*schemas.Scan, error) {
	query := `
        SELECT id, owner_id, kind, target, status, settings, created_at, completed_at, error_message
        FROM scans
        WHERE id = $1;
    `
	var (
		scan        schemas.Scan
		statusStr   string
		kindStr     string
		settingsRaw []byte
		completedAt *time.Time
		errMsg      *string
	)
	err := s.pool.QueryRow(ctx, query, scanID).Scan(
		&scan.ID, &scan.OwnerID, &kindStr, &scan.Target, &statusStr,
		&settingsRaw, &scan.CreatedAt, &completedAt, &errMsg,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, schemas.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan %s: %w", scanID, err)
	}

	scan.Kind = schemas.ScanKind(kindStr)
	scan.Status = schemas.ScanStatus(statusStr)
	scan.CompletedAt = completedAt
	if errMsg != nil {
		scan.Error = *errMsg
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &scan.Settings); err != nil {
			// A malformed settings blob should not make the scan unreadable.
			s.log.Warn("Failed to decode scan settings, continuing without them",
				zap.String("scan_id", scanID), zap.Error(err))
		}
	}

	return &scan, nil
}

// GetFindingsByScanID returns the scan's findings in observation order. The
// report pipeline relies on this order and never re-sorts.
func (s *Store) GetFindingsByScanID(ctx context.Context, scanID string) ([]schemas.Finding, error) {
	query := `
        SELECT id, observed_at, name, severity, description, cvss_score, cvss_vector, cwe, evidence, remediation
        FROM findings
        WHERE scan_id = $1
        ORDER BY observed_at ASC;
    `
	rows, err := s.pool.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []schemas.Finding
	for rows.Next() {
		var (
			f           schemas.Finding
			severityStr string
			cvssScore   *float64
			cvssVector  *string
			remediation *string
		)
		err := rows.Scan(
			&f.ID, &f.ObservedAt, &f.Name, &severityStr, &f.Description,
			&cvssScore, &cvssVector, &f.CWE, &f.Evidence, &remediation,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}

		f.Severity = schemas.Severity(severityStr)
		f.ScanID = scanID
		if cvssScore != nil {
			f.CVSSScore = *cvssScore
		}
		if cvssVector != nil {
			f.CVSSVector = *cvssVector
		}
		if remediation != nil {
			f.Remediation = *remediation
		}
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return findings, nil
}

// UpdateScanStatus performs the compare-and-swap the lifecycle manager builds
// on: the row is updated only when its stored status still equals from. The
// completion timestamp and error message are attached in the same statement
// so a transition is observed whole or not at all.
func (s *Store) UpdateScanStatus(ctx context.Context, scanID string, from, to schemas.ScanStatus, errMsg string) (bool, error) {
	query := `
        UPDATE scans
        SET status = $3,
            completed_at = CASE WHEN $3 IN ('completed', 'stopped') THEN now() ELSE completed_at END,
            error_message = CASE WHEN $3 = 'failed' THEN $4 ELSE error_message END
        WHERE id = $1 AND status = $2;
    `
	tag, err := s.pool.Exec(ctx, query, scanID, string(from), string(to), errMsg)
	if err != nil {
		return false, fmt.Errorf("failed to update scan status: %w", err)
	}

	updated := tag.RowsAffected() == 1
	if updated {
		s.log.Info("Scan status updated",
			zap.String("scan_id", scanID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}
	return updated, nil
}
