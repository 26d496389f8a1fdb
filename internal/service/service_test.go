package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
	"github.com/halcyonsec/vantage/internal/service"
)

// -- Fakes --

type fakeStore struct {
	scan     *schemas.Scan
	scanErr  error
	findings []schemas.Finding
}

func (f *fakeStore) GetScan(ctx context.Context, scanID string) (*schemas.Scan, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.scan, nil
}

func (f *fakeStore) GetFindingsByScanID(ctx context.Context, scanID string) ([]schemas.Finding, error) {
	return f.findings, nil
}

func (f *fakeStore) UpdateScanStatus(ctx context.Context, scanID string, from, to schemas.ScanStatus, errMsg string) (bool, error) {
	return true, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]schemas.ArtifactRecord
	stores  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]schemas.ArtifactRecord)}
}

func (c *memCache) Lookup(ctx context.Context, key schemas.ReportKey) (*schemas.ArtifactRecord, error) {
	if !key.Cacheable() {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[key.ScanID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *memCache) Store(ctx context.Context, key schemas.ReportKey, rec schemas.ArtifactRecord) error {
	if !key.Cacheable() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.ScanID] = rec
	c.stores++
	return nil
}

type memStorage struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	writes int
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Write(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	path := fmt.Sprintf("blob-%d", s.writes)
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[path] = cp
	return path, nil
}

func (s *memStorage) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[path]
	return ok
}

func (s *memStorage) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[path], nil
}

type fakeEngine struct{ status string }

func (f *fakeEngine) JobStatus(ctx context.Context, scanID string) (string, error) {
	return f.status, nil
}

type fakeLLM struct {
	generate func(ctx context.Context, req schemas.GenerationRequest) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	return f.generate(ctx, req)
}

func (f *fakeLLM) Close() error { return nil }

// -- Fixtures --

func completedScan() *schemas.Scan {
	return &schemas.Scan{
		ID:      "scan-1",
		OwnerID: "owner-1",
		Kind:    schemas.ScanKindWeb,
		Target:  "https://example.test",
		Status:  schemas.StatusCompleted,
	}
}

func testFindings() []schemas.Finding {
	return []schemas.Finding{
		{ID: "f-1", Name: "SQL Injection", Severity: schemas.SeverityCritical,
			Description: "original description", Remediation: "original remediation"},
	}
}

// docText extracts word/document.xml from a docx artifact.
func docText(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		return string(content)
	}
	t.Fatal("word/document.xml not found in artifact")
	return ""
}

type deps struct {
	store   *fakeStore
	cache   *memCache
	storage *memStorage
}

func newService(t *testing.T, d deps, opts ...service.Option) *service.Service {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetPollerInterval(time.Millisecond)
	cfg.SetPollerMaxAttempts(5)
	return service.New(d.store, d.cache, d.storage, &fakeEngine{status: "completed"}, cfg, zap.NewNop(), opts...)
}

// -- Report path --

func TestGetOrCreateReport_RejectsUnfinishedScan(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: &schemas.Scan{ID: "scan-1", Status: schemas.StatusRunning}},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	_, err := svc.GetOrCreateReport(context.Background(), "", "scan-1")
	require.ErrorIs(t, err, schemas.ErrNotReady)
	assert.Zero(t, d.storage.writes, "nothing may be synthesized for an unfinished scan")
}

func TestGetOrCreateReport_Forbidden(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	_, err := svc.GetOrCreateReport(context.Background(), "intruder", "scan-1")
	require.ErrorIs(t, err, schemas.ErrForbidden)
}

func TestGetOrCreateReport_CachesDefaultKey(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan(), findings: testFindings()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	first, err := svc.GetOrCreateReport(context.Background(), "owner-1", "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", first.ContentType)
	assert.Equal(t, 1, d.storage.writes)
	assert.Equal(t, 1, d.cache.stores)

	// The second request is served byte-identically from the cache.
	second, err := svc.GetOrCreateReport(context.Background(), "owner-1", "scan-1")
	require.NoError(t, err)
	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, 1, d.storage.writes, "cache hit must not re-synthesize")
}

func TestGetOrCreateReport_ResynthesizesWhenArtifactMissing(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan(), findings: testFindings()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	_, err := svc.GetOrCreateReport(context.Background(), "owner-1", "scan-1")
	require.NoError(t, err)

	// Simulate artifact loss behind a live cache entry.
	d.storage.mu.Lock()
	d.storage.blobs = make(map[string][]byte)
	d.storage.mu.Unlock()

	_, err = svc.GetOrCreateReport(context.Background(), "owner-1", "scan-1")
	require.NoError(t, err)
	assert.Equal(t, 2, d.storage.writes)
}

func TestDownloadReport_NonDefaultKeysAreNotCached(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan(), findings: testFindings()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	artifact, err := svc.DownloadReport(context.Background(), "owner-1", "scan-1",
		schemas.FormatDOCX, schemas.ModeBaseline, false)
	require.NoError(t, err)
	assert.Contains(t, artifact.ContentType, "wordprocessingml")
	assert.Zero(t, d.cache.stores)
	assert.Zero(t, d.storage.writes)
}

func TestDownloadReport_LLMModeSurvivesProviderOutage(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan(), findings: testFindings()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d, service.WithClientFactory(
		func(config.ProviderConfig, *zap.Logger) (schemas.LLMClient, error) {
			return nil, schemas.ErrProviderUnavailable
		}))

	artifact, err := svc.DownloadReport(context.Background(), "owner-1", "scan-1",
		schemas.FormatDOCX, schemas.ModeLLM, false)
	require.NoError(t, err, "provider outage must not block artifact delivery")
	assert.NotEmpty(t, artifact.Bytes)
	assert.Contains(t, docText(t, artifact.Bytes), "original description")
}

func TestDownloadReport_LLMModeAppliesOverlay(t *testing.T) {
	enhanced := strings.Repeat("The attacker can read arbitrary rows. ", 3)
	d := deps{
		store:   &fakeStore{scan: completedScan(), findings: testFindings()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d, service.WithClientFactory(
		func(config.ProviderConfig, *zap.Logger) (schemas.LLMClient, error) {
			return &fakeLLM{generate: func(context.Context, schemas.GenerationRequest) (string, error) {
				return enhanced, nil
			}}, nil
		}))

	artifact, err := svc.DownloadReport(context.Background(), "owner-1", "scan-1",
		schemas.FormatDOCX, schemas.ModeLLM, false)
	require.NoError(t, err)
	assert.Contains(t, docText(t, artifact.Bytes), strings.TrimSpace(enhanced))
}

func TestGetOrCreateReport_UnknownScan(t *testing.T) {
	d := deps{
		store:   &fakeStore{scanErr: schemas.ErrNotFound},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	_, err := svc.GetOrCreateReport(context.Background(), "", "missing")
	require.ErrorIs(t, err, schemas.ErrNotFound)
}

// -- Capabilities and tracking --

func TestCheckCapabilities(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: completedScan()},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	snap := svc.CheckCapabilities()
	assert.False(t, snap.ProviderConfigured)
}

func TestStartTracking(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: &schemas.Scan{ID: "scan-1", OwnerID: "owner-1", Status: schemas.StatusRunning}},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	session, err := svc.StartTracking(context.Background(), "owner-1", "scan-1")
	require.NoError(t, err)

	var last schemas.TrackingUpdate
	for u := range session.Updates() {
		last = u
	}
	require.NoError(t, session.Err())
	assert.Equal(t, 100, last.Progress)
}

func TestStartTracking_Forbidden(t *testing.T) {
	d := deps{
		store:   &fakeStore{scan: &schemas.Scan{ID: "scan-1", OwnerID: "owner-1", Status: schemas.StatusRunning}},
		cache:   newMemCache(),
		storage: newMemStorage(),
	}
	svc := newService(t, d)

	_, err := svc.StartTracking(context.Background(), "intruder", "scan-1")
	require.ErrorIs(t, err, schemas.ErrForbidden)
}
