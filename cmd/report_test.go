package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
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

// memStore implements schemas.Store and records status updates so tests can
// assert which transitions a command persisted.
type memStore struct {
	mu       sync.Mutex
	scan     *schemas.Scan
	scanErr  error
	findings []schemas.Finding

	transitions []recordedTransition
}

type recordedTransition struct {
	from, to schemas.ScanStatus
	errMsg   string
}

func (s *memStore) GetScan(ctx context.Context, scanID string) (*schemas.Scan, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.scan, nil
}

func (s *memStore) GetFindingsByScanID(ctx context.Context, scanID string) ([]schemas.Finding, error) {
	return s.findings, nil
}

func (s *memStore) UpdateScanStatus(ctx context.Context, scanID string, from, to schemas.ScanStatus, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, recordedTransition{from: from, to: to, errMsg: errMsg})
	return true, nil
}

// nullCache never hits and never stores; command tests exercise the fresh
// synthesis path only.
type nullCache struct{}

func (nullCache) Lookup(ctx context.Context, key schemas.ReportKey) (*schemas.ArtifactRecord, error) {
	return nil, nil
}

func (nullCache) Store(ctx context.Context, key schemas.ReportKey, rec schemas.ArtifactRecord) error {
	return nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: make(map[string][]byte)} }

func (s *memBlobs) Write(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := "blob"
	s.blobs[path] = append([]byte(nil), data...)
	return path, nil
}

func (s *memBlobs) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[path]
	return ok
}

func (s *memBlobs) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[path], nil
}

// scriptedEngine replays a fixed status sequence, repeating the last entry
// once exhausted.
type scriptedEngine struct {
	mu       sync.Mutex
	statuses []string
	calls    int
}

func (e *scriptedEngine) JobStatus(ctx context.Context, scanID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := e.statuses[len(e.statuses)-1]
	if e.calls < len(e.statuses) {
		status = e.statuses[e.calls]
	}
	e.calls++
	return status, nil
}

// -- Harness --

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SetPollerInterval(time.Millisecond)
	cfg.SetPollerMaxAttempts(5)
	return cfg
}

// staticProvider hands every command the same pre-assembled service.
func staticProvider(svc *service.Service) serviceProvider {
	return func(ctx context.Context, cfg config.Interface) (*service.Service, func(), error) {
		return svc, func() {}, nil
	}
}

func newCommandService(t *testing.T, store *memStore, engine *scriptedEngine) *service.Service {
	t.Helper()
	cfg := testConfig()
	setConfigForTest(cfg)
	return service.New(store, nullCache{}, newMemBlobs(), engine, cfg, zap.NewNop())
}

func completedScan() *schemas.Scan {
	return &schemas.Scan{
		ID:      "scan-1",
		OwnerID: "owner-1",
		Kind:    schemas.ScanKindWeb,
		Target:  "https://example.test",
		Status:  schemas.StatusCompleted,
	}
}

// -- Report command --

func TestReportCmd_WritesArtifact(t *testing.T) {
	store := &memStore{
		scan: completedScan(),
		findings: []schemas.Finding{
			{ID: "f-1", Name: "SQL Injection", Severity: schemas.SeverityCritical, Description: "d"},
		},
	}
	svc := newCommandService(t, store, nil)

	outputPath := filepath.Join(t.TempDir(), "report.pdf")
	cmd := newReportCmd(staticProvider(svc))
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--scan-id", "scan-1", "--owner", "owner-1", "-o", outputPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Report written to "+outputPath)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "missing PDF magic")
}

func TestReportCmd_UnfinishedScan(t *testing.T) {
	store := &memStore{scan: &schemas.Scan{ID: "scan-1", Status: schemas.StatusRunning}}
	svc := newCommandService(t, store, nil)

	cmd := newReportCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not finished")
}

func TestReportCmd_WrongOwner(t *testing.T) {
	store := &memStore{scan: completedScan()}
	svc := newCommandService(t, store, nil)

	cmd := newReportCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1", "--owner", "intruder"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to a different owner")
}

func TestReportCmd_UnknownScan(t *testing.T) {
	store := &memStore{scanErr: schemas.ErrNotFound}
	svc := newCommandService(t, store, nil)

	cmd := newReportCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan missing not found")
}

func TestReportCmd_RejectsUnknownFormatBeforeProviderRuns(t *testing.T) {
	setConfigForTest(testConfig())
	providerRan := false
	provider := serviceProvider(func(ctx context.Context, cfg config.Interface) (*service.Service, func(), error) {
		providerRan = true
		return nil, func() {}, nil
	})

	cmd := newReportCmd(provider)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1", "--format", "html"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "html"`)
	assert.False(t, providerRan, "flag validation must precede service assembly")
}

func TestReportCmd_RejectsUnknownMode(t *testing.T) {
	setConfigForTest(testConfig())

	cmd := newReportCmd(staticProvider(nil))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1", "--mode", "turbo"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported mode "turbo"`)
}

func TestReportCmd_RequiresScanID(t *testing.T) {
	cmd := newReportCmd(staticProvider(nil))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan-id")
}
