package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonsec/vantage/api/schemas"
)

func runningScan() *schemas.Scan {
	return &schemas.Scan{
		ID:      "scan-1",
		OwnerID: "owner-1",
		Kind:    schemas.ScanKindWeb,
		Target:  "https://example.test",
		Status:  schemas.StatusRunning,
	}
}

func TestTrackCmd_RecordsCompletion(t *testing.T) {
	store := &memStore{scan: runningScan()}
	engine := &scriptedEngine{statuses: []string{"crawling", "completed"}}
	svc := newCommandService(t, store, engine)

	cmd := newTrackCmd(staticProvider(svc))
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--scan-id", "scan-1", "--owner", "owner-1"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "[100%] completed")
	assert.Contains(t, out.String(), "Analysis finished.")

	// The observed terminal outcome is persisted through the lifecycle.
	require.Len(t, store.transitions, 1)
	assert.Equal(t, schemas.StatusRunning, store.transitions[0].from)
	assert.Equal(t, schemas.StatusCompleted, store.transitions[0].to)
}

func TestTrackCmd_RecordsStop(t *testing.T) {
	store := &memStore{scan: runningScan()}
	engine := &scriptedEngine{statuses: []string{"stopped"}}
	svc := newCommandService(t, store, engine)

	cmd := newTrackCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1"})

	require.NoError(t, cmd.Execute())
	require.Len(t, store.transitions, 1)
	assert.Equal(t, schemas.StatusStopped, store.transitions[0].to)
}

func TestTrackCmd_RecordsEngineFailure(t *testing.T) {
	store := &memStore{scan: runningScan()}
	engine := &scriptedEngine{statuses: []string{"auditing", "failed"}}
	svc := newCommandService(t, store, engine)

	cmd := newTrackCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan scan-1 failed during analysis")

	require.Len(t, store.transitions, 1)
	assert.Equal(t, schemas.StatusFailed, store.transitions[0].to)
	assert.NotEmpty(t, store.transitions[0].errMsg, "failed transitions carry an error message")
}

func TestTrackCmd_BudgetExhaustedRecordsNothing(t *testing.T) {
	store := &memStore{scan: runningScan()}
	engine := &scriptedEngine{statuses: []string{"crawling"}}
	svc := newCommandService(t, store, engine)

	cmd := newTrackCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "scan-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polling budget exhausted")
	assert.Empty(t, store.transitions, "a timed-out track must not move the scan")
}

func TestTrackCmd_UnknownScan(t *testing.T) {
	store := &memStore{scanErr: schemas.ErrNotFound}
	svc := newCommandService(t, store, &scriptedEngine{statuses: []string{"completed"}})

	cmd := newTrackCmd(staticProvider(svc))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--scan-id", "missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan missing not found")
}
