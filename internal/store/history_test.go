package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logcontract/internal/verify"
)

func openTemp(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	run := Run{
		ID: "run-1", StartedAt: started, Duration: 1500 * time.Millisecond,
		SpecPath: "spec.md", LogPath: "run.log", Dialect: "contract",
		Status: verify.StatusFail, RuleCount: 4, LogLines: 120, MissingHard: 1,
		Summary: "FAIL", Diagnostics: []string{"[SceneFlow] missing hard evidence"},
	}
	require.NoError(t, s.RecordRun(run))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, started.Equal(got.StartedAt))
	got.StartedAt = started
	assert.Equal(t, run, *got)

	missing, err := s.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordRequiresID(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.RecordRun(Run{Status: verify.StatusPass}))
}

func TestListRunsOrderLimitStatus(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	statuses := []verify.Status{verify.StatusPass, verify.StatusFail, verify.StatusPass, verify.StatusInconclusive}
	for i, st := range statuses {
		require.NoError(t, s.RecordRun(Run{
			ID: string(rune('a' + i)), StartedAt: base.Add(time.Duration(i) * time.Hour),
			SpecPath: "s", LogPath: "l", Status: st,
		}))
	}

	all, err := s.ListRuns(0, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "newest first")

	limited, err := s.ListRuns(2, "")
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	passes, err := s.ListRuns(0, verify.StatusPass)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, "c", passes[0].ID)

	counts, err := s.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[verify.Status]int{
		verify.StatusPass: 2, verify.StatusFail: 1, verify.StatusInconclusive: 1,
	}, counts)
}

func TestRecordResult(t *testing.T) {
	s := openTemp(t)
	res := verify.New().RunText("## Boot\n- `boot` :: `Boot complete`\n", "Acquire token='x'\n")

	require.NoError(t, s.RecordResult(res))
	got, err := s.GetRun(res.RunID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, verify.StatusFail, got.Status)
	assert.Equal(t, 1, got.MissingHard)
	assert.Equal(t, 1, got.ImbalancedTokens)
	assert.Equal(t, res.Diagnostics, got.Diagnostics)
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(Run{ID: "keep", StartedAt: time.Now(), SpecPath: "s", LogPath: "l", Status: verify.StatusPass}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	runs, err := s.ListRuns(10, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "keep", runs[0].ID)
}
