package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPattern(t *testing.T) {
	setupWorkspace(t)
	patternLines = []string{`[Scene] Acquire token="flow"`, "Release token='flow'"}
	defer func() { patternLines = nil }()

	cmd, buf := newTestCmd()
	require.NoError(t, runPattern(cmd, []string{"Acquire token='flow'"}))

	out := buf.String()
	assert.Contains(t, out, `"Acquire token='flow'" => (?is)`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "match")
	assert.NotContains(t, lines[1], "no match")
	assert.Contains(t, lines[2], "no match")
}

func TestRunFactsStdoutAndFile(t *testing.T) {
	ws := setupWorkspace(t)
	logPath = "fail.log"

	cmd, buf := newTestCmd()
	require.NoError(t, runFacts(cmd, nil))
	assert.Contains(t, buf.String(), "run_status(/fail).")
	assert.Contains(t, buf.String(), `log_line(1, "Release token='flow'").`)

	factsOut = "run.mg"
	defer func() { factsOut = "" }()
	cmd, buf = newTestCmd()
	require.NoError(t, runFacts(cmd, nil))
	assert.Contains(t, buf.String(), "Wrote")

	data, err := os.ReadFile(filepath.Join(ws, "run.mg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `block_status("SceneFlow", /fail).`)
}

func TestRunQuery(t *testing.T) {
	ws := setupWorkspace(t)
	logPath = "fail.log"
	writeFile(t, filepath.Join(ws, "extra.mg"), `leaky_block(B) :- failed_block(B), leaked_token(_, _, _).`)

	defer func() { queryPredicate, rulesPath, listPredicates = "", "", false }()

	cmd, buf := newTestCmd()
	queryPredicate = "missing_hard"
	require.NoError(t, runQuery(cmd, nil))
	assert.Contains(t, buf.String(), `missing_hard("SceneFlow", "ready").`)

	cmd, buf = newTestCmd()
	queryPredicate, rulesPath = "leaky_block", "extra.mg"
	require.NoError(t, runQuery(cmd, nil))
	assert.Contains(t, buf.String(), `leaky_block("SceneFlow").`)

	cmd, buf = newTestCmd()
	queryPredicate, rulesPath, listPredicates = "", "", true
	require.NoError(t, runQuery(cmd, nil))
	assert.Contains(t, buf.String(), "unexercised_rule")

	cmd, _ = newTestCmd()
	listPredicates = false
	assert.Error(t, runQuery(cmd, nil))
}

func TestRunQueryNoFacts(t *testing.T) {
	setupWorkspace(t)
	queryPredicate = "leaked_token"
	defer func() { queryPredicate = "" }()

	cmd, buf := newTestCmd()
	require.NoError(t, runQuery(cmd, nil))
	assert.Contains(t, buf.String(), "No facts found")
}

func TestRunSuite(t *testing.T) {
	ws := setupWorkspace(t)
	writeFile(t, filepath.Join(ws, ".logcontract", "suite.yaml"), `version: 1
cases:
  - id: good
    spec: ../spec.md
    log: ../pass.log
  - id: bad
    spec: ../spec.md
    log: ../fail.log
    expect: fail
`)

	cmd, buf := newTestCmd()
	require.NoError(t, runSuite(cmd, nil))
	assert.Contains(t, buf.String(), "2/2 invocations matched expectations")

	writeFile(t, filepath.Join(ws, "strict.yaml"), `cases:
  - {id: bad, spec: spec.md, log: fail.log}
`)
	cmd, buf = newTestCmd()
	assert.Equal(t, exitFail, exitCode(runSuite(cmd, []string{"strict.yaml"})))
	assert.Contains(t, buf.String(), "MISMATCH")

	cmd, _ = newTestCmd()
	assert.Error(t, runSuite(cmd, []string{"absent.yaml"}))
}

func TestRunHistory(t *testing.T) {
	setupWorkspace(t)
	defer func() { historyStatus, historyJSON = "", false }()

	cmd, buf := newTestCmd()
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, buf.String(), "No runs recorded.")

	cmd, _ = newTestCmd()
	require.NoError(t, runVerify(cmd, nil))
	logPath = "fail.log"
	_ = runVerify(cmd, nil)

	cmd, buf = newTestCmd()
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, buf.String(), "pass=1 fail=1 inconclusive=0")

	historyStatus, historyJSON = "fail", true
	cmd, buf = newTestCmd()
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, buf.String(), `"status": "fail"`)
	assert.NotContains(t, buf.String(), `"status": "pass"`)

	historyStatus = "bogus"
	cmd, _ = newTestCmd()
	assert.Error(t, runHistory(cmd, nil))

	historyStatus, historyJSON = "", false
	cmd, _ = newTestCmd()
	assert.Error(t, runHistory(cmd, []string{"no-such-run"}))

	cfg.History.Enabled = false
	cmd, _ = newTestCmd()
	assert.Error(t, runHistory(cmd, nil))
}

func TestWatchHandlerRunsFullVerification(t *testing.T) {
	ws := setupWorkspace(t)
	v, err := newVerifier("")
	require.NoError(t, err)

	out := filepath.Join(ws, "watch.report.md")
	cmd, buf := newTestCmd()
	handler := watchHandler(cmd, v, filepath.Join(ws, "spec.md"), out)

	handler(context.Background(), filepath.Join(ws, "pass.log"))
	assert.Contains(t, buf.String(), "PASS")
	assert.FileExists(t, out)

	handler(context.Background(), filepath.Join(ws, "fail.log"))
	assert.Contains(t, buf.String(), "FAIL")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**Status:** FAIL")
}
