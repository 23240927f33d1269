package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneFlowContract = `# Scene contract

## SceneFlow
- ` + "`scenes_ready` :: `SceneTransitionScenesReady`" + `
### SOFT
- ` + "`fade` :: `Fade...complete`" + `
### Order
- ` + "`transition` :: `Acquire token='flow.scene_transition'` -> `Release token='flow.scene_transition'`" + `
`

const bootChecklist = `# QA
## Evidence Checklist
- **Boot → Menu (startup)**
  - ` + "`MenuScene`" + `
`

// numbered returns an n-line log with content placed at 1-based positions.
func numbered(n int, at map[int]string) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := at[i]; ok {
			sb.WriteString(s)
		} else {
			fmt.Fprintf(&sb, "[Tick] frame %d", i)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeInputs(t *testing.T, spec, log string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.md")
	logPath := filepath.Join(dir, "run.log")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0644))
	require.NoError(t, os.WriteFile(logPath, []byte(log), 0644))
	return specPath, logPath
}

func TestSceneFlowContractPasses(t *testing.T) {
	log := numbered(45, map[int]string{
		5:  "[Gate] Acquire token='flow.scene_transition'",
		10: "[SceneFlow] evento SceneTransitionScenesReady recebido (@ 2.5s)",
		40: "[Gate] Release token='flow.scene_transition'",
	})

	res := New().RunText(sceneFlowContract, log)

	assert.Equal(t, StatusPass, res.Status, res.Diagnostics)
	require.Len(t, res.Blocks, 1)
	blk := res.Blocks[0]
	assert.Equal(t, "SceneFlow", blk.Name)
	assert.Equal(t, StatusPass, blk.Status)
	assert.Empty(t, blk.MissingHard())
	assert.Empty(t, blk.Violations)

	require.Len(t, blk.Evidence, 2)
	assert.Equal(t, 10, blk.Evidence[0].LineNumber)

	// The soft miss is reported but does not fail the block.
	require.Len(t, blk.MissingSoft(), 1)
	assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "diagnostic only")
	assert.Equal(t, 45, res.LogLineCount)
	assert.NoError(t, res.Err())
}

func TestChecklistMissingEvidenceFails(t *testing.T) {
	res := New().RunText(bootChecklist, "[Boot] starting\n[Boot] done\n")

	assert.Equal(t, StatusFail, res.Status)
	require.Len(t, res.Blocks, 1)
	blk := res.Blocks[0]
	assert.Equal(t, "Boot → Menu (startup)", blk.Name)
	assert.Equal(t, StatusFail, blk.Status)
	require.Len(t, blk.MissingHard(), 1)
	assert.Equal(t, "MenuScene", blk.MissingHard()[0].Assertion.Key)
	assert.Nil(t, blk.MissingHard()[0].Hint, "checklist documents get no hints")
	assert.Equal(t, 1, res.MissingHardCount())
	assert.True(t, errors.Is(res.Err(), ErrEvidenceMissing))
}

func TestPauseTokenLeakFails(t *testing.T) {
	log := `Acquire token='state.pause'
Acquire token='state.pause'
Release token='state.pause'
Acquire token='state.pause'
Release token='state.pause'
[SceneFlow] SceneTransitionScenesReady
`
	spec := "## SceneFlow\n- `ready` :: `SceneTransitionScenesReady`\n"

	res := New().RunText(spec, log)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, StatusPass, res.Blocks[0].Status)

	bad := res.ImbalancedTokens()
	require.Len(t, bad, 1)
	assert.Equal(t, "state.pause", bad[0].Name)
	assert.Equal(t, 3, bad[0].Acquire)
	assert.Equal(t, 2, bad[0].Release)

	joined := strings.Join(res.Diagnostics, "\n")
	assert.Contains(t, joined, "state.pause")
	assert.Contains(t, joined, "acquire=3")
	assert.Contains(t, joined, "release=2")
	assert.True(t, errors.Is(res.Err(), ErrResourceLeak))
}

func TestOrderViolationFailsBlock(t *testing.T) {
	log := numbered(10, map[int]string{
		3: "[SceneFlow] SceneTransitionScenesReady",
		4: "[Gate] Release token='flow.scene_transition'",
		8: "[Gate] Acquire token='flow.scene_transition'",
	})

	res := New().RunText(sceneFlowContract, log)
	assert.Equal(t, StatusFail, res.Status)
	blk := res.Blocks[0]
	assert.Equal(t, StatusFail, blk.Status)
	require.Len(t, blk.Violations, 2)
	assert.Contains(t, blk.Violations[0], `"transition"`)
	assert.Contains(t, blk.Violations[0], "Acquire token='flow.scene_transition'")
	assert.Contains(t, blk.Violations[0], "Release token='flow.scene_transition'")
	assert.Equal(t, 2, res.ViolationCount())
	assert.True(t, errors.Is(res.Err(), ErrOrderViolation))
}

func TestUnexercisedOrderRuleIsDiagnosticOnly(t *testing.T) {
	log := "[SceneFlow] SceneTransitionScenesReady\n[UI] Fade out complete\n"

	res := New().RunText(sceneFlowContract, log)
	assert.Equal(t, StatusPass, res.Status)
	blk := res.Blocks[0]
	require.Len(t, blk.Unexercised(), 1)
	assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "not exercised")
}

func TestZeroRulesIsInconclusive(t *testing.T) {
	for name, spec := range map[string]string{
		"blank":       "",
		"prose only":  "# Notes\nnothing here\n",
		"empty block": "## SceneFlow\n### Notes\n- `x` :: `y`\n",
	} {
		t.Run(name, func(t *testing.T) {
			res := New().RunText(spec, "Acquire token='leak'\n")
			assert.Equal(t, StatusInconclusive, res.Status)
			assert.True(t, errors.Is(res.Err(), ErrNoRules))
			// The token check still ran.
			require.Len(t, res.ImbalancedTokens(), 1)
		})
	}
}

func TestGlobalInvariants(t *testing.T) {
	spec := "## SceneFlow\n- `ready` :: `Ready`\n## Global Invariants\n- `boot` :: `Boot complete`\n"

	res := New().RunText(spec, "Ready\n")
	assert.Equal(t, StatusFail, res.Status)
	require.NotNil(t, res.Global)
	assert.Equal(t, "Global Invariants", res.Global.Name)
	assert.Equal(t, StatusFail, res.Global.Status)
	assert.Equal(t, StatusPass, res.Blocks[0].Status)
	assert.Contains(t, res.Summary, "global invariants fail")
}

func TestMissingInputsAreInconclusive(t *testing.T) {
	dir := t.TempDir()
	specPath, logPath := writeInputs(t, sceneFlowContract, "SceneTransitionScenesReady\n")

	t.Run("spec", func(t *testing.T) {
		res := New().Run(filepath.Join(dir, "absent.md"), logPath)
		assert.Equal(t, StatusInconclusive, res.Status)
		assert.True(t, errors.Is(res.Err(), ErrInputMissing))
	})
	t.Run("log", func(t *testing.T) {
		res := New().Run(specPath, filepath.Join(dir, "absent.log"))
		assert.Equal(t, StatusInconclusive, res.Status)
		assert.True(t, errors.Is(res.Err(), ErrInputMissing))
		assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "log document missing")
	})
}

func TestHintsForContractDialect(t *testing.T) {
	spec := "## Menu\n- `menu` :: `MenuScene:loaded`\n"

	res := New().RunText(spec, "[Menu] MenuSceneLoader waiting\n")
	assert.Equal(t, StatusFail, res.Status)
	missing := res.Blocks[0].MissingHard()
	require.Len(t, missing, 1)
	require.NotNil(t, missing[0].Hint)
	assert.Equal(t, 1, missing[0].Hint.LineNumber)
	assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "low-confidence hint")
}

func TestInvokeWritesReport(t *testing.T) {
	specPath, logPath := writeInputs(t, sceneFlowContract, numbered(3, map[int]string{
		1: "Acquire token='flow.scene_transition'",
		2: "SceneTransitionScenesReady",
		3: "Release token='flow.scene_transition'",
	}))
	out := filepath.Join(t.TempDir(), "reports", "run.json")

	jsonWriter := ReportWriterFunc(func(path string, r *Result) error {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	})

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res, ok := New(WithClock(func() time.Time { return fixed }), WithReportWriter(jsonWriter)).Invoke(specPath, logPath, out)
	require.True(t, ok)
	assert.Equal(t, StatusPass, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, fixed, res.StartedAt)
	assert.Equal(t, out, res.OutputPath)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pass", decoded["status"])
	assert.Equal(t, res.RunID, decoded["run_id"])
}

func TestInvokeWriteFailureKeepsResult(t *testing.T) {
	specPath, logPath := writeInputs(t, bootChecklist, "MenuScene\n")
	failing := ReportWriterFunc(func(string, *Result) error { return errors.New("disk full") })

	res, ok := New(WithReportWriter(failing)).Invoke(specPath, logPath, "/unused/out.json")
	assert.False(t, ok)
	require.NotNil(t, res)
	assert.Equal(t, StatusPass, res.Status)
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, res.OutputPath, "no report exists at the requested path")

	res, ok = New().Invoke(specPath, logPath, "/unused/out.json")
	assert.False(t, ok)
	assert.Equal(t, StatusPass, res.Status)
	assert.Empty(t, res.OutputPath)

	res, ok = New().Invoke(specPath, logPath, "")
	assert.True(t, ok)
	assert.Empty(t, res.OutputPath)
}

func TestProseBulletsAreNotEvidence(t *testing.T) {
	spec := "## SceneFlow\n" +
		"- This domain covers the `Boot` scene handoff.\n" +
		"- `ready` :: `SceneTransitionScenesReady`\n" +
		"- plain prose note\n"

	res := New().RunText(spec, "[Flow] SceneTransitionScenesReady recebido\n")
	assert.Equal(t, StatusPass, res.Status)
	assert.Equal(t, 1, res.RuleCount)
	assert.Empty(t, res.Diagnostics)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("fail")
	require.NoError(t, err)
	assert.Equal(t, StatusFail, s)

	_, err = ParseStatus("FAILED")
	assert.Error(t, err)
}
