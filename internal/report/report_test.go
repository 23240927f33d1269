package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logcontract/internal/verify"
)

const spec = "## SceneFlow\n" +
	"- `ready` :: `SceneTransitionScenesReady`\n" +
	"- `menu` :: `MenuScene:loaded`\n" +
	"### SOFT\n" +
	"- `fade` :: `Fade...complete`\n" +
	"### Order\n" +
	"- `transition` :: `Acquire token='flow.scene_transition'` -> `Release token='flow.scene_transition'`\n" +
	"- `pause` :: `Pause begin` -> `Pause end`\n"

const runLog = "[SceneFlow] SceneTransitionScenesReady\n" +
	"[Menu] MenuSceneLoader waiting\n" +
	"[Gate] Release token='flow.scene_transition'\n" +
	"[Pause] Acquire token='state.pause'\n"

func failingResult() *verify.Result {
	return verify.New().RunText(spec, runLog)
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(failingResult())

	for _, want := range []string{
		"# Log Evidence Report",
		"**Status:** FAIL",
		"| Dialect | contract |",
		"## Blocks",
		"| SceneFlow | **FAIL** |",
		"## SceneFlow (FAIL)",
		"### Missing hard evidence",
		"- `menu`: `MenuScene:loaded`",
		"hint (low confidence): line 2 mentions `MenuScene`",
		"### Missing soft evidence",
		"- `fade`: `Fade...complete`",
		"### Order violations",
		"### Order rules not exercised",
		"- `pause`: `Pause begin` -> `Pause end`",
		"## Token Balance",
		"| `state.pause` | 1 | 0 | **NO** |",
		"| `flow.scene_transition` | 0 | 1 | **NO** |",
		"## Diagnostics",
		"1. ",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdownPassingRunIsCompact(t *testing.T) {
	res := verify.New().RunText("## Boot\n- `boot` :: `Boot complete`\n", "Boot complete\n")
	md := Markdown(res)

	assert.Contains(t, md, "**Status:** PASS")
	assert.Contains(t, md, "| Boot | PASS |")
	assert.NotContains(t, md, "## Boot (")
	assert.NotContains(t, md, "## Diagnostics")
	assert.NotContains(t, md, "## Token Balance")
}

func TestRenderJSON(t *testing.T) {
	res := failingResult()
	data, err := Render(res, FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Status      string   `json:"status"`
		Diagnostics []string `json:"diagnostics"`
		Blocks      []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"blocks"`
		Tokens []struct {
			Name    string `json:"name"`
			Acquire int    `json:"acquire"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "fail", decoded.Status)
	require.Len(t, decoded.Blocks, 1)
	assert.Equal(t, "SceneFlow", decoded.Blocks[0].Name)
	assert.Len(t, decoded.Tokens, 2)
	assert.Equal(t, res.Diagnostics, decoded.Diagnostics)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, "Markdown": FormatMarkdown, "JSON": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)

	assert.Equal(t, FormatJSON, FormatForPath("out/report.JSON", FormatMarkdown))
	assert.Equal(t, FormatMarkdown, FormatForPath("out/report.md", FormatJSON))
	assert.Equal(t, FormatJSON, FormatForPath("out/report.txt", FormatJSON))
}

func TestWriterUsesExtension(t *testing.T) {
	dir := t.TempDir()
	res := failingResult()

	mdPath := filepath.Join(dir, "nested", "run.md")
	require.NoError(t, Writer{Format: FormatJSON}.WriteReport(mdPath, res))
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Log Evidence Report"))

	jsonPath := filepath.Join(dir, "run.out")
	require.NoError(t, Writer{Format: FormatJSON}.WriteReport(jsonPath, res))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestInvokeWithReportWriter(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.md")
	logPath := filepath.Join(dir, "run.log")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0644))
	require.NoError(t, os.WriteFile(logPath, []byte(runLog), 0644))

	out := filepath.Join(dir, "report.md")
	res, ok := verify.New(verify.WithReportWriter(Writer{Format: FormatMarkdown})).Invoke(specPath, logPath, out)
	require.True(t, ok)
	assert.Equal(t, verify.StatusFail, res.Status)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Spec | "+specPath+" |")
}

func TestBannerAndPretty(t *testing.T) {
	res := failingResult()
	assert.Contains(t, Banner(res), "FAIL")
	assert.Contains(t, Banner(res), res.Summary)

	out, err := Pretty(res, "notty", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Log Evidence Report")
	assert.Contains(t, out, "state.pause")
}
