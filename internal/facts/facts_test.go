package facts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logcontract/internal/logdoc"
	"logcontract/internal/verify"
)

const spec = "## SceneFlow\n" +
	"- `ready` :: `SceneTransitionScenesReady`\n" +
	"- `menu` :: `MenuScene`\n" +
	"### Order\n" +
	"- `transition` :: `Acquire token='flow'` -> `Release token='flow'`\n"

const runLog = "[SceneFlow] SceneTransitionScenesReady\n" +
	"Release token='flow'\n" +
	"Acquire token='state.pause'\n"

func exported(t *testing.T) ([]Fact, *verify.Result) {
	t.Helper()
	res := verify.New().RunText(spec, runLog)
	return Export(res, logdoc.ParseText(runLog)), res
}

func TestFactString(t *testing.T) {
	tests := []struct {
		fact Fact
		want string
	}{
		{Fact{"run_status", []interface{}{Name("/fail")}}, "run_status(/fail)."},
		{Fact{"log_line", []interface{}{1, "/usr/lib/boot.so"}}, `log_line(1, "/usr/lib/boot.so").`},
		{Fact{"log_line", []interface{}{3, `say "hi"`}}, `log_line(3, "say \"hi\"").`},
		{Fact{"evidence", []interface{}{"B", "k", Name("/hard"), true, 0}}, `evidence("B", "k", /hard, /true, 0).`},
		{Fact{"log_line", []interface{}{1, "tab\there"}}, `log_line(1, "tab here").`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.fact.String())
	}
}

func TestExport(t *testing.T) {
	fs, _ := exported(t)
	text := Render(fs)

	for _, want := range []string{
		"run_status(/fail).",
		`log_line(1, "[SceneFlow] SceneTransitionScenesReady").`,
		`block_status("SceneFlow", /fail).`,
		`evidence("SceneFlow", "ready", /hard, /true, 1).`,
		`evidence("SceneFlow", "menu", /hard, /false, 0).`,
		`order_result("SceneFlow", "transition", /violated).`,
		`order_violation("SceneFlow", "transition", 2).`,
		`token_balance("state.pause", 1, 0, /imbalanced).`,
	} {
		assert.Contains(t, text, want)
	}
}

func TestEvaluateDerivedPredicates(t *testing.T) {
	fs, _ := exported(t)

	prog, err := Evaluate(context.Background(), fs, "", 0)
	require.NoError(t, err)

	missing, err := prog.Query("missing_hard")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, []interface{}{"SceneFlow", "menu"}, missing[0].Args)

	leaked, err := prog.Query("leaked_token")
	require.NoError(t, err)
	require.Len(t, leaked, 2)
	assert.Equal(t, `leaked_token("flow", 0, 1).`, leaked[0].String())
	assert.Equal(t, `leaked_token("state.pause", 1, 0).`, leaked[1].String())

	assert.Contains(t, prog.Predicates(), "failed_block")
	assert.Contains(t, prog.Predicates(), "log_line")
}

func TestEvaluateUserRules(t *testing.T) {
	fs, _ := exported(t)
	rules := `menu_gap(B, N) :- missing_hard(B, "menu"), log_line(N, _).`

	prog, err := Evaluate(context.Background(), fs, rules, 0)
	require.NoError(t, err)

	got, err := prog.Query("menu_gap")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []interface{}{"SceneFlow", int64(1)}, got[0].Args)
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(context.Background(), nil, "broken(", 0)
	assert.Error(t, err)

	prog, err := Evaluate(context.Background(), nil, "", 0)
	require.NoError(t, err)
	_, err = prog.Query("no_such_predicate")
	assert.Error(t, err)
}

func TestEvaluateSlashLeadingStrings(t *testing.T) {
	spec := "## /boot phase\n- `loader` :: `boot.so loaded`\n"
	log := "/usr/lib/game/boot.so loaded\n"
	res := verify.New().RunText(spec, log)
	fs := Export(res, logdoc.ParseText(log))

	text := Render(fs)
	assert.Contains(t, text, `log_line(1, "/usr/lib/game/boot.so loaded").`)
	assert.Contains(t, text, `block_status("/boot phase", /pass).`)

	prog, err := Evaluate(context.Background(), fs, "", 0)
	require.NoError(t, err)

	lines, err := prog.Query("log_line")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "/usr/lib/game/boot.so loaded", lines[0].Args[1])

	status, err := prog.Query("block_status")
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, []interface{}{"/boot phase", Name("/pass")}, status[0].Args)
}
