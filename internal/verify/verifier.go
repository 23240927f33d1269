package verify

import (
	"time"

	"github.com/google/uuid"

	"logcontract/internal/contract"
	"logcontract/internal/evidence"
	"logcontract/internal/logdoc"
	"logcontract/internal/logging"
	"logcontract/internal/pattern"
)

// ReportWriter persists a finished Result.
type ReportWriter interface {
	WriteReport(path string, r *Result) error
}

// ReportWriterFunc adapts a function to ReportWriter.
type ReportWriterFunc func(path string, r *Result) error

// WriteReport implements ReportWriter.
func (f ReportWriterFunc) WriteReport(path string, r *Result) error { return f(path, r) }

// SlowRunThreshold is the run duration above which Run logs a warning.
const SlowRunThreshold = 5 * time.Second

// Verifier runs verification invocations. It holds no per-run state and is
// safe for concurrent use.
type Verifier struct {
	parserOpts []contract.Option
	hintMin    int
	writer     ReportWriter
	now        func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithCompiler swaps the pattern backend used for spec rules.
func WithCompiler(c pattern.Compiler) Option {
	return func(v *Verifier) { v.parserOpts = append(v.parserOpts, contract.WithCompiler(c)) }
}

// WithChecklistHeader changes the checklist dialect section header.
func WithChecklistHeader(header string) Option {
	return func(v *Verifier) {
		if header != "" {
			v.parserOpts = append(v.parserOpts, contract.WithChecklistHeader(header))
		}
	}
}

// WithHintMinLength sets the minimum missing-evidence hint word length.
func WithHintMinLength(n int) Option {
	return func(v *Verifier) { v.hintMin = n }
}

// WithReportWriter sets the writer used by Invoke. Without one every
// non-empty outPath counts as a failed write.
func WithReportWriter(w ReportWriter) Option {
	return func(v *Verifier) { v.writer = w }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New returns a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		hintMin: evidence.DefaultHintMinLength,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run verifies the log at logPath against the spec at specPath.
func (v *Verifier) Run(specPath, logPath string) *Result {
	start := v.now()
	timer := logging.StartTimer(logging.CategoryEvaluate, "Run")
	defer timer.StopWithThreshold(SlowRunThreshold)

	doc := contract.NewParser(v.parserOpts...).ParseFile(specPath)
	lines, logErr := logdoc.Load(logPath)

	res := Aggregate(Input{Doc: doc, Lines: lines, LogErr: logErr, HintMin: v.hintMin})
	res.RunID = uuid.NewString()
	res.SpecPath = specPath
	res.LogPath = logPath
	res.StartedAt = start
	res.Duration = v.now().Sub(start)

	logging.Get(logging.CategoryEvaluate).StructuredLog("info", "run finished", map[string]interface{}{
		"run_id": res.RunID,
		"status": string(res.Status),
		"rules":  res.RuleCount,
		"lines":  res.LogLineCount,
	})
	return res
}

// RunText verifies in-memory documents. Paths are left empty.
func (v *Verifier) RunText(specText, logText string) *Result {
	start := v.now()
	doc := contract.NewParser(v.parserOpts...).Parse(specText)
	res := Aggregate(Input{Doc: doc, Lines: logdoc.ParseText(logText), HintMin: v.hintMin})
	res.RunID = uuid.NewString()
	res.StartedAt = start
	res.Duration = v.now().Sub(start)
	return res
}

// Invoke is the trigger boundary: verify, then write the report to outPath.
// The boolean reports whether the write succeeded; a failed write is logged
// and leaves the verdict alone. OutputPath is set only once the report
// exists. An empty outPath skips the write and reports success.
func (v *Verifier) Invoke(specPath, logPath, outPath string) (*Result, bool) {
	res := v.Run(specPath, logPath)
	if outPath == "" {
		return res, true
	}
	if v.writer == nil {
		logging.ReportError("%v: %s: no report writer configured", ErrReportWrite, outPath)
		return res, false
	}
	if err := v.writer.WriteReport(outPath, res); err != nil {
		logging.ReportError("%v: %s: %v", ErrReportWrite, outPath, err)
		return res, false
	}
	res.OutputPath = outPath
	logging.Report("report written to %s (%s)", outPath, res.Status)
	return res, true
}
