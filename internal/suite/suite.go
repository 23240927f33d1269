// Package suite runs a YAML-defined batch of verifications. Every case, and
// every log a case's glob expands to, is an independent invocation.
package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"logcontract/internal/logging"
	"logcontract/internal/report"
	"logcontract/internal/verify"
)

// DefaultConcurrency bounds concurrent invocations when none is given.
const DefaultConcurrency = 4

// Suite is a collection of verification cases.
type Suite struct {
	Version int    `yaml:"version"`
	Cases   []Case `yaml:"cases"`

	// BaseDir resolves relative paths. LoadSuite sets it to the file's
	// directory.
	BaseDir string `yaml:"-"`
}

// Case is one spec verified against one log, or against every log a glob
// matches. When Log is a glob, Out names a directory that receives one
// report per matched log.
type Case struct {
	ID     string `yaml:"id"`
	Spec   string `yaml:"spec"`
	Log    string `yaml:"log"`
	Out    string `yaml:"out,omitempty"`
	Expect string `yaml:"expect,omitempty"`
}

// Result captures the outcome of one invocation.
type Result struct {
	CaseID        string        `json:"case_id"`
	LogPath       string        `json:"log_path"`
	OutputPath    string        `json:"output_path,omitempty"`
	Expected      verify.Status `json:"expected"`
	Status        verify.Status `json:"status"`
	Passed        bool          `json:"passed"`
	ReportWritten bool          `json:"report_written"`
	Summary       string        `json:"summary,omitempty"`
	Error         string        `json:"error,omitempty"`
	DurationMs    int64         `json:"duration_ms"`
}

// LoadSuite reads a YAML suite file from disk.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite YAML: %w", err)
	}
	s.BaseDir = filepath.Dir(path)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks case ids, required paths and expected statuses.
func (s *Suite) Validate() error {
	seen := make(map[string]bool)
	for i, c := range s.Cases {
		if c.ID == "" {
			return fmt.Errorf("case %d: missing id", i+1)
		}
		if seen[c.ID] {
			return fmt.Errorf("case %q: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if c.Spec == "" || c.Log == "" {
			return fmt.Errorf("case %q: spec and log are required", c.ID)
		}
		if _, err := c.expected(); err != nil {
			return fmt.Errorf("case %q: %w", c.ID, err)
		}
	}
	return nil
}

func (c Case) expected() (verify.Status, error) {
	if c.Expect == "" {
		return verify.StatusPass, nil
	}
	return verify.ParseStatus(strings.ToLower(strings.TrimSpace(c.Expect)))
}

// DefaultSuitePath returns the canonical suite path for a workspace.
func DefaultSuitePath(workspace string) string {
	return filepath.Join(workspace, ".logcontract", "suite.yaml")
}

type job struct {
	caseID   string
	spec     string
	log      string
	out      string
	expected verify.Status
	err      error
}

func (s *Suite) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.BaseDir == "" {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// expand turns cases into jobs, keeping declaration order. Glob matches are
// sorted within their case.
func (s *Suite) expand() []job {
	var jobs []job
	for _, c := range s.Cases {
		expected, _ := c.expected()
		base := job{caseID: c.ID, spec: s.resolve(c.Spec), expected: expected}
		logPath := s.resolve(c.Log)

		if !containsGlob(c.Log) {
			base.log = logPath
			base.out = s.resolve(c.Out)
			jobs = append(jobs, base)
			continue
		}

		matches, err := doublestar.FilepathGlob(logPath)
		if err == nil && len(matches) == 0 {
			err = fmt.Errorf("no logs match pattern: %s", c.Log)
		}
		if err != nil {
			base.log = logPath
			base.err = err
			jobs = append(jobs, base)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			j := base
			j.log = m
			if c.Out != "" {
				j.out = filepath.Join(s.resolve(c.Out), reportName(m))
			}
			jobs = append(jobs, j)
		}
	}
	return jobs
}

func reportName(logPath string) string {
	stem := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
	return stem + ".report.md"
}

// Run executes every case with at most concurrency invocations in flight.
// Results follow declaration order. A cancelled context stops scheduling;
// the remaining results carry the context error.
func Run(ctx context.Context, s *Suite, v *verify.Verifier, concurrency int) ([]Result, error) {
	if s == nil || len(s.Cases) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if v == nil {
		v = verify.New(verify.WithReportWriter(report.Writer{Format: report.FormatMarkdown}))
	}

	timer := logging.StartTimer(logging.CategorySuite, "Run")
	defer timer.Stop()

	jobs := s.expand()
	results := make([]Result, len(jobs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i, j := range jobs {
		i, j := i, j
		eg.Go(func() error {
			results[i] = runJob(egCtx, v, j)
			return nil
		})
	}
	_ = eg.Wait()

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	logging.Suite("suite finished: %d/%d invocations matched expectations", passed, len(results))
	return results, ctx.Err()
}

func runJob(ctx context.Context, v *verify.Verifier, j job) (res Result) {
	start := time.Now()
	res = Result{CaseID: j.caseID, LogPath: j.log, Expected: j.expected}
	defer func() { res.DurationMs = time.Since(start).Milliseconds() }()

	if j.err != nil {
		res.Status = verify.StatusInconclusive
		res.Error = j.err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Status = verify.StatusInconclusive
		res.Error = err.Error()
		return res
	}

	vr, written := v.Invoke(j.spec, j.log, j.out)
	res.Status = vr.Status
	res.Summary = vr.Summary
	res.ReportWritten = written && j.out != ""
	res.OutputPath = vr.OutputPath
	res.Passed = vr.Status == j.expected
	if !written {
		res.Error = fmt.Sprintf("%v: %s", verify.ErrReportWrite, j.out)
	}
	logging.Get(logging.CategorySuite).Debug("case %s (%s): %s", j.caseID, j.log, vr.Status)
	return res
}

// Passed reports whether every result matched its expectation.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
