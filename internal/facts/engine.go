package facts

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"logcontract/internal/logging"
)

//go:embed schema.mg
var Schema string

// DefaultFactLimit caps facts created during evaluation.
const DefaultFactLimit = 100000

// Program is an evaluated fact base.
type Program struct {
	store       factstore.FactStore
	programInfo *analysis.ProgramInfo
}

// Evaluate parses the schema, the user rules and the facts as one unit and
// evaluates it to a fixpoint.
func Evaluate(ctx context.Context, fs []Fact, rules string, factLimit int) (*Program, error) {
	timer := logging.StartTimer(logging.CategoryFacts, "Evaluate")
	defer timer.Stop()

	if factLimit <= 0 {
		factLimit = DefaultFactLimit
	}

	var program strings.Builder
	program.WriteString(Schema)
	if rules != "" {
		program.WriteString("\n\n# === USER RULES ===\n\n")
		program.WriteString(rules)
	}
	program.WriteString("\n\n# === RUN FACTS ===\n\n")
	program.WriteString(Render(fs))

	type outcome struct {
		prog *Program
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		prog, err := build(program.String(), factLimit)
		done <- outcome{prog, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("evaluation aborted: %w", ctx.Err())
	case o := <-done:
		if o.err == nil {
			logging.Facts("evaluated %d facts with %d bytes of rules", len(fs), len(rules))
		}
		return o.prog, o.err
	}
}

func build(src string, factLimit int) (*Program, error) {
	parsed, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis error: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store,
		engine.WithCreatedFactLimit(factLimit)); err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	return &Program{store: store, programInfo: programInfo}, nil
}

// Predicates lists every declared predicate symbol, sorted.
func (p *Program) Predicates() []string {
	var out []string
	for pred := range p.programInfo.Decls {
		out = append(out, pred.Symbol)
	}
	sort.Strings(out)
	return out
}

// Query returns every fact of the named predicate, sorted by rendering.
func (p *Program) Query(predicate string) ([]Fact, error) {
	for pred := range p.programInfo.Decls {
		if pred.Symbol != predicate {
			continue
		}
		var out []Fact
		err := p.store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			out = append(out, atomToFact(a))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get facts: %w", err)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
		return out, nil
	}
	return nil, fmt.Errorf("predicate %q not found", predicate)
}

func atomToFact(a ast.Atom) Fact {
	args := make([]interface{}, len(a.Args))
	for i, term := range a.Args {
		args[i] = termToValue(term)
	}
	return Fact{Predicate: a.Predicate.Symbol, Args: args}
}

func termToValue(term ast.BaseTerm) interface{} {
	switch t := term.(type) {
	case ast.Constant:
		switch t.Type {
		case ast.NameType:
			return Name(t.Symbol)
		case ast.StringType:
			return t.Symbol
		case ast.NumberType:
			return t.NumValue
		case ast.Float64Type:
			return t.Float64Value
		default:
			return t.Symbol
		}
	default:
		return fmt.Sprintf("%v", term)
	}
}
