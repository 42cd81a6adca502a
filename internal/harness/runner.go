package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/compile"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/engine"
	"github.com/sean-lynch/cozo/internal/schema"
	"github.com/sean-lynch/cozo/internal/store"
)

// Result is the full trace of one scenario run.
type Result struct {
	Scenario string
	Queries  []QueryTrace
}

// QueryTrace captures the plan and rows one query produced.
type QueryTrace struct {
	Name   string
	Vld    data.Validity
	Plan   string
	Header []data.Keyword
	Rows   []string
}

// Run executes a scenario against a fresh store at dbPath: compiles the
// schema, defines its attributes, loads the facts, then runs every
// query and records plan plus rendered rows.
func Run(ctx context.Context, scenario *Scenario, dbPath string) (*Result, error) {
	attrs, err := schema.CompileFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	attrByName := make(map[string]data.Attribute, len(attrs))
	for _, attr := range attrs {
		if err := st.DefineAttribute(ctx, attr); err != nil {
			return nil, fmt.Errorf("defining attribute %s: %w", attr.Keyword, err)
		}
		attrByName[string(attr.Keyword)] = attr
	}

	if err := applyFacts(ctx, st, attrByName, scenario.Facts, false); err != nil {
		return nil, err
	}
	if err := applyFacts(ctx, st, attrByName, scenario.Retractions, true); err != nil {
		return nil, err
	}

	result := &Result{Scenario: scenario.Name}
	compiler := compile.NewCompiler(st)
	executor := engine.NewExecutor(st)

	for _, q := range scenario.Queries {
		trace, err := runQuery(ctx, compiler, executor, &q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		result.Queries = append(result.Queries, *trace)
	}
	return result, nil
}

func runQuery(ctx context.Context, compiler *compile.Compiler, executor *engine.Executor, q *QueryStep) (*QueryTrace, error) {
	payload, err := json.Marshal(q.Clauses)
	if err != nil {
		return nil, fmt.Errorf("encoding clauses: %w", err)
	}

	vld := data.MaxValidity
	if q.At != 0 {
		vld = data.Validity(q.At)
	}

	plan, err := compiler.Compile(ctx, payload, vld)
	if err != nil {
		return nil, err
	}

	rows, err := executor.Eval(ctx, plan)
	if err != nil {
		return nil, err
	}

	if len(q.Sort) > 0 || len(q.Head) > 0 {
		sorters := make([]engine.SortSpec, len(q.Sort))
		for i, key := range q.Sort {
			dir := engine.Asc
			if key.Dir == "dsc" {
				dir = engine.Dsc
			}
			sorters[i] = engine.SortSpec{Col: data.Keyword(key.Col), Dir: dir}
		}
		head := rows.Header
		if len(q.Head) > 0 {
			head = make([]data.Keyword, len(q.Head))
			for i, col := range q.Head {
				head[i] = data.Keyword(col)
			}
		}
		rows, err = engine.SortAndCollect(rows, sorters, head)
		if err != nil {
			return nil, err
		}
	}

	if q.ExpectCount != nil && len(rows.Tuples) != *q.ExpectCount {
		return nil, fmt.Errorf("expected %d rows, got %d", *q.ExpectCount, len(rows.Tuples))
	}

	trace := &QueryTrace{
		Name:   q.Name,
		Vld:    vld,
		Plan:   algebra.Render(plan),
		Header: rows.Header,
	}
	for _, tuple := range rows.Tuples {
		trace.Rows = append(trace.Rows, renderTuple(tuple))
	}
	return trace, nil
}

func applyFacts(ctx context.Context, st *store.Store, attrByName map[string]data.Attribute, steps []FactStep, retract bool) error {
	for i, step := range steps {
		attr, ok := attrByName[step.Attr]
		if !ok {
			return fmt.Errorf("facts[%d]: attribute %s not in schema", i, step.Attr)
		}
		value, err := convertValue(attr, step.Value)
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}

		vld := data.Validity(step.At)
		if vld == 0 {
			vld = 1
		}
		fact := store.Fact{
			Entity: data.EntityID(step.Entity),
			Attr:   attr.Keyword,
			Value:  value,
		}
		if retract {
			err = st.Retract(ctx, fact, vld)
		} else {
			err = st.Assert(ctx, fact, vld)
		}
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
	}
	return nil
}

// convertValue maps a YAML scalar onto the attribute's declared type.
func convertValue(attr data.Attribute, raw any) (data.DataValue, error) {
	switch attr.ValType {
	case data.TypeRef:
		n, ok := asInt64(raw)
		if !ok || n <= 0 {
			return nil, fmt.Errorf("attribute %s wants a positive entity id, got %v", attr.Keyword, raw)
		}
		return data.EntID(n), nil
	case data.TypeInt:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("attribute %s wants an integer, got %v", attr.Keyword, raw)
		}
		return data.Int(n), nil
	case data.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("attribute %s wants a string, got %v", attr.Keyword, raw)
		}
		return data.String(s), nil
	case data.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("attribute %s wants a bool, got %v", attr.Keyword, raw)
		}
		return data.Bool(b), nil
	default:
		return nil, fmt.Errorf("attribute %s has unknown type %q", attr.Keyword, attr.ValType)
	}
}

func asInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
