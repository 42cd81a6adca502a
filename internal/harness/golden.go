package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/engine"
)

// RenderResult turns a scenario result into the stable text form the
// golden files hold: one block per query with its plan and rows.
func RenderResult(res *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s\n", res.Scenario)

	for _, q := range res.Queries {
		fmt.Fprintf(&b, "\nquery %s @%d\n", q.Name, q.Vld)
		b.WriteString(q.Plan)
		fmt.Fprintf(&b, "rows %s (%d):\n", renderHeader(q.Header), len(q.Rows))
		for _, row := range q.Rows {
			fmt.Fprintf(&b, "  %s\n", row)
		}
	}
	return []byte(b.String())
}

// RunWithGolden loads a scenario file, runs it against a throwaway
// store, and compares the rendered trace against
// testdata/golden/{name}.golden. Regenerate with go test -update.
func RunWithGolden(t *testing.T, scenarioPath string) *Result {
	t.Helper()

	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("loading scenario: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "harness.db")
	result, err := Run(context.Background(), scenario, dbPath)
	if err != nil {
		t.Fatalf("running scenario %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, RenderResult(result))
	return result
}

func renderHeader(header []data.Keyword) string {
	parts := make([]string, len(header))
	for i, kw := range header {
		parts[i] = string(kw)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func renderTuple(tuple engine.Tuple) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = data.RenderValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
