package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-lynch/cozo/internal/data"
)

func TestScenarioBasic(t *testing.T) {
	result := RunWithGolden(t, "testdata/scenarios/basic.yaml")

	require.Len(t, result.Queries, 3)
	assert.Equal(t, "name-scan", result.Queries[0].Name)
	assert.Equal(t, []data.Keyword{"?n"}, result.Queries[0].Header)
	assert.Equal(t, []data.Keyword{"?x", "?y", "?n"}, result.Queries[1].Header)
}

func TestScenarioBitemporal(t *testing.T) {
	result := RunWithGolden(t, "testdata/scenarios/bitemporal.yaml")

	require.Len(t, result.Queries, 2)
	assert.Equal(t, []string{"[30]"}, result.Queries[0].Rows)
	assert.Equal(t, []string{"[31]"}, result.Queries[1].Rows)
}

func TestRunExpectCountMismatch(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic.yaml")
	require.NoError(t, err)

	wrong := 99
	scenario.Queries[0].ExpectCount = &wrong

	_, err = Run(context.Background(), scenario, filepath.Join(t.TempDir(), "h.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 99 rows, got 2")
}

func TestRunUnknownAttributeInFacts(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic.yaml")
	require.NoError(t, err)

	scenario.Facts = append(scenario.Facts, FactStep{
		Entity: 1, Attr: "person/height", Value: 180,
	})

	_, err = Run(context.Background(), scenario, filepath.Join(t.TempDir(), "h.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "person/height not in schema")
}

func TestRunValueTypeMismatch(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic.yaml")
	require.NoError(t, err)

	scenario.Facts[0].Value = 123 // person/name wants a string

	_, err = Run(context.Background(), scenario, filepath.Join(t.TempDir(), "h.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wants a string")
}
