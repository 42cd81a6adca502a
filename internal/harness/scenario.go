package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative end-to-end test case: a schema, a set of
// facts to assert, and queries with expected shapes. Scenarios run
// against a fresh store, so they are self-contained and order-free
// with respect to each other.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Schema is the path to the CUE schema file declaring the
	// attributes the scenario uses. Relative paths resolve against the
	// scenario file location.
	Schema string `yaml:"schema"`

	// Facts are asserted into the store before any query runs.
	Facts []FactStep `yaml:"facts"`

	// Retractions are applied after Facts, in order.
	Retractions []FactStep `yaml:"retractions,omitempty"`

	// Queries run against the populated store, in order.
	Queries []QueryStep `yaml:"queries"`
}

// FactStep is one assertion or retraction of a single triple.
type FactStep struct {
	Entity uint64 `yaml:"entity"`
	Attr   string `yaml:"attr"`
	Value  any    `yaml:"value"`

	// At is the validity timestamp in microseconds. Zero means 1, the
	// earliest useful instant, so plain scenarios need not spell it.
	At int64 `yaml:"at,omitempty"`
}

// QueryStep is one query with optional ordering and projection.
type QueryStep struct {
	// Name labels the query in rendered output.
	Name string `yaml:"name"`

	// Clauses is the query in wire shape: a list of [entity, attr,
	// value] triples, exactly as the JSON API accepts them.
	Clauses []any `yaml:"clauses"`

	// At is the validity to query at, in microseconds. Zero means the
	// latest possible instant.
	At int64 `yaml:"at,omitempty"`

	// Sort lists sort keys applied to the result.
	Sort []SortKey `yaml:"sort,omitempty"`

	// Head projects the output columns. Empty keeps the full header.
	Head []string `yaml:"head,omitempty"`

	// ExpectCount, when set, is checked against the row count.
	ExpectCount *int `yaml:"expect_count,omitempty"`
}

// SortKey is one (column, direction) pair. Dir is "asc" or "dsc" and
// defaults to "asc".
type SortKey struct {
	Col string `yaml:"col"`
	Dir string `yaml:"dir,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly, and the schema path is resolved
// relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, fact := range s.Facts {
		if err := validateFactStep(&fact); err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
	}
	for i, fact := range s.Retractions {
		if err := validateFactStep(&fact); err != nil {
			return fmt.Errorf("retractions[%d]: %w", i, err)
		}
	}

	seen := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if seen[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate query name %q", i, q.Name)
		}
		seen[q.Name] = true
		if len(q.Clauses) == 0 {
			return fmt.Errorf("queries[%d]: clauses list is required", i)
		}
		for j, key := range q.Sort {
			if key.Col == "" {
				return fmt.Errorf("queries[%d].sort[%d]: col is required", i, j)
			}
			switch key.Dir {
			case "", "asc", "dsc":
			default:
				return fmt.Errorf("queries[%d].sort[%d]: unknown direction %q", i, j, key.Dir)
			}
		}
		if q.ExpectCount != nil && *q.ExpectCount < 0 {
			return fmt.Errorf("queries[%d]: expect_count must be non-negative", i)
		}
	}
	return nil
}

func validateFactStep(f *FactStep) error {
	if f.Entity == 0 {
		return fmt.Errorf("entity is required and must be non-zero")
	}
	if f.Attr == "" {
		return fmt.Errorf("attr is required")
	}
	if f.Value == nil {
		return fmt.Errorf("value is required")
	}
	if f.At < 0 {
		return fmt.Errorf("at must be non-negative")
	}
	return nil
}
