package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sean-lynch/cozo/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	KeepDB bool
}

// ScenarioSummary is the JSON shape of one scenario result.
type ScenarioSummary struct {
	Scenario string         `json:"scenario"`
	Queries  []QuerySummary `json:"queries"`
}

// QuerySummary is the JSON shape of one query trace.
type QuerySummary struct {
	Name     string   `json:"name"`
	At       int64    `json:"at"`
	RowCount int      `json:"row_count"`
	Rows     []string `json:"rows"`
}

// NewRunCommand creates the run command, which executes scenario files
// against throwaway stores.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml> [more.yaml...]",
		Short: "Run declarative scenario files",
		Long: `Run one or more YAML scenario files.

Each scenario gets a fresh store in a temporary directory, so runs
never touch the database named by --db. A scenario fails when a query
errors or an expect_count does not match.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepDB, "keep-db", false, "keep the scenario databases for inspection")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	tmpDir, err := os.MkdirTemp("", "cozo-run-*")
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "creating scratch directory failed", err)
	}
	if opts.KeepDB {
		formatter.VerboseLog("Scenario databases kept in %s", tmpDir)
	} else {
		defer os.RemoveAll(tmpDir)
	}

	var summaries []ScenarioSummary
	for i, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			formatter.Error(ErrCodeScenario, err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading scenario failed", err)
		}

		dbPath := filepath.Join(tmpDir, fmt.Sprintf("scenario-%d.db", i))
		result, err := harness.Run(cmd.Context(), scenario, dbPath)
		if err != nil {
			formatter.Error(ErrCodeScenario, fmt.Sprintf("scenario %s: %v", scenario.Name, err), nil)
			return WrapExitError(ExitFailure, "scenario failed", err)
		}
		formatter.VerboseLog("Scenario %s: %d quer(ies) passed", result.Scenario, len(result.Queries))

		summaries = append(summaries, summarizeResult(result))
	}

	return formatter.SuccessSplit(renderSummaries(summaries), summaries)
}

func summarizeResult(result *harness.Result) ScenarioSummary {
	summary := ScenarioSummary{Scenario: result.Scenario}
	for _, q := range result.Queries {
		summary.Queries = append(summary.Queries, QuerySummary{
			Name:     q.Name,
			At:       int64(q.Vld),
			RowCount: len(q.Rows),
			Rows:     q.Rows,
		})
	}
	return summary
}

func renderSummaries(summaries []ScenarioSummary) string {
	var b []byte
	for _, s := range summaries {
		b = fmt.Appendf(b, "scenario %s: ok\n", s.Scenario)
		for _, q := range s.Queries {
			b = fmt.Appendf(b, "  %s: %d row(s)\n", q.Name, q.RowCount)
		}
	}
	b = fmt.Appendf(b, "%d scenario(s) passed", len(summaries))
	return string(b)
}
