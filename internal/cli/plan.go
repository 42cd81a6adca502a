package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/compile"
	"github.com/sean-lynch/cozo/internal/data"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	At int64
}

// PlanResult is the JSON shape of a plan response.
type PlanResult struct {
	Plan       string   `json:"plan"`
	Bindings   []string `json:"bindings"`
	Executable bool     `json:"executable"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewPlanCommand creates the plan command, which compiles a query and
// prints the relation tree without executing it.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <clauses.json>",
		Short: "Show the compiled plan for a query",
		Long: `Compile a query and print its relation tree without running it.

Pass - to read the clauses from stdin. The output also reports plan
warnings, such as synthetic bindings leaking from the root.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "validity in microseconds since epoch (default: latest)")

	return cmd
}

func runPlan(opts *PlanOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	payload, err := readClauses(cmd, path)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading clauses failed", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening store failed", err)
	}
	defer st.Close()

	vld := data.MaxValidity
	if opts.At != 0 {
		vld = data.Validity(opts.At)
	}

	plan, err := compile.NewCompiler(st).Compile(cmd.Context(), payload, vld)
	if err != nil {
		formatter.Error(ErrCodeParse, err.Error(), nil)
		return WrapExitError(ExitFailure, "query compilation failed", err)
	}

	rendered := algebra.Render(plan)
	check := algebra.Validate(plan)

	bindings := make([]string, 0, len(plan.BindingSet()))
	for _, kw := range plan.BindingSet() {
		bindings = append(bindings, string(kw))
	}

	var text strings.Builder
	text.WriteString(strings.TrimRight(rendered, "\n"))
	for _, warning := range check.Warnings {
		text.WriteString("\nwarning: " + warning)
	}

	return formatter.SuccessSplit(text.String(), PlanResult{
		Plan:       rendered,
		Bindings:   bindings,
		Executable: check.IsExecutable,
		Warnings:   check.Warnings,
	})
}
