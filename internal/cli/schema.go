package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/schema"
	"github.com/sean-lynch/cozo/internal/store"
)

// AttrSummary is the JSON shape for one attribute definition.
type AttrSummary struct {
	Keyword string `json:"keyword"`
	Type    string `json:"type"`
	Index   string `json:"index"`
}

// NewSchemaCommand creates the schema command, which compiles a CUE
// schema file and defines its attributes in the store.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <schema.cue>",
		Short: "Define attributes from a CUE schema file",
		Long: `Compile a CUE schema file and define its attributes in the store.

Defining an attribute is idempotent when the definition is unchanged;
redefining an attribute with a different type or index fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], cmd)
		},
	}
}

func runSchema(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("schema file not found: %s", path), nil)
		return NewExitError(ExitCommandError, "schema file not found")
	}

	attrs, err := schema.CompileFile(path)
	if err != nil {
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitCommandError, "schema compilation failed", err)
	}
	formatter.VerboseLog("Compiled %d attribute(s) from %s", len(attrs), path)

	st, err := openStore(opts)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening store failed", err)
	}
	defer st.Close()

	for _, attr := range attrs {
		if err := st.DefineAttribute(cmd.Context(), attr); err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "defining attribute failed", err)
		}
	}

	return formatter.SuccessSplit(renderAttrs(attrs), summarizeAttrs(attrs))
}

// NewAttrsCommand creates the attrs command, which lists the
// attributes currently defined in the store.
func NewAttrsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "attrs",
		Short:         "List defined attributes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttrs(rootOpts, cmd)
		},
	}
}

func runAttrs(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := openStore(opts)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening store failed", err)
	}
	defer st.Close()

	attrs, err := st.Attributes(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing attributes failed", err)
	}

	return formatter.SuccessSplit(renderAttrs(attrs), summarizeAttrs(attrs))
}

func summarizeAttrs(attrs []data.Attribute) []AttrSummary {
	out := make([]AttrSummary, len(attrs))
	for i, attr := range attrs {
		out[i] = AttrSummary{
			Keyword: string(attr.Keyword),
			Type:    string(attr.ValType),
			Index:   string(attr.Indexing),
		}
	}
	return out
}

func renderAttrs(attrs []data.Attribute) string {
	if len(attrs) == 0 {
		return "no attributes defined"
	}
	lines := make([]string, len(attrs))
	for i, attr := range attrs {
		lines[i] = attr.String()
	}
	return strings.Join(lines, "\n")
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func openStore(opts *RootOptions) (*store.Store, error) {
	return store.Open(opts.DBPath)
}
