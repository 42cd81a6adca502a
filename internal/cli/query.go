package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sean-lynch/cozo/internal/compile"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/engine"
	"github.com/sean-lynch/cozo/internal/parse"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	At   int64
	Sort []string
	Head []string
}

// QueryResult is the JSON shape of a query response.
type QueryResult struct {
	Header []string            `json:"header"`
	Rows   [][]json.RawMessage `json:"rows"`
	Count  int                 `json:"count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <clauses.json>",
		Short: "Run a query from a clause file",
		Long: `Run a query given as a JSON array of [entity, attr, value] clauses.

Pass - to read the clauses from stdin. Each position is either a
constant or a ?variable; an object like {"person/name": "alice"}
resolves an entity through a unique index.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "validity in microseconds since epoch (default: latest)")
	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "sort keys, e.g. ?name or ?age:dsc")
	cmd.Flags().StringSliceVar(&opts.Head, "head", nil, "output columns (default: full header)")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
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
		code := ErrCodeParse
		if parse.CodeOf(err) == "" {
			code = ErrCodeQuery
		}
		formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "query compilation failed", err)
	}

	rows, err := engine.NewExecutor(st).Eval(cmd.Context(), plan)
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error(), nil)
		return WrapExitError(ExitFailure, "query evaluation failed", err)
	}

	if len(opts.Sort) > 0 || len(opts.Head) > 0 {
		sorters, err := parseSortFlags(opts.Sort)
		if err != nil {
			formatter.Error(ErrCodeBadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "parsing sort flags failed", err)
		}
		head := rows.Header
		if len(opts.Head) > 0 {
			head = make([]data.Keyword, len(opts.Head))
			for i, col := range opts.Head {
				head[i] = data.Keyword(col)
			}
		}
		rows, err = engine.SortAndCollect(rows, sorters, head)
		if err != nil {
			formatter.Error(ErrCodeQuery, err.Error(), nil)
			return WrapExitError(ExitFailure, "sorting failed", err)
		}
	}
	formatter.VerboseLog("Query returned %d row(s)", len(rows.Tuples))

	result, err := summarizeRows(rows)
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error(), nil)
		return WrapExitError(ExitFailure, "encoding rows failed", err)
	}
	return formatter.SuccessSplit(renderRows(rows), result)
}

func readClauses(cmd *cobra.Command, path string) (json.RawMessage, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// parseSortFlags parses sort keys of the form ?col or ?col:dir.
func parseSortFlags(flags []string) ([]engine.SortSpec, error) {
	sorters := make([]engine.SortSpec, len(flags))
	for i, flag := range flags {
		col, dirStr, hasDir := strings.Cut(flag, ":")
		dir := engine.Asc
		if hasDir {
			switch dirStr {
			case "asc":
			case "dsc":
				dir = engine.Dsc
			default:
				return nil, fmt.Errorf("unknown sort direction %q in %q", dirStr, flag)
			}
		}
		sorters[i] = engine.SortSpec{Col: data.Keyword(col), Dir: dir}
	}
	return sorters, nil
}

func summarizeRows(rows *engine.Rows) (*QueryResult, error) {
	result := &QueryResult{
		Header: make([]string, len(rows.Header)),
		Rows:   make([][]json.RawMessage, len(rows.Tuples)),
		Count:  len(rows.Tuples),
	}
	for i, kw := range rows.Header {
		result.Header[i] = string(kw)
	}
	for i, tuple := range rows.Tuples {
		row := make([]json.RawMessage, len(tuple))
		for j, v := range tuple {
			encoded, err := data.MarshalValue(v)
			if err != nil {
				return nil, err
			}
			row[j] = encoded
		}
		result.Rows[i] = row
	}
	return result, nil
}

func renderRows(rows *engine.Rows) string {
	var b strings.Builder
	header := make([]string, len(rows.Header))
	for i, kw := range rows.Header {
		header[i] = string(kw)
	}
	fmt.Fprintf(&b, "[%s]\n", strings.Join(header, " "))
	for _, tuple := range rows.Tuples {
		vals := make([]string, len(tuple))
		for i, v := range tuple {
			vals[i] = data.RenderValue(v)
		}
		fmt.Fprintf(&b, "[%s]\n", strings.Join(vals, " "))
	}
	fmt.Fprintf(&b, "%d row(s)", len(rows.Tuples))
	return b.String()
}
