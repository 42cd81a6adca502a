package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/store"
)

// AssertOptions holds flags for the assert and retract commands.
type AssertOptions struct {
	*RootOptions
	At int64 // validity in microseconds; zero means now
}

// factInput is the JSON shape of one fact in an input file.
type factInput struct {
	Entity uint64          `json:"entity"`
	Attr   string          `json:"attr"`
	Value  json.RawMessage `json:"value"`
}

// WriteResult is the JSON shape of a successful write.
type WriteResult struct {
	TxID  string `json:"tx_id"`
	Count int    `json:"count"`
	At    int64  `json:"at"`
}

// NewAssertCommand creates the assert command.
func NewAssertCommand(rootOpts *RootOptions) *cobra.Command {
	return newWriteCommand(rootOpts, "assert", "Assert facts from a JSON file")
}

// NewRetractCommand creates the retract command.
func NewRetractCommand(rootOpts *RootOptions) *cobra.Command {
	return newWriteCommand(rootOpts, "retract", "Retract facts from a JSON file")
}

func newWriteCommand(rootOpts *RootOptions, verb, short string) *cobra.Command {
	opts := &AssertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   verb + " <facts.json>",
		Short: short,
		Long: short + `.

The input file holds a JSON array of facts:

	[{"entity": 1, "attr": "person/name", "value": "alice"}]

Values are coerced against the attribute's declared type; entity
references are spelled as bare numbers. All facts in one invocation
share a transaction id and a validity.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, verb, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "validity in microseconds since epoch (default: now)")

	return cmd
}

func runWrite(opts *AssertOptions, verb, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	raw, err := os.ReadFile(path)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading facts file failed", err)
	}

	var inputs []factInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		formatter.Error(ErrCodeBadInput, fmt.Sprintf("parsing facts file: %v", err), nil)
		return WrapExitError(ExitCommandError, "parsing facts file failed", err)
	}
	if len(inputs) == 0 {
		formatter.Error(ErrCodeBadInput, "facts file holds no facts", nil)
		return NewExitError(ExitCommandError, "facts file holds no facts")
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening store failed", err)
	}
	defer st.Close()

	facts, err := resolveFacts(cmd, st, inputs)
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolving facts failed", err)
	}

	vld := data.Validity(opts.At)
	if vld == 0 {
		vld = data.NewValidity(time.Now())
	}

	var txID string
	if verb == "retract" {
		txID, err = st.RetractAll(cmd.Context(), facts, vld)
	} else {
		txID, err = st.AssertAll(cmd.Context(), facts, vld)
	}
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, verb+" failed", err)
	}
	formatter.VerboseLog("%sed %d fact(s) at validity %d", verb, len(facts), vld)

	return formatter.SuccessSplit(
		fmt.Sprintf("%sed %d fact(s) in tx %s", verb, len(facts), txID),
		WriteResult{TxID: txID, Count: len(facts), At: int64(vld)},
	)
}

func resolveFacts(cmd *cobra.Command, st *store.Store, inputs []factInput) ([]store.Fact, error) {
	facts := make([]store.Fact, len(inputs))
	for i, in := range inputs {
		if in.Entity == 0 {
			return nil, fmt.Errorf("facts[%d]: entity is required and must be non-zero", i)
		}
		attr, err := st.AttrByName(cmd.Context(), data.Keyword(in.Attr))
		if err != nil {
			return nil, err
		}
		if attr == nil {
			return nil, fmt.Errorf("facts[%d]: attribute %s is not defined", i, in.Attr)
		}
		value, err := attr.ValType.Coerce(in.Value)
		if err != nil {
			return nil, fmt.Errorf("facts[%d]: %w", i, err)
		}
		facts[i] = store.Fact{
			Entity: data.EntityID(in.Entity),
			Attr:   attr.Keyword,
			Value:  value,
		}
	}
	return facts, nil
}
