// Package schema compiles CUE attribute declarations into the catalog
// form the store persists.
//
// A schema file declares attributes under a top-level attrs struct:
//
//	attrs: {
//		"person/name":   {type: "string", index: "unique"}
//		"person/age":    {type: "int"}
//		"person/friend": {type: "ref"}
//	}
//
// The index field defaults to "none" when omitted.
package schema

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/sean-lynch/cozo/internal/data"
)

// CompileError is a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses a CUE value holding a schema document into attribute
// definitions, sorted by keyword.
func Compile(v cue.Value) ([]data.Attribute, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	attrsVal := v.LookupPath(cue.ParsePath("attrs"))
	if !attrsVal.Exists() {
		return nil, &CompileError{
			Field:   "attrs",
			Message: "attrs struct is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []data.Attribute
	for iter.Next() {
		sel := iter.Selector()
		name := sel.String()
		if sel.Type() == cue.StringLabel {
			// Strips the quotes a "ns/name" label carries in CUE.
			name = sel.Unquoted()
		}
		attr, err := compileAttribute(data.Keyword(name), iter.Value())
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	if len(attrs) == 0 {
		return nil, &CompileError{
			Field:   "attrs",
			Message: "at least one attribute is required",
			Pos:     attrsVal.Pos(),
		}
	}

	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].Keyword < attrs[j].Keyword
	})
	return attrs, nil
}

// CompileSource compiles schema text, attributing errors to filename.
func CompileSource(src, filename string) ([]data.Attribute, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// CompileFile reads and compiles one schema file.
func CompileFile(path string) ([]data.Attribute, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return CompileSource(string(src), path)
}

func compileAttribute(name data.Keyword, v cue.Value) (data.Attribute, error) {
	var attr data.Attribute

	if name == "" || name.IsVariable() || name.IsSynthetic() || name.IsReserved() {
		return attr, &CompileError{
			Field:   string(name),
			Message: "invalid attribute keyword",
			Pos:     v.Pos(),
		}
	}
	attr.Keyword = name

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return attr, &CompileError{
			Field:   string(name),
			Message: "type is required",
			Pos:     v.Pos(),
		}
	}
	typeStr, err := typeVal.String()
	if err != nil {
		return attr, formatCUEError(err)
	}
	attr.ValType = data.AttrValueType(typeStr)
	if !attr.ValType.Valid() {
		return attr, &CompileError{
			Field:   string(name) + ".type",
			Message: fmt.Sprintf("unknown value type %q", typeStr),
			Pos:     typeVal.Pos(),
		}
	}

	attr.Indexing = data.IndexNone
	indexVal := v.LookupPath(cue.ParsePath("index"))
	if indexVal.Exists() {
		indexStr, err := indexVal.String()
		if err != nil {
			return attr, formatCUEError(err)
		}
		attr.Indexing = data.AttrIndexing(indexStr)
		if !attr.Indexing.Valid() {
			return attr, &CompileError{
				Field:   string(name) + ".index",
				Message: fmt.Sprintf("unknown indexing mode %q", indexStr),
				Pos:     indexVal.Pos(),
			}
		}
	}

	return attr, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
