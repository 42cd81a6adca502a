package parse

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ClauseError represents a query clause that cannot be parsed or compiled.
//
// ClauseError carries a stable code, a human-readable message, and the raw
// JSON of the offending clause. Catalog I/O failures during parsing travel
// the same channel: from the caller's point of view the compile failed
// atomically either way.
type ClauseError struct {
	// Code identifies the error category.
	Code ClauseErrorCode

	// Message is a human-readable description.
	Message string

	// Clause is the raw JSON of the offending clause, when available.
	Clause json.RawMessage

	// Err is the underlying error, if any.
	Err error
}

// ClauseErrorCode categorizes clause errors.
type ClauseErrorCode string

const (
	// ErrCodeMalformedClause indicates a clause that is not a 3-element
	// array, or an object that does not have exactly one field where one
	// is required.
	ErrCodeMalformedClause ClauseErrorCode = "MALFORMED_CLAUSE"

	// ErrCodeAttrNotFound indicates an attribute name unknown to the
	// catalog.
	ErrCodeAttrNotFound ClauseErrorCode = "ATTR_NOT_FOUND"

	// ErrCodeAttrNotUniqueIndex indicates a unique-index lookup against
	// an attribute that is not unique-indexed.
	ErrCodeAttrNotUniqueIndex ClauseErrorCode = "ATTR_NOT_UNIQUE_INDEX"

	// ErrCodeReservedUnquoted indicates a reserved word used as a bare
	// literal string; it must be wrapped in a const marker.
	ErrCodeReservedUnquoted ClauseErrorCode = "RESERVED_UNQUOTED"

	// ErrCodeTypeMismatch indicates a value that does not coerce to the
	// attribute's declared type.
	ErrCodeTypeMismatch ClauseErrorCode = "TYPE_MISMATCH"

	// ErrCodeSelfReferential indicates a clause whose entity and value
	// positions bind the same variable. Rejected, never mishandled.
	ErrCodeSelfReferential ClauseErrorCode = "SELF_REFERENTIAL_CLAUSE"
)

// Error implements the error interface.
func (e *ClauseError) Error() string {
	if len(e.Clause) > 0 {
		return fmt.Sprintf("%s: %s (clause %s)", e.Code, e.Message, string(e.Clause))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClauseError) Unwrap() error {
	return e.Err
}

// NewClauseError creates a ClauseError for the given raw clause.
func NewClauseError(code ClauseErrorCode, clause json.RawMessage, format string, args ...any) *ClauseError {
	return &ClauseError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Clause:  clause,
	}
}

// WrapClauseError attaches a code and raw clause to an underlying error.
func WrapClauseError(code ClauseErrorCode, clause json.RawMessage, err error) *ClauseError {
	return &ClauseError{
		Code:    code,
		Message: err.Error(),
		Clause:  clause,
		Err:     err,
	}
}

// CodeOf extracts the error code from a wrapped ClauseError, or "" if the
// error is not one.
func CodeOf(err error) ClauseErrorCode {
	var ce *ClauseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsAttrNotFound reports whether err is an attribute-not-found error.
// Uses errors.As to handle wrapped errors.
func IsAttrNotFound(err error) bool {
	return CodeOf(err) == ErrCodeAttrNotFound
}

// IsSelfReferential reports whether err rejects a same-variable clause.
func IsSelfReferential(err error) bool {
	return CodeOf(err) == ErrCodeSelfReferential
}
