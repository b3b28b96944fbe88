// Package errors implements Shannon's error kinds (spec.md §7): lexical,
// parse, compile, constant-expression, runtime, and internal errors, each
// carrying source location, plus the distinguished Exit control value.
//
// Grounded on the teacher's internal/errors/errors.go SentraError shape
// (ErrorType + SourceLocation + Error() string with source-line framing),
// renamed to Shannon's error kinds from spec.md §7.
package errors

import (
	"fmt"
	"strings"
)

// Kind is the category of a ShannonError.
type Kind string

const (
	LexError       Kind = "LexError"
	ParseError     Kind = "ParseError"
	CompileError   Kind = "CompileError"
	ConstExprError Kind = "ConstExprError"
	RuntimeError   Kind = "RuntimeError"
	InternalError  Kind = "InternalError"
)

// Location is a position in source text.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// ShannonError is the error type raised by the lexer, parser, code
// generator, and interpreter.
type ShannonError struct {
	Kind     Kind
	Message  string
	Location Location
	Source   string // the source line at Location, if available
}

func (e *ShannonError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if loc := e.Location.String(); loc != "" {
		sb.WriteString(fmt.Sprintf(" (at %s)", loc))
	}
	if e.Source != "" {
		sb.WriteString(fmt.Sprintf("\n  %d | %s", e.Location.Line, e.Source))
	}
	return sb.String()
}

// New constructs a ShannonError of the given kind.
func New(kind Kind, message string, loc Location) *ShannonError {
	return &ShannonError{Kind: kind, Message: message, Location: loc}
}

// WithSource attaches the offending source line for display.
func (e *ShannonError) WithSource(source string) *ShannonError {
	e.Source = source
	return e
}

// Exit is the distinguished control-flow value raised by the `exit`
// opcode (spec.md §4.6.3, §7). Context.Execute does not absorb it: as
// with any other error it finalizes the instances that already ran and
// returns the *Exit to its caller; cmd/shannon's run turns it into the
// process exit status (Code).
type Exit struct {
	Code int
}

func (e *Exit) Error() string { return fmt.Sprintf("exit(%d)", e.Code) }
