package types

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// UnterminatedLoop is an opening bracket that is never closed.
	UnterminatedLoop ErrorKind = iota + 1
	// UnmatchedTerminator is a closing bracket with no open loop.
	UnmatchedTerminator
)

// Message returns the diagnostic text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case UnterminatedLoop:
		return "unterminated loop"
	case UnmatchedTerminator:
		return "no loop to terminate"
	}
	return "syntax error"
}

// RuleID returns a stable identifier for machine-readable reports.
func (k ErrorKind) RuleID() string {
	switch k {
	case UnterminatedLoop:
		return "bfc.unterminated-loop"
	case UnmatchedTerminator:
		return "bfc.unmatched-terminator"
	}
	return "bfc.syntax"
}

// ParseError is a single syntax problem found while building the tree.
type ParseError struct {
	Kind    ErrorKind `json:"-"`
	Rule    string    `json:"rule"`
	Message string    `json:"message"`
	Loc     Location  `json:"loc"`
}

// NewParseError creates a ParseError of the given kind at loc.
func NewParseError(kind ErrorKind, loc Location) *ParseError {
	return &ParseError{
		Kind:    kind,
		Rule:    kind.RuleID(),
		Message: kind.Message(),
		Loc:     loc,
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// ParseErrors is every problem collected from one parse, in report order.
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	msgs := make([]string, len(e))
	for i, pe := range e {
		msgs[i] = pe.Error()
	}
	return strings.Join(msgs, "\n")
}
