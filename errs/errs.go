// Package errs implements the engine's error taxonomy (spec §7). Every
// error carries the source span where it was detected so hosts can render
// diagnostics without re-walking the AST.
package errs

import (
	"fmt"
	"go/token"

	"github.com/sahilm/fuzzy"
)

// Span locates an error in source text.
type Span struct {
	Start, End token.Pos
	Fset       *token.FileSet
}

func (s Span) String() string {
	if s.Fset == nil || s.Start == token.NoPos {
		return ""
	}
	return s.Fset.Position(s.Start).String()
}

// Kind identifies a taxonomy member, used by try/catch class filters and by
// hosts inspecting errors without type assertions.
type Kind string

const (
	KindParse     Kind = "ParseError"
	KindVariable  Kind = "VariableError"
	KindProperty  Kind = "PropertyError"
	KindMethod    Kind = "MethodError"
	KindAmbiguous Kind = "AmbiguousMethodError"
	KindArithmetic Kind = "ArithmeticError"
	KindAnnotation Kind = "AnnotationError"
	KindSwitch    Kind = "SwitchError"
	KindCancel    Kind = "CancelError"
	KindThrow     Kind = "ThrowError"
)

// Error is the common shape every taxonomy member satisfies.
type Error struct {
	K    Kind
	Name string // variable/property/method/annotation name, when applicable
	Msg  string
	Span Span
	// Value carries the thrown value for ThrowError, or nil otherwise. It is
	// declared as interface{} so errs does not import value (which would
	// create a cycle: value -> errs for OpError wrapping).
	Value interface{}
}

func (e *Error) Error() string {
	loc := e.Span.String()
	if loc != "" {
		loc = loc + ": "
	}
	if e.Name != "" {
		return fmt.Sprintf("%s%s: %s", loc, e.K, e.Name)
	}
	return fmt.Sprintf("%s%s: %s", loc, e.K, e.Msg)
}

func (e *Error) Is(kind Kind) bool { return e.K == kind }

func newErr(k Kind, name, msg string, span Span) *Error {
	return &Error{K: k, Name: name, Msg: msg, Span: span}
}

// ParseError — lexical or grammatical failure.
func ParseError(msg string, span Span) *Error { return newErr(KindParse, "", msg, span) }

// VariableError — unknown variable under strict mode, with a fuzzy
// suggestion against the names visible at the failure point.
func VariableError(name string, visible []string, span Span) *Error {
	e := newErr(KindVariable, name, "undefined variable", span)
	e.Msg = suggestMsg("undefined variable", name, visible)
	return e
}

// PropertyError — unknown or blocked property read/write. Blocked members
// are reported identically to unknown ones so sandbox opacity holds
// (spec §4.3, §8.1.4): never pass the blocked-members set into `visible`.
func PropertyError(name string, visible []string, span Span) *Error {
	e := newErr(KindProperty, name, "undefined property", span)
	e.Msg = suggestMsg("undefined property", name, visible)
	return e
}

// MethodError — unknown, ambiguous, or blocked method/constructor.
func MethodError(name string, visible []string, span Span) *Error {
	e := newErr(KindMethod, name, "undefined method", span)
	e.Msg = suggestMsg("undefined method", name, visible)
	return e
}

// AmbiguousMethodError always surfaces, even under silent mode, since the
// ambiguity is structural (spec §4.2, §7).
func AmbiguousMethodError(name string, span Span) *Error {
	return newErr(KindAmbiguous, name, "ambiguous method call", span)
}

func ArithmeticError(msg string, span Span) *Error { return newErr(KindArithmetic, "", msg, span) }

func AnnotationError(name, msg string, span Span) *Error {
	return newErr(KindAnnotation, name, msg, span)
}

func SwitchError(span Span) *Error {
	return newErr(KindSwitch, "", "no matching case and no default", span)
}

func CancelError(span Span) *Error { return newErr(KindCancel, "", "evaluation cancelled", span) }

func ThrowError(v interface{}, span Span) *Error {
	e := newErr(KindThrow, "", "uncaught throw", span)
	e.Value = v
	return e
}

// suggestMsg appends a fuzzy "did you mean" hint when a close match exists
// among the names visible at the failure point. Grounded on ardnew-aenv's
// use of github.com/sahilm/fuzzy for command-name suggestions.
func suggestMsg(base, name string, visible []string) string {
	if len(visible) == 0 {
		return base
	}
	matches := fuzzy.Find(name, visible)
	if len(matches) == 0 || matches[0].Score < 0 {
		return base
	}
	return fmt.Sprintf("%s; did you mean %q?", base, matches[0].Str)
}

// AsError extracts *Error from err, if any.
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
