// Package lexer tokenizes kestrel script/expression source (spec §6.1).
// The concrete grammar is outside spec.md's contractual surface (§1 "Out
// of scope"), but a working lexer/parser is included so the rest of the
// engine is exercisable end-to-end. Positions are tracked with go/token,
// the same bookkeeping breadchris-yaegi uses, so errs.Span renders
// identically to the teacher's debug info.
package lexer

import "go/token"

type Kind int

const (
	EOF Kind = iota
	ERROR

	IDENT
	INT
	BIGINT
	FLOAT
	BIGDEC
	STRING
	CHAR

	// keywords
	KW_var
	KW_let
	KW_const
	KW_final
	KW_if
	KW_else
	KW_while
	KW_do
	KW_for
	KW_break
	KW_continue
	KW_return
	KW_throw
	KW_try
	KW_catch
	KW_finally
	KW_switch
	KW_case
	KW_default
	KW_function
	KW_new
	KW_true
	KW_false
	KW_null
	KW_and
	KW_or
	KW_not
	KW_eq
	KW_ne
	KW_int
	KW_long
	KW_short
	KW_byte
	KW_float
	KW_double
	KW_char
	KW_boolean

	// punctuation / operators
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACK
	RBRACK
	HASH_LBRACK // #[
	HASH_LBRACE // #{
	COMMA
	SEMI
	COLON
	DOT
	DOTDOT
	QUESTION
	QUESTIONDOT
	QUESTIONQUESTION
	ARROW    // ->
	FATARROW // =>
	ELLIPSIS // ...
	DOUBLECOLON // ::

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	SHL
	SHR
	USHR
	BANG
	ANDAND
	OROR
	ASSIGN
	PLUSEQ
	MINUSEQ
	STAREQ
	SLASHEQ
	PERCENTEQ
	AMPEQ
	PIPEEQ
	CARETEQ
	SHLEQ
	SHREQ
	USHREQ
	EQ
	NE
	LT
	LE
	GT
	GE
	MATCH    // =~
	NOTMATCH // !~
	INCR     // ++
	DECR     // --
	AT       // @
)

var keywords = map[string]Kind{
	"var": KW_var, "let": KW_let, "const": KW_const, "final": KW_final,
	"if": KW_if, "else": KW_else, "while": KW_while, "do": KW_do, "for": KW_for,
	"break": KW_break, "continue": KW_continue, "return": KW_return,
	"throw": KW_throw, "try": KW_try, "catch": KW_catch, "finally": KW_finally,
	"switch": KW_switch, "case": KW_case, "default": KW_default,
	"function": KW_function, "new": KW_new,
	"true": KW_true, "false": KW_false, "null": KW_null,
	"and": KW_and, "or": KW_or, "not": KW_not, "eq": KW_eq, "ne": KW_ne,
	"int": KW_int, "long": KW_long, "short": KW_short, "byte": KW_byte,
	"float": KW_float, "double": KW_double, "char": KW_char, "boolean": KW_boolean,
}

type Token struct {
	Kind Kind
	Text string
	Pos  token.Pos
}
