// Package ast defines the node set the parser produces and the
// interpreter walks (spec §4.5). Nodes are plain data; all evaluation
// behavior lives in package interp, mirroring breadchris-yaegi's
// separation of a node's static shape (child/anc/kind) from its generated
// executable behavior (action/exec).
package ast

import "go/token"

// Kind tags the syntactic form of a Node.
type Kind int

const (
	// Literals
	KindNullLit Kind = iota
	KindBoolLit
	KindCharLit
	KindIntLit
	KindBigIntLit
	KindFloatLit
	KindBigDecimalLit
	KindStringLit
	KindListLit
	KindSetLit
	KindMapLit

	// Names and access
	KindIdent
	KindMember     // a.b
	KindIndex      // a[k] or a[i,j] (multi-index, Children holds each index)
	KindSafeMember // a?.b

	// Operators
	KindBinary
	KindUnary
	KindAssign
	KindTernary     // a ? b : c
	KindCoalesce    // a ?? b
	KindLogicalAnd
	KindLogicalOr

	// Calls
	KindCall        // f(args) or obj.m(args)
	KindNamespaceCall // ns:fn(args)
	KindNew         // new(Class, args)
	KindMethodRefLit // Obj::name or Obj::new

	// Closures
	KindFuncLit

	// Statements
	KindBlock
	KindExprStmt
	KindVarDecl
	KindDestructureDecl
	KindIf
	KindWhile
	KindDoWhile
	KindForClassic
	KindForIn
	KindBreak
	KindContinue
	KindReturn
	KindThrow
	KindTry
	KindSwitchStmt
	KindSwitchExpr

	// Projections
	KindFilter     // coll.(predicate)
	KindProjection // coll.[projector]
	KindExpand     // ...expr before an iterator target

	// Annotations
	KindAnnotation
)

// DeclType names a typed declaration's storage type ("int x = ...").
type DeclType int

const (
	DeclAny DeclType = iota
	DeclBoolean
	DeclChar
	DeclByte
	DeclShort
	DeclInt
	DeclLong
	DeclFloat
	DeclDouble
	DeclBigInt
	DeclBigDecimal
	DeclString
)

// Node is the single AST node type for the whole language surface. Fields
// not relevant to Kind are left zero, matching the teacher's single
// generic `node` struct (breadchris-yaegi/interp/interp.go) rather than a
// Go sum type per construct — this keeps the parser and interpreter
// symmetric and avoids a large sealed-interface hierarchy for a tree that
// is only ever walked, never pattern-matched exhaustively by a compiler.
type Node struct {
	Kind     Kind
	Pos, End token.Pos

	// Identifiers / names
	Name string

	// Literal payloads
	BoolVal   bool
	CharVal   rune
	IntVal    int64
	StringVal string // also used for BigInt/BigDecimal literal text and pattern text

	// Declarations
	DeclType   DeclType
	Final      bool
	Let        bool
	Names      []string // destructuring targets

	// Operators
	Op string // "+", "-", "&&", "=", "+=", "=~", etc.

	// Children, by construct:
	//  Binary:        [left, right]
	//  Unary:         [operand]
	//  Assign:        [target, value]
	//  Ternary:       [cond, then, else]
	//  Coalesce/And/Or: [left, right]
	//  Member:        [object]              (Name = member name)
	//  SafeMember:    [object]              (Name = member name)
	//  Index:         [object, key1, key2, ...]
	//  Call:          [callee, arg1, ...]
	//  NamespaceCall: [arg1, ...]            (Name = "ns:fn")
	//  New:           [arg1, ...]            (Name = class name)
	//  MethodRefLit:  [object-or-nil]        (Name = method name, "new" for ctor ref)
	//  FuncLit:       [body]                 (Names = parameter names)
	//  Block:         [stmt1, stmt2, ...]
	//  ExprStmt:      [expr]
	//  VarDecl:       [init]  (nil child = no initializer)
	//  DestructureDecl: [init]
	//  If:            [cond, then, else-or-nil]
	//  While/DoWhile: [cond, body]
	//  ForClassic:    [init, cond, update, body]
	//  ForIn:         [iterable, body]        (Name = loop variable)
	//  Return/Throw:  [value-or-nil]
	//  Try:           [body, catchBody-or-nil, finallyBody-or-nil] (resources in Resources, see Try extras below)
	//  SwitchStmt/Expr: [subject]            (arms in Cases, see Switch extras below)
	//  Filter/Projection: [collection, predicate]
	//  Expand:        [target]
	//  Annotation:    [arg1, ..., stmt]      (Name = annotation name)
	Children []*Node

	// FuncLit extras
	ParamDefaults []*Node // parallel to Names; nil entry = required param

	// Try extras
	Resources   []*TryResource
	CatchBind   string
	CatchFinal  bool // const binding is read-only within handler
	CatchFilter string // optional class-name filter on the exception binding

	// Switch extras
	Cases   []*SwitchCase
	IsSwitchExpr bool
}

// TryResource is one `decl` in `try(decl1; decl2; ...) { ... }`.
type TryResource struct {
	Name string
	Let  bool
	Init *Node
}

// SwitchCase is one `case a,b -> expr` / `case a: stmt` arm. Labels may be
// arbitrary expressions (DESIGN.md Open Question 2). Default has no
// Labels.
type SwitchCase struct {
	Labels  []*Node
	Body    []*Node // statement form: may fall through; expression form: single expr
	IsArrow bool    // arrow form never falls through
	Default bool
}

func New(kind Kind, pos token.Pos) *Node { return &Node{Kind: kind, Pos: pos} }

func (n *Node) WithChildren(children ...*Node) *Node {
	n.Children = children
	return n
}
