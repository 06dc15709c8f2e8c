// Package parser turns a lexer.Token stream into an ast.Node tree (spec
// §4.5, §6.1). No pack repo carries a hand-rolled expression-language
// parser (breadchris-yaegi parses actual Go source with go/parser; the
// rest of the pack has no grammar at all), so this is a conventional
// precedence-climbing recursive descent parser, following the same
// token/node separation the teacher draws between lexing and the tree it
// walks. See DESIGN.md for the grounding note.
package parser

import (
	"fmt"
	"go/token"

	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/lexer"
)

type Parser struct {
	lx   *lexer.Lexer
	fset *token.FileSet
	tok  lexer.Token
	ahead []lexer.Token
}

func New(fset *token.FileSet, filename, src string) *Parser {
	lx := lexer.New(fset, filename, src)
	p := &Parser{lx: lx, fset: fset}
	p.tok = p.lx.Next()
	return p
}

func (p *Parser) span(start token.Pos) errs.Span {
	return errs.Span{Start: start, End: p.tok.Pos, Fset: p.fset}
}

func (p *Parser) next() lexer.Token {
	cur := p.tok
	if len(p.ahead) > 0 {
		p.tok = p.ahead[0]
		p.ahead = p.ahead[1:]
	} else {
		p.tok = p.lx.Next()
	}
	return cur
}

func (p *Parser) peek2() lexer.Token {
	if len(p.ahead) == 0 {
		p.ahead = append(p.ahead, p.lx.Next())
	}
	return p.ahead[0]
}

// peekAt returns the token n positions past the current one (peekAt(1) ==
// peek2()), buffering as many tokens as needed. Used for multi-token
// lookahead decisions that don't warrant a full scratch-lexer scan.
func (p *Parser) peekAt(n int) lexer.Token {
	for len(p.ahead) < n {
		p.ahead = append(p.ahead, p.lx.Next())
	}
	return p.ahead[n-1]
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if p.tok.Kind != k {
		return lexer.Token{}, errs.ParseError(fmt.Sprintf("expected %s, found %q", what, p.tok.Text), p.span(p.tok.Pos))
	}
	return p.next(), nil
}

func (p *Parser) at(k lexer.Kind) bool { return p.tok.Kind == k }

// ParseProgram parses a top-level sequence of statements (the body of a
// script or a single trailing expression statement for an expression).
func (p *Parser) ParseProgram() (*ast.Node, error) {
	start := p.tok.Pos
	var stmts []*ast.Node
	for !p.at(lexer.EOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	n := ast.New(ast.KindBlock, start)
	n.End = p.tok.Pos
	n.Children = stmts
	return n, nil
}

// --- Statements --------------------------------------------------------

func (p *Parser) parseBlock() (*ast.Node, error) {
	start, err := p.expect(lexer.LBRACE, "'{'")
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindBlock, start.Pos)
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, s)
	}
	end, err := p.expect(lexer.RBRACE, "'}'")
	if err != nil {
		return nil, err
	}
	n.End = end.Pos
	return n, nil
}

func (p *Parser) parseStatement() (*ast.Node, error) {
	switch p.tok.Kind {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.KW_var, lexer.KW_let, lexer.KW_const, lexer.KW_final,
		lexer.KW_int, lexer.KW_long, lexer.KW_short, lexer.KW_byte,
		lexer.KW_float, lexer.KW_double, lexer.KW_char, lexer.KW_boolean:
		return p.parseVarDecl()
	case lexer.KW_if:
		return p.parseIf()
	case lexer.KW_while:
		return p.parseWhile()
	case lexer.KW_do:
		return p.parseDoWhile()
	case lexer.KW_for:
		return p.parseFor()
	case lexer.KW_break:
		start := p.next()
		p.optSemi()
		return ast.New(ast.KindBreak, start.Pos), nil
	case lexer.KW_continue:
		start := p.next()
		p.optSemi()
		return ast.New(ast.KindContinue, start.Pos), nil
	case lexer.KW_return:
		start := p.next()
		n := ast.New(ast.KindReturn, start.Pos)
		if !p.atStmtEnd() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Children = []*ast.Node{e}
		}
		p.optSemi()
		return n, nil
	case lexer.KW_throw:
		start := p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.optSemi()
		n := ast.New(ast.KindThrow, start.Pos)
		n.Children = []*ast.Node{e}
		return n, nil
	case lexer.KW_try:
		return p.parseTry()
	case lexer.KW_switch:
		return p.parseSwitch(false)
	case lexer.AT:
		return p.parseAnnotation()
	case lexer.SEMI:
		start := p.next()
		return ast.New(ast.KindBlock, start.Pos), nil
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.optSemi()
		n := ast.New(ast.KindExprStmt, e.Pos)
		n.Children = []*ast.Node{e}
		return n, nil
	}
}

func (p *Parser) optSemi() {
	if p.at(lexer.SEMI) {
		p.next()
	}
}

func (p *Parser) atStmtEnd() bool {
	return p.at(lexer.SEMI) || p.at(lexer.RBRACE) || p.at(lexer.EOF)
}

func declTypeFor(k lexer.Kind) (ast.DeclType, bool) {
	switch k {
	case lexer.KW_int:
		return ast.DeclInt, true
	case lexer.KW_long:
		return ast.DeclLong, true
	case lexer.KW_short:
		return ast.DeclShort, true
	case lexer.KW_byte:
		return ast.DeclByte, true
	case lexer.KW_float:
		return ast.DeclFloat, true
	case lexer.KW_double:
		return ast.DeclDouble, true
	case lexer.KW_char:
		return ast.DeclChar, true
	case lexer.KW_boolean:
		return ast.DeclBoolean, true
	}
	return ast.DeclAny, false
}

func (p *Parser) parseVarDecl() (*ast.Node, error) {
	start := p.tok.Pos
	final := false
	let := false
	declType := ast.DeclAny

	for {
		switch p.tok.Kind {
		case lexer.KW_final, lexer.KW_const:
			final = true
			p.next()
			continue
		case lexer.KW_let:
			let = true
			p.next()
			continue
		case lexer.KW_var:
			p.next()
			continue
		}
		if dt, ok := declTypeFor(p.tok.Kind); ok {
			declType = dt
			p.next()
		}
		break
	}

	if p.at(lexer.LPAREN) {
		return p.parseDestructureDecl(start, let, final)
	}

	nameTok, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindVarDecl, start)
	n.Name = nameTok.Text
	n.Let = let
	n.Final = final
	n.DeclType = declType
	if p.at(lexer.ASSIGN) {
		p.next()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Children = []*ast.Node{init}
	}
	p.optSemi()
	return n, nil
}

func (p *Parser) parseDestructureDecl(start token.Pos, let, final bool) (*ast.Node, error) {
	p.next() // (
	var names []string
	for !p.at(lexer.RPAREN) {
		tok, err := p.expect(lexer.IDENT, "identifier")
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Text)
		if p.at(lexer.COMMA) {
			p.next()
		}
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindDestructureDecl, start)
	n.Names = names
	n.Let = let
	n.Final = final
	n.Children = []*ast.Node{init}
	p.optSemi()
	return n, nil
}

func (p *Parser) parseIf() (*ast.Node, error) {
	start := p.next()
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindIf, start.Pos)
	var els *ast.Node
	if p.at(lexer.KW_else) {
		p.next()
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	n.Children = []*ast.Node{cond, then, els}
	return n, nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	start := p.next()
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindWhile, start.Pos)
	n.Children = []*ast.Node{cond, body}
	return n, nil
}

func (p *Parser) parseDoWhile() (*ast.Node, error) {
	start := p.next()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KW_while, "'while'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	p.optSemi()
	n := ast.New(ast.KindDoWhile, start.Pos)
	n.Children = []*ast.Node{cond, body}
	return n, nil
}

// parseFor disambiguates `for (var x : iterable)` from classic
// `for (init; cond; update)` by checking whether the header starts with a
// loop variable followed by ':' (see lookaheadForIn).
func (p *Parser) parseFor() (*ast.Node, error) {
	start := p.next()
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}

	expand := false
	if p.at(lexer.ELLIPSIS) {
		expand = true
		p.next()
	}

	// peek ahead for classic vs for-in: classic always has a ';' before
	// the matching ')' at depth 0; for-in has a top-level ':'.
	isForIn := p.lookaheadForIn()

	if isForIn {
		let := false
		for p.tok.Kind == lexer.KW_var || p.tok.Kind == lexer.KW_let {
			let = p.tok.Kind == lexer.KW_let
			p.next()
		}
		nameTok, err := p.expect(lexer.IDENT, "identifier")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		var iter *ast.Node
		if expand {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ex := ast.New(ast.KindExpand, e.Pos)
			ex.Children = []*ast.Node{e}
			iter = ex
		} else {
			iter, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindForIn, start.Pos)
		n.Name = nameTok.Text
		n.Let = let
		n.Children = []*ast.Node{iter, body}
		return n, nil
	}

	var initStmt *ast.Node
	var err error
	if !p.at(lexer.SEMI) {
		initStmt, err = p.parseSimpleDeclOrExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI, "';'"); err != nil {
		return nil, err
	}
	var cond *ast.Node
	if !p.at(lexer.SEMI) {
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI, "';'"); err != nil {
		return nil, err
	}
	var update *ast.Node
	if !p.at(lexer.RPAREN) {
		update, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindForClassic, start.Pos)
	n.Children = []*ast.Node{initStmt, cond, update, body}
	return n, nil
}

// lookaheadForIn reports whether the tokens after '(' (already consumed,
// pos at first inner token) start a for-in header, `IDENT ':'` or
// `var|let IDENT ':'`, peeking without consuming any token.
func (p *Parser) lookaheadForIn() bool {
	// A short lookahead is enough: kestrel's for-in binds a bare
	// name (optionally var/let-qualified) directly followed by ':', while
	// classic for always starts with a declaration or expression that
	// cannot be a lone identifier immediately before ':'.
	if p.tok.Kind == lexer.KW_var || p.tok.Kind == lexer.KW_let {
		return p.peekAt(1).Kind == lexer.IDENT && p.peekAt(2).Kind == lexer.COLON
	}
	if p.tok.Kind == lexer.IDENT {
		return p.peek2().Kind == lexer.COLON
	}
	return false
}

func (p *Parser) parseSimpleDeclOrExpr() (*ast.Node, error) {
	switch p.tok.Kind {
	case lexer.KW_var, lexer.KW_let, lexer.KW_const, lexer.KW_final:
		return p.parseVarDeclNoSemi()
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindExprStmt, e.Pos)
		n.Children = []*ast.Node{e}
		return n, nil
	}
}

func (p *Parser) parseVarDeclNoSemi() (*ast.Node, error) {
	start := p.tok.Pos
	final := false
	let := false
	for p.tok.Kind == lexer.KW_final || p.tok.Kind == lexer.KW_const || p.tok.Kind == lexer.KW_let || p.tok.Kind == lexer.KW_var {
		if p.tok.Kind == lexer.KW_final || p.tok.Kind == lexer.KW_const {
			final = true
		}
		if p.tok.Kind == lexer.KW_let {
			let = true
		}
		p.next()
	}
	nameTok, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindVarDecl, start)
	n.Name = nameTok.Text
	n.Let = let
	n.Final = final
	if p.at(lexer.ASSIGN) {
		p.next()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Children = []*ast.Node{init}
	}
	return n, nil
}

func (p *Parser) parseTry() (*ast.Node, error) {
	start := p.next()
	n := ast.New(ast.KindTry, start.Pos)
	if p.at(lexer.LPAREN) {
		p.next()
		for !p.at(lexer.RPAREN) {
			let := false
			if p.tok.Kind == lexer.KW_let {
				let = true
				p.next()
			} else if p.tok.Kind == lexer.KW_var {
				p.next()
			}
			nameTok, err := p.expect(lexer.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
				return nil, err
			}
			init, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Resources = append(n.Resources, &ast.TryResource{Name: nameTok.Text, Let: let, Init: init})
			if p.at(lexer.SEMI) {
				p.next()
			}
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var catchBody, finallyBody *ast.Node
	if p.at(lexer.KW_catch) {
		p.next()
		if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
			return nil, err
		}
		final := false
		if p.tok.Kind == lexer.KW_final {
			final = true
			p.next()
		}
		bindTok, err := p.expect(lexer.IDENT, "identifier")
		if err != nil {
			return nil, err
		}
		n.CatchBind = bindTok.Text
		n.CatchFinal = final
		if p.at(lexer.COLON) {
			p.next()
			filterTok, err := p.expect(lexer.IDENT, "class name")
			if err != nil {
				return nil, err
			}
			n.CatchFilter = filterTok.Text
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		catchBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.KW_finally) {
		p.next()
		var err error
		finallyBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	n.Children = []*ast.Node{body, catchBody, finallyBody}
	return n, nil
}

func (p *Parser) parseSwitch(forceExpr bool) (*ast.Node, error) {
	start := p.next()
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE, "'{'"); err != nil {
		return nil, err
	}

	var cases []*ast.SwitchCase
	isExprForm := false
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		c := &ast.SwitchCase{}
		if p.at(lexer.KW_default) {
			p.next()
			c.Default = true
		} else {
			if _, err := p.expect(lexer.KW_case, "'case'"); err != nil {
				return nil, err
			}
			for {
				lbl, err := p.parseTernary()
				if err != nil {
					return nil, err
				}
				c.Labels = append(c.Labels, lbl)
				if p.at(lexer.COMMA) {
					p.next()
					continue
				}
				break
			}
		}
		switch {
		case p.at(lexer.FATARROW) || p.at(lexer.ARROW):
			p.next()
			c.IsArrow = true
			isExprForm = true
			e, err := p.parseArrowBody()
			if err != nil {
				return nil, err
			}
			c.Body = []*ast.Node{e}
		case p.at(lexer.COLON):
			p.next()
			for !p.at(lexer.KW_case) && !p.at(lexer.KW_default) && !p.at(lexer.RBRACE) {
				s, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				c.Body = append(c.Body, s)
			}
		default:
			return nil, errs.ParseError("expected '->' or ':' after case label", p.span(p.tok.Pos))
		}
		cases = append(cases, c)
	}
	end, err := p.expect(lexer.RBRACE, "'}'")
	if err != nil {
		return nil, err
	}

	kind := ast.KindSwitchStmt
	if isExprForm || forceExpr {
		kind = ast.KindSwitchExpr
	}
	n := ast.New(kind, start.Pos)
	n.End = end.Pos
	n.Children = []*ast.Node{subject}
	n.Cases = cases
	n.IsSwitchExpr = kind == ast.KindSwitchExpr
	return n, nil
}

func (p *Parser) parseArrowBody() (*ast.Node, error) {
	if p.at(lexer.LBRACE) {
		return p.parseBlock()
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.SEMI) {
		p.next()
	}
	return e, nil
}

func (p *Parser) parseAnnotation() (*ast.Node, error) {
	start := p.next() // @
	nameTok, err := p.expect(lexer.IDENT, "annotation name")
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindAnnotation, start.Pos)
	n.Name = nameTok.Text
	if p.at(lexer.LPAREN) {
		p.next()
		for !p.at(lexer.RPAREN) {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, a)
			if p.at(lexer.COMMA) {
				p.next()
			}
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, stmt)
	return n, nil
}

// --- Expressions (precedence climbing) ---------------------------------

func (p *Parser) parseExpr() (*ast.Node, error) { return p.parseAssign() }

var assignOps = map[lexer.Kind]string{
	lexer.ASSIGN: "=", lexer.PLUSEQ: "+=", lexer.MINUSEQ: "-=", lexer.STAREQ: "*=",
	lexer.SLASHEQ: "/=", lexer.PERCENTEQ: "%=", lexer.AMPEQ: "&=", lexer.PIPEEQ: "|=",
	lexer.CARETEQ: "^=", lexer.SHLEQ: "<<=", lexer.SHREQ: ">>=", lexer.USHREQ: ">>>=",
}

func (p *Parser) parseAssign() (*ast.Node, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.tok.Kind]; ok {
		p.next()
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindAssign, left.Pos)
		n.Op = op
		n.Children = []*ast.Node{left, right}
		return n, nil
	}
	return left, nil
}

func (p *Parser) parseTernary() (*ast.Node, error) {
	cond, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.QUESTION) {
		p.next()
		then, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		els, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindTernary, cond.Pos)
		n.Children = []*ast.Node{cond, then, els}
		return n, nil
	}
	return cond, nil
}

func (p *Parser) parseCoalesce() (*ast.Node, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.QUESTIONQUESTION) {
		p.next()
		right, err := p.parseLogicalOr()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindCoalesce, left.Pos)
		n.Children = []*ast.Node{left, right}
		left = n
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (*ast.Node, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OROR) || p.at(lexer.KW_or) {
		p.next()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindLogicalOr, left.Pos)
		n.Children = []*ast.Node{left, right}
		left = n
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (*ast.Node, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.ANDAND) || p.at(lexer.KW_and) {
		p.next()
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindLogicalAnd, left.Pos)
		n.Children = []*ast.Node{left, right}
		left = n
	}
	return left, nil
}

func (p *Parser) binaryLevel(next func() (*ast.Node, error), ops map[lexer.Kind]string) (*ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.tok.Kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := next()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindBinary, left.Pos)
		n.Op = op
		n.Children = []*ast.Node{left, right}
		left = n
	}
}

func (p *Parser) parseBitOr() (*ast.Node, error) {
	return p.binaryLevel(p.parseBitXor, map[lexer.Kind]string{lexer.PIPE: "|"})
}
func (p *Parser) parseBitXor() (*ast.Node, error) {
	return p.binaryLevel(p.parseBitAnd, map[lexer.Kind]string{lexer.CARET: "^"})
}
func (p *Parser) parseBitAnd() (*ast.Node, error) {
	return p.binaryLevel(p.parseEquality, map[lexer.Kind]string{lexer.AMP: "&"})
}

func (p *Parser) parseEquality() (*ast.Node, error) {
	return p.binaryLevel(p.parseRelational, map[lexer.Kind]string{
		lexer.EQ: "==", lexer.NE: "!=", lexer.KW_eq: "eq", lexer.KW_ne: "ne",
		lexer.MATCH: "=~", lexer.NOTMATCH: "!~",
	})
}

func (p *Parser) parseRelational() (*ast.Node, error) {
	return p.binaryLevel(p.parseShift, map[lexer.Kind]string{
		lexer.LT: "<", lexer.LE: "<=", lexer.GT: ">", lexer.GE: ">=",
	})
}

func (p *Parser) parseShift() (*ast.Node, error) {
	return p.binaryLevel(p.parseAdditive, map[lexer.Kind]string{
		lexer.SHL: "<<", lexer.SHR: ">>", lexer.USHR: ">>>",
	})
}

func (p *Parser) parseAdditive() (*ast.Node, error) {
	return p.binaryLevel(p.parseMultiplicative, map[lexer.Kind]string{
		lexer.PLUS: "+", lexer.MINUS: "-",
	})
}

func (p *Parser) parseMultiplicative() (*ast.Node, error) {
	return p.binaryLevel(p.parseRange, map[lexer.Kind]string{
		lexer.STAR: "*", lexer.SLASH: "/", lexer.PERCENT: "%",
	})
}

func (p *Parser) parseRange() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.DOTDOT) {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindBinary, left.Pos)
		n.Op = ".."
		n.Children = []*ast.Node{left, right}
		return n, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	switch p.tok.Kind {
	case lexer.BANG, lexer.KW_not:
		start := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindUnary, start.Pos)
		n.Op = "!"
		n.Children = []*ast.Node{operand}
		return n, nil
	case lexer.MINUS:
		start := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindUnary, start.Pos)
		n.Op = "-"
		n.Children = []*ast.Node{operand}
		return n, nil
	case lexer.TILDE:
		start := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindUnary, start.Pos)
		n.Op = "~"
		n.Children = []*ast.Node{operand}
		return n, nil
	case lexer.INCR, lexer.DECR:
		op := "++"
		if p.tok.Kind == lexer.DECR {
			op = "--"
		}
		start := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindUnary, start.Pos)
		n.Op = "pre" + op
		n.Children = []*ast.Node{operand}
		return n, nil
	case lexer.ELLIPSIS:
		start := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindExpand, start.Pos)
		n.Children = []*ast.Node{operand}
		return n, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case lexer.DOT:
			p.next()
			n, err = p.parseDotSuffix(n, false)
			if err != nil {
				return nil, err
			}
		case lexer.QUESTIONDOT:
			p.next()
			memberTok, err := p.expect(lexer.IDENT, "member name")
			if err != nil {
				return nil, err
			}
			m := ast.New(ast.KindSafeMember, n.Pos)
			m.Name = memberTok.Text
			m.Children = []*ast.Node{n}
			n = m
		case lexer.LBRACK:
			p.next()
			var idx []*ast.Node
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				idx = append(idx, e)
				if p.at(lexer.COMMA) {
					p.next()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RBRACK, "']'"); err != nil {
				return nil, err
			}
			idxNode := ast.New(ast.KindIndex, n.Pos)
			idxNode.Children = append([]*ast.Node{n}, idx...)
			n = idxNode
		case lexer.LPAREN:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			c := ast.New(ast.KindCall, n.Pos)
			c.Children = append([]*ast.Node{n}, args...)
			n = c
		case lexer.DOUBLECOLON:
			p.next()
			if p.at(lexer.KW_new) {
				p.next()
				m := ast.New(ast.KindMethodRefLit, n.Pos)
				m.Name = "new"
				m.Children = []*ast.Node{n}
				n = m
				continue
			}
			nameTok, err := p.expect(lexer.IDENT, "method name")
			if err != nil {
				return nil, err
			}
			m := ast.New(ast.KindMethodRefLit, n.Pos)
			m.Name = nameTok.Text
			m.Children = []*ast.Node{n}
			n = m
		case lexer.INCR, lexer.DECR:
			op := "post++"
			if p.tok.Kind == lexer.DECR {
				op = "post--"
			}
			p.next()
			u := ast.New(ast.KindUnary, n.Pos)
			u.Op = op
			u.Children = []*ast.Node{n}
			n = u
		default:
			return n, nil
		}
	}
}

// parseDotSuffix handles `.name`, `.0` (integer element access), filter
// `.(pred)`, and projection `.[proj]` after a consumed '.'.
func (p *Parser) parseDotSuffix(recv *ast.Node, safe bool) (*ast.Node, error) {
	switch p.tok.Kind {
	case lexer.LPAREN:
		p.next()
		pred, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		n := ast.New(ast.KindFilter, recv.Pos)
		n.Children = []*ast.Node{recv, pred}
		return n, nil
	case lexer.LBRACK:
		p.next()
		proj, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACK, "']'"); err != nil {
			return nil, err
		}
		n := ast.New(ast.KindProjection, recv.Pos)
		n.Children = []*ast.Node{recv, proj}
		return n, nil
	case lexer.INT:
		tok := p.next()
		n := ast.New(ast.KindIndex, recv.Pos)
		lit := ast.New(ast.KindIntLit, tok.Pos)
		lit.IntVal = parseIntLit(tok.Text)
		n.Children = []*ast.Node{recv, lit}
		return n, nil
	default:
		nameTok, err := p.expect(lexer.IDENT, "member name")
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindMember, recv.Pos)
		n.Name = nameTok.Text
		n.Children = []*ast.Node{recv}
		return n, nil
	}
}

func (p *Parser) parseArgs() ([]*ast.Node, error) {
	p.next() // (
	var args []*ast.Node
	for !p.at(lexer.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	start := p.tok
	switch start.Kind {
	case lexer.KW_null:
		p.next()
		return ast.New(ast.KindNullLit, start.Pos), nil
	case lexer.KW_true, lexer.KW_false:
		p.next()
		n := ast.New(ast.KindBoolLit, start.Pos)
		n.BoolVal = start.Kind == lexer.KW_true
		return n, nil
	case lexer.INT:
		p.next()
		n := ast.New(ast.KindIntLit, start.Pos)
		n.IntVal = parseIntLit(start.Text)
		return n, nil
	case lexer.BIGINT:
		p.next()
		n := ast.New(ast.KindBigIntLit, start.Pos)
		n.StringVal = start.Text
		return n, nil
	case lexer.FLOAT:
		p.next()
		n := ast.New(ast.KindFloatLit, start.Pos)
		n.StringVal = start.Text
		return n, nil
	case lexer.BIGDEC:
		p.next()
		n := ast.New(ast.KindBigDecimalLit, start.Pos)
		n.StringVal = start.Text
		return n, nil
	case lexer.STRING:
		p.next()
		n := ast.New(ast.KindStringLit, start.Pos)
		n.StringVal = start.Text
		return n, nil
	case lexer.CHAR:
		p.next()
		n := ast.New(ast.KindCharLit, start.Pos)
		if len(start.Text) > 0 {
			n.CharVal = []rune(start.Text)[0]
		}
		return n, nil
	case lexer.IDENT:
		// namespaced call ns:fn(args) — lexer emits ':' as COLON, so
		// detect "ident COLON ident LPAREN" without consuming a statement
		// colon context (only valid at expression position).
		if p.peek2().Kind == lexer.COLON && p.peekAt(2).Kind == lexer.IDENT && p.peekAt(3).Kind == lexer.LPAREN {
			ns := start.Text
			p.next()
			p.next() // colon
			fnTok, err := p.expect(lexer.IDENT, "namespace function")
			if err != nil {
				return nil, err
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			n := ast.New(ast.KindNamespaceCall, start.Pos)
			n.Name = ns + ":" + fnTok.Text
			n.Children = args
			return n, nil
		}
		p.next()
		return p.maybeArrowLambda(start)
	case lexer.KW_function:
		return p.parseFunctionLit()
	case lexer.KW_new:
		return p.parseNew()
	case lexer.KW_switch:
		return p.parseSwitch(true)
	case lexer.LPAREN:
		return p.parseParenOrLambda()
	case lexer.LBRACK:
		return p.parseListLit(false)
	case lexer.HASH_LBRACK:
		return p.parseListLit(true)
	case lexer.LBRACE:
		return p.parseBraceLit(false)
	case lexer.HASH_LBRACE:
		return p.parseBraceLit(true)
	}
	return nil, errs.ParseError(fmt.Sprintf("unexpected token %q", start.Text), p.span(start.Pos))
}

// maybeArrowLambda handles the single-param arrow form `x -> expr` /
// `x => expr` following a bare identifier.
func (p *Parser) maybeArrowLambda(nameTok lexer.Token) (*ast.Node, error) {
	if p.at(lexer.ARROW) || p.at(lexer.FATARROW) {
		p.next()
		body, err := p.parseArrowBody()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindFuncLit, nameTok.Pos)
		n.Names = []string{nameTok.Text}
		n.ParamDefaults = []*ast.Node{nil}
		n.Children = []*ast.Node{wrapExprAsBlock(body)}
		return n, nil
	}
	n := ast.New(ast.KindIdent, nameTok.Pos)
	n.Name = nameTok.Text
	return n, nil
}

func wrapExprAsBlock(n *ast.Node) *ast.Node {
	if n.Kind == ast.KindBlock {
		return n
	}
	b := ast.New(ast.KindBlock, n.Pos)
	es := ast.New(ast.KindExprStmt, n.Pos)
	es.Children = []*ast.Node{n}
	b.Children = []*ast.Node{es}
	return b
}

func (p *Parser) parseFunctionLit() (*ast.Node, error) {
	start := p.next() // function
	var names []string
	var defaults []*ast.Node
	if p.at(lexer.LPAREN) {
		p.next()
		for !p.at(lexer.RPAREN) {
			nameTok, err := p.expect(lexer.IDENT, "parameter name")
			if err != nil {
				return nil, err
			}
			names = append(names, nameTok.Text)
			if p.at(lexer.ASSIGN) {
				p.next()
				d, err := p.parseTernary()
				if err != nil {
					return nil, err
				}
				defaults = append(defaults, d)
			} else {
				defaults = append(defaults, nil)
			}
			if p.at(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.KindFuncLit, start.Pos)
	n.Names = names
	n.ParamDefaults = defaults
	n.Children = []*ast.Node{body}
	return n, nil
}

// parseParenOrLambda disambiguates `(expr)` from `(x, y) -> ...` by
// scanning to the matching ')' and checking whether '->'/'=>' follows.
func (p *Parser) parseParenOrLambda() (*ast.Node, error) {
	start := p.next() // (
	if p.at(lexer.RPAREN) {
		p.next()
		if p.at(lexer.ARROW) || p.at(lexer.FATARROW) {
			p.next()
			body, err := p.parseArrowBody()
			if err != nil {
				return nil, err
			}
			n := ast.New(ast.KindFuncLit, start.Pos)
			n.Children = []*ast.Node{wrapExprAsBlock(body)}
			return n, nil
		}
		return nil, errs.ParseError("empty parentheses is not a valid expression", p.span(start.Pos))
	}

	// Try lambda-param-list shape: IDENT (',' IDENT)*  ')'  ('->'|'=>').
	// Decided with a side-effect-free scratch scan first (see
	// lambdaParamListLookahead) so a failed guess never loses tokens
	// pulled fresh from the lexer mid-trial.
	if p.at(lexer.IDENT) && p.lambdaParamListLookahead() {
		names, ok := p.tryParseIdentList()
		if !ok {
			return nil, errs.ParseError("malformed lambda parameter list", p.span(start.Pos))
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		p.next() // '->' or '=>'
		body, err := p.parseArrowBody()
		if err != nil {
			return nil, err
		}
		n := ast.New(ast.KindFuncLit, start.Pos)
		n.Names = names
		n.ParamDefaults = make([]*ast.Node, len(names))
		n.Children = []*ast.Node{wrapExprAsBlock(body)}
		return n, nil
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return e, nil
}

// tryParseIdentList consumes IDENT (',' IDENT)* and leaves the closing
// ')' for the caller. Only called after lambdaParamListLookahead has
// already confirmed the shape, so failure here indicates an internal
// inconsistency rather than a normal parse alternative.
func (p *Parser) tryParseIdentList() ([]string, bool) {
	var names []string
	for {
		if !p.at(lexer.IDENT) {
			return nil, false
		}
		names = append(names, p.tok.Text)
		p.next()
		if p.at(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.at(lexer.RPAREN) {
		return nil, false
	}
	return names, true
}

// lambdaParamListLookahead decides, without mutating parser state, whether
// the tokens starting at the current '(' 's first inner token form
// `IDENT (',' IDENT)* ')' ('->'|'=>')`. It replays the already-buffered
// lookahead token plus, if needed, fresh tokens from a cloned lexer so the
// real token stream is never disturbed by a failed guess.
func (p *Parser) lambdaParamListLookahead() bool {
	buf := append([]lexer.Token{p.tok}, p.ahead...)
	clone := p.lx.Clone()
	idx := 0
	peek := func() lexer.Token {
		if idx < len(buf) {
			return buf[idx]
		}
		t := clone.Next()
		buf = append(buf, t)
		return t
	}
	advance := func() { idx++ }

	for {
		t := peek()
		if t.Kind != lexer.IDENT {
			return false
		}
		advance()
		if peek().Kind == lexer.COMMA {
			advance()
			continue
		}
		break
	}
	if peek().Kind != lexer.RPAREN {
		return false
	}
	advance()
	k := peek().Kind
	return k == lexer.ARROW || k == lexer.FATARROW
}

func (p *Parser) parseNew() (*ast.Node, error) {
	start := p.next() // new
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	classTok, err := p.expect(lexer.IDENT, "class name")
	if err != nil {
		return nil, err
	}
	var args []*ast.Node
	for p.at(lexer.COMMA) {
		p.next()
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	n := ast.New(ast.KindNew, start.Pos)
	n.Name = classTok.Text
	n.Children = args
	return n, nil
}

func (p *Parser) parseListLit(immutable bool) (*ast.Node, error) {
	start := p.next()
	closeKind := lexer.RBRACK
	var elems []*ast.Node
	for !p.at(closeKind) && !p.at(lexer.EOF) {
		var spreadTok lexer.Token
		spread := false
		if p.at(lexer.ELLIPSIS) {
			spread = true
			spreadTok = p.next()
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if spread {
			x := ast.New(ast.KindExpand, spreadTok.Pos)
			x.Children = []*ast.Node{e}
			e = x
		}
		elems = append(elems, e)
		if p.at(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(closeKind, "']'"); err != nil {
		return nil, err
	}
	n := ast.New(ast.KindListLit, start.Pos)
	n.Children = elems
	n.Final = immutable
	return n, nil
}

// parseBraceLit disambiguates `{}` (empty set), `{:}` (empty map),
// `{a, b}` (set) and `{k:v, ...}` (map).
func (p *Parser) parseBraceLit(immutable bool) (*ast.Node, error) {
	start := p.next()
	if p.at(lexer.RBRACE) {
		p.next()
		n := ast.New(ast.KindSetLit, start.Pos)
		n.Final = immutable
		return n, nil
	}
	if p.at(lexer.COLON) {
		p.next()
		if _, err := p.expect(lexer.RBRACE, "'}'"); err != nil {
			return nil, err
		}
		n := ast.New(ast.KindMapLit, start.Pos)
		n.Final = immutable
		return n, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.COLON) {
		p.next()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entry := ast.New(ast.KindBinary, first.Pos)
		entry.Op = ":"
		entry.Children = []*ast.Node{first, val}
		entries := []*ast.Node{entry}
		for p.at(lexer.COMMA) {
			p.next()
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON, "':'"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			e := ast.New(ast.KindBinary, k.Pos)
			e.Op = ":"
			e.Children = []*ast.Node{k, v}
			entries = append(entries, e)
		}
		if _, err := p.expect(lexer.RBRACE, "'}'"); err != nil {
			return nil, err
		}
		n := ast.New(ast.KindMapLit, start.Pos)
		n.Children = entries
		n.Final = immutable
		return n, nil
	}

	elems := []*ast.Node{first}
	for p.at(lexer.COMMA) {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(lexer.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	n := ast.New(ast.KindSetLit, start.Pos)
	n.Children = elems
	n.Final = immutable
	return n, nil
}

func parseIntLit(text string) int64 {
	var v int64
	for _, c := range text {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	return v
}
