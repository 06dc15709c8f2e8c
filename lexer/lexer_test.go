package lexer

import (
	"go/token"
	"testing"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	fset := token.NewFileSet()
	lx := New(fset, "test.kjx", src)
	var toks []Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return toks
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	toks := scanAll(t, "var x = foo.bar")
	wantKinds := []Kind{KW_var, IDENT, ASSIGN, IDENT, DOT, IDENT, EOF}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(wantKinds), toks)
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token %d: got kind %v, want %v (%+v)", i, toks[i].Kind, k, toks[i])
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	cases := []struct {
		src  string
		kind Kind
	}{
		{"42", INT},
		{"3.14", FLOAT},
		{"1e10", FLOAT},
		{"100H", BIGINT},
		{"3.14B", BIGDEC},
		{"1_000", INT},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q: got kind %v, want %v", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	toks := scanAll(t, `"hello\nworld"`)
	if toks[0].Kind != STRING {
		t.Fatalf("got kind %v, want STRING", toks[0].Kind)
	}
	if toks[0].Text != "hello\nworld" {
		t.Errorf("got text %q", toks[0].Text)
	}
}

func TestLexerCharLiteral(t *testing.T) {
	toks := scanAll(t, `'a'`)
	if toks[0].Kind != CHAR || toks[0].Text != "a" {
		t.Errorf("got %+v", toks[0])
	}
}

func TestLexerOperators(t *testing.T) {
	cases := []struct {
		src  string
		kind Kind
	}{
		{"&&", ANDAND}, {"||", OROR}, {"==", EQ}, {"!=", NE},
		{"<=", LE}, {">=", GE}, {"=~", MATCH}, {"!~", NOTMATCH},
		{"++", INCR}, {"--", DECR}, {"?.", QUESTIONDOT}, {"??", QUESTIONQUESTION},
		{"->", ARROW}, {"=>", FATARROW}, {"...", ELLIPSIS}, {"::", DOUBLECOLON},
		{"#[", HASH_LBRACK}, {"#{", HASH_LBRACE}, {">>>", USHR}, {"<<", SHL},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q: got kind %v, want %v", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestLexerComments(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n+ 2 ## also a comment\n")
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{INT, PLUS, INT, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, kinds[i], want[i])
		}
	}
}
