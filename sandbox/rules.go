package sandbox

import (
	"fmt"
	"strings"
)

// ParseRules reads the textual composition grammar from spec §3.6:
//
//	pkg.sub {}                 // block entire subpackage
//	pkg.sub { Klass {} }       // block only a named class within it
//
// It is a small hand-rolled recursive-descent reader, in the style of
// ardnew-aenv/cli/resolver.go's own line-oriented config parsing, rather
// than a general grammar: the DSL has exactly two nesting levels.
func ParseRules(src string) (*Permissions, error) {
	p := Restricted()
	toks := tokenizeRules(src)
	i := 0
	for i < len(toks) {
		pkg := toks[i]
		i++
		if i >= len(toks) || toks[i] != "{" {
			return nil, fmt.Errorf("expected '{' after package name %q", pkg)
		}
		i++
		if i < len(toks) && toks[i] == "}" {
			p.DenyPackage(pkg)
			i++
			continue
		}
		for i < len(toks) && toks[i] != "}" {
			class := toks[i]
			i++
			if i >= len(toks) || toks[i] != "{" {
				return nil, fmt.Errorf("expected '{' after class name %q", class)
			}
			i++
			if i >= len(toks) || toks[i] != "}" {
				return nil, fmt.Errorf("expected '}' closing class %q", class)
			}
			i++
			p.DenyClass(pkg, class)
		}
		if i >= len(toks) || toks[i] != "}" {
			return nil, fmt.Errorf("expected '}' closing package %q", pkg)
		}
		i++
	}
	return p, nil
}

func tokenizeRules(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '{' || r == '}':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
