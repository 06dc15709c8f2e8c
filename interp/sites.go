package interp

import (
	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/introspect"
)

// CollectSites walks root once at compile time and allocates one
// introspect.Site per call/member/index node, so every evaluation of the
// compiled program shares the same per-call-site accessor cache instead of
// re-resolving host members from scratch on every visit (spec §4.2, §5).
func CollectSites(root *ast.Node) map[*ast.Node]*introspect.Site {
	sites := make(map[*ast.Node]*introspect.Site)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindMember, ast.KindSafeMember, ast.KindIndex, ast.KindCall:
			sites[n] = &introspect.Site{}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return sites
}

// FreeVariables returns, in first-use order, the plain identifier names
// root reads that are not declared anywhere within root itself (a dotted
// path contributes only its root name) — the source of Program's
// GetParameters, GetUnboundParameters and GetVariables, computed once at
// compile time rather than walked again per evaluation.
func FreeVariables(root *ast.Node) []string {
	declared := map[string]bool{}
	var seen []string
	seenSet := map[string]bool{}

	var collectDecls func(n *ast.Node)
	collectDecls = func(n *ast.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindVarDecl:
			declared[n.Name] = true
		case ast.KindDestructureDecl:
			for _, name := range n.Names {
				declared[name] = true
			}
		case ast.KindForIn:
			declared[n.Name] = true
		case ast.KindFuncLit:
			for _, name := range n.Names {
				declared[name] = true
			}
		}
		for _, r := range n.Resources {
			declared[r.Name] = true
		}
		if n.Kind == ast.KindTry && n.CatchBind != "" {
			declared[n.CatchBind] = true
		}
		for _, c := range n.Children {
			collectDecls(c)
		}
		for _, c := range n.Cases {
			for _, lbl := range c.Labels {
				collectDecls(lbl)
			}
			for _, stmt := range c.Body {
				collectDecls(stmt)
			}
		}
	}
	collectDecls(root)

	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Kind == ast.KindIdent && !declared[n.Name] {
			if !seenSet[n.Name] {
				seenSet[n.Name] = true
				seen = append(seen, n.Name)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
		for _, c := range n.Cases {
			for _, lbl := range c.Labels {
				walk(lbl)
			}
			for _, stmt := range c.Body {
				walk(stmt)
			}
		}
		for _, r := range n.Resources {
			walk(r.Init)
		}
	}
	walk(root)
	return seen
}
