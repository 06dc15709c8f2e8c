package interp

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"

	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// --- literals ---

func (ip *Interp) evalIntLit(n *ast.Node) value.Value {
	return value.Int32(int32(n.IntVal))
}

func (ip *Interp) evalBigIntLit(n *ast.Node) (value.Value, error) {
	bi, ok := new(big.Int).SetString(n.StringVal, 10)
	if !ok {
		return value.Value{}, errs.ParseError("invalid integer literal "+n.StringVal, ip.span(n))
	}
	return value.BigInt(bi), nil
}

func (ip *Interp) evalFloatLit(n *ast.Node) (value.Value, error) {
	f, err := strconv.ParseFloat(n.StringVal, 64)
	if err != nil {
		return value.Value{}, errs.ParseError("invalid floating literal "+n.StringVal, ip.span(n))
	}
	return value.Float64(f), nil
}

func (ip *Interp) evalBigDecimalLit(n *ast.Node) (value.Value, error) {
	d, ok := value.DecimalFromString(n.StringVal, ip.Arithmetic.MathContext)
	if !ok {
		return value.Value{}, errs.ParseError("invalid decimal literal "+n.StringVal, ip.span(n))
	}
	return value.BigDecimal(d), nil
}

// --- collection literals ---

func (ip *Interp) evalListLit(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	b := value.NewArrayBuilder()
	for _, c := range n.Children {
		if c.Kind == ast.KindExpand {
			sv, err := ip.Eval(c.Children[0], fr)
			if err != nil {
				return value.Value{}, err
			}
			for _, item := range ip.iterableItems(sv) {
				b.Append(item)
			}
			continue
		}
		v, err := ip.Eval(c, fr)
		if err != nil {
			return value.Value{}, err
		}
		b.Append(v)
	}
	b.SetSpread(n.Final)
	v, _ := b.Create()
	return v, nil
}

func (ip *Interp) evalSetLit(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	s := value.NewSet(n.Final)
	for _, c := range n.Children {
		if c.Kind == ast.KindExpand {
			sv, err := ip.Eval(c.Children[0], fr)
			if err != nil {
				return value.Value{}, err
			}
			for _, item := range ip.iterableItems(sv) {
				s.Add(item)
			}
			continue
		}
		v, err := ip.Eval(c, fr)
		if err != nil {
			return value.Value{}, err
		}
		s.Add(v)
	}
	return value.Set(s), nil
}

func (ip *Interp) evalMapLit(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	m := value.NewMap(n.Final)
	for _, e := range n.Children {
		k, err := ip.Eval(e.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ip.Eval(e.Children[1], fr)
		if err != nil {
			return value.Value{}, err
		}
		m.Put(k, v)
	}
	return value.Map(m), nil
}

// iterableItems flattens any of the language's iterable kinds into a plain
// slice, shared by list/set spreads, for-in, filter and projection. Map
// iteration yields its values (spec leaves map entry iteration unspecified
// beyond "iterable"; DESIGN.md records the values-only choice).
func (ip *Interp) iterableItems(v value.Value) []value.Value {
	switch v.Kind() {
	case value.KindSeq:
		return v.AsSeq()
	case value.KindSet:
		return v.AsSet().Items()
	case value.KindMap:
		entries := v.AsMap().Entries()
		out := make([]value.Value, 0, len(entries))
		for _, e := range entries {
			out = append(out, e[1])
		}
		return out
	case value.KindRange:
		r := v.AsRange()
		it := r.Iterator()
		var out []value.Value
		for {
			i, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, value.Int64(i))
		}
		return out
	case value.KindString:
		return graphemeValues(v.AsString())
	}
	return nil
}

// graphemeValues splits s into user-perceived characters (spec's `for (var
// c : str)` string iteration), one value per grapheme cluster.
func graphemeValues(s string) []value.Value {
	seg := graphemes.NewSegmenter([]byte(s))
	var out []value.Value
	for seg.Next() {
		cluster := string(seg.Value())
		r := []rune(cluster)
		if len(r) == 1 {
			out = append(out, value.Char(r[0]))
			continue
		}
		out = append(out, value.String(cluster))
	}
	return out
}

// --- identifiers ---

func (ip *Interp) evalIdent(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	if slot, _, ok := fr.Lookup(n.Name); ok {
		return slot.Get(), nil
	}
	if ctx := fr.RootContext(); ctx != nil {
		if v, ok := ctx.Get(n.Name); ok {
			return v, nil
		}
	}
	opts := ip.optsFor(fr)
	if !opts.Strict {
		ip.Logger.UndefinedResolution("variable", n.Name)
		return value.Null, nil
	}
	return value.Value{}, errs.VariableError(n.Name, ip.visibleNames(fr), ip.span(n))
}

// --- member access (., ?., antish dotted fallback, pseudo-properties) ---

// dottedPath renders a chain of plain Member nodes rooted at an Ident as a
// single dotted string ("a.b.c"), the shape antish fallback needs. Any
// non-Member/Ident link (a call, an index, a computed receiver) breaks the
// chain, so antish never applies past it.
func dottedPath(n *ast.Node) (string, bool) {
	var segs []string
	cur := n
	for {
		switch cur.Kind {
		case ast.KindMember:
			segs = append([]string{cur.Name}, segs...)
			cur = cur.Children[0]
		case ast.KindIdent:
			segs = append([]string{cur.Name}, segs...)
			return strings.Join(segs, "."), true
		default:
			return "", false
		}
	}
}

func (ip *Interp) evalMember(n *ast.Node, fr *scope.Frame, safe bool) (value.Value, error) {
	recv, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		if path, ok := dottedPath(n); ok {
			root := path
			if idx := strings.IndexByte(path, '.'); idx >= 0 {
				root = path[:idx]
			}
			if ee, isErr := errs.AsError(err); isErr && ee.Is(errs.KindVariable) && !scope.AntishRootDisabled(fr, root) {
				if v, found := scope.Antish(fr.RootContext(), path); found {
					return v, nil
				}
			}
		}
		return value.Value{}, err
	}
	if safe && recv.IsNull() {
		return value.Null, nil
	}
	return ip.memberGet(n, recv, fr)
}

func (ip *Interp) memberGet(n *ast.Node, recv value.Value, fr *scope.Frame) (value.Value, error) {
	switch recv.Kind() {
	case value.KindHostObject:
		host := recv.AsHostObject()
		v, err := ip.Resolver.PropertyGet(ip.site(n), host, n.Name)
		if err == nil {
			return v, nil
		}
		if pe, ok := errs.AsError(err); ok && pe.Is(errs.KindProperty) {
			if cv, ok2 := hostContainerProperty(host, n.Name); ok2 {
				return cv, nil
			}
		}
		return ip.handleMemberErr(n, fr, err)
	case value.KindMap:
		m := recv.AsMap()
		if v, ok := m.Get(value.String(n.Name)); ok {
			return v, nil
		}
		if v, ok := containerProperty(recv, n.Name); ok {
			return v, nil
		}
		return value.Null, nil // missing map key is permissive, not an error
	case value.KindSeq, value.KindSet, value.KindRange, value.KindString:
		if v, ok := containerProperty(recv, n.Name); ok {
			return v, nil
		}
		return ip.propertyMissing(n, fr)
	case value.KindNull:
		return ip.propertyMissing(n, fr)
	default:
		return ip.propertyMissing(n, fr)
	}
}

// containerProperty implements the pseudo-properties (.size/.empty/.class/
// .length) available on the language's own collection kinds.
func containerProperty(recv value.Value, name string) (value.Value, bool) {
	switch name {
	case "size", "length":
		switch recv.Kind() {
		case value.KindSeq:
			return value.Int32(int32(len(recv.AsSeq()))), true
		case value.KindSet:
			return value.Int32(int32(recv.AsSet().Len())), true
		case value.KindMap:
			return value.Int32(int32(recv.AsMap().Len())), true
		case value.KindRange:
			return value.Int64(recv.AsRange().Size()), true
		case value.KindString:
			return value.Int32(int32(len([]rune(recv.AsString())))), true
		}
	case "empty":
		switch recv.Kind() {
		case value.KindSeq:
			return value.Bool(len(recv.AsSeq()) == 0), true
		case value.KindSet:
			return value.Bool(recv.AsSet().Len() == 0), true
		case value.KindMap:
			return value.Bool(recv.AsMap().Len() == 0), true
		case value.KindRange:
			return value.Bool(recv.AsRange().Size() == 0), true
		case value.KindString:
			return value.Bool(recv.AsString() == ""), true
		}
	case "class":
		switch recv.Kind() {
		case value.KindSeq:
			return value.String("List"), true
		case value.KindSet:
			return value.String("Set"), true
		case value.KindMap:
			return value.String("Map"), true
		case value.KindRange:
			return value.String("Range"), true
		case value.KindString:
			return value.String("String"), true
		}
	case "elementType":
		// the common host-ancestor class computed across a typed array
		// literal's entries (spec §4.1); "" for an untyped sequence. Sets
		// and maps do not answer elementType.
		if recv.Kind() == value.KindSeq {
			return value.String(recv.ElementType()), true
		}
	}
	return value.Value{}, false
}

// hostContainerProperty answers the same pseudo-properties for a host value
// whose underlying Go type is itself slice/array/map/string shaped, used as
// a fallback only after a bean/field PropertyGet has already failed.
func hostContainerProperty(host *value.HostObject, name string) (value.Value, bool) {
	rv := reflect.ValueOf(host.Impl)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	switch name {
	case "size", "length":
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return value.Int32(int32(rv.Len())), true
		}
	case "empty":
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return value.Bool(rv.Len() == 0), true
		}
	case "class":
		return value.String(host.Class.ClassName()), true
	}
	return value.Value{}, false
}

func (ip *Interp) propertyMissing(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	opts := ip.optsFor(fr)
	if opts.Safe || opts.Silent {
		if opts.Silent {
			ip.Logger.Suppressed("property", n.Name, ip.span(n).String())
		}
		return value.Null, nil
	}
	return value.Value{}, errs.PropertyError(n.Name, ip.visibleNames(fr), ip.span(n))
}

// handleMemberErr applies the safe/silent interception policy (spec §7) to
// a resolution failure surfaced while walking a member/index chain.
func (ip *Interp) handleMemberErr(n *ast.Node, fr *scope.Frame, err error) (value.Value, error) {
	if ee, ok := errs.AsError(err); ok && (ee.Is(errs.KindProperty) || ee.Is(errs.KindVariable)) {
		opts := ip.optsFor(fr)
		if opts.Safe || opts.Silent {
			if opts.Silent {
				ip.Logger.Suppressed(string(ee.K), ee.Name, ip.span(n).String())
			}
			return value.Null, nil
		}
	}
	return value.Value{}, err
}

// --- indexing ---

func (ip *Interp) evalIndex(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	cur, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	for _, idxNode := range n.Children[1:] {
		key, err := ip.Eval(idxNode, fr)
		if err != nil {
			return value.Value{}, err
		}
		cur, err = ip.Resolver.IndexGet(ip.site(n), cur, key)
		if err != nil {
			return ip.handleMemberErr(n, fr, err)
		}
	}
	return cur, nil
}

// --- binary / unary operators ---

func (ip *Interp) evalBinary(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	l, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	r, err := ip.Eval(n.Children[1], fr)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case "+":
		return ip.arith(n, fr, ip.Arithmetic.Add, l, r)
	case "-":
		return ip.arith(n, fr, ip.Arithmetic.Sub, l, r)
	case "*":
		return ip.arith(n, fr, ip.Arithmetic.Mul, l, r)
	case "/":
		return ip.arith(n, fr, ip.Arithmetic.Div, l, r)
	case "%":
		return ip.arith(n, fr, ip.Arithmetic.Mod, l, r)
	case "&":
		return ip.Arithmetic.And(l, r), nil
	case "|":
		return ip.Arithmetic.Or(l, r), nil
	case "^":
		return ip.Arithmetic.Xor(l, r), nil
	case "<<":
		return ip.Arithmetic.Shl(l, r), nil
	case ">>":
		return ip.Arithmetic.Shr(l, r), nil
	case ">>>":
		return ip.Arithmetic.Ushr(l, r), nil
	case "==", "eq":
		return value.Bool(ip.Arithmetic.Equal(l, r)), nil
	case "!=", "ne":
		return value.Bool(!ip.Arithmetic.Equal(l, r)), nil
	case "<", "<=", ">", ">=":
		return ip.compare(n, fr, l, r)
	case "=~":
		ok, err := ip.Arithmetic.Match(l, r)
		if err != nil {
			return ip.arithResult(n, fr, err)
		}
		return value.Bool(ok), nil
	case "!~":
		ok, err := ip.Arithmetic.Match(l, r)
		if err != nil {
			return ip.arithResult(n, fr, err)
		}
		return value.Bool(!ok), nil
	case "..":
		return value.RangeValue(value.Range{Start: l.AsInt(), End: r.AsInt()}), nil
	}
	return value.Value{}, errs.ParseError("unknown operator "+n.Op, ip.span(n))
}

func (ip *Interp) arith(n *ast.Node, fr *scope.Frame, op func(value.Value, value.Value) (value.Value, error), l, r value.Value) (value.Value, error) {
	v, err := op(l, r)
	if err != nil {
		return ip.arithResult(n, fr, err)
	}
	return v, nil
}

func (ip *Interp) arithResult(n *ast.Node, fr *scope.Frame, err error) (value.Value, error) {
	opts := ip.optsFor(fr)
	if opts.Silent {
		ip.Logger.Suppressed("arithmetic", n.Op, ip.span(n).String())
		return value.Null, nil
	}
	return value.Value{}, errs.ArithmeticError(err.Error(), ip.span(n))
}

func (ip *Interp) compare(n *ast.Node, fr *scope.Frame, l, r value.Value) (value.Value, error) {
	c, err := ip.Arithmetic.Compare(l, r)
	if err != nil {
		return ip.arithResult(n, fr, err)
	}
	switch n.Op {
	case "<":
		return value.Bool(c < 0), nil
	case "<=":
		return value.Bool(c <= 0), nil
	case ">":
		return value.Bool(c > 0), nil
	default: // ">="
		return value.Bool(c >= 0), nil
	}
}

func (ip *Interp) evalUnary(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	switch n.Op {
	case "!":
		v, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		return ip.Arithmetic.Not(v), nil
	case "-":
		v, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		r, err := ip.Arithmetic.Neg(v)
		if err != nil {
			return ip.arithResult(n, fr, err)
		}
		return r, nil
	case "~":
		v, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		return ip.Arithmetic.Complement(v), nil
	case "pre++", "pre--", "post++", "post--":
		return ip.evalIncDec(n, fr)
	}
	return value.Value{}, errs.ParseError("unknown unary operator "+n.Op, ip.span(n))
}

func (ip *Interp) evalIncDec(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	target := n.Children[0]
	cur, err := ip.Eval(target, fr)
	if err != nil {
		return value.Value{}, err
	}
	one := value.Int32(1)
	var next value.Value
	if n.Op == "pre++" || n.Op == "post++" {
		next, err = ip.Arithmetic.Add(cur, one)
	} else {
		next, err = ip.Arithmetic.Sub(cur, one)
	}
	if err != nil {
		return ip.arithResult(n, fr, err)
	}
	if err := ip.lvalueSet(target, fr, next); err != nil {
		return value.Value{}, ip.wrapAssignErr(n, fr, target, err)
	}
	if n.Op == "pre++" || n.Op == "pre--" {
		return next, nil
	}
	return cur, nil
}

// --- assignment ---

func (ip *Interp) lvalueSet(n *ast.Node, fr *scope.Frame, v value.Value) error {
	switch n.Kind {
	case ast.KindIdent:
		if slot, _, ok := fr.Lookup(n.Name); ok {
			return slot.Set(ip.Arithmetic, v)
		}
		// An undeclared bare name is not an error on write: it becomes a
		// context variable (spec §3.5's ant-ish leniency extends to
		// assignment, matching scenario S2's `t=54` behavior).
		if ctx := fr.RootContext(); ctx != nil {
			ctx.Set(n.Name, v)
			return nil
		}
		return errs.VariableError(n.Name, ip.visibleNames(fr), ip.span(n))
	case ast.KindMember, ast.KindSafeMember:
		recv, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return err
		}
		switch recv.Kind() {
		case value.KindHostObject:
			return ip.Resolver.PropertySet(ip.site(n), recv.AsHostObject(), n.Name, v)
		case value.KindMap:
			recv.AsMap().Put(value.String(n.Name), v)
			return nil
		}
		return errs.PropertyError(n.Name, ip.visibleNames(fr), ip.span(n))
	case ast.KindIndex:
		cur, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return err
		}
		last := len(n.Children) - 1
		for _, idxNode := range n.Children[1:last] {
			key, err := ip.Eval(idxNode, fr)
			if err != nil {
				return err
			}
			cur, err = ip.Resolver.IndexGet(ip.site(n), cur, key)
			if err != nil {
				return err
			}
		}
		key, err := ip.Eval(n.Children[last], fr)
		if err != nil {
			return err
		}
		return ip.Resolver.IndexSet(ip.site(n), cur, key, v)
	}
	return errs.ParseError("invalid assignment target", ip.span(n))
}

func (ip *Interp) wrapAssignErr(n *ast.Node, fr *scope.Frame, target *ast.Node, err error) error {
	if _, ok := errs.AsError(err); ok {
		return err
	}
	name := target.Name
	return errs.VariableError(name, ip.visibleNames(fr), ip.span(n))
}

func (ip *Interp) evalAssign(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	target := n.Children[0]
	rhs := n.Children[1]
	if n.Op == "=" {
		v, err := ip.Eval(rhs, fr)
		if err != nil {
			return value.Value{}, err
		}
		if err := ip.lvalueSet(target, fr, v); err != nil {
			return value.Value{}, ip.wrapAssignErr(n, fr, target, err)
		}
		return v, nil
	}
	cur, err := ip.Eval(target, fr)
	if err != nil {
		return value.Value{}, err
	}
	rv, err := ip.Eval(rhs, fr)
	if err != nil {
		return value.Value{}, err
	}
	op := strings.TrimSuffix(n.Op, "=")
	var result value.Value
	switch op {
	case "+":
		result, err = ip.Arithmetic.Add(cur, rv)
	case "-":
		result, err = ip.Arithmetic.Sub(cur, rv)
	case "*":
		result, err = ip.Arithmetic.Mul(cur, rv)
	case "/":
		result, err = ip.Arithmetic.Div(cur, rv)
	case "%":
		result, err = ip.Arithmetic.Mod(cur, rv)
	case "&":
		result = ip.Arithmetic.And(cur, rv)
	case "|":
		result = ip.Arithmetic.Or(cur, rv)
	case "^":
		result = ip.Arithmetic.Xor(cur, rv)
	case "<<":
		result = ip.Arithmetic.Shl(cur, rv)
	case ">>":
		result = ip.Arithmetic.Shr(cur, rv)
	case ">>>":
		result = ip.Arithmetic.Ushr(cur, rv)
	default:
		return value.Value{}, errs.ParseError("unknown compound operator "+n.Op, ip.span(n))
	}
	if err != nil {
		return ip.arithResult(n, fr, err)
	}
	if err := ip.lvalueSet(target, fr, result); err != nil {
		return value.Value{}, ip.wrapAssignErr(n, fr, target, err)
	}
	return result, nil
}

// --- ternary / coalesce / short-circuit logic ---

func (ip *Interp) evalTernary(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	c, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	if c.Truthy() {
		return ip.Eval(n.Children[1], fr)
	}
	return ip.Eval(n.Children[2], fr)
}

func (ip *Interp) evalCoalesce(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	l, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		if ee, ok := errs.AsError(err); ok && (ee.Is(errs.KindVariable) || ee.Is(errs.KindProperty)) {
			return ip.Eval(n.Children[1], fr)
		}
		return value.Value{}, err
	}
	if l.IsNull() {
		return ip.Eval(n.Children[1], fr)
	}
	return l, nil
}

func (ip *Interp) evalLogicalAnd(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	l, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	if !l.Truthy() {
		return value.Bool(false), nil
	}
	r, err := ip.Eval(n.Children[1], fr)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(r.Truthy()), nil
}

func (ip *Interp) evalLogicalOr(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	l, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	if l.Truthy() {
		return value.Bool(true), nil
	}
	r, err := ip.Eval(n.Children[1], fr)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(r.Truthy()), nil
}

// --- calls ---

func (ip *Interp) evalArgs(nodes []*ast.Node, fr *scope.Frame) ([]value.Value, error) {
	var out []value.Value
	for _, a := range nodes {
		if a.Kind == ast.KindExpand {
			sv, err := ip.Eval(a.Children[0], fr)
			if err != nil {
				return nil, err
			}
			out = append(out, ip.iterableItems(sv)...)
			continue
		}
		v, err := ip.Eval(a, fr)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (ip *Interp) evalCall(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	callee := n.Children[0]
	argNodes := n.Children[1:]
	if callee.Kind == ast.KindMember || callee.Kind == ast.KindSafeMember {
		recv, err := ip.Eval(callee.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		if callee.Kind == ast.KindSafeMember && recv.IsNull() {
			return value.Null, nil
		}
		args, err := ip.evalArgs(argNodes, fr)
		if err != nil {
			return value.Value{}, err
		}
		return ip.invokeMethod(n, recv, callee.Name, args, fr)
	}
	calleeVal, err := ip.Eval(callee, fr)
	if err != nil {
		return value.Value{}, err
	}
	args, err := ip.evalArgs(argNodes, fr)
	if err != nil {
		return value.Value{}, err
	}
	return ip.callValue(n, callee, calleeVal, args, fr)
}

func (ip *Interp) invokeMethod(n *ast.Node, recv value.Value, name string, args []value.Value, fr *scope.Frame) (value.Value, error) {
	switch recv.Kind() {
	case value.KindHostObject:
		v, err := ip.Resolver.Invoke(ip.site(n), recv.AsHostObject(), name, args)
		if err == nil {
			return v, nil
		}
		return ip.handleInvokeErr(fr, name, err)
	case value.KindMap:
		if mv, ok := recv.AsMap().Get(value.String(name)); ok {
			return ip.callValue(n, nil, mv, args, fr)
		}
	}
	opts := ip.optsFor(fr)
	if opts.Safe || opts.Silent {
		if opts.Silent {
			ip.Logger.Suppressed("method", name, ip.span(n).String())
		}
		return value.Null, nil
	}
	return value.Value{}, errs.MethodError(name, ip.visibleNames(fr), ip.span(n))
}

// handleInvokeErr lets a raw Go error from a host method call (spec
// scenario S5: `circuit.raise()`) pass through untouched so try/catch can
// catch it; only the resolver's own *errs.Error{Kind: Method} failures
// respect the safe/silent policy.
func (ip *Interp) handleInvokeErr(fr *scope.Frame, name string, err error) (value.Value, error) {
	if ee, ok := errs.AsError(err); ok && ee.Is(errs.KindMethod) {
		opts := ip.optsFor(fr)
		if opts.Safe || opts.Silent {
			if opts.Silent {
				ip.Logger.Suppressed("method", name, "")
			}
			return value.Null, nil
		}
	}
	return value.Value{}, err
}

func (ip *Interp) callValue(n *ast.Node, calleeNode *ast.Node, v value.Value, args []value.Value, fr *scope.Frame) (value.Value, error) {
	switch v.Kind() {
	case value.KindCallable:
		return v.AsCallable().Call(args)
	case value.KindMethodRef:
		mr := v.AsMethodRef()
		if mr.Receiver != nil {
			return ip.Resolver.Invoke(ip.site(n), mr.Receiver, mr.Name, args)
		}
		return value.Value{}, errs.MethodError(mr.Name, ip.visibleNames(fr), ip.span(n))
	}
	name := ""
	if calleeNode != nil && calleeNode.Kind == ast.KindIdent {
		name = calleeNode.Name
	}
	opts := ip.optsFor(fr)
	if opts.Safe || opts.Silent {
		if opts.Silent {
			ip.Logger.Suppressed("method", name, ip.span(n).String())
		}
		return value.Null, nil
	}
	return value.Value{}, errs.MethodError(name, ip.visibleNames(fr), ip.span(n))
}

func (ip *Interp) evalNamespaceCall(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	parts := strings.SplitN(n.Name, ":", 2)
	nsName, fnName := parts[0], parts[1]
	args, err := ip.evalArgs(n.Children, fr)
	if err != nil {
		return value.Value{}, err
	}
	if ns, ok := ip.Namespaces[nsName]; ok {
		return ns.Call(fnName, args)
	}
	if resolver, ok := fr.RootContext().(scope.NamespaceResolver); ok {
		if ns, ok2 := resolver.ResolveNamespace(nsName); ok2 {
			return ns.Call(fnName, args)
		}
	}
	return value.Value{}, errs.MethodError(n.Name, ip.visibleNames(fr), ip.span(n))
}

func (ip *Interp) evalNew(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	args, err := ip.evalArgs(n.Children, fr)
	if err != nil {
		return value.Value{}, err
	}
	class, ok := ip.Resolver.Registry.ByName(n.Name)
	if !ok {
		return value.Value{}, errs.MethodError(n.Name, ip.visibleNames(fr), ip.span(n))
	}
	return ip.Resolver.Construct(class, args)
}

// evalMethodRefLit builds a MethodRef value for `obj::name`/`obj::new`. A
// bare class name on the left (`ClassName::method`) is resolved as a
// best-effort static reference carrying only the class: Go has no true
// static dispatch, and no Resolver path invokes a receiver-less MethodRef,
// so calling one raises MethodError (DESIGN.md records this limitation).
func (ip *Interp) evalMethodRefLit(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	obj := n.Children[0]
	if obj != nil && obj.Kind == ast.KindIdent {
		if class, ok := ip.Resolver.Registry.ByName(obj.Name); ok {
			return value.Method(&value.MethodRef{Class: class, Name: n.Name, Static: true}), nil
		}
	}
	var recv value.Value
	if obj != nil {
		v, err := ip.Eval(obj, fr)
		if err != nil {
			return value.Value{}, err
		}
		recv = v
	}
	if recv.Kind() == value.KindHostObject {
		host := recv.AsHostObject()
		return value.Method(&value.MethodRef{Receiver: host, Class: host.Class, Name: n.Name}), nil
	}
	return value.Value{}, errs.MethodError(n.Name, ip.visibleNames(fr), ip.span(n))
}

func (ip *Interp) evalFuncLit(n *ast.Node, fr *scope.Frame) value.Value {
	c := &closure{
		ip:       ip,
		params:   n.Names,
		defaults: n.ParamDefaults,
		body:     n.Children[0],
		defFrame: fr,
	}
	return value.Program(c)
}
