package interp

import (
	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// evalBlock runs a statement list in a fresh child frame, so re-entering the
// same block (a loop body, a repeated call) redeclares its locals cleanly.
// The block's value is its last statement's value (spec §4.5's
// expression-oriented block semantics), defaulting to null for an empty
// block.
func (ip *Interp) evalBlock(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	blockFr := scope.NewChild(fr)
	result := value.Null
	for _, stmt := range n.Children {
		if err := ip.checkCancel(blockFr); err != nil {
			return value.Value{}, err
		}
		v, err := ip.Eval(stmt, blockFr)
		if err != nil {
			return value.Value{}, err
		}
		result = v
	}
	return result, nil
}

func declSlotType(declType ast.DeclType) scope.SlotType {
	switch declType {
	case ast.DeclBoolean:
		return scope.TypeBoolean
	case ast.DeclChar:
		return scope.TypeChar
	case ast.DeclByte:
		return scope.TypeByte
	case ast.DeclShort:
		return scope.TypeShort
	case ast.DeclInt:
		return scope.TypeInt
	case ast.DeclLong:
		return scope.TypeLong
	case ast.DeclFloat:
		return scope.TypeFloat
	case ast.DeclDouble:
		return scope.TypeDouble
	case ast.DeclBigInt:
		return scope.TypeBigInt
	case ast.DeclBigDecimal:
		return scope.TypeBigDecimal
	case ast.DeclString:
		return scope.TypeString
	default:
		return scope.TypeAny
	}
}

func (ip *Interp) wrapDeclErr(name string, fr *scope.Frame, span errs.Span, err error) error {
	return errs.VariableError(name, ip.visibleNames(fr), span)
}

// evalVarDecl declares the variable before evaluating its initializer, so a
// closure built during initialization (a named recursive lambda) captures a
// frame in which its own name is already present — by the time it is
// actually called, the slot holds the closure itself.
func (ip *Interp) evalVarDecl(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	typ := declSlotType(n.DeclType)
	slot, err := fr.Declare(n.Name, typ, n.Final)
	if err != nil {
		return value.Value{}, ip.wrapDeclErr(n.Name, fr, ip.span(n), err)
	}
	var v value.Value = value.Null
	if len(n.Children) > 0 && n.Children[0] != nil {
		v, err = ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
	}
	if err := slot.Init(ip.Arithmetic, v); err != nil {
		return value.Value{}, ip.wrapDeclErr(n.Name, fr, ip.span(n), err)
	}
	return v, nil
}

// evalDestructureDecl declares each named slot from n.Names against the
// corresponding element of the initializer's iterable value (list/set-
// destructuring declaration, spec §3.4).
func (ip *Interp) evalDestructureDecl(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	v, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	items := ip.iterableItems(v)
	for i, name := range n.Names {
		var ev value.Value = value.Null
		if i < len(items) {
			ev = items[i]
		}
		slot, err := fr.Declare(name, scope.TypeAny, n.Final)
		if err != nil {
			return value.Value{}, ip.wrapDeclErr(name, fr, ip.span(n), err)
		}
		if err := slot.Init(ip.Arithmetic, ev); err != nil {
			return value.Value{}, ip.wrapDeclErr(name, fr, ip.span(n), err)
		}
	}
	return v, nil
}

func (ip *Interp) evalIf(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	c, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	if c.Truthy() {
		return ip.Eval(n.Children[1], fr)
	}
	if len(n.Children) > 2 && n.Children[2] != nil {
		return ip.Eval(n.Children[2], fr)
	}
	return value.Null, nil
}

func (ip *Interp) evalWhile(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	result := value.Null
	for {
		if err := ip.checkCancel(fr); err != nil {
			return value.Value{}, err
		}
		c, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		if !c.Truthy() {
			return result, nil
		}
		v, err := ip.Eval(n.Children[1], fr)
		if err != nil {
			if _, ok := err.(ctrlBreak); ok {
				return result, nil
			}
			if _, ok := err.(ctrlContinue); ok {
				continue
			}
			return value.Value{}, err
		}
		result = v
	}
}

func (ip *Interp) evalDoWhile(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	result := value.Null
	for {
		if err := ip.checkCancel(fr); err != nil {
			return value.Value{}, err
		}
		v, err := ip.Eval(n.Children[1], fr)
		if err != nil {
			if _, ok := err.(ctrlBreak); ok {
				return result, nil
			}
			if _, ok := err.(ctrlContinue); ok {
				goto test
			}
			return value.Value{}, err
		}
		result = v
	test:
		c, err := ip.Eval(n.Children[0], fr)
		if err != nil {
			return value.Value{}, err
		}
		if !c.Truthy() {
			return result, nil
		}
	}
}

// evalForClassic runs a C-style for loop in one shared loop frame: init's
// declarations stay live across iterations, matching how a classic for's
// counter variable is conventionally scoped.
func (ip *Interp) evalForClassic(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	loopFr := scope.NewChild(fr)
	if n.Children[0] != nil {
		if _, err := ip.Eval(n.Children[0], loopFr); err != nil {
			return value.Value{}, err
		}
	}
	result := value.Null
	for {
		if err := ip.checkCancel(loopFr); err != nil {
			return value.Value{}, err
		}
		if n.Children[1] != nil {
			c, err := ip.Eval(n.Children[1], loopFr)
			if err != nil {
				return value.Value{}, err
			}
			if !c.Truthy() {
				return result, nil
			}
		}
		v, err := ip.Eval(n.Children[3], loopFr)
		if err != nil {
			if _, ok := err.(ctrlBreak); ok {
				return result, nil
			}
			if _, ok := err.(ctrlContinue); !ok {
				return value.Value{}, err
			}
		} else {
			result = v
		}
		if n.Children[2] != nil {
			if _, err := ip.Eval(n.Children[2], loopFr); err != nil {
				return value.Value{}, err
			}
		}
	}
}

// evalForIn runs `for (var x : iterable) body`, declaring a fresh frame per
// iteration so a captured closure sees that iteration's own binding rather
// than one shared, overwritten slot.
func (ip *Interp) evalForIn(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	iterVal, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	items := ip.iterableItems(iterVal)
	result := value.Null
	for _, item := range items {
		if err := ip.checkCancel(fr); err != nil {
			return value.Value{}, err
		}
		iterFr := scope.NewChild(fr)
		slot, err := iterFr.Declare(n.Name, declSlotType(n.DeclType), n.Final)
		if err != nil {
			return value.Value{}, ip.wrapDeclErr(n.Name, fr, ip.span(n), err)
		}
		if err := slot.Init(ip.Arithmetic, item); err != nil {
			return value.Value{}, ip.wrapDeclErr(n.Name, fr, ip.span(n), err)
		}
		v, err := ip.Eval(n.Children[1], iterFr)
		if err != nil {
			if _, ok := err.(ctrlBreak); ok {
				return result, nil
			}
			if _, ok := err.(ctrlContinue); ok {
				continue
			}
			return value.Value{}, err
		}
		result = v
	}
	return result, nil
}

// --- try/catch/finally ---

func (ip *Interp) catchable(err error) bool {
	switch err.(type) {
	case ctrlBreak, ctrlContinue, ctrlReturn:
		return false
	}
	if ee, ok := errs.AsError(err); ok {
		return !ee.Is(errs.KindCancel)
	}
	return true // raw host error (spec scenario S5) is catchable too
}

// catchValue renders a caught error as the value bound to the catch clause:
// a thrown value (`throw expr`) binds to that value itself; any other
// catchable failure binds to its rendered message (DESIGN.md: non-throw
// errors have no script-level value, so the message string is the closest
// representation a catch block can inspect).
func (ip *Interp) catchValue(err error) value.Value {
	if ee, ok := errs.AsError(err); ok {
		if ee.Is(errs.KindThrow) {
			if v, ok2 := ee.Value.(value.Value); ok2 {
				return v
			}
		}
		return value.String(ee.Error())
	}
	return value.String(err.Error())
}

func (ip *Interp) catchMatches(filter string, bound value.Value) bool {
	if bound.Kind() != value.KindHostObject {
		return false
	}
	host := bound.AsHostObject()
	if host.Class.ClassName() == filter {
		return true
	}
	for _, anc := range ip.Resolver.Registry.Ancestors(host.Class.ClassName()) {
		if anc == filter {
			return true
		}
	}
	return false
}

// closeResource calls `close` on a try-with-resources binding; a failure to
// close is swallowed rather than propagated, since Go's resolver has no
// suppressed-exception chaining to attach it to (DESIGN.md notes this
// simplification).
func (ip *Interp) closeResource(v value.Value) {
	if v.Kind() != value.KindHostObject {
		return
	}
	_, _ = ip.Resolver.Invoke(&introspect.Site{}, v.AsHostObject(), "close", nil)
}

func (ip *Interp) evalTry(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	tryFr := scope.NewChild(fr)
	var resVals []value.Value
	var setupErr error
	for _, res := range n.Resources {
		var v value.Value = value.Null
		if res.Init != nil {
			var err error
			v, err = ip.Eval(res.Init, tryFr)
			if err != nil {
				setupErr = err
				break
			}
		}
		slot, err := tryFr.Declare(res.Name, scope.TypeAny, res.Let)
		if err != nil {
			setupErr = ip.wrapDeclErr(res.Name, fr, ip.span(n), err)
			break
		}
		if err := slot.Init(ip.Arithmetic, v); err != nil {
			setupErr = ip.wrapDeclErr(res.Name, fr, ip.span(n), err)
			break
		}
		resVals = append(resVals, v)
	}

	result := value.Null
	bodyErr := setupErr
	if bodyErr == nil {
		result, bodyErr = ip.Eval(n.Children[0], tryFr)
	}

	for i := len(resVals) - 1; i >= 0; i-- {
		ip.closeResource(resVals[i])
	}

	if bodyErr != nil && ip.catchable(bodyErr) && len(n.Children) > 1 && n.Children[1] != nil {
		bound := ip.catchValue(bodyErr)
		if n.CatchFilter == "" || ip.catchMatches(n.CatchFilter, bound) {
			catchFr := scope.NewChild(fr)
			slot, err := catchFr.Declare(n.CatchBind, scope.TypeAny, n.CatchFinal)
			if err != nil {
				return value.Value{}, ip.wrapDeclErr(n.CatchBind, fr, ip.span(n), err)
			}
			if err := slot.Init(ip.Arithmetic, bound); err == nil {
				result, bodyErr = ip.Eval(n.Children[1], catchFr)
			}
		}
	}

	if len(n.Children) > 2 && n.Children[2] != nil {
		if _, ferr := ip.Eval(n.Children[2], scope.NewChild(fr)); ferr != nil {
			return value.Value{}, ferr
		}
	}
	if bodyErr != nil {
		return value.Value{}, bodyErr
	}
	return result, nil
}

// --- switch ---

func (ip *Interp) evalSwitch(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	subj, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	switchFr := scope.NewChild(fr)
	matchIdx, defaultIdx := -1, -1
	for i, c := range n.Cases {
		if c.Default {
			defaultIdx = i
			continue
		}
		for _, lbl := range c.Labels {
			lv, err := ip.Eval(lbl, switchFr)
			if err != nil {
				return value.Value{}, err
			}
			if ip.Arithmetic.Equal(subj, lv) {
				matchIdx = i
				break
			}
		}
		if matchIdx >= 0 {
			break
		}
	}
	if matchIdx < 0 {
		matchIdx = defaultIdx
	}
	if matchIdx < 0 {
		if n.IsSwitchExpr {
			return value.Value{}, errs.SwitchError(ip.span(n))
		}
		return value.Null, nil
	}

	result := value.Null
	for i := matchIdx; i < len(n.Cases); i++ {
		c := n.Cases[i]
		for _, stmt := range c.Body {
			v, err := ip.Eval(stmt, switchFr)
			if err != nil {
				if _, ok := err.(ctrlBreak); ok {
					return result, nil
				}
				return value.Value{}, err
			}
			result = v
		}
		if c.IsArrow {
			break
		}
	}
	return result, nil
}

// --- filter / projection ---

// evalProjector runs a filter/projection's right-hand expression against
// one element. A function-literal operand is called with (element) or
// (index, element) depending on its declared arity; any other expression
// is evaluated with the implicit binding `it`, the conventional name for
// the current element in a bare predicate/projector expression.
func (ip *Interp) evalProjector(predNode *ast.Node, fr *scope.Frame, idx int, item value.Value) (value.Value, error) {
	if predNode.Kind == ast.KindFuncLit {
		cv := ip.evalFuncLit(predNode, fr)
		callable := cv.AsCallable()
		args := []value.Value{item}
		if len(predNode.Names) >= 2 {
			args = []value.Value{value.Int32(int32(idx)), item}
		}
		return callable.Call(args)
	}
	itFr := scope.NewChild(fr)
	slot, err := itFr.Declare("it", scope.TypeAny, false)
	if err != nil {
		return value.Value{}, err
	}
	if err := slot.Init(ip.Arithmetic, item); err != nil {
		return value.Value{}, err
	}
	return ip.Eval(predNode, itFr)
}

func (ip *Interp) evalFilter(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	coll, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	items := ip.iterableItems(coll)
	b := value.NewArrayBuilder()
	for idx, item := range items {
		v, err := ip.evalProjector(n.Children[1], fr, idx, item)
		if err != nil {
			return value.Value{}, err
		}
		if v.Truthy() {
			b.Append(item)
		}
	}
	v, _ := b.Create()
	return v, nil
}

func (ip *Interp) evalProjection(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	coll, err := ip.Eval(n.Children[0], fr)
	if err != nil {
		return value.Value{}, err
	}
	items := ip.iterableItems(coll)
	b := value.NewArrayBuilder()
	for idx, item := range items {
		v, err := ip.evalProjector(n.Children[1], fr, idx, item)
		if err != nil {
			return value.Value{}, err
		}
		b.Append(v)
	}
	v, _ := b.Create()
	return v, nil
}

// --- annotations ---

// evalAnnotation handles the built-in @synchronized(x){...} directly
// (spec's one required annotation) and otherwise delegates to the host
// context's AnnotationProcessor, if it implements one; an unrecognized
// annotation with no processor registered just runs its statement
// unannotated, the same lenient default the engine applies elsewhere.
func (ip *Interp) evalAnnotation(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	args := n.Children[:len(n.Children)-1]
	stmt := n.Children[len(n.Children)-1]
	argVals, err := ip.evalArgs(args, fr)
	if err != nil {
		return value.Value{}, err
	}
	call := func() (value.Value, error) { return ip.Eval(stmt, fr) }
	if n.Name == "synchronized" {
		if len(argVals) == 0 {
			return value.Value{}, errs.AnnotationError(n.Name, "synchronized requires one argument", ip.span(n))
		}
		mu := ip.lockFor(argVals[0])
		mu.Lock()
		defer mu.Unlock()
		return call()
	}
	if proc, ok := fr.RootContext().(scope.AnnotationProcessor); ok {
		return proc.ProcessAnnotation(n.Name, argVals, call)
	}
	return call()
}
