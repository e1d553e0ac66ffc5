package jsengine

import (
	"fmt"
	"math"
)

// ControlFlow is a statement's execution result:
// {None, Return(v), Break, Continue}.
type ControlFlow struct {
	Kind  string // "none" | "return" | "break" | "continue"
	Value interface{}
}

var flowNone = ControlFlow{Kind: "none"}
var flowBreak = ControlFlow{Kind: "break"}
var flowContinue = ControlFlow{Kind: "continue"}

func flowReturn(v interface{}) ControlFlow { return ControlFlow{Kind: "return", Value: v} }

// Interpreter tree-walks a parsed program against a global Scope.
// Recursion is capped at MaxCallDepth (default 1000) and exceeding it
// raises a RangeError.
type Interpreter struct {
	Global       *Scope
	MaxCallDepth int
	depth        int
	Console      ConsoleSink
	// RandSource overrides Math.random()'s number source; nil uses the
	// engine's deterministic default (see builtins.go's pseudoRandom).
	RandSource func() float64
	// Document, set by BindDocument (dom.go), is the live DOM this
	// interpreter's `document`/`window` globals are bound to.
	Document *boundDocument
}

// ConsoleSink routes console.{log,error,warn,info,debug} messages.
type ConsoleSink interface {
	Log(level string, args []interface{})
}

func NewInterpreter() *Interpreter {
	interp := &Interpreter{Global: NewGlobalScope(), MaxCallDepth: 1000}
	installBuiltins(interp)
	return interp
}

// Run executes a full program: hoists function/var declarations, then
// executes statements in source order. Hoisting completes before the
// first statement executes. A Go panic anywhere in the walk is
// recovered into the returned error: a broken script must never take
// the hosting pipeline down with it.
func (interp *Interpreter) Run(program []Statement) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &JSError{Kind: "Error", Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	interp.hoist(program, interp.Global)
	for _, stmt := range program {
		cf, err := interp.execStatement(stmt, interp.Global, Undefined{})
		if err != nil {
			return err
		}
		if cf.Kind != "none" {
			break // top-level return/break/continue has nowhere further to propagate
		}
	}
	return nil
}

// hoist implements "as if all var/function declarations were moved to
// the top" for one function body (or the program).
func (interp *Interpreter) hoist(body []Statement, scope *Scope) {
	var walk func(stmts []Statement)
	walk = func(stmts []Statement) {
		for _, s := range stmts {
			switch st := s.(type) {
			case *VariableDeclaration:
				if st.Kind == "var" {
					for _, b := range st.Bindings {
						scope.declareVar(b.Name)
					}
				}
			case *FunctionDeclaration:
				fn := interp.makeFunction(st.Params, st.Body, nil, scope, false)
				scope.functionScope().bindings[st.Name] = &Binding{Value: fn, Kind: "function", Initialized: true}
			case *If:
				walk([]Statement{st.Consequent})
				if st.Alternate != nil {
					walk([]Statement{st.Alternate})
				}
			case *For:
				if st.Init != nil {
					walk([]Statement{st.Init})
				}
				walk([]Statement{st.Body})
			case *While:
				walk([]Statement{st.Body})
			case *Block:
				walk(st.Body)
			}
		}
	}
	walk(body)
}

func (interp *Interpreter) makeFunction(params []string, body *Block, exprBody Expression, closure *Scope, isArrow bool) *Object {
	fn := &Object{Props: make(map[string]interface{}), Class: "Function", Params: params, Body: body, ExprBody: exprBody, Closure: closure, IsArrow: isArrow}
	return fn
}

// --- Statements ---

// execStatement threads `this` through every nested statement so
// expressions anywhere in a function body (including inside nested
// blocks/if/for/while) see the call's `this`.
func (interp *Interpreter) execStatement(s Statement, scope *Scope, this interface{}) (ControlFlow, error) {
	switch st := s.(type) {
	case *ExpressionStatement:
		_, err := interp.eval(st.Expr, scope, this)
		return flowNone, err

	case *VariableDeclaration:
		for _, b := range st.Bindings {
			var val interface{} = Undefined{}
			if b.Init != nil {
				v, err := interp.eval(b.Init, scope, this)
				if err != nil {
					return flowNone, err
				}
				val = v
			}
			if st.Kind == "var" {
				target := scope.functionScope()
				if bind, ok := target.bindings[b.Name]; ok {
					bind.Value = val
					bind.Initialized = true
				} else {
					target.bindings[b.Name] = &Binding{Value: val, Kind: "var", Initialized: true}
				}
			} else {
				if err := scope.declareLexical(b.Name, st.Kind); err != nil {
					return flowNone, err
				}
				bind := scope.bindings[b.Name]
				bind.Value = val
				bind.Initialized = true
			}
		}
		return flowNone, nil

	case *Block:
		child := scope.child(false)
		interp.hoistFunctionsOnly(st.Body, child)
		for _, inner := range st.Body {
			cf, err := interp.execStatement(inner, child, this)
			if err != nil || cf.Kind != "none" {
				return cf, err
			}
		}
		return flowNone, nil

	case *If:
		test, err := interp.eval(st.Test, scope, this)
		if err != nil {
			return flowNone, err
		}
		if truthy(test) {
			return interp.execStatement(st.Consequent, scope, this)
		} else if st.Alternate != nil {
			return interp.execStatement(st.Alternate, scope, this)
		}
		return flowNone, nil

	case *While:
		for {
			test, err := interp.eval(st.Test, scope, this)
			if err != nil {
				return flowNone, err
			}
			if !truthy(test) {
				break
			}
			cf, err := interp.execStatement(st.Body, scope, this)
			if err != nil {
				return flowNone, err
			}
			if cf.Kind == "break" {
				break
			}
			if cf.Kind == "return" {
				return cf, nil
			}
		}
		return flowNone, nil

	case *For:
		loopScope := scope.child(false)
		if st.Init != nil {
			if _, err := interp.execStatement(st.Init, loopScope, this); err != nil {
				return flowNone, err
			}
		}
		for {
			if st.Test != nil {
				test, err := interp.eval(st.Test, loopScope, this)
				if err != nil {
					return flowNone, err
				}
				if !truthy(test) {
					break
				}
			}
			cf, err := interp.execStatement(st.Body, loopScope, this)
			if err != nil {
				return flowNone, err
			}
			if cf.Kind == "break" {
				break
			}
			if cf.Kind == "return" {
				return cf, nil
			}
			if st.Update != nil {
				if _, err := interp.eval(st.Update, loopScope, this); err != nil {
					return flowNone, err
				}
			}
		}
		return flowNone, nil

	case *Return:
		if st.Argument == nil {
			return flowReturn(Undefined{}), nil
		}
		v, err := interp.eval(st.Argument, scope, this)
		if err != nil {
			return flowNone, err
		}
		return flowReturn(v), nil

	case *Break:
		return flowBreak, nil

	case *Continue:
		return flowContinue, nil

	case *Empty:
		return flowNone, nil

	case *FunctionDeclaration:
		// Already hoisted; nothing to do at statement-execution time.
		return flowNone, nil

	default:
		return flowNone, fmt.Errorf("jsengine: unhandled statement %T", s)
	}
}

func (interp *Interpreter) hoistFunctionsOnly(body []Statement, scope *Scope) {
	for _, s := range body {
		if fd, ok := s.(*FunctionDeclaration); ok {
			fn := interp.makeFunction(fd.Params, fd.Body, nil, scope, false)
			scope.bindings[fd.Name] = &Binding{Value: fn, Kind: "function", Initialized: true}
		}
	}
}

// --- Expressions ---

func (interp *Interpreter) eval(e Expression, scope *Scope, this interface{}) (interface{}, error) {
	switch ex := e.(type) {
	case *Literal:
		return ex.Value, nil

	case *Identifier:
		return scope.get(ex.Name)

	case *ThisExpr:
		return this, nil

	case *ArrayLiteral:
		elems := make([]interface{}, len(ex.Elements))
		for i, el := range ex.Elements {
			v, err := interp.eval(el, scope, this)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &Array{Elements: elems}, nil

	case *ObjectLiteral:
		obj := NewObject()
		for _, prop := range ex.Properties {
			v, err := interp.eval(prop.Value, scope, this)
			if err != nil {
				return nil, err
			}
			obj.Set(prop.Key, v)
		}
		return obj, nil

	case *FunctionExpression:
		return interp.makeFunction(ex.Params, ex.Body, nil, scope, false), nil

	case *ArrowFunction:
		if ex.Body != nil {
			fn := interp.makeFunction(ex.Params, ex.Body, nil, scope, true)
			fn.DefThis = this
			return fn, nil
		}
		fn := interp.makeFunction(ex.Params, nil, ex.Expr, scope, true)
		fn.DefThis = this
		return fn, nil

	case *Unary:
		return interp.evalUnary(ex, scope, this)

	case *TypeOf:
		if id, ok := ex.Argument.(*Identifier); ok {
			if _, b := scope.lookup(id.Name); b == nil {
				return "undefined", nil
			}
		}
		v, err := interp.eval(ex.Argument, scope, this)
		if err != nil {
			return nil, err
		}
		return typeOf(v), nil

	case *Update:
		return interp.evalUpdate(ex, scope, this)

	case *Binary:
		return interp.evalBinary(ex, scope, this)

	case *Logical:
		return interp.evalLogical(ex, scope, this)

	case *Conditional:
		test, err := interp.eval(ex.Test, scope, this)
		if err != nil {
			return nil, err
		}
		if truthy(test) {
			return interp.eval(ex.Consequent, scope, this)
		}
		return interp.eval(ex.Alternate, scope, this)

	case *Assignment:
		return interp.evalAssignment(ex, scope, this)

	case *Member:
		_, v, err := interp.evalMember(ex, scope, this)
		return v, err

	case *Call:
		return interp.evalCall(ex, scope, this)

	case *New:
		return interp.evalNew(ex, scope, this)

	default:
		return nil, fmt.Errorf("jsengine: unhandled expression %T", e)
	}
}

func (interp *Interpreter) evalUnary(ex *Unary, scope *Scope, this interface{}) (interface{}, error) {
	v, err := interp.eval(ex.Argument, scope, this)
	if err != nil {
		return nil, err
	}
	switch ex.Operator {
	case "!":
		return !truthy(v), nil
	case "-":
		return -toNumber(v), nil
	case "+":
		return toNumber(v), nil
	}
	return nil, fmt.Errorf("jsengine: unknown unary operator %q", ex.Operator)
}

func (interp *Interpreter) evalUpdate(ex *Update, scope *Scope, this interface{}) (interface{}, error) {
	old, err := interp.eval(ex.Argument, scope, this)
	if err != nil {
		return nil, err
	}
	oldNum := toNumber(old)
	var newNum float64
	if ex.Operator == "++" {
		newNum = oldNum + 1
	} else {
		newNum = oldNum - 1
	}
	if err := interp.assignTo(ex.Argument, newNum, scope, this); err != nil {
		return nil, err
	}
	if ex.Prefix {
		return newNum, nil
	}
	return oldNum, nil
}

func (interp *Interpreter) evalBinary(ex *Binary, scope *Scope, this interface{}) (interface{}, error) {
	l, err := interp.eval(ex.Left, scope, this)
	if err != nil {
		return nil, err
	}
	r, err := interp.eval(ex.Right, scope, this)
	if err != nil {
		return nil, err
	}
	switch ex.Operator {
	case "+":
		if _, ok := l.(string); ok {
			return l.(string) + toStr(r), nil
		}
		if _, ok := r.(string); ok {
			return toStr(l) + r.(string), nil
		}
		return toNumber(l) + toNumber(r), nil
	case "-":
		return toNumber(l) - toNumber(r), nil
	case "*":
		return toNumber(l) * toNumber(r), nil
	case "/":
		return toNumber(l) / toNumber(r), nil
	case "%":
		return math.Mod(toNumber(l), toNumber(r)), nil
	case "===":
		return strictEquals(l, r), nil
	case "!==":
		return !strictEquals(l, r), nil
	case "==":
		return looseEquals(l, r), nil
	case "!=":
		return !looseEquals(l, r), nil
	case "<":
		return compareValues(l, r) < 0, nil
	case "<=":
		return compareValues(l, r) <= 0, nil
	case ">":
		return compareValues(l, r) == 1, nil
	case ">=":
		c := compareValues(l, r)
		return c == 0 || c == 1, nil
	case "instanceof":
		return evalInstanceOf(l, r), nil
	}
	return nil, fmt.Errorf("jsengine: unknown binary operator %q", ex.Operator)
}

// compareValues implements <,<=,>,>= : string-vs-string compares
// lexically, everything else coerces to number (NaN makes every
// comparison false, modeled here by returning 2, an out-of-range
// sentinel no operator above treats as true).
func compareValues(l, r interface{}) int {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch {
		case ls < rs:
			return -1
		case ls > rs:
			return 1
		default:
			return 0
		}
	}
	ln, rn := toNumber(l), toNumber(r)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return 2
	}
	switch {
	case ln < rn:
		return -1
	case ln > rn:
		return 1
	default:
		return 0
	}
}

func evalInstanceOf(l, r interface{}) bool {
	ctor, ok := r.(*Object)
	if !ok || ctor.Class != "Function" {
		return false
	}
	obj, ok := l.(*Object)
	if !ok {
		return false
	}
	proto, _ := ctor.Get("prototype")
	protoObj, ok := proto.(*Object)
	if !ok {
		return false
	}
	for p := obj.Proto; p != nil; p = p.Proto {
		if p == protoObj {
			return true
		}
	}
	return false
}

func (interp *Interpreter) evalLogical(ex *Logical, scope *Scope, this interface{}) (interface{}, error) {
	l, err := interp.eval(ex.Left, scope, this)
	if err != nil {
		return nil, err
	}
	switch ex.Operator {
	case "&&":
		if !truthy(l) {
			return l, nil
		}
		return interp.eval(ex.Right, scope, this)
	case "||":
		if truthy(l) {
			return l, nil
		}
		return interp.eval(ex.Right, scope, this)
	case "??":
		if !isNullish(l) {
			return l, nil
		}
		return interp.eval(ex.Right, scope, this)
	}
	return nil, fmt.Errorf("jsengine: unknown logical operator %q", ex.Operator)
}

func (interp *Interpreter) evalAssignment(ex *Assignment, scope *Scope, this interface{}) (interface{}, error) {
	value, err := interp.eval(ex.Value, scope, this)
	if err != nil {
		return nil, err
	}
	if ex.Operator != "=" {
		old, err := interp.eval(ex.Target, scope, this)
		if err != nil {
			return nil, err
		}
		switch ex.Operator {
		case "+=":
			if _, ok := old.(string); ok {
				value = old.(string) + toStr(value)
			} else if _, ok := value.(string); ok {
				value = toStr(old) + value.(string)
			} else {
				value = toNumber(old) + toNumber(value)
			}
		case "-=":
			value = toNumber(old) - toNumber(value)
		case "*=":
			value = toNumber(old) * toNumber(value)
		case "/=":
			value = toNumber(old) / toNumber(value)
		case "%=":
			value = math.Mod(toNumber(old), toNumber(value))
		}
	}
	if err := interp.assignTo(ex.Target, value, scope, this); err != nil {
		return nil, err
	}
	return value, nil
}

func (interp *Interpreter) assignTo(target Expression, value interface{}, scope *Scope, this interface{}) error {
	switch t := target.(type) {
	case *Identifier:
		return scope.set(t.Name, value)
	case *Member:
		obj, _, err := interp.evalMember(t, scope, this)
		if err != nil {
			return err
		}
		key, err := interp.memberKey(t, scope, this)
		if err != nil {
			return err
		}
		return setMemberValue(obj, key, value)
	default:
		return fmt.Errorf("jsengine: invalid assignment target %T", target)
	}
}

func setMemberValue(container interface{}, key string, value interface{}) error {
	switch c := container.(type) {
	case *Object:
		if c.DOMNode != nil && domPropertySet(c, key, value) {
			return nil
		}
		c.Set(key, value)
		return nil
	case *Array:
		idx, ok := arrayIndex(key)
		if !ok {
			return nil
		}
		for len(c.Elements) <= idx {
			c.Elements = append(c.Elements, Undefined{})
		}
		c.Elements[idx] = value
		return nil
	default:
		return &JSError{Kind: "TypeError", Message: "Cannot set property on non-object"}
	}
}

func arrayIndex(key string) (int, bool) {
	n := 0
	if key == "" {
		return 0, false
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// evalMember returns (containingObject, value, error); the containing
// object is reused by assignTo so property writes don't re-evaluate
// the object expression (avoiding duplicate side effects).
func (interp *Interpreter) evalMember(ex *Member, scope *Scope, this interface{}) (interface{}, interface{}, error) {
	obj, err := interp.eval(ex.Object, scope, this)
	if err != nil {
		return nil, nil, err
	}
	key, err := interp.memberKey(ex, scope, this)
	if err != nil {
		return nil, nil, err
	}
	v, err := getMemberValue(interp, obj, key)
	return obj, v, err
}

func (interp *Interpreter) memberKey(ex *Member, scope *Scope, this interface{}) (string, error) {
	if !ex.Computed {
		return ex.Property.(*Identifier).Name, nil
	}
	v, err := interp.eval(ex.Property, scope, this)
	if err != nil {
		return "", err
	}
	return toStr(v), nil
}

func getMemberValue(interp *Interpreter, container interface{}, key string) (interface{}, error) {
	switch c := container.(type) {
	case *Object:
		if c.DOMNode != nil {
			if v, ok := domPropertyGet(interp, c, key); ok {
				return v, nil
			}
			if fn, ok := domMethod(c, key); ok {
				return fn, nil
			}
		}
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		return Undefined{}, nil
	case *Array:
		if key == "length" {
			return float64(len(c.Elements)), nil
		}
		if idx, ok := arrayIndex(key); ok {
			if idx < 0 || idx >= len(c.Elements) {
				return Undefined{}, nil
			}
			return c.Elements[idx], nil
		}
		if fn, ok := arrayMethod(key); ok {
			return fn, nil
		}
		return Undefined{}, nil
	case string:
		if key == "length" {
			return float64(len([]rune(c))), nil
		}
		if fn, ok := stringMethod(key); ok {
			return fn, nil
		}
		if idx, ok := arrayIndex(key); ok {
			r := []rune(c)
			if idx < 0 || idx >= len(r) {
				return Undefined{}, nil
			}
			return string(r[idx]), nil
		}
		return Undefined{}, nil
	case Undefined, nil:
		return nil, &JSError{Kind: "TypeError", Message: fmt.Sprintf("Cannot read properties of %s (reading '%s')", toStr(c), key)}
	default:
		return Undefined{}, nil
	}
}

func (interp *Interpreter) evalCall(ex *Call, scope *Scope, this interface{}) (interface{}, error) {
	var callThis interface{} = Undefined{}
	var callee interface{}
	var err error
	if m, ok := ex.Callee.(*Member); ok {
		obj, v, e := interp.evalMember(m, scope, this)
		if e != nil {
			return nil, e
		}
		callThis = obj
		callee = v
	} else {
		callee, err = interp.eval(ex.Callee, scope, this)
		if err != nil {
			return nil, err
		}
	}
	args := make([]interface{}, len(ex.Arguments))
	for i, a := range ex.Arguments {
		v, err := interp.eval(a, scope, this)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return interp.callFunction(callee, callThis, args)
}

func (interp *Interpreter) callFunction(callee interface{}, this interface{}, args []interface{}) (interface{}, error) {
	fn, ok := callee.(*Object)
	if !ok || fn.Class != "Function" {
		return nil, &JSError{Kind: "TypeError", Message: toStr(callee) + " is not a function"}
	}
	interp.depth++
	defer func() { interp.depth-- }()
	if interp.depth > interp.MaxCallDepth {
		return nil, &JSError{Kind: "RangeError", Message: "Maximum call stack size exceeded"}
	}

	if fn.Native != nil {
		return fn.Native(interp, this, args)
	}

	callScope := fn.Closure.child(true)
	for i, p := range fn.Params {
		var v interface{} = Undefined{}
		if i < len(args) {
			v = args[i]
		}
		callScope.bindings[p] = &Binding{Value: v, Kind: "param", Initialized: true}
	}
	argsArr := &Array{Elements: append([]interface{}{}, args...)}
	callScope.bindings["arguments"] = &Binding{Value: argsArr, Kind: "var", Initialized: true}

	// Arrow functions capture `this` lexically at creation time
	// (fn.DefThis, set when the ArrowFunction expression was
	// evaluated); ordinary functions use the call-site `this`
	// (member-call receiver, or undefined for a free call).
	effectiveThis := this
	if fn.IsArrow {
		effectiveThis = fn.DefThis
	}

	if fn.ExprBody != nil {
		return interp.eval(fn.ExprBody, callScope, effectiveThis)
	}

	interp.hoist(fn.Body.Body, callScope)
	for _, s := range fn.Body.Body {
		cf, err := interp.execStatement(s, callScope, effectiveThis)
		if err != nil {
			return nil, err
		}
		if cf.Kind == "return" {
			return cf.Value, nil
		}
	}
	return Undefined{}, nil
}

func (interp *Interpreter) evalNew(ex *New, scope *Scope, this interface{}) (interface{}, error) {
	calleeVal, err := interp.eval(ex.Callee, scope, this)
	if err != nil {
		return nil, err
	}
	fn, ok := calleeVal.(*Object)
	if !ok || fn.Class != "Function" {
		return nil, &JSError{Kind: "TypeError", Message: toStr(calleeVal) + " is not a constructor"}
	}
	args := make([]interface{}, len(ex.Arguments))
	for i, a := range ex.Arguments {
		v, err := interp.eval(a, scope, this)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	obj := NewObject()
	if proto, ok := fn.Get("prototype"); ok {
		if protoObj, ok := proto.(*Object); ok {
			obj.Proto = protoObj
		}
	}
	result, err := interp.callFunction(fn, obj, args)
	if err != nil {
		return nil, err
	}
	if resObj, ok := result.(*Object); ok {
		return resObj, nil
	}
	return obj, nil
}
