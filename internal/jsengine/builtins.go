package jsengine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	json "github.com/go-json-experiment/json"
)

// nativeFn wraps a Go closure as a callable JS function Object, the
// shape every builtin and array/string method below is built from.
func nativeFn(fn func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error)) *Object {
	return &Object{Props: make(map[string]interface{}), Class: "Function", Native: fn}
}

func arg(args []interface{}, i int) interface{} {
	if i < 0 || i >= len(args) {
		return Undefined{}
	}
	return args[i]
}

// installBuiltins populates the global scope with the console/Math/JSON
// objects and the free global functions, plus Array/Object
// statics. Array.prototype/String.prototype methods are dispatched
// separately by arrayMethod/stringMethod (getMemberValue in
// interpreter.go), matching how this engine resolves `arr.push` without
// a real prototype-chain object for primitives.
func installBuiltins(interp *Interpreter) {
	g := interp.Global
	bindConst := func(name string, v interface{}) {
		g.bindings[name] = &Binding{Value: v, Kind: "const", Initialized: true}
	}

	bindConst("undefined", Undefined{})
	bindConst("null", nil)
	bindConst("NaN", math.NaN())
	bindConst("Infinity", math.Inf(1))

	bindConst("console", buildConsole())
	bindConst("Math", buildMath())
	bindConst("JSON", buildJSON())
	bindConst("Object", buildObjectStatics())
	bindConst("Array", buildArrayStatics())

	bindConst("parseInt", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		s := strings.TrimSpace(toStr(arg(args, 0)))
		radix := 10
		if len(args) > 1 {
			if r := int(toNumber(args[1])); r != 0 {
				radix = r
			}
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg, s = true, s[1:]
		} else if strings.HasPrefix(s, "+") {
			s = s[1:]
		}
		if radix == 16 || radix == 10 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
			radix = 16
		}
		end := 0
		for end < len(s) && isDigitInRadix(s[end], radix) {
			end++
		}
		if end == 0 {
			return math.NaN(), nil
		}
		n, err := strconv.ParseInt(s[:end], radix, 64)
		if err != nil {
			return math.NaN(), nil
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return f, nil
	}))

	bindConst("parseFloat", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		s := strings.TrimSpace(toStr(arg(args, 0)))
		end := len(s)
		for end > 0 {
			if _, err := strconv.ParseFloat(s[:end], 64); err == nil {
				break
			}
			end--
		}
		if end == 0 {
			return math.NaN(), nil
		}
		f, _ := strconv.ParseFloat(s[:end], 64)
		return f, nil
	}))

	bindConst("isNaN", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		return math.IsNaN(toNumber(arg(args, 0))), nil
	}))

	bindConst("isFinite", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		n := toNumber(arg(args, 0))
		return !math.IsNaN(n) && !math.IsInf(n, 0), nil
	}))

	bindConst("Number", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		if len(args) == 0 {
			return float64(0), nil
		}
		return toNumber(args[0]), nil
	}))

	bindConst("String", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		if len(args) == 0 {
			return "", nil
		}
		return toStr(args[0]), nil
	}))

	bindConst("Boolean", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		return truthy(arg(args, 0)), nil
	}))
}

func isDigitInRadix(c byte, radix int) bool {
	var v int
	switch {
	case c >= '0' && c <= '9':
		v = int(c - '0')
	case c >= 'a' && c <= 'z':
		v = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		v = int(c-'A') + 10
	default:
		return false
	}
	return v < radix
}

// --- console ---

func buildConsole() *Object {
	o := NewObject()
	for _, level := range []string{"log", "error", "warn", "info", "debug"} {
		lvl := level
		o.Set(lvl, nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if interp.Console != nil {
				interp.Console.Log(lvl, args)
			}
			return Undefined{}, nil
		}))
	}
	return o
}

// --- Math ---

func buildMath() *Object {
	o := NewObject()
	o.Set("PI", math.Pi)
	o.Set("E", math.E)
	o.Set("LN2", math.Ln2)
	o.Set("LN10", math.Log(10))
	o.Set("LOG2E", 1/math.Ln2)
	o.Set("LOG10E", 1/math.Log(10))
	o.Set("SQRT2", math.Sqrt2)
	o.Set("SQRT1_2", math.Sqrt(0.5))

	unary := func(f func(float64) float64) *Object {
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return f(toNumber(arg(args, 0))), nil
		})
	}
	o.Set("abs", unary(math.Abs))
	o.Set("ceil", unary(math.Ceil))
	o.Set("floor", unary(math.Floor))
	o.Set("round", unary(func(f float64) float64 { return math.Floor(f + 0.5) }))
	o.Set("sqrt", unary(math.Sqrt))
	o.Set("sin", unary(math.Sin))
	o.Set("cos", unary(math.Cos))
	o.Set("tan", unary(math.Tan))
	o.Set("log", unary(math.Log))
	o.Set("exp", unary(math.Exp))
	o.Set("trunc", unary(math.Trunc))
	o.Set("sign", unary(func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	}))

	o.Set("max", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		if len(args) == 0 {
			return math.Inf(-1), nil
		}
		m := toNumber(args[0])
		for _, a := range args[1:] {
			n := toNumber(a)
			if math.IsNaN(n) {
				return math.NaN(), nil
			}
			if n > m {
				m = n
			}
		}
		return m, nil
	}))
	o.Set("min", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		if len(args) == 0 {
			return math.Inf(1), nil
		}
		m := toNumber(args[0])
		for _, a := range args[1:] {
			n := toNumber(a)
			if math.IsNaN(n) {
				return math.NaN(), nil
			}
			if n < m {
				m = n
			}
		}
		return m, nil
	}))
	o.Set("pow", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		return math.Pow(toNumber(arg(args, 0)), toNumber(arg(args, 1))), nil
	}))
	o.Set("random", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		return interp.random(), nil
	}))
	return o
}

// random is a method (not a free function) so a future deterministic
// interpreter (tests wanting reproducible `Math.random()`) can swap
// the source without touching buildMath's closures.
func (interp *Interpreter) random() float64 {
	if interp.RandSource != nil {
		return interp.RandSource()
	}
	return pseudoRandom()
}

// --- JSON ---

func buildJSON() *Object {
	o := NewObject()
	o.Set("stringify", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		native := toJSONNative(arg(args, 0))
		b, err := json.Marshal(native)
		if err != nil {
			return Undefined{}, nil
		}
		if string(b) == "null" {
			if _, ok := arg(args, 0).(Undefined); ok {
				return Undefined{}, nil
			}
			if _, ok := arg(args, 0).(*Object); ok {
				return Undefined{}, nil
			}
		}
		return string(b), nil
	}))
	o.Set("parse", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		var native interface{}
		if err := json.Unmarshal([]byte(toStr(arg(args, 0))), &native); err != nil {
			return nil, &JSError{Kind: "SyntaxError", Message: "Unexpected token in JSON"}
		}
		return fromJSONNative(native), nil
	}))
	return o
}

// toJSONNative converts a JS value into the plain Go shape
// go-json-experiment/json marshals (functions are omitted;
// NaN/Infinity become nil so they serialize as `null`).
func toJSONNative(v interface{}) interface{} {
	switch x := v.(type) {
	case Undefined:
		return nil
	case nil:
		return nil
	case bool, string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case *Array:
		out := make([]interface{}, len(x.Elements))
		for i, e := range x.Elements {
			out[i] = toJSONNative(e)
		}
		return out
	case *Object:
		if x.Class == "Function" {
			return nil
		}
		m := make(map[string]interface{}, len(x.keys))
		for _, k := range x.keys {
			pv := x.Props[k]
			if fn, ok := pv.(*Object); ok && fn.Class == "Function" {
				continue
			}
			m[k] = toJSONNative(pv)
		}
		return m
	default:
		return nil
	}
}

func fromJSONNative(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, float64:
		return x
	case []interface{}:
		elems := make([]interface{}, len(x))
		for i, e := range x {
			elems[i] = fromJSONNative(e)
		}
		return &Array{Elements: elems}
	case map[string]interface{}:
		obj := NewObject()
		for k, val := range x {
			obj.Set(k, fromJSONNative(val))
		}
		return obj
	default:
		return Undefined{}
	}
}

// --- Object / Array statics ---

func buildObjectStatics() *Object {
	o := NewObject()
	o.Class = "Function" // callable as `new Object()` in principle; mainly used for its statics
	o.Set("keys", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		obj, ok := arg(args, 0).(*Object)
		if !ok {
			return NewArray(), nil
		}
		keys := obj.Keys()
		elems := make([]interface{}, len(keys))
		for i, k := range keys {
			elems[i] = k
		}
		return &Array{Elements: elems}, nil
	}))
	o.Set("values", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		obj, ok := arg(args, 0).(*Object)
		if !ok {
			return NewArray(), nil
		}
		keys := obj.Keys()
		elems := make([]interface{}, len(keys))
		for i, k := range keys {
			elems[i], _ = obj.Get(k)
		}
		return &Array{Elements: elems}, nil
	}))
	o.Set("entries", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		obj, ok := arg(args, 0).(*Object)
		if !ok {
			return NewArray(), nil
		}
		keys := obj.Keys()
		elems := make([]interface{}, len(keys))
		for i, k := range keys {
			v, _ := obj.Get(k)
			elems[i] = NewArray(k, v)
		}
		return &Array{Elements: elems}, nil
	}))
	return o
}

func buildArrayStatics() *Object {
	o := NewObject()
	o.Class = "Function"
	o.Set("isArray", nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
		_, ok := arg(args, 0).(*Array)
		return ok, nil
	}))
	return o
}

// --- Array.prototype dispatch ---

// arrayMethod returns the native function bound to name, dispatched by
// getMemberValue when the receiver is a *Array: the small fixed
// method set the DOM-binding glue code and test programs actually
// call.
func arrayMethod(name string) (*Object, bool) {
	fn, ok := arrayMethods[name]
	return fn, ok
}

var arrayMethods map[string]*Object

func init() {
	arrayMethods = map[string]*Object{
		"push": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			arr.Elements = append(arr.Elements, args...)
			return float64(len(arr.Elements)), nil
		}),
		"pop": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			if len(arr.Elements) == 0 {
				return Undefined{}, nil
			}
			last := arr.Elements[len(arr.Elements)-1]
			arr.Elements = arr.Elements[:len(arr.Elements)-1]
			return last, nil
		}),
		"shift": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			if len(arr.Elements) == 0 {
				return Undefined{}, nil
			}
			first := arr.Elements[0]
			arr.Elements = arr.Elements[1:]
			return first, nil
		}),
		"unshift": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			arr.Elements = append(append([]interface{}{}, args...), arr.Elements...)
			return float64(len(arr.Elements)), nil
		}),
		"slice": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			start, end := sliceBounds(len(arr.Elements), args)
			return &Array{Elements: append([]interface{}{}, arr.Elements[start:end]...)}, nil
		}),
		"splice": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			n := len(arr.Elements)
			start := normalizeIndex(int(toNumber(arg(args, 0))), n)
			deleteCount := n - start
			if len(args) > 1 {
				deleteCount = int(toNumber(args[1]))
			}
			if deleteCount < 0 {
				deleteCount = 0
			}
			if start+deleteCount > n {
				deleteCount = n - start
			}
			removed := append([]interface{}{}, arr.Elements[start:start+deleteCount]...)
			var inserted []interface{}
			if len(args) > 2 {
				inserted = args[2:]
			}
			tail := append([]interface{}{}, arr.Elements[start+deleteCount:]...)
			arr.Elements = append(append(arr.Elements[:start], inserted...), tail...)
			return &Array{Elements: removed}, nil
		}),
		"concat": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			out := append([]interface{}{}, arr.Elements...)
			for _, a := range args {
				if other, ok := a.(*Array); ok {
					out = append(out, other.Elements...)
				} else {
					out = append(out, a)
				}
			}
			return &Array{Elements: out}, nil
		}),
		"join": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			sep := ","
			if len(args) > 0 {
				if _, ok := args[0].(Undefined); !ok {
					sep = toStr(args[0])
				}
			}
			parts := make([]string, len(arr.Elements))
			for i, e := range arr.Elements {
				if isNullish(e) {
					parts[i] = ""
				} else {
					parts[i] = toStr(e)
				}
			}
			return strings.Join(parts, sep), nil
		}),
		"reverse": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
				arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
			}
			return arr, nil
		}),
		"indexOf": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			target := arg(args, 0)
			for i, e := range arr.Elements {
				if strictEquals(e, target) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}),
		"includes": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			target := arg(args, 0)
			for _, e := range arr.Elements {
				if strictEquals(e, target) {
					return true, nil
				}
			}
			return false, nil
		}),
		"map": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			out := make([]interface{}, len(arr.Elements))
			for i, e := range arr.Elements {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr})
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return &Array{Elements: out}, nil
		}),
		"filter": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			var out []interface{}
			for i, e := range arr.Elements {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr})
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					out = append(out, e)
				}
			}
			return &Array{Elements: out}, nil
		}),
		"forEach": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			for i, e := range arr.Elements {
				if _, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr}); err != nil {
					return nil, err
				}
			}
			return Undefined{}, nil
		}),
		"reduce": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			var acc interface{}
			start := 0
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(arr.Elements) == 0 {
					return nil, &JSError{Kind: "TypeError", Message: "Reduce of empty array with no initial value"}
				}
				acc = arr.Elements[0]
				start = 1
			}
			for i := start; i < len(arr.Elements); i++ {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{acc, arr.Elements[i], float64(i), arr})
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		}),
		"find": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			for i, e := range arr.Elements {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr})
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					return e, nil
				}
			}
			return Undefined{}, nil
		}),
		"some": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			for i, e := range arr.Elements {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr})
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					return true, nil
				}
			}
			return false, nil
		}),
		"every": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			for i, e := range arr.Elements {
				v, err := interp.callFunction(cb, Undefined{}, []interface{}{e, float64(i), arr})
				if err != nil {
					return nil, err
				}
				if !truthy(v) {
					return false, nil
				}
			}
			return true, nil
		}),
		"sort": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			arr := this.(*Array)
			cb := arg(args, 0)
			var sortErr error
			sort.SliceStable(arr.Elements, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				if fn, ok := cb.(*Object); ok && fn.Class == "Function" {
					v, err := interp.callFunction(fn, Undefined{}, []interface{}{arr.Elements[i], arr.Elements[j]})
					if err != nil {
						sortErr = err
						return false
					}
					return toNumber(v) < 0
				}
				return toStr(arr.Elements[i]) < toStr(arr.Elements[j])
			})
			if sortErr != nil {
				return nil, sortErr
			}
			return arr, nil
		}),
	}
}

func sliceBounds(n int, args []interface{}) (int, int) {
	start, end := 0, n
	if len(args) > 0 {
		start = normalizeIndex(int(toNumber(args[0])), n)
	}
	if len(args) > 1 {
		if _, ok := args[1].(Undefined); !ok {
			end = normalizeIndex(int(toNumber(args[1])), n)
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

// --- String.prototype dispatch ---

func stringMethod(name string) (*Object, bool) {
	fn, ok := stringMethods[name]
	return fn, ok
}

var stringMethods map[string]*Object

func init() {
	stringMethods = map[string]*Object{
		"charAt": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			r := []rune(this.(string))
			i := int(toNumber(arg(args, 0)))
			if i < 0 || i >= len(r) {
				return "", nil
			}
			return string(r[i]), nil
		}),
		"charCodeAt": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			r := []rune(this.(string))
			i := int(toNumber(arg(args, 0)))
			if i < 0 || i >= len(r) {
				return math.NaN(), nil
			}
			return float64(r[i]), nil
		}),
		"indexOf": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return float64(strings.Index(this.(string), toStr(arg(args, 0)))), nil
		}),
		"includes": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.Contains(this.(string), toStr(arg(args, 0))), nil
		}),
		"startsWith": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.HasPrefix(this.(string), toStr(arg(args, 0))), nil
		}),
		"endsWith": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.HasSuffix(this.(string), toStr(arg(args, 0))), nil
		}),
		"slice": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			r := []rune(this.(string))
			start, end := sliceBounds(len(r), args)
			return string(r[start:end]), nil
		}),
		"substring": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			r := []rune(this.(string))
			n := len(r)
			start := clamp(int(toNumber(arg(args, 0))), 0, n)
			end := n
			if len(args) > 1 {
				if _, ok := args[1].(Undefined); !ok {
					end = clamp(int(toNumber(args[1])), 0, n)
				}
			}
			if start > end {
				start, end = end, start
			}
			return string(r[start:end]), nil
		}),
		"split": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			s := this.(string)
			if len(args) == 0 {
				return NewArray(s), nil
			}
			sep := toStr(args[0])
			var parts []string
			if sep == "" {
				for _, r := range s {
					parts = append(parts, string(r))
				}
			} else {
				parts = strings.Split(s, sep)
			}
			elems := make([]interface{}, len(parts))
			for i, p := range parts {
				elems[i] = p
			}
			return &Array{Elements: elems}, nil
		}),
		"toUpperCase": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.ToUpper(this.(string)), nil
		}),
		"toLowerCase": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.ToLower(this.(string)), nil
		}),
		"trim": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return strings.TrimSpace(this.(string)), nil
		}),
		"repeat": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := int(toNumber(arg(args, 0)))
			if n < 0 {
				return nil, &JSError{Kind: "RangeError", Message: "Invalid count value"}
			}
			return strings.Repeat(this.(string), n), nil
		}),
		"padStart": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return padString(this.(string), args, true), nil
		}),
		"padEnd": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			return padString(this.(string), args, false), nil
		}),
		"concat": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			s := this.(string)
			for _, a := range args {
				s += toStr(a)
			}
			return s, nil
		}),
		"replace": nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			s := this.(string)
			old := toStr(arg(args, 0))
			newStr := toStr(arg(args, 1))
			return strings.Replace(s, old, newStr, 1), nil
		}),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func padString(s string, args []interface{}, start bool) string {
	target := int(toNumber(arg(args, 0)))
	pad := " "
	if len(args) > 1 {
		if _, ok := args[1].(Undefined); !ok {
			pad = toStr(args[1])
		}
	}
	cur := len([]rune(s))
	if cur >= target || pad == "" {
		return s
	}
	need := target - cur
	var b strings.Builder
	for b.Len() < need {
		b.WriteString(pad)
	}
	padding := string([]rune(b.String())[:need])
	if start {
		return padding + s
	}
	return s + padding
}

// pseudoRandom provides Math.random() without a time-seeded source; a
// splitmix64-style counter is deterministic across runs, which keeps
// renders reproducible.
var randState uint64 = 0x9e3779b97f4a7c15

func pseudoRandom() float64 {
	randState += 0x9e3779b97f4a7c15
	z := randState
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z = z ^ (z >> 31)
	return float64(z>>11) / (1 << 53)
}
