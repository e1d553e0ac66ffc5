package jsengine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSError is a thrown JS error value, one of Error, TypeError,
// ReferenceError, SyntaxError, RangeError.
type JSError struct {
	Kind    string
	Message string
}

func (e *JSError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Object is a plain JS object: an ordered property map (insertion
// order preserved for for-in/Object.keys determinism).
type Object struct {
	Props   map[string]interface{}
	keys    []string
	Proto   *Object
	Class   string // "Object", "Array", "Function" - used by typeof/instanceof
	Native  func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error)
	Closure *Scope
	Params  []string
	Body    *Block
	ExprBody Expression
	IsArrow bool
	DefThis interface{} // this at definition time, captured lexically by arrow functions

	// DOMNode is non-nil when this Object wraps a live dom.Node for
	// the DOM binding (dom.go); opaque here to avoid an import cycle,
	// cast back to *dom.Node by dom.go's own accessors.
	DOMNode interface{}
}

func NewObject() *Object {
	return &Object{Props: make(map[string]interface{}), Class: "Object"}
}

func (o *Object) Set(key string, value interface{}) {
	if _, ok := o.Props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.Props[key] = value
}

func (o *Object) Get(key string) (interface{}, bool) {
	if v, ok := o.Props[key]; ok {
		return v, true
	}
	if o.Proto != nil {
		return o.Proto.Get(key)
	}
	return nil, false
}

func (o *Object) Delete(key string) {
	if _, ok := o.Props[key]; ok {
		delete(o.Props, key)
		for i, k := range o.keys {
			if k == key {
				o.keys = append(o.keys[:i], o.keys[i+1:]...)
				break
			}
		}
	}
}

func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Array is a JS array: an ordered value list. It carries no named
// properties: a write to a non-index key is ignored.
type Array struct {
	Elements []interface{}
}

// NewArray wraps elements in the Array value type Call/Member
// dispatch recognizes.
func NewArray(elems ...interface{}) *Array { return &Array{Elements: elems} }

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case Undefined:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

func typeOf(v interface{}) string {
	switch v.(type) {
	case Undefined:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Object:
		if v.(*Object).Class == "Function" {
			return "function"
		}
		return "object"
	case *Array:
		return "object"
	default:
		return "object"
	}
}

// toNumber implements the ECMAScript ToNumber coercion used by `+`
// (when neither operand is a string), comparisons, and the == table.
func toNumber(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case nil:
		return 0
	case Undefined:
		return math.NaN()
	default:
		return math.NaN()
	}
}

// toStr implements ToString for `+` concatenation and the == table's
// object coercion.
func toStr(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case *Array:
		parts := make([]string, len(x.Elements))
		for i, e := range x.Elements {
			parts[i] = toStr(e)
		}
		return strings.Join(parts, ",")
	case *Object:
		if x.Class == "Function" {
			return "function () { [native code] }"
		}
		return "[object Object]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// strictEquals implements `===`: NaN != NaN, objects/arrays/functions
// compare by reference identity.
func strictEquals(a, b interface{}) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case nil:
		return b == nil
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		return ok && x == y
	default:
		return false
	}
}

// looseEquals implements the `==` coercion table.
func looseEquals(a, b interface{}) bool {
	if strictEquals(a, b) {
		return true
	}
	aNull := isNullish(a)
	bNull := isNullish(b)
	if aNull || bNull {
		return aNull && bNull
	}
	an, aIsNum := a.(float64)
	bn, bIsNum := b.(float64)
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)

	switch {
	case aIsNum && bIsStr:
		return an == toNumber(bs)
	case aIsStr && bIsNum:
		return toNumber(as) == bn
	case aIsBool:
		return looseEquals(boolToNumber(ab), b)
	case bIsBool:
		return looseEquals(a, boolToNumber(bb))
	case (aIsNum || aIsStr) && isObjectLike(b):
		return looseEquals(a, toStr(b))
	case (bIsNum || bIsStr) && isObjectLike(a):
		return looseEquals(toStr(a), b)
	}
	return false
}

func boolToNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isNullish(v interface{}) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Undefined)
	return ok
}

func isObjectLike(v interface{}) bool {
	switch v.(type) {
	case *Object, *Array:
		return true
	}
	return false
}

