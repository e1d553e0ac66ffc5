package jsengine

import "fmt"

// Binding is one name's storage slot in a Scope.
type Binding struct {
	Value       interface{}
	Kind        string // "var" | "let" | "const" | "param" | "function"
	Initialized bool
}

// Scope is one lexical scope: block scopes nest under function scopes
// which nest under the global scope.
type Scope struct {
	parent     *Scope
	bindings   map[string]*Binding
	isFunction bool // var hoists to the nearest scope with isFunction==true
}

func NewGlobalScope() *Scope {
	return &Scope{bindings: make(map[string]*Binding), isFunction: true}
}

func (s *Scope) child(isFunction bool) *Scope {
	return &Scope{parent: s, bindings: make(map[string]*Binding), isFunction: isFunction}
}

// functionScope walks up to the nearest enclosing function (or
// global) scope, the hoisting target for `var`.
func (s *Scope) functionScope() *Scope {
	cur := s
	for !cur.isFunction && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// declareVar implements `var` hoisting and redeclaration rules:
// redeclaring a `var` with `var` is allowed, but a name already bound
// by `let`/`const` in the same scope is a SyntaxError.
func (s *Scope) declareVar(name string) error {
	target := s.functionScope()
	if b, ok := target.bindings[name]; ok {
		if b.Kind != "var" && b.Kind != "function" && b.Kind != "param" {
			return &JSError{Kind: "SyntaxError", Message: fmt.Sprintf("Identifier '%s' has already been declared", name)}
		}
		return nil
	}
	target.bindings[name] = &Binding{Value: Undefined{}, Kind: "var", Initialized: true}
	return nil
}

// declareLexical implements `let`/`const` block-scoped declaration;
// TDZ is modeled by Initialized=false until the declarator's
// initializer runs.
func (s *Scope) declareLexical(name, kind string) error {
	if _, ok := s.bindings[name]; ok {
		return &JSError{Kind: "SyntaxError", Message: fmt.Sprintf("Identifier '%s' has already been declared", name)}
	}
	s.bindings[name] = &Binding{Value: Undefined{}, Kind: kind, Initialized: false}
	return nil
}

func (s *Scope) lookup(name string) (*Scope, *Binding) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[name]; ok {
			return cur, b
		}
	}
	return nil, nil
}

// get reads a binding: a free name is a ReferenceError,
// and so is an uninitialized let/const (temporal dead zone).
func (s *Scope) get(name string) (interface{}, error) {
	_, b := s.lookup(name)
	if b == nil {
		return nil, &JSError{Kind: "ReferenceError", Message: fmt.Sprintf("%s is not defined", name)}
	}
	if !b.Initialized {
		return nil, &JSError{Kind: "ReferenceError", Message: fmt.Sprintf("Cannot access '%s' before initialization", name)}
	}
	return b.Value, nil
}

// set assigns a binding: assigning to const after
// initialization is a TypeError; writing a free name creates it in
// the global scope (non-strict semantics).
func (s *Scope) set(name string, value interface{}) error {
	_, b := s.lookup(name)
	if b == nil {
		global := s
		for global.parent != nil {
			global = global.parent
		}
		global.bindings[name] = &Binding{Value: value, Kind: "var", Initialized: true}
		return nil
	}
	if b.Kind == "const" && b.Initialized {
		return &JSError{Kind: "TypeError", Message: "Assignment to constant variable."}
	}
	b.Value = value
	b.Initialized = true
	return nil
}
