package heap

import "fmt"

// Env binds variable names to places. Scopes nest for calls and atomic
// sections; lookups walk outward.
type Env struct {
	parent *Env
	vars   map[string]Place
}

// NewEnv returns an empty top-level environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Place)}
}

// Child returns a scope nested inside e.
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: make(map[string]Place)}
}

// Bind binds name in this scope, shadowing any outer binding.
func (e *Env) Bind(name string, p Place) {
	e.vars[name] = p
}

// Rebind replaces the binding of name wherever it was made. Errors when
// name is unbound in every enclosing scope.
func (e *Env) Rebind(name string, p Place) error {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = p
			return nil
		}
	}
	return fmt.Errorf("heap: variable %q is not bound", name)
}

// Lookup resolves name through the scope chain.
func (e *Env) Lookup(name string) (Place, bool) {
	for s := e; s != nil; s = s.parent {
		if p, ok := s.vars[name]; ok {
			return p, true
		}
	}
	return Place{}, false
}

// MustLookup resolves name or panics.
func (e *Env) MustLookup(name string) Place {
	p, ok := e.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("heap: variable %q is not bound", name))
	}
	return p
}
