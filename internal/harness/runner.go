package harness

import (
	"fmt"
	"strings"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/forest"
	"github.com/grovelang/grove/internal/heap"
	"github.com/grovelang/grove/internal/match"
	"github.com/grovelang/grove/internal/perm"
	"github.com/grovelang/grove/internal/sigspec"
	"github.com/grovelang/grove/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Output holds the printed lines in order.
	Output []string

	// Err is the runtime violation that stopped the run, nil when the
	// run completed.
	Err error

	// Diagnostics are the static-check findings of call steps, in
	// program order. Diagnostics never stop execution.
	Diagnostics []match.Diagnostic

	Forest *forest.Forest
	Heap   *heap.Heap
	Engine *engine.Engine

	// Env is the top-level variable environment after the run. Bindings
	// made inside atomic sections live in child scopes and are gone.
	Env *heap.Env
}

type runner struct {
	scenario *Scenario
	forest   *forest.Forest
	engine   *engine.Engine
	heap     *heap.Heap
	env      *heap.Env
	sigs     map[string]match.Signature

	output []string
	diags  []match.Diagnostic
	err    error // first runtime violation
	line   int

	tokenGen        engine.RunTokenGenerator
	extraEngineOpts []engine.Option
}

// Option configures a run.
type Option func(*runner)

// WithEngineOptions forwards options to the scenario's engine, e.g. a
// trace recorder.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(r *runner) {
		r.extraEngineOpts = append(r.extraEngineOpts, opts...)
	}
}

// WithTokenGenerator mints run tokens for scenarios that do not pin one.
// The CLI passes engine.UUIDv7Generator{} so each scenario gets its own
// trace run.
func WithTokenGenerator(g engine.RunTokenGenerator) Option {
	return func(r *runner) {
		r.tokenGen = g
	}
}

// Run executes a scenario against a fresh forest, heap, and engine.
// Scenario-level faults (unbound variables, unknown fields, malformed
// signature specs) return an error; permission violations end up in
// Result.Err with the remaining steps skipped.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	r := &runner{
		scenario: s,
		forest:   forest.New(),
		heap:     heap.New(),
		env:      heap.NewEnv(),
		tokenGen: testutil.NewFixedRunGenerator(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	engineOpts := []engine.Option{engine.WithTokenGenerator(r.tokenGen)}
	if s.RunToken != "" {
		engineOpts = append(engineOpts, engine.WithRunToken(s.RunToken))
	}
	engineOpts = append(engineOpts, r.extraEngineOpts...)
	r.engine = engine.New(r.forest, engineOpts...)

	if s.Signatures != "" {
		sigs, errs := sigspec.CompileFile(s.Signatures)
		if len(errs) > 0 {
			return nil, fmt.Errorf("compiling signatures: %w", errs[0])
		}
		r.sigs = make(map[string]match.Signature, len(sigs))
		for _, sig := range sigs {
			r.sigs[sig.Name] = sig
		}
	}

	if err := r.exec(s.Steps, nil); err != nil {
		return nil, err
	}

	return &Result{
		Output:      r.output,
		Err:         r.err,
		Diagnostics: r.diags,
		Forest:      r.forest,
		Heap:        r.heap,
		Engine:      r.engine,
		Env:         r.env,
	}, nil
}

// exec runs steps until done or the first runtime violation. The scope
// is non-nil inside an atomic section.
func (r *runner) exec(steps []Step, scope *engine.AtomicScope) error {
	for _, step := range steps {
		if r.err != nil {
			return nil
		}
		r.line++
		span := perm.Span{File: r.scenario.Name + ".gv", Line: r.line}

		var err error
		switch {
		case step.New != nil:
			err = r.execNew(step.New, span)
		case step.Bind != nil:
			err = r.execBind(step.Bind, span)
		case step.Print != "":
			err = r.execPrint(step.Print, span)
		case step.Write != nil:
			err = r.execWrite(step.Write, scope, span)
		case step.Drop != "":
			err = r.execDrop(step.Drop, span)
		case step.Call != nil:
			err = r.execCall(step.Call, span)
		case step.Atomic != nil:
			// The section gets a child scope; bindings it makes do not
			// escape, writes to outer places do.
			outer := r.env
			r.env = outer.Child()
			err = r.exec(step.Atomic, r.engine.EnterAtomic())
			r.env = outer
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) execNew(step *NewStep, span perm.Span) error {
	defs := make([]heap.FieldDef, 0, len(step.Fields))
	for _, fv := range step.Fields {
		def := heap.FieldDef{Name: fv.Name, Atomic: fv.Atomic}
		switch {
		case fv.Ref != "":
			place, ok := r.env.Lookup(fv.Ref)
			if !ok {
				return fmt.Errorf("new %s: variable %q is not bound", step.Var, fv.Ref)
			}
			def.Value = heap.RefValue(place)
		case fv.Value != nil:
			v, err := scalarValue(fv.Value)
			if err != nil {
				return fmt.Errorf("new %s: field %q: %w", step.Var, fv.Name, err)
			}
			def.Value = v
		}
		defs = append(defs, def)
	}

	obj, err := r.heap.NewObject(step.Class, defs)
	if err != nil {
		return err
	}
	p := r.forest.NewRoot(perm.Unique, span)
	r.env.Bind(step.Var, heap.Place{Object: obj, Perm: p})
	return nil
}

func (r *runner) execBind(step *BindStep, span perm.Span) error {
	place, err := r.resolvePlace(step.From, span)
	if err != nil || r.err != nil {
		return err
	}

	var derived perm.ID
	var opErr error
	switch step.Via {
	case "give":
		derived, opErr = r.engine.Give(place.Perm, span)
	case "lease":
		derived, opErr = r.engine.Lease(place.Perm, span)
	case "share":
		derived, opErr = r.engine.Share(place.Perm, span)
	}
	if opErr != nil {
		return r.violation(opErr)
	}
	r.env.Bind(step.Var, heap.Place{Object: place.Object, Perm: derived})
	return nil
}

func (r *runner) execPrint(expr string, span perm.Span) error {
	segs := strings.Split(expr, ".")
	if len(segs) == 1 {
		place, ok := r.env.Lookup(expr)
		if !ok {
			return fmt.Errorf("print: variable %q is not bound", expr)
		}
		if err := r.engine.Guard().Read(place.Perm, span); err != nil {
			return r.violation(err)
		}
		r.output = append(r.output, r.heap.Render(heap.RefValue(place)))
		return nil
	}

	holder, err := r.resolvePlace(strings.Join(segs[:len(segs)-1], "."), span)
	if err != nil || r.err != nil {
		return err
	}
	if err := r.engine.Guard().Read(holder.Perm, span); err != nil {
		return r.violation(err)
	}
	v, err := r.heap.Field(holder.Object, segs[len(segs)-1])
	if err != nil {
		return fmt.Errorf("print %s: %w", expr, err)
	}
	r.output = append(r.output, r.heap.Render(v))
	return nil
}

func (r *runner) execWrite(step *WriteStep, scope *engine.AtomicScope, span perm.Span) error {
	place, err := r.resolvePlace(step.Target, span)
	if err != nil || r.err != nil {
		return err
	}

	obj, ok := r.heap.Object(place.Object)
	if !ok {
		return fmt.Errorf("write %s.%s: unknown object", step.Target, step.Field)
	}
	if _, ok := obj.Field(step.Field); !ok {
		return fmt.Errorf("write %s.%s: class %s has no such field", step.Target, step.Field, obj.Class)
	}

	var v heap.Value
	switch {
	case step.Ref != "":
		refPlace, ok := r.env.Lookup(step.Ref)
		if !ok {
			return fmt.Errorf("write %s.%s: variable %q is not bound", step.Target, step.Field, step.Ref)
		}
		v = heap.RefValue(refPlace)
	case step.Value != nil:
		var convErr error
		v, convErr = scalarValue(step.Value)
		if convErr != nil {
			return fmt.Errorf("write %s.%s: %w", step.Target, step.Field, convErr)
		}
	}

	field := engine.Field{Name: step.Field, Atomic: obj.FieldAtomic(step.Field)}
	if err := r.engine.Guard().Write(place.Perm, field, scope, span); err != nil {
		return r.violation(err)
	}
	return r.heap.SetField(place.Object, step.Field, v)
}

func (r *runner) execDrop(name string, span perm.Span) error {
	place, ok := r.env.Lookup(name)
	if !ok {
		return fmt.Errorf("drop: variable %q is not bound", name)
	}
	if err := r.engine.Drop(place.Perm, span); err != nil {
		return r.violation(err)
	}
	return nil
}

func (r *runner) execCall(step *CallStep, span perm.Span) error {
	sig, ok := r.sigs[step.Func]
	if !ok {
		return fmt.Errorf("call: no signature for %q", step.Func)
	}

	site := match.CallSite{
		Func:        step.Func,
		Args:        make(map[string]perm.ID, len(step.Args)),
		Resolutions: make(map[string][]perm.ID),
		Span:        span,
	}
	for param, varName := range step.Args {
		place, ok := r.env.Lookup(varName)
		if !ok {
			return fmt.Errorf("call %s: variable %q is not bound", step.Func, varName)
		}
		site.Args[param] = place.Perm
	}

	// A pattern path names the parameter whose call-site permission
	// parameterizes it.
	for _, path := range patternPaths(sig) {
		if p, ok := site.Args[path]; ok {
			site.Resolutions[path] = []perm.ID{p}
		}
	}

	if step.Result != "" {
		obj, err := r.heap.NewObject("Value", nil)
		if err != nil {
			return err
		}
		ret := r.forest.NewRoot(perm.Unique, span)
		site.Return = ret
		r.env.Bind(step.Result, heap.Place{Object: obj, Perm: ret})
	}

	r.diags = append(r.diags, match.CheckCall(r.forest, sig, site)...)
	return nil
}

// resolvePlace navigates a variable or dotted field path to a place.
// Each field hop reads the holder through its permission; the final
// place itself is not accessed.
func (r *runner) resolvePlace(expr string, span perm.Span) (heap.Place, error) {
	segs := strings.Split(expr, ".")
	place, ok := r.env.Lookup(segs[0])
	if !ok {
		return heap.Place{}, fmt.Errorf("variable %q is not bound", segs[0])
	}
	for _, seg := range segs[1:] {
		if err := r.engine.Guard().Read(place.Perm, span); err != nil {
			return heap.Place{}, r.violation(err)
		}
		v, err := r.heap.Field(place.Object, seg)
		if err != nil {
			return heap.Place{}, fmt.Errorf("%s: %w", expr, err)
		}
		if v.Kind != heap.KindRef {
			return heap.Place{}, fmt.Errorf("%s: field %q does not hold a reference", expr, seg)
		}
		place = v.Ref
	}
	return place, nil
}

// violation records a runtime violation and returns nil so exec stops
// cleanly; a non-violation error passes through as a scenario fault.
func (r *runner) violation(err error) error {
	if engine.IsPermissionViolation(err) || engine.IsAtomicFieldViolation(err) {
		r.err = err
		return nil
	}
	return err
}

func scalarValue(v any) (heap.Value, error) {
	switch val := v.(type) {
	case int:
		return heap.IntValue(int64(val)), nil
	case int64:
		return heap.IntValue(val), nil
	case string:
		return heap.StringValue(val), nil
	case bool:
		return heap.BoolValue(val), nil
	default:
		return heap.Value{}, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func patternPaths(sig match.Signature) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(pat match.Pattern) {
		for _, p := range pat.Paths {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	for _, param := range sig.Params {
		add(param.Pattern)
	}
	if sig.Return != nil {
		add(*sig.Return)
	}
	return paths
}
