// Package rules implements an optional CEL-based write-gate: a
// nitrite.Processor that rejects a document before it reaches a
// collection's index/store if a configured expression evaluates to
// false. Grounded on bundoc/rules/engine.go's RulesEngine, generalized
// from its per-request auth check to a generic per-document predicate
// usable as a Processor.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"github.com/nitrite-go/nitrite"
	"github.com/nitrite-go/nitrite/errs"
)

// AuthContext carries the identity of whoever is performing the write,
// exposed to a rule expression as the `auth` variable.
type AuthContext struct {
	UID     string
	Claims  map[string]interface{}
	IsAdmin bool
}

// Engine compiles and evaluates CEL expressions against a document,
// caching compiled programs by expression text (bundoc's RulesEngine
// does the same, since a real workload re-evaluates the same handful of
// rule strings on every write).
type Engine struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
}

// New constructs an Engine whose rule expressions see two variables:
// `resource` (the document's fields as a map) and `auth` (the calling
// AuthContext's uid/claims/is_admin).
func New() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("resource", decls.NewMapType(decls.String, decls.Dyn)),
			decls.NewVar("auth", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{env: env}, nil
}

// Evaluate compiles (or fetches from cache) expression and runs it
// against vars. An empty expression denies by default, matching
// bundoc's "Firestore defaults deny" convention.
func (e *Engine) Evaluate(expression string, vars map[string]interface{}) (bool, error) {
	switch expression {
	case "":
		return false, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	var prg cel.Program
	if v, ok := e.prgCache.Load(expression); ok {
		prg = v.(cel.Program)
	} else {
		ast, issues := e.env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return false, fmt.Errorf("rules: compile error: %s", issues.Err())
		}
		p, err := e.env.Program(ast)
		if err != nil {
			return false, fmt.Errorf("rules: program construction error: %s", err)
		}
		prg = p
		e.prgCache.Store(expression, prg)
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("rules: eval error: %s", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rules: expression %q must evaluate to a bool", expression)
	}
	return result, nil
}

// WriteGate is a nitrite.Processor that rejects ProcessBeforeWrite
// unless Expression evaluates true against the document and Auth.
// Reads are never gated — a rule engine deciding what a caller may
// write is orthogonal to what the engine returns on a find, which
// the collection's own authorization layer (outside this package's
// scope) is responsible for.
type WriteGate struct {
	engine     *Engine
	expression string
	auth       func() AuthContext
}

// NewWriteGate builds a WriteGate evaluating expression on every write,
// resolving the acting AuthContext via authFn at evaluation time (not
// once at construction) so the same gate can be shared across requests
// from different callers.
func NewWriteGate(engine *Engine, expression string, authFn func() AuthContext) *WriteGate {
	return &WriteGate{engine: engine, expression: expression, auth: authFn}
}

func (g *WriteGate) Name() string { return "rules.WriteGate" }

func (g *WriteGate) ProcessBeforeWrite(doc *nitrite.Document) error {
	auth := AuthContext{}
	if g.auth != nil {
		auth = g.auth()
	}
	vars := map[string]interface{}{
		"resource": documentToMap(doc),
		"auth": map[string]interface{}{
			"uid":      auth.UID,
			"claims":   auth.Claims,
			"is_admin": auth.IsAdmin,
		},
	}
	ok, err := g.engine.Evaluate(g.expression, vars)
	if err != nil {
		return errs.Wrap(errs.SecurityError, "rule evaluation failed", err)
	}
	if !ok {
		return errs.New(errs.SecurityError, "write rejected by rule "+g.expression)
	}
	return nil
}

func (g *WriteGate) ProcessAfterRead(doc *nitrite.Document) error { return nil }

func documentToMap(doc *nitrite.Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc.Names()))
	for _, name := range doc.Names() {
		v, ok := doc.Get(name, nitrite.DefaultPathSeparator)
		if !ok {
			continue
		}
		out[name] = valueToNative(v)
	}
	return out
}

func valueToNative(v nitrite.Value) interface{} {
	switch {
	case v.IsNull():
		return nil
	}
	if b, ok := v.AsBool(); ok {
		return b
	}
	if i, ok := v.AsInt(); ok {
		return i
	}
	if f, ok := v.AsFloat(); ok {
		return f
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	if by, ok := v.AsBytes(); ok {
		return by
	}
	if id, ok := v.AsId(); ok {
		return id.String()
	}
	if arr, ok := v.AsArray(); ok {
		out := make([]interface{}, len(arr))
		for i, e := range arr {
			out[i] = valueToNative(e)
		}
		return out
	}
	if d, ok := v.AsDocument(); ok {
		return documentToMap(d)
	}
	return nil
}
