package core

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TopLevel is the registry of everything declared in a compilation or REPL
// session. The prototype map always holds the last registration for a name;
// externs and definitions overwrite each other freely.
type TopLevel struct {
	externs     []Prototype
	definitions []Definition
	expressions []Expr
	prototypes  map[string]Prototype
}

// NewTopLevel registers all externs before all definitions, so a definition
// wins over an extern of the same name regardless of source order.
func NewTopLevel(externs []Prototype, definitions []Definition) *TopLevel {
	t := &TopLevel{
		externs:     []Prototype{},
		definitions: []Definition{},
		expressions: []Expr{},
		prototypes:  make(map[string]Prototype),
	}

	for _, extern := range externs {
		t.AddExtern(extern)
	}
	for _, def := range definitions {
		t.AddDefinition(def)
	}

	return t
}

func (t *TopLevel) AddExtern(proto Prototype) {
	t.externs = append(t.externs, proto)
	t.prototypes[proto.Name] = proto
}

func (t *TopLevel) AddDefinition(def Definition) {
	t.definitions = append(t.definitions, def)
	t.prototypes[def.Prototype.Name] = def.Prototype
}

// AddExpression records a loose top-level expression (file mode).
func (t *TopLevel) AddExpression(expr Expr) {
	t.expressions = append(t.expressions, expr)
}

func (t *TopLevel) Prototype(name string) (Prototype, bool) {
	proto, ok := t.prototypes[name]
	return proto, ok
}

func (t *TopLevel) Externs() []Prototype      { return t.externs }
func (t *TopLevel) Definitions() []Definition { return t.definitions }
func (t *TopLevel) Expressions() []Expr       { return t.expressions }

// Names lists every known function name in sorted order.
func (t *TopLevel) Names() []string {
	names := maps.Keys(t.prototypes)
	slices.Sort(names)
	return names
}

// String renders the registry as source, externs first.
func (t *TopLevel) String() string {
	builder := strings.Builder{}
	for _, extern := range t.externs {
		builder.WriteString("extern " + extern.String() + ";\n")
	}
	for _, def := range t.definitions {
		builder.WriteString(def.String() + "\n")
	}
	for _, expr := range t.expressions {
		builder.WriteString(expr.String() + ";\n")
	}
	return builder.String()
}
