// Package backend defines the contract between the compiler core and a code
// generator. A Target hands out modules to build IR into and an Engine that
// loads modules and runs the functions they define.
package backend

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Type is the return type of a declared function.
type Type int

const (
	Double Type = iota
	Void
)

func (t Type) String() string {
	if t == Void {
		return "void"
	}
	return "double"
}

// Value is an IR operand. String renders it the way it appears in the
// textual form of the module.
type Value interface {
	String() string
}

type Block interface {
	Name() string
	Parent() Function
}

type Function interface {
	Value
	Name() string
	Params() []Value
	ReturnType() Type
	// IsDeclaration reports whether the function has no body.
	IsDeclaration() bool
	AppendBlock(name string) Block
	// ClearBody drops every block, turning the function back into a
	// declaration.
	ClearBody()
	// Dump renders the function alone.
	Dump() string
}

type Phi interface {
	Value
	AddIncoming(v Value, from Block)
}

// Module owns a set of functions. DeclareFunction always creates a new
// function; callers that need declare-or-fetch semantics look the name up
// with Function first.
type Module interface {
	Name() string
	Function(name string) (Function, bool)
	DeclareFunction(name string, params []string, ret Type) Function
	// RemoveFunction detaches fn and frees its name. Calls already emitted
	// keep pointing at the detached function.
	RemoveFunction(fn Function)
	NewBuilder() Builder
	Verify() error
	String() string
}

// Builder appends instructions at the end of the block it is positioned on.
type Builder interface {
	PositionAtEnd(b Block)
	InsertBlock() Block

	ConstFloat(v float64) Value

	FAdd(a, b Value) Value
	FSub(a, b Value) Value
	FMul(a, b Value) Value
	FDiv(a, b Value) Value
	FRem(a, b Value) Value

	// FCmpOEQ and FCmpONE produce a boolean (i1) value.
	FCmpOEQ(a, b Value) Value
	FCmpONE(a, b Value) Value
	// UIToFP widens a boolean to 1.0 or 0.0.
	UIToFP(v Value) Value

	CondBr(cond Value, then, els Block)
	Br(target Block)
	Phi() Phi
	Call(fn Function, args []Value) Value
	Printf(format string, args []Value)
	Ret(v Value)
	RetVoid()
}

// Engine executes code from the modules added to it.
type Engine interface {
	AddModule(m Module) error
	RemoveModule(m Module) error
	HasModule(m Module) bool
	// FindFunction returns the most recently loaded function with a body
	// named name.
	FindFunction(name string) (Function, bool)
	RunFunction(fn Function, args ...float64) (float64, error)
	Close() error
}

// NativeFunc implements an extern in Go.
type NativeFunc func(args []float64) float64

// NativeLoader is implemented by engines that can bind externs to Go
// functions.
type NativeLoader interface {
	LoadFunc(name string, arity int, fn NativeFunc)
}

type Target interface {
	Name() string
	NewModule(name string) Module
	NewEngine() (Engine, error)
}

var targets = map[string]Target{}

// Register makes a target available by name. It panics on duplicates, so it
// is meant to be called from init functions.
func Register(t Target) {
	if _, ok := targets[t.Name()]; ok {
		panic(fmt.Sprintf("backend: target %q registered twice", t.Name()))
	}
	targets[t.Name()] = t
}

func Lookup(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Targets())
	}
	return t, nil
}

// Targets lists the registered target names in sorted order.
func Targets() []string {
	names := maps.Keys(targets)
	slices.Sort(names)
	return names
}
