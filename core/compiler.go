package core

import (
	"fmt"

	"github.com/ajkachnic/kaleidoscope/backend"
	"github.com/ajkachnic/kaleidoscope/logger"
)

// MainFunction is the driver synthesized for loose top-level expressions.
const MainFunction = "main"

type IRErrorKind int

const (
	UnknownFunction IRErrorKind = iota
	UnknownVariable
	ArityMismatch
	// Redeclared reports a user function taking a name the compiler
	// reserves for itself.
	Redeclared
)

type IRError struct {
	Kind     IRErrorKind
	Name     string
	Expected int
	Got      int
}

func (e IRError) Error() string {
	switch e.Kind {
	case UnknownFunction:
		return fmt.Sprintf("unknown function '%s'", e.Name)
	case UnknownVariable:
		return fmt.Sprintf("unknown variable '%s'", e.Name)
	case ArityMismatch:
		return fmt.Sprintf("call to function '%s' with %d arguments (expected %d)", e.Name, e.Got, e.Expected)
	case Redeclared:
		return fmt.Sprintf("function '%s' is reserved", e.Name)
	default:
		return fmt.Sprintf("ir error on '%s'", e.Name)
	}
}

// Compiler lowers the AST into a backend module. The binding scope maps
// variable names to IR values and is replaced wholesale, never merged, when
// entering a function body.
type Compiler struct {
	module   backend.Module
	builder  backend.Builder
	topLevel *TopLevel
	bindings map[string]backend.Value
}

func NewCompiler(module backend.Module, topLevel *TopLevel) *Compiler {
	return &Compiler{
		module:   module,
		builder:  module.NewBuilder(),
		topLevel: topLevel,
		bindings: map[string]backend.Value{},
	}
}

func (c *Compiler) Module() backend.Module {
	return c.module
}

func (c *Compiler) TopLevel() *TopLevel {
	return c.topLevel
}

// Emit lowers a whole file: extern declarations, definitions, then the main
// driver printing every loose expression. Only the last registration of a
// name reaches the module; shadowed definitions are still checked.
func (c *Compiler) Emit() error {
	definitions := c.topLevel.Definitions()
	last := make(map[string]int, len(definitions))
	for i, def := range definitions {
		last[def.Prototype.Name] = i
	}

	for _, extern := range c.topLevel.Externs() {
		if _, shadowed := last[extern.Name]; shadowed {
			continue
		}
		proto, _ := c.topLevel.Prototype(extern.Name)
		c.declare(proto)
	}
	for i, def := range definitions {
		if last[def.Prototype.Name] != i {
			if err := c.check(def.Body, def.Prototype.Params, &def.Prototype); err != nil {
				return err
			}
			continue
		}
		if _, err := c.EmitDefinition(def); err != nil {
			return err
		}
	}
	_, err := c.EmitMain()
	return err
}

func (c *Compiler) withScope(bindings map[string]backend.Value, body func() error) error {
	outer := c.bindings
	c.bindings = bindings
	defer func() { c.bindings = outer }()

	return body()
}

// EmitPrototype declares the function unless the module already has one by
// that name, in which case the existing function is returned.
func (c *Compiler) EmitPrototype(proto Prototype) backend.Function {
	if fn, ok := c.module.Function(proto.Name); ok {
		return fn
	}
	return c.module.DeclareFunction(proto.Name, proto.Params, backend.Double)
}

// declare is EmitPrototype that replaces a module function of another
// arity, since the last registration of a name wins.
func (c *Compiler) declare(proto Prototype) backend.Function {
	fn := c.EmitPrototype(proto)
	if n := len(fn.Params()); n != len(proto.Params) {
		logger.Debug("Replacing function", "module", c.module.Name(), "name", proto.Name, "from", n, "to", len(proto.Params))
		c.module.RemoveFunction(fn)
		fn = c.module.DeclareFunction(proto.Name, proto.Params, backend.Double)
	}
	return fn
}

// EmitDefinition resolves every name in the body before touching the module,
// so a failing definition leaves no trace. A function that already has a
// body is redefined.
func (c *Compiler) EmitDefinition(def Definition) (backend.Function, error) {
	if err := c.check(def.Body, def.Prototype.Params, &def.Prototype); err != nil {
		return nil, err
	}

	fn := c.declare(def.Prototype)
	if !fn.IsDeclaration() {
		fn.ClearBody()
	}

	params := fn.Params()
	bindings := make(map[string]backend.Value, len(params))
	for i, name := range def.Prototype.Params {
		bindings[name] = params[i]
	}

	err := c.withScope(bindings, func() error {
		c.builder.PositionAtEnd(fn.AppendBlock("entry"))
		value, err := c.EmitExpr(def.Body)
		if err != nil {
			return err
		}
		c.builder.Ret(value)
		return nil
	})
	if err != nil {
		fn.ClearBody()
		return nil, err
	}

	logger.LogFunctionEmitted(c.module.Name(), def.Prototype.Name, len(params))
	return fn, nil
}

// AddExtern registers and declares an extern.
func (c *Compiler) AddExtern(proto Prototype) (backend.Function, error) {
	fn := c.declare(proto)
	c.topLevel.AddExtern(proto)
	return fn, nil
}

// AddDefinition registers and emits a definition. Nothing is registered if
// the definition fails to compile.
func (c *Compiler) AddDefinition(def Definition) (backend.Function, error) {
	if err := c.check(def.Body, def.Prototype.Params, &def.Prototype); err != nil {
		return nil, err
	}

	c.topLevel.AddDefinition(def)
	return c.EmitDefinition(def)
}

// EmitAnonymous wraps expr in a zero-argument function called name.
func (c *Compiler) EmitAnonymous(expr Expr, name string) (backend.Function, error) {
	if err := c.check(expr, nil, nil); err != nil {
		return nil, err
	}
	if _, ok := c.module.Function(name); ok {
		return nil, IRError{Kind: Redeclared, Name: name}
	}

	fn := c.module.DeclareFunction(name, nil, backend.Double)
	err := c.withScope(map[string]backend.Value{}, func() error {
		c.builder.PositionAtEnd(fn.AppendBlock("entry"))
		value, err := c.EmitExpr(expr)
		if err != nil {
			return err
		}
		c.builder.Ret(value)
		return nil
	})
	if err != nil {
		fn.ClearBody()
		return nil, err
	}

	logger.LogFunctionEmitted(c.module.Name(), name, 0)
	return fn, nil
}

// EmitMain synthesizes the driver that evaluates every loose expression in
// order and prints each value.
func (c *Compiler) EmitMain() (backend.Function, error) {
	for _, expr := range c.topLevel.Expressions() {
		if err := c.check(expr, nil, nil); err != nil {
			return nil, err
		}
	}
	if _, ok := c.module.Function(MainFunction); ok {
		return nil, IRError{Kind: Redeclared, Name: MainFunction}
	}

	fn := c.module.DeclareFunction(MainFunction, nil, backend.Void)
	err := c.withScope(map[string]backend.Value{}, func() error {
		c.builder.PositionAtEnd(fn.AppendBlock("entry"))
		for _, expr := range c.topLevel.Expressions() {
			value, err := c.EmitExpr(expr)
			if err != nil {
				return err
			}
			c.builder.Printf("%f\n", []backend.Value{value})
		}
		c.builder.RetVoid()
		return nil
	})
	if err != nil {
		fn.ClearBody()
		return nil, err
	}

	logger.LogFunctionEmitted(c.module.Name(), MainFunction, 0)
	return fn, nil
}

// EmitExpr lowers expr at the builder's current position.
func (c *Compiler) EmitExpr(expr Expr) (backend.Value, error) {
	switch expr := expr.(type) {
	case NumberExpr:
		return c.builder.ConstFloat(expr.Value), nil
	case VariableExpr:
		value, ok := c.bindings[expr.Name]
		if !ok {
			return nil, IRError{Kind: UnknownVariable, Name: expr.Name}
		}
		return value, nil
	case BinaryExpr:
		return c.emitBinary(expr)
	case CallExpr:
		return c.emitCall(expr)
	case IfElseExpr:
		return c.emitIfElse(expr)
	}

	return nil, fmt.Errorf("unknown expression %T", expr)
}

func (c *Compiler) emitBinary(expr BinaryExpr) (backend.Value, error) {
	lhs, err := c.EmitExpr(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.EmitExpr(expr.RHS)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case Plus:
		return c.builder.FAdd(lhs, rhs), nil
	case Minus:
		return c.builder.FSub(lhs, rhs), nil
	case Times:
		return c.builder.FMul(lhs, rhs), nil
	case Divide:
		return c.builder.FDiv(lhs, rhs), nil
	case Mod:
		return c.builder.FRem(lhs, rhs), nil
	case Equals:
		return c.builder.UIToFP(c.builder.FCmpOEQ(lhs, rhs)), nil
	}

	return nil, fmt.Errorf("unknown operator %s", expr.Op)
}

func (c *Compiler) emitCall(expr CallExpr) (backend.Value, error) {
	proto, ok := c.topLevel.Prototype(expr.Name)
	if !ok {
		return nil, IRError{Kind: UnknownFunction, Name: expr.Name}
	}
	if len(proto.Params) != len(expr.Args) {
		return nil, IRError{Kind: ArityMismatch, Name: expr.Name, Expected: len(proto.Params), Got: len(expr.Args)}
	}

	args := make([]backend.Value, len(expr.Args))
	for i, arg := range expr.Args {
		value, err := c.EmitExpr(arg)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}

	return c.builder.Call(c.declare(proto), args), nil
}

// emitIfElse branches on cond != 0 and joins both arms in a merge block. The
// phi names the block each arm ends in, which differs from the arm's entry
// block when the arm itself contains a conditional.
func (c *Compiler) emitIfElse(expr IfElseExpr) (backend.Value, error) {
	cond, err := c.EmitExpr(expr.Cond)
	if err != nil {
		return nil, err
	}
	check := c.builder.FCmpONE(cond, c.builder.ConstFloat(0))

	fn := c.builder.InsertBlock().Parent()
	thenBlock := fn.AppendBlock("then")
	elseBlock := fn.AppendBlock("else")
	mergeBlock := fn.AppendBlock("merge")

	c.builder.CondBr(check, thenBlock, elseBlock)

	c.builder.PositionAtEnd(thenBlock)
	thenValue, err := c.EmitExpr(expr.Then)
	if err != nil {
		return nil, err
	}
	thenEnd := c.builder.InsertBlock()
	c.builder.Br(mergeBlock)

	c.builder.PositionAtEnd(elseBlock)
	elseValue, err := c.EmitExpr(expr.Else)
	if err != nil {
		return nil, err
	}
	elseEnd := c.builder.InsertBlock()
	c.builder.Br(mergeBlock)

	c.builder.PositionAtEnd(mergeBlock)
	phi := c.builder.Phi()
	phi.AddIncoming(thenValue, thenEnd)
	phi.AddIncoming(elseValue, elseEnd)

	return phi, nil
}

// check resolves every variable and call in expr without emitting anything.
// self, when set, is visible as a callee ahead of the registry so recursive
// definitions resolve before they are registered.
func (c *Compiler) check(expr Expr, params []string, self *Prototype) error {
	scope := make(map[string]bool, len(params))
	for _, name := range params {
		scope[name] = true
	}
	return c.resolve(expr, scope, self)
}

func (c *Compiler) resolve(expr Expr, scope map[string]bool, self *Prototype) error {
	switch expr := expr.(type) {
	case NumberExpr:
		return nil
	case VariableExpr:
		if !scope[expr.Name] {
			return IRError{Kind: UnknownVariable, Name: expr.Name}
		}
		return nil
	case BinaryExpr:
		if err := c.resolve(expr.LHS, scope, self); err != nil {
			return err
		}
		return c.resolve(expr.RHS, scope, self)
	case IfElseExpr:
		for _, e := range []Expr{expr.Cond, expr.Then, expr.Else} {
			if err := c.resolve(e, scope, self); err != nil {
				return err
			}
		}
		return nil
	case CallExpr:
		var proto Prototype
		var ok bool
		if self != nil && self.Name == expr.Name {
			proto, ok = *self, true
		} else {
			proto, ok = c.topLevel.Prototype(expr.Name)
		}
		if !ok {
			return IRError{Kind: UnknownFunction, Name: expr.Name}
		}
		if len(proto.Params) != len(expr.Args) {
			return IRError{Kind: ArityMismatch, Name: expr.Name, Expected: len(proto.Params), Got: len(expr.Args)}
		}
		for _, arg := range expr.Args {
			if err := c.resolve(arg, scope, self); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("unknown expression %T", expr)
}
