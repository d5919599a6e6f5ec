// Package ssa is the default backend: an in-memory SSA form of the program
// plus an engine that interprets it.
//
// Design: every instruction is a value, blocks end in exactly one
// terminator, phis carry their predecessor blocks explicitly. The textual
// form borrows LLVM syntax so dumps read the same on either backend.
package ssa

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ajkachnic/kaleidoscope/backend"
)

// Kind is the machine type of a value.
type Kind int

const (
	KindDouble Kind = iota
	KindBool
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "i1"
	case KindVoid:
		return "void"
	default:
		return "double"
	}
}

type Value interface {
	backend.Value
	Kind() Kind
}

type Const struct {
	Val float64
}

func (c *Const) Kind() Kind { return KindDouble }

// String uses six-digit scientific notation when that is exact and the raw
// IEEE bits in hex otherwise, as LLVM does.
func (c *Const) String() string {
	text := strconv.FormatFloat(c.Val, 'e', 6, 64)
	if v, err := strconv.ParseFloat(text, 64); err == nil && v == c.Val && !math.IsInf(c.Val, 0) {
		return text
	}
	return fmt.Sprintf("0x%016X", math.Float64bits(c.Val))
}

type Param struct {
	name  string
	index int
}

func (p *Param) Kind() Kind     { return KindDouble }
func (p *Param) String() string { return "%" + p.name }
func (p *Param) Index() int     { return p.index }

// Op is an instruction opcode.
type Op int

const (
	OpFAdd Op = iota
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpFCmpOEQ
	OpFCmpONE
	OpUIToFP
	OpPhi
	OpCall
	OpPrintf
)

var opNames = [...]string{
	OpFAdd:    "fadd",
	OpFSub:    "fsub",
	OpFMul:    "fmul",
	OpFDiv:    "fdiv",
	OpFRem:    "frem",
	OpFCmpOEQ: "fcmp oeq",
	OpFCmpONE: "fcmp one",
	OpUIToFP:  "uitofp",
	OpPhi:     "phi",
	OpCall:    "call",
	OpPrintf:  "printf",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

type Incoming struct {
	Value Value
	Block *Block
}

// Instr is a three-address instruction. Args holds the operands of
// arithmetic, comparison, cast, call and printf instructions; phis use
// Incoming instead.
type Instr struct {
	Op       Op
	Args     []Value
	Callee   *Function
	Format   string
	Incoming []Incoming

	kind  Kind
	id    int
	block *Block
}

func (in *Instr) Kind() Kind { return in.kind }

func (in *Instr) String() string {
	return "%" + strconv.Itoa(in.id)
}

func (in *Instr) Block() *Block { return in.block }

// AddIncoming implements backend.Phi.
func (in *Instr) AddIncoming(v backend.Value, from backend.Block) {
	if in.Op != OpPhi {
		panic("ssa: AddIncoming on " + in.Op.String())
	}
	in.Incoming = append(in.Incoming, Incoming{Value: v.(Value), Block: from.(*Block)})
}

// Terminator ends a basic block.
type Terminator interface {
	term()
	Successors() []*Block
}

// Return with a nil Value returns void.
type Return struct {
	Value Value
}

func (*Return) term()                {}
func (*Return) Successors() []*Block { return nil }

type Branch struct {
	Target *Block
}

func (*Branch) term()                  {}
func (b *Branch) Successors() []*Block { return []*Block{b.Target} }

type CondBranch struct {
	Cond Value
	Then *Block
	Else *Block
}

func (*CondBranch) term()                  {}
func (b *CondBranch) Successors() []*Block { return []*Block{b.Then, b.Else} }

// Block is a basic block: straight-line code ending in a terminator.
type Block struct {
	name   string
	Instrs []*Instr
	Term   Terminator
	fn     *Function
}

func (b *Block) Name() string             { return b.name }
func (b *Block) Parent() backend.Function { return b.fn }
func (b *Block) Function() *Function      { return b.fn }
func (b *Block) String() string           { return "%" + b.name }

type Function struct {
	name   string
	params []*Param
	ret    backend.Type
	blocks []*Block
	module *Module

	nextID     int
	blockNames map[string]int
}

func (f *Function) Name() string             { return f.name }
func (f *Function) String() string           { return "@" + f.name }
func (f *Function) ReturnType() backend.Type { return f.ret }
func (f *Function) Blocks() []*Block         { return f.blocks }
func (f *Function) Module() *Module          { return f.module }
func (f *Function) IsDeclaration() bool      { return len(f.blocks) == 0 }
func (f *Function) Arity() int               { return len(f.params) }

func (f *Function) Params() []backend.Value {
	params := make([]backend.Value, len(f.params))
	for i, p := range f.params {
		params[i] = p
	}
	return params
}

// AppendBlock adds a block at the end of the function. Repeated names get a
// numeric suffix so labels stay unique.
func (f *Function) AppendBlock(name string) backend.Block {
	label := name
	if n, ok := f.blockNames[name]; ok {
		label = name + strconv.Itoa(n)
	}
	f.blockNames[name]++

	b := &Block{name: label, fn: f}
	f.blocks = append(f.blocks, b)
	return b
}

func (f *Function) ClearBody() {
	f.blocks = nil
	f.nextID = 0
	f.blockNames = map[string]int{}
}

func (f *Function) Dump() string {
	return printFunction(f)
}

// Module is a named collection of functions.
type Module struct {
	name   string
	funcs  []*Function
	byName map[string]*Function
}

func NewModule(name string) *Module {
	return &Module{
		name:   name,
		byName: make(map[string]*Function),
	}
}

func (m *Module) Name() string           { return m.name }
func (m *Module) Functions() []*Function { return m.funcs }

func (m *Module) Function(name string) (backend.Function, bool) {
	fn, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return fn, true
}

// DeclareFunction adds a function taking len(params) doubles. Parameter names
// are only used for printing; a repeated name gets its index appended.
func (m *Module) DeclareFunction(name string, params []string, ret backend.Type) backend.Function {
	fn := &Function{
		name:       name,
		ret:        ret,
		module:     m,
		blockNames: map[string]int{},
	}

	seen := make(map[string]bool, len(params))
	for i, p := range params {
		pname := p
		if seen[pname] {
			pname = p + strconv.Itoa(i)
		}
		seen[pname] = true
		fn.params = append(fn.params, &Param{name: pname, index: i})
	}

	m.funcs = append(m.funcs, fn)
	m.byName[name] = fn
	return fn
}

func (m *Module) RemoveFunction(f backend.Function) {
	fn := f.(*Function)
	if m.byName[fn.name] == fn {
		delete(m.byName, fn.name)
	}
	for i, other := range m.funcs {
		if other == fn {
			m.funcs = append(m.funcs[:i], m.funcs[i+1:]...)
			break
		}
	}
}

func (m *Module) NewBuilder() backend.Builder {
	return &Builder{}
}

func (m *Module) String() string {
	return printModule(m)
}
