//go:build llvm

// Package llvm implements the backend contract on top of LLVM through the
// tinygo go-llvm bindings. Build with -tags llvm against an installed LLVM.
package llvm

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/ajkachnic/kaleidoscope/backend"
)

const TargetName = "llvm"

type value struct {
	v llvm.Value
}

func (v value) String() string { return v.v.String() }

func unwrap(v backend.Value) llvm.Value {
	switch v := v.(type) {
	case value:
		return v.v
	case *Function:
		return v.fn
	case *phi:
		return v.v
	default:
		panic(fmt.Sprintf("llvm: foreign value %T", v))
	}
}

type block struct {
	bb llvm.BasicBlock
	fn *Function
}

func (b block) Name() string             { return b.bb.AsValue().Name() }
func (b block) Parent() backend.Function { return b.fn }

type phi struct {
	v llvm.Value
}

func (p *phi) String() string { return p.v.String() }

func (p *phi) AddIncoming(v backend.Value, from backend.Block) {
	p.v.AddIncoming([]llvm.Value{unwrap(v)}, []llvm.BasicBlock{from.(block).bb})
}

type Function struct {
	fn     llvm.Value
	ty     llvm.Type
	ret    backend.Type
	module *Module
}

func (f *Function) Name() string             { return f.fn.Name() }
func (f *Function) String() string           { return "@" + f.fn.Name() }
func (f *Function) ReturnType() backend.Type { return f.ret }
func (f *Function) IsDeclaration() bool      { return f.fn.BasicBlocksCount() == 0 }
func (f *Function) Dump() string             { return f.fn.String() }

func (f *Function) Params() []backend.Value {
	params := f.fn.Params()
	out := make([]backend.Value, len(params))
	for i, p := range params {
		out[i] = value{p}
	}
	return out
}

func (f *Function) AppendBlock(name string) backend.Block {
	return block{bb: llvm.AddBasicBlock(f.fn, name), fn: f}
}

// ClearBody detaches every instruction before erasing, since blocks are not
// laid out in dominance order.
func (f *Function) ClearBody() {
	var instrs []llvm.Value
	var blocks []llvm.BasicBlock
	for bb := f.fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		blocks = append(blocks, bb)
		for in := bb.FirstInstruction(); !in.IsNil(); in = llvm.NextInstruction(in) {
			instrs = append(instrs, in)
		}
	}

	for _, in := range instrs {
		if in.Type().TypeKind() != llvm.VoidTypeKind {
			in.ReplaceAllUsesWith(llvm.Undef(in.Type()))
		}
	}
	for i := len(instrs) - 1; i >= 0; i-- {
		instrs[i].EraseFromParentAsInstruction()
	}
	for _, bb := range blocks {
		bb.EraseFromParent()
	}
}

type Module struct {
	name  string
	mod   llvm.Module
	ctx   llvm.Context
	funcs map[string]*Function
}

func NewModule(name string) *Module {
	ctx := llvm.GlobalContext()
	return &Module{
		name:  name,
		mod:   ctx.NewModule(name),
		ctx:   ctx,
		funcs: make(map[string]*Function),
	}
}

func (m *Module) Name() string   { return m.name }
func (m *Module) String() string { return m.mod.String() }

func (m *Module) Function(name string) (backend.Function, bool) {
	fn, ok := m.funcs[name]
	if !ok {
		return nil, false
	}
	return fn, true
}

func (m *Module) llvmType(t backend.Type) llvm.Type {
	if t == backend.Void {
		return m.ctx.VoidType()
	}
	return m.ctx.DoubleType()
}

func (m *Module) DeclareFunction(name string, params []string, ret backend.Type) backend.Function {
	paramTypes := make([]llvm.Type, len(params))
	for i := range params {
		paramTypes[i] = m.ctx.DoubleType()
	}

	ty := llvm.FunctionType(m.llvmType(ret), paramTypes, false)
	fn := llvm.AddFunction(m.mod, name, ty)
	for i, p := range fn.Params() {
		p.SetName(params[i])
	}

	f := &Function{fn: fn, ty: ty, ret: ret, module: m}
	m.funcs[name] = f
	return f
}

// RemoveFunction erases fn when nothing calls it. Otherwise the function is
// renamed out of the way, and LLVM picks a unique suffix.
func (m *Module) RemoveFunction(f backend.Function) {
	fn := f.(*Function)
	name := fn.fn.Name()
	if m.funcs[name] == fn {
		delete(m.funcs, name)
	}

	if fn.fn.FirstUse().IsNil() {
		fn.fn.EraseFromParentAsFunction()
		return
	}
	fn.fn.SetName(name + ".prev")
}

func (m *Module) NewBuilder() backend.Builder {
	return &Builder{b: m.ctx.NewBuilder(), module: m}
}

func (m *Module) Verify() error {
	return llvm.VerifyModule(m.mod, llvm.ReturnStatusAction)
}

// printf returns the module's declaration of the C printf.
func (m *Module) printf() (llvm.Value, llvm.Type) {
	ty := llvm.FunctionType(m.ctx.Int32Type(), []llvm.Type{llvm.PointerType(m.ctx.Int8Type(), 0)}, true)
	if fn := m.mod.NamedFunction("printf"); !fn.IsNil() {
		return fn, ty
	}
	return llvm.AddFunction(m.mod, "printf", ty), ty
}

type Builder struct {
	b      llvm.Builder
	module *Module
}

func (b *Builder) PositionAtEnd(bl backend.Block) {
	b.b.SetInsertPointAtEnd(bl.(block).bb)
}

func (b *Builder) InsertBlock() backend.Block {
	bb := b.b.GetInsertBlock()
	name := bb.Parent().Name()
	return block{bb: bb, fn: b.module.funcs[name]}
}

func (b *Builder) ConstFloat(v float64) backend.Value {
	return value{llvm.ConstFloat(b.module.ctx.DoubleType(), v)}
}

func (b *Builder) FAdd(l, r backend.Value) backend.Value {
	return value{b.b.CreateFAdd(unwrap(l), unwrap(r), "addtmp")}
}

func (b *Builder) FSub(l, r backend.Value) backend.Value {
	return value{b.b.CreateFSub(unwrap(l), unwrap(r), "subtmp")}
}

func (b *Builder) FMul(l, r backend.Value) backend.Value {
	return value{b.b.CreateFMul(unwrap(l), unwrap(r), "multmp")}
}

func (b *Builder) FDiv(l, r backend.Value) backend.Value {
	return value{b.b.CreateFDiv(unwrap(l), unwrap(r), "divtmp")}
}

func (b *Builder) FRem(l, r backend.Value) backend.Value {
	return value{b.b.CreateFRem(unwrap(l), unwrap(r), "remtmp")}
}

func (b *Builder) FCmpOEQ(l, r backend.Value) backend.Value {
	return value{b.b.CreateFCmp(llvm.FloatOEQ, unwrap(l), unwrap(r), "cmptmp")}
}

func (b *Builder) FCmpONE(l, r backend.Value) backend.Value {
	return value{b.b.CreateFCmp(llvm.FloatONE, unwrap(l), unwrap(r), "ifcond")}
}

func (b *Builder) UIToFP(v backend.Value) backend.Value {
	return value{b.b.CreateUIToFP(unwrap(v), b.module.ctx.DoubleType(), "booltmp")}
}

func (b *Builder) Phi() backend.Phi {
	return &phi{v: b.b.CreatePHI(b.module.ctx.DoubleType(), "iftmp")}
}

func (b *Builder) Call(fn backend.Function, args []backend.Value) backend.Value {
	f := fn.(*Function)
	values := make([]llvm.Value, len(args))
	for i, a := range args {
		values[i] = unwrap(a)
	}

	name := "calltmp"
	if f.ret == backend.Void {
		name = ""
	}
	return value{b.b.CreateCall(f.ty, f.fn, values, name)}
}

func (b *Builder) Printf(format string, args []backend.Value) {
	printf, ty := b.module.printf()
	values := []llvm.Value{b.b.CreateGlobalStringPtr(format, "fmt")}
	for _, a := range args {
		values = append(values, unwrap(a))
	}
	b.b.CreateCall(ty, printf, values, "")
}

func (b *Builder) CondBr(cond backend.Value, then, els backend.Block) {
	b.b.CreateCondBr(unwrap(cond), then.(block).bb, els.(block).bb)
}

func (b *Builder) Br(target backend.Block) {
	b.b.CreateBr(target.(block).bb)
}

func (b *Builder) Ret(v backend.Value) {
	b.b.CreateRet(unwrap(v))
}

func (b *Builder) RetVoid() {
	b.b.CreateRetVoid()
}

var (
	_ backend.Module   = (*Module)(nil)
	_ backend.Function = (*Function)(nil)
	_ backend.Builder  = (*Builder)(nil)
	_ backend.Phi      = (*phi)(nil)
)
