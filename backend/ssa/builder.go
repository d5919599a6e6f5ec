package ssa

import (
	"github.com/ajkachnic/kaleidoscope/backend"
)

// Builder appends instructions to the end of its current block.
type Builder struct {
	block *Block
}

func (b *Builder) PositionAtEnd(block backend.Block) {
	b.block = block.(*Block)
}

func (b *Builder) InsertBlock() backend.Block {
	if b.block == nil {
		return nil
	}
	return b.block
}

func (b *Builder) ConstFloat(v float64) backend.Value {
	return &Const{Val: v}
}

func (b *Builder) emit(op Op, kind Kind, args ...backend.Value) *Instr {
	if b.block == nil {
		panic("ssa: builder is not positioned")
	}
	fn := b.block.fn
	in := &Instr{
		Op:    op,
		kind:  kind,
		block: b.block,
	}
	if kind != KindVoid {
		in.id = fn.nextID
		fn.nextID++
	}
	for _, a := range args {
		in.Args = append(in.Args, a.(Value))
	}
	b.block.Instrs = append(b.block.Instrs, in)
	return in
}

func (b *Builder) FAdd(l, r backend.Value) backend.Value { return b.emit(OpFAdd, KindDouble, l, r) }
func (b *Builder) FSub(l, r backend.Value) backend.Value { return b.emit(OpFSub, KindDouble, l, r) }
func (b *Builder) FMul(l, r backend.Value) backend.Value { return b.emit(OpFMul, KindDouble, l, r) }
func (b *Builder) FDiv(l, r backend.Value) backend.Value { return b.emit(OpFDiv, KindDouble, l, r) }
func (b *Builder) FRem(l, r backend.Value) backend.Value { return b.emit(OpFRem, KindDouble, l, r) }

func (b *Builder) FCmpOEQ(l, r backend.Value) backend.Value {
	return b.emit(OpFCmpOEQ, KindBool, l, r)
}

func (b *Builder) FCmpONE(l, r backend.Value) backend.Value {
	return b.emit(OpFCmpONE, KindBool, l, r)
}

func (b *Builder) UIToFP(v backend.Value) backend.Value {
	return b.emit(OpUIToFP, KindDouble, v)
}

func (b *Builder) Phi() backend.Phi {
	return b.emit(OpPhi, KindDouble)
}

func (b *Builder) Call(fn backend.Function, args []backend.Value) backend.Value {
	callee := fn.(*Function)
	kind := KindDouble
	if callee.ret == backend.Void {
		kind = KindVoid
	}
	in := b.emit(OpCall, kind, args...)
	in.Callee = callee
	return in
}

func (b *Builder) Printf(format string, args []backend.Value) {
	in := b.emit(OpPrintf, KindVoid, args...)
	in.Format = format
}

func (b *Builder) terminate(t Terminator) {
	if b.block == nil {
		panic("ssa: builder is not positioned")
	}
	b.block.Term = t
}

func (b *Builder) CondBr(cond backend.Value, then, els backend.Block) {
	b.terminate(&CondBranch{Cond: cond.(Value), Then: then.(*Block), Else: els.(*Block)})
}

func (b *Builder) Br(target backend.Block) {
	b.terminate(&Branch{Target: target.(*Block)})
}

func (b *Builder) Ret(v backend.Value) {
	b.terminate(&Return{Value: v.(Value)})
}

func (b *Builder) RetVoid() {
	b.terminate(&Return{})
}
