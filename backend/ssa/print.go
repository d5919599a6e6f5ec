package ssa

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ajkachnic/kaleidoscope/backend"
)

func printModule(m *Module) string {
	var out bytes.Buffer

	fmt.Fprintf(&out, "; ModuleID = '%s'\n", m.name)
	for _, fn := range m.funcs {
		out.WriteString("\n")
		out.WriteString(printFunction(fn))
	}
	if m.usesPrintf() {
		out.WriteString("\ndeclare i32 @printf(i8*, ...)\n")
	}

	return out.String()
}

func (m *Module) usesPrintf() bool {
	for _, fn := range m.funcs {
		for _, b := range fn.blocks {
			for _, in := range b.Instrs {
				if in.Op == OpPrintf {
					return true
				}
			}
		}
	}
	return false
}

func printFunction(f *Function) string {
	var out bytes.Buffer

	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = "double " + p.String()
	}
	signature := fmt.Sprintf("%s @%s(%s)", f.ret, f.name, strings.Join(params, ", "))

	if f.IsDeclaration() {
		fmt.Fprintf(&out, "declare %s\n", signature)
		return out.String()
	}

	fmt.Fprintf(&out, "define %s {\n", signature)
	for i, b := range f.blocks {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "%s:\n", b.name)
		for _, in := range b.Instrs {
			fmt.Fprintf(&out, "  %s\n", fmtInstr(in))
		}
		if b.Term != nil {
			fmt.Fprintf(&out, "  %s\n", fmtTerm(b.Term))
		}
	}
	out.WriteString("}\n")

	return out.String()
}

func fmtInstr(in *Instr) string {
	switch in.Op {
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpFRem, OpFCmpOEQ, OpFCmpONE:
		return fmt.Sprintf("%s = %s double %s, %s", in, in.Op, in.Args[0], in.Args[1])
	case OpUIToFP:
		return fmt.Sprintf("%s = uitofp i1 %s to double", in, in.Args[0])
	case OpPhi:
		incoming := make([]string, len(in.Incoming))
		for i, inc := range in.Incoming {
			incoming[i] = fmt.Sprintf("[ %s, %s ]", inc.Value, inc.Block)
		}
		return fmt.Sprintf("%s = phi double %s", in, strings.Join(incoming, ", "))
	case OpCall:
		call := fmt.Sprintf("call %s %s(%s)", in.Callee.ret, in.Callee, fmtArgs(in.Args))
		if in.kind == KindVoid {
			return call
		}
		return fmt.Sprintf("%s = %s", in, call)
	case OpPrintf:
		args := strconv.Quote(in.Format)
		if len(in.Args) > 0 {
			args += ", " + fmtArgs(in.Args)
		}
		return fmt.Sprintf("call i32 (i8*, ...) @printf(%s)", args)
	default:
		return fmt.Sprintf("<unknown %s>", in.Op)
	}
}

func fmtArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Kind().String() + " " + a.String()
	}
	return strings.Join(parts, ", ")
}

func fmtTerm(t Terminator) string {
	switch t := t.(type) {
	case *Return:
		if t.Value == nil {
			return "ret void"
		}
		return fmt.Sprintf("ret %s %s", t.Value.Kind(), t.Value)
	case *Branch:
		return fmt.Sprintf("br label %s", t.Target)
	case *CondBranch:
		return fmt.Sprintf("br i1 %s, label %s, label %s", t.Cond, t.Then, t.Else)
	default:
		return "<unknown terminator>"
	}
}

// compile-time interface checks
var (
	_ backend.Module   = (*Module)(nil)
	_ backend.Function = (*Function)(nil)
	_ backend.Block    = (*Block)(nil)
	_ backend.Phi      = (*Instr)(nil)
	_ backend.Builder  = (*Builder)(nil)
)
