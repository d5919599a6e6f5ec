package ssa

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/ajkachnic/kaleidoscope/backend"
	"github.com/ajkachnic/kaleidoscope/logger"
)

const MaxFrames = 8192

type stackEntry struct {
	name  string
	block string
}

func (e stackEntry) String() string {
	return fmt.Sprintf("  in fn @%s (block %%%s)", e.name, e.block)
}

type RuntimeError struct {
	Reason     string
	stackTrace []stackEntry
}

func (e *RuntimeError) Error() string {
	if len(e.stackTrace) == 0 {
		return "runtime error: " + e.Reason
	}
	trace := make([]string, len(e.stackTrace))
	for i, entry := range e.stackTrace {
		trace[i] = entry.String()
	}
	return fmt.Sprintf("runtime error: %s\n%s", e.Reason, strings.Join(trace, "\n"))
}

type native struct {
	name  string
	arity int
	fn    backend.NativeFunc
}

// Engine interprets functions of the modules added to it. Calls to
// declarations are linked by name at call time: the most recently added
// module defining the name wins, then natives loaded with LoadFunc.
type Engine struct {
	modules []*Module
	natives map[string]native
	out     io.Writer

	depth int
}

func NewEngine() *Engine {
	return &Engine{
		natives: make(map[string]native),
		out:     os.Stdout,
	}
}

// SetOutput redirects printf output.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

func (e *Engine) LoadFunc(name string, arity int, fn backend.NativeFunc) {
	e.natives[name] = native{name: name, arity: arity, fn: fn}
}

func (e *Engine) AddModule(m backend.Module) error {
	mod, ok := m.(*Module)
	if !ok {
		return fmt.Errorf("ssa engine cannot load module of type %T", m)
	}
	if e.HasModule(mod) {
		return fmt.Errorf("module %q is already loaded", mod.name)
	}
	e.modules = append(e.modules, mod)
	logger.LogModuleLoaded(mod.name, len(mod.funcs))
	return nil
}

func (e *Engine) RemoveModule(m backend.Module) error {
	for i, mod := range e.modules {
		if backend.Module(mod) == m {
			e.modules = append(e.modules[:i], e.modules[i+1:]...)
			logger.LogModuleUnloaded(mod.name)
			return nil
		}
	}
	return fmt.Errorf("module %q is not loaded", m.Name())
}

func (e *Engine) HasModule(m backend.Module) bool {
	for _, mod := range e.modules {
		if backend.Module(mod) == m {
			return true
		}
	}
	return false
}

// Modules returns the loaded modules in load order.
func (e *Engine) Modules() []*Module {
	return e.modules
}

func (e *Engine) FindFunction(name string) (backend.Function, bool) {
	fn := e.lookup(name)
	if fn == nil {
		return nil, false
	}
	return fn, true
}

func (e *Engine) lookup(name string) *Function {
	for i := len(e.modules) - 1; i >= 0; i-- {
		if fn, ok := e.modules[i].byName[name]; ok && !fn.IsDeclaration() {
			return fn
		}
	}
	return nil
}

func (e *Engine) RunFunction(f backend.Function, args ...float64) (float64, error) {
	fn, ok := f.(*Function)
	if !ok {
		return 0, fmt.Errorf("ssa engine cannot run function of type %T", f)
	}
	if len(args) != len(fn.params) {
		return 0, &RuntimeError{
			Reason: fmt.Sprintf("@%s requires %d arguments, got %d", fn.name, len(fn.params), len(args)),
		}
	}

	e.depth = 0
	return e.call(fn, args)
}

func (e *Engine) Close() error {
	e.modules = nil
	return nil
}

func (e *Engine) call(fn *Function, args []float64) (float64, error) {
	if fn.IsDeclaration() {
		if linked := e.lookup(fn.name); linked != nil {
			if len(linked.params) != len(args) {
				return 0, &RuntimeError{
					Reason: fmt.Sprintf("@%s requires %d arguments, got %d", linked.name, len(linked.params), len(args)),
				}
			}
			fn = linked
		} else if n, ok := e.natives[fn.name]; ok {
			if len(args) != n.arity {
				return 0, &RuntimeError{
					Reason: fmt.Sprintf("native %s requires %d arguments, got %d", n.name, n.arity, len(args)),
				}
			}
			return n.fn(args), nil
		} else {
			return 0, &RuntimeError{Reason: fmt.Sprintf("unresolved external symbol @%s", fn.name)}
		}
	}

	if e.depth >= MaxFrames {
		return 0, &RuntimeError{Reason: "stack overflow"}
	}
	e.depth++
	defer func() { e.depth-- }()

	fr := &frame{fn: fn, args: args, values: make(map[*Instr]float64)}
	v, err := e.run(fr)
	if err != nil {
		if rerr, ok := err.(*RuntimeError); ok {
			rerr.stackTrace = append(rerr.stackTrace, stackEntry{name: fn.name, block: fr.block.name})
		}
		return 0, err
	}
	return v, nil
}

type frame struct {
	fn     *Function
	args   []float64
	values map[*Instr]float64
	block  *Block
	pred   *Block
}

func (fr *frame) value(v Value) float64 {
	switch v := v.(type) {
	case *Const:
		return v.Val
	case *Param:
		return fr.args[v.index]
	case *Instr:
		return fr.values[v]
	}
	panic(fmt.Sprintf("ssa: unknown value %T", v))
}

func (e *Engine) run(fr *frame) (float64, error) {
	fr.block = fr.fn.blocks[0]

	for {
		for _, in := range fr.block.Instrs {
			if err := e.exec(fr, in); err != nil {
				return 0, err
			}
		}

		switch t := fr.block.Term.(type) {
		case *Return:
			if t.Value == nil {
				return 0, nil
			}
			return fr.value(t.Value), nil
		case *Branch:
			fr.pred, fr.block = fr.block, t.Target
		case *CondBranch:
			next := t.Else
			if fr.value(t.Cond) != 0 {
				next = t.Then
			}
			fr.pred, fr.block = fr.block, next
		default:
			return 0, &RuntimeError{Reason: fmt.Sprintf("block %%%s has no terminator", fr.block.name)}
		}
	}
}

func (e *Engine) exec(fr *frame, in *Instr) error {
	var result float64

	switch in.Op {
	case OpFAdd:
		result = fr.value(in.Args[0]) + fr.value(in.Args[1])
	case OpFSub:
		result = fr.value(in.Args[0]) - fr.value(in.Args[1])
	case OpFMul:
		result = fr.value(in.Args[0]) * fr.value(in.Args[1])
	case OpFDiv:
		result = fr.value(in.Args[0]) / fr.value(in.Args[1])
	case OpFRem:
		result = math.Mod(fr.value(in.Args[0]), fr.value(in.Args[1]))
	case OpFCmpOEQ:
		result = boolToFloat(fr.value(in.Args[0]) == fr.value(in.Args[1]))
	case OpFCmpONE:
		l, r := fr.value(in.Args[0]), fr.value(in.Args[1])
		result = boolToFloat(!math.IsNaN(l) && !math.IsNaN(r) && l != r)
	case OpUIToFP:
		result = fr.value(in.Args[0])
	case OpPhi:
		found := false
		for _, inc := range in.Incoming {
			if inc.Block == fr.pred {
				result = fr.value(inc.Value)
				found = true
				break
			}
		}
		if !found {
			return &RuntimeError{Reason: fmt.Sprintf("phi %s has no value for the incoming edge", in)}
		}
	case OpCall:
		args := make([]float64, len(in.Args))
		for i, a := range in.Args {
			args[i] = fr.value(a)
		}
		v, err := e.call(in.Callee, args)
		if err != nil {
			return err
		}
		result = v
	case OpPrintf:
		args := make([]any, len(in.Args))
		for i, a := range in.Args {
			args[i] = fr.value(a)
		}
		fmt.Fprintf(e.out, in.Format, args...)
		return nil
	default:
		return &RuntimeError{Reason: fmt.Sprintf("unknown instruction %s", in.Op)}
	}

	fr.values[in] = result
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var (
	_ backend.Engine       = (*Engine)(nil)
	_ backend.NativeLoader = (*Engine)(nil)
)
