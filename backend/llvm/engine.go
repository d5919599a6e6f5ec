//go:build llvm

package llvm

import (
	"fmt"
	"sync"

	"tinygo.org/x/go-llvm"

	"github.com/ajkachnic/kaleidoscope/backend"
	"github.com/ajkachnic/kaleidoscope/logger"
)

var initOnce sync.Once
var initErr error

func initNative() error {
	initOnce.Do(func() {
		llvm.LinkInMCJIT()
		if err := llvm.InitializeNativeTarget(); err != nil {
			initErr = err
			return
		}
		initErr = llvm.InitializeNativeAsmPrinter()
	})
	return initErr
}

// Engine JIT-compiles its modules with MCJIT. Modules stay mutable while
// loaded (the REPL keeps adding definitions to one of them), so each call
// compiles a fresh execution engine over the current set and releases the
// modules again afterwards.
type Engine struct {
	modules []*Module
}

func NewEngine() (*Engine, error) {
	if err := initNative(); err != nil {
		return nil, fmt.Errorf("initializing native target: %w", err)
	}
	return &Engine{}, nil
}

func (e *Engine) AddModule(m backend.Module) error {
	mod := m.(*Module)
	if e.HasModule(mod) {
		return fmt.Errorf("module %s is already loaded", mod.name)
	}
	e.modules = append(e.modules, mod)
	logger.LogModuleLoaded(mod.name, len(mod.funcs))
	return nil
}

func (e *Engine) RemoveModule(m backend.Module) error {
	for i, mod := range e.modules {
		if mod == m {
			e.modules = append(e.modules[:i], e.modules[i+1:]...)
			logger.LogModuleUnloaded(mod.name)
			return nil
		}
	}
	return fmt.Errorf("module %s is not loaded", m.Name())
}

func (e *Engine) HasModule(m backend.Module) bool {
	for _, mod := range e.modules {
		if mod == m {
			return true
		}
	}
	return false
}

func (e *Engine) FindFunction(name string) (backend.Function, bool) {
	for i := len(e.modules) - 1; i >= 0; i-- {
		if fn, ok := e.modules[i].funcs[name]; ok && !fn.IsDeclaration() {
			return fn, true
		}
	}
	return nil, false
}

func (e *Engine) RunFunction(f backend.Function, args ...float64) (float64, error) {
	fn := f.(*Function)
	if n := fn.fn.ParamsCount(); n != len(args) {
		return 0, fmt.Errorf("@%s takes %d arguments, got %d", fn.Name(), n, len(args))
	}
	if !e.HasModule(fn.module) {
		return 0, fmt.Errorf("module %s is not loaded", fn.module.name)
	}

	options := llvm.NewMCJITCompilerOptions()
	options.SetMCJITOptimizationLevel(2)
	ee, err := llvm.NewMCJITCompiler(fn.module.mod, options)
	if err != nil {
		return 0, fmt.Errorf("creating MCJIT compiler: %w", err)
	}

	for _, mod := range e.modules {
		if mod != fn.module {
			ee.AddModule(mod.mod)
		}
	}
	defer func() {
		for _, mod := range e.modules {
			ee.RemoveModule(mod.mod)
		}
		ee.Dispose()
	}()

	double := fn.module.ctx.DoubleType()
	values := make([]llvm.GenericValue, len(args))
	for i, a := range args {
		values[i] = llvm.NewGenericValueFromFloat(double, a)
	}

	result := ee.RunFunction(fn.fn, values)
	for _, v := range values {
		v.Dispose()
	}
	defer result.Dispose()

	if fn.ret == backend.Void {
		return 0, nil
	}
	return result.Float(double), nil
}

func (e *Engine) Close() error {
	e.modules = nil
	return nil
}

var _ backend.Engine = (*Engine)(nil)
