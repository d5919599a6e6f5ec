//go:build llvm

package llvm

import (
	"github.com/ajkachnic/kaleidoscope/backend"
)

type Target struct{}

func (Target) Name() string { return TargetName }

func (Target) NewModule(name string) backend.Module {
	return NewModule(name)
}

func (Target) NewEngine() (backend.Engine, error) {
	return NewEngine()
}

func init() {
	backend.Register(Target{})
}
