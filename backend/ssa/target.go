package ssa

import (
	"github.com/ajkachnic/kaleidoscope/backend"
)

// TargetName is the name the backend registers under.
const TargetName = "ssa"

type Target struct{}

func (Target) Name() string { return TargetName }

func (Target) NewModule(name string) backend.Module {
	return NewModule(name)
}

func (Target) NewEngine() (backend.Engine, error) {
	return NewEngine(), nil
}

func init() {
	backend.Register(Target{})
}
