// Package modules provides Go implementations for commonly declared externs
// such as sin or putchard.
package modules

import (
	"io"

	"github.com/ajkachnic/kaleidoscope/backend"
)

// Initialize loads every native function into l. io helpers write to out.
func Initialize(l backend.NativeLoader, out io.Writer) {
	loadMath(l)
	loadIO(l, out)
}

// InitializeEngine loads natives if the engine supports Go-implemented
// externs and reports whether it did.
func InitializeEngine(engine backend.Engine, out io.Writer) bool {
	l, ok := engine.(backend.NativeLoader)
	if !ok {
		return false
	}
	Initialize(l, out)
	return true
}
