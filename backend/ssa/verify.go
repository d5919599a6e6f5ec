package ssa

import (
	"errors"
	"fmt"

	"github.com/ajkachnic/kaleidoscope/backend"
)

// Verify checks the structural invariants of every defined function: each
// block is terminated, branches stay inside the function, phis name exactly
// the predecessors of their block, calls match the callee's arity and
// returns match the function's type.
func (m *Module) Verify() error {
	var errs []error
	for _, fn := range m.funcs {
		if fn.IsDeclaration() {
			continue
		}
		if err := verifyFunction(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func verifyFunction(fn *Function) error {
	owned := make(map[*Block]bool, len(fn.blocks))
	for _, b := range fn.blocks {
		owned[b] = true
	}

	preds := make(map[*Block][]*Block)
	for _, b := range fn.blocks {
		if b.Term == nil {
			return fmt.Errorf("function @%s: block %s has no terminator", fn.name, b.name)
		}
		for _, succ := range b.Term.Successors() {
			if !owned[succ] {
				return fmt.Errorf("function @%s: block %s branches outside the function", fn.name, b.name)
			}
			preds[succ] = append(preds[succ], b)
		}
		if ret, ok := b.Term.(*Return); ok {
			if (ret.Value == nil) != (fn.ret == backend.Void) {
				return fmt.Errorf("function @%s: return in block %s does not match type %s", fn.name, b.name, fn.ret)
			}
		}
	}

	for _, b := range fn.blocks {
		for _, in := range b.Instrs {
			switch in.Op {
			case OpPhi:
				if err := verifyPhi(fn, b, in, preds[b]); err != nil {
					return err
				}
			case OpCall:
				if len(in.Args) != len(in.Callee.params) {
					return fmt.Errorf("function @%s: call to @%s with %d arguments (expected %d)",
						fn.name, in.Callee.name, len(in.Args), len(in.Callee.params))
				}
			}
		}
	}

	return nil
}

func verifyPhi(fn *Function, b *Block, phi *Instr, preds []*Block) error {
	if len(phi.Incoming) != len(preds) {
		return fmt.Errorf("function @%s: phi %s in block %s has %d incoming values for %d predecessors",
			fn.name, phi, b.name, len(phi.Incoming), len(preds))
	}
	for _, inc := range phi.Incoming {
		found := false
		for _, p := range preds {
			if p == inc.Block {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("function @%s: phi %s names %s which is not a predecessor of %s",
				fn.name, phi, inc.Block, b.name)
		}
	}
	return nil
}
