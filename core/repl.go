package core

import (
	"fmt"

	"github.com/ajkachnic/kaleidoscope/backend"
)

type ResultKind int

const (
	EmptyResult ResultKind = iota
	ExternResult
	DefinitionResult
	ExpressionResult
)

// Result describes what one REPL line did. Function is the declared or
// defined function for externs and definitions; Value and Name are set for
// evaluated expressions.
type Result struct {
	Kind     ResultKind
	Function backend.Function
	Name     string
	Value    float64
}

// Session is an incremental compilation session: one registry and one
// module persist across lines, and each bare expression is compiled into a
// transient module that lives in the engine only while it runs.
type Session struct {
	target   backend.Target
	engine   backend.Engine
	topLevel *TopLevel
	compiler *Compiler
	count    int
}

func NewSession(target backend.Target) (*Session, error) {
	engine, err := target.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	topLevel := NewTopLevel(nil, nil)
	module := target.NewModule("main")
	if err := engine.AddModule(module); err != nil {
		engine.Close()
		return nil, err
	}

	return &Session{
		target:   target,
		engine:   engine,
		topLevel: topLevel,
		compiler: NewCompiler(module, topLevel),
	}, nil
}

func (s *Session) Engine() backend.Engine { return s.engine }
func (s *Session) Module() backend.Module { return s.compiler.Module() }
func (s *Session) TopLevel() *TopLevel    { return s.topLevel }

// Count is the number of anonymous expressions evaluated so far.
func (s *Session) Count() int { return s.count }

func (s *Session) Close() error {
	return s.engine.Close()
}

// Eval handles one line of input. Lines are independent: a form may not span
// lines, and the trailing ';' is optional.
func (s *Session) Eval(line string) (Result, error) {
	tokens := NewTokenizer(line).Tokenize()
	if len(tokens) == 0 {
		return Result{Kind: EmptyResult}, nil
	}

	parser := NewLineParser(tokens)

	switch tokens[0].Kind {
	case EXTERN:
		proto, err := parser.ParseExtern()
		if err != nil {
			return Result{}, err
		}
		if err := parser.Finish(); err != nil {
			return Result{}, err
		}
		fn, err := s.compiler.AddExtern(proto)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ExternResult, Function: fn, Name: proto.Name}, nil
	case DEF:
		def, err := parser.ParseDefinition()
		if err != nil {
			return Result{}, err
		}
		if err := parser.Finish(); err != nil {
			return Result{}, err
		}
		fn, err := s.compiler.AddDefinition(def)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: DefinitionResult, Function: fn, Name: def.Prototype.Name}, nil
	default:
		expr, err := parser.ParseExpr()
		if err != nil {
			return Result{}, err
		}
		if err := parser.ParseTerminator(); err != nil {
			return Result{}, err
		}
		if err := parser.Finish(); err != nil {
			return Result{}, err
		}
		return s.evalExpression(expr)
	}
}

func (s *Session) evalExpression(expr Expr) (result Result, err error) {
	name := fmt.Sprintf("__repl_input_%d__", s.count)
	module := s.target.NewModule(fmt.Sprintf("__anonymous_%d__", s.count))

	compiler := NewCompiler(module, s.topLevel)
	if _, err := compiler.EmitAnonymous(expr, name); err != nil {
		return Result{}, err
	}

	if err := s.engine.AddModule(module); err != nil {
		return Result{}, err
	}
	defer func() {
		if rerr := s.engine.RemoveModule(module); rerr != nil && err == nil {
			err = rerr
		}
	}()

	fn, ok := s.engine.FindFunction(name)
	if !ok {
		return Result{}, fmt.Errorf("function %s not found after loading %s", name, module.Name())
	}

	value, err := s.engine.RunFunction(fn)
	if err != nil {
		return Result{}, err
	}

	s.count++
	return Result{Kind: ExpressionResult, Name: name, Value: value}, nil
}
