package core

import (
	"fmt"

	"github.com/ajkachnic/kaleidoscope/backend"
	"github.com/ajkachnic/kaleidoscope/logger"
)

func Tokenize(source string) []Token {
	tokens := NewTokenizer(source).Tokenize()
	logger.LogLexing("<input>", len(tokens))
	return tokens
}

// Parse parses a source file: externs, definitions and loose expressions.
func Parse(source string) (*TopLevel, error) {
	tokens := Tokenize(source)

	parser := NewParser(tokens)
	topLevel, err := parser.ParseFile()
	if err != nil {
		return nil, err
	}

	logger.LogParsing("<input>", len(topLevel.Externs()), len(topLevel.Definitions()), len(topLevel.Expressions()))
	return topLevel, nil
}

// Compile lowers a parsed file into a fresh module of the target and
// verifies it. On error no module is returned.
func Compile(target backend.Target, name string, topLevel *TopLevel) (backend.Module, error) {
	logger.LogPhase("irgen")

	module := target.NewModule(name)
	compiler := NewCompiler(module, topLevel)
	if err := compiler.Emit(); err != nil {
		return nil, err
	}

	if err := module.Verify(); err != nil {
		return nil, fmt.Errorf("module verification failed: %w", err)
	}

	logger.LogPhaseComplete("irgen")
	return module, nil
}

// Run loads a compiled file into a new engine and calls its main driver.
// prepare, if not nil, is called with the engine before main runs, e.g. to
// load native functions.
func Run(target backend.Target, module backend.Module, prepare func(backend.Engine)) error {
	engine, err := target.NewEngine()
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if prepare != nil {
		prepare(engine)
	}

	if err := engine.AddModule(module); err != nil {
		return err
	}
	defer engine.RemoveModule(module)

	mainFn, ok := engine.FindFunction(MainFunction)
	if !ok {
		return fmt.Errorf("module %s has no %s function", module.Name(), MainFunction)
	}

	_, err = engine.RunFunction(mainFn)
	return err
}
