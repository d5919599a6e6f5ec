package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"

	"github.com/ajkachnic/kaleidoscope/backend"
	_ "github.com/ajkachnic/kaleidoscope/backend/ssa"
	"github.com/ajkachnic/kaleidoscope/core"
	"github.com/ajkachnic/kaleidoscope/logger"
	"github.com/ajkachnic/kaleidoscope/modules"
)

const version = "0.1.0"

const helpMessage = `kaleidoscope is a tiny compiler for the Kaleidoscope language.

Usage:
  kaleidoscope [flags]                 start the REPL
  kaleidoscope [flags] compile <file>  print the IR for a file
  kaleidoscope [flags] run <file>      compile a file and run it
  kaleidoscope version                 print version and backends
`

const prompt = "ready> "

var stdout io.Writer = colorable.NewColorableStdout()

func main() {
	cfg, args, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := cfg.initLogger(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	color.NoColor = !cfg.Color
	color.Output = stdout

	target, err := backend.Lookup(cfg.Backend)
	if err != nil {
		printError(err, "")
		os.Exit(2)
	}

	logger.LogCompilerStart(os.Args[1:])

	switch {
	case len(args) == 0:
		repl(cfg, target)
	case len(args) == 2 && args[0] == "compile":
		os.Exit(compileFile(cfg, target, args[1], false))
	case len(args) == 2 && args[0] == "run":
		os.Exit(compileFile(cfg, target, args[1], true))
	case len(args) == 1 && args[0] == "version":
		fmt.Fprintf(stdout, "kaleidoscope %s (backends: %s)\n", version, strings.Join(backend.Targets(), ", "))
	default:
		fmt.Fprint(os.Stderr, helpMessage)
		os.Exit(2)
	}
}

func printError(err error, source string) {
	msg := err.Error()

	var parseErr core.ParseError
	if errors.As(err, &parseErr) && source != "" {
		msg = parseErr.ErrorWithContext(source)
	}

	fmt.Fprintf(stdout, "%s %s\n", color.RedString("error:"), msg)
}

func printIR(cfg Config, ir string) {
	if cfg.Color {
		highlightIR(stdout, ir)
		return
	}
	fmt.Fprint(stdout, ir)
}

func printTokens(source string) {
	for _, token := range core.Tokenize(source) {
		fmt.Fprintf(stdout, "%s %s\n", color.HiBlackString(token.Pos.String()), token)
	}
}

func compileFile(cfg Config, target backend.Target, path string, run bool) int {
	start := time.Now()
	logger.LogFileProcessing(path)

	content, err := os.ReadFile(path)
	if err != nil {
		printError(err, "")
		return 1
	}
	source := string(content)

	if cfg.DebugTokens {
		printTokens(source)
	}

	topLevel, err := core.Parse(source)
	if err != nil {
		logger.LogError("parse", path, err)
		printError(err, source)
		return 1
	}

	if cfg.DebugAST {
		fmt.Fprint(stdout, topLevel)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	module, err := core.Compile(target, name, topLevel)
	logger.LogCompilerComplete(err == nil, time.Since(start).String())
	if err != nil {
		logger.LogError("irgen", path, err)
		printError(err, source)
		return 1
	}

	if !run {
		printIR(cfg, module.String())
		return 0
	}

	err = core.Run(target, module, func(engine backend.Engine) {
		if !modules.InitializeEngine(engine, stdout) {
			logger.Warn("Backend does not support native functions", "backend", target.Name())
		}
	})
	if err != nil {
		printError(err, source)
		return 1
	}

	return 0
}

// formatValue prints whole numbers with a trailing ".0" so results always
// read as doubles.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}

func printFunctions(session *core.Session) {
	topLevel := session.TopLevel()
	for _, name := range topLevel.Names() {
		proto, _ := topLevel.Prototype(name)
		fmt.Fprintln(stdout, highlight([]rune(proto.String())))
	}
}

func repl(cfg Config, target backend.Target) {
	log := logger.With("mode", "repl", "backend", target.Name())

	session, err := core.NewSession(target)
	if err != nil {
		printError(err, "")
		os.Exit(1)
	}
	defer session.Close()

	if !modules.InitializeEngine(session.Engine(), stdout) {
		log.Warn("Backend does not support native functions")
	}

	rl, err := newEditor(cfg, prompt)
	if err != nil {
		printError(err, "")
		os.Exit(1)
	}
	defer rl.Close()

	for {
		text, err := rl.Readline()

		if errors.Is(err, errInterrupt) {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintln(stdout, err)
			break
		}

		switch strings.TrimSpace(text) {
		case ":quit":
			return
		case ":functions":
			printFunctions(session)
			continue
		}

		if cfg.DebugTokens {
			printTokens(text)
		}

		result, err := session.Eval(text)
		if err != nil {
			log.Debug("Line rejected", "line", text, "error", err)
			printError(err, text)
			continue
		}

		switch result.Kind {
		case core.ExternResult:
			fmt.Fprintln(stdout, color.GreenString("Read extern:"))
			printIR(cfg, result.Function.Dump())
		case core.DefinitionResult:
			fmt.Fprintln(stdout, color.GreenString("Read definition:"))
			printIR(cfg, result.Function.Dump())
		case core.ExpressionResult:
			log.Debug("Evaluated expression", "function", result.Name, "value", result.Value)
			fmt.Fprintln(stdout, color.MagentaString(formatValue(result.Value)))
		}
	}
}
