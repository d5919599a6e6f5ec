package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/xyproto/env/v2"

	"github.com/ajkachnic/kaleidoscope/backend/ssa"
	"github.com/ajkachnic/kaleidoscope/logger"
)

const (
	editorShell = "shell"
	editorBasic = "basic"
)

// Config is read from KALEIDOSCOPE_* environment variables first, then
// overridden by command line flags.
type Config struct {
	Backend     string
	LogLevel    string
	LogFormat   string
	LogFile     string
	Editor      string
	HistoryFile string
	Color       bool
	DebugTokens bool
	DebugAST    bool
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kaleidoscope_history")
}

func defaultConfig() Config {
	editor := env.Str("KALEIDOSCOPE_EDITOR", editorShell)
	if !isTerminal(os.Stdin) {
		editor = editorBasic
	}

	return Config{
		Backend:     env.Str("KALEIDOSCOPE_BACKEND", ssa.TargetName),
		LogLevel:    env.Str("KALEIDOSCOPE_LOG_LEVEL", "warn"),
		LogFormat:   env.Str("KALEIDOSCOPE_LOG_FORMAT", "text"),
		LogFile:     env.Str("KALEIDOSCOPE_LOG_FILE"),
		Editor:      editor,
		HistoryFile: env.Str("KALEIDOSCOPE_HISTORY", defaultHistoryFile()),
		Color:       isTerminal(os.Stdout) && env.Str("NO_COLOR") == "",
		DebugTokens: env.Bool("KALEIDOSCOPE_DEBUG_TOKENS"),
		DebugAST:    env.Bool("KALEIDOSCOPE_DEBUG_AST"),
	}
}

// loadConfig parses flags on top of the environment defaults and returns the
// remaining arguments.
func loadConfig(args []string) (Config, []string, error) {
	cfg := defaultConfig()

	flags := flag.NewFlagSet("kaleidoscope", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), helpMessage)
		fmt.Fprintln(flags.Output(), "\nFlags:")
		flags.PrintDefaults()
	}

	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "code generation backend")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append logs to this file instead of stderr")
	flags.StringVar(&cfg.Editor, "editor", cfg.Editor, "REPL line editor (shell, basic)")
	flags.StringVar(&cfg.HistoryFile, "history", cfg.HistoryFile, "REPL history file for the basic editor")
	flags.BoolVar(&cfg.Color, "color", cfg.Color, "colorize output")
	flags.BoolVar(&cfg.DebugTokens, "debug-tokens", cfg.DebugTokens, "print tokens")
	flags.BoolVar(&cfg.DebugAST, "debug-ast", cfg.DebugAST, "print AST")

	if err := flags.Parse(args); err != nil {
		return cfg, nil, err
	}

	if cfg.Editor != editorShell && cfg.Editor != editorBasic {
		return cfg, nil, fmt.Errorf("unknown editor %q", cfg.Editor)
	}

	return cfg, flags.Args(), nil
}

func (cfg Config) initLogger() error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.LogFormat
	logCfg.LogFile = cfg.LogFile
	logCfg.AddSource = level == logger.LevelDebug

	return logger.Init(logCfg)
}
