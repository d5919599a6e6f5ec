package main

import (
	"errors"

	"github.com/chzyer/readline"
)

var errInterrupt = errors.New("interrupt")

// basicEditor keeps a history file and copes with non-terminal input.
type basicEditor struct {
	rl *readline.Instance
}

func newBasicEditor(prompt, historyFile string) (*basicEditor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, err
	}

	return &basicEditor{rl: rl}, nil
}

func (e *basicEditor) Readline() (string, error) {
	line, err := e.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errInterrupt
	}
	return line, err
}

func (e *basicEditor) Close() error {
	return e.rl.Close()
}

type lineEditor interface {
	Readline() (string, error)
	Close() error
}

func newEditor(cfg Config, prompt string) (lineEditor, error) {
	if cfg.Editor == editorShell {
		return newShellEditor(prompt), nil
	}
	return newBasicEditor(prompt, cfg.HistoryFile)
}
