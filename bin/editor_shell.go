package main

import (
	"github.com/reeflective/readline"
)

// shellEditor is the full line editor with live syntax highlighting.
type shellEditor struct {
	shell *readline.Shell
}

func newShellEditor(prompt string) *shellEditor {
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return prompt })
	rl.SyntaxHighlighter = highlight

	return &shellEditor{shell: rl}
}

func (e *shellEditor) Readline() (string, error) {
	return e.shell.Readline()
}

func (e *shellEditor) Close() error {
	return nil
}
