package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/fatih/color"

	"github.com/ajkachnic/kaleidoscope/core"
)

// highlight colors a line of source as it is typed. Text the tokenizer skips
// (whitespace, comments, trailing garbage) is copied through unchanged.
func highlight(line []rune) string {
	tokens := core.NewTokenizer(string(line)).Tokenize()

	builder := strings.Builder{}

	i := 0
	for _, token := range tokens {
		if token.Pos.Offset > i {
			builder.WriteString(string(line[i:token.Pos.Offset]))
		}

		text := string(line[token.Pos.Offset : token.Pos.Offset+token.Length])
		switch token.Kind {
		case core.DEF, core.EXTERN, core.IF, core.THEN, core.ELSE:
			builder.WriteString(color.BlueString(text))
		case core.NUMBER:
			builder.WriteString(color.MagentaString(text))
		case core.OPERATOR:
			builder.WriteString(color.YellowString(text))
		default:
			builder.WriteString(text)
		}

		i = token.Pos.Offset + token.Length
	}

	if i < len(line) {
		builder.WriteString(string(line[i:]))
	}

	return builder.String()
}

// highlightIR writes a module or function dump with LLVM syntax colors.
func highlightIR(w io.Writer, ir string) {
	if err := quick.Highlight(w, ir, "llvm", "terminal256", "monokai"); err != nil {
		fmt.Fprint(w, ir)
	}
}
