package modules

import (
	"fmt"
	"io"

	"github.com/ajkachnic/kaleidoscope/backend"
)

// loadIO binds the classic Kaleidoscope output helpers. Both return 0 so they
// can sit anywhere in an expression.
func loadIO(l backend.NativeLoader, out io.Writer) {
	l.LoadFunc("putchard", 1, func(args []float64) float64 {
		fmt.Fprintf(out, "%c", rune(int(args[0])))
		return 0
	})
	l.LoadFunc("printd", 1, func(args []float64) float64 {
		fmt.Fprintf(out, "%f\n", args[0])
		return 0
	})
}
