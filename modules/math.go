package modules

import (
	"math"

	"github.com/ajkachnic/kaleidoscope/backend"
)

func loadMath(l backend.NativeLoader) {
	unary := map[string]func(float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"atan":  math.Atan,
		"sqrt":  math.Sqrt,
		"exp":   math.Exp,
		"log":   math.Log,
		"fabs":  math.Abs,
		"floor": math.Floor,
		"ceil":  math.Ceil,
	}
	for name, fn := range unary {
		fn := fn
		l.LoadFunc(name, 1, func(args []float64) float64 {
			return fn(args[0])
		})
	}

	binary := map[string]func(float64, float64) float64{
		"atan2": math.Atan2,
		"pow":   math.Pow,
		"fmod":  math.Mod,
	}
	for name, fn := range binary {
		fn := fn
		l.LoadFunc(name, 2, func(args []float64) float64 {
			return fn(args[0], args[1])
		})
	}
}
