//go:build llvm

package main

import (
	_ "github.com/ajkachnic/kaleidoscope/backend/llvm"
)
