//go:build wasm

package main

import (
	"syscall/js"
)

func main() {
	// Export functions to JavaScript
	js.Global().Set("BfcParse", js.FuncOf(parse))
	js.Global().Set("BfcCompile", js.FuncOf(compile))
	js.Global().Set("BfcRun", js.FuncOf(run))

	// Keep WASM running
	<-make(chan struct{})
}
