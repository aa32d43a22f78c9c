//go:build wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"syscall/js"

	"github.com/praetorian-inc/bfc/pkg/emulate"
	"github.com/praetorian-inc/bfc/pkg/parser"
	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/praetorian-inc/bfc/pkg/x86"
)

// sourceName labels locations in playground diagnostics.
const sourceName = "playground.bf"

// playgroundMaxSteps keeps a runaway program from freezing the page.
const playgroundMaxSteps = 5_000_000

// parse returns the instruction tree as JSON.
// JS: BfcParse(source) -> JSON tree or {errors}
func parse(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "source argument required"}
	}
	return parseSource(args[0].String())
}

// compile returns the generated assembly.
// JS: BfcCompile(source, arch) -> {asm} or {errors}
func compile(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "source argument required"}
	}
	arch := "amd64"
	if len(args) > 1 {
		arch = args[1].String()
	}
	return compileSource(args[0].String(), arch)
}

// run compiles the program and executes it on the emulator.
// JS: BfcRun(source, arch, input) -> {output, exitCode, steps} or {errors}
func run(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "source argument required"}
	}
	arch := "amd64"
	if len(args) > 1 {
		arch = args[1].String()
	}
	input := ""
	if len(args) > 2 {
		input = args[2].String()
	}
	return runSource(args[0].String(), arch, input)
}

func parseSource(source string) interface{} {
	tree, errResult := parseTree(source)
	if errResult != nil {
		return errResult
	}
	jsonBytes, err := json.Marshal(tree)
	if err != nil {
		return map[string]interface{}{"error": "failed to marshal tree: " + err.Error()}
	}
	return string(jsonBytes)
}

func compileSource(source, arch string) interface{} {
	mode, err := x86.ParseMode(arch)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	tree, errResult := parseTree(source)
	if errResult != nil {
		return errResult
	}
	var asm bytes.Buffer
	if _, err := mode.EmitAsm(&asm, tree); err != nil {
		return map[string]interface{}{"error": "generating assembly: " + err.Error()}
	}
	return map[string]interface{}{"asm": asm.String()}
}

func runSource(source, arch, input string) interface{} {
	compiled := compileSource(source, arch)
	result, ok := compiled.(map[string]interface{})
	if !ok || result["asm"] == nil {
		return compiled
	}
	mode, _ := x86.ParseMode(arch)

	prog, err := emulate.Load(result["asm"].(string), mode.Bits())
	if err != nil {
		return map[string]interface{}{"error": "loading assembly: " + err.Error()}
	}
	var out bytes.Buffer
	m := emulate.NewMachine(prog)
	m.Stdin = strings.NewReader(input)
	m.Stdout = &out
	m.MaxSteps = playgroundMaxSteps

	res, err := m.Run(context.Background())
	if err != nil {
		msg := err.Error()
		if errors.Is(err, emulate.ErrStepLimit) {
			msg = "step limit exceeded; the program may not terminate"
		}
		return map[string]interface{}{"error": msg, "output": out.String()}
	}
	return map[string]interface{}{
		"output":   out.String(),
		"exitCode": res.ExitCode,
		"steps":    res.Steps,
	}
}

// parseTree returns the tree, or a result carrying every syntax error.
func parseTree(source string) ([]types.Node, map[string]interface{}) {
	tree, err := parser.ParseBytes(sourceName, []byte(source))
	if err == nil {
		return tree, nil
	}
	var perrs types.ParseErrors
	if !errors.As(err, &perrs) {
		return nil, map[string]interface{}{"error": err.Error()}
	}
	errs := make([]interface{}, len(perrs))
	for i, pe := range perrs {
		errs[i] = map[string]interface{}{
			"rule":    pe.Rule,
			"message": pe.Message,
			"line":    pe.Loc.Line,
			"column":  pe.Loc.Column,
		}
	}
	return nil, map[string]interface{}{"errors": errs}
}
