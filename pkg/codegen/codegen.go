// Package codegen defines the contract every architecture backend satisfies
// and the shared plumbing used to turn emitted assembly into a file or an
// executable.
package codegen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/bfc/pkg/types"
)

// Format selects what Generate produces.
type Format int

const (
	// Elf assembles and links a native executable.
	Elf Format = iota
	// Asm writes the textual assembly.
	Asm
)

// String returns the command-line name of the format.
func (f Format) String() string {
	switch f {
	case Elf:
		return "elf"
	case Asm:
		return "asm"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a command-line name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "elf":
		return Elf, nil
	case "asm":
		return Asm, nil
	}
	return 0, fmt.Errorf("unsupported format %q (want asm or elf)", s)
}

// Generator turns a parsed program into output at path out. It returns the
// number of assembly bytes emitted.
type Generator interface {
	Generate(ctx context.Context, tree []types.Node, format Format, out string) (int, error)
}

// EmitFunc writes a complete assembly listing to w and returns its size.
type EmitFunc func(w io.Writer) (int, error)
