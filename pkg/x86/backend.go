// Package x86 generates GNU assembler code for 32-bit and 64-bit x86 Linux.
package x86

import (
	"context"
	"fmt"
	"io"

	"github.com/praetorian-inc/bfc/pkg/codegen"
	"github.com/praetorian-inc/bfc/pkg/types"
)

var _ codegen.Generator = (*Backend)(nil)

// Backend is the code generator for one x86 variant.
type Backend struct {
	mode  Mode
	tools codegen.Toolchain
}

// New creates a backend for mode. The toolchain is only used for
// codegen.Elf output.
func New(mode Mode, tools codegen.Toolchain) *Backend {
	return &Backend{mode: mode, tools: tools}
}

// Mode returns the variant this backend targets.
func (b *Backend) Mode() Mode {
	return b.mode
}

// Generate writes tree to out as assembly text (codegen.Asm) or assembles
// and links it into an executable (codegen.Elf). For Elf the intermediate
// object file out.o is left on disk.
func (b *Backend) Generate(ctx context.Context, tree []types.Node, format codegen.Format, out string) (int, error) {
	a, err := b.mode.arch()
	if err != nil {
		return 0, err
	}
	emit := func(w io.Writer) (int, error) {
		return b.mode.EmitAsm(w, tree)
	}

	switch format {
	case codegen.Asm:
		return codegen.WriteFile(out, emit)
	case codegen.Elf:
		return b.tools.Build(ctx, out,
			[]string{a.asFlag},
			[]string{"-m", a.ldEmulation},
			emit)
	}
	return 0, fmt.Errorf("unsupported format %s", format)
}
