// Package bfc compiles programs in the eight-instruction tape language to
// x86 assembly or Linux ELF executables.
//
// # Basic Usage
//
// Compile a source file to an amd64 executable named a.out:
//
//	n, err := bfc.CompileFile(ctx, "hello.bf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Options
//
// Emit 32-bit assembly instead:
//
//	n, err := bfc.Compile(ctx, "hello.bf", src,
//	    bfc.WithMode(bfc.X86),
//	    bfc.WithFormat(bfc.Asm),
//	    bfc.WithOutput("hello.s"),
//	)
//
// Parse errors are reported together as a ParseErrors value:
//
//	var perrs bfc.ParseErrors
//	if errors.As(err, &perrs) {
//	    for _, pe := range perrs {
//	        fmt.Println(pe)
//	    }
//	}
package bfc

import (
	"context"

	"github.com/praetorian-inc/bfc/pkg/codegen"
	"github.com/praetorian-inc/bfc/pkg/cursor"
	"github.com/praetorian-inc/bfc/pkg/parser"
	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/praetorian-inc/bfc/pkg/x86"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/bfc" without subpackages.
type (
	// Location is a 1-based line and column in a source file.
	Location = types.Location

	// Node is one instruction of the parsed tree.
	Node = types.Node

	// ParseError describes one syntax error.
	ParseError = types.ParseError

	// ParseErrors is every syntax error found in one source.
	ParseErrors = types.ParseErrors

	// Mode selects the target word size.
	Mode = x86.Mode

	// Format selects assembly text or a linked executable.
	Format = codegen.Format

	// Toolchain names the assembler and linker used for ELF output.
	Toolchain = codegen.Toolchain
)

// Re-export target constants.
const (
	Amd64 = x86.Amd64
	X86   = x86.X86

	Elf = codegen.Elf
	Asm = codegen.Asm
)

// DefaultOutput is the output path used when none is given.
const DefaultOutput = "a.out"

type compileConfig struct {
	mode   Mode
	format Format
	output string
	tools  Toolchain
}

// Option configures a compilation.
type Option func(*compileConfig)

// WithMode sets the target mode. Default is Amd64.
func WithMode(m Mode) Option {
	return func(c *compileConfig) {
		c.mode = m
	}
}

// WithFormat sets the output format. Default is Elf.
func WithFormat(f Format) Option {
	return func(c *compileConfig) {
		c.format = f
	}
}

// WithOutput sets the output path. Default is a.out.
func WithOutput(path string) Option {
	return func(c *compileConfig) {
		c.output = path
	}
}

// WithToolchain overrides the assembler and linker used for Elf output.
func WithToolchain(t Toolchain) Option {
	return func(c *compileConfig) {
		c.tools = t
	}
}

// Parse builds the instruction tree for src. file is only used in locations.
func Parse(file string, src []byte) ([]Node, error) {
	return parser.ParseBytes(file, src)
}

// Compile parses src and writes the generated program. It returns the number
// of assembly bytes produced.
func Compile(ctx context.Context, file string, src []byte, opts ...Option) (int, error) {
	tree, err := Parse(file, src)
	if err != nil {
		return 0, err
	}
	return generate(ctx, tree, opts)
}

// CompileFile reads path and compiles it.
func CompileFile(ctx context.Context, path string, opts ...Option) (int, error) {
	c, err := cursor.Open(path)
	if err != nil {
		return 0, err
	}
	tree, err := parser.Parse(c)
	if err != nil {
		return 0, err
	}
	return generate(ctx, tree, opts)
}

func generate(ctx context.Context, tree []Node, opts []Option) (int, error) {
	cfg := &compileConfig{
		mode:   Amd64,
		format: Elf,
		output: DefaultOutput,
		tools:  codegen.DefaultToolchain(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return x86.New(cfg.mode, cfg.tools).Generate(ctx, tree, cfg.format, cfg.output)
}
