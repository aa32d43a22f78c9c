package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Default external tools.
const (
	DefaultAssembler = "as"
	DefaultLinker    = "ld"
)

// ToolError reports an external tool that did not exit successfully.
type ToolError struct {
	Tool string
	// Code is the exit status, or -1 when the process ended without one
	// (killed by a signal).
	Code int
}

func (e *ToolError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s exited abnormally", e.Tool)
	}
	return fmt.Sprintf("%s returned status %d", e.Tool, e.Code)
}

// Toolchain runs the external assembler and linker.
type Toolchain struct {
	Assembler      string
	Linker         string
	AssemblerFlags []string
	LinkerFlags    []string

	// Stdout and Stderr receive the tools' own output.
	Stdout io.Writer
	Stderr io.Writer

	// Verbose, when set, receives each command line before it runs.
	Verbose io.Writer
}

// DefaultToolchain uses as and ld from PATH and passes their output through.
func DefaultToolchain() Toolchain {
	return Toolchain{
		Assembler: DefaultAssembler,
		Linker:    DefaultLinker,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// ObjectPath returns the intermediate object file used when linking out.
func ObjectPath(out string) string {
	return out + ".o"
}

// Build assembles the emitted listing into out.o and links it into out.
// The object file is left on disk.
func (t Toolchain) Build(ctx context.Context, out string, asFlags, ldFlags []string, emit EmitFunc) (int, error) {
	obj := ObjectPath(out)
	n, err := t.Assemble(ctx, obj, asFlags, emit)
	if err != nil {
		return n, err
	}
	if err := t.Link(ctx, obj, out, ldFlags); err != nil {
		return n, err
	}
	return n, nil
}

// Assemble starts the assembler writing obj, streams the listing into its
// standard input and waits for it to exit. The process is always waited
// for, including when emitting fails.
func (t Toolchain) Assemble(ctx context.Context, obj string, flags []string, emit EmitFunc) (int, error) {
	args := append(append([]string{}, flags...), t.AssemblerFlags...)
	args = append(args, "-o", obj)

	cmd := t.command(ctx, orDefault(t.Assembler, DefaultAssembler), args)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("assembler stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting assembler: %w", err)
	}

	n, emitErr := Emit(stdin, emit)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	// An assembler that dies early breaks the pipe; its status explains more.
	if err := exitError(ctx, "assembler", waitErr); err != nil {
		return n, err
	}
	if emitErr != nil {
		return n, fmt.Errorf("feeding assembler: %w", emitErr)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return n, fmt.Errorf("closing assembler stdin: %w", closeErr)
	}
	return n, nil
}

// Link runs the linker on obj producing out and waits for it to exit.
func (t Toolchain) Link(ctx context.Context, obj, out string, flags []string) error {
	args := append(append([]string{}, flags...), t.LinkerFlags...)
	args = append(args, "-o", out, obj)

	cmd := t.command(ctx, orDefault(t.Linker, DefaultLinker), args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting linker: %w", err)
	}
	return exitError(ctx, "linker", cmd.Wait())
}

func (t Toolchain) command(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	if t.Verbose != nil {
		fmt.Fprintf(t.Verbose, "+ %s\n", strings.Join(cmd.Args, " "))
	}
	return cmd
}

func exitError(ctx context.Context, tool string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", tool, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Tool: tool, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("waiting for %s: %w", tool, err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
