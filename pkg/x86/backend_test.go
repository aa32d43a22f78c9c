package x86

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/praetorian-inc/bfc/pkg/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_GenerateAsm(t *testing.T) {
	tree := mustParse(t, "++[,.]")
	out := filepath.Join(t.TempDir(), "prog.s")

	b := New(Amd64, codegen.Toolchain{})
	n, err := b.Generate(context.Background(), tree, codegen.Asm, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, emit(t, Amd64, "++[,.]"), string(data))
}

func TestBackend_GenerateAsmUnwritable(t *testing.T) {
	b := New(X86, codegen.Toolchain{})
	_, err := b.Generate(context.Background(), nil, codegen.Asm, filepath.Join(t.TempDir(), "no", "such", "dir.s"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBackend_UnsupportedFormat(t *testing.T) {
	b := New(Amd64, codegen.Toolchain{})
	_, err := b.Generate(context.Background(), nil, codegen.Format(42), "out")
	assert.Error(t, err)
}

func TestBackend_GenerateElfPassesArchFlags(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain scripts need /bin/sh")
	}
	dir := t.TempDir()
	as := filepath.Join(dir, "as")
	ld := filepath.Join(dir, "ld")
	require.NoError(t, os.WriteFile(as, []byte("#!/bin/sh\necho \"$@\" > \"$0.args\"\ncat > /dev/null\n"), 0755))
	require.NoError(t, os.WriteFile(ld, []byte("#!/bin/sh\necho \"$@\" > \"$0.args\"\n"), 0755))

	tests := []struct {
		mode   Mode
		asArgs string
		ldArgs string
	}{
		{mode: Amd64, asArgs: "--64 -o %s.o", ldArgs: "-m elf_x86_64 -o %s %s.o"},
		{mode: X86, asArgs: "--32 -o %s.o", ldArgs: "-m elf_i386 -o %s %s.o"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			out := filepath.Join(dir, "prog-"+tt.mode.String())
			b := New(tt.mode, codegen.Toolchain{Assembler: as, Linker: ld})

			n, err := b.Generate(context.Background(), mustParse(t, "+."), codegen.Elf, out)
			require.NoError(t, err)
			assert.Equal(t, len(emit(t, tt.mode, "+.")), n)

			asArgs, err := os.ReadFile(as + ".args")
			require.NoError(t, err)
			assert.Equal(t, strings.ReplaceAll(tt.asArgs, "%s", out), strings.TrimSpace(string(asArgs)))

			ldArgs, err := os.ReadFile(ld + ".args")
			require.NoError(t, err)
			assert.Equal(t, strings.ReplaceAll(tt.ldArgs, "%s", out), strings.TrimSpace(string(ldArgs)))
		})
	}
}

func TestBackend_GenerateElfAssemblerFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain scripts need /bin/sh")
	}
	dir := t.TempDir()
	as := filepath.Join(dir, "as")
	require.NoError(t, os.WriteFile(as, []byte("#!/bin/sh\ncat > /dev/null\nexit 1\n"), 0755))

	b := New(Amd64, codegen.Toolchain{Assembler: as, Linker: filepath.Join(dir, "never-run")})
	_, err := b.Generate(context.Background(), mustParse(t, "+"), codegen.Elf, filepath.Join(dir, "prog"))

	var toolErr *codegen.ToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Equal(t, "assembler", toolErr.Tool)
	assert.Equal(t, 1, toolErr.Code)
}

// TestBackend_NativeToolchain builds and runs real executables when GNU as
// and ld are installed on a Linux amd64 host.
func TestBackend_NativeToolchain(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("native test needs linux/amd64")
	}
	for _, tool := range []string{"as", "ld"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "cat")
	b := New(Amd64, codegen.Toolchain{Assembler: "as", Linker: "ld"})

	_, err := b.Generate(context.Background(), mustParse(t, ",+[-.,+]"), codegen.Elf, out)
	require.NoError(t, err)

	_, err = os.Stat(codegen.ObjectPath(out))
	assert.NoError(t, err, "object file should be left on disk")

	cmd := exec.Command(out)
	cmd.Stdin = strings.NewReader("ab")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	require.NoError(t, cmd.Run())
	assert.Equal(t, "ab", stdout.String())
	assert.Equal(t, 0, cmd.ProcessState.ExitCode())
}
