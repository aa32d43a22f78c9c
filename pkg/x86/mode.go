package x86

import (
	"fmt"
	"strings"
)

// Mode selects the x86 variant to generate code for.
type Mode int

const (
	// Amd64 is 64-bit x86 using the syscall instruction.
	Amd64 Mode = iota
	// X86 is 32-bit x86 using int $0x80.
	X86
)

// ParseMode maps an architecture name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "x86", "i386", "386":
		return X86, nil
	case "amd64", "x86_64", "x86-64", "x64":
		return Amd64, nil
	}
	return 0, fmt.Errorf("unsupported architecture %q (want x86 or amd64)", s)
}

// String returns the canonical architecture name.
func (m Mode) String() string {
	switch m {
	case Amd64:
		return "amd64"
	case X86:
		return "x86"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Bits returns the machine word width in bits.
func (m Mode) Bits() int {
	if m == X86 {
		return 32
	}
	return 64
}

// arch is everything that differs between the two variants.
type arch struct {
	ptr  string // tape pointer
	sp   string // machine stack pointer
	push string // full machine word push

	trap string // system call instruction
	nr   string // system call number and return value
	args [3]string

	sysRead  int
	sysWrite int
	sysExit  int

	asFlag      string
	ldEmulation string
}

var arches = map[Mode]*arch{
	Amd64: {
		ptr:         "%rbx",
		sp:          "%rsp",
		push:        "pushq",
		trap:        "syscall",
		nr:          "%rax",
		args:        [3]string{"%rdi", "%rsi", "%rdx"},
		sysRead:     0,
		sysWrite:    1,
		sysExit:     60,
		asFlag:      "--64",
		ldEmulation: "elf_x86_64",
	},
	X86: {
		ptr:         "%esi",
		sp:          "%esp",
		push:        "pushl",
		trap:        "int $0x80",
		nr:          "%eax",
		args:        [3]string{"%ebx", "%ecx", "%edx"},
		sysRead:     3,
		sysWrite:    4,
		sysExit:     1,
		asFlag:      "--32",
		ldEmulation: "elf_i386",
	},
}

func (m Mode) arch() (*arch, error) {
	a, ok := arches[m]
	if !ok {
		return nil, fmt.Errorf("unsupported architecture %s", m)
	}
	return a, nil
}
