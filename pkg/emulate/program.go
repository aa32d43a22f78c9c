// Package emulate executes the x86 assembly subset emitted by the bfc
// backends, tracking every stack push and every memory access.
//
// Stack memory is modelled the way Linux grows a main-thread stack: only the
// range between the lowest stack pointer reached so far and the initial
// stack top is mapped. A generated program that dereferences the tape before
// the stack has been extended over it faults here exactly as it would fault
// on real hardware.
package emulate

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

type opKind int

const (
	opImm opKind = iota + 1
	opReg
	opMem
	opLabel
)

type operand struct {
	kind  opKind
	imm   int64
	reg   int // register slot for opReg and the base of opMem
	width int // register width in bytes for opReg
	label string
}

type instr struct {
	op   string
	size int // operand size from the mnemonic suffix, 0 when implied
	args []operand
	line int
	text string
}

// Program is a loaded assembly listing.
type Program struct {
	bits   int
	code   []instr
	labels map[string]int
	entry  int
}

// Bits returns the word width the program was loaded for.
func (p *Program) Bits() int {
	return p.bits
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.code)
}

type regInfo struct {
	slot  int
	width int
	bits  int // smallest mode where the name exists
}

var registers = map[string]regInfo{
	"rax": {0, 8, 64}, "eax": {0, 4, 32}, "ax": {0, 2, 32},
	"rcx": {1, 8, 64}, "ecx": {1, 4, 32}, "cx": {1, 2, 32},
	"rdx": {2, 8, 64}, "edx": {2, 4, 32}, "dx": {2, 2, 32},
	"rbx": {3, 8, 64}, "ebx": {3, 4, 32}, "bx": {3, 2, 32},
	"rsp": {4, 8, 64}, "esp": {4, 4, 32}, "sp": {4, 2, 32},
	"rbp": {5, 8, 64}, "ebp": {5, 4, 32}, "bp": {5, 2, 32},
	"rsi": {6, 8, 64}, "esi": {6, 4, 32}, "si": {6, 2, 32},
	"rdi": {7, 8, 64}, "edi": {7, 4, 32}, "di": {7, 2, 32},
}

const spSlot = 4

var sizedOps = map[string]bool{
	"push": true, "add": true, "sub": true, "mov": true, "cmp": true,
}

var plainOps = map[string]int{
	"jmp": 1, "je": 1, "jne": 1, "ja": 1, "jae": 1, "jb": 1, "jbe": 1,
	"syscall": 0, "int": 1,
}

var suffixSizes = map[byte]int{'b': 1, 'w': 2, 'l': 4, 'q': 8}

// Load parses an assembly listing for a 32- or 64-bit machine.
func Load(src string, bits int) (*Program, error) {
	if bits != 32 && bits != 64 {
		return nil, fmt.Errorf("unsupported word width %d", bits)
	}
	p := &Program{bits: bits, labels: make(map[string]int)}

	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			if !isIdent(name) {
				return nil, fmt.Errorf("line %d: invalid label %q", lineNo, name)
			}
			if _, dup := p.labels[name]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", lineNo, name)
			}
			p.labels[name] = len(p.code)
			continue
		}

		if strings.HasPrefix(line, ".") {
			if err := checkDirective(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		in, err := p.parseInstr(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		in.line = lineNo
		p.code = append(p.code, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}

	entry, ok := p.labels["_start"]
	if !ok {
		return nil, fmt.Errorf("no _start label")
	}
	p.entry = entry

	for _, in := range p.code {
		for _, arg := range in.args {
			if arg.kind != opLabel {
				continue
			}
			if _, ok := p.labels[arg.label]; !ok {
				return nil, fmt.Errorf("line %d: undefined label %q", in.line, arg.label)
			}
		}
	}
	return p, nil
}

func checkDirective(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".text":
		return nil
	case ".globl", ".global":
		if len(fields) != 2 {
			return fmt.Errorf("%s takes one symbol", fields[0])
		}
		return nil
	}
	return fmt.Errorf("unsupported directive %s", fields[0])
}

func (p *Program) parseInstr(line string) (instr, error) {
	mnemonic, rest, _ := strings.Cut(line, " ")
	in := instr{text: line}

	if argc, ok := plainOps[mnemonic]; ok {
		in.op = mnemonic
		args, err := p.parseOperands(rest)
		if err != nil {
			return in, err
		}
		if len(args) != argc {
			return in, fmt.Errorf("%s takes %d operand(s), got %d", mnemonic, argc, len(args))
		}
		in.args = args
		return in, nil
	}

	op := mnemonic
	if !sizedOps[op] && len(op) > 1 {
		if size, ok := suffixSizes[op[len(op)-1]]; ok && sizedOps[op[:len(op)-1]] {
			op = op[:len(op)-1]
			in.size = size
		}
	}
	if !sizedOps[op] {
		return in, fmt.Errorf("unsupported instruction %q", mnemonic)
	}
	if in.size == 8 && p.bits == 32 {
		return in, fmt.Errorf("%s is not available in 32-bit mode", mnemonic)
	}
	in.op = op

	args, err := p.parseOperands(rest)
	if err != nil {
		return in, err
	}
	want := 2
	if op == "push" {
		want = 1
	}
	if len(args) != want {
		return in, fmt.Errorf("%s takes %d operand(s), got %d", mnemonic, want, len(args))
	}
	in.args = args
	return in, nil
}

func (p *Program) parseOperands(s string) ([]operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []operand
	for _, field := range strings.Split(s, ",") {
		arg, err := p.parseOperand(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func (p *Program) parseOperand(s string) (operand, error) {
	switch {
	case strings.HasPrefix(s, "$"):
		v, err := strconv.ParseInt(s[1:], 0, 64)
		if err != nil {
			return operand{}, fmt.Errorf("invalid immediate %q", s)
		}
		return operand{kind: opImm, imm: v}, nil
	case strings.HasPrefix(s, "%"):
		r, err := p.register(s[1:])
		if err != nil {
			return operand{}, err
		}
		return operand{kind: opReg, reg: r.slot, width: r.width}, nil
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		inner := s[1 : len(s)-1]
		if !strings.HasPrefix(inner, "%") {
			return operand{}, fmt.Errorf("invalid memory operand %q", s)
		}
		r, err := p.register(inner[1:])
		if err != nil {
			return operand{}, err
		}
		if r.width*8 != p.bits {
			return operand{}, fmt.Errorf("address register %%%s must be %d-bit", inner[1:], p.bits)
		}
		return operand{kind: opMem, reg: r.slot}, nil
	case isIdent(s):
		return operand{kind: opLabel, label: s}, nil
	}
	return operand{}, fmt.Errorf("invalid operand %q", s)
}

func (p *Program) register(name string) (regInfo, error) {
	r, ok := registers[name]
	if !ok {
		return regInfo{}, fmt.Errorf("unknown register %%%s", name)
	}
	if r.bits > p.bits {
		return regInfo{}, fmt.Errorf("register %%%s is not available in %d-bit mode", name, p.bits)
	}
	return r, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
