package emulate

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxSteps bounds execution when Machine.MaxSteps is zero.
const DefaultMaxSteps = 50_000_000

// stackTop is the initial stack pointer. It fits in 32 bits so the same
// layout serves both modes.
const stackTop uint64 = 0xbff00000

// Linux errno returned to the program when a host stream fails.
const errnoEIO = 5

// ErrStepLimit is returned when a program runs longer than MaxSteps.
var ErrStepLimit = errors.New("step limit exceeded")

// Fault is an access to memory outside the mapped stack.
type Fault struct {
	Line  int
	Instr string
	Addr  uint64
	Size  int
}

func (f *Fault) Error() string {
	return fmt.Sprintf("line %d: segmentation fault accessing %d byte(s) at %#x (%s)", f.Line, f.Size, f.Addr, f.Instr)
}

// Result summarises a finished run.
type Result struct {
	ExitCode int
	Steps    int
	// Pushes counts every push executed, the prologue included.
	Pushes int
	// StackBytes is how far the stack grew below its initial top.
	StackBytes uint64
}

// Machine runs one Program.
type Machine struct {
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	MaxSteps int

	prog   *Program
	regs   [8]uint64
	zf, cf bool
	mem    map[uint64]byte
	low    uint64
	pushes int
}

// NewMachine prepares p for execution with the stack pointer at the top of
// an empty stack.
func NewMachine(p *Program) *Machine {
	m := &Machine{
		prog: p,
		mem:  make(map[uint64]byte),
		low:  stackTop,
	}
	m.regs[spSlot] = stackTop
	return m
}

// Run executes from _start until the program exits.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	limit := m.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	pc := m.prog.entry
	for steps := 0; ; steps++ {
		if steps >= limit {
			return m.result(steps, 0), ErrStepLimit
		}
		if steps&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return m.result(steps, 0), err
			}
		}
		if pc >= len(m.prog.code) {
			return m.result(steps, 0), fmt.Errorf("execution ran past the last instruction")
		}

		in := &m.prog.code[pc]
		next, exited, code, err := m.step(in, pc)
		if err != nil {
			return m.result(steps, 0), err
		}
		if exited {
			return m.result(steps+1, code), nil
		}
		pc = next
	}
}

func (m *Machine) result(steps, code int) *Result {
	return &Result{
		ExitCode:   code,
		Steps:      steps,
		Pushes:     m.pushes,
		StackBytes: stackTop - m.low,
	}
}

func (m *Machine) wordSize() int {
	return m.prog.bits / 8
}

func (m *Machine) step(in *instr, pc int) (next int, exited bool, code int, err error) {
	next = pc + 1
	switch in.op {
	case "push":
		size := in.size
		if size == 0 {
			size = m.wordSize()
		}
		v, err := m.read(in, in.args[0], size)
		if err != nil {
			return 0, false, 0, err
		}
		sp := m.mask(m.regs[spSlot]-uint64(size), m.wordSize())
		m.regs[spSlot] = sp
		if sp < m.low {
			m.low = sp
		}
		m.pushes++
		if err := m.store(in, sp, size, v); err != nil {
			return 0, false, 0, err
		}

	case "mov":
		size := m.operandSize(in)
		v, err := m.read(in, in.args[0], size)
		if err != nil {
			return 0, false, 0, err
		}
		if err := m.write(in, in.args[1], size, v); err != nil {
			return 0, false, 0, err
		}

	case "add", "sub", "cmp":
		size := m.operandSize(in)
		src, err := m.read(in, in.args[0], size)
		if err != nil {
			return 0, false, 0, err
		}
		dst, err := m.read(in, in.args[1], size)
		if err != nil {
			return 0, false, 0, err
		}
		var res uint64
		if in.op == "add" {
			res = m.mask(dst+src, size)
			m.cf = res < dst
		} else {
			res = m.mask(dst-src, size)
			m.cf = dst < src
		}
		m.zf = res == 0
		if in.op != "cmp" {
			if err := m.write(in, in.args[1], size, res); err != nil {
				return 0, false, 0, err
			}
		}

	case "jmp", "je", "jne", "ja", "jae", "jb", "jbe":
		if m.taken(in.op) {
			next = m.prog.labels[in.args[0].label]
		}

	case "syscall":
		if m.prog.bits != 64 {
			return 0, false, 0, fmt.Errorf("line %d: syscall used in 32-bit mode", in.line)
		}
		return m.linuxCall(in, next, 60, 0, 1, [3]int{7, 6, 2})

	case "int":
		if in.args[0].imm != 0x80 || m.prog.bits != 32 {
			return 0, false, 0, fmt.Errorf("line %d: unsupported interrupt %s", in.line, in.text)
		}
		return m.linuxCall(in, next, 1, 3, 4, [3]int{3, 1, 2})

	default:
		return 0, false, 0, fmt.Errorf("line %d: unsupported instruction %q", in.line, in.text)
	}
	return next, false, 0, nil
}

func (m *Machine) taken(op string) bool {
	switch op {
	case "jmp":
		return true
	case "je":
		return m.zf
	case "jne":
		return !m.zf
	case "ja":
		return !m.cf && !m.zf
	case "jae":
		return !m.cf
	case "jb":
		return m.cf
	case "jbe":
		return m.cf || m.zf
	}
	return false
}

// linuxCall services exit, read and write using the given call numbers and
// argument register slots. The result is stored in the accumulator.
func (m *Machine) linuxCall(in *instr, next, sysExit, sysRead, sysWrite int, argSlots [3]int) (int, bool, int, error) {
	ws := m.wordSize()
	nr := int(m.mask(m.regs[0], ws))
	arg := func(i int) uint64 { return m.mask(m.regs[argSlots[i]], ws) }

	var ret int64
	switch nr {
	case sysExit:
		return 0, true, int(arg(0) & 0xff), nil
	case sysRead:
		n, err := m.sysRead(in, arg(0), arg(1), int(arg(2)))
		if err != nil {
			return 0, false, 0, err
		}
		ret = n
	case sysWrite:
		n, err := m.sysWrite(in, arg(0), arg(1), int(arg(2)))
		if err != nil {
			return 0, false, 0, err
		}
		ret = n
	default:
		return 0, false, 0, fmt.Errorf("line %d: unsupported system call %d", in.line, nr)
	}
	m.setReg(0, ws, uint64(ret))
	return next, false, 0, nil
}

func (m *Machine) sysRead(in *instr, fd, buf uint64, count int) (int64, error) {
	if fd != 0 || count < 0 {
		return -9, nil // EBADF
	}
	if err := m.check(in, buf, count); err != nil {
		return 0, err
	}
	if m.Stdin == nil || count == 0 {
		return 0, nil
	}
	p := make([]byte, count)
	for {
		n, err := m.Stdin.Read(p)
		if n > 0 {
			for i := 0; i < n; i++ {
				m.mem[buf+uint64(i)] = p[i]
			}
			return int64(n), nil
		}
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return -errnoEIO, nil
		}
	}
}

func (m *Machine) sysWrite(in *instr, fd, buf uint64, count int) (int64, error) {
	var w io.Writer
	switch fd {
	case 1:
		w = m.Stdout
	case 2:
		w = m.Stderr
	default:
		return -9, nil // EBADF
	}
	if err := m.check(in, buf, count); err != nil {
		return 0, err
	}
	if w == nil {
		return int64(count), nil
	}
	p := make([]byte, count)
	for i := range p {
		p[i] = m.mem[buf+uint64(i)]
	}
	n, err := w.Write(p)
	if err != nil {
		return -errnoEIO, nil
	}
	return int64(n), nil
}

func (m *Machine) operandSize(in *instr) int {
	if in.size != 0 {
		return in.size
	}
	for _, arg := range in.args {
		if arg.kind == opReg {
			return arg.width
		}
	}
	return m.wordSize()
}

func (m *Machine) read(in *instr, arg operand, size int) (uint64, error) {
	switch arg.kind {
	case opImm:
		return m.mask(uint64(arg.imm), size), nil
	case opReg:
		return m.mask(m.regs[arg.reg], size), nil
	case opMem:
		addr := m.mask(m.regs[arg.reg], m.wordSize())
		if err := m.check(in, addr, size); err != nil {
			return 0, err
		}
		var v uint64
		for i := size - 1; i >= 0; i-- {
			v = v<<8 | uint64(m.mem[addr+uint64(i)])
		}
		return v, nil
	}
	return 0, fmt.Errorf("line %d: operand cannot be read (%s)", in.line, in.text)
}

func (m *Machine) write(in *instr, arg operand, size int, v uint64) error {
	switch arg.kind {
	case opReg:
		m.setReg(arg.reg, size, v)
		return nil
	case opMem:
		return m.store(in, m.mask(m.regs[arg.reg], m.wordSize()), size, v)
	}
	return fmt.Errorf("line %d: operand cannot be written (%s)", in.line, in.text)
}

func (m *Machine) store(in *instr, addr uint64, size int, v uint64) error {
	if err := m.check(in, addr, size); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		m.mem[addr+uint64(i)] = byte(v >> (8 * i))
	}
	return nil
}

// setReg writes the low size bytes of a register. 32-bit writes clear the
// upper half, 16-bit writes preserve it.
func (m *Machine) setReg(slot, size int, v uint64) {
	switch size {
	case 2:
		m.regs[slot] = m.regs[slot]&^0xffff | v&0xffff
	case 4:
		m.regs[slot] = v & 0xffffffff
	default:
		m.regs[slot] = v
	}
}

func (m *Machine) check(in *instr, addr uint64, size int) error {
	if addr < m.low || addr+uint64(size) > stackTop || addr+uint64(size) < addr {
		return &Fault{Line: in.line, Instr: in.text, Addr: addr, Size: size}
	}
	return nil
}

func (m *Machine) mask(v uint64, size int) uint64 {
	if size >= 8 {
		return v
	}
	return v & (1<<(8*uint(size)) - 1)
}

// Run loads src for the given word width and executes it with the supplied
// streams.
func Run(ctx context.Context, src string, bits int, stdin io.Reader, stdout io.Writer) (*Result, error) {
	p, err := Load(src, bits)
	if err != nil {
		return nil, err
	}
	m := NewMachine(p)
	m.Stdin = stdin
	m.Stdout = stdout
	return m.Run(ctx)
}
