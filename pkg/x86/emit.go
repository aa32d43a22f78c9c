package x86

import (
	"fmt"
	"io"

	"github.com/praetorian-inc/bfc/pkg/codegen"
	"github.com/praetorian-inc/bfc/pkg/stack"
	"github.com/praetorian-inc/bfc/pkg/types"
)

// Label suffixes, one per emission site kind.
const (
	SuffixLoopStart = "loop_start"
	SuffixLoopEnd   = "loop_end"
	SuffixGrowStart = "grow_start"
	SuffixGrowEnd   = "grow_end"
	SuffixReadEnd   = "read_end"
)

// Label derives a symbol from a source location. No two sites in one source
// share a line and column, so labels never collide within a compilation.
func Label(loc types.Location, suffix string) string {
	return fmt.Sprintf("_at_%d_%d_%s", loc.Line, loc.Column, suffix)
}

// loopContext tracks one loop being emitted.
type loopContext struct {
	nodes []types.Node
	next  int
	start string
	end   string
}

// emitter writes assembly lines and keeps the first write error.
type emitter struct {
	w   *codegen.CountingWriter
	a   *arch
	err error
}

func (e *emitter) ins(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "  "+format+"\n", args...)
}

func (e *emitter) label(name string) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "%s:\n", name)
}

func (e *emitter) syscall(nr int, args ...string) {
	e.ins("mov $%d, %s", nr, e.a.nr)
	for i, arg := range args {
		e.ins("mov %s, %s", arg, e.a.args[i])
	}
	e.ins("%s", e.a.trap)
}

// EmitAsm writes the GNU assembler listing for tree to w and returns the
// number of bytes written.
//
// The tape lives on the machine stack. Cells are 16 bits wide and the tape
// grows toward lower addresses; every forward move extends the real stack
// with zeroed words until it covers the new cell.
func (m Mode) EmitAsm(w io.Writer, tree []types.Node) (int, error) {
	a, err := m.arch()
	if err != nil {
		return 0, err
	}
	e := &emitter{w: &codegen.CountingWriter{W: w}, a: a}

	e.ins(".text")
	e.ins(".globl _start")
	e.label("_start")
	e.ins("%s $0", a.push)
	e.ins("mov %s, %s", a.sp, a.ptr)

	loops := stack.New(loopContext{nodes: tree})
	for e.err == nil {
		top := loops.Top()
		if top.next == len(top.nodes) {
			done, ok := loops.Pop()
			if !ok {
				break
			}
			e.label(done.end)
			e.ins("cmpw $0, (%s)", a.ptr)
			e.ins("jne %s", done.start)
			continue
		}

		node := top.nodes[top.next]
		top.next++

		switch node.Kind {
		case types.Increment:
			e.ins("addw $%d, (%s)", cellImmediate(node.Count), a.ptr)
		case types.Decrement:
			e.ins("subw $%d, (%s)", cellImmediate(node.Count), a.ptr)
		case types.MoveBackward:
			e.ins("add $%d, %s", 2*node.Count, a.ptr)
		case types.MoveForward:
			e.moveForward(node)
		case types.Write:
			e.syscall(a.sysWrite, "$1", a.ptr, "$1")
		case types.Read:
			e.read(node)
		case types.Loop:
			start := Label(node.Loc, SuffixLoopStart)
			end := Label(node.Loc, SuffixLoopEnd)
			e.ins("jmp %s", end)
			e.label(start)
			loops.Push(loopContext{nodes: node.Children, start: start, end: end})
		default:
			return e.w.N, fmt.Errorf("%s: cannot generate code for %s", node.Loc, node.Kind)
		}
	}

	e.syscall(a.sysExit, "$0")
	return e.w.N, e.err
}

// moveForward advances the tape pointer and then pushes zero words until
// the stack pointer is at or below it, so the new cell is backed by mapped
// stack memory before anything dereferences it.
func (e *emitter) moveForward(node types.Node) {
	start := Label(node.Loc, SuffixGrowStart)
	end := Label(node.Loc, SuffixGrowEnd)
	e.ins("sub $%d, %s", 2*node.Count, e.a.ptr)
	e.ins("jmp %s", end)
	e.label(start)
	e.ins("pushw $0")
	e.label(end)
	e.ins("cmp %s, %s", e.a.ptr, e.a.sp)
	e.ins("ja %s", start)
}

// read stores one byte from stdin in the current cell, or -1 when the read
// does not return exactly one byte.
func (e *emitter) read(node types.Node) {
	end := Label(node.Loc, SuffixReadEnd)
	e.ins("movw $0, (%s)", e.a.ptr)
	e.syscall(e.a.sysRead, "$0", e.a.ptr, "$1")
	e.ins("cmp $1, %s", e.a.nr)
	e.ins("je %s", end)
	e.ins("movw $-1, (%s)", e.a.ptr)
	e.label(end)
}

// cellImmediate reduces a repeat count to the 16-bit cell range.
func cellImmediate(n int) int {
	return n & 0xffff
}
