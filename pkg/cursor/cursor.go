// Package cursor reads a source buffer one byte at a time while tracking the
// file name, line and column of the current byte.
package cursor

import (
	"fmt"
	"os"

	"github.com/praetorian-inc/bfc/pkg/stack"
	"github.com/praetorian-inc/bfc/pkg/types"
)

// Cursor is a positional reader over a byte slice.
type Cursor struct {
	src  []byte
	pos  int
	file string
	line int
	// One column counter per line entered, so Retreat can step back over
	// a newline and recover the previous line's column.
	cols *stack.Stack[int]
}

// New creates a cursor positioned at the first byte of src.
func New(file string, src []byte) *Cursor {
	return &Cursor{
		src:  src,
		file: file,
		line: 1,
		cols: stack.New(1),
	}
}

// Open reads the whole file at path and returns a cursor over it.
func Open(path string) (*Cursor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", path, err)
	}
	return New(path, data), nil
}

// Peek returns the current byte without consuming it.
func (c *Cursor) Peek() (byte, bool) {
	if c.pos >= len(c.src) {
		return 0, false
	}
	return c.src[c.pos], true
}

// Advance consumes the current byte. It returns false at end of input.
func (c *Cursor) Advance() bool {
	ch, ok := c.Peek()
	if !ok {
		return false
	}
	if ch == '\n' {
		c.line++
		c.cols.Push(1)
	} else {
		*c.cols.Top()++
	}
	c.pos++
	return true
}

// Retreat undoes one Advance. It returns false at the start of input.
func (c *Cursor) Retreat() bool {
	if c.pos == 0 {
		return false
	}
	c.pos--
	if c.src[c.pos] == '\n' {
		c.line--
		c.cols.Pop()
	} else {
		*c.cols.Top()--
	}
	return true
}

// AtEnd reports whether every byte has been consumed.
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.src)
}

// AtStart reports whether no byte has been consumed yet.
func (c *Cursor) AtStart() bool {
	return c.pos == 0
}

// Location returns the position of the current byte.
func (c *Cursor) Location() types.Location {
	return types.Location{
		File:   c.file,
		Line:   c.line,
		Column: *c.cols.Top(),
	}
}
