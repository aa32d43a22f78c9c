package codegen

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// CountingWriter counts the bytes successfully written through it.
type CountingWriter struct {
	W io.Writer
	N int
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += n
	return n, err
}

// Emit runs emit against w through a buffer and flushes it.
func Emit(w io.Writer, emit EmitFunc) (int, error) {
	bw := bufio.NewWriter(w)
	n, err := emit(bw)
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// WriteFile creates or truncates path and writes the assembly into it.
func WriteFile(path string, emit EmitFunc) (int, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("creating output: %w", err)
	}

	n, err := Emit(f, emit)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("closing %s: %w", path, err)
	}
	return n, nil
}
