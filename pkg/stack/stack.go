// Package stack provides a last-in-first-out stack that is never empty.
//
// The bottom element is fixed at construction and can never be popped, which
// lets the parser keep its top-level scope and the backend its top-level
// traversal context in the same structure as nested ones.
package stack

// Stack is a vector-backed LIFO holding at least one element.
type Stack[T any] struct {
	items []T
}

// New creates a stack whose permanent bottom element is root.
func New[T any](root T) *Stack[T] {
	return &Stack[T]{items: []T{root}}
}

// Top returns a pointer to the current top element. The pointer is valid
// until the next Push or Pop.
func (s *Stack[T]) Top() *T {
	return &s.items[len(s.items)-1]
}

// Root returns a pointer to the bottom element.
func (s *Stack[T]) Root() *T {
	return &s.items[0]
}

// Push places v on top of the stack.
func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top element. It refuses, returning false,
// when only the root remains.
func (s *Stack[T]) Pop() (T, bool) {
	if len(s.items) == 1 {
		var zero T
		return zero, false
	}
	last := len(s.items) - 1
	v := s.items[last]
	var zero T
	s.items[last] = zero
	s.items = s.items[:last]
	return v, true
}

// Len returns the number of elements, root included. It is always >= 1.
func (s *Stack[T]) Len() int {
	return len(s.items)
}
