package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction characters.
const (
	IncrementChar    byte = '+'
	DecrementChar    byte = '-'
	MoveForwardChar  byte = '>'
	MoveBackwardChar byte = '<'
	WriteChar        byte = '.'
	ReadChar         byte = ','
	LoopStartChar    byte = '['
	LoopEndChar      byte = ']'
)

// Kind identifies the operation a Node performs.
type Kind uint8

const (
	Increment Kind = iota + 1
	Decrement
	MoveForward
	MoveBackward
	Write
	Read
	Loop
)

var kindNames = map[Kind]string{
	Increment:    "Increment",
	Decrement:    "Decrement",
	MoveForward:  "MoveForward",
	MoveBackward: "MoveBackward",
	Write:        "Write",
	Read:         "Read",
	Loop:         "Loop",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("decoding kind: %w", err)
	}
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", name)
}

// Char returns the instruction character for k. Loop returns its opening
// bracket.
func (k Kind) Char() byte {
	switch k {
	case Increment:
		return IncrementChar
	case Decrement:
		return DecrementChar
	case MoveForward:
		return MoveForwardChar
	case MoveBackward:
		return MoveBackwardChar
	case Write:
		return WriteChar
	case Read:
		return ReadChar
	case Loop:
		return LoopStartChar
	}
	return 0
}

// Coalesces reports whether consecutive repeats of k fold into one counted node.
func (k Kind) Coalesces() bool {
	switch k {
	case Increment, Decrement, MoveForward, MoveBackward:
		return true
	}
	return false
}

// KindOf maps a single-byte operation to its kind. Loop brackets are
// structural and are not reported here.
func KindOf(b byte) (Kind, bool) {
	switch b {
	case IncrementChar:
		return Increment, true
	case DecrementChar:
		return Decrement, true
	case MoveForwardChar:
		return MoveForward, true
	case MoveBackwardChar:
		return MoveBackward, true
	case WriteChar:
		return Write, true
	case ReadChar:
		return Read, true
	}
	return 0, false
}

// Node is one annotated tree node. Count is set for coalescing kinds,
// Children for Loop. Loc is the position of the node's first byte (the
// opening bracket for a Loop).
type Node struct {
	Kind     Kind     `json:"kind"`
	Count    int      `json:"count,omitempty"`
	Children []Node   `json:"children,omitempty"`
	Loc      Location `json:"loc"`
}

// String renders the node back to instruction characters.
func (n Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n Node) render(b *strings.Builder) {
	switch {
	case n.Kind == Loop:
		b.WriteByte(LoopStartChar)
		for _, child := range n.Children {
			child.render(b)
		}
		b.WriteByte(LoopEndChar)
	case n.Kind.Coalesces():
		for i := 0; i < n.Count; i++ {
			b.WriteByte(n.Kind.Char())
		}
	default:
		b.WriteByte(n.Kind.Char())
	}
}

// Render renders a tree back to its instruction characters. Parsing the
// result yields an equal tree, modulo locations.
func Render(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.render(&b)
	}
	return b.String()
}
