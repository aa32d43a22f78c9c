// Package parser builds the nested instruction tree from a source cursor.
package parser

import (
	"github.com/praetorian-inc/bfc/pkg/cursor"
	"github.com/praetorian-inc/bfc/pkg/stack"
	"github.com/praetorian-inc/bfc/pkg/types"
)

// frame is one in-progress loop scope. The root frame is the program itself.
type frame struct {
	nodes []types.Node
	loc   types.Location
}

// Parse consumes every byte from c and returns the program tree.
//
// Runs of the same pointer or cell operation are coalesced into one counted
// node. Bytes outside the instruction set are ignored. Bracket problems do
// not stop the parse: every one is collected and returned together as
// types.ParseErrors, unmatched closers first in source order followed by
// unclosed openers innermost first.
func Parse(c *cursor.Cursor) ([]types.Node, error) {
	var errs types.ParseErrors
	scopes := stack.New(frame{nodes: []types.Node{}, loc: c.Location()})

	for {
		ch, ok := c.Peek()
		if !ok {
			break
		}

		switch ch {
		case types.LoopStartChar:
			scopes.Push(frame{loc: c.Location()})
			c.Advance()

		case types.LoopEndChar:
			if lp, ok := scopes.Pop(); ok {
				top := scopes.Top()
				top.nodes = append(top.nodes, types.Node{
					Kind:     types.Loop,
					Children: lp.nodes,
					Loc:      lp.loc,
				})
			} else {
				errs = append(errs, types.NewParseError(types.UnmatchedTerminator, c.Location()))
			}
			c.Advance()

		default:
			kind, ok := types.KindOf(ch)
			if !ok {
				c.Advance()
				continue
			}
			node := types.Node{Kind: kind, Loc: c.Location()}
			if kind.Coalesces() {
				node.Count = countRun(c, ch)
			} else {
				c.Advance()
			}
			top := scopes.Top()
			top.nodes = append(top.nodes, node)
		}
	}

	for {
		lp, ok := scopes.Pop()
		if !ok {
			break
		}
		errs = append(errs, types.NewParseError(types.UnterminatedLoop, lp.loc))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return scopes.Root().nodes, nil
}

// ParseBytes parses src as the contents of file.
func ParseBytes(file string, src []byte) ([]types.Node, error) {
	return Parse(cursor.New(file, src))
}

// countRun consumes consecutive copies of ch and returns how many there were.
func countRun(c *cursor.Cursor, ch byte) int {
	n := 0
	for {
		n++
		c.Advance()
		next, ok := c.Peek()
		if !ok || next != ch {
			return n
		}
	}
}
