package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/spf13/cobra"
)

var treeFormat string

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Print the parsed instruction tree",
	Long:  "Parse a program and print its instruction tree as indented text, JSON, or instruction source",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeFormat, "format", "text", "Output format: text, json, source")
}

func runTree(cmd *cobra.Command, args []string) error {
	switch treeFormat {
	case "text", "json", "source":
	default:
		return fmt.Errorf("unknown output format: %s", treeFormat)
	}

	_, tree, err := loadTree(cmd, args[0], diagHuman)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch treeFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tree)
	case "source":
		_, err := fmt.Fprintln(out, types.Render(tree))
		return err
	default:
		writeTree(out, tree, 0)
		return nil
	}
}

// writeTree prints one node per line, children indented under their loop.
func writeTree(w io.Writer, nodes []types.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		switch {
		case n.Kind == types.Loop:
			fmt.Fprintf(w, "%s%s %d:%d\n", indent, n.Kind, n.Loc.Line, n.Loc.Column)
			writeTree(w, n.Children, depth+1)
		case n.Kind.Coalesces():
			fmt.Fprintf(w, "%s%s(%d) %d:%d\n", indent, n.Kind, n.Count, n.Loc.Line, n.Loc.Column)
		default:
			fmt.Fprintf(w, "%s%s %d:%d\n", indent, n.Kind, n.Loc.Line, n.Loc.Column)
		}
	}
}
