package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/praetorian-inc/bfc/pkg/parser"
	"github.com/praetorian-inc/bfc/pkg/sarif"
	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/spf13/cobra"
)

// Diagnostic output formats.
const (
	diagHuman = "human"
	diagJSON  = "json"
	diagSARIF = "sarif"
)

// styles holds color formatters for diagnostics and status lines
type styles struct {
	location *color.Color
	severity *color.Color
	message  *color.Color
	caret    *color.Color
	success  *color.Color
}

// newStyles creates color formatters
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		location: color.New(color.Bold),
		severity: color.New(color.Bold, color.FgHiRed),
		message:  color.New(color.Bold, color.FgHiWhite),
		caret:    color.New(color.Bold, color.FgHiGreen),
		success:  color.New(color.FgHiGreen),
	}

	if !enabled {
		s.location.DisableColor()
		s.severity.DisableColor()
		s.message.DisableColor()
		s.caret.DisableColor()
		s.success.DisableColor()
	}

	return s
}

func validDiagnostics(format string) error {
	switch format {
	case diagHuman, diagJSON, diagSARIF:
		return nil
	}
	return fmt.Errorf("unknown diagnostics format: %s", format)
}

// loadTree reads and parses path. Syntax errors are rendered in the given
// diagnostics format before a summary error is returned.
func loadTree(cmd *cobra.Command, path, diagnostics string) ([]byte, []types.Node, error) {
	if err := validDiagnostics(diagnostics); err != nil {
		return nil, nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source %s: %w", path, err)
	}

	tree, err := parser.ParseBytes(path, src)
	var perrs types.ParseErrors
	if errors.As(err, &perrs) {
		w := cmd.ErrOrStderr()
		if diagnostics != diagHuman {
			w = cmd.OutOrStdout()
		}
		if rerr := writeDiagnostics(w, diagnostics, perrs, src); rerr != nil {
			return nil, nil, rerr
		}
		return nil, nil, fmt.Errorf("%s: %d syntax error(s)", path, len(perrs))
	}
	if err != nil {
		return nil, nil, err
	}
	return src, tree, nil
}

func writeDiagnostics(w io.Writer, format string, errs types.ParseErrors, src []byte) error {
	switch format {
	case diagJSON:
		if errs == nil {
			errs = types.ParseErrors{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(errs)
	case diagSARIF:
		data, err := sarif.FromParseErrors(errs, src).ToJSON()
		if err != nil {
			return fmt.Errorf("generating SARIF: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		s := newStyles(!color.NoColor)
		for _, pe := range errs {
			writeHuman(w, s, pe, src)
		}
		return nil
	}
}

// writeHuman prints one error as
//
//	file:line:col: error: message
//	<source line>
//	    ^
func writeHuman(w io.Writer, s *styles, pe *types.ParseError, src []byte) {
	fmt.Fprintf(w, "%s %s %s\n",
		s.location.Sprintf("%s:", pe.Loc),
		s.severity.Sprint("error:"),
		s.message.Sprint(pe.Message))

	line := types.LineText(src, pe.Loc.Line)
	if line == nil {
		return
	}
	fmt.Fprintf(w, "%s\n%s%s\n", line, caretIndent(line, pe.Loc.Column), s.caret.Sprint("^"))
}

// caretIndent lines a caret up under column col, keeping tabs so the
// terminal expands them the same way as in the source line.
func caretIndent(line []byte, col int) string {
	var b strings.Builder
	for i := 0; i < col-1; i++ {
		if i < len(line) && line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
