package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkDiagnostics string

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a program for syntax errors",
	Long:  "Parse a program and report every syntax error without generating code",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkDiagnostics, "diagnostics", diagHuman, "Diagnostics format: human, json, sarif")
}

func runCheck(cmd *cobra.Command, args []string) error {
	src, _, err := loadTree(cmd, args[0], checkDiagnostics)
	if err != nil {
		return err
	}

	// Machine-readable formats always produce a document, even when empty.
	if checkDiagnostics != diagHuman {
		return writeDiagnostics(cmd.OutOrStdout(), checkDiagnostics, nil, src)
	}
	if !quiet {
		s := newStyles(!color.NoColor)
		fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", s.success.Sprintf("%s:", args[0]))
	}
	return nil
}
