package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/praetorian-inc/bfc/pkg/config"
	"github.com/praetorian-inc/bfc/pkg/x86"
	"github.com/spf13/cobra"
)

var (
	compileArch        string
	compileFormat      string
	compileOutput      string
	compileDiagnostics string
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a program",
	Long:  "Compile a program to assembly text or a linked ELF executable",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileArch, "arch", "a", config.DefaultArch, "Target architecture: amd64, x86")
	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", config.DefaultFormat, "Output format: elf, asm")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", config.DefaultOutput, "Output path")
	compileCmd.Flags().StringVar(&compileDiagnostics, "diagnostics", diagHuman, "Diagnostics format: human, json, sarif")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCompileFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, _ := cfg.Mode()
	format, _ := cfg.OutputFormat()

	_, tree, err := loadTree(cmd, args[0], compileDiagnostics)
	if err != nil {
		return err
	}

	tools := cfg.Tools(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if verbose {
		tools.Verbose = cmd.ErrOrStderr()
	}

	n, err := x86.New(mode, tools).Generate(commandContext(cmd), tree, format, cfg.Output)
	if err != nil {
		return err
	}

	if !quiet {
		s := newStyles(!color.NoColor)
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d bytes of assembly\n", s.success.Sprintf("%s:", cfg.Output), n)
	}
	return nil
}

// applyCompileFlags overrides config values with flags given explicitly.
func applyCompileFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("arch") {
		cfg.Arch = compileArch
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = compileFormat
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = compileOutput
	}
}
