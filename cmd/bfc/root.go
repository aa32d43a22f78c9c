package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/praetorian-inc/bfc/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configPath string
	colorMode  string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "bfc",
	Short: "bfc - compiler for the eight-instruction tape language",
	Long: `bfc compiles tape-language programs to x86 or amd64 assembly and links them
into Linux ELF executables with the system assembler and linker.

Settings are read from .bfc.yaml in the working directory when present.
Flags given on the command line take precedence.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupColor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setupColor applies --color to the fatih/color global.
func setupColor(cmd *cobra.Command, args []string) error {
	switch colorMode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
		// Check if stdout is a TTY and NO_COLOR is not set
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != ""
	default:
		return fmt.Errorf("unknown color mode: %s", colorMode)
	}
	return nil
}

// loadConfig reads --config, or the config file in the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return config.LoadDefault(dir)
}

// commandContext returns the command's context, which is nil when a run
// function is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
