package main

import (
	"bytes"
	"fmt"

	"github.com/praetorian-inc/bfc/pkg/config"
	"github.com/praetorian-inc/bfc/pkg/emulate"
	"github.com/spf13/cobra"
)

var (
	runArch     string
	runMaxSteps int
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Compile a program and execute it on the built-in emulator",
	Long: `Compile a program in memory and execute the generated assembly on the
built-in x86 emulator, with standard input and output connected.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runArch, "arch", "a", config.DefaultArch, "Target architecture: amd64, x86")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", emulate.DefaultMaxSteps, "Maximum instructions to execute (0 for the default)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("arch") {
		cfg.Arch = runArch
	}
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}

	_, tree, err := loadTree(cmd, args[0], diagHuman)
	if err != nil {
		return err
	}

	var listing bytes.Buffer
	if _, err := mode.EmitAsm(&listing, tree); err != nil {
		return fmt.Errorf("generating assembly: %w", err)
	}
	prog, err := emulate.Load(listing.String(), mode.Bits())
	if err != nil {
		return fmt.Errorf("loading generated assembly: %w", err)
	}

	m := emulate.NewMachine(prog)
	m.Stdin = cmd.InOrStdin()
	m.Stdout = cmd.OutOrStdout()
	m.Stderr = cmd.ErrOrStderr()
	m.MaxSteps = runMaxSteps

	res, err := m.Run(commandContext(cmd))
	if verbose && res != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "steps: %d, pushes: %d, stack: %d bytes\n", res.Steps, res.Pushes, res.StackBytes)
	}
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("program exited with status %d", res.ExitCode)
	}
	return nil
}
