package main

import (
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/bfc/pkg/serve"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as streaming server for editor integration",
	Long: `Run bfc as a long-lived streaming server that accepts check, tree and
compile requests via stdin and writes responses to stdout using NDJSON format.

The process answers requests until stdin closes, a close request arrives,
or SIGTERM is received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGTERM)
	defer stop()

	srv := serve.NewServer(cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
