// Thoughtd is a sequential thinking server for MCP clients.
//
// It records numbered thoughts per project, persists them as JSON session
// files, and serves the thinking tools and stage prompts over MCP stdio.
// An optional read-only HTTP API exposes the same histories and Prometheus
// metrics.
//
// Usage:
//
//	# Serve MCP on stdio (default command)
//	thoughtd
//
//	# Serve MCP plus the inspection API on localhost:9091
//	thoughtd serve --http
//
//	# Inspect a project from the shell
//	thoughtd summary --project my_project
//	thoughtd export ~/backup.json --project my_project
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	storageDir string
	project    string
	json       bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	flags := &globalFlags{}
	serve := &serveFlags{}

	root := &cobra.Command{
		Use:   "thoughtd",
		Short: "Sequential thinking server for MCP clients",
		Long: `thoughtd records structured, numbered thoughts per project and serves
the thinking tools and stage prompts over MCP stdio.

Running thoughtd without a subcommand is the same as "thoughtd serve".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, serve, stdin, stdout)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/thoughtd/config.yaml)")
	pf.StringVar(&flags.storageDir, "storage-dir", "", "directory holding session files")
	pf.StringVar(&flags.project, "project", "", "project id (default from config)")
	pf.BoolVar(&flags.json, "json", false, "print machine-readable JSON")

	serve.register(root)

	root.AddCommand(
		newServeCmd(flags, serve, stdin, stdout),
		newSummaryCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newClearCmd(flags),
		newDashboardCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "thoughtd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
