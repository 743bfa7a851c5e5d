package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/thoughtd/internal/analysis"
	mcpserver "github.com/fyrsmithlabs/thoughtd/internal/mcp"
	"github.com/fyrsmithlabs/thoughtd/internal/monitor"
)

// withApp builds the app for one command and releases it afterwards.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return fn(ctx, a)
}

// printStatus reports a successful mutation the way the MCP tools do.
func printStatus(out io.Writer, asJSON bool, message string) error {
	if asJSON {
		return writeJSON(out, mcpserver.StatusOutput{Status: "success", Message: message})
	}
	_, err := fmt.Fprintln(out, message)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize a project's thought history",
		Long: `Summarize a project's thought history.

Examples:
  # Styled summary of the default project
  thoughtd summary

  # JSON summary, as returned by the generate_summary tool
  thoughtd summary --project api --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				all, err := a.store.All(ctx, "")
				if err != nil {
					return err
				}
				res := analysis.Summarize(all)
				if flags.json {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), monitor.RenderSummary(a.store.DefaultProject(), res))
				return err
			})
		},
	}
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export a project's thought history to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.store.Export(ctx, args[0], ""); err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), flags.json, "Session exported to "+args[0])
			})
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace a project's thought history with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.store.Import(ctx, args[0], ""); err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), flags.json, "Session imported from "+args[0])
			})
		},
	}
}

func newClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear a project's thought history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.store.Clear(ctx, ""); err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), flags.json, "Thought history cleared")
			})
		},
	}
}

func newDashboardCmd(flags *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live terminal view of a project's thoughts",
		Long: `Show a live dashboard of a project's thoughts. The view refreshes on an
interval and picks up thoughts recorded by running servers.

Keys: [q] quit  [r] refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return a.store.Watch(gctx)
				})
				g.Go(func() error {
					defer cancel()
					model := monitor.NewModel(a.store, a.store.DefaultProject(), interval)
					_, err := tea.NewProgram(model,
						tea.WithContext(gctx),
						tea.WithInput(cmd.InOrStdin()),
						tea.WithOutput(cmd.OutOrStdout()),
						tea.WithAltScreen(),
					).Run()
					if err != nil && gctx.Err() == nil {
						return fmt.Errorf("dashboard failed: %w", err)
					}
					return nil
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval")
	return cmd
}
