package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpserver "github.com/fyrsmithlabs/thoughtd/internal/http"
	mcpserver "github.com/fyrsmithlabs/thoughtd/internal/mcp"
)

// serveFlags override the http and storage.watch config sections.
type serveFlags struct {
	http  bool
	watch bool
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.http, "http", false, "also serve the read-only inspection API")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "reload histories changed by other processes")
}

func newServeCmd(flags *globalFlags, sf *serveFlags, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdio",
		Long: `Serve the thinking tools and stage prompts over MCP stdio until the client
disconnects or SIGINT/SIGTERM arrives.

Examples:
  # Serve MCP only
  thoughtd serve

  # Serve MCP and the inspection API
  thoughtd serve --http`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, sf, stdin, stdout)
		},
	}
	sf.register(cmd)
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, sf *serveFlags, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if sf.http {
		a.cfg.HTTP.Enabled = true
	}
	if sf.watch {
		a.cfg.Storage.Watch = true
	}
	return serve(ctx, a, transportFor(stdin, stdout))
}

// transportFor uses the process stdio when given it and wraps other
// streams otherwise.
func transportFor(stdin io.Reader, stdout io.Writer) mcp.Transport {
	if stdin == os.Stdin && stdout == os.Stdout {
		return &mcp.StdioTransport{}
	}
	return &mcp.IOTransport{Reader: io.NopCloser(stdin), Writer: nopWriteCloser{stdout}}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// serve runs the MCP session on t, plus the HTTP API and the storage
// watcher when enabled. The first to fail, or the MCP session ending,
// stops the rest.
func serve(ctx context.Context, a *app, t mcp.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv, err := mcpserver.NewServer(&mcpserver.Config{
		Name:    a.cfg.Server.Name,
		Version: a.cfg.Server.Version,
		Logger:  a.logger,
		Meter:   a.tel.Meter(mcpScope),
		Tracer:  a.tel.Tracer(mcpScope),
	}, a.store)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	var api *httpserver.Server
	if a.cfg.HTTP.Enabled {
		if api, err = newHTTPServer(a); err != nil {
			return err
		}
	}

	a.logger.Info(ctx, "starting thoughtd",
		zap.String("version", a.cfg.Server.Version),
		zap.String("storage_dir", a.cfg.Storage.Dir),
		zap.String("project", a.store.DefaultProject()),
		zap.Bool("http", a.cfg.HTTP.Enabled),
		zap.Bool("watch", a.cfg.Storage.Watch))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.RunTransport(gctx, t)
	})

	if api != nil {
		g.Go(api.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout.Duration())
			defer done()
			return api.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Storage.Watch {
		g.Go(func() error {
			return a.store.Watch(gctx)
		})
	}

	err = g.Wait()
	a.logger.Info(context.Background(), "thoughtd stopped")
	return err
}

func newHTTPServer(a *app) (*httpserver.Server, error) {
	api, err := httpserver.NewServer(a.store, a.logger.Underlying().Named("http"), &httpserver.Config{
		Host:      a.cfg.HTTP.Host,
		Port:      a.cfg.HTTP.Port,
		Version:   a.cfg.Server.Version,
		RateLimit: a.cfg.HTTP.RateLimit,
		RateBurst: a.cfg.HTTP.RateBurst,
	},
		httpserver.WithMeter(a.tel.Meter(httpScope)),
		httpserver.WithTelemetryHealth(a.tel.Health),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	return api, nil
}
