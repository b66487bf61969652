package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/guillermoBallester/strata/internal/adapter/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the profiler as MCP tools",
		Long: `Serve the list_sources, list_tables, profile_table and profile_database
tools over MCP. The stdio transport is the default; the HTTP transport
requires a bearer token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), c)
		},
	}
	cmd.Flags().String("transport", "", `MCP transport: "stdio" or "http"`)
	cmd.Flags().String("http-addr", "", "listen address for the HTTP transport")
	cmd.Flags().String("http-bearer-token", "", "bearer token required by the HTTP transport")
	cmd.Flags().BoolVar(&c.writeReports, "write-reports", false, "write reports for every profile_database call")
	return cmd
}

func runServe(ctx context.Context, c *cli) error {
	logger := newLogger(c.cfg)
	a, err := buildApp(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	deps := mcp.Deps{Profiler: a.analyzer, Sources: c.cfg.Sources}
	if c.writeReports {
		deps.Reports = a.reports
	}
	s := mcp.NewServer(version, deps, logger, a.tracer, a.inst)

	logger.Info("starting strata",
		slog.String("version", version),
		slog.String("transport", c.cfg.Transport),
		slog.Int("sources", len(c.cfg.Sources)),
	)

	switch c.cfg.Transport {
	case "http":
		return serveHTTP(ctx, s, c.cfg.HTTPAddr, c.cfg.HTTPBearerToken, logger)
	default:
		logger.Info("serving MCP over stdio")
		if err := mcpserver.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return generalError("stdio server", err)
		}
		logger.Info("shutdown complete")
		return nil
	}
}

func serveHTTP(ctx context.Context, s *mcpserver.MCPServer, addr, token string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", recoveryMiddleware(bearerAuthMiddleware(mcpserver.NewStreamableHTTPServer(s), token), logger))
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return generalError("http server", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return generalError("http shutdown", err)
	}
	logger.Info("shutdown complete")
	return nil
}
