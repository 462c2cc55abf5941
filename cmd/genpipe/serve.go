package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/mcptools"
	"github.com/dusk-indust/genpipe/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Long: `Starts the HTTP API: start runs, stream their progress as server-sent
events, and fetch artifacts as JSON, Markdown or HTML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.service()
			defer svc.Close()

			if addr == "" {
				addr = a.cfg.ListenAddr()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "genpipe %s listening on %s\n", version, addr)
			return server.New(svc).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func serveMCPCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server exposing the run tools",
		Long: `Serves start_run, get_run, list_runs, list_pipelines and cancel_run as MCP
tools. Uses stdio unless --http is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.service()
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mcptools.NewPipelineMCPServer(svc)
			if httpAddr != "" {
				fmt.Fprintf(os.Stderr, "genpipe MCP server listening on %s\n", httpAddr)
				return mcptools.RunMCPServerHTTP(ctx, srv, httpAddr)
			}
			return mcptools.RunMCPServerStdio(ctx, srv)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
