// Package main provides the MCP entry point for the NMIBC risk server.
// It needs no external services: responses are cached in memory and feedback lives in SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nmibc-risk-mcp/internal/config"
	"github.com/nmibc-risk-mcp/internal/mcp"
	"github.com/nmibc-risk-mcp/internal/setup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "nmibc-mcp",
		Short:        "MCP server for NMIBC risk classification and BCG maintenance schedules",
		Version:      mcp.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(setup.NewCommand())
	return root
}

func serve(parent context.Context) error {
	cfg := config.LoadLiteConfig()

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
