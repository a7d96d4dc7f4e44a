package main

import (
	"context"

	"github.com/spf13/cobra"

	"storyloom/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer index.Close(ctx)

	server := mcp.NewServer(st, index, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
