// Package mcp exposes the world store to MCP clients as read-only tools.
// Mutation stays with the engine; an attached client can inspect the
// story, never steer it.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storyloom/internal/search"
	"storyloom/internal/store"
)

type Server struct {
	store store.Store
	index search.Index
	mcp   *sdk.Server
}

func NewServer(st store.Store, index search.Index, version string) *Server {
	s := &Server{
		store: st,
		index: index,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storyloom",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
