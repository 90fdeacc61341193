// Package mcp exposes project lookups and analysis as MCP tools.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/analysis"
)

type Server struct {
	service *analysis.Service
	mcp     *sdk.Server
}

func NewServer(service *analysis.Service, version string) *Server {
	s := &Server{
		service: service,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "offsetvalidator",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
