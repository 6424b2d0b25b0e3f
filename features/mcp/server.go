package mcp

import (
	"context"
	"net/http"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"devwell/backend/features/library"
	"devwell/backend/internal/retrieval"
)

const Version = "1.0.0"

// Library is the part of the library service exposed to MCP clients.
type Library interface {
	Search(ctx context.Context, query string, limit int) []retrieval.Result
	List(ctx context.Context) []library.Summary
	Get(ctx context.Context, id string) (library.Summary, error)
}

type Server struct {
	library Library
	server  *gomcp.Server
}

func NewServer(lib Library) *Server {
	s := &Server{
		library: lib,
		server:  gomcp.NewServer(&gomcp.Implementation{Name: "devwell-library", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// Handler serves the MCP streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return gomcp.NewStreamableHTTPHandler(func(_ *http.Request) *gomcp.Server {
		return s.server
	}, nil)
}
