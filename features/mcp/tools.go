package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"devwell/backend/features/library"
	"devwell/backend/internal/retrieval"
)

type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or topic to look up in the personal library"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 3)"`
}

type SearchOutput struct {
	Results []retrieval.Result `json:"results"`
	Count   int                `json:"count"`
}

type ListInput struct {
	Status string `json:"status,omitempty" jsonschema:"only return items in this state: processing, ready or error"`
}

type ItemOutput struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}

type ListOutput struct {
	Items []ItemOutput `json:"items"`
	Count int          `json:"count"`
}

type GetInput struct {
	ID string `json:"id" jsonschema:"the library item id"`
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "search_library",
		Description: "Find passages in the personal library that are semantically similar to a query",
	}, s.handleSearch)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_library",
		Description: "List the files and links in the personal library with their processing state",
	}, s.handleList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_library_item",
		Description: "Show one library item by id",
	}, s.handleGet)
}

func (s *Server) handleSearch(ctx context.Context, _ *gomcp.CallToolRequest, input SearchInput) (*gomcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return errorResult("query is required"), SearchOutput{}, nil
	}
	results := s.library.Search(ctx, input.Query, input.Limit)
	if results == nil {
		results = []retrieval.Result{}
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleList(ctx context.Context, _ *gomcp.CallToolRequest, input ListInput) (*gomcp.CallToolResult, ListOutput, error) {
	switch library.Status(input.Status) {
	case "", library.StatusProcessing, library.StatusReady, library.StatusError:
	default:
		return errorResult(fmt.Sprintf("unknown status %q", input.Status)), ListOutput{}, nil
	}

	out := ListOutput{Items: []ItemOutput{}}
	for _, item := range s.library.List(ctx) {
		if input.Status != "" && string(item.Status) != input.Status {
			continue
		}
		out.Items = append(out.Items, toItemOutput(item))
	}
	out.Count = len(out.Items)
	return nil, out, nil
}

func (s *Server) handleGet(ctx context.Context, _ *gomcp.CallToolRequest, input GetInput) (*gomcp.CallToolResult, ItemOutput, error) {
	item, err := s.library.Get(ctx, input.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting item %s: %s", input.ID, err)), ItemOutput{}, nil
	}
	return nil, toItemOutput(item), nil
}

func toItemOutput(item library.Summary) ItemOutput {
	return ItemOutput{
		ID:         item.ID,
		Type:       string(item.Type),
		Title:      item.Title,
		Status:     string(item.Status),
		ChunkCount: item.ChunkCount,
		Error:      item.ErrorDetail,
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
