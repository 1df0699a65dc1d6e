package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the corpus tools on an MCP server.
func (s *Store) RegisterMCP(srv *mcp.Server) {
	s.registerSearch(srv)
	s.registerGetSequence(srv)
	s.registerListSequences(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Store) registerSearch(srv *mcp.Server) {
	type req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "corpus_search",
		Description: "Full-text search over OCR'd pages, summaries, and notes",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "FTS5 match expression"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 20)"},
		}, []string{"query"}),
	}

	registerTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		if p.Query == "" {
			return nil, errors.New("query is required")
		}
		results, err := s.Search(ctx, p.Query, p.Limit)
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []SearchResult{}
		}
		return results, nil
	})
}

func (s *Store) registerGetSequence(srv *mcp.Server) {
	type req struct {
		SequenceID string `json:"sequence_id"`
	}

	tool := &mcp.Tool{
		Name:        "corpus_sequence",
		Description: "Fetch one reconstructed sequence with its pages in reading order",
		InputSchema: inputSchema(map[string]any{
			"sequence_id": map[string]any{"type": "string", "description": "Sequence ID"},
		}, []string{"sequence_id"}),
	}

	registerTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		if p.SequenceID == "" {
			return nil, errors.New("sequence_id is required")
		}
		return s.GetSequence(ctx, p.SequenceID)
	})
}

func (s *Store) registerListSequences(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "corpus_list_sequences",
		Description: "List all stored sequence summaries",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	registerTool(srv, tool, func(ctx context.Context, _ *req) (any, error) {
		return s.ListSequences(ctx)
	})
}

// registerTool adapts a typed endpoint onto the MCP tool surface: decode
// arguments, run, marshal the response as a single text content block.
// Endpoint errors come back as tool errors, never protocol errors.
func registerTool[P any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *P) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params P
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := endpoint(ctx, &params)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
