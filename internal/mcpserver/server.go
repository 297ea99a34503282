// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the exported notebooks to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noteport/internal/apperr"
	"github.com/starford/noteport/internal/pageservice"
)

// ContractURI is the resource URI of the artifact format contract.
const ContractURI = "noteport://artifact-format"

// Server wraps the MCP server with the catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *pageservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"noteport",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List every exported notebook with its id and slug."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List exported pages in notebook order. Returns catalog rows "+
			"(id, title, section_id, modified, content_hash, word_count) and the total count."),
		mcp.WithString("notebook_id", mcp.Description("Optional notebook id to restrict the listing")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Find exported pages whose title matches the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to look for in page titles")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the Markdown artifact of a page, front matter included. "+
			"See get_artifact_contract or the "+ContractURI+" resource for the layout."),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Page id as returned by list_pages")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("get_page_assets",
		mcp.WithDescription("List the binary resources extracted from a page "+
			"(relative path, media type, size, sha256)."),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Page id as returned by list_pages")),
	), s.getPageAssets)

	s.mcp.AddTool(mcp.NewTool("get_artifact_contract",
		mcp.WithDescription("Returns the layout of the export tree and the page artifact format."),
	), s.getArtifactContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Artifact Format Contract",
			mcp.WithResourceDescription("Layout of the export tree and the page artifact format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArtifactFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func notFound(err error, id string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbs, err := s.svc.ListNotebooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nbs)
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbID := req.GetString("notebook_id", "")
	limit := req.GetInt("limit", 50)
	offset := req.GetInt("offset", 0)

	pages, total, err := s.svc.ListPages(ctx, nbID, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"pages": pages, "total": total})
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pages)
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("page_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.ReadArtifact(ctx, id)
	if err != nil {
		return notFound(err, id), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getPageAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("page_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetPage(ctx, id)
	if err != nil {
		return notFound(err, id), nil
	}
	return jsonResult(d.Assets)
}

func (s *Server) getArtifactContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArtifactFormatContract), nil
}

func (s *Server) readArtifactFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     ArtifactFormatContract,
		},
	}, nil
}
