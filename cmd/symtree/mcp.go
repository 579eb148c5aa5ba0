package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
	"github.com/lthms/symtree/internal/render"
)

// MCPCmd serves the catalog tools over stdio.
type MCPCmd struct {
	SourceFlags `embed:""`
	ForestFlags `embed:""`
}

// Run blocks until the client disconnects.
func (cmd *MCPCmd) Run(cfg *Config) error {
	src, closeSrc, err := cmd.SourceFlags.open(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	svc := &forestService{src: src, flags: cmd.ForestFlags}
	slog.Debug("starting MCP server", "source", src)
	return newMCPServer(svc).Run(context.Background(), &mcp.StdioTransport{})
}

// forestService builds a fresh forest for every request so that each one
// sees the current registry.
type forestService struct {
	src     catalogSource
	flags   ForestFlags
	metrics *metrics
}

func (s *forestService) forest(ctx context.Context, typ, root string) (*forest.Forest[catalog.Catalog], error) {
	start := time.Now()
	f, err := loadForest(ctx, s.src, s.flags, typ, root)
	s.metrics.observeBuild(start, f, err)
	return f, err
}

func (s *forestService) chain(ctx context.Context, name string) ([]*forest.Node[catalog.Catalog], error) {
	f, err := s.forest(ctx, "", "")
	if err != nil {
		return nil, err
	}
	return f.Chain(name)
}

type forestArgs struct {
	Type string `json:"type,omitempty" jsonschema:"Only include catalogs of this spec type, e.g. asset or config"`
}

type subtreeArgs struct {
	Name string `json:"name" jsonschema:"Name of the catalog at the top of the subtree"`
	Type string `json:"type,omitempty" jsonschema:"Only include catalogs of this spec type"`
}

type chainArgs struct {
	Name string `json:"name" jsonschema:"Name of the catalog whose ancestry to return"`
}

// newMCPServer creates an MCP server with the catalog tools registered.
func newMCPServer(svc *forestService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "symtree",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_forest",
		Description: "Return every Symphony catalog arranged by parent. Returns a JSON array of root nodes {name, parentName, label, kind, type, children}.",
	}, svc.handleForest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_subtree",
		Description: "Return the catalog with the given name and everything nested below it, as a JSON tree.",
	}, svc.handleSubtree)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_chain",
		Description: "Return the path from the root catalog down to the named catalog, as a JSON array. Useful to resolve inherited configuration.",
	}, svc.handleChain)

	return server
}

func (s *forestService) handleForest(ctx context.Context, req *mcp.CallToolRequest, args forestArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("catalog_forest called", "type", args.Type)
	f, err := s.forest(ctx, args.Type, "")
	if err != nil {
		return nil, nil, fmt.Errorf("build forest: %w", err)
	}
	return jsonResult(render.Tree(f.Roots()))
}

func (s *forestService) handleSubtree(ctx context.Context, req *mcp.CallToolRequest, args subtreeArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("catalog_subtree called", "name", args.Name, "type", args.Type)
	if args.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	f, err := s.forest(ctx, args.Type, args.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("build subtree: %w", err)
	}
	return jsonResult(render.Tree(f.Roots()))
}

func (s *forestService) handleChain(ctx context.Context, req *mcp.CallToolRequest, args chainArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("catalog_chain called", "name", args.Name)
	if args.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	nodes, err := s.chain(ctx, args.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve chain: %w", err)
	}
	return jsonResult(render.List(nodes))
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
