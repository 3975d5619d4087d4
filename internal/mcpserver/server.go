// Package mcpserver exposes pack operations to assistants over the Model
// Context Protocol. Each tool is a struct with its dependencies injected
// through a constructor, a Definition and a Handle method.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/starter"
)

// Deps are the services the tools operate on.
type Deps struct {
	Manager *starter.Manager
	Files   *filereg.Registry
	Version string
}

// New creates the MCP server with every tool registered.
func New(deps Deps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"zcc",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range Tools(deps) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Tool is one MCP tool.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool, in registration order.
func Tools(deps Deps) []Tool {
	return []Tool{
		NewListTool(deps.Manager),
		NewSearchTool(deps.Manager),
		NewInfoTool(deps.Manager),
		NewInstallTool(deps.Manager),
		NewStatusTool(deps.Manager, deps.Files),
	}
}

const instructions = `zcc manages starter packs of modes, workflows, agents and hooks for this project.
Use zcc_pack_list or zcc_pack_search to find packs, zcc_pack_info to inspect one,
zcc_pack_install to install it with its dependencies and zcc_status to see what is installed
and which installed files were edited by hand.`
