package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the zcc MCP server on stdio",
		Long: `Run an MCP server on stdin/stdout that lets the assistant list,
search, inspect and install packs.

Register it with the assistant, for example:
  claude mcp add zcc -- zcc mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}
}

func runMCP() error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	s := mcpserver.New(mcpserver.Deps{
		Manager: a.manager,
		Files:   a.files,
		Version: version,
	})
	return server.ServeStdio(s)
}
