package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/starter"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func writeSummaries(b *strings.Builder, packs []registry.Summary) {
	for _, p := range packs {
		fmt.Fprintf(b, "- **%s** %s (%s): %s\n", p.Name, p.Version, p.SourceID, p.Description)
		if len(p.Dependencies) > 0 {
			fmt.Fprintf(b, "  depends on: %s\n", strings.Join(p.Dependencies, ", "))
		}
	}
}

// ListTool handles zcc_pack_list.
type ListTool struct {
	manager *starter.Manager
}

// NewListTool creates a ListTool.
func NewListTool(m *starter.Manager) *ListTool {
	return &ListTool{manager: m}
}

// Definition returns the MCP tool definition for zcc_pack_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("zcc_pack_list",
		mcp.WithDescription("List starter packs available from every enabled source."),
		mcp.WithBoolean("installed",
			mcp.Description("Only list packs installed in this project"),
		),
	)
}

// Handle processes the zcc_pack_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	if boolArg(req, "installed", false) {
		list, err := t.manager.ListInstalled()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list installed packs: %v", err)), nil
		}
		if len(list) == 0 {
			return mcp.NewToolResultText("No packs are installed."), nil
		}
		fmt.Fprintf(&b, "%d installed packs:\n\n", len(list))
		for _, p := range list {
			fmt.Fprintf(&b, "- **%s** %s (from %s)\n", p.Name, p.Version, p.Source)
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	packs, err := t.manager.Registry().ListPacks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list packs: %v", err)), nil
	}
	if len(packs) == 0 {
		return mcp.NewToolResultText("No packs are available."), nil
	}
	fmt.Fprintf(&b, "%d packs available:\n\n", len(packs))
	writeSummaries(&b, packs)
	return mcp.NewToolResultText(b.String()), nil
}

// SearchTool handles zcc_pack_search.
type SearchTool struct {
	manager *starter.Manager
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(m *starter.Manager) *SearchTool {
	return &SearchTool{manager: m}
}

// Definition returns the MCP tool definition for zcc_pack_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("zcc_pack_search",
		mcp.WithDescription("Search starter packs by name, description or tag."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for"),
		),
		mcp.WithString("category",
			mcp.Description("Only packs in this category"),
		),
	)
}

// Handle processes the zcc_pack_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	packs, err := t.manager.Search(ctx, query, registry.Filter{Category: req.GetString("category", "")})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(packs) == 0 {
		return mcp.NewToolResultText("No packs match your query."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d packs:\n\n", len(packs))
	writeSummaries(&b, packs)
	return mcp.NewToolResultText(b.String()), nil
}

// InfoTool handles zcc_pack_info.
type InfoTool struct {
	manager *starter.Manager
}

// NewInfoTool creates an InfoTool.
func NewInfoTool(m *starter.Manager) *InfoTool {
	return &InfoTool{manager: m}
}

// Definition returns the MCP tool definition for zcc_pack_info.
func (t *InfoTool) Definition() mcp.Tool {
	return mcp.NewTool("zcc_pack_info",
		mcp.WithDescription("Show a pack's components, dependencies and install state."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Pack name"),
		),
	)
}

// Handle processes the zcc_pack_info tool call.
func (t *InfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	info, err := t.manager.Info(ctx, name, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load pack: %v", err)), nil
	}

	m := info.Manifest
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n%s\n\n", m.Name, m.Version, m.Description)
	fmt.Fprintf(&b, "- **Source**: %s\n", info.Source)
	if info.Installed {
		fmt.Fprintf(&b, "- **Installed**: %s\n", info.InstalledVersion)
	} else {
		b.WriteString("- **Installed**: no\n")
	}
	for _, typ := range pack.ComponentTypes {
		refs := m.Components.Of(typ)
		if len(refs) == 0 {
			continue
		}
		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = r.Name
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", typ, strings.Join(names, ", "))
	}
	if len(info.Dependencies.Resolved) > 0 {
		fmt.Fprintf(&b, "- **Dependencies**: %s\n", strings.Join(info.Dependencies.Resolved, ", "))
	}
	for _, p := range info.Dependencies.Problems() {
		fmt.Fprintf(&b, "- **Problem**: %s\n", p)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// InstallTool handles zcc_pack_install.
type InstallTool struct {
	manager *starter.Manager
}

// NewInstallTool creates an InstallTool.
func NewInstallTool(m *starter.Manager) *InstallTool {
	return &InstallTool{manager: m}
}

// Definition returns the MCP tool definition for zcc_pack_install.
func (t *InstallTool) Definition() mcp.Tool {
	return mcp.NewTool("zcc_pack_install",
		mcp.WithDescription("Install a starter pack and its dependencies into this project. "+
			"Post-install commands are reported, never executed."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Pack name"),
		),
		mcp.WithString("source",
			mcp.Description("Preferred source id"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite existing files and ignore ownership conflicts"),
		),
	)
}

// Handle processes the zcc_pack_install tool call.
func (t *InstallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	var deps []string
	res := t.manager.InstallPack(ctx, name, starter.Options{
		Force:  boolArg(req, "force", false),
		Source: req.GetString("source", ""),
		OnResult: func(r *pack.InstallationResult) {
			if r.Success && r.Pack != name {
				deps = append(deps, r.Pack)
			}
		},
	})
	if !res.Success {
		return mcp.NewToolResultError(fmt.Sprintf("failed to install %s:\n- %s", name, strings.Join(res.Errors, "\n- "))), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Installed **%s** (%d components, %d skipped).\n", name, res.Installed.Len(), res.Skipped.Len())
	if len(deps) > 0 {
		fmt.Fprintf(&b, "Dependencies installed: %s\n", strings.Join(deps, ", "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "- warning: %s\n", w)
	}
	if res.PostInstallMessage != "" {
		fmt.Fprintf(&b, "\n%s\n", res.PostInstallMessage)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// StatusTool handles zcc_status.
type StatusTool struct {
	manager *starter.Manager
	files   *filereg.Registry
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(m *starter.Manager, files *filereg.Registry) *StatusTool {
	return &StatusTool{manager: m, files: files}
}

// Definition returns the MCP tool definition for zcc_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("zcc_status",
		mcp.WithDescription("Show installed packs and installed files that were edited or deleted by hand."),
	)
}

// Handle processes the zcc_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := t.manager.ListInstalled()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read installed packs: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("## zcc status\n\n")
	if len(list) == 0 {
		b.WriteString("- **Packs**: none installed\n")
	}
	for _, p := range list {
		fmt.Fprintf(&b, "- **%s** %s\n", p.Name, p.Version)
	}

	if t.files != nil {
		drift := t.files.Verify()
		if len(drift) == 0 {
			b.WriteString("\nNo installed files were modified.\n")
		} else {
			fmt.Fprintf(&b, "\n%d modified files:\n", len(drift))
			for _, d := range drift {
				state := "modified"
				if d.Missing {
					state = "missing"
				}
				fmt.Fprintf(&b, "- %s (%s, pack %s)\n", d.Path, state, d.Pack)
			}
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
