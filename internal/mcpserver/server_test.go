package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/hooks"
	"github.com/zcc-dev/zcc/internal/installer"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/starter"
	"github.com/zcc-dev/zcc/internal/workspace"
)

func newDeps(t *testing.T) (Deps, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(t.TempDir(), workspace.ScopeProject)
	files := filereg.Open(ws.FileRegistryPath(), ws.Root)
	inst := installer.New(installer.Config{
		Workspace: ws,
		Files:     files,
		Hooks: hooks.NewManager(hooks.ManagerConfig{
			Root:           ws.Root,
			DefinitionsDir: ws.HookDefinitionsDir(),
			ScriptsDir:     ws.HookScriptsDir(),
		}),
	})
	local, err := source.New(source.LocalConfig(), source.Options{})
	if err != nil {
		t.Fatalf("local source: %v", err)
	}
	m := starter.New(registry.New(nil, local), inst, pack.NewValidator(""), nil)
	return Deps{Manager: m, Files: files, Version: "1.0.0"}, ws
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, tool Tool, args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	return res, resultText(res)
}

func TestDefinitions(t *testing.T) {
	deps, _ := newDeps(t)
	want := []string{"zcc_pack_list", "zcc_pack_search", "zcc_pack_info", "zcc_pack_install", "zcc_status"}
	tools := Tools(deps)
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for i, tool := range tools {
		if got := tool.Definition().Name; got != want[i] {
			t.Errorf("tool %d = %q, want %q", i, got, want[i])
		}
	}

	def := NewInstallTool(deps.Manager).Definition()
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "name" {
		t.Errorf("install required = %v", def.InputSchema.Required)
	}

	if New(deps) == nil {
		t.Fatal("New returned nil")
	}
}

func TestListAndSearch(t *testing.T) {
	deps, _ := newDeps(t)

	res, text := call(t, NewListTool(deps.Manager), nil)
	if res.IsError {
		t.Fatalf("list failed: %s", text)
	}
	for _, name := range []string{"essentials", "frontend", "backend"} {
		if !strings.Contains(text, "**"+name+"**") {
			t.Errorf("list missing %s:\n%s", name, text)
		}
	}

	_, text = call(t, NewListTool(deps.Manager), map[string]interface{}{"installed": true})
	if text != "No packs are installed." {
		t.Errorf("installed list = %q", text)
	}

	_, text = call(t, NewSearchTool(deps.Manager), map[string]interface{}{"query": "frontend"})
	if !strings.Contains(text, "**frontend**") || strings.Contains(text, "**backend**") {
		t.Errorf("search result:\n%s", text)
	}

	res, _ = call(t, NewSearchTool(deps.Manager), map[string]interface{}{})
	if !res.IsError {
		t.Error("search without query should fail")
	}
}

func TestInfo(t *testing.T) {
	deps, _ := newDeps(t)

	_, text := call(t, NewInfoTool(deps.Manager), map[string]interface{}{"name": "frontend"})
	for _, want := range []string{"## frontend 1.0.0", "- **Installed**: no", "- **Dependencies**: essentials", "- **modes**: frontend-engineer"} {
		if !strings.Contains(text, want) {
			t.Errorf("info missing %q:\n%s", want, text)
		}
	}

	res, _ := call(t, NewInfoTool(deps.Manager), map[string]interface{}{"name": "nope"})
	if !res.IsError {
		t.Error("unknown pack should fail")
	}
}

func TestInstallAndStatus(t *testing.T) {
	deps, ws := newDeps(t)

	res, text := call(t, NewInstallTool(deps.Manager), map[string]interface{}{"name": "frontend"})
	if res.IsError {
		t.Fatalf("install failed: %s", text)
	}
	if !strings.Contains(text, "Installed **frontend**") || !strings.Contains(text, "Dependencies installed: essentials") {
		t.Errorf("install output:\n%s", text)
	}

	if err := os.WriteFile(filepath.Join(ws.ModesDir(), "engineer.md"), []byte("edited"), 0644); err != nil {
		t.Fatal(err)
	}

	_, text = call(t, NewStatusTool(deps.Manager, deps.Files), nil)
	for _, want := range []string{"- **essentials** 1.0.0", "- **frontend** 1.0.0", ".zcc/modes/engineer.md (modified, pack essentials)"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}

	res, _ = call(t, NewInstallTool(deps.Manager), map[string]interface{}{"name": "ghost"})
	if !res.IsError {
		t.Error("installing an unknown pack should fail")
	}
}
