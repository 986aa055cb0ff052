package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func mcpClient(t *testing.T) *client.Client {
	t.Helper()
	srv := server.NewMCPServer("nutrimatch", "test", server.WithToolCapabilities(false))
	RegisterMCPTools(srv, testService(t), quiet)

	c, err := client.NewInProcessClient(srv)
	if err != nil {
		t.Fatalf("NewInProcessClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, init); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("%s: empty content", name)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s: content %T", name, res.Content[0])
	}
	return text.Text, res.IsError
}

func TestMCPTools(t *testing.T) {
	c := mcpClient(t)

	tools, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools.Tools) != 3 {
		t.Errorf("tools = %d, want 3", len(tools.Tools))
	}

	out, isErr := callTool(t, c, "resolve_label", map[string]any{"label": "bibimbap"})
	if isErr {
		t.Fatalf("resolve_label error: %s", out)
	}
	var e map[string]any
	if err := json.Unmarshal([]byte(out), &e); err != nil || e["label_ko"] != "비빔밥" {
		t.Errorf("resolve_label = %s (%v)", out, err)
	}

	if out, isErr := callTool(t, c, "resolve_label", map[string]any{"label": "zzzz"}); !isErr {
		t.Errorf("resolve_label miss = %s, want error", out)
	}
	if out, isErr := callTool(t, c, "estimate_average", map[string]any{"label": "김치"}); isErr {
		t.Errorf("estimate_average error: %s", out)
	}

	out, isErr = callTool(t, c, "analyze_predictions", map[string]any{
		"predictions": `[{"label":"김치찌개","score":0.9}]`,
	})
	if isErr {
		t.Fatalf("analyze_predictions error: %s", out)
	}
	var a struct {
		Decision struct {
			Verdict string `json:"verdict"`
		} `json:"decision"`
	}
	if err := json.Unmarshal([]byte(out), &a); err != nil || a.Decision.Verdict != "accept" {
		t.Errorf("analyze_predictions = %s (%v)", out, err)
	}

	if _, isErr := callTool(t, c, "analyze_predictions", map[string]any{"predictions": "not json"}); !isErr {
		t.Error("expected error for malformed predictions")
	}
}
