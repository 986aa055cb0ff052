package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/nutrimatch/pkg/kit"
	"github.com/hazyhaar/nutrimatch/pkg/lookup"
)

// RegisterMCPTools registers the three nutrimatch MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *lookup.Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	eps := newEndpoints(svc, logger)

	kit.RegisterMCPTool(srv, mcp.NewTool("resolve_label",
		mcp.WithDescription("Resolve a Korean or English food label to catalog nutrition (per 100 g and per serving)."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Food label, e.g. bibimbap or 김치찌개")),
	), eps.resolve, decodeLabel(func(l string) any { return &resolveReq{Label: l} }))

	kit.RegisterMCPTool(srv, mcp.NewTool("estimate_average",
		mcp.WithDescription("Average per-100 g macros over catalog rows whose name matches the label."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Food label")),
	), eps.estimate, decodeLabel(func(l string) any { return &estimateReq{Label: l} }))

	kit.RegisterMCPTool(srv, mcp.NewTool("analyze_predictions",
		mcp.WithDescription("Resolve classifier predictions and decide whether the meal can be saved without confirmation."),
		mcp.WithString("predictions", mcp.Required(),
			mcp.Description(`JSON array of {"label": string, "score": 0..1}, best first`)),
	), eps.analyze, decodePredictions)
}

func decodeLabel(build func(string) any) func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		label, _ := req.GetArguments()["label"].(string)
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("label is required")
		}
		return &kit.MCPDecodeResult{Request: build(label)}, nil
	}
}

func decodePredictions(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	raw, _ := req.GetArguments()["predictions"].(string)
	var preds []lookup.Prediction
	if err := json.Unmarshal([]byte(raw), &preds); err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}
	return &kit.MCPDecodeResult{Request: &analyzeReq{Predictions: preds}}, nil
}
