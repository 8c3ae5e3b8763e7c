package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/tools"
)

// NewServer builds the MCP server exposing browser tools over stdio.
// Every tool call funnels through the registry, so MCP callers get the
// same validation and counters as HTTP callers.
func NewServer(version string, registry *tools.Registry, conn *bridge.Manager) *server.MCPServer {
	srv := server.NewMCPServer(
		"tabbridge",
		version,
		server.WithToolCapabilities(true),
	)
	registerBrowserTools(srv, registry)
	registerStatusTool(srv, conn, registry)
	return srv
}

// ServeStdio runs the MCP server on stdin/stdout until EOF.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func registerBrowserTools(srv *server.MCPServer, registry *tools.Registry) {
	navigate := mcplib.NewTool("browser_navigate",
		mcplib.WithDescription("Navigate the active browser tab to a URL"),
		mcplib.WithString("url", mcplib.Required(), mcplib.Description("Destination URL (http or https)")),
	)
	srv.AddTool(navigate, routeHandler(registry, "/navigate", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"url": url}, nil
	}))

	click := mcplib.NewTool("browser_click",
		mcplib.WithDescription("Click the first element matching a CSS selector"),
		mcplib.WithString("selector", mcplib.Required(), mcplib.Description("CSS selector of the element to click")),
	)
	srv.AddTool(click, routeHandler(registry, "/click", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		selector, err := req.RequireString("selector")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"selector": selector}, nil
	}))

	typeTool := mcplib.NewTool("browser_type",
		mcplib.WithDescription("Type text into the element matching a CSS selector"),
		mcplib.WithString("selector", mcplib.Required(), mcplib.Description("CSS selector of the input element")),
		mcplib.WithString("text", mcplib.Required(), mcplib.Description("Text to type")),
		mcplib.WithBoolean("clear", mcplib.Description("Clear the field before typing")),
	)
	srv.AddTool(typeTool, routeHandler(registry, "/type", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		selector, err := req.RequireString("selector")
		if err != nil {
			return nil, err
		}
		text, err := req.RequireString("text")
		if err != nil {
			return nil, err
		}
		params := map[string]interface{}{"selector": selector, "text": text}
		if clear := req.GetBool("clear", false); clear {
			params["clear"] = clear
		}
		return params, nil
	}))

	wait := mcplib.NewTool("browser_wait",
		mcplib.WithDescription("Wait for an element matching a CSS selector to appear"),
		mcplib.WithString("selector", mcplib.Required(), mcplib.Description("CSS selector to wait for")),
		mcplib.WithNumber("timeout", mcplib.Description("Browser-side wait budget in milliseconds")),
	)
	srv.AddTool(wait, routeHandler(registry, "/wait", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		selector, err := req.RequireString("selector")
		if err != nil {
			return nil, err
		}
		params := map[string]interface{}{"selector": selector}
		if timeout := req.GetFloat("timeout", 0); timeout > 0 {
			params["timeout"] = timeout
		}
		return params, nil
	}))

	evaluate := mcplib.NewTool("browser_evaluate",
		mcplib.WithDescription("Evaluate a JavaScript expression in the page context"),
		mcplib.WithString("script", mcplib.Required(), mcplib.Description("JavaScript expression to evaluate")),
	)
	srv.AddTool(evaluate, routeHandler(registry, "/evaluate", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		script, err := req.RequireString("script")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"script": script}, nil
	}))

	content := mcplib.NewTool("browser_get_content",
		mcplib.WithDescription("Extract text content from the current page"),
		mcplib.WithString("selector", mcplib.Description("Restrict extraction to this CSS selector")),
		mcplib.WithNumber("maxLength", mcplib.Description("Truncate content at this many bytes")),
	)
	srv.AddTool(content, routeHandler(registry, "/get-content", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		params := map[string]interface{}{}
		if selector := req.GetString("selector", ""); selector != "" {
			params["selector"] = selector
		}
		if maxLength := req.GetFloat("maxLength", 0); maxLength > 0 {
			params["maxLength"] = maxLength
		}
		return params, nil
	}))

	screenshot := mcplib.NewTool("browser_screenshot",
		mcplib.WithDescription("Capture a screenshot and save it to disk"),
		mcplib.WithString("selector", mcplib.Description("Capture only the element matching this selector")),
		mcplib.WithBoolean("fullPage", mcplib.Description("Capture the full scrollable page")),
	)
	srv.AddTool(screenshot, routeHandler(registry, "/capture-screenshot", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		params := map[string]interface{}{}
		if selector := req.GetString("selector", ""); selector != "" {
			params["selector"] = selector
		}
		if fullPage := req.GetBool("fullPage", false); fullPage {
			params["fullPage"] = fullPage
		}
		return params, nil
	}))

	audit := mcplib.NewTool("browser_audit",
		mcplib.WithDescription("Run a performance and accessibility audit on the current page"),
		mcplib.WithString("url", mcplib.Description("Audit this URL instead of the current page")),
		mcplib.WithString("category", mcplib.Description("Restrict the audit to one category")),
	)
	srv.AddTool(audit, routeHandler(registry, "/audit", func(req mcplib.CallToolRequest) (map[string]interface{}, error) {
		params := map[string]interface{}{}
		if url := req.GetString("url", ""); url != "" {
			params["url"] = url
		}
		if category := req.GetString("category", ""); category != "" {
			params["category"] = category
		}
		return params, nil
	}))

	consoleLogs := mcplib.NewTool("browser_console_logs",
		mcplib.WithDescription("Read buffered console log entries from the page"),
		mcplib.WithString("level", mcplib.Description("Only entries at this level: log, info, warn, error")),
		mcplib.WithNumber("limit", mcplib.Description("Return at most this many newest entries")),
		mcplib.WithString("contains", mcplib.Description("Only entries whose message contains this substring")),
		mcplib.WithString("pattern", mcplib.Description("Only entries whose message matches this regular expression")),
	)
	srv.AddTool(consoleLogs, routeHandler(registry, "/console-logs", consoleQueryParams))

	consoleErrors := mcplib.NewTool("browser_console_errors",
		mcplib.WithDescription("Read buffered console and network errors from the page"),
		mcplib.WithString("level", mcplib.Description("Only entries at this level")),
		mcplib.WithNumber("limit", mcplib.Description("Return at most this many newest entries")),
		mcplib.WithString("contains", mcplib.Description("Only entries whose message contains this substring")),
		mcplib.WithString("pattern", mcplib.Description("Only entries whose message matches this regular expression")),
	)
	srv.AddTool(consoleErrors, routeHandler(registry, "/console-errors", consoleQueryParams))

	clearConsole := mcplib.NewTool("browser_clear_console",
		mcplib.WithDescription("Clear buffered console logs and errors"),
	)
	srv.AddTool(clearConsole, routeHandler(registry, "/clear-console-logs", func(mcplib.CallToolRequest) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	}))
}

func consoleQueryParams(req mcplib.CallToolRequest) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if level := req.GetString("level", ""); level != "" {
		params["level"] = level
	}
	if limit := req.GetFloat("limit", 0); limit > 0 {
		params["limit"] = limit
	}
	if contains := req.GetString("contains", ""); contains != "" {
		params["contains"] = contains
	}
	if pattern := req.GetString("pattern", ""); pattern != "" {
		params["pattern"] = pattern
	}
	return params, nil
}

// routeHandler adapts a registry endpoint to an MCP tool handler.
func routeHandler(registry *tools.Registry, endpoint string, extract func(mcplib.CallToolRequest) (map[string]interface{}, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		params, err := extract(request)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		result, err := registry.Route(ctx, endpoint, params)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			return mcplib.NewToolResultError(fmt.Sprintf("%s (%s)", result.Error, result.ErrorKind)), nil
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcplib.NewToolResultText(string(encoded)), nil
	}
}

func registerStatusTool(srv *server.MCPServer, conn *bridge.Manager, registry *tools.Registry) {
	status := mcplib.NewTool("bridge_status",
		mcplib.WithDescription("Report extension connection state and registered tools"),
	)
	srv.AddTool(status, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		descriptors := registry.Discover(tools.DiscoverFilter{})
		names := make([]string, 0, len(descriptors))
		for _, d := range descriptors {
			names = append(names, d.Name)
		}
		body := map[string]interface{}{
			"connected":    conn.IsConnected(),
			"state":        conn.State().String(),
			"currentUrl":   conn.CurrentURL(),
			"lastActivity": conn.LastActivity(),
			"tools":        names,
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		return mcplib.NewToolResultText(string(encoded)), nil
	})
}
