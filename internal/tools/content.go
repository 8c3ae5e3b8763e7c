package tools

import (
	"context"
	"unicode/utf8"

	"github.com/standardbeagle/tabbridge/internal/bridge"
)

// ContentTool extracts page content, bounded by a configurable cap so
// a huge DOM cannot blow up the response.
type ContentTool struct {
	browserTool
	maxLength int
}

func NewContentTool(conn *bridge.Manager, cfg Config) *ContentTool {
	cfg = cfg.withDefaults()
	return &ContentTool{
		browserTool: newBrowserTool(conn, cfg.DefaultTimeout*3/2, cfg.PingTimeout),
		maxLength:   cfg.MaxContentLength,
	}
}

func (t *ContentTool) Name() string        { return "get-content" }
func (t *ContentTool) Endpoint() string    { return "/get-content" }
func (t *ContentTool) Category() string    { return "observability" }
func (t *ContentTool) Description() string { return "Extract text content from the current page" }

func (t *ContentTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"selector":  {Type: TypeString, Format: FormatSelector, MaxLen: 1024, Description: "Restrict extraction to this CSS selector"},
		"maxLength": {Type: TypeNumber, Min: floatPtr(1), Max: floatPtr(1000000), Description: "Truncate content at this many bytes"},
	}}
}

func (t *ContentTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: true, Batchable: true}
}

func (t *ContentTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	limit := t.maxLength
	if requested, ok := params["maxLength"].(float64); ok && int(requested) < limit {
		limit = int(requested)
	}

	send := map[string]interface{}{"maxLength": limit}
	if selector, ok := params["selector"].(string); ok && selector != "" {
		send["selector"] = selector
	}

	fields, err := t.await(ctx, bridge.CmdGetContent, send, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}

	content, _ := fields["content"].(string)
	originalLength := len(content)
	if length, ok := fields["originalLength"].(float64); ok {
		originalLength = int(length)
	}
	content, truncated := truncateContent(content, limit)
	if !truncated && originalLength > len(content) {
		truncated = true
	}

	result := Succeed(map[string]interface{}{
		"content": content,
		"url":     fields["url"],
	})
	result.Metadata = map[string]interface{}{
		"truncated":      truncated,
		"originalLength": originalLength,
	}
	return result
}

// truncateContent applies a deterministic byte cap, backing off to the
// nearest rune boundary so the result is always valid UTF-8.
func truncateContent(content string, limit int) (string, bool) {
	if len(content) <= limit {
		return content, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut], true
}
