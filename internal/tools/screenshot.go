package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/screenshot"
)

// ScreenshotTool captures the page and persists the PNG to disk,
// returning the file location rather than inlining image bytes.
type ScreenshotTool struct {
	browserTool
	store *screenshot.Store
}

func NewScreenshotTool(conn *bridge.Manager, store *screenshot.Store, cfg Config) *ScreenshotTool {
	cfg = cfg.withDefaults()
	return &ScreenshotTool{
		browserTool: newBrowserTool(conn, cfg.DefaultTimeout*3, cfg.PingTimeout),
		store:       store,
	}
}

func (t *ScreenshotTool) Name() string        { return "screenshot" }
func (t *ScreenshotTool) Endpoint() string    { return "/capture-screenshot" }
func (t *ScreenshotTool) Category() string    { return "capture" }
func (t *ScreenshotTool) Description() string { return "Capture a screenshot of the current page" }

func (t *ScreenshotTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"selector": {Type: TypeString, Format: FormatSelector, MaxLen: 1024, Description: "Capture only the element matching this selector"},
		"fullPage": {Type: TypeBool, Description: "Capture the full scrollable page"},
	}}
}

func (t *ScreenshotTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: true, Batchable: false}
}

func (t *ScreenshotTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdScreenshot, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}

	encoded, _ := fields["data"].(string)
	// The extension sends a data URL; strip the prefix before decoding.
	if idx := strings.Index(encoded, "base64,"); idx >= 0 {
		encoded = encoded[idx+len("base64,"):]
	}
	if encoded == "" {
		return Fail(bridge.NewMalformedResponseError(bridge.CmdScreenshot, fmt.Errorf("reply missing image data")))
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Fail(bridge.NewMalformedResponseError(bridge.CmdScreenshot, fmt.Errorf("image data is not valid base64: %w", err)))
	}

	path, filename, err := t.store.Save(raw)
	if err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{
		"path":     path,
		"filename": filename,
		"bytes":    len(raw),
	})
}
