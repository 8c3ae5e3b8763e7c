package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/standardbeagle/tabbridge/internal/bridge"
)

// Config carries the tunable budgets tools are built with. Zero values
// fall back to the built-in defaults, so tests can pass Config{}.
type Config struct {
	// DefaultTimeout is the reply budget for a plain navigation;
	// other tools scale their budgets from it (quick interactions
	// shorter, screenshots and audits longer).
	DefaultTimeout   time.Duration
	PingTimeout      time.Duration
	MaxContentLength int
}

func (c Config) withDefaults() Config {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 10 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = 100000
	}
	return c
}

// browserTool is the shared base for tools that talk to the extension.
type browserTool struct {
	conn        *bridge.Manager
	timeout     time.Duration
	pingTimeout time.Duration
}

func newBrowserTool(conn *bridge.Manager, timeout, pingTimeout time.Duration) browserTool {
	return browserTool{conn: conn, timeout: timeout, pingTimeout: pingTimeout}
}

// await sends a command and decodes the reply body into a generic map.
func (b browserTool) await(ctx context.Context, cmdType string, params map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	payload, err := b.conn.SendAndAwait(ctx, cmdType, params, timeout)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, bridge.NewMalformedResponseError(cmdType, err)
	}
	return fields, nil
}

// replyError surfaces an extension-reported failure field, if present.
func replyError(fields map[string]interface{}) error {
	if msg, ok := fields["error"].(string); ok && msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// HealthCheck pings the extension over the live socket.
func (b browserTool) HealthCheck(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return bridge.NewNotConnectedError(bridge.CmdPing)
	}
	_, err := b.conn.SendAndAwait(ctx, bridge.CmdPing, nil, b.pingTimeout)
	return err
}

// NavigateTool drives the active tab to a URL.
type NavigateTool struct {
	browserTool
}

func NewNavigateTool(conn *bridge.Manager, cfg Config) *NavigateTool {
	cfg = cfg.withDefaults()
	return &NavigateTool{newBrowserTool(conn, cfg.DefaultTimeout, cfg.PingTimeout)}
}

func (t *NavigateTool) Name() string        { return "navigate" }
func (t *NavigateTool) Endpoint() string    { return "/navigate" }
func (t *NavigateTool) Category() string    { return "navigation" }
func (t *NavigateTool) Description() string { return "Navigate the active tab to a URL" }

func (t *NavigateTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"url": {Type: TypeString, Required: true, Format: FormatURL, MaxLen: 2048, Description: "Destination URL (http or https)"},
	}}
}

func (t *NavigateTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: true, Batchable: false}
}

func (t *NavigateTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdNavigate, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{
		"url":   fields["url"],
		"title": fields["title"],
	})
}

// ClickTool clicks the first element matching a selector.
type ClickTool struct {
	browserTool
}

func NewClickTool(conn *bridge.Manager, cfg Config) *ClickTool {
	cfg = cfg.withDefaults()
	return &ClickTool{newBrowserTool(conn, cfg.DefaultTimeout/2, cfg.PingTimeout)}
}

func (t *ClickTool) Name() string        { return "click" }
func (t *ClickTool) Endpoint() string    { return "/click" }
func (t *ClickTool) Category() string    { return "interaction" }
func (t *ClickTool) Description() string { return "Click the first element matching a CSS selector" }

func (t *ClickTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"selector": {Type: TypeString, Required: true, Format: FormatSelector, MaxLen: 1024, Description: "CSS selector of the element to click"},
	}}
}

func (t *ClickTool) Capabilities() Capabilities {
	// Clicks are side-effecting, so no automatic retries.
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: false, Batchable: false}
}

func (t *ClickTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdClick, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{"selector": params["selector"]})
}

// TypeTool types text into the element matching a selector.
type TypeTool struct {
	browserTool
}

func NewTypeTool(conn *bridge.Manager, cfg Config) *TypeTool {
	cfg = cfg.withDefaults()
	return &TypeTool{newBrowserTool(conn, cfg.DefaultTimeout/2, cfg.PingTimeout)}
}

func (t *TypeTool) Name() string        { return "type" }
func (t *TypeTool) Endpoint() string    { return "/type" }
func (t *TypeTool) Category() string    { return "interaction" }
func (t *TypeTool) Description() string { return "Type text into the element matching a CSS selector" }

func (t *TypeTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"selector": {Type: TypeString, Required: true, Format: FormatSelector, MaxLen: 1024, Description: "CSS selector of the input element"},
		"text":     {Type: TypeString, Required: true, MaxLen: 10000, Description: "Text to type"},
		"clear":    {Type: TypeBool, Description: "Clear the field before typing"},
	}}
}

func (t *TypeTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: false, Batchable: false}
}

func (t *TypeTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdType, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{"selector": params["selector"]})
}

// WaitTool blocks until a selector appears in the page.
type WaitTool struct {
	browserTool
}

func NewWaitTool(conn *bridge.Manager, cfg Config) *WaitTool {
	cfg = cfg.withDefaults()
	return &WaitTool{newBrowserTool(conn, cfg.DefaultTimeout*3, cfg.PingTimeout)}
}

func (t *WaitTool) Name() string     { return "wait" }
func (t *WaitTool) Endpoint() string { return "/wait" }
func (t *WaitTool) Category() string { return "interaction" }
func (t *WaitTool) Description() string {
	return "Wait for an element matching a CSS selector to appear"
}

func (t *WaitTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"selector": {Type: TypeString, Required: true, Format: FormatSelector, MaxLen: 1024, Description: "CSS selector to wait for"},
		"timeout":  {Type: TypeNumber, Min: floatPtr(0), Max: floatPtr(60000), Description: "Browser-side wait budget in milliseconds"},
	}}
}

func (t *WaitTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: true, Batchable: false}
}

func (t *WaitTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	budget := t.timeout
	// The transport budget must outlive the browser-side wait, or the
	// reply would always lose the race.
	if requested, ok := params["timeout"].(float64); ok {
		browserWait := time.Duration(requested) * time.Millisecond
		if browserWait+time.Second > budget {
			budget = browserWait + time.Second
		}
	}
	fields, err := t.await(ctx, bridge.CmdWait, params, budget)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{
		"selector": params["selector"],
		"found":    fields["found"],
	})
}
