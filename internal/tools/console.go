package tools

import (
	"context"
	"time"

	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/buffers"
	"github.com/standardbeagle/tabbridge/pkg/filters"
)

// ConsoleLogsTool serves buffered console log entries.
type ConsoleLogsTool struct {
	conn        *bridge.Manager
	agg         *buffers.Aggregator
	flushBudget time.Duration
}

func NewConsoleLogsTool(conn *bridge.Manager, agg *buffers.Aggregator, cfg Config) *ConsoleLogsTool {
	cfg = cfg.withDefaults()
	return &ConsoleLogsTool{conn: conn, agg: agg, flushBudget: cfg.PingTimeout}
}

func (t *ConsoleLogsTool) Name() string        { return "console-logs" }
func (t *ConsoleLogsTool) Endpoint() string    { return "/console-logs" }
func (t *ConsoleLogsTool) Category() string    { return "observability" }
func (t *ConsoleLogsTool) Description() string { return "Read buffered console log entries" }

func (t *ConsoleLogsTool) Schema() *Schema {
	return consoleQuerySchema()
}

func (t *ConsoleLogsTool) Capabilities() Capabilities {
	return Capabilities{Async: false, TimeoutMs: int(t.flushBudget.Milliseconds()), Retryable: true, Batchable: true}
}

func (t *ConsoleLogsTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	query, errs := queryFromParams(params)
	if len(errs) > 0 {
		return Invalid(errs)
	}
	nudgeExtension(ctx, t.conn, t.flushBudget)
	entries := t.agg.ConsoleLogs(query)
	return Succeed(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// ConsoleErrorsTool serves buffered console error and network error
// entries.
type ConsoleErrorsTool struct {
	conn        *bridge.Manager
	agg         *buffers.Aggregator
	flushBudget time.Duration
}

func NewConsoleErrorsTool(conn *bridge.Manager, agg *buffers.Aggregator, cfg Config) *ConsoleErrorsTool {
	cfg = cfg.withDefaults()
	return &ConsoleErrorsTool{conn: conn, agg: agg, flushBudget: cfg.PingTimeout}
}

func (t *ConsoleErrorsTool) Name() string        { return "console-errors" }
func (t *ConsoleErrorsTool) Endpoint() string    { return "/console-errors" }
func (t *ConsoleErrorsTool) Category() string    { return "observability" }
func (t *ConsoleErrorsTool) Description() string { return "Read buffered console and network errors" }

func (t *ConsoleErrorsTool) Schema() *Schema {
	return consoleQuerySchema()
}

func (t *ConsoleErrorsTool) Capabilities() Capabilities {
	return Capabilities{Async: false, TimeoutMs: int(t.flushBudget.Milliseconds()), Retryable: true, Batchable: true}
}

func (t *ConsoleErrorsTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	query, errs := queryFromParams(params)
	if len(errs) > 0 {
		return Invalid(errs)
	}
	nudgeExtension(ctx, t.conn, t.flushBudget)
	consoleErrors := t.agg.ConsoleErrors(query)
	networkErrors := t.agg.NetworkErrors(query)
	return Succeed(map[string]interface{}{
		"consoleErrors": consoleErrors,
		"networkErrors": networkErrors,
		"count":         len(consoleErrors) + len(networkErrors),
	})
}

// ClearConsoleTool drops buffered console entries.
type ClearConsoleTool struct {
	agg *buffers.Aggregator
}

func NewClearConsoleTool(agg *buffers.Aggregator) *ClearConsoleTool {
	return &ClearConsoleTool{agg: agg}
}

func (t *ClearConsoleTool) Name() string        { return "clear-console-logs" }
func (t *ClearConsoleTool) Endpoint() string    { return "/clear-console-logs" }
func (t *ClearConsoleTool) Category() string    { return "observability" }
func (t *ClearConsoleTool) Description() string { return "Clear buffered console logs and errors" }

func (t *ClearConsoleTool) Schema() *Schema {
	return &Schema{}
}

func (t *ClearConsoleTool) Capabilities() Capabilities {
	return Capabilities{Async: false, TimeoutMs: 1000, Retryable: true, Batchable: true}
}

func (t *ClearConsoleTool) Execute(_ context.Context, _ map[string]interface{}) Result {
	t.agg.ClearConsole()
	return Succeed(map[string]interface{}{"cleared": true})
}

func consoleQuerySchema() *Schema {
	return &Schema{Props: map[string]Prop{
		"level":    {Type: TypeString, Enum: []string{"log", "info", "warn", "error"}, Description: "Only entries at this level"},
		"limit":    {Type: TypeNumber, Min: floatPtr(1), Max: floatPtr(1000), Description: "Return at most this many newest entries"},
		"contains": {Type: TypeString, MaxLen: 256, Description: "Only entries whose message contains this substring"},
		"pattern":  {Type: TypeString, MaxLen: 256, Description: "Only entries whose message matches this regular expression"},
	}}
}

func queryFromParams(params map[string]interface{}) (buffers.Query, []FieldError) {
	q := buffers.Query{}
	if level, ok := params["level"].(string); ok {
		q.Level = level
	}
	if limit, ok := params["limit"].(float64); ok {
		q.Limit = int(limit)
	}
	if contains, ok := params["contains"].(string); ok && contains != "" {
		f, err := filters.NewFilter("contains", filters.FilterTypeContains, contains, false)
		if err != nil {
			return q, []FieldError{{Field: "contains", Message: err.Error()}}
		}
		q.Filter = f
	}
	if pattern, ok := params["pattern"].(string); ok && pattern != "" {
		f, err := filters.NewFilter("pattern", filters.FilterTypeRegex, pattern, false)
		if err != nil {
			return q, []FieldError{{Field: "pattern", Message: "invalid regular expression"}}
		}
		q.Filter = f
	}
	return q, nil
}

// nudgeExtension pings the extension so in-flight pushes land before
// the snapshot is taken. Failures are ignored; buffered data is served
// either way, so a stalled extension costs at most the budget.
func nudgeExtension(ctx context.Context, conn *bridge.Manager, budget time.Duration) {
	if conn == nil || !conn.IsConnected() {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	_, _ = conn.SendAndAwait(probeCtx, bridge.CmdPing, nil, budget)
}
