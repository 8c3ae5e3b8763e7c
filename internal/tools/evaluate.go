package tools

import (
	"context"

	"github.com/standardbeagle/tabbridge/internal/bridge"
)

// EvaluateTool runs a JavaScript expression in the page context.
type EvaluateTool struct {
	browserTool
}

func NewEvaluateTool(conn *bridge.Manager, cfg Config) *EvaluateTool {
	cfg = cfg.withDefaults()
	return &EvaluateTool{newBrowserTool(conn, cfg.DefaultTimeout*3/2, cfg.PingTimeout)}
}

func (t *EvaluateTool) Name() string        { return "evaluate" }
func (t *EvaluateTool) Endpoint() string    { return "/evaluate" }
func (t *EvaluateTool) Category() string    { return "scripting" }
func (t *EvaluateTool) Description() string { return "Evaluate a JavaScript expression in the page" }

func (t *EvaluateTool) Schema() *Schema {
	// Scripts are arbitrary by nature; only the length is bounded.
	return &Schema{Props: map[string]Prop{
		"script": {Type: TypeString, Required: true, MaxLen: 100000, Description: "JavaScript expression to evaluate"},
	}}
}

func (t *EvaluateTool) Capabilities() Capabilities {
	// Scripts may mutate page state, so never retried and never
	// batched with other script runs.
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: false, Batchable: false}
}

func (t *EvaluateTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdEvaluate, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}

	result := fields["result"]
	if unserializable, _ := fields["unserializable"].(bool); unserializable {
		result = "[unserializable result]"
	}
	return Succeed(map[string]interface{}{"result": result})
}
