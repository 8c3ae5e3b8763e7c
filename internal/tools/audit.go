package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/standardbeagle/tabbridge/internal/bridge"
)

// AuditTool runs a performance and accessibility audit on the current
// page. The reply must carry a structured report; some extension-side
// failure modes return an HTML error page in the report slot, which is
// surfaced as a malformed-response failure instead of passed through.
type AuditTool struct {
	browserTool
}

func NewAuditTool(conn *bridge.Manager, cfg Config) *AuditTool {
	cfg = cfg.withDefaults()
	return &AuditTool{newBrowserTool(conn, cfg.DefaultTimeout*9/2, cfg.PingTimeout)}
}

func (t *AuditTool) Name() string        { return "audit" }
func (t *AuditTool) Endpoint() string    { return "/audit" }
func (t *AuditTool) Category() string    { return "observability" }
func (t *AuditTool) Description() string { return "Run a performance and accessibility audit" }

func (t *AuditTool) Schema() *Schema {
	return &Schema{Props: map[string]Prop{
		"url": {Type: TypeString, Format: FormatURL, MaxLen: 2048, Description: "Audit this URL instead of the current page"},
		"category": {Type: TypeString, Enum: []string{"performance", "accessibility", "best-practices", "seo"},
			Description: "Restrict the audit to one category"},
	}}
}

func (t *AuditTool) Capabilities() Capabilities {
	return Capabilities{Async: true, TimeoutMs: int(t.timeout.Milliseconds()), Retryable: true, Batchable: false}
}

func (t *AuditTool) Execute(ctx context.Context, params map[string]interface{}) Result {
	fields, err := t.await(ctx, bridge.CmdAudit, params, t.timeout)
	if err != nil {
		return Fail(err)
	}
	if err := replyError(fields); err != nil {
		return Fail(err)
	}

	report, err := extractReport(fields)
	if err != nil {
		return Fail(err)
	}
	return Succeed(map[string]interface{}{"report": report})
}

func extractReport(fields map[string]interface{}) (map[string]interface{}, error) {
	raw, present := fields["report"]
	if !present {
		return nil, bridge.NewMalformedResponseError(bridge.CmdAudit, fmt.Errorf("reply missing report"))
	}
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "<") {
			return nil, bridge.NewMalformedResponseError(bridge.CmdAudit, fmt.Errorf("report is an html page, not json"))
		}
		return nil, bridge.NewMalformedResponseError(bridge.CmdAudit, fmt.Errorf("report is a bare string, expected object"))
	default:
		return nil, bridge.NewMalformedResponseError(bridge.CmdAudit, fmt.Errorf("report has unexpected type %T", raw))
	}
}
