package tools

import (
	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/buffers"
	"github.com/standardbeagle/tabbridge/internal/screenshot"
)

// RegisterDefaults wires the full tool set into a registry. The config
// sets the baseline command budget every tool scales from.
func RegisterDefaults(r *Registry, conn *bridge.Manager, agg *buffers.Aggregator, store *screenshot.Store, cfg Config) error {
	all := []Tool{
		NewNavigateTool(conn, cfg),
		NewClickTool(conn, cfg),
		NewTypeTool(conn, cfg),
		NewWaitTool(conn, cfg),
		NewEvaluateTool(conn, cfg),
		NewContentTool(conn, cfg),
		NewScreenshotTool(conn, store, cfg),
		NewConsoleLogsTool(conn, agg, cfg),
		NewConsoleErrorsTool(conn, agg, cfg),
		NewClearConsoleTool(agg),
		NewAuditTool(conn, cfg),
	}
	for _, tool := range all {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
