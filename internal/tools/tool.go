package tools

import (
	"context"
	"time"

	"github.com/standardbeagle/tabbridge/internal/bridge"
)

// Capabilities advertises how a tool may be driven.
type Capabilities struct {
	Async        bool `json:"async"`
	TimeoutMs    int  `json:"timeoutMs"`
	Retryable    bool `json:"retryable"`
	Batchable    bool `json:"batchable"`
	RequiresAuth bool `json:"requiresAuth"`
}

// Timeout returns the per-execution budget as a duration.
func (c Capabilities) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Result is the uniform outcome of a tool execution.
type Result struct {
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind string                 `json:"errorKind,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Succeed builds a successful result carrying data.
func Succeed(data map[string]interface{}) Result {
	return Result{Success: true, Data: data, Timestamp: time.Now()}
}

// Fail builds a failed result, classifying transport errors so the
// HTTP layer can map them to statuses.
func Fail(err error) Result {
	return Result{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: bridge.Classify(err).String(),
		Timestamp: time.Now(),
	}
}

// Invalid builds a validation failure listing every offending field.
func Invalid(errs []FieldError) Result {
	details := make([]interface{}, 0, len(errs))
	msg := "validation failed"
	for _, fe := range errs {
		details = append(details, map[string]interface{}{
			"field":   fe.Field,
			"message": fe.Message,
		})
	}
	if len(errs) > 0 {
		msg = errs[0].Field + ": " + errs[0].Message
	}
	return Result{
		Success:   false,
		Error:     msg,
		ErrorKind: "validation",
		Metadata:  map[string]interface{}{"validationErrors": details},
		Timestamp: time.Now(),
	}
}

// Tool is a single browser operation exposed over HTTP and MCP.
type Tool interface {
	Name() string
	Endpoint() string
	Category() string
	Description() string
	Schema() *Schema
	Capabilities() Capabilities
	Execute(ctx context.Context, params map[string]interface{}) Result
}

// HealthChecker is implemented by tools that can probe their own
// readiness. Tools without it are assumed healthy.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
