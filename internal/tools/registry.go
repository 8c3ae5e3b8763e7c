package tools

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/standardbeagle/tabbridge/pkg/events"
)

// DuplicateToolError reports a registration collision on name or
// endpoint.
type DuplicateToolError struct {
	Name     string
	Endpoint string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: name=%s endpoint=%s", e.Name, e.Endpoint)
}

// ErrUnknownEndpoint is returned by Route for endpoints no tool claims.
type ErrUnknownEndpoint struct {
	Endpoint string
}

func (e *ErrUnknownEndpoint) Error() string {
	return fmt.Sprintf("no tool registered for endpoint %s", e.Endpoint)
}

// Descriptor is a read-only view of a registered tool plus its runtime
// counters.
type Descriptor struct {
	Name           string       `json:"name"`
	Endpoint       string       `json:"endpoint"`
	Category       string       `json:"category"`
	Description    string       `json:"description"`
	Capabilities   Capabilities `json:"capabilities"`
	Healthy        bool         `json:"healthy"`
	ExecutionCount int64        `json:"executionCount"`
	ErrorCount     int64        `json:"errorCount"`
	LastExecutedAt time.Time    `json:"lastExecutedAt,omitempty"`
}

type registration struct {
	tool           Tool
	healthy        bool
	executionCount int64
	errorCount     int64
	lastExecutedAt time.Time
	// serial guards execution of non-batchable tools.
	serial sync.Mutex
}

// DiscoverFilter narrows a registry listing. Nil pointer fields mean
// no constraint on that capability.
type DiscoverFilter struct {
	Category    string
	NamePattern string
	Healthy     *bool
	Retryable   *bool
	Batchable   *bool
}

// Registry owns every tool, validates calls against their schemas, and
// routes executions while keeping per-tool counters.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*registration
	byEndpoint map[string]*registration
	order      []string

	bus    *events.EventBus
	logger *log.Logger

	// healthBudget bounds each individual probe during HealthCheckAll.
	healthBudget time.Duration
}

func NewRegistry(bus *events.EventBus, logger *log.Logger) *Registry {
	return &Registry{
		byName:       make(map[string]*registration),
		byEndpoint:   make(map[string]*registration),
		bus:          bus,
		logger:       logger,
		healthBudget: 2 * time.Second,
	}
}

// Register adds a tool. Name and endpoint collisions fail registration
// without touching the existing entry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, endpoint := tool.Name(), tool.Endpoint()
	if _, exists := r.byName[name]; exists {
		return &DuplicateToolError{Name: name, Endpoint: endpoint}
	}
	if _, exists := r.byEndpoint[endpoint]; exists {
		return &DuplicateToolError{Name: name, Endpoint: endpoint}
	}

	reg := &registration{tool: tool, healthy: true}
	r.byName[name] = reg
	r.byEndpoint[endpoint] = reg
	r.order = append(r.order, name)
	r.logger.Debug("tool registered", "name", name, "endpoint", endpoint)
	return nil
}

// RegisterReplace registers a tool, displacing any existing
// registration holding its name or endpoint. The replaced tool's
// counters are discarded with it.
func (r *Registry) RegisterReplace(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, endpoint := tool.Name(), tool.Endpoint()
	if existing, ok := r.byName[name]; ok {
		r.removeLocked(existing)
	}
	if existing, ok := r.byEndpoint[endpoint]; ok {
		r.removeLocked(existing)
	}

	reg := &registration{tool: tool, healthy: true}
	r.byName[name] = reg
	r.byEndpoint[endpoint] = reg
	r.order = append(r.order, name)
	r.logger.Info("tool replaced", "name", name, "endpoint", endpoint)
}

// removeLocked unlinks a registration from both indexes and the
// ordering. Caller holds r.mu.
func (r *Registry) removeLocked(reg *registration) {
	name := reg.tool.Name()
	delete(r.byName, name)
	delete(r.byEndpoint, reg.tool.Endpoint())
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// MustRegister panics on registration failure. Wiring errors at startup
// are programmer mistakes, not runtime conditions.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns the descriptor for a tool by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.describeLocked(reg), true
}

// Discover lists registered tools matching the filter, in registration
// order.
func (r *Registry) Discover(filter DiscoverFilter) []Descriptor {
	var namePattern *regexp.Regexp
	if filter.NamePattern != "" {
		p, err := regexp.Compile(filter.NamePattern)
		if err == nil {
			namePattern = p
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		reg := r.byName[name]
		caps := reg.tool.Capabilities()
		if filter.Category != "" && reg.tool.Category() != filter.Category {
			continue
		}
		if namePattern != nil && !namePattern.MatchString(name) {
			continue
		}
		if filter.Healthy != nil && reg.healthy != *filter.Healthy {
			continue
		}
		if filter.Retryable != nil && caps.Retryable != *filter.Retryable {
			continue
		}
		if filter.Batchable != nil && caps.Batchable != *filter.Batchable {
			continue
		}
		out = append(out, r.describeLocked(reg))
	}
	return out
}

// Route validates params and executes the tool owning the endpoint.
// Validation failures return a Result with kind "validation"; only a
// missing endpoint is a structural error.
func (r *Registry) Route(ctx context.Context, endpoint string, params map[string]interface{}) (Result, error) {
	r.mu.RLock()
	reg, ok := r.byEndpoint[endpoint]
	r.mu.RUnlock()
	if !ok {
		return Result{}, &ErrUnknownEndpoint{Endpoint: endpoint}
	}

	tool := reg.tool
	if validation := tool.Schema().Validate(params); !validation.Valid {
		r.logger.Debug("rejected invalid params", "tool", tool.Name(), "errors", len(validation.Errors))
		return Invalid(validation.Errors), nil
	}

	caps := tool.Capabilities()
	if !caps.Batchable {
		// Non-batchable operations on the same tool must not overlap.
		reg.serial.Lock()
		defer reg.serial.Unlock()
	}

	start := time.Now()
	result := tool.Execute(ctx, params)
	duration := time.Since(start)

	if result.Metadata == nil {
		result.Metadata = make(map[string]interface{})
	}
	result.Metadata["durationMs"] = duration.Milliseconds()
	result.Metadata["tool"] = tool.Name()

	r.mu.Lock()
	reg.executionCount++
	reg.lastExecutedAt = start
	if !result.Success {
		reg.errorCount++
	}
	r.mu.Unlock()

	eventType := events.ToolExecuted
	if !result.Success {
		eventType = events.ToolFailed
	}
	r.bus.Publish(events.Event{
		Type: eventType,
		Data: map[string]interface{}{
			"tool":       tool.Name(),
			"durationMs": duration.Milliseconds(),
			"error":      result.Error,
		},
	})
	return result, nil
}

// HealthCheckAll probes every tool that exposes a health check and
// records the outcome. Tools without a checker stay marked healthy.
// A checker that ignores its context cannot stall the sweep; it is
// marked unhealthy once its budget expires and left running.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.RUnlock()

	results := make(map[string]bool, len(names))
	for _, name := range names {
		r.mu.RLock()
		reg := r.byName[name]
		r.mu.RUnlock()
		if reg == nil {
			continue
		}

		healthy := true
		if checker, ok := reg.tool.(HealthChecker); ok {
			probeCtx, cancel := context.WithTimeout(ctx, r.healthBudget)
			done := make(chan error, 1)
			go func() {
				done <- checker.HealthCheck(probeCtx)
			}()
			select {
			case err := <-done:
				if err != nil {
					healthy = false
					r.logger.Warn("tool health check failed", "tool", name, "error", err)
				}
			case <-probeCtx.Done():
				healthy = false
				r.logger.Warn("tool health check timed out", "tool", name)
			}
			cancel()
		}

		r.mu.Lock()
		reg.healthy = healthy
		r.mu.Unlock()
		results[name] = healthy
	}
	return results
}

// describeLocked snapshots a registration. Caller holds at least the
// read lock.
func (r *Registry) describeLocked(reg *registration) Descriptor {
	return Descriptor{
		Name:           reg.tool.Name(),
		Endpoint:       reg.tool.Endpoint(),
		Category:       reg.tool.Category(),
		Description:    reg.tool.Description(),
		Capabilities:   reg.tool.Capabilities(),
		Healthy:        reg.healthy,
		ExecutionCount: reg.executionCount,
		ErrorCount:     reg.errorCount,
		LastExecutedAt: reg.lastExecutedAt,
	}
}
