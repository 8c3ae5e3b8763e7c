package buffers

import (
	"time"

	"github.com/standardbeagle/tabbridge/pkg/events"
	"github.com/standardbeagle/tabbridge/pkg/filters"
)

// DefaultCapacity is the per-buffer entry cap when config does not
// override it.
const DefaultCapacity = 1000

// maxMessageLen bounds a single buffered message so one runaway log
// line cannot dominate memory.
const maxMessageLen = 4096

// Entry is a single buffered console or network record pushed by the
// extension.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	URL        string    `json:"url,omitempty"`
	Method     string    `json:"method,omitempty"`
	Status     int       `json:"status,omitempty"`
	StackTrace string    `json:"stackTrace,omitempty"`
}

// Query narrows a buffer read. Zero values mean no constraint.
type Query struct {
	Level  string
	Since  time.Time
	Limit  int
	Filter *filters.Filter
}

// Aggregator buffers extension push messages in bounded rings, one per
// stream, and serves filtered snapshots to readers. It is fed through
// HandlePush on the connection manager's read loop, never through the
// worker-pool bus, so entries keep their arrival order.
type Aggregator struct {
	consoleLogs   *Ring[Entry]
	consoleErrors *Ring[Entry]
	networkErrors *Ring[Entry]
}

func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		consoleLogs:   NewRing[Entry](capacity),
		consoleErrors: NewRing[Entry](capacity),
		networkErrors: NewRing[Entry](capacity),
	}
}

// HandlePush appends one push message to its stream buffer. The caller
// guarantees arrival order; this is the single writer for all three
// rings.
func (a *Aggregator) HandlePush(eventType events.EventType, fields map[string]interface{}) {
	switch eventType {
	case events.ConsoleLog:
		a.consoleLogs.Append(entryFromFields(fields))
	case events.ConsoleError:
		a.consoleErrors.Append(entryFromFields(fields))
	case events.NetworkError:
		a.networkErrors.Append(entryFromFields(fields))
	}
}

func entryFromFields(fields map[string]interface{}) Entry {
	entry := Entry{
		Timestamp:  time.Now(),
		Level:      stringField(fields, "level"),
		Message:    stringField(fields, "message"),
		URL:        stringField(fields, "url"),
		Method:     stringField(fields, "method"),
		StackTrace: stringField(fields, "stackTrace"),
	}
	if entry.Level == "" {
		entry.Level = "log"
	}
	if status, ok := fields["status"].(float64); ok {
		entry.Status = int(status)
	}
	if len(entry.Message) > maxMessageLen {
		entry.Message = entry.Message[:maxMessageLen] + "... [truncated]"
	}
	return entry
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// ConsoleLogs returns buffered console log entries matching the query.
func (a *Aggregator) ConsoleLogs(q Query) []Entry {
	return applyQuery(a.consoleLogs.Snapshot(), q)
}

// ConsoleErrors returns buffered console error entries matching the query.
func (a *Aggregator) ConsoleErrors(q Query) []Entry {
	return applyQuery(a.consoleErrors.Snapshot(), q)
}

// NetworkErrors returns buffered network error entries matching the query.
func (a *Aggregator) NetworkErrors(q Query) []Entry {
	return applyQuery(a.networkErrors.Snapshot(), q)
}

// ClearConsole drops both console streams. Network errors survive since
// they are cleared independently.
func (a *Aggregator) ClearConsole() {
	a.consoleLogs.Clear()
	a.consoleErrors.Clear()
}

// ClearNetwork drops buffered network errors.
func (a *Aggregator) ClearNetwork() {
	a.networkErrors.Clear()
}

// Counts reports the current depth of each buffer.
func (a *Aggregator) Counts() (logs, consoleErrors, networkErrors int) {
	return a.consoleLogs.Len(), a.consoleErrors.Len(), a.networkErrors.Len()
}

func applyQuery(entries []Entry, q Query) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if q.Level != "" && entry.Level != q.Level {
			continue
		}
		if !q.Since.IsZero() && entry.Timestamp.Before(q.Since) {
			continue
		}
		if q.Filter != nil && !q.Filter.Matches(entry.Message) {
			continue
		}
		out = append(out, entry)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		// Newest entries win when the limit bites.
		out = out[len(out)-q.Limit:]
	}
	return out
}
