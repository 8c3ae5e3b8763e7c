package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type outcome struct {
	payload json.RawMessage
	err     error
}

// Pending is a handle to an in-flight request. Exactly one outcome is
// ever delivered: a reply, a timeout, or a rejection.
type Pending struct {
	RequestID    string
	ResponseType string
	CreatedAt    time.Time
	ch           chan outcome
}

// Wait blocks until the request settles or the context is cancelled.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case out := <-p.ch:
		return out.payload, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type pendingEntry struct {
	pending *Pending
	timer   *time.Timer
}

// Table tracks in-flight requests awaiting replies from the extension.
// Every entry settles exactly once: by id match, by FIFO type match for
// replies without an id, by per-request timeout, or by bulk rejection
// on disconnect. Late settles on an already-resolved id are logged and
// dropped.
type Table struct {
	mu     sync.Mutex
	byID   map[string]*pendingEntry
	byType map[string][]*pendingEntry // FIFO within each reply type
	logger *log.Logger
}

func NewTable(logger *log.Logger) *Table {
	return &Table{
		byID:   make(map[string]*pendingEntry),
		byType: make(map[string][]*pendingEntry),
		logger: logger,
	}
}

// Register records a new pending request and arms its timeout. The
// timer fires independently of any reader goroutine, so a stalled
// caller cannot keep an entry alive past its budget.
func (t *Table) Register(id, responseType string, timeout time.Duration) *Pending {
	p := &Pending{
		RequestID:    id,
		ResponseType: responseType,
		CreatedAt:    time.Now(),
		ch:           make(chan outcome, 1),
	}
	entry := &pendingEntry{pending: p}

	// The timer is armed under the lock, after the entry is indexed. A
	// timer firing immediately blocks on t.mu until registration
	// finishes, so Reject always finds the entry.
	t.mu.Lock()
	t.byID[id] = entry
	t.byType[responseType] = append(t.byType[responseType], entry)
	entry.timer = time.AfterFunc(timeout, func() {
		t.Reject(id, NewTimeoutError(responseType, id, timeout))
	})
	t.mu.Unlock()
	return p
}

// Resolve delivers a reply to the request with the given id. Returns
// false if no such request is pending, which covers duplicate replies
// and replies arriving after timeout.
func (t *Table) Resolve(id string, payload json.RawMessage) bool {
	t.mu.Lock()
	entry, ok := t.byID[id]
	if ok {
		t.removeLocked(entry)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Warn("reply for unknown or already settled request", "requestId", id)
		return false
	}
	entry.pending.ch <- outcome{payload: payload}
	return true
}

// ResolveByType delivers a reply carrying no request id to the oldest
// pending request expecting that reply type.
func (t *Table) ResolveByType(responseType string, payload json.RawMessage) bool {
	t.mu.Lock()
	queue := t.byType[responseType]
	var entry *pendingEntry
	if len(queue) > 0 {
		entry = queue[0]
		t.removeLocked(entry)
	}
	t.mu.Unlock()

	if entry == nil {
		t.logger.Warn("unmatched reply with no pending request of its type", "type", responseType)
		return false
	}
	t.logger.Debug("matched id-less reply by type order", "type", responseType, "requestId", entry.pending.RequestID)
	entry.pending.ch <- outcome{payload: payload}
	return true
}

// Reject fails the request with the given id. No-op if the request
// already settled.
func (t *Table) Reject(id string, err error) bool {
	t.mu.Lock()
	entry, ok := t.byID[id]
	if ok {
		t.removeLocked(entry)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	entry.pending.ch <- outcome{err: err}
	return true
}

// RejectAll fails every pending request, leaving the table empty. Used
// when the extension disconnects and no in-flight reply can arrive.
func (t *Table) RejectAll(err error) int {
	t.mu.Lock()
	entries := make([]*pendingEntry, 0, len(t.byID))
	for _, entry := range t.byID {
		entries = append(entries, entry)
	}
	t.byID = make(map[string]*pendingEntry)
	t.byType = make(map[string][]*pendingEntry)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.timer.Stop()
		entry.pending.ch <- outcome{err: err}
	}
	if len(entries) > 0 {
		t.logger.Info("rejected all pending requests", "count", len(entries))
	}
	return len(entries)
}

// Len returns the number of in-flight requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// removeLocked unlinks an entry from both indexes and stops its timer.
// Caller holds t.mu.
func (t *Table) removeLocked(entry *pendingEntry) {
	entry.timer.Stop()
	delete(t.byID, entry.pending.RequestID)
	queue := t.byType[entry.pending.ResponseType]
	for i, e := range queue {
		if e == entry {
			t.byType[entry.pending.ResponseType] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(t.byType[entry.pending.ResponseType]) == 0 {
		delete(t.byType, entry.pending.ResponseType)
	}
}
