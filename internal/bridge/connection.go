package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/standardbeagle/tabbridge/pkg/events"
)

// ConnState is the bridge connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// wsConn is the subset of *websocket.Conn the manager uses. Tests
// substitute an in-memory transport.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

var _ wsConn = (*websocket.Conn)(nil)

// PushHandler receives extension push messages. Handlers run
// synchronously on the read loop, so they see messages in arrival
// order and must not block.
type PushHandler func(eventType events.EventType, fields map[string]interface{})

// Manager owns the single extension connection. At most one socket is
// active; a newly attached socket supersedes the previous one and all
// requests tied to the old socket are rejected. Writes are serialized
// through the manager mutex because gorilla/websocket allows only one
// concurrent writer.
type Manager struct {
	mu           sync.Mutex
	conn         wsConn
	state        ConnState
	gen          int // bumped on every attach, guards against stale reader teardown
	connectedAt  time.Time
	lastActivity time.Time
	currentURL   string

	table  *Table
	bus    *events.EventBus
	logger *log.Logger

	pushMu       sync.RWMutex
	pushHandlers []PushHandler
}

func NewManager(table *Table, bus *events.EventBus, logger *log.Logger) *Manager {
	return &Manager{
		state:  StateDisconnected,
		table:  table,
		bus:    bus,
		logger: logger,
	}
}

// Attach takes ownership of a freshly upgraded socket and starts its
// reader. An existing connection is closed and its pending requests
// rejected, since replies minted for the old socket can never arrive
// on the new one.
func (m *Manager) Attach(conn wsConn) {
	m.mu.Lock()
	old := m.conn
	m.gen++
	gen := m.gen
	m.conn = conn
	m.state = StateConnected
	m.connectedAt = time.Now()
	m.lastActivity = m.connectedAt
	m.mu.Unlock()

	if old != nil {
		m.logger.Warn("superseding existing extension connection")
		old.Close()
		m.table.RejectAll(NewConnectionLostError("", ""))
	}
	m.logger.Info("extension connected")
	m.bus.Publish(events.Event{
		Type: events.ExtensionConnected,
		Data: map[string]interface{}{"connectedAt": m.connectedAt},
	})

	go m.readLoop(conn, gen)
}

// OnPush registers an ordered consumer of push messages. Buffer
// aggregators use this path: the worker-pool bus does not preserve
// arrival order, ring buffers must.
func (m *Manager) OnPush(handler PushHandler) {
	m.pushMu.Lock()
	m.pushHandlers = append(m.pushHandlers, handler)
	m.pushMu.Unlock()
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether an extension socket is active.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// LastActivity returns the time of the last message in either direction.
func (m *Manager) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// CurrentURL returns the last page URL reported by the extension.
func (m *Manager) CurrentURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentURL
}

// Send writes a fire-and-forget command to the extension.
func (m *Manager) Send(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return m.write(cmd.Type, data)
}

// SendAndAwait sends a command with a fresh request id and blocks until
// the matching reply arrives, the timeout elapses, or the connection is
// lost. The returned payload is the raw reply message.
func (m *Manager) SendAndAwait(ctx context.Context, cmdType string, params map[string]interface{}, timeout time.Duration) (json.RawMessage, error) {
	if !m.IsConnected() {
		return nil, NewNotConnectedError(cmdType)
	}

	requestID := uuid.NewString()
	cmd := Command{Type: cmdType, RequestID: requestID, Params: params}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	// Register before writing so a reply cannot race the table entry.
	pending := m.table.Register(requestID, ResponseTypeFor(cmdType), timeout)

	if err := m.write(cmdType, data); err != nil {
		m.table.Reject(requestID, NewConnectionLostError(cmdType, requestID))
		return nil, NewConnectionLostError(cmdType, requestID)
	}
	m.logger.Debug("command sent", "type", cmdType, "requestId", requestID)

	return pending.Wait(ctx)
}

func (m *Manager) write(op string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return NewNotConnectedError(op)
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	m.lastActivity = time.Now()
	return nil
}

// Close shuts down the active connection, rejecting all in-flight
// requests.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
		m.table.RejectAll(NewConnectionLostError("", ""))
	}
}

func (m *Manager) readLoop(conn wsConn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(gen, err)
			return
		}
		m.handleMessage(data)
	}
}

// handleDisconnect tears down state for a dead socket. A stale reader
// from a superseded connection must not touch the replacement, hence
// the generation check.
func (m *Manager) handleDisconnect(gen int, cause error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	m.logger.Info("extension disconnected", "cause", cause)
	rejected := m.table.RejectAll(NewConnectionLostError("", ""))
	m.bus.Publish(events.Event{
		Type: events.ExtensionDisconnected,
		Data: map[string]interface{}{"pendingRejected": rejected},
	})
}

func (m *Manager) handleMessage(data []byte) {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()

	msg, err := DecodeIncoming(data)
	if err != nil {
		m.logger.Warn("dropping undecodable message", "error", err)
		return
	}

	switch msg.Kind {
	case KindConsoleLog:
		m.publishPush(events.ConsoleLog, msg)
	case KindConsoleError:
		m.publishPush(events.ConsoleError, msg)
	case KindNetworkError:
		m.publishPush(events.NetworkError, msg)
	case KindResponse:
		m.handleResponse(msg)
	}
}

func (m *Manager) handleResponse(msg Incoming) {
	if msg.Type == RespNavigateAck {
		m.trackNavigation(msg)
	}
	if msg.RequestID != "" {
		m.table.Resolve(msg.RequestID, msg.Raw)
		return
	}
	// Older extension builds omit the request id. Fall back to FIFO
	// matching within the reply type.
	m.table.ResolveByType(msg.Type, msg.Raw)
}

func (m *Manager) trackNavigation(msg Incoming) {
	fields, err := msg.Fields()
	if err != nil {
		return
	}
	url, ok := fields["url"].(string)
	if !ok || url == "" {
		return
	}
	m.mu.Lock()
	m.currentURL = url
	m.mu.Unlock()
	m.bus.Publish(events.Event{
		Type: events.PageNavigated,
		Data: map[string]interface{}{"url": url},
	})
}

func (m *Manager) publishPush(eventType events.EventType, msg Incoming) {
	fields, err := msg.Fields()
	if err != nil {
		m.logger.Warn("dropping malformed push message", "type", msg.Type, "error", err)
		return
	}

	// Ordered consumers first, synchronously on the read loop.
	m.pushMu.RLock()
	handlers := m.pushHandlers
	m.pushMu.RUnlock()
	for _, handler := range handlers {
		handler(eventType, fields)
	}

	// Order-insensitive subscribers get the event through the pool.
	m.bus.Publish(events.Event{Type: eventType, Data: fields})
}
