package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/buffers"
	"github.com/standardbeagle/tabbridge/internal/tools"
)

// Server is the HTTP façade over the bridge: tool endpoints for MCP
// callers on one side, the extension websocket on the other.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	conn      *bridge.Manager
	registry  *tools.Registry
	agg       *buffers.Aggregator
	logger    *log.Logger
	host      string
	port      int
	startedAt time.Time
}

func New(host string, port int, conn *bridge.Manager, registry *tools.Registry, agg *buffers.Aggregator, logger *log.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The extension connects from an extension origin, which
			// never matches the host.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conn:      conn,
		registry:  registry,
		agg:       agg,
		logger:    logger,
		host:      host,
		port:      port,
		startedAt: time.Now(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Handler: corsMiddleware(s.router),
	}
	return s
}

func (s *Server) setupRoutes() {
	// Extension side
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	// Browser command endpoints
	s.router.HandleFunc("/navigate", s.handleTool("/navigate")).Methods("POST")
	s.router.HandleFunc("/click", s.handleTool("/click")).Methods("POST")
	s.router.HandleFunc("/type", s.handleTool("/type")).Methods("POST")
	s.router.HandleFunc("/wait", s.handleTool("/wait")).Methods("POST")
	s.router.HandleFunc("/evaluate", s.handleTool("/evaluate")).Methods("POST")
	s.router.HandleFunc("/capture-screenshot", s.handleTool("/capture-screenshot")).Methods("POST")
	s.router.HandleFunc("/audit", s.handleTool("/audit")).Methods("POST")

	// Observability endpoints
	s.router.HandleFunc("/get-content", s.handleQueryTool("/get-content")).Methods("GET")
	s.router.HandleFunc("/console-logs", s.handleQueryTool("/console-logs")).Methods("GET")
	s.router.HandleFunc("/console-errors", s.handleQueryTool("/console-errors")).Methods("GET")
	s.router.HandleFunc("/clear-console-logs", s.handleTool("/clear-console-logs")).Methods("POST")

	// Registry and status
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/tools", s.handleListTools).Methods("GET")
	s.router.HandleFunc("/tools/health-check", s.handleHealthCheckAll).Methods("POST")
}

// Start runs the HTTP server until shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server and drops the extension connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.conn.Close()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return corsMiddleware(s.router)
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	s.conn.Attach(conn)
}

// handleTool serves POST endpoints taking a JSON object body. An empty
// body means no parameters.
func (s *Server) handleTool(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]interface{})
		if r.Body != nil {
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"success": false,
					"error":   "request body must be a json object",
				})
				return
			}
		}
		s.route(w, r, endpoint, params)
	}
}

// handleQueryTool serves GET endpoints, lifting query parameters into
// the tool parameter map. Numeric-looking values are passed as numbers
// to match the JSON body convention.
func (s *Server) handleQueryTool(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]interface{})
		for key, values := range r.URL.Query() {
			if len(values) == 0 {
				continue
			}
			value := values[0]
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				params[key] = n
			} else {
				params[key] = value
			}
		}
		s.route(w, r, endpoint, params)
	}
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, endpoint string, params map[string]interface{}) {
	result, err := s.registry.Route(r.Context(), endpoint, params)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, statusForResult(result), result)
}

// statusForResult maps a tool outcome to an HTTP status. Transport
// failures distinguish "never sent" from "sent but unanswered" so
// callers can decide whether a retry risks repeating a side effect.
func statusForResult(result tools.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case "validation":
		return http.StatusBadRequest
	case bridge.ErrKindNotConnected.String():
		return http.StatusServiceUnavailable
	case bridge.ErrKindTimeout.String():
		return http.StatusGatewayTimeout
	case bridge.ErrKindConnectionLost.String(), bridge.ErrKindMalformedResponse.String():
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	logs, consoleErrors, networkErrors := s.agg.Counts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"connected":  s.conn.IsConnected(),
		"currentUrl": s.conn.CurrentURL(),
		"uptimeSec":  int(time.Since(s.startedAt).Seconds()),
		"buffers": map[string]interface{}{
			"consoleLogs":   logs,
			"consoleErrors": consoleErrors,
			"networkErrors": networkErrors,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	filter := tools.DiscoverFilter{
		Category:    r.URL.Query().Get("category"),
		NamePattern: r.URL.Query().Get("name"),
	}
	if v := r.URL.Query().Get("healthy"); v != "" {
		b := v == "true"
		filter.Healthy = &b
	}
	if v := r.URL.Query().Get("retryable"); v != "" {
		b := v == "true"
		filter.Retryable = &b
	}
	if v := r.URL.Query().Get("batchable"); v != "" {
		b := v == "true"
		filter.Batchable = &b
	}
	descriptors := s.registry.Discover(filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": descriptors,
		"count": len(descriptors),
	})
}

func (s *Server) handleHealthCheckAll(w http.ResponseWriter, r *http.Request) {
	results := s.registry.HealthCheckAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// corsMiddleware allows calls from local tooling regardless of origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
