package alpacastream

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const (
	authorizedFrame = `{"stream":"authorization","data":{"status":"authorized","action":"authenticate"}}`
	listeningFrame  = `{"stream":"listening","data":{"streams":["AM.SPY"]}}`
	barFrame        = `{"stream":"AM.SPY","data":{"ev":"AM","T":"SPY","v":3652,"o":441.2,"c":441.5,"h":441.6,"l":441.1}}`
)

// mockServer is a mock streaming endpoint for testing the client.
type mockServer struct {
	server  *httptest.Server
	conns   []*websocket.Conn
	connsMu sync.Mutex
	handler func(conn *websocket.Conn, msg []byte)
	t       *testing.T

	recvMu   sync.Mutex
	received []map[string]any
	headers  []http.Header
}

var upgrader = websocket.Upgrader{
	Subprotocols: []string{"chat"},
	CheckOrigin:  func(r *http.Request) bool { return true },
}

// newMockServer creates a mock server with a custom frame handler.
func newMockServer(t *testing.T, handler func(conn *websocket.Conn, msg []byte)) *mockServer {
	t.Helper()
	ms := &mockServer{
		handler: handler,
		t:       t,
	}
	ms.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade error: %v", err)
			return
		}
		ms.connsMu.Lock()
		ms.conns = append(ms.conns, conn)
		ms.connsMu.Unlock()

		ms.recvMu.Lock()
		ms.headers = append(ms.headers, r.Header.Clone())
		ms.recvMu.Unlock()

		go func() {
			defer conn.Close()
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var req map[string]any
				if err := json.Unmarshal(msg, &req); err == nil {
					ms.recvMu.Lock()
					ms.received = append(ms.received, req)
					ms.recvMu.Unlock()
				}
				if ms.handler != nil {
					ms.handler(conn, msg)
				}
			}
		}()
	}))
	return ms
}

// newStreamingServer acknowledges authenticate and listen, then pushes one bar.
func newStreamingServer(t *testing.T) *mockServer {
	return newMockServer(t, func(conn *websocket.Conn, msg []byte) {
		switch requestAction(msg) {
		case actionAuthenticate:
			_ = conn.WriteMessage(websocket.TextMessage, []byte(authorizedFrame))
		case actionListen:
			_ = conn.WriteMessage(websocket.TextMessage, []byte(listeningFrame))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(barFrame))
		}
	})
}

// Config returns a plaintext client config pointing at the mock server.
func (ms *mockServer) Config() Config {
	u, err := url.Parse(ms.server.URL)
	if err != nil {
		ms.t.Fatalf("parse server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		ms.t.Fatalf("split host: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.TLS = false
	cfg.KeyID = "key-id"
	cfg.SecretKey = "secret"
	return cfg
}

// Actions returns the action of every frame received so far, in order.
func (ms *mockServer) Actions() []string {
	ms.recvMu.Lock()
	defer ms.recvMu.Unlock()
	actions := make([]string, 0, len(ms.received))
	for _, req := range ms.received {
		action, _ := req["action"].(string)
		actions = append(actions, action)
	}
	return actions
}

// Count returns how many received frames carried action.
func (ms *mockServer) Count(action string) int {
	n := 0
	for _, a := range ms.Actions() {
		if a == action {
			n++
		}
	}
	return n
}

// CloseConns sends a close frame on every open connection.
func (ms *mockServer) CloseConns(code int) {
	ms.connsMu.Lock()
	defer ms.connsMu.Unlock()
	for _, conn := range ms.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, "bye"), time.Now().Add(time.Second))
		conn.Close()
	}
	ms.conns = nil
}

// Close shuts down the mock server.
func (ms *mockServer) Close() {
	ms.connsMu.Lock()
	for _, conn := range ms.conns {
		conn.Close()
	}
	ms.conns = nil
	ms.connsMu.Unlock()
	ms.server.Close()
}

// Headers returns the upgrade request headers of every accepted connection.
func (ms *mockServer) Headers() []http.Header {
	ms.recvMu.Lock()
	defer ms.recvMu.Unlock()
	return append([]http.Header(nil), ms.headers...)
}

func requestAction(msg []byte) string {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return ""
	}
	return req.Action
}

// phaseRecorder collects phase changes from OnStateChange.
type phaseRecorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *phaseRecorder) record(_, newPhase Phase) {
	r.mu.Lock()
	r.phases = append(r.phases, newPhase)
	r.mu.Unlock()
}

func (r *phaseRecorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}
