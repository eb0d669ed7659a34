package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/onnwee/memebot/chat"
)

// MockAPIServer is a test server that routes requests by path to canned handlers.
type MockAPIServer struct {
	*httptest.Server
	mu       sync.Mutex
	Handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockAPIServer creates a new mock upstream API server.
func NewMockAPIServer(t *testing.T) *MockAPIServer {
	t.Helper()
	m := &MockAPIServer{
		Handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.hits[key]++
		handler, ok := m.Handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers a handler for path.
func (m *MockAPIServer) Handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	m.Handlers[path] = h
	m.mu.Unlock()
}

// JSON registers a handler that answers path with body encoded as JSON.
func (m *MockAPIServer) JSON(path string, body any) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	})
}

// Status registers a handler that answers path with an empty body and code.
func (m *MockAPIServer) Status(path string, code int) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

// Hits returns how many requests reached path.
func (m *MockAPIServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// Sent is one message delivered through a FakeTransport.
type Sent struct {
	ChannelID string
	Text      string
}

// FakeTransport is an in-memory chat.Transport that records sends.
type FakeTransport struct {
	Name    string
	SendErr error
	// RunErr makes Run fail immediately.
	RunErr error
	// OnSend runs before a send is recorded.
	OnSend func(channelID, text string)

	mu        sync.Mutex
	sent      []Sent
	connected bool
	handler   chat.Handler
}

// NewFakeTransport returns a connected fake for platform.
func NewFakeTransport(platform string) *FakeTransport {
	return &FakeTransport{Name: platform, connected: true}
}

func (f *FakeTransport) Platform() string { return f.Name }

func (f *FakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected flips the connection flag.
func (f *FakeTransport) SetConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

// Run stores h for Deliver and blocks until ctx is done, or returns RunErr.
func (f *FakeTransport) Run(ctx context.Context, h chat.Handler) error {
	if f.RunErr != nil {
		return f.RunErr
	}
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	<-ctx.Done()
	return nil
}

// Deliver calls the handler registered by Run synchronously.
func (f *FakeTransport) Deliver(ctx context.Context, msg chat.Message) error {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return errors.New("fake transport not running")
	}
	h(ctx, msg)
	return nil
}

func (f *FakeTransport) Send(_ context.Context, channelID, text string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	if f.OnSend != nil {
		f.OnSend(channelID, text)
	}
	f.mu.Lock()
	f.sent = append(f.sent, Sent{ChannelID: channelID, Text: text})
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) ChannelName(channelID string) string { return "#" + channelID }

// Sent returns a copy of every message sent so far.
func (f *FakeTransport) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}
