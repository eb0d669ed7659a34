package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/onnwee/memebot/announce"
	"github.com/onnwee/memebot/chat"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/store"
	"github.com/onnwee/memebot/testutil"
)

type fakeAnnouncer struct {
	running bool
	ticks   atomic.Int32
}

func (f *fakeAnnouncer) Running() bool { return f.running }

func (f *fakeAnnouncer) Tick(context.Context) announce.Outcome {
	f.ticks.Add(1)
	return announce.OutcomeAnnounced
}

type fixture struct {
	store     *memes.Store
	transport *testutil.FakeTransport
	announcer *fakeAnnouncer
	handler   http.Handler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st, err := memes.Open(context.Background(), store.NewFileBackend(filepath.Join(t.TempDir(), "bot_data.json")))
	if err != nil {
		t.Fatalf("memes.Open() error: %v", err)
	}
	f := &fixture{
		store:     st,
		transport: testutil.NewFakeTransport(chat.PlatformDiscord),
		announcer: &fakeAnnouncer{running: true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.handler = NewMux(ctx, Deps{Store: st, Transports: chat.NewRegistry(f.transport), Announcer: f.announcer}, opts)
	return f
}

func (f *fixture) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthzOK(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing X-Correlation-ID header")
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodGet, "/healthz", map[string]string{"X-Correlation-ID": "abc-123"})
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("X-Correlation-ID = %q", got)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		running    bool
		wantStatus int
		wantCheck  string
	}{
		{name: "ready", connected: true, running: true, wantStatus: http.StatusOK},
		{name: "no transport", connected: false, running: true, wantStatus: http.StatusServiceUnavailable, wantCheck: "transports"},
		{name: "announcer stopped", connected: true, running: false, wantStatus: http.StatusServiceUnavailable, wantCheck: "announcer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.transport.SetConnected(tt.connected)
			f.announcer.running = tt.running

			rr := f.do(http.MethodGet, "/readyz", nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d, body=%s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if tt.wantCheck == "" && resp["status"] != "ready" {
				t.Errorf("expected status=ready, got %q", resp["status"])
			}
			if tt.wantCheck != "" && resp["failed_check"] != tt.wantCheck {
				t.Errorf("failed_check = %q, want %q", resp["failed_check"], tt.wantCheck)
			}
		})
	}
}

func TestReadyzWithoutStore(t *testing.T) {
	h := NewMux(context.Background(), Deps{}, Options{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), `"store"`) {
		t.Errorf("got %d %s", rr.Code, rr.Body.String())
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	if err := f.store.Add(ctx, "42", "http://x/1"); err != nil {
		t.Fatal(err)
	}
	if err := f.store.AddToCategory(ctx, "space", "http://moon"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.VoteUser(ctx, "42", 3); err != nil {
		t.Fatal(err)
	}

	rr := f.do(http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got statusJSON
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scope != "user" || got.Users != 1 || got.Memes != 1 || got.CategoryMemes != 1 || got.VoteKeys != 1 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if got.Leader == nil || got.Leader.Key != "42" || got.Leader.Votes != 3 || got.Leader.URL != "http://x/1" {
		t.Errorf("leader = %+v", got.Leader)
	}
	if !got.Transports[chat.PlatformDiscord] || !got.AnnouncerRunning {
		t.Errorf("component state = %+v, %v", got.Transports, got.AnnouncerRunning)
	}

	if rr := f.do(http.MethodPost, "/status", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /status = %d", rr.Code)
	}
}

func TestStatusNoLeader(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodGet, "/status", nil)
	if !strings.Contains(rr.Body.String(), `"leader":null`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	f := newFixture(t, Options{AdminToken: "tok", RateLimitPerIP: 10})
	auth := map[string]string{"X-Admin-Token": "tok"}
	ctx := context.Background()
	if err := f.store.Add(ctx, "42", "http://x/1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.VoteUser(ctx, "42", 1); err != nil {
		t.Fatal(err)
	}

	if rr := f.do(http.MethodPost, "/admin/announce", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated announce = %d", rr.Code)
	}
	if rr := f.do(http.MethodGet, "/admin/announce", auth); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET announce = %d", rr.Code)
	}

	rr := f.do(http.MethodPost, "/admin/announce", auth)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), string(announce.OutcomeAnnounced)) {
		t.Errorf("announce = %d %s", rr.Code, rr.Body.String())
	}
	if n := f.announcer.ticks.Load(); n != 1 {
		t.Errorf("ticks = %d, want 1", n)
	}

	rr = f.do(http.MethodPost, "/admin/votes/reset", auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset = %d %s", rr.Code, rr.Body.String())
	}
	if _, ok := f.store.Leader(); ok {
		t.Error("votes not reset")
	}
}

func TestAdminDisabledWithoutCredentials(t *testing.T) {
	f := newFixture(t, Options{})
	if rr := f.do(http.MethodPost, "/admin/votes/reset", map[string]string{"X-Admin-Token": ""}); rr.Code != http.StatusUnauthorized {
		t.Errorf("reset without credentials configured = %d", rr.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, "127.0.0.1:0", Deps{}, Options{}) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
