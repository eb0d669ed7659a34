package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/memebot/announce"
	"github.com/onnwee/memebot/chat"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/telemetry"
)

// Transports reports chat connectivity. *chat.Registry satisfies it.
type Transports interface {
	All() []chat.Transport
	AnyConnected() bool
}

// Announcer is the scheduled leaderboard job.
type Announcer interface {
	Running() bool
	Tick(ctx context.Context) announce.Outcome
}

// Deps are the components the handlers report on. Any may be nil.
type Deps struct {
	Store      *memes.Store
	Transports Transports
	Announcer  Announcer
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type leaderJSON struct {
	Key   string `json:"key"`
	Votes int    `json:"votes"`
	URL   string `json:"url,omitempty"`
}

type statusJSON struct {
	Scope            string          `json:"vote_scope"`
	Users            int             `json:"users"`
	Memes            int             `json:"memes"`
	CategoryMemes    int             `json:"category_memes"`
	VoteKeys         int             `json:"vote_keys"`
	Leader           *leaderJSON     `json:"leader"`
	Transports       map[string]bool `json:"transports"`
	AnnouncerRunning bool            `json:"announcer_running"`
}

// HandleStatus reports store counts, the current leader and component state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Store == nil {
		http.Error(w, "store not loaded", http.StatusServiceUnavailable)
		return
	}
	sum := h.Store.Summary()
	resp := statusJSON{
		Scope:         string(h.Store.Scope()),
		Users:         sum.Users,
		Memes:         sum.Memes,
		CategoryMemes: sum.CategoryMemes,
		VoteKeys:      sum.VoteKeys,
		Transports:    map[string]bool{},
	}
	if m, t, err := h.Store.TopMeme(); err == nil {
		resp.Leader = &leaderJSON{Key: t.Key, Votes: t.Votes, URL: m.URL}
	} else if t, ok := h.Store.Leader(); ok {
		resp.Leader = &leaderJSON{Key: t.Key, Votes: t.Votes}
	}
	if h.Transports != nil {
		for _, t := range h.Transports.All() {
			resp.Transports[t.Platform()] = t.Connected()
		}
	}
	if h.Announcer != nil {
		resp.AnnouncerRunning = h.Announcer.Running()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAdminAnnounce runs one announcement immediately.
func (h *Handlers) HandleAdminAnnounce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Announcer == nil {
		http.Error(w, "announcer not configured", http.StatusServiceUnavailable)
		return
	}
	outcome := h.Announcer.Tick(r.Context())
	telemetry.LoggerWithCorr(r.Context()).Info("manual announcement", slog.String("outcome", string(outcome)), slog.String("component", "http"))
	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

// HandleAdminResetVotes clears the vote ledger.
func (h *Handlers) HandleAdminResetVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Store == nil {
		http.Error(w, "store not loaded", http.StatusServiceUnavailable)
		return
	}
	if err := h.Store.ResetVotes(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("reset votes failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
