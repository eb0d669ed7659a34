package server

import (
	"errors"
	"net/http"
)

// HandleHealthz is the liveness probe.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once the store is loaded, a chat transport is
// connected and the announcer loop is running.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"store", func() error {
			if h.Store == nil {
				return errors.New("store not loaded")
			}
			return nil
		}},
		{"transports", func() error {
			if h.Transports == nil || !h.Transports.AnyConnected() {
				return errors.New("no chat transport connected")
			}
			return nil
		}},
		{"announcer", func() error {
			if h.Announcer == nil || !h.Announcer.Running() {
				return errors.New("announcer not running")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
