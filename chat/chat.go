package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Platform names.
const (
	PlatformDiscord = "discord"
	PlatformTwitch  = "twitch"
)

// Kind tells chat lines apart from membership events.
type Kind int

const (
	KindText Kind = iota
	KindMemberJoin
	KindMemberLeave
)

// Message is one incoming chat line or membership event. Membership events
// carry the member as author and have no channel or content.
type Message struct {
	Kind        Kind
	Platform    string
	ChannelID   string
	ChannelName string
	AuthorID    string
	AuthorName  string
	Content     string
	IsAdmin     bool
}

// Mention renders the author the way the platform highlights users.
func (m Message) Mention() string {
	if m.Platform == PlatformDiscord && m.AuthorID != "" {
		return "<@" + m.AuthorID + ">"
	}
	if m.AuthorName != "" {
		return "@" + m.AuthorName
	}
	return m.AuthorID
}

// Handler processes one incoming message. It is called on its own goroutine.
type Handler func(ctx context.Context, msg Message)

// Transport is a connection to one chat platform.
type Transport interface {
	Platform() string
	// Run connects, delivers messages to h and blocks until ctx is cancelled
	// or the connection fails.
	Run(ctx context.Context, h Handler) error
	Send(ctx context.Context, channelID, text string) error
	ChannelName(channelID string) string
	Connected() bool
}

// ErrUnknownPlatform is returned by Registry.Send for an unregistered platform.
type ErrUnknownPlatform struct {
	Platform string
}

func (e *ErrUnknownPlatform) Error() string {
	return fmt.Sprintf("no transport for platform %q", e.Platform)
}

// Registry holds the configured transports by platform.
type Registry struct {
	transports map[string]Transport
}

// NewRegistry builds a registry. A later transport with the same platform
// replaces an earlier one.
func NewRegistry(ts ...Transport) *Registry {
	r := &Registry{transports: make(map[string]Transport, len(ts))}
	for _, t := range ts {
		r.transports[t.Platform()] = t
	}
	return r
}

// Get returns the transport for platform.
func (r *Registry) Get(platform string) (Transport, bool) {
	t, ok := r.transports[platform]
	return t, ok
}

// All returns every transport ordered by platform name.
func (r *Registry) All() []Transport {
	out := make([]Transport, 0, len(r.transports))
	for _, t := range r.transports {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform() < out[j].Platform() })
	return out
}

// AnyConnected reports whether at least one transport is connected.
func (r *Registry) AnyConnected() bool {
	for _, t := range r.transports {
		if t.Connected() {
			return true
		}
	}
	return false
}

// Send routes text to channelID on platform.
func (r *Registry) Send(ctx context.Context, platform, channelID, text string) error {
	t, ok := r.Get(platform)
	if !ok {
		return &ErrUnknownPlatform{Platform: platform}
	}
	return t.Send(ctx, channelID, text)
}

// Run runs every transport until ctx is cancelled. The first transport to
// fail cancels the others and its error is returned once all have exited.
func (r *Registry) Run(ctx context.Context, h Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range r.All() {
		g.Go(func() error {
			slog.Info("chat transport starting", slog.String("platform", t.Platform()), slog.String("component", "chat"))
			err := t.Run(ctx, h)
			if err != nil {
				slog.Error("chat transport stopped", slog.String("platform", t.Platform()), slog.Any("err", err), slog.String("component", "chat"))
				return fmt.Errorf("%s transport: %w", t.Platform(), err)
			}
			slog.Info("chat transport stopped", slog.String("platform", t.Platform()), slog.String("component", "chat"))
			return nil
		})
	}
	return g.Wait()
}

// Monitor calls report with each transport's connection state immediately and
// then every interval until ctx is cancelled.
func (r *Registry) Monitor(ctx context.Context, interval time.Duration, report func(platform string, connected bool)) {
	poll := func() {
		for _, t := range r.All() {
			report(t.Platform(), t.Connected())
		}
	}
	poll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// splitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		if len(cur) > 0 && len(cur)+1+len(r) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		for len(r) > 0 {
			room := limit - len(cur)
			if room <= 0 {
				flush()
				room = limit
			}
			n := min(room, len(r))
			cur = append(cur, r[:n]...)
			r = r[n:]
		}
	}
	flush()
	return out
}
