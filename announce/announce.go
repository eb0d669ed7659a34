// Package announce runs the periodic "top meme" announcement.
//
// On each tick the Announcer reads the current leader from the meme store and
// posts it to the announcement channel set with !setchannel. A missing or
// unreachable channel is logged and skipped, never treated as an error.
package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/onnwee/memebot/chat"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/settings"
	"github.com/onnwee/memebot/telemetry"
)

// Interval presets accepted by ParseInterval.
const (
	Daily  = 24 * time.Hour
	Weekly = 7 * Daily
)

// NoMemesMessage is posted when the ledger has no leader to show.
const NoMemesMessage = "❗ No memes to announce."

// Outcome is the result of one tick.
type Outcome string

const (
	OutcomeNoChannel  Outcome = "no_channel"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeNoVotes    Outcome = "no_votes"
	OutcomeAnnounced  Outcome = "announced"
	OutcomeSendFailed Outcome = "send_failed"
)

// Config controls the announcer.
type Config struct {
	Interval time.Duration
	// ResetAfterAnnounce clears the vote ledger after a leader is posted.
	ResetAfterAnnounce bool
}

// ParseInterval accepts "daily", "weekly" or any positive Go duration. An
// empty string means daily.
func ParseInterval(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid announce interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid announce interval %q: must be positive", s)
	}
	return d, nil
}

// DefaultResetAfterAnnounce is true for per-meme voting rounds and false for
// per-user reputation, which accumulates across announcements.
func DefaultResetAfterAnnounce(scope memes.Scope) bool {
	return scope == memes.ScopeMeme
}

// Transports looks up a chat transport by platform. *chat.Registry satisfies it.
type Transports interface {
	Get(platform string) (chat.Transport, bool)
}

// Announcer posts the leader on a fixed interval.
type Announcer struct {
	cfg        Config
	store      *memes.Store
	channels   *settings.Channels
	transports Transports
	running    atomic.Bool
}

// New builds an Announcer. A zero Interval means daily.
func New(cfg Config, store *memes.Store, channels *settings.Channels, transports Transports) *Announcer {
	if cfg.Interval <= 0 {
		cfg.Interval = Daily
	}
	return &Announcer{cfg: cfg, store: store, channels: channels, transports: transports}
}

// Running reports whether Run is active.
func (a *Announcer) Running() bool { return a.running.Load() }

// Run ticks once at start and then every interval until ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) {
	a.running.Store(true)
	defer a.running.Store(false)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	slog.Info("announcer started", slog.Duration("interval", a.cfg.Interval), slog.Bool("reset_after_announce", a.cfg.ResetAfterAnnounce), slog.String("component", "announce"))
	a.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("announcer stopped", slog.String("component", "announce"))
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick performs one announcement.
func (a *Announcer) Tick(ctx context.Context) Outcome {
	ctx, span := telemetry.StartSpan(ctx, "memebot/announce", "announce.tick")
	defer span.End()
	out := a.tick(ctx)
	telemetry.ObserveAnnouncement(string(out))
	if out == OutcomeSendFailed {
		telemetry.RecordError(span, errors.New("announcement send failed"))
	} else {
		telemetry.SetSpanSuccess(span)
	}
	return out
}

func (a *Announcer) tick(ctx context.Context) Outcome {
	logger := slog.Default().With(slog.String("component", "announce"))
	ref, ok := a.channels.Announcement()
	if !ok {
		logger.Warn("announcement channel not set; skipping")
		return OutcomeNoChannel
	}
	t, ok := a.transports.Get(ref.Platform)
	if !ok || !t.Connected() {
		logger.Warn("announcement channel not found", slog.String("platform", ref.Platform), slog.String("channel", ref.Name))
		return OutcomeUnresolved
	}

	standings, err := a.store.Standings()
	if err != nil {
		if !errors.Is(err, memes.ErrNoVotes) {
			logger.Warn("leader has no meme to show", slog.Any("err", err))
		}
		if err := t.Send(ctx, ref.ID, NoMemesMessage); err != nil {
			logger.Error("announcement send failed", slog.Any("err", err))
			return OutcomeSendFailed
		}
		return OutcomeNoVotes
	}

	tally := standings.Leader
	if err := t.Send(ctx, ref.ID, a.format(standings.Meme, tally)); err != nil {
		logger.Error("announcement send failed", slog.Any("err", err))
		return OutcomeSendFailed
	}
	logger.Info("top meme announced", slog.String("key", tally.Key), slog.Int("votes", tally.Votes), slog.String("channel", ref.Name))

	if a.cfg.ResetAfterAnnounce {
		if err := a.store.ResetVotesSeen(ctx, standings.Tallies); err != nil {
			logger.Error("vote reset after announcement failed", slog.Any("err", err))
		}
	}
	return OutcomeAnnounced
}

func (a *Announcer) format(m memes.Meme, t memes.Tally) string {
	if a.store.Scope() == memes.ScopeMeme {
		return fmt.Sprintf("🏆 **Top meme [%s] by user %s with %d votes:** %s", m.ShortID(), m.Owner, t.Votes, m.URL)
	}
	return fmt.Sprintf("🏆 **Top meme by user %s (%d votes):** %s", t.Key, t.Votes, m.URL)
}
