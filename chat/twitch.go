package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// twitchMessageLimit is the IRC PRIVMSG body cap Twitch enforces.
const twitchMessageLimit = 500

// Twitch is a Transport backed by go-twitch-irc.
type Twitch struct {
	client    *twitch.Client
	channels  []string
	connected atomic.Bool
}

// NewTwitch creates a client for username with an oauth token ("oauth:..."
// prefix optional) that joins channels on Run.
func NewTwitch(username, oauth string, channels []string) *Twitch {
	if !strings.HasPrefix(oauth, "oauth:") {
		oauth = "oauth:" + oauth
	}
	joined := make([]string, 0, len(channels))
	for _, c := range channels {
		c = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "#"))
		if c != "" {
			joined = append(joined, c)
		}
	}
	return &Twitch{client: twitch.NewClient(username, oauth), channels: joined}
}

func (t *Twitch) Platform() string { return PlatformTwitch }

func (t *Twitch) Connected() bool { return t.connected.Load() }

// Run connects to IRC and blocks until ctx is done or the connection fails.
func (t *Twitch) Run(ctx context.Context, h Handler) error {
	t.client.OnConnect(func() {
		t.connected.Store(true)
		slog.Info("twitch connected", slog.Any("channels", t.channels), slog.String("component", "chat"))
	})
	t.client.OnPrivateMessage(func(m twitch.PrivateMessage) {
		// the IRC reader calls back synchronously
		go h(ctx, twitchMessage(m))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = t.client.Disconnect()
		case <-done:
		}
	}()

	t.client.Join(t.channels...)
	err := t.client.Connect()
	close(done)
	t.connected.Store(false)
	if err == nil || errors.Is(err, twitch.ErrClientDisconnected) {
		return nil
	}
	return fmt.Errorf("twitch connect: %w", err)
}

// ChannelName returns the channel with its IRC "#" prefix.
func (t *Twitch) ChannelName(channelID string) string {
	return "#" + strings.TrimPrefix(channelID, "#")
}

// Send says text in channelID one line at a time.
func (t *Twitch) Send(_ context.Context, channelID, text string) error {
	if !t.Connected() {
		return fmt.Errorf("twitch send to %s: not connected", channelID)
	}
	channel := strings.TrimPrefix(channelID, "#")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, chunk := range splitMessage(line, twitchMessageLimit) {
			t.client.Say(channel, chunk)
		}
	}
	return nil
}

func twitchMessage(m twitch.PrivateMessage) Message {
	name := m.User.DisplayName
	if name == "" {
		name = m.User.Name
	}
	return Message{
		Platform:    PlatformTwitch,
		ChannelID:   m.Channel,
		ChannelName: "#" + m.Channel,
		AuthorID:    m.User.ID,
		AuthorName:  name,
		Content:     m.Message,
		IsAdmin:     twitchIsAdmin(m.User.Badges),
	}
}

func twitchIsAdmin(badges map[string]int) bool {
	return badges["broadcaster"] > 0 || badges["moderator"] > 0
}
