package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is Discord's per-message character cap.
const discordMessageLimit = 2000

// Discord is a Transport backed by a discordgo gateway session.
type Discord struct {
	session   *discordgo.Session
	connected atomic.Bool
}

// NewDiscord creates a bot session for token. The session is not opened
// until Run.
func NewDiscord(token string) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuildMembers
	return &Discord{session: s}, nil
}

func (d *Discord) Platform() string { return PlatformDiscord }

func (d *Discord) Connected() bool { return d.connected.Load() }

// Run opens the gateway and blocks until ctx is done.
func (d *Discord) Run(ctx context.Context, h Handler) error {
	removers := []func(){
		d.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) { d.connected.Store(true) }),
		d.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { d.connected.Store(false) }),
		d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			if m.Author == nil || m.Author.Bot {
				return
			}
			if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
				return
			}
			// discordgo runs handlers on their own goroutine
			h(ctx, discordMessage(m, d.ChannelName(m.ChannelID), d.isAdmin(m)))
		}),
		d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
			if msg, ok := discordMemberEvent(KindMemberJoin, m.Member); ok {
				h(ctx, msg)
			}
		}),
		d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
			if msg, ok := discordMemberEvent(KindMemberLeave, m.Member); ok {
				h(ctx, msg)
			}
		}),
	}
	defer func() {
		for _, rm := range removers {
			rm()
		}
	}()

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	d.connected.Store(true)
	slog.Info("discord connected", slog.String("component", "chat"))

	<-ctx.Done()
	d.connected.Store(false)
	if err := d.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (d *Discord) isAdmin(m *discordgo.MessageCreate) bool {
	if m.GuildID == "" {
		return false
	}
	perms, err := d.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		slog.Debug("discord permissions lookup failed", slog.String("user", m.Author.ID), slog.Any("err", err), slog.String("component", "chat"))
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// ChannelName returns the cached channel name, or the id when unknown.
func (d *Discord) ChannelName(channelID string) string {
	if d.session.State != nil {
		if ch, err := d.session.State.Channel(channelID); err == nil && ch.Name != "" {
			return ch.Name
		}
	}
	return channelID
}

// Send posts text to channelID, split into as many messages as needed.
func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	for _, chunk := range splitMessage(text, discordMessageLimit) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send to %s: %w", channelID, err)
		}
	}
	return nil
}

func discordMessage(m *discordgo.MessageCreate, channelName string, admin bool) Message {
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	return Message{
		Platform:    PlatformDiscord,
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		AuthorID:    m.Author.ID,
		AuthorName:  name,
		Content:     m.Content,
		IsAdmin:     admin,
	}
}

func discordMemberEvent(kind Kind, m *discordgo.Member) (Message, bool) {
	if m == nil || m.User == nil || m.User.Bot {
		return Message{}, false
	}
	name := m.User.GlobalName
	if name == "" {
		name = m.User.Username
	}
	return Message{Kind: kind, Platform: PlatformDiscord, AuthorID: m.User.ID, AuthorName: name}, true
}
