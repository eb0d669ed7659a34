package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	twitch "github.com/gempir/go-twitch-irc/v4"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"empty", "", 10, nil},
		{"lines packed", "aaa\nbbb\nccc", 7, []string{"aaa\nbbb", "ccc"}},
		{"long line cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"multibyte", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("splitMessage(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
			for _, c := range got {
				if utf8.RuneCountInString(c) > tt.limit {
					t.Errorf("chunk %q exceeds limit %d", c, tt.limit)
				}
			}
		})
	}
}

func TestTwitchIsAdmin(t *testing.T) {
	tests := []struct {
		badges map[string]int
		want   bool
	}{
		{nil, false},
		{map[string]int{"subscriber": 12}, false},
		{map[string]int{"moderator": 1}, true},
		{map[string]int{"broadcaster": 1, "subscriber": 0}, true},
	}
	for _, tt := range tests {
		if got := twitchIsAdmin(tt.badges); got != tt.want {
			t.Errorf("twitchIsAdmin(%v) = %v, want %v", tt.badges, got, tt.want)
		}
	}
}

func TestTwitchMessage(t *testing.T) {
	m := twitch.PrivateMessage{
		User:    twitch.User{ID: "123", Name: "viewer", DisplayName: "Viewer", Badges: map[string]int{"moderator": 1}},
		Channel: "streamer",
		Message: "!meme funny",
	}
	got := twitchMessage(m)
	want := Message{
		Platform:    PlatformTwitch,
		ChannelID:   "streamer",
		ChannelName: "#streamer",
		AuthorID:    "123",
		AuthorName:  "Viewer",
		Content:     "!meme funny",
		IsAdmin:     true,
	}
	if got != want {
		t.Errorf("twitchMessage() = %+v, want %+v", got, want)
	}
}

func TestDiscordMessage(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Content:   "!hi",
		Author:    &discordgo.User{ID: "42", Username: "someone"},
	}}
	got := discordMessage(m, "general", false)
	if got.AuthorName != "someone" || got.ChannelName != "general" || got.Platform != PlatformDiscord || got.Content != "!hi" {
		t.Errorf("discordMessage() = %+v", got)
	}
}

func TestDiscordMemberEvent(t *testing.T) {
	tests := []struct {
		name   string
		member *discordgo.Member
		ok     bool
		want   string
	}{
		{"nil member", nil, false, ""},
		{"no user", &discordgo.Member{}, false, ""},
		{"bot", &discordgo.Member{User: &discordgo.User{ID: "1", Bot: true}}, false, ""},
		{"username", &discordgo.Member{User: &discordgo.User{ID: "7", Username: "newbie"}}, true, "newbie"},
		{"global name", &discordgo.Member{User: &discordgo.User{ID: "7", Username: "newbie", GlobalName: "New Bie"}}, true, "New Bie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := discordMemberEvent(KindMemberJoin, tt.member)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Kind != KindMemberJoin || got.AuthorID != "7" || got.AuthorName != tt.want || got.ChannelID != "" {
				t.Errorf("discordMemberEvent() = %+v", got)
			}
		})
	}
}

func TestMessageMention(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Platform: PlatformDiscord, AuthorID: "42", AuthorName: "someone"}, "<@42>"},
		{Message{Platform: PlatformTwitch, AuthorID: "42", AuthorName: "viewer"}, "@viewer"},
		{Message{Platform: PlatformTwitch, AuthorID: "42"}, "42"},
	}
	for _, tt := range tests {
		if got := tt.msg.Mention(); got != tt.want {
			t.Errorf("Mention(%+v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestNewTwitchNormalisesChannels(t *testing.T) {
	tw := NewTwitch("bot", "abc", []string{" #Streamer ", "", "other"})
	if strings.Join(tw.channels, ",") != "streamer,other" {
		t.Errorf("channels = %v", tw.channels)
	}
	if tw.ChannelName("streamer") != "#streamer" {
		t.Errorf("ChannelName() = %q", tw.ChannelName("streamer"))
	}
	if tw.Connected() {
		t.Error("new client should not report connected")
	}
}
