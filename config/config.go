// Package config loads environment variables and provides a typed Config used across the bot.
// It applies defaults so the binary can run locally with only a chat token set.
// Use Validate before starting transports.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/memebot/announce"
	"github.com/onnwee/memebot/apis"
	"github.com/onnwee/memebot/bot"
	"github.com/onnwee/memebot/memes"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultDataFile is the JSON state file used by the file backend.
const DefaultDataFile = "bot_data.json"

// DefaultHTTPAddr is where the health and status server listens.
const DefaultHTTPAddr = ":8080"

type Config struct {
	// Discord
	DiscordToken string

	// Twitch
	TwitchBotUsername string
	TwitchOAuthToken  string
	TwitchChannels    []string

	CommandPrefix string

	// Storage
	StoreBackend string
	DataFile     string
	DBDsn        string

	// Votes and announcements
	VoteScope          memes.Scope
	AnnounceInterval   time.Duration
	AnnounceResetVotes bool

	// API keys; an empty key disables the matching commands
	ImgurClientID string
	APINinjasKey  string
	WeatherAPIKey string
	HTTPTimeout   time.Duration

	// HTTP server
	HTTPAddr        string
	AdminUsername   string
	AdminPassword   string
	AdminToken      string
	RateLimitPerIP  int
	RateLimitWindow time.Duration
}

// Load reads environment variables and applies defaults. Malformed values are
// errors; missing credentials are not (see Validate).
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken:      os.Getenv("DISCORD_TOKEN"),
		TwitchBotUsername: os.Getenv("TWITCH_BOT_USERNAME"),
		TwitchOAuthToken:  os.Getenv("TWITCH_OAUTH_TOKEN"),
		TwitchChannels:    splitList(os.Getenv("TWITCH_CHANNELS")),
		CommandPrefix:     envOr("COMMAND_PREFIX", bot.DefaultPrefix),
		StoreBackend:      strings.ToLower(envOr("STORE_BACKEND", BackendFile)),
		DataFile:          envOr("DATA_FILE", DefaultDataFile),
		DBDsn:             os.Getenv("DB_DSN"),
		ImgurClientID:     os.Getenv("IMGUR_CLIENT_ID"),
		APINinjasKey:      os.Getenv("API_NINJAS_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHER_API_KEY"),
		HTTPAddr:          envOr("HTTP_ADDR", DefaultHTTPAddr),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
	}

	switch cfg.StoreBackend {
	case BackendFile, BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (want %s or %s)", cfg.StoreBackend, BackendFile, BackendPostgres)
	}

	scope, err := memes.ParseScope(os.Getenv("VOTE_SCOPE"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOTE_SCOPE: %w", err)
	}
	cfg.VoteScope = scope

	interval, err := announce.ParseInterval(os.Getenv("ANNOUNCE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANNOUNCE_INTERVAL: %w", err)
	}
	cfg.AnnounceInterval = interval

	cfg.AnnounceResetVotes = announce.DefaultResetAfterAnnounce(scope)
	if v := os.Getenv("ANNOUNCE_RESET_VOTES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANNOUNCE_RESET_VOTES: %w", err)
		}
		cfg.AnnounceResetVotes = b
	}

	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", apis.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationEnv("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	cfg.RateLimitPerIP = 10
	if v := os.Getenv("RATE_LIMIT_REQUESTS_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS_PER_IP %q", v)
		}
		cfg.RateLimitPerIP = n
	}

	return cfg, nil
}

// DiscordEnabled reports whether a Discord token is configured.
func (c *Config) DiscordEnabled() bool { return c.DiscordToken != "" }

// TwitchEnabled reports whether Twitch credentials and at least one channel are configured.
func (c *Config) TwitchEnabled() bool {
	return c.TwitchBotUsername != "" && c.TwitchOAuthToken != "" && len(c.TwitchChannels) > 0
}

// Validate checks that the bot can start: at least one transport, and a DSN
// when the Postgres backend is selected.
func (c *Config) Validate() error {
	var errs []error
	if !c.DiscordEnabled() && !c.TwitchEnabled() {
		errs = append(errs, errors.New("no chat transport configured: set DISCORD_TOKEN or TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN and TWITCH_CHANNELS"))
	}
	if c.StoreBackend == BackendPostgres && c.DBDsn == "" {
		errs = append(errs, errors.New("STORE_BACKEND=postgres requires DB_DSN"))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive duration like 10s", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
