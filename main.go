// Command memebot is the chat bot entrypoint.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the meme store (JSON file or Postgres) and loads it once; a corrupt
//     state document is fatal.
//   - Connects the configured chat transports (Discord, Twitch) and routes
//     their messages to the command dispatcher.
//   - Starts the leaderboard announcer.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics
//     and an optional admin API.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/memebot/announce"
	"github.com/onnwee/memebot/apis"
	"github.com/onnwee/memebot/bot"
	"github.com/onnwee/memebot/chat"
	"github.com/onnwee/memebot/config"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/server"
	"github.com/onnwee/memebot/settings"
	"github.com/onnwee/memebot/store"
	"github.com/onnwee/memebot/telemetry"
)

const version = "1.0.0"

// transportPollInterval is how often the connected gauge is refreshed.
const transportPollInterval = 15 * time.Second

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("memebot", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, database, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store backend", slog.String("backend", cfg.StoreBackend), slog.Any("err", err))
		os.Exit(1)
	}
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
	}

	st, err := memes.Open(ctx, backend, memes.WithScope(cfg.VoteScope))
	if err != nil {
		slog.Error("failed to load meme store", slog.String("backend", cfg.StoreBackend), slog.String("data_file", cfg.DataFile), slog.Any("err", err))
		os.Exit(1)
	}

	registry, err := buildTransports(cfg)
	if err != nil {
		slog.Error("failed to create chat transports", slog.Any("err", err))
		os.Exit(1)
	}

	channels := &settings.Channels{}
	dispatcher := bot.New(buildDeps(cfg, st, channels, registry), bot.WithPrefix(cfg.CommandPrefix))
	defer dispatcher.Close()

	announcer := announce.New(announce.Config{
		Interval:           cfg.AnnounceInterval,
		ResetAfterAnnounce: cfg.AnnounceResetVotes,
	}, st, channels, registry)
	go announcer.Run(ctx)

	go registry.Monitor(ctx, transportPollInterval, telemetry.SetTransportConnected)

	go func() {
		deps := server.Deps{Store: st, Transports: registry, Announcer: announcer}
		opts := server.Options{
			AdminUsername:   cfg.AdminUsername,
			AdminPassword:   cfg.AdminPassword,
			AdminToken:      cfg.AdminToken,
			RateLimitPerIP:  cfg.RateLimitPerIP,
			RateLimitWindow: cfg.RateLimitWindow,
		}
		if err := server.Start(ctx, cfg.HTTPAddr, deps, opts); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Blocks until shutdown; a transport that fails on its own stops the bot.
	if err := registry.Run(ctx, dispatcher.Handle); err != nil && ctx.Err() == nil {
		slog.Error("chat transports exited", slog.Any("err", err))
		stop()
	}
	<-ctx.Done()
	slog.Info("shutting down")
}

// setupLogging configures slog from LOG_LEVEL and LOG_FORMAT. Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// openBackend returns the configured store backend. The *sql.DB is non-nil
// only for Postgres and must be closed by the caller.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, *sql.DB, error) {
	if cfg.StoreBackend != config.BackendPostgres {
		return store.NewFileBackend(cfg.DataFile), nil, nil
	}
	database, err := store.Connect(cfg.DBDsn)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := store.Migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return store.NewPostgresBackend(database), database, nil
}

func buildTransports(cfg *config.Config) (*chat.Registry, error) {
	var ts []chat.Transport
	if cfg.DiscordEnabled() {
		d, err := chat.NewDiscord(cfg.DiscordToken)
		if err != nil {
			return nil, err
		}
		ts = append(ts, d)
	}
	if cfg.TwitchEnabled() {
		ts = append(ts, chat.NewTwitch(cfg.TwitchBotUsername, cfg.TwitchOAuthToken, cfg.TwitchChannels))
	}
	return chat.NewRegistry(ts...), nil
}

// buildDeps wires the API clients; a client without a key stays nil so its
// commands answer "not configured".
func buildDeps(cfg *config.Config, st *memes.Store, channels *settings.Channels, registry *chat.Registry) bot.Deps {
	hc := &http.Client{}
	deps := bot.Deps{Store: st, Channels: channels, Sender: registry}
	if cfg.ImgurClientID != "" {
		c := apis.NewImgur(cfg.ImgurClientID, hc)
		c.Timeout = cfg.HTTPTimeout
		deps.Imgur = c
	} else {
		slog.Info("imgur commands disabled (IMGUR_CLIENT_ID not set)")
	}
	if cfg.APINinjasKey != "" {
		c := apis.NewNinjas(cfg.APINinjasKey, hc)
		c.Timeout = cfg.HTTPTimeout
		deps.Ninjas = c
	} else {
		slog.Info("api ninjas commands disabled (API_NINJAS_KEY not set)")
	}
	if cfg.WeatherAPIKey != "" {
		c := apis.NewWeatherAPI(cfg.WeatherAPIKey, hc)
		c.Timeout = cfg.HTTPTimeout
		deps.Weather = c
	} else {
		slog.Info("weather command disabled (WEATHER_API_KEY not set)")
	}
	return deps
}
