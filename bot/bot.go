// Package bot turns chat messages into memebot commands.
//
// A Dispatcher parses prefixed commands (default "!"), checks admin rights
// and per-user cooldowns, runs the command against the meme store or one of
// the API clients, and sends the replies back through the originating chat
// platform. No error escapes a command: every failure becomes a reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/memebot/apis"
	"github.com/onnwee/memebot/chat"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/settings"
	"github.com/onnwee/memebot/telemetry"
)

// DefaultPrefix starts every command.
const DefaultPrefix = "!"

// Sender delivers a message to a channel on a platform. *chat.Registry satisfies it.
type Sender interface {
	Send(ctx context.Context, platform, channelID, text string) error
}

// Imgur searches image galleries.
type Imgur interface {
	SearchGallery(ctx context.Context, keyword string) ([]string, error)
	ClimateMemes(ctx context.Context) ([]string, error)
}

// Ninjas is the API Ninjas surface the bot uses.
type Ninjas interface {
	IPLookup(ctx context.Context, addr string) (apis.IPInfo, error)
	Password(ctx context.Context, length int) (string, error)
	Hobby(ctx context.Context) (apis.Hobby, error)
	Facts(ctx context.Context) ([]string, error)
}

// Weather reports current conditions.
type Weather interface {
	Current(ctx context.Context, location string) (apis.Weather, error)
}

// Deps are the collaborators a Dispatcher needs.
type Deps struct {
	Store    *memes.Store
	Channels *settings.Channels
	Sender   Sender
	Imgur    Imgur
	Ninjas   Ninjas
	Weather  Weather
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrefix sets the command prefix.
func WithPrefix(p string) Option {
	return func(d *Dispatcher) {
		if p != "" {
			d.prefix = p
		}
	}
}

// WithClock sets the time source used for cooldowns.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRand sets the random source for draws.
func WithRand(r *rand.Rand) Option {
	return func(d *Dispatcher) { d.rnd = r }
}

// WithTriviaTimeout sets how long a trivia question stays open.
func WithTriviaTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.triviaTimeout = t }
}

// Dispatcher routes chat messages to commands.
type Dispatcher struct {
	Deps
	prefix        string
	now           func() time.Time
	triviaTimeout time.Duration

	randMu sync.Mutex
	rnd    *rand.Rand

	commands  map[string]*command
	ordered   []*command
	cooldowns *cooldowns
	trivia    *triviaBoard
}

// New builds a Dispatcher with the full command set registered.
func New(deps Deps, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		Deps:          deps,
		prefix:        DefaultPrefix,
		now:           time.Now,
		triviaTimeout: DefaultTriviaTimeout,
		commands:      make(map[string]*command),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cooldowns = newCooldowns(d.now)
	d.trivia = newTriviaBoard(d.triviaTimeout)
	for _, c := range d.commandTable() {
		d.register(c)
	}
	return d
}

func (d *Dispatcher) register(c *command) {
	for _, name := range append([]string{c.name}, c.aliases...) {
		d.commands[strings.ToLower(name)] = c
	}
	d.ordered = append(d.ordered, c)
}

// Close cancels open trivia questions.
func (d *Dispatcher) Close() {
	d.trivia.close()
}

func (d *Dispatcher) pick(n int) int {
	if d.rnd == nil {
		return rand.IntN(n)
	}
	d.randMu.Lock()
	defer d.randMu.Unlock()
	return d.rnd.IntN(n)
}

// request is one command invocation.
type request struct {
	msg     chat.Message
	cmd     *command
	args    []string
	rest    string
	replies []string
}

func (r *request) reply(format string, a ...any) {
	r.replies = append(r.replies, fmt.Sprintf(format, a...))
}

func (r *request) say(text string) {
	r.replies = append(r.replies, text)
}

// Handle processes one message. It satisfies chat.Handler.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) {
	if msg.Kind != chat.KindText {
		d.handleMembership(ctx, msg)
		return
	}
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, d.prefix) {
		d.handleTriviaAnswer(ctx, msg, content)
		return
	}
	body := strings.TrimSpace(content[len(d.prefix):])
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	cmd, ok := d.commands[name]
	if !ok {
		slog.Debug("unknown command", slog.String("command", name), slog.String("platform", msg.Platform), slog.String("component", "bot"))
		return
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "memebot/bot", "command "+cmd.name, telemetry.CommandAttr(cmd.name), telemetry.PlatformAttr(msg.Platform))
	defer span.End()
	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("command", cmd.name),
		slog.String("platform", msg.Platform),
		slog.String("user", msg.AuthorID),
		slog.String("component", "bot"))

	req := &request{
		msg:  msg,
		cmd:  cmd,
		args: fields[1:],
		rest: strings.TrimSpace(body[len(fields[0]):]),
	}
	err := d.run(ctx, req)
	outcome := outcomeOf(err)
	switch outcome {
	case "ok":
		telemetry.SetSpanSuccess(span)
		logger.Debug("command handled")
	case "error":
		telemetry.RecordError(span, err)
		logger.Error("command failed", slog.Any("err", err))
	default:
		logger.Info("command rejected", slog.String("outcome", outcome), slog.Any("err", err))
	}
	telemetry.ObserveCommand(cmd.name, outcome)
	if err != nil && len(req.replies) == 0 {
		req.say(d.replyForError(err))
	}
	d.send(ctx, logger, msg, req.replies)
}

func (d *Dispatcher) run(ctx context.Context, req *request) error {
	if req.cmd.admin && !req.msg.IsAdmin {
		return ErrPermission
	}
	key := cooldownKey{platform: req.msg.Platform, user: req.msg.AuthorID, command: req.cmd.name}
	if wait := d.cooldowns.take(key, req.cmd.cooldown); wait > 0 {
		return &cooldownError{retryAfter: wait.Seconds()}
	}
	return req.cmd.run(ctx, req)
}

func (d *Dispatcher) send(ctx context.Context, logger *slog.Logger, msg chat.Message, replies []string) {
	for _, text := range replies {
		if err := d.Sender.Send(ctx, msg.Platform, msg.ChannelID, text); err != nil {
			logger.Error("reply send failed", slog.Any("err", err))
			return
		}
	}
}

// handleMembership greets joining members and notes departing ones in the
// channels admins picked. Unset channels drop the event.
func (d *Dispatcher) handleMembership(ctx context.Context, msg chat.Message) {
	logger := slog.With(slog.String("platform", msg.Platform), slog.String("user", msg.AuthorID), slog.String("component", "bot"))
	var (
		ref  settings.ChannelRef
		ok   bool
		text string
	)
	switch msg.Kind {
	case chat.KindMemberJoin:
		ref, ok = d.Channels.Welcome()
		text = fmt.Sprintf("👋 **Welcome %s to our server!**", msg.Mention())
	case chat.KindMemberLeave:
		ref, ok = d.Channels.Goodbye()
		text = fmt.Sprintf("👋 **Goodbye %s, we'll miss you!**", msg.Mention())
	default:
		return
	}
	if !ok {
		logger.Warn("membership channel not set", slog.Int("kind", int(msg.Kind)))
		return
	}
	if err := d.Sender.Send(ctx, ref.Platform, ref.ID, text); err != nil {
		logger.Error("membership message send failed", slog.Any("err", err))
	}
}

func (d *Dispatcher) handleTriviaAnswer(ctx context.Context, msg chat.Message, content string) {
	q, ok := d.trivia.take(triviaKey{platform: msg.Platform, channel: msg.ChannelID, user: msg.AuthorID})
	if !ok {
		return
	}
	text := fmt.Sprintf("**❌ Wrong!** The correct answer to \"%s\" is %s.", q.Question, q.Answer)
	if q.correct(content) {
		text = fmt.Sprintf("**✅ Correct!** The answer to \"%s\" is indeed %s.", q.Question, q.Answer)
	}
	logger := slog.Default().With(slog.String("command", "trivia"), slog.String("component", "bot"))
	d.send(ctx, logger, msg, []string{text})
}

func outcomeOf(err error) string {
	var (
		verr *memes.ValidationError
		cerr *memes.UnknownCategoryError
		uerr *usageError
		aerr *argError
		cool *cooldownError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPermission):
		return "denied"
	case errors.As(err, &cool):
		return "cooldown"
	case errors.As(err, &verr), errors.As(err, &cerr), errors.As(err, &uerr), errors.As(err, &aerr),
		errors.Is(err, memes.ErrEmptyPool), errors.Is(err, memes.ErrNoVotes),
		errors.Is(err, memes.ErrMemeNotFound), errors.Is(err, memes.ErrAmbiguousID),
		errors.Is(err, memes.ErrUserHasNoMemes), errors.Is(err, apis.ErrNoData):
		return "rejected"
	default:
		return "error"
	}
}

// replyForError renders errors commands did not answer themselves.
func (d *Dispatcher) replyForError(err error) string {
	var (
		verr *memes.ValidationError
		cerr *memes.UnknownCategoryError
		uerr *usageError
		aerr *argError
		cool *cooldownError
		terr *apis.TransportError
	)
	switch {
	case errors.Is(err, ErrPermission):
		return "❗ You do not have permission to use this command."
	case errors.As(err, &cool):
		return fmt.Sprintf("⏳ This command is on cooldown. Please try again in %.2f seconds.", cool.retryAfter)
	case errors.As(err, &uerr):
		return fmt.Sprintf("❗ Missing required argument. Usage: `%s%s`", d.prefix, uerr.usage)
	case errors.As(err, &aerr):
		return "❗ Invalid argument provided. Please check the command and try again."
	case errors.As(err, &verr):
		return fmt.Sprintf("❗ Invalid %s: %s.", verr.Field, verr.Reason)
	case errors.As(err, &cerr):
		return fmt.Sprintf("❗ Unknown category '%s'. Available categories: %s", cerr.Category, strings.Join(memes.Categories, ", "))
	case errors.Is(err, memes.ErrEmptyPool):
		return "❗ There are no memes in this category."
	case errors.Is(err, memes.ErrNoVotes):
		return "❗ **No memes have been voted on yet.**"
	case errors.Is(err, memes.ErrAmbiguousID):
		return "❗ That meme id matches more than one meme. Use more characters."
	case errors.Is(err, memes.ErrMemeNotFound):
		return fmt.Sprintf("❗ No meme with that id. Use %smemes to list ids.", d.prefix)
	case errors.Is(err, apis.ErrMissingKey):
		return "❗ This command is not configured on this bot."
	case errors.As(err, &terr):
		return "❗ The service is not responding right now. Please try again later."
	default:
		return "❗ An unexpected error occurred. Please try again later."
	}
}
