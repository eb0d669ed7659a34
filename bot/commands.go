package bot

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/memebot/apis"
	"github.com/onnwee/memebot/memes"
	"github.com/onnwee/memebot/settings"
	"github.com/onnwee/memebot/telemetry"
)

// Cooldowns for rate-limited commands.
const (
	fetchCooldown  = 5 * time.Second
	submitCooldown = 10 * time.Second
)

// memesListLimit caps the !memes listing.
const memesListLimit = 25

// leaderboardSize is how many entries !leaderboard shows.
const leaderboardSize = 5

type command struct {
	name     string
	aliases  []string
	usage    string
	help     string
	admin    bool
	cooldown time.Duration
	run      func(ctx context.Context, r *request) error
}

func (d *Dispatcher) commandTable() []*command {
	return []*command{
		{name: "hi", help: "Say hello to the bot.", run: d.cmdHi},
		{name: "meme", usage: "meme [category]", help: "Get a random meme, optionally from a category.", cooldown: fetchCooldown, run: d.cmdMeme},
		{name: "addmeme", usage: "addmeme [category] <meme-url>", help: "Add a meme to your collection or to a category.", cooldown: submitCooldown, run: d.cmdAddMeme},
		{name: "submitmeme", usage: "submitmeme <meme-url>", help: "Submit a meme for voting.", cooldown: submitCooldown, run: d.cmdSubmitMeme},
		{name: "my_memes", help: "View the memes you've submitted.", run: d.cmdMyMemes},
		{name: "mystats", help: "See how many memes you submitted and votes you received.", run: d.cmdMyStats},
		{name: "memes", help: "List submitted memes with their ids.", run: d.cmdMemes},
		{name: "memevote", usage: "memevote <user-id> <vote>", help: "Vote for a user's memes with a positive or negative number.", cooldown: submitCooldown, run: d.cmdMemeVote},
		{name: "vote", usage: "vote <meme-id> [vote]", help: "Vote for a meme by id (default +1).", cooldown: submitCooldown, run: d.cmdVote},
		{name: "topmeme", help: "View the most voted meme.", run: d.cmdTopMeme},
		{name: "leaderboard", help: "Show the top 5 by votes.", run: d.cmdLeaderboard},
		{name: "resetvotes", help: "Reset all votes.", admin: true, run: d.cmdResetVotes},
		{name: "resetdata", help: "Reset all user memes and votes.", admin: true, run: d.cmdResetData},
		{name: "setchannel", aliases: []string{"setannouncementchannel"}, help: "Post meme announcements in this channel.", admin: true, run: d.cmdSetChannel},
		{name: "setfeedback", help: "Send feedback to this channel.", admin: true, run: d.cmdSetFeedback},
		{name: "welcome", help: "Greet new members in this channel.", admin: true, run: d.cmdSetWelcome},
		{name: "goodbye", help: "Say goodbye to departing members in this channel.", admin: true, run: d.cmdSetGoodbye},
		{name: "feedback", usage: "feedback <message>", help: "Send feedback to the admins.", run: d.cmdFeedback},
		{name: "searchmm", usage: "searchmm <keyword>", help: "Search Imgur for a meme.", cooldown: fetchCooldown, run: d.cmdSearch},
		{name: "ccmeme", help: "Get a random climate change meme from Imgur.", cooldown: fetchCooldown, run: d.cmdClimateMeme},
		{name: "climatechange", help: "Get a random climate change fact.", run: d.cmdClimateFact},
		{name: "ip", usage: "ip <ip-address>", help: "Look up an IP address.", run: d.cmdIP},
		{name: "password", usage: "password <length>", help: "Generate a password (1-128 characters).", run: d.cmdPassword},
		{name: "hobby", help: "Get a random hobby suggestion.", run: d.cmdHobby},
		{name: "fact", usage: "fact [limit]", help: "Get random facts (1-10).", cooldown: fetchCooldown, run: d.cmdFact},
		{name: "weather", usage: "weather <location>", help: "Get the current weather for a location.", run: d.cmdWeather},
		{name: "trivia", help: "Answer a trivia question within 30 seconds.", run: d.cmdTrivia},
		{name: "help", aliases: []string{"bot_help"}, help: "Show this help message.", run: d.cmdHelp},
	}
}

func (d *Dispatcher) cmdHi(_ context.Context, r *request) error {
	r.say("👋 **Hello!**")
	return nil
}

func (d *Dispatcher) cmdMeme(_ context.Context, r *request) error {
	category := ""
	if len(r.args) > 0 {
		category = r.args[0]
	}
	url, err := d.Store.RandomFromAll(category)
	if err != nil {
		return err
	}
	r.reply("🤣 **Random Meme:** %s", url)
	return nil
}

func (d *Dispatcher) cmdAddMeme(ctx context.Context, r *request) error {
	switch len(r.args) {
	case 0:
		return &usageError{usage: r.cmd.usage}
	case 1:
		url := r.args[0]
		if err := d.Store.Add(ctx, r.msg.AuthorID, url); err != nil {
			return err
		}
		telemetry.IncMemesSubmitted()
		r.reply("✅ **Added your meme to the collection:** %s", url)
	default:
		category, url := memes.NormalizeCategory(r.args[0]), r.args[1]
		if err := d.Store.AddToCategory(ctx, category, url); err != nil {
			return err
		}
		telemetry.IncMemesSubmitted()
		r.reply("✅ **Added your meme to the %s category:** %s", category, url)
	}
	return nil
}

func (d *Dispatcher) cmdSubmitMeme(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		return &usageError{usage: r.cmd.usage}
	}
	url := r.args[0]
	if err := d.Store.Add(ctx, r.msg.AuthorID, url); err != nil {
		var verr *memes.ValidationError
		if errors.As(err, &verr) {
			r.say("❗ Please submit a valid URL.")
			return verr
		}
		return err
	}
	telemetry.IncMemesSubmitted()
	if d.Store.Scope() == memes.ScopeMeme {
		id := memes.Meme{ID: memes.IDFor(url)}.ShortID()
		r.reply("✅ **Your meme has been submitted for voting!** Vote with `%svote %s`", d.prefix, id)
		return nil
	}
	r.say("✅ **Your meme has been submitted for voting!**")
	return nil
}

func (d *Dispatcher) cmdMyMemes(_ context.Context, r *request) error {
	urls := d.Store.ListForUser(r.msg.AuthorID)
	if len(urls) == 0 {
		r.say("❗ There are no memes submitted yet.")
		return nil
	}
	lines := make([]string, len(urls))
	for i, u := range urls {
		lines[i] = d.memeLine(memes.Meme{ID: memes.IDFor(u), URL: u})
	}
	r.reply("📸 **Memes you sent:**\n%s", strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) memeLine(m memes.Meme) string {
	if d.Store.Scope() == memes.ScopeMeme {
		return fmt.Sprintf("`%s` %s", m.ShortID(), m.URL)
	}
	return m.URL
}

func (d *Dispatcher) cmdMyStats(_ context.Context, r *request) error {
	submitted, received := d.Store.Stats(r.msg.AuthorID)
	r.reply("📊 **You have submitted %d memes and received %d votes.**", submitted, received)
	return nil
}

func (d *Dispatcher) cmdMemes(_ context.Context, r *request) error {
	all := d.Store.AllMemes()
	if len(all) == 0 {
		r.say("❗ There are no memes submitted yet.")
		return nil
	}
	shown := all
	if len(shown) > memesListLimit {
		shown = shown[:memesListLimit]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, m := range shown {
		lines = append(lines, fmt.Sprintf("`%s` %s (by %s)", m.ShortID(), m.URL, m.Owner))
	}
	if extra := len(all) - len(shown); extra > 0 {
		lines = append(lines, fmt.Sprintf("...and %d more", extra))
	}
	r.reply("🗂️ **Submitted memes:**\n%s", strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) cmdMemeVote(ctx context.Context, r *request) error {
	if d.Store.Scope() != memes.ScopeUser {
		r.reply("❗ Votes here are per meme. Use `%svote <meme-id>`.", d.prefix)
		return nil
	}
	if len(r.args) < 2 {
		return &usageError{usage: r.cmd.usage}
	}
	userID := strings.Trim(r.args[0], "<@!>")
	delta, err := strconv.Atoi(r.args[1])
	if err != nil {
		return &argError{arg: r.args[1]}
	}
	if _, err := d.Store.VoteUser(ctx, userID, delta); err != nil {
		if errors.Is(err, memes.ErrUserHasNoMemes) {
			r.reply("❗ **User %s has no memes.**", userID)
		}
		return err
	}
	telemetry.IncVotes()
	r.reply("👍 **Your vote for user %s has been counted.**", userID)
	return nil
}

func (d *Dispatcher) cmdVote(ctx context.Context, r *request) error {
	if d.Store.Scope() != memes.ScopeMeme {
		r.reply("❗ Votes here are per user. Use `%smemevote <user-id> <vote>`.", d.prefix)
		return nil
	}
	if len(r.args) == 0 {
		return &usageError{usage: r.cmd.usage}
	}
	delta := 1
	if len(r.args) > 1 {
		n, err := strconv.Atoi(r.args[1])
		if err != nil {
			return &argError{arg: r.args[1]}
		}
		delta = n
	}
	m, total, err := d.Store.VoteMeme(ctx, r.args[0], delta)
	if err != nil {
		return err
	}
	telemetry.IncVotes()
	r.reply("👍 **Your vote for meme `%s` has been counted.** It now has %d votes.", m.ShortID(), total)
	return nil
}

func (d *Dispatcher) cmdTopMeme(_ context.Context, r *request) error {
	m, tally, err := d.Store.TopMeme()
	if err != nil {
		return err
	}
	r.reply("🏆 **Top Meme:** %s with %d votes!", m.URL, tally.Votes)
	return nil
}

func (d *Dispatcher) cmdLeaderboard(_ context.Context, r *request) error {
	top := d.Store.Top(leaderboardSize)
	if len(top) == 0 {
		return memes.ErrNoVotes
	}
	lines := make([]string, len(top))
	for i, t := range top {
		label := t.Key
		if d.Store.Scope() == memes.ScopeMeme {
			if m, err := d.Store.Resolve(t.Key); err == nil {
				label = d.memeLine(m)
			}
		}
		lines[i] = fmt.Sprintf("%d. %s: %d votes", i+1, label, t.Votes)
	}
	r.reply("🏆 **Meme Leaderboard** 🏆\n%s", strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) cmdResetVotes(ctx context.Context, r *request) error {
	if err := d.Store.ResetVotes(ctx); err != nil {
		return err
	}
	r.say("🔄 **Votes have been reset.**")
	return nil
}

func (d *Dispatcher) cmdResetData(ctx context.Context, r *request) error {
	if err := d.Store.ResetAll(ctx); err != nil {
		return err
	}
	r.say("🔄 **All user data has been reset.**")
	return nil
}

func channelRef(r *request) settings.ChannelRef {
	name := r.msg.ChannelName
	if name == "" {
		name = r.msg.ChannelID
	}
	return settings.ChannelRef{Platform: r.msg.Platform, ID: r.msg.ChannelID, Name: name}
}

func (d *Dispatcher) cmdSetChannel(_ context.Context, r *request) error {
	ref := channelRef(r)
	d.Channels.SetAnnouncement(ref)
	r.reply("📢 **Announcement channel set to %s**", ref.Name)
	return nil
}

func (d *Dispatcher) cmdSetFeedback(_ context.Context, r *request) error {
	ref := channelRef(r)
	d.Channels.SetFeedback(ref)
	r.reply("💬 **Feedback channel set to %s**", ref.Name)
	return nil
}

func (d *Dispatcher) cmdSetWelcome(_ context.Context, r *request) error {
	ref := channelRef(r)
	d.Channels.SetWelcome(ref)
	r.reply("👋 **Welcome channel set to %s**", ref.Name)
	return nil
}

func (d *Dispatcher) cmdSetGoodbye(_ context.Context, r *request) error {
	ref := channelRef(r)
	d.Channels.SetGoodbye(ref)
	r.reply("👋 **Goodbye channel set to %s**", ref.Name)
	return nil
}

func (d *Dispatcher) cmdFeedback(ctx context.Context, r *request) error {
	if r.rest == "" {
		return &usageError{usage: r.cmd.usage}
	}
	ref, ok := d.Channels.Feedback()
	if !ok {
		r.reply("❗ **Feedback channel is not set. Please ask an admin to set it using `%ssetfeedback`.**", d.prefix)
		return nil
	}
	text := fmt.Sprintf("💬 **Feedback from %s:** %s", r.msg.AuthorName, r.rest)
	if err := d.Sender.Send(ctx, ref.Platform, ref.ID, text); err != nil {
		return fmt.Errorf("forward feedback: %w", err)
	}
	r.say("✅ **Thank you for your feedback!**")
	return nil
}

func (d *Dispatcher) cmdSearch(ctx context.Context, r *request) error {
	if r.rest == "" {
		return &usageError{usage: r.cmd.usage}
	}
	if d.Imgur == nil {
		return apis.ErrMissingKey
	}
	links, err := d.Imgur.SearchGallery(ctx, r.rest)
	if errors.Is(err, apis.ErrMissingKey) {
		return err
	}
	// a failed search reads as an empty one
	if err != nil || len(links) == 0 {
		r.reply("❗ No memes found for '%s'.", r.rest)
		return nil
	}
	r.reply("🔍 **Here's a random meme for you to search:** %s", links[d.pick(len(links))])
	return nil
}

func (d *Dispatcher) cmdClimateMeme(ctx context.Context, r *request) error {
	if d.Imgur == nil {
		return apis.ErrMissingKey
	}
	links, err := d.Imgur.ClimateMemes(ctx)
	if errors.Is(err, apis.ErrMissingKey) {
		return err
	}
	if err != nil || len(links) == 0 {
		r.say("❗ There was an error retrieving climate change memes or no memes were found.")
		return nil
	}
	r.reply("🌍 **A meme about climate change:** %s", links[d.pick(len(links))])
	return nil
}

func (d *Dispatcher) cmdClimateFact(_ context.Context, r *request) error {
	r.reply("🌍 **Did you know that?** %s", climateFacts[d.pick(len(climateFacts))])
	return nil
}

func (d *Dispatcher) cmdIP(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		return &usageError{usage: r.cmd.usage}
	}
	addr, err := netip.ParseAddr(r.args[0])
	if err != nil {
		return &memes.ValidationError{Field: "IP address", Value: r.args[0], Reason: "not an IPv4 or IPv6 address"}
	}
	if d.Ninjas == nil {
		return apis.ErrMissingKey
	}
	info, err := d.Ninjas.IPLookup(ctx, addr.String())
	if err != nil {
		return err
	}
	r.reply("🔍 **IP Lookup Result:**\n"+
		"🌍 **IP Address:** %s\n"+
		"🏳️ **Country-Code:** %s\n"+
		"🇺🇸 **Country:** %s\n"+
		"📍 **Region-Code:** %s\n"+
		"📍 **Region:** %s\n"+
		"🕒 **Timezone:** %s",
		info.IP, info.CountryCode, info.Country, info.RegionCode, info.Region, info.Timezone)
	return nil
}

func (d *Dispatcher) cmdPassword(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		return &usageError{usage: r.cmd.usage}
	}
	n, err := strconv.Atoi(r.args[0])
	if err != nil {
		return &argError{arg: r.args[0]}
	}
	if n < 1 || n > 128 {
		r.say("❗ Please enter a length between 1 and 128.")
		return &memes.ValidationError{Field: "length", Value: r.args[0], Reason: "must be between 1 and 128"}
	}
	if d.Ninjas == nil {
		return apis.ErrMissingKey
	}
	pw, err := d.Ninjas.Password(ctx, n)
	if err != nil {
		return err
	}
	r.reply("🔑 **Generated Password:** `%s`", pw)
	return nil
}

func (d *Dispatcher) cmdHobby(ctx context.Context, r *request) error {
	if d.Ninjas == nil {
		return apis.ErrMissingKey
	}
	h, err := d.Ninjas.Hobby(ctx)
	if err != nil {
		return err
	}
	r.reply("🎨 **Here's a hobby you might enjoy:** %s\n📂 **Category:** %s\n🔗 **Learn more:** %s", h.Name, h.Category, h.Link)
	return nil
}

func (d *Dispatcher) cmdFact(ctx context.Context, r *request) error {
	limit := apis.MaxFacts
	if len(r.args) > 0 {
		n, err := strconv.Atoi(r.args[0])
		if err != nil {
			return &argError{arg: r.args[0]}
		}
		limit = n
	}
	if limit < 1 || limit > 10 {
		r.say("❗ Please enter a limit between 1 and 10.")
		return &memes.ValidationError{Field: "limit", Value: strconv.Itoa(limit), Reason: "must be between 1 and 10"}
	}
	if d.Ninjas == nil {
		return apis.ErrMissingKey
	}
	facts, err := d.Ninjas.Facts(ctx)
	if errors.Is(err, apis.ErrMissingKey) {
		return err
	}
	if err != nil || len(facts) == 0 {
		r.say("❗ Sorry, I couldn't retrieve any facts right now.")
		return nil
	}
	for _, f := range facts[:min(limit, len(facts))] {
		r.reply("📚 **Fact:** %s", f)
	}
	return nil
}

func (d *Dispatcher) cmdWeather(ctx context.Context, r *request) error {
	if r.rest == "" {
		return &usageError{usage: r.cmd.usage}
	}
	if d.Weather == nil {
		return apis.ErrMissingKey
	}
	w, err := d.Weather.Current(ctx, r.rest)
	if errors.Is(err, apis.ErrNoData) {
		r.reply("❗ No weather data found for '%s'.", r.rest)
		return err
	}
	if err != nil {
		var terr *apis.TransportError
		if errors.As(err, &terr) {
			r.say("❗ An error occurred while receiving weather data.")
		}
		return err
	}
	r.reply("🌡️ **Weather in %s:**\nTemperature: %s°C\nCondition: %s", w.Location, strconv.FormatFloat(w.TempC, 'f', -1, 64), w.Condition)
	return nil
}

func (d *Dispatcher) cmdTrivia(ctx context.Context, r *request) error {
	q := triviaQuestions[d.pick(len(triviaQuestions))]
	key := triviaKey{platform: r.msg.Platform, channel: r.msg.ChannelID, user: r.msg.AuthorID}
	msg := r.msg
	expireCtx := context.WithoutCancel(ctx)
	d.trivia.ask(key, q, func() {
		_ = d.Sender.Send(expireCtx, msg.Platform, msg.ChannelID, "**⏳ Time's up!** You took too long to answer.")
	})
	r.reply("**📝 Question:** %s\nReply with your answer!", q.Question)
	return nil
}

func (d *Dispatcher) cmdHelp(_ context.Context, r *request) error {
	var b strings.Builder
	b.WriteString("**Available Commands:**")
	for _, c := range d.ordered {
		if c.name == "vote" && d.Store.Scope() != memes.ScopeMeme {
			continue
		}
		if c.name == "memevote" && d.Store.Scope() != memes.ScopeUser {
			continue
		}
		usage := c.usage
		if usage == "" {
			usage = c.name
		}
		fmt.Fprintf(&b, "\n**%s%s** - %s", d.prefix, usage, c.help)
		if c.admin {
			b.WriteString(" (admin only)")
		}
	}
	r.say(b.String())
	return nil
}
