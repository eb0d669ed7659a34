// Package chat connects the bot to chat platforms.
//
// Each platform is a Transport:
//   - Discord: a discordgo gateway session reading guild messages and member
//     joins and leaves. Authors with the Administrator permission in the
//     channel are admins.
//   - Twitch: a go-twitch-irc client joined to TWITCH_CHANNELS. Broadcasters
//     and moderators are admins.
//
// Incoming messages are normalised into Message and passed to a Handler on
// their own goroutine. A Registry looks transports up by platform name so
// replies and announcements can be routed back to the right network.
package chat
