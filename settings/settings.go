// Package settings holds process-wide channel references set by admin
// commands. Nothing here is persisted; a restart clears it.
package settings

import "sync"

// ChannelRef points at one chat channel on one platform.
type ChannelRef struct {
	Platform string
	ID       string
	Name     string
}

// IsZero reports whether the ref has not been set.
func (c ChannelRef) IsZero() bool { return c.ID == "" }

// Channels stores the announcement, feedback, welcome and goodbye channels.
type Channels struct {
	mu           sync.RWMutex
	announcement ChannelRef
	feedback     ChannelRef
	welcome      ChannelRef
	goodbye      ChannelRef
}

// SetAnnouncement overwrites the announcement channel.
func (c *Channels) SetAnnouncement(ref ChannelRef) {
	c.mu.Lock()
	c.announcement = ref
	c.mu.Unlock()
}

// Announcement returns the announcement channel and whether one is set.
func (c *Channels) Announcement() (ChannelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.announcement, !c.announcement.IsZero()
}

// SetFeedback overwrites the feedback channel.
func (c *Channels) SetFeedback(ref ChannelRef) {
	c.mu.Lock()
	c.feedback = ref
	c.mu.Unlock()
}

// Feedback returns the feedback channel and whether one is set.
func (c *Channels) Feedback() (ChannelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedback, !c.feedback.IsZero()
}

// SetWelcome overwrites the welcome channel.
func (c *Channels) SetWelcome(ref ChannelRef) {
	c.mu.Lock()
	c.welcome = ref
	c.mu.Unlock()
}

// Welcome returns the channel greeting new members.
func (c *Channels) Welcome() (ChannelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.welcome, !c.welcome.IsZero()
}

// SetGoodbye overwrites the goodbye channel.
func (c *Channels) SetGoodbye(ref ChannelRef) {
	c.mu.Lock()
	c.goodbye = ref
	c.mu.Unlock()
}

// Goodbye returns the channel noting departed members.
func (c *Channels) Goodbye() (ChannelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.goodbye, !c.goodbye.IsZero()
}
