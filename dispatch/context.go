package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Context carries everything a handler needs: the session handle, the
// triggering message, the resolved guild snapshot, and the bound arguments.
// It replaces any notion of a global bot singleton.
type Context struct {
	Ctx     context.Context
	Session *discordgo.Session
	Message *discordgo.Message
	Guild   *discordgo.Guild // nil in DMs
	Command *Command

	// Args holds the converted arguments in Params order. Optional params
	// that were absent hold nil.
	Args []any
}

// GuildID returns the invoking guild id, empty in DMs.
func (c *Context) GuildID() string {
	if c.Guild != nil {
		return c.Guild.ID
	}
	return ""
}

// ChannelID returns the invoking channel id.
func (c *Context) ChannelID() string {
	return c.Message.ChannelID
}

// Author returns the invoking user.
func (c *Context) Author() *discordgo.User {
	return c.Message.Author
}

// HasPermission reports whether the invoker holds the given guild-level
// permission bits.
func (c *Context) HasPermission(perms int64) bool {
	if c.Guild == nil || c.Message == nil {
		return false
	}
	return memberPermissions(c.Guild, c.Message.Member)&perms == perms
}

// Has reports whether the optional argument at index i was provided.
func (c *Context) Has(i int) bool {
	return i < len(c.Args) && c.Args[i] != nil
}

// Int returns the bound integer argument at index i.
func (c *Context) Int(i int) int64 {
	return c.Args[i].(int64)
}

// String returns the bound string (or remainder) argument at index i.
func (c *Context) String(i int) string {
	return c.Args[i].(string)
}

// Duration returns the bound duration argument at index i.
func (c *Context) Duration(i int) time.Duration {
	return c.Args[i].(time.Duration)
}

// MemberArg returns the bound member argument at index i.
func (c *Context) MemberArg(i int) *discordgo.Member {
	return c.Args[i].(*discordgo.Member)
}

// RoleArg returns the bound role argument at index i.
func (c *Context) RoleArg(i int) *discordgo.Role {
	return c.Args[i].(*discordgo.Role)
}

// ChannelArg returns the bound text channel argument at index i.
func (c *Context) ChannelArg(i int) *discordgo.Channel {
	return c.Args[i].(*discordgo.Channel)
}

// AmountArg returns the bound amount argument at index i.
func (c *Context) AmountArg(i int) Amount {
	return c.Args[i].(Amount)
}

// Members returns a greedy member argument at index i.
func (c *Context) Members(i int) []*discordgo.Member {
	return c.Args[i].([]*discordgo.Member)
}

// Roles returns a greedy role argument at index i.
func (c *Context) Roles(i int) []*discordgo.Role {
	return c.Args[i].([]*discordgo.Role)
}

// Channels returns a greedy channel argument at index i.
func (c *Context) Channels(i int) []*discordgo.Channel {
	return c.Args[i].([]*discordgo.Channel)
}

// Reply sends a plain message to the invoking channel.
func (c *Context) Reply(format string, args ...any) error {
	_, err := c.Session.ChannelMessageSend(c.Message.ChannelID, fmt.Sprintf(format, args...))
	return err
}

// ReplyEmbed sends an embed to the invoking channel.
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := c.Session.ChannelMessageSendEmbed(c.Message.ChannelID, embed)
	return err
}

// Amount is an integer argument that also accepts "all" and "half".
type Amount struct {
	Value int64
	All   bool
	Half  bool
}

// Resolve turns the amount into a concrete value against an available total.
func (a Amount) Resolve(available int64) int64 {
	switch {
	case a.All:
		return available
	case a.Half:
		return available / 2
	default:
		return a.Value
	}
}
