// Package events defines the transport-neutral chat events hosts feed into
// the waiter. Each type declares a fixed tag family: its own tag first, then
// the broader tags it also counts as.
package events

import (
	"time"

	"github.com/keshon/botcore/internal/waiter"
)

const (
	TagAny            waiter.Tag = "any"
	TagMessage        waiter.Tag = "message"
	TagMessageCreate  waiter.Tag = "message_create"
	TagMessageDelete  waiter.Tag = "message_delete"
	TagReaction       waiter.Tag = "reaction"
	TagReactionAdd    waiter.Tag = "reaction_add"
	TagReactionRemove waiter.Tag = "reaction_remove"
	TagMember         waiter.Tag = "member"
	TagMemberJoin     waiter.Tag = "member_join"
	TagMemberLeave    waiter.Tag = "member_leave"
	TagLifecycle      waiter.Tag = "lifecycle"
	TagReady          waiter.Tag = "ready"
	TagShutdown       waiter.Tag = "shutdown"
)

// Message is a message posted in a channel. GuildID is empty in DMs.
type Message struct {
	ID        string
	AuthorID  string
	ChannelID string
	GuildID   string
	Content   string
	Bot       bool
	Time      time.Time
}

func (Message) Tags() []waiter.Tag {
	return []waiter.Tag{TagMessageCreate, TagMessage, TagAny}
}

// MessageDelete reports a deleted message.
type MessageDelete struct {
	ID        string
	ChannelID string
	GuildID   string
}

func (MessageDelete) Tags() []waiter.Tag {
	return []waiter.Tag{TagMessageDelete, TagMessage, TagAny}
}

// ReactionAdd is a reaction added to a message.
type ReactionAdd struct {
	UserID    string
	MessageID string
	ChannelID string
	GuildID   string
	Emoji     string
}

func (ReactionAdd) Tags() []waiter.Tag {
	return []waiter.Tag{TagReactionAdd, TagReaction, TagAny}
}

// ReactionRemove is a reaction removed from a message.
type ReactionRemove struct {
	UserID    string
	MessageID string
	ChannelID string
	GuildID   string
	Emoji     string
}

func (ReactionRemove) Tags() []waiter.Tag {
	return []waiter.Tag{TagReactionRemove, TagReaction, TagAny}
}

// MemberJoin is a user joining a guild.
type MemberJoin struct {
	UserID  string
	GuildID string
}

func (MemberJoin) Tags() []waiter.Tag {
	return []waiter.Tag{TagMemberJoin, TagMember, TagAny}
}

// MemberLeave is a user leaving a guild.
type MemberLeave struct {
	UserID  string
	GuildID string
}

func (MemberLeave) Tags() []waiter.Tag {
	return []waiter.Tag{TagMemberLeave, TagMember, TagAny}
}

// Ready is emitted once the transport is connected.
type Ready struct {
	SelfID string
}

func (Ready) Tags() []waiter.Tag {
	return []waiter.Tag{TagReady, TagLifecycle, TagAny}
}

// Shutdown is emitted when the transport goes away.
type Shutdown struct{}

func (Shutdown) Tags() []waiter.Tag {
	return []waiter.Tag{TagShutdown, TagLifecycle, TagAny}
}
