// Package cooldown tracks scoped command cooldowns.
//
// A cooldown is stored under a key derived from the command identity, the
// scope and the identifiers of the invocation. Keys are plain strings such as
//
//	TagCreate|U:1234|G:5678
//
// so hosts can also apply ad-hoc cooldowns (welcome messages, reminders)
// without going through a command.
package cooldown

import "fmt"

// Scope is the identity granularity a cooldown is keyed against.
type Scope int

const (
	// User keys on the invoking user: `U:(UserID)`.
	User Scope = iota
	// Channel keys on the channel: `C:(ChannelID)`.
	Channel
	// UserChannel keys on user and channel: `U:(UserID)|C:(ChannelID)`.
	UserChannel
	// Guild keys on the guild: `G:(GuildID)`. Degrades to Channel in DMs.
	Guild
	// UserGuild keys on user and guild: `U:(UserID)|G:(GuildID)`.
	// Degrades to UserChannel in DMs.
	UserGuild
	// Global keys on the command only.
	Global
)

var scopeNames = map[Scope]string{
	User:        "user",
	Channel:     "channel",
	UserChannel: "user_channel",
	Guild:       "guild",
	UserGuild:   "user_guild",
	Global:      "global",
}

var scopeSuffixes = map[Scope]string{
	User:        "",
	Channel:     "in this channel",
	UserChannel: "in this channel",
	Guild:       "in this server",
	UserGuild:   "in this server",
	Global:      "globally",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Suffix is appended to the "on cooldown" warning, e.g. "in this server".
func (s Scope) Suffix() string {
	return scopeSuffixes[s]
}

// Effective returns the scope actually used for an invocation. Guild scoped
// cooldowns have no guild outside of one and fall back to channel scopes.
func (s Scope) Effective(grouped bool) Scope {
	if grouped {
		return s
	}
	switch s {
	case Guild:
		return Channel
	case UserGuild:
		return UserChannel
	}
	return s
}

// ParseScope parses the lower-case scope name used in settings files.
func ParseScope(name string) (Scope, bool) {
	for s, n := range scopeNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Identity holds the identifiers a key may be derived from. An empty GuildID
// means the invocation came from a private (ungrouped) location.
type Identity struct {
	UserID    string
	ChannelID string
	GuildID   string
}

// Key derives the cooldown key for a command. It is a pure function of its
// arguments and never embeds an empty guild id.
func Key(name string, scope Scope, id Identity) string {
	switch scope.Effective(id.GuildID != "") {
	case User:
		return name + "|U:" + id.UserID
	case Channel:
		return name + "|C:" + id.ChannelID
	case UserChannel:
		return name + "|U:" + id.UserID + "|C:" + id.ChannelID
	case Guild:
		return name + "|G:" + id.GuildID
	case UserGuild:
		return name + "|U:" + id.UserID + "|G:" + id.GuildID
	default:
		return name + "|Global"
	}
}

// Timing controls when a command's cooldown is applied automatically.
type Timing int

const (
	// Off never applies the cooldown automatically; the command body does it.
	Off Timing = iota
	// Before applies the cooldown right before the body runs.
	Before
	// After applies the cooldown once the body returned without error.
	After
)

func (t Timing) String() string {
	switch t {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "off"
	}
}
