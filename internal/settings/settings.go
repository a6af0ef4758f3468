// Package settings exposes per-guild configuration as a plain key/value
// lookup. The dispatcher reads it at admission time only and never writes.
//
// Keys in use:
//
//	level:<full command name>     permission level override, e.g. "moderator"
//	cooldown:<full command name>  cooldown override in seconds, "0" disables
//	disabled:<category>           "true" turns off a whole command category
package settings

import "strings"

// Lookup reads one setting of one guild.
type Lookup interface {
	Get(guildID, key string) (string, bool)
}

func LevelKey(command string) string {
	return "level:" + strings.ToLower(command)
}

func CooldownKey(command string) string {
	return "cooldown:" + strings.ToLower(command)
}

func DisabledKey(category string) string {
	return "disabled:" + strings.ToLower(category)
}

// Map is an in-memory Lookup keyed by guild id, then setting key.
type Map map[string]map[string]string

func (m Map) Get(guildID, key string) (string, bool) {
	v, ok := m[guildID][key]
	return v, ok
}

// None has no settings at all.
type None struct{}

func (None) Get(string, string) (string, bool) { return "", false }

// Chain asks each lookup in turn; the first hit wins.
type Chain []Lookup

func (c Chain) Get(guildID, key string) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if v, ok := l.Get(guildID, key); ok {
			return v, true
		}
	}
	return "", false
}
