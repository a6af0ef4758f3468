package command

import "strings"

// Level is the permission level a command requires.
type Level int

const (
	// Inherit takes the level of the parent command, or of the category.
	Inherit Level = iota
	Standard
	Moderator
	Administrator
	ServerOwner
	// Operator is reserved for the bot's own operators.
	Operator
)

var levelNames = []string{"inherit", "standard", "moderator", "administrator", "server_owner", "operator"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// Title is the human name used in help listings.
func (l Level) Title() string {
	switch l {
	case Moderator:
		return "Moderator"
	case Administrator:
		return "Administrator"
	case ServerOwner:
		return "Server Owner"
	case Operator:
		return "Operator"
	default:
		return "Standard"
	}
}

// GuildOnly reports whether the level only makes sense inside a guild. Such
// levels are not tested at all in DMs.
func (l Level) GuildOnly() bool {
	return l == Moderator || l == Administrator || l == ServerOwner
}

// Test reports whether actor satisfies the level. Operators pass every level.
func (l Level) Test(actor Actor) bool {
	if actor.Operator {
		return true
	}
	have := actor.Level
	if have < Standard {
		have = Standard
	}
	if l == Operator {
		return false
	}
	return have >= l
}

// ParseLevel parses a level name as stored in guild settings.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	for i, name := range levelNames {
		if i > 0 && name == s {
			return Level(i), true
		}
	}
	return Inherit, false
}
