// Package welcome greets members joining a guild, using the guild's
// "welcome:channel" and "welcome:message" settings.
package welcome

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/events"
	"github.com/keshon/botcore/internal/settings"
)

const (
	ChannelKey = "welcome:channel"
	MessageKey = "welcome:message"

	// Cooldown stops a user who leaves and rejoins from being greeted again
	// right away.
	Cooldown = 100 * time.Second

	maxLength = 2000
)

// SendFunc posts text to a channel.
type SendFunc func(ctx context.Context, channelID, text string) error

// Welcomer sends the configured greeting on member join.
type Welcomer struct {
	tracker  *cooldown.Tracker
	settings settings.Lookup
	send     SendFunc
	logger   *zap.Logger
}

func New(tracker *cooldown.Tracker, lookup settings.Lookup, send SendFunc, logger *zap.Logger) *Welcomer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Welcomer{tracker: tracker, settings: lookup, send: send, logger: logger.Named("welcome")}
}

// Key is the cooldown key of a user's greeting in a guild.
func Key(userID, guildID string) string {
	return cooldown.Key("welcomes", cooldown.UserGuild, cooldown.Identity{UserID: userID, GuildID: guildID})
}

// Greet handles one join. It reports whether a greeting was sent.
func (w *Welcomer) Greet(ctx context.Context, ev events.MemberJoin) bool {
	channelID, ok := w.settings.Get(ev.GuildID, ChannelKey)
	if !ok || channelID == "" {
		return false
	}
	template, ok := w.settings.Get(ev.GuildID, MessageKey)
	if !ok {
		return false
	}

	key := Key(ev.UserID, ev.GuildID)
	if w.tracker.Remaining(key) > 0 {
		return false
	}

	text := strings.NewReplacer(
		"{user}", "<@"+ev.UserID+">",
		"{guild}", ev.GuildID,
		"{channel}", "<#"+channelID+">",
	).Replace(template)
	if text == "" || len(text) > maxLength {
		return false
	}

	if err := w.send(ctx, channelID, text); err != nil {
		w.logger.Warn("Failed to send welcome",
			zap.String("guild", ev.GuildID),
			zap.String("user", ev.UserID),
			zap.Error(err),
		)
		return false
	}
	w.tracker.Apply(key, Cooldown)
	return true
}
