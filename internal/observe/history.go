package observe

import (
	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/settings"
)

// HistoryStore persists invocation history per guild.
type HistoryStore interface {
	AppendHistory(guildID string, entry settings.HistoryEntry) error
}

// History records guild invocations in a HistoryStore. Direct messages are
// not recorded.
type History struct {
	store  HistoryStore
	logger *zap.Logger
}

func NewHistory(store HistoryStore, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{store: store, logger: logger.Named("history")}
}

func (h *History) OnTerminated(inv *command.Invocation, _ string) { h.record(inv, "terminated") }
func (h *History) OnCompleted(inv *command.Invocation)            { h.record(inv, "completed") }
func (h *History) OnException(inv *command.Invocation, _ error)   { h.record(inv, "failed") }

func (h *History) record(inv *command.Invocation, outcome string) {
	if !inv.IsGuild() {
		return
	}
	err := h.store.AppendHistory(inv.Location.GuildID, settings.HistoryEntry{
		ChannelID: inv.Location.ChannelID,
		UserID:    inv.Actor.ID,
		Command:   inv.Node.FullName(),
		Args:      inv.Args,
		Outcome:   outcome,
		Datetime:  inv.Time,
	})
	if err != nil {
		h.logger.Warn("Failed to record command",
			zap.String("command", inv.Node.FullName()),
			zap.String("guild", inv.Location.GuildID),
			zap.Error(err),
		)
	}
}
