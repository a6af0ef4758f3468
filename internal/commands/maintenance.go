package commands

import (
	"context"
	"strings"
	"time"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/events"
	"github.com/keshon/botcore/internal/waiter"
)

// RestartConfirmTimeout is how long Restart waits for a "yes".
const RestartConfirmTimeout = 30 * time.Second

func jobsSpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:     "Jobs",
		Help:     "Shows the background jobs that are running.",
		Category: Maintenance,
		Run: func(_ context.Context, inv *command.Invocation) error {
			if deps.Jobs == nil {
				return inv.ReplyError("Background jobs are not available.")
			}
			return inv.Reply(deps.Jobs.Status())
		},
	}
}

func restartSpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:     "Restart",
		Aliases:  []string{"reboot"},
		Help:     "Restarts the bot after confirmation.",
		Category: Maintenance,
		Run: func(ctx context.Context, inv *command.Invocation) error {
			w := inv.Waiter()
			if deps.Restart == nil || w == nil {
				return inv.ReplyError("Restarting is not available.")
			}
			if err := inv.ReplyWarning("Restart the bot? Reply `yes` within 30 seconds."); err != nil {
				return err
			}

			confirmed, err := waiter.DelayUntil(ctx, w, events.TagMessageCreate, func(m events.Message) bool {
				return m.AuthorID == inv.Actor.ID &&
					m.ChannelID == inv.Location.ChannelID &&
					strings.EqualFold(strings.TrimSpace(m.Content), "yes")
			}, waiter.WithTimeout(RestartConfirmTimeout))
			if err != nil {
				return err
			}
			if !confirmed {
				return inv.ReplyWarning("Restart cancelled.")
			}

			if err := inv.ReplySuccess("Restarting..."); err != nil {
				return err
			}
			deps.Restart()
			return nil
		},
	}
}
