package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/cooldown"
)

func pingSpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:     "Ping",
		Aliases:  []string{"pong"},
		Help:     "Check bot latency.",
		Cooldown: command.Cooldown{Duration: 5 * time.Second, Scope: cooldown.UserChannel, Timing: cooldown.Before},
		Run: func(_ context.Context, inv *command.Invocation) error {
			var latency time.Duration
			if deps.Latency != nil {
				latency = deps.Latency()
			}
			msg := fmt.Sprintf("🏓 Pong! %dms", latency.Milliseconds())
			if !deps.Started.IsZero() {
				msg += fmt.Sprintf(" (up %s)", inv.Time.Sub(deps.Started).Truncate(time.Second))
			}
			return inv.Reply(msg)
		},
	}
}
