package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/botcore/internal/command"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper) - 2

func historySpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:     "History",
		Aliases:  []string{"log"},
		Help:     "Reviews the most recent commands used in this server.",
		Category: Settings,
		Run: func(_ context.Context, inv *command.Invocation) error {
			records, err := deps.Store.History(inv.Location.GuildID)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(records) == 0 {
				return inv.Reply("No commands have been used yet.")
			}

			var builder strings.Builder
			builder.WriteString(fmt.Sprintf("%-19s\t%-20s\t%-10s\t%s\n", "# Datetime", "# User", "# Outcome", "# Command"))

			// latest first
			for i := len(records) - 1; i >= 0; i-- {
				r := records[i]
				line := fmt.Sprintf("%-19s\t%-20s\t%-10s\t%s%s\n",
					r.Datetime.Format("2006-01-02 15:04:05"),
					r.UserID,
					r.Outcome,
					inv.Prefix,
					strings.ToLower(r.Command),
				)
				if builder.Len()+len(line) > maxContentLength {
					break
				}
				builder.WriteString(line)
			}

			return inv.Reply(codeLeftBlockWrapper + "\n" + builder.String() + codeRightBlockWrapper)
		},
	}
}
