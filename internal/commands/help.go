package commands

import (
	"context"
	"fmt"

	"github.com/keshon/botcore/internal/command"
)

func helpSpec() *command.Spec {
	return &command.Spec{
		Name:      "Help",
		Aliases:   []string{"commands"},
		Help:      "Lists the commands you can use, or describes one of them.",
		Arguments: "[command]",
		Run: func(_ context.Context, inv *command.Invocation) error {
			if inv.Args == "" {
				return inv.Reply(command.Listing(inv.Tree(), inv))
			}
			res := inv.Tree().Find(inv.Args)
			if res == nil || !command.Visible(res.Node, inv) {
				return inv.ReplyError(fmt.Sprintf("There is no command called `%s`.", inv.Args))
			}
			return inv.Reply(command.Describe(res.Node, inv))
		},
	}
}
