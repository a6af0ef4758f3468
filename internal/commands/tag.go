package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/settings"
)

const (
	maxTagName    = 50
	maxTagContent = 1900
)

func tagSpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:        "Tag",
		Aliases:     []string{"t"},
		Help:        "Shows a tag.",
		Arguments:   "<name>",
		Category:    Tags,
		RequireArgs: true,
		Run: func(_ context.Context, inv *command.Invocation) error {
			name, _ := command.SplitArgs(inv.Args)
			tag, ok := deps.Store.GetTag(inv.Location.GuildID, name)
			if !ok {
				return inv.ReplyError(fmt.Sprintf("Tag `%s` does not exist.", name))
			}
			return inv.Reply(tag.Content)
		},
		Children: []*command.Spec{
			{
				Name:        "Create",
				Aliases:     []string{"add", "new"},
				Help:        "Creates a new tag.",
				Arguments:   "<name> <content>",
				RequireArgs: true,
				Cooldown:    command.Cooldown{Duration: 120 * time.Second, Scope: cooldown.UserGuild, Timing: cooldown.After},
				Run:         createTag(deps),
			},
			{
				Name:        "Delete",
				Aliases:     []string{"remove", "rm"},
				Help:        "Deletes a tag. Only its owner or a moderator can do that.",
				Arguments:   "<name>",
				RequireArgs: true,
				Run:         deleteTag(deps),
			},
			{
				Name:    "List",
				Aliases: []string{"all"},
				Help:    "Lists this server's tags.",
				Run:     listTags(deps),
			},
		},
	}
}

func createTag(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		name, content := command.SplitArgs(inv.Args)
		switch {
		case content == "":
			return inv.ReplyError("A tag needs some content.")
		case len(name) > maxTagName:
			return inv.ReplyError(fmt.Sprintf("Tag names can be at most %d characters long.", maxTagName))
		case len(content) > maxTagContent:
			return inv.ReplyError(fmt.Sprintf("Tag content can be at most %d characters long.", maxTagContent))
		}

		err := deps.Store.PutTag(inv.Location.GuildID, settings.Tag{
			Name:    name,
			Content: content,
			OwnerID: inv.Actor.ID,
			Created: inv.Time,
		})
		if errors.Is(err, settings.ErrTagExists) {
			return inv.ReplyError(fmt.Sprintf("Tag `%s` already exists.", name))
		}
		if err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
		return inv.ReplySuccess(fmt.Sprintf("Tag `%s` was created.", name))
	}
}

func deleteTag(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		name, _ := command.SplitArgs(inv.Args)
		tag, ok := deps.Store.GetTag(inv.Location.GuildID, name)
		if !ok {
			return inv.ReplyError(fmt.Sprintf("Tag `%s` does not exist.", name))
		}
		if tag.OwnerID != inv.Actor.ID && !command.Moderator.Test(inv.Actor) {
			return inv.ReplyError("You can only delete your own tags.")
		}
		if _, err := deps.Store.DeleteTag(inv.Location.GuildID, name); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return inv.ReplySuccess(fmt.Sprintf("Tag `%s` was deleted.", tag.Name))
	}
}

func listTags(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		names, err := deps.Store.Tags(inv.Location.GuildID)
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		if len(names) == 0 {
			return inv.ReplyWarning("This server has no tags yet.")
		}
		return inv.Reply(fmt.Sprintf("**Tags (%d):** `%s`", len(names), strings.Join(names, "`, `")))
	}
}
