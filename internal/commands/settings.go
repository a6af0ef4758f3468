package commands

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/settings"
)

const resetWord = "reset"

func settingsSpec(deps Deps) *command.Spec {
	return &command.Spec{
		Name:       "Settings",
		Aliases:    []string{"config"},
		Help:       "Shows this server's command settings.",
		Category:   Settings,
		FixedLevel: true,
		Run:        showSettings(deps),
		Children: []*command.Spec{
			{
				Name:        "Disable",
				Help:        "Turns off a category of commands.",
				Arguments:   "<category>",
				RequireArgs: true,
				Run:         toggleCategory(deps, false),
			},
			{
				Name:        "Enable",
				Help:        "Turns a category of commands back on.",
				Arguments:   "<category>",
				RequireArgs: true,
				Run:         toggleCategory(deps, true),
			},
			{
				Name:        "Level",
				Help:        "Changes who can use a command.",
				Arguments:   "<command> <standard|moderator|administrator|server_owner|reset>",
				RequireArgs: true,
				Run:         setLevel(deps),
			},
			{
				Name:        "Cooldown",
				Help:        "Changes a command's cooldown. 0 turns it off.",
				Arguments:   "<command> <seconds|reset>",
				RequireArgs: true,
				Run:         setCooldown(deps),
			},
		},
	}
}

func showSettings(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		values, err := deps.Store.All(inv.Location.GuildID)
		if err != nil {
			return fmt.Errorf("read settings: %w", err)
		}
		if len(values) == 0 {
			return inv.Reply("All commands use their default settings.")
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		var sb strings.Builder
		sb.WriteString("**Command Settings**\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "`%s` = `%s`\n", k, values[k])
		}
		return inv.Reply(strings.TrimSuffix(sb.String(), "\n"))
	}
}

func toggleCategory(deps Deps, enable bool) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		i := slices.IndexFunc(toggleable, func(c *command.Category) bool {
			return strings.EqualFold(c.Name, inv.Args)
		})
		if i < 0 {
			names := make([]string, len(toggleable))
			for j, c := range toggleable {
				names[j] = c.Name
			}
			return inv.ReplyError(fmt.Sprintf("Unknown category `%s`. Choose one of: %s", inv.Args, strings.Join(names, ", ")))
		}
		category := toggleable[i]

		guildID := inv.Location.GuildID
		if enable {
			if err := deps.Store.EnableCategory(guildID, category.Name); err != nil {
				return fmt.Errorf("enable category: %w", err)
			}
			return inv.ReplySuccess(fmt.Sprintf("**%s** commands are enabled.", category.Name))
		}
		if err := deps.Store.DisableCategory(guildID, category.Name); err != nil {
			return fmt.Errorf("disable category: %w", err)
		}
		return inv.ReplySuccess(fmt.Sprintf("**%s** commands are disabled.", category.Name))
	}
}

// target splits "<command...> <value>" and resolves the command.
func target(inv *command.Invocation) (*command.Node, string, bool) {
	fields := strings.Fields(inv.Args)
	if len(fields) < 2 {
		return nil, "", false
	}
	value := fields[len(fields)-1]
	res := inv.Tree().Find(strings.Join(fields[:len(fields)-1], " "))
	if res == nil || res.Help || res.Args != "" {
		return nil, value, false
	}
	return res.Node, value, true
}

func setLevel(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		node, value, ok := target(inv)
		if !ok {
			return inv.ReplyError("I couldn't find that command.")
		}
		if !node.Adjustable() || node.OperatorOnly() {
			return inv.ReplyError(fmt.Sprintf("The level of `%s` cannot be changed.", node.FullName()))
		}

		key := settings.LevelKey(node.FullName())
		guildID := inv.Location.GuildID
		if strings.EqualFold(value, resetWord) {
			if err := deps.Store.Delete(guildID, key); err != nil {
				return fmt.Errorf("reset level: %w", err)
			}
			return inv.ReplySuccess(fmt.Sprintf("`%s` is back to the **%s** level.", node.FullName(), node.Level().Title()))
		}

		level, ok := command.ParseLevel(value)
		if !ok || level == command.Operator {
			return inv.ReplyError(fmt.Sprintf("`%s` is not a valid level.", value))
		}
		if err := deps.Store.Set(guildID, key, level.String()); err != nil {
			return fmt.Errorf("set level: %w", err)
		}
		return inv.ReplySuccess(fmt.Sprintf("`%s` now requires the **%s** level.", node.FullName(), level.Title()))
	}
}

func setCooldown(deps Deps) command.Body {
	return func(_ context.Context, inv *command.Invocation) error {
		node, value, ok := target(inv)
		if !ok {
			return inv.ReplyError("I couldn't find that command.")
		}
		if node.Cooldown().Duration <= 0 {
			return inv.ReplyError(fmt.Sprintf("`%s` has no cooldown.", node.FullName()))
		}

		key := settings.CooldownKey(node.FullName())
		guildID := inv.Location.GuildID
		if strings.EqualFold(value, resetWord) {
			if err := deps.Store.Delete(guildID, key); err != nil {
				return fmt.Errorf("reset cooldown: %w", err)
			}
			return inv.ReplySuccess(fmt.Sprintf("`%s` is back to a %d second cooldown.", node.FullName(), int(node.Cooldown().Duration.Seconds())))
		}

		secs, err := strconv.Atoi(value)
		if err != nil || secs < 0 {
			return inv.ReplyError(fmt.Sprintf("`%s` is not a valid number of seconds.", value))
		}
		if err := deps.Store.Set(guildID, key, strconv.Itoa(secs)); err != nil {
			return fmt.Errorf("set cooldown: %w", err)
		}
		if secs == 0 {
			return inv.ReplySuccess(fmt.Sprintf("`%s` no longer has a cooldown.", node.FullName()))
		}
		return inv.ReplySuccess(fmt.Sprintf("`%s` now has a %d second cooldown.", node.FullName(), secs))
	}
}
