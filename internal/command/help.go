package command

import (
	"fmt"
	"sort"
	"strings"
)

const noHelp = "No help available."

// Describe renders the help text of n as seen by the actor of inv.
func Describe(n *Node, inv *Invocation) string {
	var sb strings.Builder

	where := "DM"
	if inv.IsGuild() {
		where = fmt.Sprintf("<#%s>", inv.Location.ChannelID)
	}
	fmt.Fprintf(&sb, "__Available help for **%s Command** in %s__\n", n.name, where)

	fmt.Fprintf(&sb, "\n**Usage:** `%s%s", inv.Prefix, strings.ToLower(n.FullName()))
	if n.arguments != "" {
		sb.WriteString(" " + n.arguments)
	}
	sb.WriteString("`")

	if len(n.aliases) > 0 {
		label := "Alias"
		if len(n.aliases) > 1 {
			label = "Aliases"
		}
		fmt.Fprintf(&sb, "\n**%s:** `%s`", label, strings.Join(n.aliases, "`, `"))
	}

	if n.help != "" && n.help != noHelp {
		fmt.Fprintf(&sb, "\n**Function:** `%s`\n", n.help)
	}

	children := visibleChildren(n, inv)
	if len(children) == 0 {
		return sb.String()
	}

	sb.WriteString("\n**Sub-Commands:**\n\n")
	var current Level
	for i, c := range children {
		if c.level != current {
			current = c.level
			if current != Standard {
				if i != 0 {
					sb.WriteString("\n")
				}
				fmt.Fprintf(&sb, "__%s__\n\n", current.Title())
			}
		}
		fmt.Fprintf(&sb, "`%s%s", inv.Prefix, strings.ToLower(c.FullName()))
		if c.arguments != "" {
			sb.WriteString(" " + c.arguments)
		}
		sb.WriteString("` - " + helpOf(c))
		if i < len(children)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Listing renders the root command list for the actor of inv, grouped by
// category. Commands the actor could not run are left out.
func Listing(t *Tree, inv *Invocation) string {
	var sb strings.Builder
	sb.WriteString("**Available Commands**\n")

	var current *Category
	first := true
	for _, n := range t.Commands() {
		if !Visible(n, inv) {
			continue
		}
		if first || n.category != current {
			current = n.category
			name := "General"
			if current != nil {
				name = current.Name
			}
			fmt.Fprintf(&sb, "\n__%s__\n", name)
			first = false
		}
		fmt.Fprintf(&sb, "`%s%s", inv.Prefix, strings.ToLower(n.name))
		if n.arguments != "" {
			sb.WriteString(" " + n.arguments)
		}
		sb.WriteString("` - " + helpOf(n) + "\n")
	}

	fmt.Fprintf(&sb, "\nUse `%s<command> help` for more info on a command.", inv.Prefix)
	return sb.String()
}

// Visible reports whether the actor of inv would pass the silent admission
// checks of n, i.e. whether listing it makes sense.
func Visible(n *Node, inv *Invocation) bool {
	if n.guildOnly && !inv.IsGuild() {
		return false
	}
	if n.operatorOnly && !inv.Actor.Operator {
		return false
	}
	level := n.level
	if inv.dispatcher != nil {
		level = inv.dispatcher.levelFor(n, inv.Location)
	}
	if level.GuildOnly() && !inv.IsGuild() {
		return true
	}
	return level.Test(inv.Actor)
}

func visibleChildren(n *Node, inv *Invocation) []*Node {
	var out []*Node
	for _, c := range n.children {
		if Visible(c, inv) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].level < out[j].level })
	return out
}

func helpOf(n *Node) string {
	if n.help == "" {
		return noHelp
	}
	return n.help
}
