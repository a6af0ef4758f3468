package command

import (
	"context"
	"strings"
	"time"

	"github.com/keshon/botcore/internal/cooldown"
)

// Body is the work a command does once admitted.
type Body func(ctx context.Context, inv *Invocation) error

// Check is an extra admission predicate. Returning false rejects silently.
type Check func(inv *Invocation) bool

// Category groups commands that share defaults, and can be disabled per
// guild as a whole.
type Category struct {
	Name         string
	Level        Level
	GuildOnly    bool
	OperatorOnly bool
	Check        Check
	// Weight orders categories in help listings, lower first.
	Weight int
}

// Capability is a permission the bot itself needs to run a command. Voice
// capabilities are checked in the actor's voice channel, everything else in
// the channel the command was used in.
type Capability struct {
	Name  string
	Voice bool
}

// Cooldown configures a command's rate limit.
type Cooldown struct {
	Duration time.Duration
	Scope    cooldown.Scope
	Timing   cooldown.Timing
}

// Spec declares a command. Specs are turned into an immutable tree of Nodes
// once at startup by NewTree.
type Spec struct {
	Name      string
	Aliases   []string
	Help      string
	Arguments string

	Category     *Category
	Level        Level
	FixedLevel   bool // guild settings cannot override the level
	GuildOnly    bool
	OperatorOnly bool
	Check        Check

	Capabilities []Capability
	Cooldown     Cooldown

	// RequireArgs rejects invocations without arguments. MissingArgs is the
	// error template; %prefix, %name and %arguments are substituted.
	RequireArgs bool
	MissingArgs string

	Run      Body
	Children []*Spec
}

// Node is a resolved command. It is immutable and safe to share.
type Node struct {
	name      string
	aliases   []string
	help      string
	arguments string

	parent   *Node
	children []*Node

	category     *Category
	level        Level
	adjustable   bool
	guildOnly    bool
	operatorOnly bool
	check        Check

	capabilities []Capability
	cooldown     Cooldown

	requireArgs bool
	missingArgs string

	run Body
}

func (n *Node) Name() string        { return n.name }
func (n *Node) Help() string        { return n.help }
func (n *Node) Arguments() string   { return n.arguments }
func (n *Node) Parent() *Node       { return n.parent }
func (n *Node) Category() *Category { return n.category }
func (n *Node) Level() Level        { return n.level }
func (n *Node) GuildOnly() bool     { return n.guildOnly }
func (n *Node) OperatorOnly() bool  { return n.operatorOnly }
func (n *Node) Cooldown() Cooldown  { return n.cooldown }

// Adjustable reports whether guild settings may override the level.
func (n *Node) Adjustable() bool { return n.adjustable }

// Aliases returns a copy of the node's aliases.
func (n *Node) Aliases() []string {
	return append([]string(nil), n.aliases...)
}

// Children returns a copy of the node's sub-commands, in declaration order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Capabilities returns a copy of the capabilities the bot needs.
func (n *Node) Capabilities() []Capability {
	return append([]Capability(nil), n.capabilities...)
}

// FullName is the space separated path from the root, e.g. "Tag Create".
func (n *Node) FullName() string {
	if n.parent == nil {
		return n.name
	}
	return n.parent.FullName() + " " + n.name
}

// Identity names the command in cooldown keys: the path without separators,
// e.g. "TagCreate".
func (n *Node) Identity() string {
	return strings.ReplaceAll(n.FullName(), " ", "")
}

// Matches reports whether token is the node's name or one of its aliases,
// ignoring case.
func (n *Node) Matches(token string) bool {
	if strings.EqualFold(token, n.name) {
		return true
	}
	for _, a := range n.aliases {
		if strings.EqualFold(token, a) {
			return true
		}
	}
	return false
}

func (n *Node) child(token string) *Node {
	for _, c := range n.children {
		if c.Matches(token) {
			return c
		}
	}
	return nil
}
