package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/waiter"
)

// Actor is whoever invoked a command. The host computes Level from its own
// notion of roles.
type Actor struct {
	ID       string
	Level    Level
	Operator bool
}

// Location is where a command was invoked. An empty GuildID means a direct
// message. VoiceChannelID is the actor's current voice channel, if any.
type Location struct {
	ChannelID      string
	GuildID        string
	VoiceChannelID string
}

// Grouped reports whether the location belongs to a guild.
func (l Location) Grouped() bool { return l.GuildID != "" }

// Sink delivers visible replies.
type Sink interface {
	SendVisible(ctx context.Context, text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, text string) error

func (f SinkFunc) SendVisible(ctx context.Context, text string) error { return f(ctx, text) }

// Capabilities answers whether the bot holds a capability in a channel.
type Capabilities interface {
	BotHas(c Capability, channelID string) bool
}

// CapabilitiesFunc adapts a function to Capabilities.
type CapabilitiesFunc func(c Capability, channelID string) bool

func (f CapabilitiesFunc) BotHas(c Capability, channelID string) bool { return f(c, channelID) }

// Request is one inbound invocation, prefix already stripped.
type Request struct {
	Text         string
	Actor        Actor
	Location     Location
	Capabilities Capabilities
	Sink         Sink
}

// Invocation is the per-request state handed to a command body.
type Invocation struct {
	ID       string
	Node     *Node
	Args     string
	Actor    Actor
	Location Location
	Prefix   string
	Time     time.Time

	ctx        context.Context
	sink       Sink
	dispatcher *Dispatcher
	key        string
	cooldown   time.Duration
}

func newInvocation(ctx context.Context, d *Dispatcher, req Request, res *Resolution) *Invocation {
	return &Invocation{
		ID:         uuid.NewString(),
		Node:       res.Node,
		Args:       res.Args,
		Actor:      req.Actor,
		Location:   req.Location,
		Prefix:     d.prefix,
		Time:       d.tracker.Now(),
		ctx:        ctx,
		sink:       req.Sink,
		dispatcher: d,
	}
}

// Context is the context the invocation runs under.
func (inv *Invocation) Context() context.Context { return inv.ctx }

// IsGuild reports whether the command was used inside a guild.
func (inv *Invocation) IsGuild() bool { return inv.Location.Grouped() }

// Reply sends text to where the command was used.
func (inv *Invocation) Reply(text string) error {
	if inv.sink == nil {
		return nil
	}
	return inv.sink.SendVisible(inv.ctx, text)
}

func (inv *Invocation) ReplySuccess(text string) error { return inv.Reply("✅ " + text) }
func (inv *Invocation) ReplyWarning(text string) error { return inv.Reply("⚠️ " + text) }
func (inv *Invocation) ReplyError(text string) error   { return inv.Reply("❌ " + text) }

// InvokeCooldown starts the node's cooldown now. Bodies of nodes with timing
// Off use it to decide themselves when the cooldown counts.
func (inv *Invocation) InvokeCooldown() {
	if inv.key == "" || inv.cooldown <= 0 {
		return
	}
	inv.dispatcher.tracker.Apply(inv.key, inv.cooldown)
}

// CooldownKey is the tracker key of this invocation, or "" if the node has
// no cooldown.
func (inv *Invocation) CooldownKey() string { return inv.key }

// Cooldowns exposes the tracker for ad-hoc keys.
func (inv *Invocation) Cooldowns() *cooldown.Tracker { return inv.dispatcher.tracker }

// Waiter returns the event waiter, or nil if the host did not configure one.
func (inv *Invocation) Waiter() *waiter.Waiter { return inv.dispatcher.waiter }

// Tree returns the command tree the invocation was resolved in.
func (inv *Invocation) Tree() *Tree { return inv.dispatcher.tree }
