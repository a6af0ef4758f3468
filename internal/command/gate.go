package command

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/settings"
)

const (
	botPermissionError = "❌ I need the %s permission in this %s!"
	noVoiceError       = "❌ You must be in a voice channel to use that!"
	missingArgsHeader  = "❌ **Missing Arguments!**\n"
	missingArgsDefault = "Use `%prefix%name help` for more info on this command!"
)

// outcome of one admission step. A rejection without a message is silent.
type outcome struct {
	pass    bool
	message string
}

var admitted = outcome{pass: true}

func silent() outcome                { return outcome{} }
func visible(message string) outcome { return outcome{message: message} }

type step func(d *Dispatcher, inv *Invocation, req Request) outcome

// Steps before the help short-circuit. They never report.
var preHelp = []step{
	checkGuildOnly,
	checkOperatorOnly,
	checkPredicates,
}

// Steps after the help short-circuit. All but the level test report.
var postHelp = []step{
	checkLevel,
	checkCapabilities,
	checkCooldown,
	checkArguments,
}

// runSteps applies steps in order. A step that panics, usually a host or
// command predicate, rejects the invocation silently.
func runSteps(steps []step, d *Dispatcher, inv *Invocation, req Request, log *zap.Logger) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Admission check panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			o = silent()
		}
	}()
	for _, s := range steps {
		if o := s(d, inv, req); !o.pass {
			return o
		}
	}
	return admitted
}

func checkGuildOnly(_ *Dispatcher, inv *Invocation, _ Request) outcome {
	if inv.Node.guildOnly && !inv.IsGuild() {
		return silent()
	}
	return admitted
}

func checkOperatorOnly(_ *Dispatcher, inv *Invocation, _ Request) outcome {
	if inv.Node.operatorOnly && !inv.Actor.Operator {
		return silent()
	}
	return admitted
}

func checkPredicates(d *Dispatcher, inv *Invocation, _ Request) outcome {
	if c := inv.Node.category; c != nil {
		if inv.IsGuild() && flagSet(d.settings, inv.Location.GuildID, settings.DisabledKey(c.Name)) {
			return silent()
		}
		if c.Check != nil && !c.Check(inv) {
			return silent()
		}
	}
	if inv.Node.check != nil && !inv.Node.check(inv) {
		return silent()
	}
	return admitted
}

func checkLevel(d *Dispatcher, inv *Invocation, _ Request) outcome {
	level := d.levelFor(inv.Node, inv.Location)
	if level.GuildOnly() && !inv.IsGuild() {
		return admitted
	}
	if !level.Test(inv.Actor) {
		return silent()
	}
	return admitted
}

func checkCapabilities(_ *Dispatcher, inv *Invocation, req Request) outcome {
	if !inv.IsGuild() || req.Capabilities == nil {
		return admitted
	}
	for _, c := range inv.Node.capabilities {
		if c.Voice {
			vc := inv.Location.VoiceChannelID
			if vc == "" {
				return visible(noVoiceError)
			}
			if !req.Capabilities.BotHas(c, vc) {
				return visible(fmt.Sprintf(botPermissionError, c.Name, "Voice Channel"))
			}
			continue
		}
		if !req.Capabilities.BotHas(c, inv.Location.ChannelID) {
			return visible(fmt.Sprintf(botPermissionError, c.Name, "Guild"))
		}
	}
	return admitted
}

func checkCooldown(d *Dispatcher, inv *Invocation, _ Request) outcome {
	cd := inv.Node.cooldown
	duration := d.cooldownFor(inv.Node, inv.Location)
	if duration <= 0 {
		return admitted
	}
	inv.key = cooldown.Key(inv.Node.Identity(), cd.Scope, cooldown.Identity{
		UserID:    inv.Actor.ID,
		ChannelID: inv.Location.ChannelID,
		GuildID:   inv.Location.GuildID,
	})
	inv.cooldown = duration

	remaining := d.tracker.Remaining(inv.key)
	if remaining <= 0 {
		return admitted
	}
	msg := fmt.Sprintf("⚠️ That command is on cooldown for %d more seconds", remaining)
	if suffix := cd.Scope.Effective(inv.IsGuild()).Suffix(); suffix != "" {
		msg += " " + suffix
	}
	return visible(msg + "!")
}

func checkArguments(d *Dispatcher, inv *Invocation, _ Request) outcome {
	n := inv.Node
	if !n.requireArgs || inv.Args != "" {
		return admitted
	}
	template := n.missingArgs
	if template == "" {
		template = missingArgsDefault
	}
	r := strings.NewReplacer(
		"%prefix", d.prefix,
		"%name", n.FullName(),
		"%arguments", n.arguments,
	)
	return visible(missingArgsHeader + r.Replace(template))
}

// levelFor returns the level the node requires at loc, taking guild overrides
// into account for nodes whose level is adjustable.
func (d *Dispatcher) levelFor(n *Node, loc Location) Level {
	if !n.adjustable || !loc.Grouped() {
		return n.level
	}
	raw, ok := d.settings.Get(loc.GuildID, settings.LevelKey(n.FullName()))
	if !ok {
		return n.level
	}
	level, ok := ParseLevel(raw)
	if !ok {
		d.logger.Sugar().Warnf("Ignoring invalid level override %q for %s in guild %s", raw, n.FullName(), loc.GuildID)
		return n.level
	}
	return level
}

// cooldownFor returns the node's cooldown at loc. A guild can override the
// duration in whole seconds, but cannot add a cooldown to a node without one.
func (d *Dispatcher) cooldownFor(n *Node, loc Location) time.Duration {
	base := n.cooldown.Duration
	if base <= 0 || !loc.Grouped() {
		return base
	}
	raw, ok := d.settings.Get(loc.GuildID, settings.CooldownKey(n.FullName()))
	if !ok {
		return base
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		d.logger.Sugar().Warnf("Ignoring invalid cooldown override %q for %s in guild %s", raw, n.FullName(), loc.GuildID)
		return base
	}
	return time.Duration(secs) * time.Second
}

func flagSet(l settings.Lookup, guildID, key string) bool {
	raw, ok := l.Get(guildID, key)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
