package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/settings"
	"github.com/keshon/botcore/internal/waiter"
)

const unexpectedError = "❌ An unexpected error occurred, please try again later!"

// PanicError wraps a panic recovered from a command body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command panicked: %v", e.Value)
}

// Options configures a Dispatcher. Every field is optional.
type Options struct {
	Prefix   string
	Settings settings.Lookup
	Waiter   *waiter.Waiter
	Observer Observer
	Logger   *zap.Logger
}

// Dispatcher resolves, admits and runs commands. It is safe for concurrent
// use; invocations of the same command are not serialised.
type Dispatcher struct {
	tree     *Tree
	tracker  *cooldown.Tracker
	prefix   string
	settings settings.Lookup
	waiter   *waiter.Waiter
	observer Observer
	logger   *zap.Logger

	uses sync.Map // lower-case full name -> *atomic.Int64
}

func NewDispatcher(tree *Tree, tracker *cooldown.Tracker, opts Options) *Dispatcher {
	d := &Dispatcher{
		tree:     tree,
		tracker:  tracker,
		prefix:   opts.Prefix,
		settings: opts.Settings,
		waiter:   opts.Waiter,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
	if d.tracker == nil {
		d.tracker = cooldown.NewTracker()
	}
	if d.settings == nil {
		d.settings = settings.None{}
	}
	if d.observer == nil {
		d.observer = NopObserver{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	d.logger = d.logger.Named("dispatch")
	return d
}

func (d *Dispatcher) Tree() *Tree { return d.tree }

func (d *Dispatcher) Prefix() string { return d.prefix }

// Dispatch handles one invocation. It returns false when the text does not
// name a command, leaving it to the host. Nothing the command does escapes
// Dispatch: failures end up with the observer and as a generic reply.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) bool {
	name, args := SplitArgs(strings.TrimSpace(req.Text))
	if name == "" {
		return false
	}
	res := d.tree.Resolve(name, args)
	if res == nil {
		return false
	}

	inv := newInvocation(ctx, d, req, res)
	log := d.logger.With(
		zap.String("invocation", inv.ID),
		zap.String("command", res.Node.FullName()),
		zap.String("user", req.Actor.ID),
		zap.String("channel", req.Location.ChannelID),
		zap.String("guild", req.Location.GuildID),
	)

	if o := runSteps(preHelp, d, inv, req, log); !o.pass {
		log.Debug("Rejected silently")
		return true
	}
	if res.Help {
		d.reply(inv, Describe(res.Node, inv))
		return true
	}
	if o := runSteps(postHelp, d, inv, req, log); !o.pass {
		if o.message == "" {
			log.Debug("Rejected silently")
			return true
		}
		d.terminate(inv, o.message)
		return true
	}

	d.execute(inv, log)
	return true
}

func (d *Dispatcher) execute(inv *Invocation, log *zap.Logger) {
	timing := inv.Node.cooldown.Timing
	if timing == cooldown.Before {
		inv.InvokeCooldown()
	}

	body := inv.Node.run
	if body == nil {
		body = describeBody
	}
	if err := d.call(body, inv); err != nil {
		log.Error("Command failed", zap.Error(err))
		d.observer.OnException(inv, err)
		d.reply(inv, unexpectedError)
		return
	}

	if timing == cooldown.After {
		inv.InvokeCooldown()
	}
	d.observer.OnCompleted(inv)
	d.countUse(inv.Node)
}

func (d *Dispatcher) call(body Body, inv *Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return body(inv.ctx, inv)
}

func describeBody(_ context.Context, inv *Invocation) error {
	return inv.Reply(Describe(inv.Node, inv))
}

// terminate ends an invocation that failed admission visibly.
func (d *Dispatcher) terminate(inv *Invocation, message string) {
	d.reply(inv, message)
	d.observer.OnTerminated(inv, message)
	d.countUse(inv.Node)
}

func (d *Dispatcher) reply(inv *Invocation, text string) {
	if err := inv.Reply(text); err != nil {
		d.logger.Warn("Failed to send reply",
			zap.String("invocation", inv.ID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) countUse(n *Node) {
	key := strings.ToLower(n.FullName())
	v, _ := d.uses.LoadOrStore(key, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// Uses returns how often a command ran or was visibly turned away, by full
// name, ignoring case.
func (d *Dispatcher) Uses(fullName string) int64 {
	v, ok := d.uses.Load(strings.ToLower(fullName))
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}
