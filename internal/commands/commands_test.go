package commands

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/events"
	"github.com/keshon/botcore/internal/settings"
	"github.com/keshon/botcore/internal/waiter"
)

type sink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *sink) SendVisible(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, text)
	return nil
}

func (s *sink) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return ""
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type env struct {
	t       *testing.T
	store   *settings.Store
	waiter  *waiter.Waiter
	d       *command.Dispatcher
	now     time.Time
	restart atomic.Bool
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store, err := settings.Open(ctx, filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		require.NoError(t, store.Close())
	})

	e := &env{t: t, store: store, now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	e.waiter = waiter.New(2, nil)
	t.Cleanup(func() { _ = e.waiter.Close() })

	tree, err := command.NewTree(All(Deps{
		Store:   store,
		Latency: func() time.Duration { return 42 * time.Millisecond },
		Restart: func() { e.restart.Store(true) },
	})...)
	require.NoError(t, err)

	tracker := cooldown.NewTracker(cooldown.WithClock(func() time.Time { return e.now }))
	e.d = command.NewDispatcher(tree, tracker, command.Options{
		Prefix:   "!",
		Settings: store,
		Waiter:   e.waiter,
	})
	return e
}

var (
	member   = command.Actor{ID: "100", Level: command.Standard}
	other    = command.Actor{ID: "101", Level: command.Standard}
	mod      = command.Actor{ID: "102", Level: command.Moderator}
	admin    = command.Actor{ID: "103", Level: command.Administrator}
	operator = command.Actor{ID: "1", Level: command.Standard, Operator: true}

	guild = command.Location{ChannelID: "c1", GuildID: "g1"}
	dm    = command.Location{ChannelID: "dm1"}
)

func (e *env) run(actor command.Actor, loc command.Location, text string) *sink {
	e.t.Helper()
	s := &sink{}
	ok := e.d.Dispatch(context.Background(), command.Request{
		Text:     text,
		Actor:    actor,
		Location: loc,
		Sink:     s,
	})
	require.True(e.t, ok, "%q should name a command", text)
	return s
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "🏓 Pong! 42ms", e.run(member, dm, "ping").last())
	assert.Contains(t, e.run(member, dm, "ping").last(), "on cooldown for 5 more seconds")
}

func TestHelp(t *testing.T) {
	e := newEnv(t)

	listing := e.run(member, guild, "help").last()
	assert.Contains(t, listing, "`!ping` - Check bot latency.")
	assert.Contains(t, listing, "__Tags__")
	assert.NotContains(t, listing, "__Settings__")
	assert.NotContains(t, listing, "__Maintenance__")

	listing = e.run(admin, guild, "help").last()
	assert.Contains(t, listing, "__Settings__")

	assert.NotContains(t, e.run(member, dm, "help").last(), "__Tags__", "tags are guild only")

	desc := e.run(member, guild, "help tag").last()
	assert.Contains(t, desc, "Tag Command")
	assert.Contains(t, desc, "create")

	assert.Equal(t, "❌ There is no command called `settings`.", e.run(member, guild, "help settings").last())
	assert.Equal(t, "❌ There is no command called `nope`.", e.run(member, guild, "help nope").last())
}

func TestTags(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "❌ **Missing Arguments!**\nUse `!Tag help` for more info on this command!", e.run(member, guild, "tag").last())
	assert.Equal(t, "❌ A tag needs some content.", e.run(member, guild, "tag create hello").last())

	e.now = e.now.Add(time.Hour)
	assert.Equal(t, "✅ Tag `hello` was created.", e.run(member, guild, "tag create hello Hello  there!").last())
	assert.Equal(t, "Hello  there!", e.run(other, guild, "tag hello").last())
	assert.Equal(t, "Hello  there!", e.run(other, guild, "t HELLO").last())

	e.now = e.now.Add(10 * time.Second)
	assert.Equal(t, "⚠️ That command is on cooldown for 110 more seconds in this server!",
		e.run(member, guild, "tag create again more").last())

	assert.Equal(t, "❌ Tag `hello` already exists.", e.run(other, guild, "tag add hello again").last())
	assert.Equal(t, "**Tags (1):** `hello`", e.run(other, guild, "tag list").last())

	assert.Equal(t, "❌ You can only delete your own tags.", e.run(other, guild, "tag delete hello").last())
	assert.Equal(t, "✅ Tag `hello` was deleted.", e.run(mod, guild, "tag delete hello").last())
	assert.Equal(t, "❌ Tag `hello` does not exist.", e.run(member, guild, "tag hello").last())
	assert.Equal(t, "⚠️ This server has no tags yet.", e.run(member, guild, "tag list").last())
}

func TestTagsAreGuildOnly(t *testing.T) {
	e := newEnv(t)
	assert.Zero(t, e.run(member, dm, "tag list").count())
}

func TestSettingsRequireAdministrator(t *testing.T) {
	e := newEnv(t)
	assert.Zero(t, e.run(mod, guild, "settings").count())
	assert.Equal(t, "All commands use their default settings.", e.run(admin, guild, "settings").last())
}

func TestDisableCategory(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "❌ Unknown category `music`. Choose one of: Tags", e.run(admin, guild, "settings disable music").last())
	assert.Equal(t, "✅ **Tags** commands are disabled.", e.run(admin, guild, "settings disable tags").last())
	assert.Zero(t, e.run(member, guild, "tag list").count())
	assert.Contains(t, e.run(admin, guild, "settings").last(), "`disabled:tags` = `true`")

	assert.Equal(t, "✅ **Tags** commands are enabled.", e.run(admin, guild, "settings enable Tags").last())
	assert.Equal(t, 1, e.run(member, guild, "tag list").count())
}

func TestLevelOverride(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "✅ `Tag List` now requires the **Moderator** level.", e.run(admin, guild, "settings level tag list moderator").last())
	assert.Zero(t, e.run(member, guild, "tag list").count())
	assert.Equal(t, 1, e.run(mod, guild, "tag list").count())

	assert.Equal(t, "✅ `Tag List` is back to the **Standard** level.", e.run(admin, guild, "settings level tag list reset").last())
	assert.Equal(t, 1, e.run(member, guild, "tag list").count())

	assert.Equal(t, "❌ `godlike` is not a valid level.", e.run(admin, guild, "settings level ping godlike").last())
	assert.Equal(t, "❌ `operator` is not a valid level.", e.run(admin, guild, "settings level ping operator").last())
	assert.Equal(t, "❌ The level of `Settings` cannot be changed.", e.run(admin, guild, "settings level settings standard").last())
	assert.Equal(t, "❌ I couldn't find that command.", e.run(admin, guild, "settings level nothing standard").last())
}

func TestCooldownOverride(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "✅ `Ping` now has a 60 second cooldown.", e.run(admin, guild, "settings cooldown ping 60").last())
	e.run(member, guild, "ping")
	assert.Contains(t, e.run(member, guild, "ping").last(), "60 more seconds")

	assert.Equal(t, "✅ `Ping` no longer has a cooldown.", e.run(admin, guild, "settings cooldown ping 0").last())
	assert.Equal(t, "❌ `Help` has no cooldown.", e.run(admin, guild, "settings cooldown help 5").last())
	assert.Equal(t, "❌ `soon` is not a valid number of seconds.", e.run(admin, guild, "settings cooldown ping soon").last())
	assert.Equal(t, "✅ `Ping` is back to a 5 second cooldown.", e.run(admin, guild, "settings cooldown ping reset").last())
}

func TestHistory(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "No commands have been used yet.", e.run(admin, guild, "history").last())

	require.NoError(t, e.store.AppendHistory("g1", settings.HistoryEntry{
		UserID:   "100",
		Command:  "Tag Create",
		Outcome:  "completed",
		Datetime: e.now,
	}))
	out := e.run(admin, guild, "log").last()
	assert.Contains(t, out, "2024-03-01 10:00:00")
	assert.Contains(t, out, "!tag create")
	assert.Contains(t, out, "completed")
}

func TestMaintenanceIsOperatorOnly(t *testing.T) {
	e := newEnv(t)
	assert.Zero(t, e.run(admin, guild, "jobs").count())
	assert.Equal(t, "❌ Background jobs are not available.", e.run(operator, dm, "jobs").last())
}

func TestRestartConfirmed(t *testing.T) {
	e := newEnv(t)

	s := &sink{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.d.Dispatch(context.Background(), command.Request{Text: "restart", Actor: operator, Location: guild, Sink: s})
	}()

	require.Eventually(t, func() bool {
		return e.waiter.Pending(events.TagMessageCreate) == 1
	}, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, e.waiter.Dispatch(ctx, events.Message{AuthorID: "100", ChannelID: "c1", Content: "yes"}))
	require.NoError(t, e.waiter.Dispatch(ctx, events.Message{AuthorID: "1", ChannelID: "c2", Content: "yes"}))
	require.NoError(t, e.waiter.Dispatch(ctx, events.Message{AuthorID: "1", ChannelID: "c1", Content: " YES "}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("restart did not finish")
	}
	assert.True(t, e.restart.Load())
	assert.Equal(t, "✅ Restarting...", s.last())
}
