package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/config"
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

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Prefix:        "!",
		StoragePath:   filepath.Join(dir, "datastore.json"),
		WaiterWorkers: 1,
		SweepInterval: time.Hour,
		ReplyRate:     5,
	}
}

func TestAppWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.SettingsFile = filepath.Join(filepath.Dir(cfg.StoragePath), "settings.yaml")
	require.NoError(t, os.WriteFile(cfg.SettingsFile, []byte(`
guilds:
  "g1":
    level:tag list: moderator
`), 0o644))

	a, err := New(context.Background(), cfg, nil, Options{MeterProvider: noop.NewMeterProvider()})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"cooldown-sweep", "settings-watch"}, a.Jobs.List())

	loc := command.Location{ChannelID: "c1", GuildID: "g1"}
	member := command.Actor{ID: "u1", Level: command.Standard}
	s := &sink{}
	send := func(actor command.Actor, text string) {
		a.Dispatcher.Dispatch(context.Background(), command.Request{Text: text, Actor: actor, Location: loc, Sink: s})
	}

	send(member, "tag create hello world")
	send(member, "tag list")
	assert.Equal(t, []string{"✅ Tag `hello` was created."}, s.msgs, "file override hides tag list from members")

	send(command.Actor{ID: "u2", Level: command.Moderator}, "tag list")
	assert.Len(t, s.msgs, 2)

	history, err := a.Store.History("g1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Tag Create", history[0].Command)
	assert.Equal(t, "completed", history[0].Outcome)
	assert.Equal(t, "u2", history[1].UserID)
}

func TestAppGuildSettings(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil, Options{MeterProvider: noop.NewMeterProvider()})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"cooldown-sweep"}, a.Jobs.List())
	require.NoError(t, a.Store.Set("g1", "cooldown:ping", "0"))

	loc := command.Location{ChannelID: "c1", GuildID: "g1"}
	s := &sink{}
	for i := 0; i < 3; i++ {
		a.Dispatcher.Dispatch(context.Background(), command.Request{
			Text:     "ping",
			Actor:    command.Actor{ID: "u1", Level: command.Standard},
			Location: loc,
			Sink:     s,
		})
	}
	assert.Len(t, s.msgs, 3)
	for _, m := range s.msgs {
		assert.Contains(t, m, "Pong!")
	}
}

func TestAppRestartKeepsState(t *testing.T) {
	cfg := testConfig(t)
	loc := command.Location{ChannelID: "c1", GuildID: "g1"}
	member := command.Actor{ID: "u1", Level: command.Standard}

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, nil, Options{MeterProvider: noop.NewMeterProvider()})
	require.NoError(t, err)
	a.Dispatcher.Dispatch(ctx, command.Request{Text: "tag create motd hi", Actor: member, Location: loc, Sink: &sink{}})

	cancel()
	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not shut down")
	}

	a, err = New(context.Background(), cfg, nil, Options{MeterProvider: noop.NewMeterProvider()})
	require.NoError(t, err)
	defer a.Close()
	s := &sink{}
	a.Dispatcher.Dispatch(context.Background(), command.Request{Text: "tag motd", Actor: member, Location: loc, Sink: s})
	assert.Equal(t, []string{"hi"}, s.msgs)
}

func TestAppMissingSettingsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.SettingsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}
