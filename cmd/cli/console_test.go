package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/keshon/botcore/internal/app"
	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/config"
)

func newTestConsole(t *testing.T, actor command.Actor, loc command.Location) (*console, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Prefix:        "!",
		StoragePath:   filepath.Join(t.TempDir(), "datastore.json"),
		WaiterWorkers: 1,
		SweepInterval: time.Hour,
		ReplyRate:     5,
	}
	a, err := app.New(context.Background(), cfg, nil, app.Options{MeterProvider: noop.NewMeterProvider()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	out := &bytes.Buffer{}
	return newConsole(a.Dispatcher, a.Waiter, actor, loc, out), out
}

func TestConsole(t *testing.T) {
	c, out := newTestConsole(t,
		command.Actor{ID: "u1", Level: command.Standard},
		command.Location{ChannelID: "c1", GuildID: "g1"},
	)
	ctx := context.Background()

	require.NoError(t, c.run(ctx, strings.NewReader("!tag create motd Hello world\n")))
	require.NoError(t, c.run(ctx, strings.NewReader("!tag motd\n")))
	require.NoError(t, c.run(ctx, strings.NewReader("just chatting\n!nope\n")))

	assert.Equal(t, "bot> ✅ Tag `motd` was created.\n"+
		"bot> Hello world\n"+
		"bot> Unknown command. Try !help\n", out.String())
}

func TestConsoleIndentsMultilineReplies(t *testing.T) {
	c, out := newTestConsole(t, command.Actor{ID: "u1"}, command.Location{ChannelID: "dm"})
	require.NoError(t, c.run(context.Background(), strings.NewReader("!help\n")))

	assert.True(t, strings.HasPrefix(out.String(), "bot> **Available Commands**\n     \n"))
}

func TestConsoleFlags(t *testing.T) {
	actor, loc, err := consoleFlags{user: "u", guild: "g", channel: "c", level: "Moderator"}.resolve()
	require.NoError(t, err)
	assert.Equal(t, command.Actor{ID: "u", Level: command.Moderator}, actor)
	assert.Equal(t, command.Location{ChannelID: "c", GuildID: "g"}, loc)

	_, _, err = consoleFlags{level: "operator"}.resolve()
	assert.Error(t, err)
	_, _, err = consoleFlags{level: "root"}.resolve()
	assert.Error(t, err)
}
