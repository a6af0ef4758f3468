package observe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/settings"
)

func newDispatcher(t *testing.T, ob command.Observer) *command.Dispatcher {
	t.Helper()
	tree, err := command.NewTree(
		&command.Spec{Name: "Ping", Run: func(context.Context, *command.Invocation) error { return nil }},
		&command.Spec{Name: "Fail", Run: func(context.Context, *command.Invocation) error { return errors.New("bad") }},
		&command.Spec{Name: "Boom", Run: func(context.Context, *command.Invocation) error { panic("boom") }},
		&command.Spec{
			Name:     "Slow",
			Cooldown: command.Cooldown{Duration: time.Minute, Scope: cooldown.User, Timing: cooldown.Before},
			Run:      func(context.Context, *command.Invocation) error { return nil },
		},
	)
	require.NoError(t, err)
	return command.NewDispatcher(tree, cooldown.NewTracker(), command.Options{Prefix: "!", Observer: ob})
}

func run(d *command.Dispatcher, text string, loc command.Location) {
	d.Dispatch(context.Background(), command.Request{
		Text:     text,
		Actor:    command.Actor{ID: "u1"},
		Location: loc,
		Sink:     command.SinkFunc(func(context.Context, string) error { return nil }),
	})
}

var guild = command.Location{ChannelID: "c1", GuildID: "g1"}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := newDispatcher(t, NewLog(zap.New(core)))

	run(d, "ping", guild)
	run(d, "boom", guild)
	run(d, "slow", guild)
	run(d, "slow", guild)

	assert.Equal(t, 2, logs.FilterMessage("Command completed").Len())
	failed := logs.FilterMessage("Command failed").All()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ContextMap(), "stack")
	terminated := logs.FilterMessage("Command terminated").All()
	require.Len(t, terminated, 1)
	assert.Equal(t, "Slow", terminated[0].ContextMap()["command"])
}

func TestHistory(t *testing.T) {
	store, err := settings.Open(context.Background(), filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	defer store.Close()

	d := newDispatcher(t, NewHistory(store, zap.NewNop()))
	run(d, "ping hello", guild)
	run(d, "fail", guild)
	run(d, "ping", command.Location{ChannelID: "dm"})

	entries, err := store.History("g1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ping", entries[0].Command)
	assert.Equal(t, "hello", entries[0].Args)
	assert.Equal(t, "completed", entries[0].Outcome)
	assert.Equal(t, "failed", entries[1].Outcome)
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider)
	require.NoError(t, err)
	d := newDispatcher(t, command.Observers{m, NewLog(nil)})

	run(d, "ping", guild)
	run(d, "ping", guild)
	run(d, "fail", guild)
	run(d, "slow", guild)
	run(d, "slow", guild)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			byCommand := map[string]int64{}
			for _, dp := range sum.DataPoints {
				cmd, _ := dp.Attributes.Value(attribute.Key("command"))
				byCommand[cmd.AsString()] += dp.Value
			}
			sums[metric.Name] = byCommand
		}
	}

	assert.Equal(t, map[string]int64{"Ping": 2, "Slow": 1}, sums["botcore.commands.completed"])
	assert.Equal(t, map[string]int64{"Fail": 1}, sums["botcore.commands.failed"])
	assert.Equal(t, map[string]int64{"Slow": 1}, sums["botcore.commands.terminated"])
}
