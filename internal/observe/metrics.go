package observe

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/keshon/botcore/internal/command"
)

const meterName = "github.com/keshon/botcore"

// Metrics counts invocation outcomes per command and records how long
// completed invocations took.
type Metrics struct {
	completed  metric.Int64Counter
	terminated metric.Int64Counter
	failed     metric.Int64Counter
	duration   metric.Float64Histogram
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	completed, err := meter.Int64Counter("botcore.commands.completed",
		metric.WithDescription("Invocations whose body returned normally."))
	if err != nil {
		return nil, fmt.Errorf("create completed counter: %w", err)
	}
	terminated, err := meter.Int64Counter("botcore.commands.terminated",
		metric.WithDescription("Invocations turned away with a visible message."))
	if err != nil {
		return nil, fmt.Errorf("create terminated counter: %w", err)
	}
	failed, err := meter.Int64Counter("botcore.commands.failed",
		metric.WithDescription("Invocations whose body failed or panicked."))
	if err != nil {
		return nil, fmt.Errorf("create failed counter: %w", err)
	}
	duration, err := meter.Float64Histogram("botcore.commands.duration",
		metric.WithDescription("Time from admission to completion."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Metrics{
		completed:  completed,
		terminated: terminated,
		failed:     failed,
		duration:   duration,
	}, nil
}

func attrs(inv *command.Invocation) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("command", inv.Node.FullName()),
		attribute.Bool("guild", inv.IsGuild()),
	)
}

func (m *Metrics) OnTerminated(inv *command.Invocation, _ string) {
	m.terminated.Add(inv.Context(), 1, attrs(inv))
}

func (m *Metrics) OnCompleted(inv *command.Invocation) {
	ctx := inv.Context()
	m.completed.Add(ctx, 1, attrs(inv))
	if elapsed := inv.Cooldowns().Now().Sub(inv.Time); elapsed >= 0 {
		m.duration.Record(ctx, elapsed.Seconds(), attrs(inv))
	}
}

func (m *Metrics) OnException(inv *command.Invocation, _ error) {
	m.failed.Add(inv.Context(), 1, attrs(inv))
}
