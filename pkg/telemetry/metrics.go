package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Command outcomes recorded on todo_commands_total.
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// CommandMetrics holds the instruments recorded by the todo command layer.
// A nil *CommandMetrics records nothing.
type CommandMetrics struct {
	commands metric.Int64Counter
	items    metric.Int64Gauge
}

// NewCommandMetrics creates the command instruments on meter.
func NewCommandMetrics(meter metric.Meter) (*CommandMetrics, error) {
	commands, err := meter.Int64Counter("todo_commands_total",
		metric.WithDescription("Todo commands executed, by command and outcome"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("todo_commands_total: %w", err)
	}

	items, err := meter.Int64Gauge("todo_items",
		metric.WithDescription("Number of todos returned by the last successful fetch"),
		metric.WithUnit("{todo}"),
	)
	if err != nil {
		return nil, fmt.Errorf("todo_items: %w", err)
	}

	return &CommandMetrics{commands: commands, items: items}, nil
}

// Command records one execution of command with the given outcome.
func (m *CommandMetrics) Command(ctx context.Context, command, outcome string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

// Items records the size of the last fetched list.
func (m *CommandMetrics) Items(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.items.Record(ctx, int64(n))
}
