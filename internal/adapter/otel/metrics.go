package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "leadengine"

// Metrics holds all LeadEngine metric instruments.
type Metrics struct {
	LeadsCreated      metric.Int64Counter
	LeadsMoved        metric.Int64Counter
	MessagesSent      metric.Int64Counter
	MessagesFailed    metric.Int64Counter
	DispatchBatchSize metric.Int64Histogram
	DispatchDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.LeadsCreated, err = meter.Int64Counter("leadengine.leads.created",
		metric.WithDescription("Number of leads created"))
	if err != nil {
		return nil, err
	}

	m.LeadsMoved, err = meter.Int64Counter("leadengine.leads.moved",
		metric.WithDescription("Number of lead stage moves"))
	if err != nil {
		return nil, err
	}

	m.MessagesSent, err = meter.Int64Counter("leadengine.messages.sent",
		metric.WithDescription("Number of scheduled messages delivered"))
	if err != nil {
		return nil, err
	}

	m.MessagesFailed, err = meter.Int64Counter("leadengine.messages.failed",
		metric.WithDescription("Number of scheduled messages that failed delivery"))
	if err != nil {
		return nil, err
	}

	m.DispatchBatchSize, err = meter.Int64Histogram("leadengine.dispatch.batch_size",
		metric.WithDescription("Due messages picked up per dispatch tick"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram("leadengine.dispatch.duration_seconds",
		metric.WithDescription("Dispatch tick duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
