package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fluxcrm/leadengine/internal/adapter/otel"
	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/port/database"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
	"github.com/fluxcrm/leadengine/internal/port/notifier"
)

// Dispatcher polls for due scheduled messages and hands each to the
// notifier for its channel. Outcomes are recorded on the message and
// published as domain events; the dispatcher itself never retries.
type Dispatcher struct {
	store       database.Store
	queue       messagequeue.Queue
	notifiers   map[message.Channel]notifier.Notifier
	metrics     *otel.Metrics
	maxParallel int
	batchSize   int
	now         func() time.Time
}

// NewDispatcher creates a Dispatcher over the given notifiers. queue and
// metrics may be nil.
func NewDispatcher(store database.Store, queue messagequeue.Queue, notifiers []notifier.Notifier, metrics *otel.Metrics, maxParallel, batchSize int) *Dispatcher {
	byChannel := make(map[message.Channel]notifier.Notifier, len(notifiers))
	for _, n := range notifiers {
		byChannel[n.Channel()] = n
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Dispatcher{
		store:       store,
		queue:       queue,
		notifiers:   byChannel,
		metrics:     metrics,
		maxParallel: maxParallel,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// Run polls every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("dispatcher started", "interval", interval, "max_parallel", d.maxParallel)
	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				slog.Error("dispatch tick failed", "error", err)
			}
		}
	}
}

// RunOnce processes one batch of due messages and returns after all sends
// have been recorded.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	start := d.now()
	scope := principal.SystemScope()

	due, err := d.store.DueMessages(ctx, scope, start)
	if err != nil {
		return fmt.Errorf("due messages: %w", err)
	}
	if d.batchSize > 0 && len(due) > d.batchSize {
		due = due[:d.batchSize]
	}
	if d.metrics != nil {
		d.metrics.DispatchBatchSize.Record(ctx, int64(len(due)))
		defer func() {
			d.metrics.DispatchDuration.Record(ctx, d.now().Sub(start).Seconds())
		}()
	}
	if len(due) == 0 {
		return nil
	}
	ctx, span := otel.StartDispatchSpan(ctx, len(due))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxParallel)
	for _, m := range due {
		g.Go(func() error {
			d.dispatch(gctx, scope, m)
			return nil
		})
	}
	return g.Wait()
}

// dispatch sends one message and records the outcome. Delivery errors are
// terminal: the message moves to failed and stays there.
func (d *Dispatcher) dispatch(ctx context.Context, scope principal.Scope, m message.ScheduledMessage) {
	ctx, span := otel.StartDeliverySpan(ctx, m.ID, string(m.Channel))
	defer span.End()

	if err := d.send(ctx, m); err != nil {
		slog.Warn("message delivery failed", "message_id", m.ID, "channel", m.Channel, "error", err)
		d.record(ctx, scope, m, err)
		return
	}
	d.record(ctx, scope, m, nil)
}

func (d *Dispatcher) send(ctx context.Context, m message.ScheduledMessage) error {
	n, ok := d.notifiers[m.Channel]
	if !ok {
		return fmt.Errorf("channel %q: %w", m.Channel, notifier.ErrNotConfigured)
	}

	recipient, err := d.recipient(ctx, m)
	if err != nil {
		return err
	}

	return n.Send(ctx, notifier.Delivery{
		MessageID: m.ID,
		TenantID:  m.TenantID,
		LeadID:    m.LeadID,
		Body:      m.Body,
		Recipient: recipient,
	})
}

// recipient resolves the channel address from the lead's attribute bag.
func (d *Dispatcher) recipient(ctx context.Context, m message.ScheduledMessage) (string, error) {
	l, err := d.store.GetLead(ctx, principal.SystemScope(), m.LeadID)
	if err != nil {
		return "", fmt.Errorf("lead for message %s: %w", m.ID, err)
	}

	key := "phone"
	if m.Channel == message.ChannelEmail {
		key = "email"
	}
	addr, _ := l.Attributes[key].(string)
	if addr == "" {
		return "", fmt.Errorf("lead %s has no %q attribute", l.ID, key)
	}
	return addr, nil
}

// record moves the message to its terminal state and publishes the event.
// A lost race with a concurrent cancel is left alone: the message already
// reached a terminal state and the outcome stands.
func (d *Dispatcher) record(ctx context.Context, scope principal.Scope, m message.ScheduledMessage, sendErr error) {
	var (
		updated *message.ScheduledMessage
		err     error
		evType  event.Type
	)
	if sendErr == nil {
		updated, err = d.store.MarkMessageSent(ctx, scope, m.ID)
		evType = event.TypeMessageSent
		if d.metrics != nil {
			d.metrics.MessagesSent.Add(ctx, 1)
		}
	} else {
		updated, err = d.store.MarkMessageFailed(ctx, scope, m.ID, sendErr.Error())
		evType = event.TypeMessageFailed
		if d.metrics != nil {
			d.metrics.MessagesFailed.Add(ctx, 1)
		}
	}
	if err != nil {
		slog.Error("record message outcome", "message_id", m.ID, "error", err)
		return
	}

	publishEvent(ctx, d.queue, event.New(evType, updated.TenantID, updated.ID, updated))
}
