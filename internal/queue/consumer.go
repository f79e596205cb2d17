package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer appends one line per person event to an audit log file.
type AuditConsumer struct {
	URL     string
	LogPath string
	Log     *zap.Logger
}

// Run connects to RabbitMQ, declares the persons.events queue (durable) and
// consumes until ctx is cancelled.  Broker failures trigger a reconnect
// with exponential backoff capped at 30s; a message that cannot be handled
// is rejected without requeue so it does not loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Log.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Log.Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Log.Warn("audit-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(PersonEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PersonEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := a.Handle(d.Body); err != nil {
				a.Log.Error("audit-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and appends it to the audit log.
func (a *AuditConsumer) Handle(body []byte) error {
	var ev PersonEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.PersonID == 0 {
		return errors.New("event without type or person id")
	}
	if err := os.MkdirAll(filepath.Dir(a.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders an event as a single human-friendly line.
func FormatAuditLine(ev PersonEvent) string {
	ids := make([]string, len(ev.AddressIDs))
	for i, id := range ev.AddressIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("[%s] %s | person_id=%d | full_name=%q | actor_id=%d | addresses=[%s]\n",
		ev.OccurredAt, ev.Type, ev.PersonID, ev.FullName, ev.ActorID, strings.Join(ids, ","))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
