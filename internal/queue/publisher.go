package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes person events to RabbitMQ.  It dials per publish:
// event volume is low and this keeps the API independent of broker
// restarts.
type Publisher struct {
	url     string
	timeout time.Duration
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, timeout: 3 * time.Second}
}

// Publish sends the event to the persons.events queue as a persistent JSON
// message.  Failures are returned wrapped with the step that failed; the
// caller decides whether to log them.
func (p *Publisher) Publish(ctx context.Context, ev PersonEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(PersonEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = ch.PublishWithContext(pctx,
		"",                // default exchange
		PersonEventsQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
	}
	return nil
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PersonEvent) error { return nil }
