package broker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Consume when the broker closes the stream.
var ErrDeliveriesClosed = stderrors.New("rabbitmq delivery channel closed")

// ConsumeChannel is the subset of *amqp.Channel Consume needs.
type ConsumeChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Message is one event as it arrived on the exchange.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"timestamp"`
	Body       json.RawMessage `json:"body"`
}

// Consume binds a throwaway queue to exchange with bindingKey and hands every
// delivery to handle until ctx is done.
func Consume(ctx context.Context, ch ConsumeChannel, exchange, bindingKey string, handle func(Message)) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, exchange, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			body := json.RawMessage(d.Body)
			if !json.Valid(body) {
				quoted, _ := json.Marshal(string(d.Body))
				body = quoted
			}
			handle(Message{
				ID:         d.MessageId,
				Type:       d.Type,
				RoutingKey: d.RoutingKey,
				Timestamp:  d.Timestamp,
				Body:       body,
			})
		}
	}
}

// DialConsumer opens a connection and channel for Consume. The returned close
// func releases both.
func DialConsumer(url string) (ConsumeChannel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	closeFn := func() error {
		ch.Close()
		return conn.Close()
	}
	return ch, closeFn, nil
}
