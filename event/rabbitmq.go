package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/internal"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ maps every pub/sub channel to a fanout exchange. Each
// subscription gets an exclusive auto-deleted queue bound to it, so every
// process receives every message.
type RabbitMQ struct {
	connection *amqp.Connection
	logger     *slog.Logger

	mu       sync.Mutex
	publish  *amqp.Channel
	declared map[string]bool
	channels []*amqp.Channel
	wg       sync.WaitGroup
}

func NewRabbitMQ(conn *amqp.Connection, logger *slog.Logger) (*RabbitMQ, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		connection: conn,
		logger:     logger.With("component", "rabbitmq"),
		publish:    ch,
		declared:   make(map[string]bool),
	}, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,                // name
		amqp.ExchangeFanout, // type
		true,                // durable
		false,               // auto-delete
		false,               // internal
		false,               // no-wait
		nil,                 // args
	)
}

func (r *RabbitMQ) Publish(ctx context.Context, channel string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.declared[channel] {
		if err := declareExchange(r.publish, channel); err != nil {
			return fmt.Errorf("declare exchange %s: %w", channel, err)
		}
		r.declared[channel] = true
	}

	err := r.publish.PublishWithContext(ctx,
		channel, // exchange
		"",      // routing key (ignored by fanout)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	return nil
}

func (r *RabbitMQ) Subscribe(ctx context.Context, channel string, handler domain.MessageHandler) error {
	ch, err := r.connection.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err = declareExchange(ch, channel); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", channel, err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	if err = ch.QueueBind(q.Name, "", channel, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("bind queue to %s: %w", channel, err)
	}

	msgs, err := ch.ConsumeWithContext(ctx,
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	r.mu.Lock()
	r.channels = append(r.channels, ch)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer internal.LogGoroutineClosed(r.logger, "RabbitMQ.Subscribe "+channel)

		for d := range msgs {
			handler(ctx, d.Body)

			if err := d.Ack(false); err != nil {
				r.logger.Error("ack delivery", "channel", channel, "err", err)
			}
		}
	}()

	return nil
}

// Close closes the channels opened by r. The connection belongs to the
// caller.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	channels := append(r.channels, r.publish)
	r.channels = nil
	r.mu.Unlock()

	var errs []error
	for _, ch := range channels {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}

	r.wg.Wait()

	return errors.Join(errs...)
}
