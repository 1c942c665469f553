package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/internal"
	"github.com/redis/go-redis/v9"
)

// Redis is a PubSub over Redis Pub/Sub channels.
type Redis struct {
	client *redis.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
	wg   sync.WaitGroup
}

func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger.With("component", "redis-pubsub"),
	}
}

func (r *Redis) Publish(ctx context.Context, channel string, body []byte) error {
	if err := r.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	return nil
}

func (r *Redis) Subscribe(ctx context.Context, channel string, handler domain.MessageHandler) error {
	ps := r.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation so no message published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, ps)
	r.mu.Unlock()

	msgs := ps.Channel()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer internal.LogGoroutineClosed(r.logger, "Redis.Subscribe "+channel)

		for {
			select {
			case <-ctx.Done():
				ps.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				handler(ctx, []byte(msg.Payload))
			}
		}
	}()

	return nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	var errs []error
	for _, ps := range subs {
		if err := ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}

	r.wg.Wait()

	return errors.Join(errs...)
}
