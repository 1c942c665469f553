package websocket_buffer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/metrics"
)

type stopper interface {
	Stop() bool
}

type queuedMessage struct {
	payload    []byte
	attempts   int
	completion *Completion
}

// DeliveryQueue sequences the outbound messages of one connection. At most
// one delivery loop runs at a time, so messages reach the socket in the
// order Send was called.
type DeliveryQueue struct {
	socket  domain.Socket
	cfg     Config
	maxSize int
	logger  *slog.Logger
	metrics *metrics.Metrics

	afterFunc func(time.Duration, func()) stopper

	mu       sync.Mutex
	messages []*queuedMessage
	running  bool
	active   bool
	retry    stopper
}

func NewDeliveryQueue(
	socket domain.Socket,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) *DeliveryQueue {
	return &DeliveryQueue{
		socket:  socket,
		cfg:     cfg,
		maxSize: MaxQueueSize(cfg),
		logger:  logger,
		metrics: m,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		active: true,
	}
}

// Send enqueues payload without blocking. The returned completion is already
// rejected when the queue is full or closed.
func (q *DeliveryQueue) Send(payload []byte) *Completion {
	q.mu.Lock()

	if !q.active {
		q.mu.Unlock()
		return Resolved(domain.ErrConnectionClosed)
	}

	if len(q.messages) >= q.maxSize {
		q.mu.Unlock()
		q.metrics.DeliveryFailures.WithLabelValues("queue_full").Inc()
		return Resolved(domain.ErrQueueFull)
	}

	msg := &queuedMessage{
		payload:    payload,
		completion: newCompletion(),
	}

	q.messages = append(q.messages, msg)
	q.metrics.QueueSize.Observe(float64(len(q.messages)))

	start := !q.running
	q.running = true

	q.mu.Unlock()

	if start {
		go q.deliver()
	}

	return msg.completion
}

func (q *DeliveryQueue) deliver() {
	for {
		q.mu.Lock()
		if !q.active || len(q.messages) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}

		msg := q.messages[0]
		q.mu.Unlock()

		status, err := q.socket.Send(msg.payload)

		q.mu.Lock()
		if !q.active {
			// Close already rejected msg.
			q.running = false
			q.mu.Unlock()
			return
		}

		if err != nil {
			q.pop()
			q.mu.Unlock()

			q.fail(msg, err, "socket_error")

			if errors.Is(err, domain.ErrSocketClosed) {
				q.Close()
				return
			}

			continue
		}

		if status == domain.SendDropped {
			msg.attempts++
			q.metrics.BackpressureEvents.Inc()

			if msg.attempts > q.cfg.MaxRetries {
				q.pop()
				q.mu.Unlock()

				q.fail(msg, domain.ErrMaxRetriesExceeded, "max_retries")
				continue
			}

			delay := backoff(q.cfg, msg.attempts)
			q.retry = q.afterFunc(delay, q.resume)
			q.metrics.SendRetries.Inc()
			q.mu.Unlock()

			q.logger.Debug("socket backpressure, retry scheduled",
				"attempt", msg.attempts,
				"delay", delay)
			return
		}

		q.pop()
		q.mu.Unlock()

		if msg.completion.resolve(nil) {
			q.metrics.MessagesSent.Inc()
		}
	}
}

func (q *DeliveryQueue) resume() {
	q.mu.Lock()
	q.retry = nil
	if !q.active {
		q.running = false
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.deliver()
}

// pop removes the head. Callers hold q.mu.
func (q *DeliveryQueue) pop() {
	q.messages[0] = nil
	q.messages = q.messages[1:]
}

func (q *DeliveryQueue) fail(msg *queuedMessage, err error, reason string) {
	if !msg.completion.resolve(err) {
		return
	}

	q.metrics.DeliveryFailures.WithLabelValues(reason).Inc()
	q.logger.Debug("delivery failed", "reason", reason, "attempts", msg.attempts, "err", err)
}

// Close deactivates the queue and rejects every pending message with
// domain.ErrConnectionClosed.
func (q *DeliveryQueue) Close() {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return
	}

	q.active = false
	q.running = false

	if q.retry != nil {
		q.retry.Stop()
		q.retry = nil
	}

	pending := q.messages
	q.messages = nil
	q.mu.Unlock()

	for _, msg := range pending {
		q.fail(msg, domain.ErrConnectionClosed, "connection_closed")
	}
}

func (q *DeliveryQueue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.active
}

func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.messages)
}

func (q *DeliveryQueue) MaxSize() int {
	return q.maxSize
}
