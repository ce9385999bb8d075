package bridge

import (
	"context"
	"sync"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/metrics"
)

// Queue is an unbounded FIFO between the read loop and the forwarder.
// Push never blocks, so a slow webhook cannot stall the upstream reader.
type Queue struct {
	mu      sync.Mutex
	items   []models.BridgeEvent
	closed  bool
	ready   chan struct{}
	done    chan struct{}
	metrics *metrics.Metrics
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		metrics: metrics.DefaultMetrics,
	}
}

// Push appends an event. It reports false once the queue is closed.
func (q *Queue) Push(ev models.BridgeEvent) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetBridgeQueueDepth(depth)
	q.signal()
	return true
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop blocks until an event is available. After Close it keeps returning
// the remaining events, then ErrQueueClosed.
func (q *Queue) Pop(ctx context.Context) (models.BridgeEvent, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = models.BridgeEvent{}
			q.items = q.items[1:]
			depth := len(q.items)
			q.mu.Unlock()
			q.metrics.SetBridgeQueueDepth(depth)
			if depth > 0 {
				// Pass the wakeup on to the next waiting consumer.
				q.signal()
			}
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return models.BridgeEvent{}, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return models.BridgeEvent{}, ctx.Err()
		}
	}
}

// Close stops accepting events. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
