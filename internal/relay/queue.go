package relay

import (
	"context"
	"sync"
	"time"

	"edspec/internal/clock"
)

// Queue is an unbounded FIFO of records. Enqueue never blocks.
type Queue struct {
	clk clock.Clock

	mu    sync.Mutex
	items []Record
	wake  chan struct{}
}

func NewQueue(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.Real()
	}
	return &Queue{clk: clk, wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(r Record) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue waits up to timeout for a record. It reports false when the
// timeout elapses or ctx is done first.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Record, bool) {
	var deadline <-chan time.Time
	for {
		if r, ok := q.pop(); ok {
			return r, true
		}
		if deadline == nil {
			deadline = q.clk.After(timeout)
		}
		select {
		case <-q.wake:
		case <-deadline:
			return q.pop()
		case <-ctx.Done():
			return Record{}, false
		}
	}
}

func (q *Queue) pop() (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Record{}, false
	}
	r := q.items[0]
	q.items[0] = Record{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	} else {
		q.signal()
	}
	return r, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
