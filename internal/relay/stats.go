package relay

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of delivery counters.
type Stats struct {
	Queued      uint64    `json:"queued"`
	Sent        uint64    `json:"sent"`
	Failed      uint64    `json:"failed"`
	AuthFailed  uint64    `json:"auth_failed"`
	Dropped     uint64    `json:"dropped"`
	Pings       uint64    `json:"pings"`
	QueueLen    int       `json:"queue_len"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

type counters struct {
	queued, sent, failed, authFailed, dropped, pings atomic.Uint64

	mu        sync.Mutex
	lastErr   string
	lastErrAt time.Time
}

func (c *counters) noteResult(st Status, err error, at time.Time) {
	switch st {
	case StatusSuccess:
		c.sent.Add(1)
	case StatusAuthFailed:
		c.authFailed.Add(1)
	default:
		c.failed.Add(1)
	}
	c.noteErr(err, at)
}

func (c *counters) noteErr(err error, at time.Time) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err.Error()
	c.lastErrAt = at
	c.mu.Unlock()
}

func (c *counters) snapshot(queueLen int) Stats {
	c.mu.Lock()
	lastErr, lastErrAt := c.lastErr, c.lastErrAt
	c.mu.Unlock()
	return Stats{
		Queued:      c.queued.Load(),
		Sent:        c.sent.Load(),
		Failed:      c.failed.Load(),
		AuthFailed:  c.authFailed.Load(),
		Dropped:     c.dropped.Load(),
		Pings:       c.pings.Load(),
		QueueLen:    queueLen,
		LastError:   lastErr,
		LastErrorAt: lastErrAt,
	}
}
