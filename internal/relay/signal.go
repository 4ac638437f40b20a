package relay

import (
	"context"
	"sync"
)

// Signal is a set-once stop flag. Waiters select on Done.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func NewSignal() *Signal { return &Signal{ch: make(chan struct{})} }

func (s *Signal) Set() { s.once.Do(func() { close(s.ch) }) }

func (s *Signal) Done() <-chan struct{} { return s.ch }

func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Bind returns a child of parent that is canceled once s is set.
func (s *Signal) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
