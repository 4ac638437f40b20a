package eventbus

import (
	"sync"
	"testing"
)

func TestSubscribeFiltersByType(t *testing.T) {
	t.Parallel()
	b := New()

	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	status, unsubStatus := b.Subscribe(4, "status.changed")
	defer unsubStatus()

	b.Publish(Event{Type: "delivery.completed"})
	b.Publish(Event{Type: "status.changed", Data: "ok"})

	if got := len(all); got != 2 {
		t.Fatalf("all subscriber got %d events, want 2", got)
	}
	if got := len(status); got != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", got)
	}
	e := <-status
	if e.Data != "ok" || e.Time.IsZero() {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})
	if got := b.Dropped(); got != 1 {
		t.Fatalf("Dropped=%d want 1", got)
	}

	unsub()
	unsub()
	b.Publish(Event{Type: "c"}) // must not panic after unsubscribe
}

func TestUnsubscribeWhilePublishing(t *testing.T) {
	t.Parallel()
	b := New()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(Event{Type: "status.changed"})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		ch, unsub := b.Subscribe(1, "status.changed")
		unsub()
		unsub()
		for range ch {
		}
	}
	close(stop)
	wg.Wait()
}
