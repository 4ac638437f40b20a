package app

import (
	"context"
	"time"

	"edspec/internal/eventbus"
	"edspec/internal/relay"
	"edspec/internal/storage"
	"edspec/pkg/logx"
)

// recordDeliveries appends every completed delivery to the audit store
// until ctx is done.
func recordDeliveries(ctx context.Context, bus eventbus.Bus, store storage.Store, log logx.Logger) {
	events, unsub := bus.Subscribe(256, relay.TopicDeliveryCompleted)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			dc, ok := e.Data.(relay.DeliveryCompleted)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := store.AppendDelivery(wctx, dc.Entry)
			cancel()
			if err != nil {
				log.Warn("audit append failed", logx.String("id", dc.Entry.ID), logx.Err(err))
			}
		}
	}
}
