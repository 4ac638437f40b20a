package app

import (
	"context"
	"time"

	"edspec/internal/housekeeping"
	"edspec/internal/relay"
	"edspec/internal/runtime/supervisor"
	"edspec/internal/storage"
	"edspec/internal/version"
)

// Report is the /status document.
type Report struct {
	Version      string                  `json:"version"`
	Uptime       string                  `json:"uptime"`
	Status       relay.Status            `json:"status"`
	Text         string                  `json:"text"`
	Tone         relay.Tone              `json:"tone"`
	Cmdr         string                  `json:"cmdr,omitempty"`
	Stats        relay.Stats             `json:"stats"`
	Tasks        []supervisor.TaskStats  `json:"tasks"`
	Housekeeping *housekeeping.Snapshot  `json:"housekeeping,omitempty"`
	Recent       []storage.DeliveryEntry `json:"recent,omitempty"`
	EventsLost   uint64                  `json:"events_lost"`
}

const reportRecent = 20

func (a *App) report(ctx context.Context) (any, error) {
	v := a.relay.View()
	out := Report{
		Version:    version.Info(),
		Uptime:     time.Since(a.started).Truncate(time.Second).String(),
		Status:     v.Status,
		Text:       v.Text,
		Tone:       v.Tone,
		Cmdr:       a.relay.CurrentCmdr(),
		Stats:      a.relay.Stats(),
		Tasks:      append(a.sup.Snapshot(), a.relay.Tasks()...),
		EventsLost: a.bus.Dropped(),
	}
	if a.hk != nil {
		snap := a.hk.Snapshot()
		out.Housekeeping = &snap
	}
	if a.store != nil {
		recent, err := a.store.RecentDeliveries(ctx, reportRecent)
		if err != nil {
			return nil, err
		}
		out.Recent = recent
	}
	return out, nil
}
