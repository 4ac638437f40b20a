package ui

import (
	"context"
	"fmt"

	"edspec/internal/eventbus"
	"edspec/internal/relay"
	"edspec/internal/transport/telegram/client"
	"edspec/pkg/logx"
)

// StatusPoster is the subset of the Telegram client the status surface uses.
type StatusPoster interface {
	SendText(ctx context.Context, text string) (client.MessageRef, error)
	EditText(ctx context.Context, ref client.MessageRef, text string) error
}

// TelegramStatus keeps one chat message in sync with the relay status. It
// edits the message on every change and sends a fresh one if editing fails.
type TelegramStatus struct {
	poster StatusPoster
	log    logx.Logger
	cmdr   func() string

	ref client.MessageRef
}

func NewTelegramStatus(poster StatusPoster, cmdr func() string, log logx.Logger) *TelegramStatus {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cmdr == nil {
		cmdr = func() string { return "" }
	}
	return &TelegramStatus{poster: poster, cmdr: cmdr, log: log.With(logx.String("comp", "telegram.status"))}
}

var toneIcons = map[relay.Tone]string{
	relay.ToneGray:   "⚪",
	relay.ToneOrange: "🟠",
	relay.ToneGreen:  "🟢",
	relay.ToneRed:    "🔴",
}

func (t *TelegramStatus) format(v relay.View) string {
	s := fmt.Sprintf("%s %s: %s", toneIcons[v.Tone], relay.PluginName, v.Text)
	if c := t.cmdr(); c != "" {
		s += "\nCMDR " + c
	}
	return s
}

// Run posts status changes from bus until ctx is done. Countdown ticks are
// skipped so the chat is not edited every second.
func (t *TelegramStatus) Run(ctx context.Context, bus eventbus.Bus) error {
	events, unsub := bus.Subscribe(16, relay.TopicStatusChanged)
	defer unsub()
	t.loop(ctx, events)
	return nil
}

func (t *TelegramStatus) loop(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			sc, ok := e.Data.(relay.StatusChanged)
			if !ok || sc.View.Status == sc.Prev.Status {
				continue
			}
			t.post(ctx, sc.View)
		}
	}
}

func (t *TelegramStatus) post(ctx context.Context, v relay.View) {
	text := t.format(v)
	if t.ref.MessageID != 0 {
		err := t.poster.EditText(ctx, t.ref, text)
		if err == nil {
			return
		}
		t.log.Debug("status edit failed; sending new message", logx.Err(err))
	}
	ref, err := t.poster.SendText(ctx, text)
	if err != nil {
		t.log.Warn("status post failed", logx.Err(err))
		return
	}
	t.ref = ref
}
