package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"edspec/internal/eventbus"
	"edspec/internal/relay"
	"edspec/internal/transport/telegram/client"
	"edspec/pkg/logx"
)

func TestConsolePlainSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.now = func() time.Time { return time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC) }

	v := relay.View{Status: relay.StatusSuccess, Text: "In Sync", Tone: relay.ToneGreen}
	c.ShowStatus(v)
	c.ShowStatus(v)
	c.ShowStatus(relay.View{Status: relay.StatusFailed, Text: "Connection failed", Tone: relay.ToneRed})

	got := buf.String()
	want := "12:30:00 EDSpec: In Sync\n12:30:00 EDSpec: Connection failed\n"
	if got != want {
		t.Fatalf("output=%q want %q", got, want)
	}
}

func TestConsoleStyledKeepsText(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, true)
	out := c.Render(relay.View{Status: relay.StatusConnecting, Text: "Connecting...", Tone: relay.ToneOrange})
	if !strings.Contains(out, "Connecting...") {
		t.Fatalf("render=%q", out)
	}
}

func TestParseYes(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES": true, " yes \n": true, "": false, "n": false, "yeah": false}
	for in, want := range cases {
		if got := parseYes(in); got != want {
			t.Fatalf("parseYes(%q)=%v want %v", in, got, want)
		}
	}
}

func TestPrompterDeclinesWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	p := TerminalPrompter{In: nil, Out: &out}
	ok, err := p.Confirm(context.Background(), "t", "m")
	if ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if out.Len() != 0 {
		t.Fatalf("wrote %q", out.String())
	}
}

func TestBrowserOpener(t *testing.T) {
	var got []string
	o := BrowserOpener{OpenURL: func(url string) error {
		got = append(got, url)
		return nil
	}}
	if err := o.Open(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(got) != 1 || got[0] != "https://example.com" {
		t.Fatalf("opened %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.Open(ctx, "https://example.com/late"); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if len(got) != 1 {
		t.Fatalf("opened after cancel: %v", got)
	}

	failing := BrowserOpener{OpenURL: func(string) error { return errors.New("no display") }}
	if err := failing.Open(context.Background(), "https://example.com"); err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("err=%v", err)
	}
}

type fakePoster struct {
	sent    []string
	edits   []string
	editErr error
	next    int
}

func (f *fakePoster) SendText(_ context.Context, text string) (client.MessageRef, error) {
	f.sent = append(f.sent, text)
	f.next++
	return client.MessageRef{ChatID: 1, MessageID: f.next}, nil
}

func (f *fakePoster) EditText(_ context.Context, _ client.MessageRef, text string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func TestTelegramStatusSendsThenEdits(t *testing.T) {
	p := &fakePoster{}
	s := NewTelegramStatus(p, func() string { return "Jameson" }, logx.Nop())
	ctx := context.Background()

	s.post(ctx, relay.View{Status: relay.StatusConnecting, Text: "Connecting...", Tone: relay.ToneOrange})
	s.post(ctx, relay.View{Status: relay.StatusSuccess, Text: "In Sync", Tone: relay.ToneGreen})
	if len(p.sent) != 1 || len(p.edits) != 1 {
		t.Fatalf("sent=%v edits=%v", p.sent, p.edits)
	}
	if !strings.Contains(p.edits[0], "In Sync") || !strings.Contains(p.edits[0], "CMDR Jameson") {
		t.Fatalf("edit=%q", p.edits[0])
	}

	p.editErr = errors.New("message to edit not found")
	s.post(ctx, relay.View{Status: relay.StatusFailed, Text: "Connection failed", Tone: relay.ToneRed})
	if len(p.sent) != 2 || s.ref.MessageID != 2 {
		t.Fatalf("fallback sent=%v ref=%+v", p.sent, s.ref)
	}
}

func TestTelegramStatusLoopSkipsCountdownTicks(t *testing.T) {
	p := &fakePoster{}
	s := NewTelegramStatus(p, nil, logx.Nop())
	events := make(chan eventbus.Event, 4)

	tick := relay.View{Status: relay.StatusDisconnected, Text: "Disconnected (9s)", Tone: relay.ToneRed}
	events <- eventbus.Event{Type: relay.TopicStatusChanged, Data: relay.StatusChanged{
		View: tick, Prev: relay.View{Status: relay.StatusDisconnected, Text: "Disconnected (10s)"},
	}}
	events <- eventbus.Event{Type: relay.TopicStatusChanged, Data: relay.StatusChanged{
		View: relay.View{Status: relay.StatusSuccess, Text: "In Sync", Tone: relay.ToneGreen}, Prev: tick,
	}}
	events <- eventbus.Event{Type: relay.TopicStatusChanged, Data: "garbage"}
	close(events)

	s.loop(context.Background(), events)

	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "In Sync") {
		t.Fatalf("sent=%v", p.sent)
	}
}
