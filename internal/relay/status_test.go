package relay

import (
	"testing"
	"time"

	"edspec/internal/eventbus"
)

func TestReduce(t *testing.T) {
	t.Parallel()
	ready := Snapshot{APIKey: "k", Enabled: true}
	cases := []struct {
		name      string
		snap      Snapshot
		last      Status
		countdown int
		want      View
	}{
		{"no key beats stale success", Snapshot{Enabled: true}, StatusSuccess, 0, View{StatusNotConfigured, "Not configured", ToneGray}},
		{"no key beats disabled", Snapshot{}, StatusFailed, 3, View{StatusNotConfigured, "Not configured", ToneGray}},
		{"disabled beats outcome", Snapshot{APIKey: "k"}, StatusSuccess, 0, View{StatusDisabled, "Disabled", ToneOrange}},
		{"success", ready, StatusSuccess, 5, View{StatusSuccess, "In Sync", ToneGreen}},
		{"connecting", ready, StatusConnecting, 0, View{StatusConnecting, "Connecting...", ToneOrange}},
		{"auth", ready, StatusAuthFailed, 0, View{StatusAuthFailed, "API Key invalid", ToneRed}},
		{"failed", ready, StatusFailed, 0, View{StatusFailed, "Connection failed", ToneRed}},
		{"countdown", ready, StatusDisconnected, 7, View{StatusDisconnected, "Disconnected (7s)", ToneRed}},
		{"disconnected", ready, StatusDisconnected, 0, View{StatusDisconnected, "Disconnected", ToneRed}},
		{"unknown outcome", ready, Status("weird"), 0, View{StatusDisconnected, "Disconnected", ToneRed}},
	}
	for _, tc := range cases {
		got := Reduce(tc.snap, tc.last, tc.countdown)
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
		if again := Reduce(tc.snap, tc.last, tc.countdown); again != got {
			t.Fatalf("%s: Reduce not deterministic: %+v vs %+v", tc.name, got, again)
		}
	}
}

type boardSurface struct{ views []View }

func (s *boardSurface) ShowStatus(v View) { s.views = append(s.views, v) }

func TestBoardLastWriteWins(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16, TopicStatusChanged)
	defer unsub()

	b := NewBoard(func() Snapshot { return Snapshot{APIKey: "k", Enabled: true} }, bus)
	surf := &boardSurface{}
	b.Attach(surf)

	b.Set(StatusFailed)
	b.Set(StatusSuccess)
	b.Set(StatusSuccess)

	if got := b.View().Status; got != StatusSuccess {
		t.Fatalf("View status=%q want success", got)
	}
	if len(surf.views) != 4 {
		t.Fatalf("surface saw %d views, want 4 (attach + 3 sets)", len(surf.views))
	}

	var got []Status
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case e := <-events:
			got = append(got, e.Data.(StatusChanged).View.Status)
		case <-timeout:
			t.Fatalf("missing status events, got %v", got)
		}
	}
	if got[0] != StatusFailed || got[1] != StatusSuccess {
		t.Fatalf("unexpected status events %v", got)
	}
	select {
	case e := <-events:
		t.Fatalf("repeated view should not publish: %+v", e)
	default:
	}
}
