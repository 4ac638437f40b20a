package journal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"edspec/internal/relay"
	"edspec/pkg/logx"
)

type forwarded struct {
	cmdr, system, station, event string
	state                        relay.GameState
}

type recordingSink struct {
	mu       sync.Mutex
	events   []forwarded
	accounts []relay.AccountData
}

func (s *recordingSink) OnGameEvent(cmdr, system, station string, entry relay.Entry, state relay.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, forwarded{cmdr, system, station, entry.Event, state})
	return nil
}

func (s *recordingSink) OnAccountSnapshot(data relay.AccountData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, data)
	return nil
}

func (s *recordingSink) snapshot() ([]forwarded, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forwarded(nil), s.events...), len(s.accounts)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcherFollowsJournal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first := filepath.Join(dir, "Journal.2026-10-18T100000.01.log")
	appendLine(t, first, `{"event":"LoadGame","Commander":"Jameson","Ship":"SideWinder"}`)
	appendLine(t, first, `{"event":"Location","StarSystem":"Sol","Docked":false}`)

	account := filepath.Join(dir, "profile.json")
	sink := &recordingSink{}
	w := NewWatcher(Config{Dir: dir, AccountSnapshot: account, PollInterval: 20 * time.Millisecond}, sink, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, "catch-up", func() bool { return w.Tracker().Position().System == "Sol" })
	if evs, _ := sink.snapshot(); len(evs) != 0 {
		t.Fatalf("catch-up lines were forwarded: %+v", evs)
	}

	appendLine(t, first, `{"event":"FSDJump","StarSystem":"Alpha Centauri"}`)
	waitFor(t, "FSDJump", func() bool { evs, _ := sink.snapshot(); return len(evs) == 1 })
	evs, _ := sink.snapshot()
	if evs[0].cmdr != "Jameson" || evs[0].system != "Alpha Centauri" || evs[0].event != "FSDJump" || evs[0].state.ShipType != "SideWinder" {
		t.Fatalf("unexpected forward: %+v", evs[0])
	}

	second := filepath.Join(dir, "Journal.2026-10-18T120000.01.log")
	appendLine(t, second, `{"event":"Docked","StationName":"Hutton Orbital"}`)
	waitFor(t, "switch to new journal", func() bool { evs, _ := sink.snapshot(); return len(evs) == 2 })
	evs, _ = sink.snapshot()
	if evs[1].station != "Hutton Orbital" || !evs[1].state.IsDocked {
		t.Fatalf("unexpected forward after switch: %+v", evs[1])
	}

	if err := os.WriteFile(account, []byte(`{"commander":{"name":"Jameson","credits":5}}`), 0o600); err != nil {
		t.Fatalf("write account: %v", err)
	}
	waitFor(t, "account snapshot", func() bool { _, n := sink.snapshot(); return n >= 1 })
}

func TestWatcherRequiresDir(t *testing.T) {
	t.Parallel()
	w := NewWatcher(Config{}, nil, logx.Nop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatalf("expected error without dir")
	}
}
