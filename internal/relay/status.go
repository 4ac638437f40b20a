package relay

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"edspec/internal/eventbus"
)

// Status is the connection outcome shown to the user.
type Status string

const (
	StatusNotConfigured Status = "not_configured"
	StatusDisabled      Status = "disabled"
	StatusConnecting    Status = "connecting"
	StatusSuccess       Status = "success"
	StatusAuthFailed    Status = "auth_failed"
	StatusFailed        Status = "failed"
	StatusDisconnected  Status = "disconnected"
)

// Tone is the display color of a status line.
type Tone string

const (
	ToneGray   Tone = "gray"
	ToneOrange Tone = "orange"
	ToneGreen  Tone = "green"
	ToneRed    Tone = "red"
)

// Snapshot is the preference set read fresh on every use.
type Snapshot struct {
	APIKey       string
	Enabled      bool
	ShareExtras  bool
	CheckUpdates bool
	APIURL       string
	UserAgent    string
}

// View is what a status surface renders.
type View struct {
	Status Status `json:"status"`
	Text   string `json:"text"`
	Tone   Tone   `json:"tone"`
}

// Reduce maps preferences, the last worker outcome and the heartbeat
// countdown to a View. Configuration wins over outcomes.
func Reduce(snap Snapshot, last Status, countdown int) View {
	switch {
	case snap.APIKey == "":
		return View{Status: StatusNotConfigured, Text: "Not configured", Tone: ToneGray}
	case !snap.Enabled:
		return View{Status: StatusDisabled, Text: "Disabled", Tone: ToneOrange}
	}
	switch last {
	case StatusSuccess:
		return View{Status: StatusSuccess, Text: "In Sync", Tone: ToneGreen}
	case StatusConnecting:
		return View{Status: StatusConnecting, Text: "Connecting...", Tone: ToneOrange}
	case StatusAuthFailed:
		return View{Status: StatusAuthFailed, Text: "API Key invalid", Tone: ToneRed}
	case StatusFailed:
		return View{Status: StatusFailed, Text: "Connection failed", Tone: ToneRed}
	}
	if countdown > 0 {
		return View{Status: StatusDisconnected, Text: "Disconnected (" + strconv.Itoa(countdown) + "s)", Tone: ToneRed}
	}
	return View{Status: StatusDisconnected, Text: "Disconnected", Tone: ToneRed}
}

// Surface receives every published View. Implementations must not block.
type Surface interface {
	ShowStatus(v View)
}

const TopicStatusChanged = "status.changed"

// StatusChanged is the eventbus payload for TopicStatusChanged.
type StatusChanged struct {
	View View
	Prev View
}

// Board holds the shared status. Writers race; the last Set wins.
type Board struct {
	prefs func() Snapshot
	bus   eventbus.Bus

	last      atomic.Value // Status
	countdown atomic.Int32

	mu       sync.Mutex
	surfaces []Surface
	shown    View
}

func NewBoard(prefs func() Snapshot, bus eventbus.Bus) *Board {
	b := &Board{prefs: prefs, bus: bus}
	b.last.Store(StatusDisconnected)
	return b
}

func (b *Board) Last() Status {
	s, _ := b.last.Load().(Status)
	return s
}

func (b *Board) Set(s Status) {
	b.last.Store(s)
	b.publish()
}

func (b *Board) SetCountdown(n int) {
	b.countdown.Store(int32(n))
	b.publish()
}

func (b *Board) View() View {
	return Reduce(b.prefs(), b.Last(), int(b.countdown.Load()))
}

func (b *Board) Attach(s Surface) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.surfaces = append(b.surfaces, s)
	b.mu.Unlock()
	s.ShowStatus(b.View())
}

// Refresh republishes the current View, e.g. after a preference change.
func (b *Board) Refresh() { b.publish() }

func (b *Board) publish() {
	v := b.View()

	b.mu.Lock()
	prev := b.shown
	b.shown = v
	surfaces := append([]Surface(nil), b.surfaces...)
	b.mu.Unlock()

	for _, s := range surfaces {
		s.ShowStatus(v)
	}
	if b.bus != nil && v != prev {
		b.bus.Publish(eventbus.Event{Type: TopicStatusChanged, Time: time.Now(), Data: StatusChanged{View: v, Prev: prev}})
	}
}
