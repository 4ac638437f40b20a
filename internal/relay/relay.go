package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edspec/internal/clock"
	"edspec/internal/eventbus"
	"edspec/internal/runtime/supervisor"
	"edspec/internal/storage"
	"edspec/pkg/logx"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// PluginName identifies the relay to the host and in the User-Agent.
const PluginName = "EDSpec"

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultCountdown         = 10
	defaultSettleDelay       = 5 * time.Second
	defaultJoinTimeout       = 5 * time.Second
	testCooldown             = 10 * time.Second
)

const TopicDeliveryCompleted = "delivery.completed"

// DeliveryCompleted is the eventbus payload for TopicDeliveryCompleted.
type DeliveryCompleted struct {
	Entry  storage.DeliveryEntry
	Status Status
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// BrowserOpener opens a URL in the user's browser.
type BrowserOpener interface {
	Open(ctx context.Context, url string) error
}

type Options struct {
	// Prefs returns the current preferences. It is called on every use.
	Prefs func() Snapshot

	Log   logx.Logger
	Clock clock.Clock
	Bus   eventbus.Bus

	Prompter Prompter
	Opener   BrowserOpener

	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	Countdown         *int
	SettleDelay       time.Duration
	JoinTimeout       time.Duration

	// ReleaseRepo is "owner/name" on GitHub.
	ReleaseRepo string
	// ReleaseAPIBase overrides https://api.github.com (tests).
	ReleaseAPIBase string
	// CurrentVersion is compared against the latest release.
	CurrentVersion string
}

// Relay is the explicit context shared by the adapter entry points and the
// background workers.
type Relay struct {
	log   logx.Logger
	clk   clock.Clock
	bus   eventbus.Bus
	prefs func() Snapshot

	queue   *Queue
	board   *Board
	stats   counters
	updates *updateChecker

	requestTimeout time.Duration
	interval       time.Duration
	countdown      int
	joinTimeout    time.Duration

	cmdr atomic.Value // string

	testMu      sync.Mutex
	testLimiter *rate.Limiter

	mu      sync.Mutex
	running bool
	sup     *supervisor.Supervisor
	stops   [3]*Signal
	joins   [3]<-chan struct{}
}

func New(opts Options) *Relay {
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Prefs == nil {
		opts.Prefs = func() Snapshot { return Snapshot{} }
	}
	countdown := defaultCountdown
	if opts.Countdown != nil && *opts.Countdown >= 0 {
		countdown = *opts.Countdown
	}

	r := &Relay{
		log:            opts.Log.With(logx.String("comp", "relay")),
		clk:            opts.Clock,
		bus:            opts.Bus,
		prefs:          opts.Prefs,
		queue:          NewQueue(opts.Clock),
		board:          NewBoard(opts.Prefs, opts.Bus),
		requestTimeout: orDefault(opts.RequestTimeout, defaultRequestTimeout),
		interval:       orDefault(opts.HeartbeatInterval, defaultHeartbeatInterval),
		countdown:      countdown,
		joinTimeout:    orDefault(opts.JoinTimeout, defaultJoinTimeout),
		testLimiter:    rate.NewLimiter(rate.Every(testCooldown), 1),
	}
	r.cmdr.Store("")
	r.updates = &updateChecker{
		r:       r,
		repo:    opts.ReleaseRepo,
		apiBase: opts.ReleaseAPIBase,
		current: opts.CurrentVersion,
		settle:  orDefault(opts.SettleDelay, defaultSettleDelay),
		prompt:  opts.Prompter,
		opener:  opts.Opener,
	}
	return r
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start launches the sender, heartbeat and update check. A second Start
// while running only returns the identifier.
func (r *Relay) Start(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return PluginName
	}

	r.sup = supervisor.New(ctx, supervisor.WithLogger(r.log))
	for i := range r.stops {
		r.stops[i] = NewSignal()
	}

	s := &sender{r: r, hc: newHTTPClient(r.requestTimeout), stop: r.stops[0]}
	h := &heartbeat{r: r, hc: newHTTPClient(r.requestTimeout), stop: r.stops[1]}
	r.joins[0] = r.sup.Go0("relay.sender", s.run)
	r.joins[1] = r.sup.Go0("relay.heartbeat", h.run)
	stop := r.stops[2]
	r.joins[2] = r.sup.Go0("relay.updates", func(ctx context.Context) { r.updates.run(ctx, stop) })

	r.running = true
	r.log.Info("relay started", logx.Int("queue_len", r.queue.Len()))
	return PluginName
}

// Stop sends a best-effort disconnect ping, signals every worker and joins
// each one with a bounded wait. Workers that overrun are logged and left.
func (r *Relay) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stops, joins, sup := r.stops, r.joins, r.sup
	r.mu.Unlock()

	r.sendDisconnect(ctx)

	for _, s := range stops {
		s.Set()
	}
	names := [3]string{"relay.sender", "relay.heartbeat", "relay.updates"}
	for i, done := range joins {
		select {
		case <-done:
		case <-r.clk.After(r.joinTimeout):
			r.log.Warn("worker did not stop in time (continuing)", logx.String("worker", names[i]), logx.Duration("timeout", r.joinTimeout))
		case <-ctx.Done():
			r.log.Warn("stop canceled while joining worker", logx.String("worker", names[i]), logx.Err(ctx.Err()))
		}
	}
	sup.Cancel()
	r.log.Info("relay stopped", logx.Int("queue_len", r.queue.Len()))
}

func (r *Relay) sendDisconnect(ctx context.Context) {
	snap := r.prefs()
	if !snap.Enabled || snap.APIKey == "" {
		return
	}
	hc := newHTTPClient(r.requestTimeout)
	res := post(ctx, hc, snap, presence{Connected: false})
	r.emit(storage.KindDisconnect, "", res)
	if res.Err != nil {
		r.log.Debug("disconnect ping failed", logx.Err(res.Err))
	}
}

func (r *Relay) Attach(s Surface) { r.board.Attach(s) }

// Refresh republishes the status view after a preference change.
func (r *Relay) Refresh() { r.board.Refresh() }

func (r *Relay) View() View { return r.board.View() }

func (r *Relay) Stats() Stats { return r.stats.snapshot(r.queue.Len()) }

// Tasks reports the background workers of the current run.
func (r *Relay) Tasks() []supervisor.TaskStats {
	r.mu.Lock()
	sup := r.sup
	r.mu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Snapshot()
}

// CurrentCmdr is the last commander seen by either entry point.
func (r *Relay) CurrentCmdr() string {
	s, _ := r.cmdr.Load().(string)
	return s
}

func (r *Relay) noteCmdr(name string) {
	if name != "" {
		r.cmdr.Store(name)
	}
}

func (r *Relay) enqueue(rec Record) {
	r.queue.Enqueue(rec)
	r.stats.queued.Add(1)
}

// emit publishes a delivery outcome for the audit recorder.
func (r *Relay) emit(kind, cmdr string, res result) {
	r.emitID(uuid.NewString(), kind, cmdr, res)
}

func (r *Relay) emitID(id, kind, cmdr string, res result) {
	if r.bus == nil {
		return
	}
	st := res.status()
	e := storage.DeliveryEntry{
		ID:         id,
		At:         r.clk.Now(),
		Kind:       kind,
		Cmdr:       cmdr,
		StatusCode: res.Code,
		Outcome:    string(st),
		TookMS:     res.Took.Milliseconds(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	r.bus.Publish(eventbus.Event{Type: TopicDeliveryCompleted, Time: e.At, Data: DeliveryCompleted{Entry: e, Status: st}})
}

// resultErr turns a non-200 response into an error for stats and logs.
func resultErr(res result) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Code != 200 {
		return fmt.Errorf("unexpected response: %d", res.Code)
	}
	return nil
}

// TestResult is the outcome of TestConnection.
type TestResult struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// TestConnection posts a test presence with apiKey (or the configured key
// when empty). Calls within 10s of the previous one fail with ErrCooldown.
func (r *Relay) TestConnection(ctx context.Context, apiKey string) (TestResult, error) {
	r.testMu.Lock()
	allowed := r.testLimiter.AllowN(r.clk.Now(), 1)
	r.testMu.Unlock()
	if !allowed {
		return TestResult{}, ErrCooldown
	}

	snap := r.prefs()
	if k := strings.TrimSpace(apiKey); k != "" {
		snap.APIKey = k
	}
	if snap.APIKey == "" {
		return TestResult{Message: "No API key configured"}, ErrNoAPIKey
	}

	res := post(ctx, newHTTPClient(r.requestTimeout), snap, presence{Connected: true, Test: true})
	r.emit(storage.KindTest, r.CurrentCmdr(), res)
	return TestResult{OK: res.status() == StatusSuccess, Code: res.Code, Message: describeTestResult(res)}, nil
}
