package journal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edspec/internal/relay"
	"edspec/pkg/logx"

	"github.com/fsnotify/fsnotify"
)

// Sink receives forwarded journal events and account snapshots.
type Sink interface {
	OnGameEvent(cmdr, system, station string, entry relay.Entry, state relay.GameState) error
	OnAccountSnapshot(data relay.AccountData) error
}

type Config struct {
	Dir             string
	StatusFile      string // default <Dir>/Status.json
	AccountSnapshot string // optional
	// PollInterval re-reads the active journal in case the OS coalesces
	// or drops write notifications. Default 1s.
	PollInterval time.Duration
}

// Watcher follows the newest Journal.*.log in Dir.
type Watcher struct {
	cfg     Config
	sink    Sink
	log     logx.Logger
	tracker *Tracker

	current string
	offset  int64
	partial []byte
}

func NewWatcher(cfg Config, sink Sink, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.StatusFile == "" && cfg.Dir != "" {
		cfg.StatusFile = filepath.Join(cfg.Dir, "Status.json")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Watcher{cfg: cfg, sink: sink, log: log.With(logx.String("comp", "journal")), tracker: &Tracker{}}
}

func (w *Watcher) Tracker() *Tracker { return w.tracker }

func isJournal(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "Journal.") && strings.HasSuffix(base, ".log")
}

// newestJournal returns the most recently modified journal in dir.
func newestJournal(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range ents {
		if e.IsDir() || !isJournal(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) || (info.ModTime().Equal(bestMod) && e.Name() > filepath.Base(best)) {
			best, bestMod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	return best, nil
}

// Run watches until ctx is done. It returns an error when the watcher
// breaks so a supervisor can restart it.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.Dir == "" {
		return errors.New("journal dir is not configured")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return err
	}
	if acct := w.cfg.AccountSnapshot; acct != "" && filepath.Dir(acct) != filepath.Clean(w.cfg.Dir) {
		if err := fw.Add(filepath.Dir(acct)); err != nil {
			w.log.Warn("cannot watch account snapshot dir", logx.String("path", acct), logx.Err(err))
		}
	}

	// Catch up silently so the first forwarded event has full state.
	if err := w.catchUp(); err != nil {
		w.log.Warn("journal catch-up failed", logx.Err(err))
	}
	w.refreshStatus()
	w.log.Info("journal watcher started", logx.String("dir", w.cfg.Dir), logx.String("file", filepath.Base(w.current)))

	tick := time.NewTicker(w.cfg.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			w.rescan()
			w.follow()
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("journal watcher closed")
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("journal watcher closed")
			}
			if err != nil {
				w.log.Warn("journal watch error", logx.Err(err))
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	name := filepath.Clean(ev.Name)
	switch {
	case isJournal(name):
		if name != w.current && ev.Op&fsnotify.Create != 0 {
			w.follow() // drain the old file first
			w.log.Info("switching journal", logx.String("file", filepath.Base(name)))
			w.open(name)
		}
		w.follow()
	case w.cfg.StatusFile != "" && name == filepath.Clean(w.cfg.StatusFile):
		w.refreshStatus()
	case w.cfg.AccountSnapshot != "" && name == filepath.Clean(w.cfg.AccountSnapshot):
		w.refreshAccount()
	}
}

// rescan switches to a newer journal missed by the notifier.
func (w *Watcher) rescan() {
	path, err := newestJournal(w.cfg.Dir)
	if err != nil || path == "" || path == w.current || w.current == "" {
		return
	}
	if filepath.Base(path) < filepath.Base(w.current) {
		return
	}
	w.follow()
	w.log.Info("switching journal", logx.String("file", filepath.Base(path)))
	w.open(path)
}

func (w *Watcher) open(path string) {
	w.current = path
	w.offset = 0
	w.partial = nil
}

func (w *Watcher) catchUp() error {
	path, err := newestJournal(w.cfg.Dir)
	if err != nil || path == "" {
		return err
	}
	w.open(path)
	return w.read(false)
}

func (w *Watcher) follow() {
	if w.current == "" {
		if path, _ := newestJournal(w.cfg.Dir); path != "" {
			w.open(path)
		} else {
			return
		}
	}
	if err := w.read(true); err != nil {
		w.log.Debug("journal read failed", logx.String("file", filepath.Base(w.current)), logx.Err(err))
	}
}

// read consumes complete lines appended since the last call.
func (w *Watcher) read(forward bool) error {
	f, err := os.Open(w.current)
	if err != nil {
		return err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() < w.offset {
		// truncated or replaced
		w.offset, w.partial = 0, nil
	}
	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return err
	}
	chunk, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	w.offset += int64(len(chunk))

	buf := append(w.partial, chunk...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(buf[:i])
		buf = buf[i+1:]
		if len(line) == 0 {
			continue
		}
		w.line(line, forward)
	}
	w.partial = append([]byte(nil), buf...)
	return nil
}

func (w *Watcher) line(line []byte, forward bool) {
	entry, ok := w.tracker.Apply(line)
	if !ok {
		w.log.Debug("skipping malformed journal line", logx.Int("bytes", len(line)))
		return
	}
	if !forward || w.sink == nil {
		return
	}
	pos := w.tracker.Position()
	if err := w.sink.OnGameEvent(pos.Cmdr, pos.System, pos.Station, entry, pos.State); err != nil {
		w.log.Warn("journal entry not forwarded", logx.String("event", entry.Event), logx.Err(err))
	}
}

func (w *Watcher) refreshStatus() {
	if w.cfg.StatusFile == "" {
		return
	}
	b, err := os.ReadFile(w.cfg.StatusFile)
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return
	}
	if !w.tracker.ApplyStatus(b) {
		w.log.Debug("status file not parseable yet")
	}
}

func (w *Watcher) refreshAccount() {
	b, err := os.ReadFile(w.cfg.AccountSnapshot)
	if err != nil {
		w.log.Debug("account snapshot unreadable", logx.Err(err))
		return
	}
	data, ok := ParseAccount(b)
	if !ok {
		w.log.Debug("account snapshot not parseable yet")
		return
	}
	if w.sink == nil {
		return
	}
	if err := w.sink.OnAccountSnapshot(data); err != nil {
		w.log.Warn("account snapshot not forwarded", logx.Err(err))
	}
}
