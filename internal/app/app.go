package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"edspec/internal/clock"
	"edspec/internal/config"
	"edspec/internal/eventbus"
	"edspec/internal/housekeeping"
	"edspec/internal/journal"
	"edspec/internal/observability/statusz"
	"edspec/internal/relay"
	"edspec/internal/runtime/supervisor"
	"edspec/internal/storage"
	"edspec/internal/transport/telegram/client"
	"edspec/internal/ui"
	logx "edspec/pkg/logx"
)

// Options selects the local surfaces. A service run under a process manager
// usually disables both.
type Options struct {
	// Console prints status changes to stdout.
	Console bool
	// Interactive asks on the terminal before opening the releases page.
	Interactive bool
	Clock       clock.Clock
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	tg    *client.Client

	relay    *relay.Relay
	watcher  *journal.Watcher
	hk       *housekeeping.Service
	statusz  *statusz.Service
	tgStatus *ui.TelegramStatus

	started time.Time
}

func NewApp(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	// Telegram is optional: it carries remote logs and status messages.
	var tg *client.Client
	if t := cfg.Telegram; t != nil && strings.TrimSpace(t.Token) != "" {
		tg, err = client.New(client.Config{
			Token:    t.Token,
			ChatID:   t.ChatID,
			ThreadID: t.ThreadID,
		}, logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
	}
	var sink logx.RemoteSink
	if tg != nil {
		sink = tg
	}
	logSvc, log := logx.New(mapLogConfig(cfg), sink)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := MapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	ropts, err := mapRelayOptions(cfg)
	if err != nil {
		return nil, err
	}
	ropts.Prefs = func() relay.Snapshot { return snapshotOf(cfgm.Prefs()) }
	ropts.Log = log
	ropts.Clock = opts.Clock
	ropts.Bus = bus
	ropts.Opener = ui.BrowserOpener{}
	if opts.Interactive {
		ropts.Prompter = ui.NewTerminalPrompter()
	}
	rl := relay.New(ropts)
	if opts.Console {
		rl.Attach(ui.NewStdoutConsole())
	}

	a := &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   bus,
		store: store,
		tg:    tg,
		relay: rl,
	}

	if jc, ok := mapJournalConfig(cfg); ok {
		a.watcher = journal.NewWatcher(jc, rl, log)
	} else {
		log.Warn("journal.dir not set; only account snapshots from the CLI will be relayed")
	}

	if hc, enabled, err := mapHousekeepingConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		if store == nil {
			log.Warn("housekeeping enabled but storage is disabled; skipping")
		} else if a.hk, err = housekeeping.New(hc, store, opts.Clock, log); err != nil {
			return nil, err
		}
	}

	a.statusz = statusz.New(mapStatuszConfig(cfg), a.report, log)

	if tg != nil && cfg.Telegram.StatusUpdates {
		a.tgStatus = ui.NewTelegramStatus(tg, rl.CurrentCmdr, log)
	}
	return a, nil
}

func (a *App) Relay() *relay.Relay { return a.relay }

func (a *App) Config() *config.Manager { return a.cfgm }

func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// validate rejects a reloaded config the running app could not apply.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	var errs []error
	if _, err := mapRelayOptions(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := MapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := mapHousekeepingConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if hk := cfg.Housekeeping; hk != nil && hk.Enabled && strings.TrimSpace(hk.Schedule) != "" {
		if _, err := housekeeping.ParseSchedule(hk.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("housekeeping.schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(a.validate)

	if a.store != nil {
		a.sup.Go0("audit.record", func(c context.Context) {
			recordDeliveries(c, a.bus, a.store, a.log.With(logx.String("comp", "audit")))
		})
	}
	if a.tgStatus != nil {
		a.sup.Go("telegram.status", func(c context.Context) error { return a.tgStatus.Run(c, a.bus) })
	}

	a.relay.Start(a.sup.Context())

	if a.watcher != nil {
		a.sup.GoRestart("journal.watch", a.watcher.Run, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	}
	if a.hk != nil {
		if err := a.hk.Start(); err != nil {
			return err
		}
	}
	a.statusz.Start(a.sup.Context())

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("config", a.cfgm.Path()))
	return nil
}

// restartSections names the config sections that only take effect on the
// next start.
func restartSections(prev, next *config.Config) []string {
	var out []string
	if !reflect.DeepEqual(prev.Heartbeat, next.Heartbeat) {
		out = append(out, "heartbeat")
	}
	if !reflect.DeepEqual(prev.Updates, next.Updates) {
		out = append(out, "updates")
	}
	if prev.Relay.RequestTimeout != next.Relay.RequestTimeout {
		out = append(out, "relay.request_timeout")
	}
	if !reflect.DeepEqual(prev.Journal, next.Journal) {
		out = append(out, "journal")
	}
	if !reflect.DeepEqual(prev.Telegram, next.Telegram) {
		out = append(out, "telegram")
	}
	if !reflect.DeepEqual(prev.Storage, next.Storage) {
		out = append(out, "storage")
	}
	if !reflect.DeepEqual(prev.Housekeeping, next.Housekeeping) {
		out = append(out, "housekeeping")
	}
	return out
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	if prev != nil {
		if rs := restartSections(prev, next); len(rs) > 0 {
			a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(rs, ",")))
		}
	}
	a.logs.Apply(mapLogConfig(next))
	// Preferences are read per delivery; only the status line needs a nudge.
	a.relay.Refresh()
	a.statusz.Reconfigure(ctx, mapStatuszConfig(next))
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.String("err", err.Error()))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			elapsed := time.Since(start)
			a.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", elapsed),
			)
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.String("err", err.Error()), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	// The relay goes first so its disconnect ping still sees a live network
	// context and the audit recorder is still draining.
	step("relay", 20*time.Second, func(c context.Context) error { a.relay.Stop(c); return nil })

	a.sup.Cancel()

	step("housekeeping", 2*time.Second, func(c context.Context) error {
		if a.hk != nil {
			a.hk.Stop(c)
		}
		return nil
	})
	step("statusz", 1*time.Second, func(c context.Context) error { a.statusz.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
