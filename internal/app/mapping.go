package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edspec/internal/config"
	"edspec/internal/housekeeping"
	"edspec/internal/journal"
	"edspec/internal/observability/statusz"
	"edspec/internal/relay"
	"edspec/internal/storage"
	"edspec/internal/version"
	"edspec/pkg/logx"
)

// MapStorageConfig returns the audit store settings and whether the store is
// enabled.
func MapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := expandHome(strings.TrimSpace(sc.Path))

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: expandHome(l.File.Path)},
		Remote: logx.RemoteConfig{
			Enabled:    l.Remote.Enabled,
			MinLevel:   l.Remote.MinLevel,
			RatePerSec: l.Remote.RatePerSec,
		},
	}
}

// snapshotOf maps the persisted preferences onto the relay's view of them.
func snapshotOf(p config.Prefs) relay.Snapshot {
	return relay.Snapshot{
		APIKey:       p.APIKey(),
		Enabled:      p.Enabled(),
		ShareExtras:  p.ShareExtras(),
		CheckUpdates: p.CheckUpdates(),
		APIURL:       p.APIURL(),
		UserAgent:    p.AppName() + "/" + relay.PluginName,
	}
}

func mapRelayOptions(cfg *config.Config) (relay.Options, error) {
	requestTimeout, err := config.ParseDurationOrDefault("relay.request_timeout", cfg.Relay.RequestTimeout, 10*time.Second)
	if err != nil {
		return relay.Options{}, err
	}
	interval, err := config.ParseDurationOrDefault("heartbeat.interval", cfg.Heartbeat.Interval, 30*time.Second)
	if err != nil {
		return relay.Options{}, err
	}
	settle, err := config.ParseDurationOrDefault("updates.settle_delay", cfg.Updates.SettleDelay, 5*time.Second)
	if err != nil {
		return relay.Options{}, err
	}
	repo := strings.TrimSpace(cfg.Updates.Repo)
	if repo == "" {
		repo = config.DefaultReleaseRepo
	}
	return relay.Options{
		RequestTimeout:    requestTimeout,
		HeartbeatInterval: interval,
		Countdown:         cfg.Heartbeat.Countdown,
		SettleDelay:       settle,
		ReleaseRepo:       repo,
		CurrentVersion:    version.Version,
	}, nil
}

func mapJournalConfig(cfg *config.Config) (journal.Config, bool) {
	dir := expandHome(strings.TrimSpace(cfg.Journal.Dir))
	if dir == "" {
		return journal.Config{}, false
	}
	return journal.Config{
		Dir:             dir,
		StatusFile:      expandHome(strings.TrimSpace(cfg.Journal.StatusFile)),
		AccountSnapshot: expandHome(strings.TrimSpace(cfg.Journal.AccountSnapshot)),
	}, true
}

func mapHousekeepingConfig(cfg *config.Config) (housekeeping.Config, bool, error) {
	hk := cfg.Housekeeping
	if hk == nil || !hk.Enabled {
		return housekeeping.Config{}, false, nil
	}
	retention, err := config.ParseDurationOrDefault("housekeeping.retention", hk.Retention, housekeeping.DefaultRetention)
	if err != nil {
		return housekeeping.Config{}, false, err
	}
	return housekeeping.Config{Schedule: hk.Schedule, Retention: retention}, true, nil
}

func mapStatuszConfig(cfg *config.Config) statusz.Config {
	ss := cfg.StatusServer
	if ss == nil {
		return statusz.Config{}
	}
	return statusz.Config{
		Enabled:       ss.Enabled,
		Addr:          ss.Addr,
		Token:         ss.Token,
		AllowInsecure: ss.AllowInsecure,
		Pprof:         ss.Pprof,
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// OneShotRelay builds an unstarted relay for CLI commands such as the
// connection test.
func OneShotRelay(cfgm *config.Manager, log logx.Logger) (*relay.Relay, error) {
	opts, err := mapRelayOptions(cfgm.Get())
	if err != nil {
		return nil, err
	}
	opts.Prefs = func() relay.Snapshot { return snapshotOf(cfgm.Prefs()) }
	opts.Log = log
	return relay.New(opts), nil
}
