package config

import "strings"

const (
	DefaultAPIURL      = "https://edspecbot.com/api/edmcConnector"
	DefaultAppName     = "EDSpecRelay"
	DefaultReleaseRepo = "sashathemiot/edspec-ed-market-connector"
)

type Config struct {
	Relay     RelayConfig     `json:"relay"`
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`
	Updates   UpdatesConfig   `json:"updates,omitempty"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Logging   LoggingConfig   `json:"logging"`

	Telegram     *TelegramConfig     `json:"telegram,omitempty"`
	Storage      *StorageConfig      `json:"storage,omitempty"`
	Housekeeping *HousekeepingConfig `json:"housekeeping,omitempty"`
	StatusServer *StatusServerConfig `json:"status_server,omitempty"`
}

// RelayConfig holds the user preferences read fresh by every delivery.
//
// Enabled, ShareExtras and CheckUpdates are pointers so an omitted key can
// default to true while an explicit false is kept.
type RelayConfig struct {
	APIURL       string `json:"api_url,omitempty"`
	APIKey       string `json:"api_key"`
	Enabled      *bool  `json:"enabled,omitempty"`
	ShareExtras  *bool  `json:"share_extras,omitempty"`
	CheckUpdates *bool  `json:"check_updates,omitempty"`

	// AppName is the first half of the User-Agent ("<app>/EDSpec").
	AppName        string `json:"app_name,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"` // default "10s"
}

// HeartbeatConfig tunes the liveness pinger. Defaults: interval "30s",
// countdown 10.
type HeartbeatConfig struct {
	Interval  string `json:"interval,omitempty"`
	Countdown *int   `json:"countdown,omitempty"`
}

type UpdatesConfig struct {
	Repo        string `json:"repo,omitempty"`
	SettleDelay string `json:"settle_delay,omitempty"` // default "5s"
}

// JournalConfig points at the game's journal directory.
//
// Example:
//
//	"journal": { "dir": "~/Saved Games/Frontier Developments/Elite Dangerous" }
type JournalConfig struct {
	Dir             string `json:"dir,omitempty"`
	StatusFile      string `json:"status_file,omitempty"`      // default "<dir>/Status.json"
	AccountSnapshot string `json:"account_snapshot,omitempty"` // optional CAPI profile dump
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
	Remote  LoggingRemote     `json:"remote,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingRemote forwards log lines to the Telegram chat.
type LoggingRemote struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type TelegramConfig struct {
	Token         string `json:"token"`
	ChatID        int64  `json:"chat_id"`
	ThreadID      int    `json:"thread_id,omitempty"`
	StatusUpdates bool   `json:"status_updates,omitempty"`
}

// StorageConfig controls the delivery audit store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./edspec.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type HousekeepingConfig struct {
	Enabled   bool   `json:"enabled"`
	Schedule  string `json:"schedule,omitempty"`  // default "@every 1h"
	Retention string `json:"retention,omitempty"` // default "168h"
}

// StatusServerConfig controls the optional status/pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6061").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type StatusServerConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"` // bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Prefs is a read-only view over the relay preferences of one config
// snapshot. The zero value reports "not configured".
type Prefs struct{ r RelayConfig }

func (c *Config) Prefs() Prefs {
	if c == nil {
		return Prefs{}
	}
	return Prefs{r: c.Relay}
}

func (p Prefs) APIKey() string     { return strings.TrimSpace(p.r.APIKey) }
func (p Prefs) Enabled() bool      { return boolOr(p.r.Enabled, true) }
func (p Prefs) ShareExtras() bool  { return boolOr(p.r.ShareExtras, true) }
func (p Prefs) CheckUpdates() bool { return boolOr(p.r.CheckUpdates, true) }

func (p Prefs) APIURL() string {
	if u := strings.TrimSpace(p.r.APIURL); u != "" {
		return u
	}
	return DefaultAPIURL
}

func (p Prefs) AppName() string {
	if a := strings.TrimSpace(p.r.AppName); a != "" {
		return a
	}
	return DefaultAppName
}
