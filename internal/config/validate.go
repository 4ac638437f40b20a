package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks field syntax only. Semantic checks that need other
// packages (cron schedules, listener addresses) run in the app validator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if raw := strings.TrimSpace(cfg.Relay.APIURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("relay.api_url: must be an absolute http(s) URL, got %q", raw))
		}
	}
	if _, err := ParseDurationField("relay.request_timeout", cfg.Relay.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("heartbeat.interval", cfg.Heartbeat.Interval); err != nil {
		errs = append(errs, err)
	}
	if c := cfg.Heartbeat.Countdown; c != nil && *c < 0 {
		errs = append(errs, fmt.Errorf("heartbeat.countdown: must be >= 0"))
	}
	if _, err := ParseDurationField("updates.settle_delay", cfg.Updates.SettleDelay); err != nil {
		errs = append(errs, err)
	}
	if r := strings.TrimSpace(cfg.Updates.Repo); r != "" && strings.Count(r, "/") != 1 {
		errs = append(errs, fmt.Errorf("updates.repo: want owner/name, got %q", r))
	}

	if t := cfg.Telegram; t != nil && strings.TrimSpace(t.Token) != "" && t.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id: required when token is set"))
	}
	if cfg.Logging.Remote.Enabled && (cfg.Telegram == nil || strings.TrimSpace(cfg.Telegram.Token) == "") {
		errs = append(errs, errors.New("logging.remote: requires telegram.token"))
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if h := cfg.Housekeeping; h != nil {
		if _, err := ParseDurationField("housekeeping.retention", h.Retention); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
