package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		file string
		body string
	}{
		{"json", "cfg.json", `{"relay":{"api_key":"k1","enabled":false},"logging":{"level":"debug"}}`},
		{"jsonc", "cfg.jsonc", "{\n  // user key\n  \"relay\": {\"api_key\": \"k1\", \"enabled\": false,},\n  \"logging\": {\"level\": \"debug\"}\n}"},
		{"yaml", "cfg.yaml", "relay:\n  api_key: k1\n  enabled: false\nlogging:\n  level: debug\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), tc.file)
			writeFile(t, path, tc.body)

			cfg, err := NewManager(path).Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			p := cfg.Prefs()
			if p.APIKey() != "k1" || p.Enabled() || !p.ShareExtras() || !p.CheckUpdates() {
				t.Fatalf("unexpected prefs: key=%q enabled=%v extras=%v updates=%v",
					p.APIKey(), p.Enabled(), p.ShareExtras(), p.CheckUpdates())
			}
			if cfg.Logging.Level != "debug" {
				t.Fatalf("logging.level=%q", cfg.Logging.Level)
			}
		})
	}
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.json")
	writeFile(t, unknown, `{"relay":{"api_key":"x","bogus":1}}`)
	if _, err := NewManager(unknown).Parse(); err == nil {
		t.Fatalf("expected unknown field error")
	}

	trailing := filepath.Join(dir, "trailing.json")
	writeFile(t, trailing, `{"relay":{}}{"relay":{}}`)
	if _, err := NewManager(trailing).Parse(); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error, got %v", err)
	}

	scalar := filepath.Join(dir, "scalar.json")
	writeFile(t, scalar, `{"relay":{}} 42`)
	if _, err := NewManager(scalar).Parse(); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error for scalar, got %v", err)
	}
}

func TestPrefsDefaults(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	if p := nilCfg.Prefs(); p.APIKey() != "" || !p.Enabled() {
		t.Fatalf("nil config prefs: key=%q enabled=%v", p.APIKey(), p.Enabled())
	}

	cfg := &Config{Relay: RelayConfig{APIKey: "  abc  "}}
	p := cfg.Prefs()
	if p.APIKey() != "abc" {
		t.Fatalf("APIKey not trimmed: %q", p.APIKey())
	}
	if p.APIURL() != DefaultAPIURL || p.AppName() != DefaultAppName {
		t.Fatalf("defaults: url=%q app=%q", p.APIURL(), p.AppName())
	}
}

func TestUpdatePersistsAndPublishes(t *testing.T) {
	t.Parallel()

	for _, file := range []string{"cfg.json", "cfg.yaml"} {
		file := file
		t.Run(file, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), file)
			if created, err := WriteDefault(path); err != nil || !created {
				t.Fatalf("WriteDefault: created=%v err=%v", created, err)
			}

			m := NewManager(path)
			if _, err := m.Load(); err != nil {
				t.Fatalf("Load: %v", err)
			}
			sub := m.Subscribe(1)
			defer m.Unsubscribe(sub)

			off := false
			err := m.Update(context.Background(), func(c *Config) error {
				c.Relay.APIKey = "new-key"
				c.Relay.ShareExtras = &off
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}

			select {
			case got := <-sub:
				if got.Prefs().APIKey() != "new-key" {
					t.Fatalf("published key=%q", got.Prefs().APIKey())
				}
			default:
				t.Fatalf("expected a published config")
			}

			reread, err := NewManager(path).Load()
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if reread.Prefs().APIKey() != "new-key" || reread.Prefs().ShareExtras() {
				t.Fatalf("persisted prefs wrong: key=%q extras=%v", reread.Prefs().APIKey(), reread.Prefs().ShareExtras())
			}
		})
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cfg.json")
	writeFile(t, path, `{"relay":{"api_key":"k"}}`)

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := m.Update(context.Background(), func(c *Config) error {
		c.Heartbeat.Interval = "soon"
		return nil
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if m.Get().Heartbeat.Interval != "" {
		t.Fatalf("invalid config was committed")
	}
	b, _ := os.ReadFile(path)
	if strings.Contains(string(b), "soon") {
		t.Fatalf("invalid config was written: %s", b)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	neg := -1
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{Relay: RelayConfig{APIURL: "https://example.com/x"}}, ""},
		{"bad url", Config{Relay: RelayConfig{APIURL: "example.com"}}, "relay.api_url"},
		{"negative countdown", Config{Heartbeat: HeartbeatConfig{Countdown: &neg}}, "heartbeat.countdown"},
		{"bad repo", Config{Updates: UpdatesConfig{Repo: "noslash"}}, "updates.repo"},
		{"bad driver", Config{Storage: &StorageConfig{Driver: "redis"}}, "storage.driver"},
		{"chat id", Config{Telegram: &TelegramConfig{Token: "t"}}, "telegram.chat_id"},
		{"remote log", Config{Logging: LoggingConfig{Remote: LoggingRemote{Enabled: true}}}, "logging.remote"},
	}
	for _, tc := range cases {
		err := Validate(&tc.cfg)
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: want error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestSetPref(t *testing.T) {
	cfg := &Config{}
	steps := []struct {
		key, value string
		err        bool
	}{
		{"api_key", "  abcdef123  ", false},
		{"enabled", "false", false},
		{"share_extras", "0", false},
		{"check_updates", "maybe", true},
		{"volume", "11", true},
	}
	for _, s := range steps {
		err := SetPref(cfg, s.key, s.value)
		if (err != nil) != s.err {
			t.Fatalf("%s=%s: err=%v", s.key, s.value, err)
		}
	}
	p := cfg.Prefs()
	if p.APIKey() != "abcdef123" || p.Enabled() || p.ShareExtras() || !p.CheckUpdates() {
		t.Fatalf("prefs: key=%q enabled=%v extras=%v updates=%v", p.APIKey(), p.Enabled(), p.ShareExtras(), p.CheckUpdates())
	}
	if got := p.PrefValues()["api_key"]; got != "*****f123" {
		t.Fatalf("masked key=%q", got)
	}
}
