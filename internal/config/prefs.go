package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrefKeys lists the keys accepted by SetPref.
var PrefKeys = []string{"api_key", "api_url", "app_name", "check_updates", "enabled", "share_extras"}

// SetPref assigns one relay preference from its string form.
func SetPref(cfg *Config, key, value string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	r := &cfg.Relay
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_key":
		r.APIKey = strings.TrimSpace(value)
	case "api_url":
		r.APIURL = strings.TrimSpace(value)
	case "app_name":
		r.AppName = strings.TrimSpace(value)
	case "enabled":
		return setBool(&r.Enabled, key, value)
	case "share_extras":
		return setBool(&r.ShareExtras, key, value)
	case "check_updates":
		return setBool(&r.CheckUpdates, key, value)
	default:
		return fmt.Errorf("unknown preference %q (known: %s)", key, strings.Join(PrefKeys, ", "))
	}
	return nil
}

func setBool(dst **bool, key, value string) error {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: want true or false, got %q", key, value)
	}
	*dst = &v
	return nil
}

// PrefValues returns the effective preferences as display strings. The API
// key is masked.
func (p Prefs) PrefValues() map[string]string {
	out := map[string]string{
		"api_key":       maskKey(p.APIKey()),
		"api_url":       p.APIURL(),
		"app_name":      p.AppName(),
		"check_updates": strconv.FormatBool(p.CheckUpdates()),
		"enabled":       strconv.FormatBool(p.Enabled()),
		"share_extras":  strconv.FormatBool(p.ShareExtras()),
	}
	return out
}

// SortedPrefKeys returns PrefKeys in display order.
func SortedPrefKeys() []string {
	keys := append([]string(nil), PrefKeys...)
	sort.Strings(keys)
	return keys
}

func maskKey(k string) string {
	switch {
	case k == "":
		return "(not set)"
	case len(k) <= 4:
		return "****"
	default:
		return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
	}
}
