package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"edspec/pkg/logx"
)

const (
	defaultReleaseAPIBase = "https://api.github.com"
	updateDialogTitle     = "EDSpec Plugin Update Available"
)

// updateChecker looks for a newer release once per process lifetime.
type updateChecker struct {
	r       *Relay
	repo    string
	apiBase string
	current string
	settle  time.Duration
	prompt  Prompter
	opener  BrowserOpener

	performed atomic.Bool
}

type releaseInfo struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
}

func (u *updateChecker) releasesPage() string {
	return "https://github.com/" + u.repo + "/releases/latest"
}

func (u *updateChecker) run(ctx context.Context, stop *Signal) {
	if !u.performed.CompareAndSwap(false, true) {
		return
	}
	log := u.r.log.With(logx.String("worker", "updates"))
	defer func() {
		if p := recover(); p != nil {
			log.Error("update check panicked", logx.Any("panic", p), logx.Stack(string(debug.Stack())))
		}
	}()

	select {
	case <-stop.Done():
		return
	case <-ctx.Done():
		return
	case <-u.r.clk.After(u.settle):
	}
	if stop.IsSet() || !u.r.prefs().CheckUpdates || u.repo == "" {
		return
	}

	latest, err := u.fetchLatest(ctx)
	if err != nil {
		log.Warn("update check failed", logx.Err(err))
		return
	}
	if latest == "" {
		log.Debug("no version in release metadata")
		return
	}
	if !IsNewer(latest, u.current) {
		log.Debug("relay is up to date", logx.String("current", u.current), logx.String("latest", latest))
		return
	}

	log.Info("update available", logx.String("current", u.current), logx.String("latest", latest))
	if u.prompt == nil {
		return
	}
	msg := fmt.Sprintf("A new version of the EDSpec plugin is available!\n\nCurrent version: %s\nLatest version: %s\n\nWould you like to visit the GitHub releases page?", u.current, latest)
	yes, err := u.prompt.Confirm(ctx, updateDialogTitle, msg)
	if err != nil {
		log.Warn("update prompt failed", logx.Err(err))
		return
	}
	if !yes || u.opener == nil {
		return
	}
	if err := u.opener.Open(ctx, u.releasesPage()); err != nil {
		log.Warn("open releases page failed", logx.Err(err))
	}
}

// fetchLatest returns the latest release version, or "" when the metadata
// carries none.
func (u *updateChecker) fetchLatest(ctx context.Context) (string, error) {
	base := strings.TrimRight(u.apiBase, "/")
	if base == "" {
		base = defaultReleaseAPIBase
	}
	url := base + "/repos/" + u.repo + "/releases/latest"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", u.r.prefs().UserAgent)

	resp, err := newHTTPClient(u.r.requestTimeout).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("repository not found: %s", u.repo)
	default:
		return "", fmt.Errorf("release metadata: unexpected response %d", resp.StatusCode)
	}

	var info releaseInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return "", fmt.Errorf("decode release metadata: %w", err)
	}
	return ExtractVersion(info.TagName, info.Name), nil
}
