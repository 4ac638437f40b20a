package relay

import (
	"context"
	"net/http"
	"time"

	"edspec/internal/storage"
	"edspec/pkg/logx"
)

// heartbeat counts down, announces presence, then pings on every interval
// until stopped.
type heartbeat struct {
	r    *Relay
	hc   *http.Client
	stop *Signal
}

func (h *heartbeat) run(ctx context.Context) {
	r := h.r
	defer r.board.SetCountdown(0)
	for n := r.countdown; n > 0; n-- {
		if h.stop.IsSet() {
			return
		}
		r.board.SetCountdown(n)
		if !h.sleep(ctx, r.clk.After(time.Second)) {
			return
		}
	}
	r.board.SetCountdown(0)

	r.board.Set(StatusConnecting)
	h.ping(ctx)
	for {
		if !h.sleep(ctx, r.clk.After(r.interval)) {
			return
		}
		h.ping(ctx)
	}
}

// sleep reports false when the worker should exit.
func (h *heartbeat) sleep(ctx context.Context, timer <-chan time.Time) bool {
	select {
	case <-h.stop.Done():
		return false
	case <-ctx.Done():
		return false
	case <-timer:
		return true
	}
}

func (h *heartbeat) ping(ctx context.Context) {
	r := h.r
	snap := r.prefs()
	if !snap.Enabled || snap.APIKey == "" {
		r.log.Trace("heartbeat skipped", logx.Bool("enabled", snap.Enabled), logx.Bool("has_key", snap.APIKey != ""))
		return
	}

	res := post(ctx, h.hc, snap, presence{Connected: true})
	st := res.status()
	r.board.Set(st)
	r.stats.pings.Add(1)
	r.stats.noteErr(resultErr(res), r.clk.Now())
	r.emit(storage.KindPing, r.CurrentCmdr(), res)
	if st != StatusSuccess {
		r.log.Warn("heartbeat failed", logx.String("status", string(st)), logx.Int("code", res.Code), logx.Err(res.Err))
	}
}
