package relay

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"edspec/internal/storage"
	"edspec/pkg/logx"
)

const (
	dequeueTimeout = time.Second
	panicBackoff   = time.Second
)

// sender drains the queue, one POST per record, no retry.
type sender struct {
	r    *Relay
	hc   *http.Client
	stop *Signal
}

func (s *sender) run(ctx context.Context) {
	// Dequeue waits are cut short by the stop signal. In-flight POSTs
	// keep the parent context so Stop does not turn them into failures.
	wait, cancel := s.stop.Bind(ctx)
	defer cancel()

	for wait.Err() == nil {
		s.iterate(ctx, wait)
	}
}

func (s *sender) iterate(ctx, wait context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.r.log.Error("sender iteration panicked", logx.Any("panic", p), logx.Stack(string(debug.Stack())))
			select {
			case <-wait.Done():
			case <-s.r.clk.After(panicBackoff):
			}
		}
	}()

	rec, ok := s.r.queue.Dequeue(wait, dequeueTimeout)
	if !ok {
		return
	}
	s.deliver(ctx, rec)
}

func (s *sender) deliver(ctx context.Context, rec Record) {
	r := s.r
	snap := r.prefs()
	switch {
	case !snap.Enabled:
		r.stats.dropped.Add(1)
		r.log.Debug("relay disabled; record dropped", logx.String("id", rec.ID()))
		return
	case snap.APIKey == "":
		r.stats.dropped.Add(1)
		r.log.Warn("no api key configured; record dropped", logx.String("id", rec.ID()))
		return
	}

	res := post(ctx, s.hc, snap, rec)
	st := res.status()
	r.board.Set(st)
	r.stats.noteResult(st, resultErr(res), r.clk.Now())
	r.emitID(rec.ID(), storage.KindRecord, rec.Cmdr(), res)

	if st == StatusSuccess {
		r.log.Debug("record delivered", logx.String("id", rec.ID()), logx.Duration("took", res.Took))
		return
	}
	r.log.Warn("record delivery failed",
		logx.String("id", rec.ID()),
		logx.String("status", string(st)),
		logx.Int("code", res.Code),
		logx.Err(res.Err),
	)
}
