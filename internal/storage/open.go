package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"edspec/pkg/logx"
)

// Store is the persistence API used by the audit recorder, the status
// server and the history command.
type Store interface {
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	// RecentDeliveries returns up to n entries, newest first.
	RecentDeliveries(ctx context.Context, n int) ([]DeliveryEntry, error)
	// PruneBefore deletes entries older than t and reports how many went.
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
