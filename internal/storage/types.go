package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file (pure Go driver)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery kinds.
const (
	KindRecord     = "record"
	KindPing       = "ping"
	KindDisconnect = "disconnect"
	KindTest       = "test"
)

// DeliveryEntry records one POST attempt and its outcome.
type DeliveryEntry struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	Kind       string    `json:"kind"`
	Cmdr       string    `json:"cmdr,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
}
