package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Presence is the coarse player location reported with a record.
type Presence string

const (
	PresenceOnFoot   Presence = "onfoot"
	PresenceDocked   Presence = "docked"
	PresenceUndocked Presence = "undocked"
	PresenceUnknown  Presence = "unknown"
)

func (p Presence) valid() bool {
	switch p {
	case PresenceOnFoot, PresenceDocked, PresenceUndocked, PresenceUnknown:
		return true
	}
	return false
}

// Record is one outbound location update. Build it with NewRecord; the
// zero value is not deliverable.
type Record struct {
	id      string
	cmdr    string
	system  string
	station string

	ship     string
	hasShip  bool
	credits  int64
	hasCreds bool
	status   Presence
}

type RecordOption func(*Record)

func WithShip(name string) RecordOption {
	return func(r *Record) { r.ship, r.hasShip = name, true }
}

func WithCredits(n int64) RecordOption {
	return func(r *Record) { r.credits, r.hasCreds = n, true }
}

func WithPresence(p Presence) RecordOption {
	return func(r *Record) { r.status = p }
}

// NewRecord validates and builds a record. Station may be empty.
func NewRecord(cmdr, system, station string, opts ...RecordOption) (Record, error) {
	r := Record{cmdr: cmdr, system: system, station: station}
	for _, o := range opts {
		o(&r)
	}
	if strings.TrimSpace(r.cmdr) == "" {
		return Record{}, fmt.Errorf("%w: empty commander", ErrInvalidRecord)
	}
	if r.hasCreds && r.credits < 0 {
		return Record{}, fmt.Errorf("%w: negative credits %d", ErrInvalidRecord, r.credits)
	}
	if r.status != "" && !r.status.valid() {
		return Record{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.status)
	}
	r.id = uuid.NewString()
	return r, nil
}

// ID identifies the record in the delivery audit log. It is never sent.
func (r Record) ID() string      { return r.id }
func (r Record) Cmdr() string    { return r.cmdr }
func (r Record) System() string  { return r.system }
func (r Record) Station() string { return r.station }

// HasExtras reports whether any share-extras field is set.
func (r Record) HasExtras() bool { return r.hasShip || r.hasCreds || r.status != "" }

type recordWire struct {
	Cmdr    string   `json:"cmdr"`
	System  string   `json:"system"`
	Station string   `json:"station"`
	Ship    *string  `json:"ship,omitempty"`
	Credits *int64   `json:"credits,omitempty"`
	Status  Presence `json:"status,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	w := recordWire{Cmdr: r.cmdr, System: r.system, Station: r.station, Status: r.status}
	if r.hasShip {
		ship := r.ship
		w.Ship = &ship
	}
	if r.hasCreds {
		credits := r.credits
		w.Credits = &credits
	}
	return json.Marshal(w)
}
