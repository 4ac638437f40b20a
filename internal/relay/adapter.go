package relay

import (
	"errors"
	"fmt"
	"runtime/debug"

	"edspec/pkg/logx"
)

// forwardedEvents are the journal events that produce a record.
var forwardedEvents = map[string]struct{}{
	"FSDJump":   {},
	"Location":  {},
	"Docked":    {},
	"Undocked":  {},
	"Loadout":   {},
	"Embark":    {},
	"Disembark": {},
}

// Entry is one journal line. Only Event is interpreted.
type Entry struct {
	Event string
	Raw   []byte
}

// GameState is the tracked player state at the time of an entry.
type GameState struct {
	OnFoot   bool
	IsDocked bool
	// Role is set while crewing in another commander's ship.
	Role string

	ShipName string // player-given name
	// ShipModel is the display name of the hull, used when ShipName is empty.
	ShipModel string
	ShipType  string
	Credits   int64
}

func (s GameState) presence() Presence {
	switch {
	case s.OnFoot:
		return PresenceOnFoot
	case s.IsDocked:
		return PresenceDocked
	case s.Role != "":
		return PresenceDocked
	default:
		return PresenceUndocked
	}
}

func (s GameState) shipName() string {
	switch {
	case s.ShipName != "":
		return s.ShipName
	case s.ShipModel != "":
		return s.ShipModel
	case s.ShipType != "":
		return s.ShipType
	default:
		return "Unknown"
	}
}

// AccountData is the subset of an account profile the relay reads.
type AccountData struct {
	Commander     *AccountCommander
	LastSystem    string
	LastStarport  string
	CurrentShipID int64
	Ships         []AccountShip
}

type AccountCommander struct {
	Name    string
	Credits int64
}

type AccountShip struct {
	ID   int64
	Name string
}

// OnGameEvent queues a record for allowlisted events. It never panics; an
// internal failure is returned as an error.
func (r *Relay) OnGameEvent(cmdr, system, station string, entry Entry, state GameState) (err error) {
	defer r.recoverInto(&err, "journal entry")

	r.noteCmdr(cmdr)
	if _, ok := forwardedEvents[entry.Event]; !ok {
		return nil
	}

	snap := r.prefs()
	var opts []RecordOption
	if snap.ShareExtras {
		opts = append(opts,
			WithShip(state.shipName()),
			WithCredits(max(state.Credits, 0)),
			WithPresence(state.presence()),
		)
	}
	rec, err := NewRecord(cmdr, system, station, opts...)
	if err != nil {
		if errors.Is(err, ErrInvalidRecord) {
			r.log.Debug("journal entry not forwarded", logx.String("event", entry.Event), logx.Err(err))
			return nil
		}
		return err
	}
	r.enqueue(rec)
	r.log.Debug("queued record", logx.String("event", entry.Event), logx.Bool("extras", snap.ShareExtras))
	return nil
}

// OnAccountSnapshot queues a record when the profile names a commander.
func (r *Relay) OnAccountSnapshot(data AccountData) (err error) {
	defer r.recoverInto(&err, "account snapshot")

	if data.Commander == nil || data.Commander.Name == "" {
		return nil
	}
	r.noteCmdr(data.Commander.Name)

	snap := r.prefs()
	var opts []RecordOption
	if snap.ShareExtras {
		opts = append(opts, WithCredits(max(data.Commander.Credits, 0)))
		if data.CurrentShipID != 0 {
			for _, s := range data.Ships {
				if s.ID == data.CurrentShipID {
					name := s.Name
					if name == "" {
						name = "Unknown"
					}
					opts = append(opts, WithShip(name))
					break
				}
			}
		}
	}
	rec, err := NewRecord(data.Commander.Name, data.LastSystem, data.LastStarport, opts...)
	if err != nil {
		return err
	}
	r.enqueue(rec)
	r.log.Debug("queued account record", logx.Bool("extras", snap.ShareExtras))
	return nil
}

func (r *Relay) recoverInto(err *error, what string) {
	if p := recover(); p != nil {
		r.log.Error("panic handling "+what, logx.Any("panic", p), logx.Stack(string(debug.Stack())))
		*err = fmt.Errorf("EDSpec error: %v", p)
	}
}
