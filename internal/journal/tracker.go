package journal

import (
	"sync"

	"edspec/internal/relay"

	"github.com/tidwall/gjson"
)

// Status.json flag bits.
const (
	flagDocked  = 1 << 0
	flag2OnFoot = 1 << 0
)

// Tracker folds journal lines into the commander's current location and
// ship state. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	cmdr    string
	system  string
	station string
	state   relay.GameState
}

// Position is a copy of the tracked location.
type Position struct {
	Cmdr    string
	System  string
	Station string
	State   relay.GameState
}

func (t *Tracker) Position() Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Position{Cmdr: t.cmdr, System: t.system, Station: t.station, State: t.state}
}

// Apply updates the state from one journal line and returns the entry.
// ok is false for blank or malformed lines.
func (t *Tracker) Apply(line []byte) (relay.Entry, bool) {
	if !gjson.ValidBytes(line) {
		return relay.Entry{}, false
	}
	doc := gjson.ParseBytes(line)
	event := doc.Get("event").String()
	if event == "" {
		return relay.Entry{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.state

	switch event {
	case "Commander":
		t.setCmdr(doc.Get("Name").String())
	case "LoadGame":
		t.setCmdr(doc.Get("Commander").String())
		s.ShipType = doc.Get("Ship").String()
		s.ShipModel = doc.Get("Ship_Localised").String()
		s.ShipName = doc.Get("ShipName").String()
		s.Credits = doc.Get("Credits").Int()
		s.OnFoot = false
		s.Role = ""
	case "Location":
		t.system = doc.Get("StarSystem").String()
		s.IsDocked = doc.Get("Docked").Bool()
		s.OnFoot = doc.Get("OnFoot").Bool()
		if s.IsDocked || s.OnFoot {
			t.station = doc.Get("StationName").String()
		} else {
			t.station = ""
		}
	case "FSDJump", "CarrierJump":
		t.system = doc.Get("StarSystem").String()
		if event == "FSDJump" {
			t.station = ""
			s.IsDocked = false
		}
	case "Docked":
		t.station = doc.Get("StationName").String()
		s.IsDocked = true
	case "Undocked":
		t.station = ""
		s.IsDocked = false
	case "Loadout":
		s.ShipType = doc.Get("Ship").String()
		s.ShipName = doc.Get("ShipName").String()
		if l := doc.Get("Ship_Localised"); l.Exists() {
			s.ShipModel = l.String()
		}
	case "ShipyardSwap":
		s.ShipType = doc.Get("ShipType").String()
		s.ShipModel = doc.Get("ShipType_Localised").String()
		s.ShipName = ""
	case "Embark":
		s.OnFoot = false
		if doc.Get("OnStation").Bool() {
			s.IsDocked = true
		}
	case "Disembark":
		s.OnFoot = true
		if doc.Get("OnStation").Bool() {
			t.station = doc.Get("StationName").String()
		}
	case "JoinACrew":
		s.Role = "Crew"
	case "QuitACrew", "EndCrewSession":
		s.Role = ""
	case "CrewMemberRoleChange":
		if r := doc.Get("Role").String(); r != "" && s.Role != "" {
			s.Role = r
		}
	}
	return relay.Entry{Event: event, Raw: append([]byte(nil), line...)}, true
}

func (t *Tracker) setCmdr(name string) {
	if name != "" {
		t.cmdr = name
	}
}

// ApplyStatus refreshes flags and balance from a Status.json document.
func (t *Tracker) ApplyStatus(b []byte) bool {
	if !gjson.ValidBytes(b) {
		return false
	}
	doc := gjson.ParseBytes(b)
	t.mu.Lock()
	defer t.mu.Unlock()
	if f := doc.Get("Flags"); f.Exists() {
		t.state.IsDocked = f.Int()&flagDocked != 0
	}
	if f := doc.Get("Flags2"); f.Exists() {
		t.state.OnFoot = f.Int()&flag2OnFoot != 0
	}
	if bal := doc.Get("Balance"); bal.Exists() {
		t.state.Credits = bal.Int()
	}
	return true
}

// ParseAccount extracts the profile fields the relay reads. Ships may be a
// list or an object keyed by id.
func ParseAccount(b []byte) (relay.AccountData, bool) {
	if !gjson.ValidBytes(b) {
		return relay.AccountData{}, false
	}
	doc := gjson.ParseBytes(b)
	var out relay.AccountData
	if c := doc.Get("commander"); c.IsObject() {
		out.Commander = &relay.AccountCommander{
			Name:    c.Get("name").String(),
			Credits: c.Get("credits").Int(),
		}
	}
	out.LastSystem = doc.Get("lastSystem.name").String()
	out.LastStarport = doc.Get("lastStarport.name").String()

	cur := doc.Get("currentShipId")
	if !cur.Exists() {
		cur = doc.Get("commander.currentShipId")
	}
	out.CurrentShipID = cur.Int()

	doc.Get("ships").ForEach(func(_, ship gjson.Result) bool {
		if ship.IsObject() {
			out.Ships = append(out.Ships, relay.AccountShip{ID: ship.Get("id").Int(), Name: ship.Get("name").String()})
		}
		return true
	})
	return out, true
}
