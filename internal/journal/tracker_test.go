package journal

import (
	"testing"

	"edspec/internal/relay"
)

func TestTrackerApply(t *testing.T) {
	t.Parallel()
	tr := &Tracker{}
	lines := []string{
		`{"timestamp":"2026-10-18T10:00:00Z","event":"Commander","FID":"F1","Name":"Jameson"}`,
		`{"event":"LoadGame","Commander":"Jameson","Ship":"CobraMkIII","Ship_Localised":"Cobra Mk III","ShipName":"Nightingale","Credits":1000}`,
		`{"event":"Location","StarSystem":"Lave","Docked":true,"StationName":"Lave Station"}`,
	}
	for _, l := range lines {
		if _, ok := tr.Apply([]byte(l)); !ok {
			t.Fatalf("Apply(%s) rejected", l)
		}
	}
	pos := tr.Position()
	if pos.Cmdr != "Jameson" || pos.System != "Lave" || pos.Station != "Lave Station" || !pos.State.IsDocked {
		t.Fatalf("after location: %+v", pos)
	}
	if pos.State.ShipName != "Nightingale" || pos.State.ShipModel != "Cobra Mk III" || pos.State.Credits != 1000 {
		t.Fatalf("ship state: %+v", pos.State)
	}

	steps := []struct {
		line    string
		event   string
		system  string
		station string
		docked  bool
		onFoot  bool
	}{
		{`{"event":"Undocked","StationName":"Lave Station"}`, "Undocked", "Lave", "", false, false},
		{`{"event":"FSDJump","StarSystem":"Diso"}`, "FSDJump", "Diso", "", false, false},
		{`{"event":"Docked","StationName":"Shifnalport"}`, "Docked", "Diso", "Shifnalport", true, false},
		{`{"event":"Disembark","OnStation":true,"StationName":"Shifnalport"}`, "Disembark", "Diso", "Shifnalport", true, true},
		{`{"event":"Embark","OnStation":true}`, "Embark", "Diso", "Shifnalport", true, false},
	}
	for _, s := range steps {
		entry, ok := tr.Apply([]byte(s.line))
		if !ok || entry.Event != s.event {
			t.Fatalf("Apply(%s)=%+v,%v", s.line, entry, ok)
		}
		pos := tr.Position()
		if pos.System != s.system || pos.Station != s.station || pos.State.IsDocked != s.docked || pos.State.OnFoot != s.onFoot {
			t.Fatalf("after %s: %+v", s.event, pos)
		}
	}

	tr.Apply([]byte(`{"event":"JoinACrew","Captain":"Someone"}`))
	if tr.Position().State.Role == "" {
		t.Fatalf("role not set after JoinACrew")
	}
	tr.Apply([]byte(`{"event":"QuitACrew","Captain":"Someone"}`))
	if tr.Position().State.Role != "" {
		t.Fatalf("role not cleared after QuitACrew")
	}

	for _, bad := range []string{``, `not json`, `{"no_event":1}`} {
		if _, ok := tr.Apply([]byte(bad)); ok {
			t.Fatalf("Apply(%q) accepted", bad)
		}
	}
}

func TestTrackerApplyStatus(t *testing.T) {
	t.Parallel()
	tr := &Tracker{}
	if !tr.ApplyStatus([]byte(`{"Flags":1,"Flags2":1,"Balance":4200}`)) {
		t.Fatalf("ApplyStatus rejected")
	}
	st := tr.Position().State
	if !st.IsDocked || !st.OnFoot || st.Credits != 4200 {
		t.Fatalf("state %+v", st)
	}
	tr.ApplyStatus([]byte(`{"Flags":16777216,"Flags2":0}`))
	st = tr.Position().State
	if st.IsDocked || st.OnFoot || st.Credits != 4200 {
		t.Fatalf("state after undock %+v", st)
	}
	if tr.ApplyStatus([]byte(`{`)) {
		t.Fatalf("partial write accepted")
	}
}

func TestParseAccount(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		doc  string
		want relay.AccountData
	}{
		{
			"ships list",
			`{"commander":{"name":"Jameson","credits":55},"lastSystem":{"name":"Lave"},"lastStarport":{"name":"Lave Station"},"currentShipId":2,"ships":[{"id":1,"name":"Sidewinder"},{"id":2,"name":"Cobra"}]}`,
			relay.AccountData{Commander: &relay.AccountCommander{Name: "Jameson", Credits: 55}, LastSystem: "Lave", LastStarport: "Lave Station", CurrentShipID: 2,
				Ships: []relay.AccountShip{{ID: 1, Name: "Sidewinder"}, {ID: 2, Name: "Cobra"}}},
		},
		{
			"ships keyed by id",
			`{"commander":{"name":"Jameson","credits":1,"currentShipId":9},"ships":{"9":{"id":9,"name":"Python"}}}`,
			relay.AccountData{Commander: &relay.AccountCommander{Name: "Jameson", Credits: 1}, CurrentShipID: 9,
				Ships: []relay.AccountShip{{ID: 9, Name: "Python"}}},
		},
		{"no commander", `{"lastSystem":{"name":"Sol"}}`, relay.AccountData{LastSystem: "Sol"}},
	}
	for _, tc := range cases {
		got, ok := ParseAccount([]byte(tc.doc))
		if !ok {
			t.Fatalf("%s: rejected", tc.name)
		}
		if (got.Commander == nil) != (tc.want.Commander == nil) ||
			(got.Commander != nil && *got.Commander != *tc.want.Commander) ||
			got.LastSystem != tc.want.LastSystem || got.LastStarport != tc.want.LastStarport ||
			got.CurrentShipID != tc.want.CurrentShipID || len(got.Ships) != len(tc.want.Ships) {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
		for i := range got.Ships {
			if got.Ships[i] != tc.want.Ships[i] {
				t.Fatalf("%s: ship %d got %+v want %+v", tc.name, i, got.Ships[i], tc.want.Ships[i])
			}
		}
	}
}
