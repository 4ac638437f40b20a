package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"edspec/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: want (nil, nil), got (%v, %v)", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestStoreDrivers(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "audit.db")}, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				e := DeliveryEntry{
					ID:         fmt.Sprintf("id-%d", i),
					At:         base.Add(time.Duration(i) * time.Minute),
					Kind:       KindRecord,
					Cmdr:       "Jameson",
					StatusCode: 200,
					Outcome:    "success",
					TookMS:     int64(10 + i),
				}
				if err := st.AppendDelivery(ctx, e); err != nil {
					t.Fatalf("AppendDelivery %d: %v", i, err)
				}
			}

			recent, err := st.RecentDeliveries(ctx, 3)
			if err != nil {
				t.Fatalf("RecentDeliveries: %v", err)
			}
			if len(recent) != 3 || recent[0].ID != "id-4" || recent[2].ID != "id-2" {
				t.Fatalf("unexpected recent order: %+v", recent)
			}
			if recent[0].Cmdr != "Jameson" || recent[0].StatusCode != 200 || !recent[0].At.Equal(base.Add(4*time.Minute)) {
				t.Fatalf("entry fields not round-tripped: %+v", recent[0])
			}

			removed, err := st.PruneBefore(ctx, base.Add(2*time.Minute))
			if err != nil {
				t.Fatalf("PruneBefore: %v", err)
			}
			if removed != 2 {
				t.Fatalf("removed=%d want 2", removed)
			}

			// Appends still work after a prune.
			if err := st.AppendDelivery(ctx, DeliveryEntry{ID: "id-5", At: base.Add(10 * time.Minute), Kind: KindPing, Outcome: "failed", Error: "refused"}); err != nil {
				t.Fatalf("AppendDelivery after prune: %v", err)
			}
			all, err := st.RecentDeliveries(ctx, 100)
			if err != nil {
				t.Fatalf("RecentDeliveries: %v", err)
			}
			if len(all) != 4 || all[0].ID != "id-5" || all[0].Error != "refused" {
				t.Fatalf("unexpected entries after prune: %+v", all)
			}
		})
	}
}
