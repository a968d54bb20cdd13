package pricing

import (
	"testing"

	"staylens/models"
)

func TestCacheAbsentByDefault(t *testing.T) {
	c := NewCache()
	if e := c.Get("2026-09-01_2026-09-03"); e.State != models.StateAbsent {
		t.Fatalf("expected absent, got %s", e.State)
	}
}

func TestCacheTerminalNeverReverts(t *testing.T) {
	c := NewCache()
	key := models.DateRangeKey("2026-09-01_2026-09-03")

	if !c.MarkPending(key) {
		t.Fatalf("expected pending mark to succeed")
	}
	c.SetStats(key, models.PriceStats{Min: 80, Max: 120, Avg: 100, Count: 3}, "EUR")

	if c.MarkPending(key) {
		t.Fatalf("terminal entry must not revert to pending")
	}
	if e := c.Get(key); e.State != models.StateStats || e.Stats == nil || e.Stats.Min != 80 {
		t.Fatalf("stats entry clobbered: %+v", e)
	}

	// A late empty write for an already-resolved key is ignored too.
	c.SetEmpty(key)
	if e := c.Get(key); e.State != models.StateStats {
		t.Fatalf("expected stats to survive late empty write, got %s", e.State)
	}
}

func TestCacheEmptyIsTerminal(t *testing.T) {
	c := NewCache()
	key := models.DateRangeKey("2026-09-02_2026-09-05")
	c.MarkPending(key)
	c.SetEmpty(key)

	if c.MarkPending(key) {
		t.Fatalf("empty entry must not revert to pending")
	}
	c.SetStats(key, models.PriceStats{Min: 1, Max: 2, Avg: 2, Count: 2}, "EUR")
	if e := c.Get(key); e.State != models.StateEmpty {
		t.Fatalf("expected empty to stay terminal, got %s", e.State)
	}
}

func TestCacheOnChangeFiresOnTerminalWrites(t *testing.T) {
	c := NewCache()
	fired := 0
	c.OnChange(func() { fired++ })

	c.MarkPending("2026-09-01_2026-09-02")
	if fired != 0 {
		t.Fatalf("pending write should not fire onChange")
	}
	c.SetEmpty("2026-09-01_2026-09-02")
	c.SetStats("2026-09-01_2026-09-03", models.PriceStats{Min: 5, Max: 9, Avg: 7, Count: 2}, "USD")
	if fired != 2 {
		t.Fatalf("expected 2 change notifications, got %d", fired)
	}
}
