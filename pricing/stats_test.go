package pricing

import (
	"testing"

	"staylens/models"
)

func TestCalcStatsExample(t *testing.T) {
	got := CalcStats([]float64{89, 104, 97, 210, 185})
	want := models.PriceStats{Min: 89, Max: 210, Avg: 137, Count: 5}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCalcStatsSingle(t *testing.T) {
	got := CalcStats([]float64{42.5})
	if got.Min != 42.5 || got.Max != 42.5 || got.Avg != 43 || got.Count != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestCalcStatsOrdering(t *testing.T) {
	lists := [][]float64{
		{1.5, 2, 3},
		{100, 100, 100},
		{999998, 2, 500},
		{7.25, 9.99, 3.01, 88},
	}
	for _, prices := range lists {
		s := CalcStats(prices)
		if s.Min > s.Avg || s.Avg > s.Max {
			t.Fatalf("min <= avg <= max violated for %v: %+v", prices, s)
		}
		if s.Count != len(prices) {
			t.Fatalf("expected count %d, got %d", len(prices), s.Count)
		}
	}
}
