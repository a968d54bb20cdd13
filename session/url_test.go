package session

import (
	"testing"
	"time"
)

func TestParseResultsURLISO(t *testing.T) {
	ctx, err := ParseResultsURL("https://example.com/searchresults.html?ss=Lisbon&checkin=2026-09-01&checkout=2026-09-04&group_adults=3&no_rooms=2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ctx.Destination != "Lisbon" {
		t.Fatalf("expected destination Lisbon, got %q", ctx.Destination)
	}
	if ctx.Adults != 3 || ctx.Rooms != 2 || ctx.Children != 0 {
		t.Fatalf("unexpected occupancy %+v", ctx)
	}
	if ctx.Nights != 3 {
		t.Fatalf("expected 3 nights, got %d", ctx.Nights)
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !ctx.Checkin.Equal(want) {
		t.Fatalf("expected checkin %s, got %s", want, ctx.Checkin)
	}
}

func TestParseResultsURLSplitFields(t *testing.T) {
	ctx, err := ParseResultsURL("https://example.com/searchresults.html?ss=Porto&checkin_year=2026&checkin_month=12&checkin_monthday=30&checkout_year=2027&checkout_month=1&checkout_monthday=2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !ctx.HasDates() {
		t.Fatalf("expected dates to be parsed: %+v", ctx)
	}
	if ctx.Nights != 3 {
		t.Fatalf("expected 3 nights across year boundary, got %d", ctx.Nights)
	}
}

func TestParseResultsURLNoDates(t *testing.T) {
	ctx, err := ParseResultsURL("https://example.com/searchresults.html?ss=Madrid")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ctx.HasDates() {
		t.Fatalf("expected no dates, got %+v", ctx)
	}
	if ctx.Adults != 2 || ctx.Rooms != 1 {
		t.Fatalf("expected occupancy defaults, got %+v", ctx)
	}
}

func TestParseResultsURLInvertedRange(t *testing.T) {
	ctx, err := ParseResultsURL("https://example.com/searchresults.html?checkin=2026-09-04&checkout=2026-09-01")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ctx.HasDates() {
		t.Fatalf("checkout before checkin must be rejected, got %+v", ctx)
	}
}

func TestSessionCurrencySticky(t *testing.T) {
	s := New()
	s.SetCurrency("EUR")
	s.SetCurrency("")
	if got := s.Currency(); got != "EUR" {
		t.Fatalf("empty detection must not clear currency, got %q", got)
	}
	s.SetCurrency("USD")
	if got := s.Currency(); got != "USD" {
		t.Fatalf("expected USD, got %q", got)
	}
}
