package session

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"staylens/models"
)

// ParseResultsURL extracts the search context from a results page URL. The
// date range appears in one of two encodings: ISO strings
// (checkin=2026-09-01) or split year/month/monthday fields
// (checkin_year=2026&checkin_month=9&checkin_monthday=1).
func ParseResultsURL(rawURL string) (models.SearchContext, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.SearchContext{}, fmt.Errorf("parse results url: %w", err)
	}
	q := u.Query()

	ctx := models.SearchContext{
		Destination: q.Get("ss"),
		Adults:      intParam(q, "group_adults", 2),
		Children:    intParam(q, "group_children", 0),
		Rooms:       intParam(q, "no_rooms", 1),
	}

	ctx.Checkin = parseDay(q, "checkin")
	ctx.Checkout = parseDay(q, "checkout")

	if ctx.Checkin.IsZero() || ctx.Checkout.IsZero() || !ctx.Checkout.After(ctx.Checkin) {
		ctx.Checkin = time.Time{}
		ctx.Checkout = time.Time{}
		return ctx, nil
	}
	ctx.Nights = int(ctx.Checkout.Sub(ctx.Checkin).Hours() / 24)
	return ctx, nil
}

// parseDay reads either the ISO form (<name>=YYYY-MM-DD) or the split form
// (<name>_year, <name>_month, <name>_monthday).
func parseDay(q url.Values, name string) time.Time {
	if iso := q.Get(name); iso != "" {
		if t, err := time.Parse(models.DayFormat, iso); err == nil {
			return t
		}
	}

	year := intParam(q, name+"_year", 0)
	month := intParam(q, name+"_month", 0)
	day := intParam(q, name+"_monthday", 0)
	if year == 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func intParam(q url.Values, name string, def int) int {
	if v := q.Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
