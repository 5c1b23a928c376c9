package types

import (
	"bytes"
	"context"
	"strconv"
)

// DayAvailability describes one calendar day of a property: whether a stay
// may start or continue on it, its rate code, and whether guests change
// over on that day.
type DayAvailability struct {
	Date       Date     `json:"date"`
	Available  bool     `json:"available"`
	Code       RateCode `json:"code"`
	Changeover bool     `json:"changeover"`
}

// RateCode is the rate or price category of a day. Backends send it either
// as a JSON string or a bare number.
type RateCode string

// UnmarshalJSON accepts both `"7"` and `7`.
func (c *RateCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*c = RateCode(s)
		return nil
	}
	*c = RateCode(b)
	return nil
}

// AvailabilitySource is a per-day availability lookup.
type AvailabilitySource interface {
	// Day returns the availability of d, and false when nothing is known.
	Day(d Date) (DayAvailability, bool)
}

// AvailabilityResolver produces the availability source of a property.
type AvailabilityResolver interface {
	Resolve(ctx context.Context, propRef string) (AvailabilitySource, error)
}

// Calendar is an in-memory AvailabilitySource keyed by "YYYY-MM-DD".
type Calendar map[string]DayAvailability

// NewCalendar indexes days by date. Days without a valid date are skipped;
// later entries for the same day win.
func NewCalendar(days []DayAvailability) Calendar {
	cal := make(Calendar, len(days))
	for _, d := range days {
		if !d.Date.IsValid() {
			continue
		}
		cal[d.Date.String()] = d
	}
	return cal
}

// Day implements AvailabilitySource.
func (c Calendar) Day(d Date) (DayAvailability, bool) {
	if !d.IsValid() {
		return DayAvailability{}, false
	}
	day, ok := c[d.String()]
	return day, ok
}

// CellRender is the rendering metadata of one calendar day: whether it can
// be picked, its space-separated CSS classes, and its tooltip.
type CellRender struct {
	Enabled bool   `json:"enabled"`
	Classes string `json:"classes"`
	Tooltip string `json:"tooltip"`
}
