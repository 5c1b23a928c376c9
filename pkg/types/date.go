package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

type dateState uint8

const (
	dateAbsent dateState = iota
	dateValid
	dateInvalid
)

// Date is a calendar day with no time-of-day component. The zero value is
// an absent date. InvalidDate is the sentinel for input that named a day
// but could not be parsed.
type Date struct {
	t     time.Time
	state dateState
}

// InvalidDate marks a date field that was given unparseable input.
var InvalidDate = Date{state: dateInvalid}

// NewDate returns the valid date for the given year, month and day.
// Out-of-range values are normalized the way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), state: dateValid}
}

// DateOf returns the UTC calendar day containing t. A zero time is absent.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a "YYYY-MM-DD" string. An empty string is absent;
// anything else that does not parse yields InvalidDate.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return InvalidDate
	}
	return DateOf(t)
}

// ConvertDate turns raw field input into a Date: Unix timestamps in
// seconds, "YYYY-MM-DD" strings, time.Time, Date and nil. A typed
// InvalidDate is normalized to absent. Unsupported input types return
// ErrInvalidValue.
func ConvertDate(raw any) (Date, error) {
	switch v := raw.(type) {
	case nil:
		return Date{}, nil
	case Date:
		if v.state == dateInvalid {
			return Date{}, nil
		}
		return v, nil
	case *Date:
		if v == nil {
			return Date{}, nil
		}
		return ConvertDate(*v)
	case time.Time:
		return DateOf(v), nil
	case string:
		return ParseDate(v), nil
	case int:
		return DateOf(time.Unix(int64(v), 0)), nil
	case int32:
		return DateOf(time.Unix(int64(v), 0)), nil
	case int64:
		return DateOf(time.Unix(v, 0)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidDate, nil
		}
		return DateOf(time.Unix(int64(v), 0)), nil
	default:
		return Date{}, fmt.Errorf("%w: cannot convert %T to a date", ErrInvalidValue, raw)
	}
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool { return d.state == dateAbsent }

// IsValid reports whether the date names a real calendar day.
func (d Date) IsValid() bool { return d.state == dateValid }

// IsInvalid reports whether the date is the InvalidDate sentinel.
func (d Date) IsInvalid() bool { return d.state == dateInvalid }

// Time returns midnight UTC of the day, or the zero time when d is not valid.
func (d Date) Time() time.Time {
	if d.state != dateValid {
		return time.Time{}
	}
	return d.t
}

// Before reports whether d is strictly earlier than o. Comparisons
// involving a date that is not valid are always false.
func (d Date) Before(o Date) bool {
	return d.IsValid() && o.IsValid() && d.t.Before(o.t)
}

// After reports whether d is strictly later than o. Comparisons involving
// a date that is not valid are always false.
func (d Date) After(o Date) bool {
	return d.IsValid() && o.IsValid() && d.t.After(o.t)
}

// Equal reports whether both dates are in the same state and, when valid,
// name the same day.
func (d Date) Equal(o Date) bool {
	if d.state != o.state {
		return false
	}
	return d.state != dateValid || d.t.Equal(o.t)
}

// AddDays returns the date n days later. Dates that are not valid are
// returned unchanged.
func (d Date) AddDays(n int) Date {
	if d.state != dateValid {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n), state: dateValid}
}

// String formats the date as "YYYY-MM-DD". Absent dates format as "" and
// the invalid sentinel as "Invalid date".
func (d Date) String() string {
	switch d.state {
	case dateValid:
		return d.t.Format(DateLayout)
	case dateInvalid:
		return "Invalid date"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	if d.state == dateInvalid {
		return nil, fmt.Errorf("%w: invalid date", ErrInvalidValue)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	*d = ParseDate(string(b))
	if d.IsInvalid() {
		return fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidValue, string(b))
	}
	return nil
}
