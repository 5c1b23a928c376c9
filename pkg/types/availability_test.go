package types

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayAvailabilityJSON(t *testing.T) {
	var days []DayAvailability
	err := json.Unmarshal([]byte(`[
		{"date":"2030-06-10","available":true,"code":7,"changeover":true},
		{"date":"2030-06-11","available":false,"code":"B"},
		{"date":"2030-06-12","available":true,"code":null}
	]`), &days)
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, RateCode("7"), days[0].Code)
	assert.True(t, days[0].Changeover)
	assert.Equal(t, RateCode("B"), days[1].Code)
	assert.Equal(t, RateCode(""), days[2].Code)
	assert.True(t, days[0].Date.Equal(NewDate(2030, time.June, 10)))
}

func TestCalendar(t *testing.T) {
	d := NewDate(2030, time.June, 10)
	cal := NewCalendar([]DayAvailability{
		{Date: d, Available: false, Code: "1"},
		{Date: d, Available: true, Code: "2"},
		{Date: InvalidDate, Available: true},
		{Available: true},
	})
	require.Len(t, cal, 1)

	got, ok := cal.Day(d)
	require.True(t, ok)
	assert.True(t, got.Available, "later entries win")
	assert.Equal(t, RateCode("2"), got.Code)

	_, ok = cal.Day(d.AddDays(1))
	assert.False(t, ok)
	_, ok = cal.Day(InvalidDate)
	assert.False(t, ok)

	var src AvailabilitySource = cal
	_, ok = src.Day(d)
	assert.True(t, ok)
}
