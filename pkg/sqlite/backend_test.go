package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/staybook/pkg/enquiry"
	"github.com/mesh-intelligence/staybook/pkg/sqlite"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

func TestNewBackend_DrivesCalendar(t *testing.T) {
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer b.Detach()

	day := func(n int) types.Date { return types.NewDate(2030, time.June, n) }
	require.NoError(t, b.Import("PROP-1", []types.DayAvailability{
		{Date: day(10), Available: true, Code: "7"},
		{Date: day(11), Available: true, Code: "7", Changeover: true},
		{Date: day(12), Available: false, Code: "B"},
	}))

	st := enquiry.New("PROP-1",
		enquiry.WithAvailability(b),
		enquiry.WithAutoSubmit(false),
		enquiry.WithClock(func() time.Time { return time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC) }),
		enquiry.WithContext(context.Background()))
	defer st.Close()

	require.NoError(t, st.Merge(map[string]any{
		types.FieldFromDate: "2030-06-10",
		types.FieldToDate:   "2030-06-11",
	}))

	assert.Equal(t, types.CellRender{Enabled: true, Classes: "selected code-7 "}, st.RenderCalendarCell(day(10)))
	assert.Equal(t, types.CellRender{Enabled: true, Classes: "selected code-7 changeover"}, st.RenderCalendarCell(day(11)))
	assert.Equal(t, types.CellRender{Classes: "code-B "}, st.RenderCalendarCell(day(12)))
	assert.Equal(t, types.CellRender{}, st.RenderCalendarCell(day(13)))
}
