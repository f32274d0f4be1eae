package attendance

import (
	"testing"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupEvents_PartitionsByEmployeeAndDate(t *testing.T) {
	events := []timeevent.TimeEvent{
		event(t, "E1", "2024-05-02 18:00:00", timeevent.KindExit),
		event(t, "E1", "2024-05-02 09:00:00", timeevent.KindEntry),
		event(t, "E2", "2024-05-02 08:55:00", timeevent.KindEntry),
		event(t, "E1", "2024-05-03 09:10:00", timeevent.KindEntry),
	}
	other := event(t, "E1", "2024-05-02 10:00:00", timeevent.KindEntry)
	other.Organization = "GLOBEX"
	events = append(events, other)

	groups := GroupEvents(events)
	require.Len(t, groups, 4)

	key := attendance.RecordKey{Organization: "ACME", EmployeeNumber: "E1", Date: date(t, "2024-05-02")}
	day := groups[key]
	require.Len(t, day, 2)
	assert.Equal(t, "2024-05-02 09:00:00", day[0].At.String())
	assert.Equal(t, "2024-05-02 18:00:00", day[1].At.String())

	globex := attendance.RecordKey{Organization: "GLOBEX", EmployeeNumber: "E1", Date: date(t, "2024-05-02")}
	assert.Len(t, groups[globex], 1)
}

func TestExtractPunches_EarliestEntryLatestExit(t *testing.T) {
	events := []timeevent.TimeEvent{
		event(t, "E1", "2024-05-02 12:30:00", timeevent.KindExit),
		event(t, "E1", "2024-05-02 09:05:00", timeevent.KindEntry),
		event(t, "E1", "2024-05-02 13:30:00", timeevent.KindEntry),
		event(t, "E1", "2024-05-02 18:02:00", timeevent.KindExit),
		event(t, "E1", "2024-05-02 07:00:00", timeevent.KindUnknown),
	}

	p := ExtractPunches(events)
	require.NotNil(t, p.CheckIn)
	require.NotNil(t, p.CheckOut)
	assert.Equal(t, "2024-05-02 09:05:00", p.CheckIn.String())
	assert.Equal(t, "2024-05-02 18:02:00", p.CheckOut.String())
	assert.False(t, p.Inferred)
}

func TestExtractPunches_OnlyEntry(t *testing.T) {
	p := ExtractPunches([]timeevent.TimeEvent{
		event(t, "E1", "2024-05-02 09:05:00", timeevent.KindEntry),
	})
	require.NotNil(t, p.CheckIn)
	assert.Nil(t, p.CheckOut)
}

func TestExtractPunches_UnknownHeuristic(t *testing.T) {
	t.Run("single swipe before noon is an entry", func(t *testing.T) {
		p := ExtractPunches([]timeevent.TimeEvent{
			event(t, "E1", "2024-05-02 11:59:59", timeevent.KindUnknown),
		})
		require.NotNil(t, p.CheckIn)
		assert.Nil(t, p.CheckOut)
		assert.True(t, p.Inferred)
	})

	t.Run("single swipe from noon is an exit", func(t *testing.T) {
		p := ExtractPunches([]timeevent.TimeEvent{
			event(t, "E1", "2024-05-02 12:00:00", timeevent.KindUnknown),
		})
		assert.Nil(t, p.CheckIn)
		require.NotNil(t, p.CheckOut)
		assert.True(t, p.Inferred)
	})

	t.Run("several swipes span first to last", func(t *testing.T) {
		p := ExtractPunches([]timeevent.TimeEvent{
			event(t, "E1", "2024-05-02 13:00:00", timeevent.KindUnknown),
			event(t, "E1", "2024-05-02 08:30:00", timeevent.KindUnknown),
			event(t, "E1", "2024-05-02 17:45:00", timeevent.KindUnknown),
		})
		require.NotNil(t, p.CheckIn)
		require.NotNil(t, p.CheckOut)
		assert.Equal(t, "2024-05-02 08:30:00", p.CheckIn.String())
		assert.Equal(t, "2024-05-02 17:45:00", p.CheckOut.String())
		assert.True(t, p.Inferred)
	})
}

func TestExtractPunches_Empty(t *testing.T) {
	p := ExtractPunches(nil)
	assert.False(t, p.Any())
}
