package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmibc-risk-mcp/internal/domain"
)

func TestMaintenanceScheduleGenerator_Generate(t *testing.T) {
	generator := NewMaintenanceScheduleGenerator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := generator.Generate(start, []int{3, 6, 12})

	require.Len(t, entries, 3)
	for i, days := range []int{90, 180, 360} {
		assert.Equal(t, []int{3, 6, 12}[i], entries[i].MonthOffset)
		assert.Equal(t, start.AddDate(0, 0, days), entries[i].Date)
	}
	assert.Equal(t, "01.04.2025", entries[0].FormattedDate())
	assert.Equal(t, "30.06.2025", entries[1].FormattedDate())
	assert.Equal(t, "27.12.2025", entries[2].FormattedDate())
}

func TestMaintenanceScheduleGenerator_Empty(t *testing.T) {
	generator := NewMaintenanceScheduleGenerator()

	entries := generator.Generate(time.Now(), []int{})
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	assert.Empty(t, generator.Generate(time.Now(), nil))
}

func TestMaintenanceScheduleGenerator_PreservesOrderWithoutValidation(t *testing.T) {
	generator := NewMaintenanceScheduleGenerator()
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	entries := generator.Generate(start, []int{12, 0, -1})

	require.Len(t, entries, 3)
	assert.Equal(t, 12, entries[0].MonthOffset)
	assert.Equal(t, start, entries[1].Date)
	assert.Equal(t, start.AddDate(0, 0, -30), entries[2].Date)
}

func TestMaintenanceScheduleGenerator_IgnoresClock(t *testing.T) {
	generator := NewMaintenanceScheduleGenerator()
	warsaw := time.FixedZone("CET", 3600)

	entries := generator.Generate(time.Date(2025, 1, 1, 23, 30, 0, 0, warsaw), []int{3})

	require.Len(t, entries, 1)
	assert.Equal(t, "01.04.2025", entries[0].FormattedDate())
}

func TestMaintenanceScheduleGenerator_CalendarMonths(t *testing.T) {
	generator := NewMaintenanceScheduleGenerator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := generator.GenerateWithMode(start, []int{3, 12}, domain.CalendarMonths)

	require.Len(t, entries, 2)
	assert.Equal(t, "01.04.2025", entries[0].FormattedDate())
	assert.Equal(t, "01.01.2026", entries[1].FormattedDate())

	thirtyDay := generator.GenerateWithMode(start, []int{12}, domain.ThirtyDayMonths)
	assert.Equal(t, "27.12.2025", thirtyDay[0].FormattedDate())
}
