package service

import (
	"time"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// daysPerMonth is the fixed month length used for maintenance cycle dates.
const daysPerMonth = 30

// MaintenanceScheduleGenerator computes the start dates of BCG maintenance cycles.
type MaintenanceScheduleGenerator struct{}

// NewMaintenanceScheduleGenerator creates a schedule generator
func NewMaintenanceScheduleGenerator() *MaintenanceScheduleGenerator {
	return &MaintenanceScheduleGenerator{}
}

// Generate returns one entry per offset with date = inductionDate + offset*30 days.
// Offset order is preserved and an empty offset list yields an empty schedule.
func (g *MaintenanceScheduleGenerator) Generate(inductionDate time.Time, offsetsMonths []int) []domain.ScheduleEntry {
	return g.GenerateWithMode(inductionDate, offsetsMonths, domain.ThirtyDayMonths)
}

// GenerateWithMode is Generate with an explicit month conversion. CalendarMonths
// adds true calendar months (time.AddDate normalisation applies, e.g. 31 Jan + 1 month = 3 Mar).
func (g *MaintenanceScheduleGenerator) GenerateWithMode(inductionDate time.Time, offsetsMonths []int, mode domain.MonthMode) []domain.ScheduleEntry {
	start := calendarDay(inductionDate)
	entries := make([]domain.ScheduleEntry, 0, len(offsetsMonths))

	for _, offset := range offsetsMonths {
		var date time.Time
		if mode == domain.CalendarMonths {
			date = start.AddDate(0, offset, 0)
		} else {
			date = start.AddDate(0, 0, offset*daysPerMonth)
		}
		entries = append(entries, domain.ScheduleEntry{
			MonthOffset: offset,
			Date:        date,
		})
	}

	return entries
}

// calendarDay drops the clock so results depend only on the calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
