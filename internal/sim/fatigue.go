package sim

import (
	"time"

	"greencart/internal/model"
)

// A driver is fatigued when they logged more than this many hours on the
// calendar day immediately before the simulation date.
const fatigueShiftHours = 8.0

// Fatigued evaluates the single-day fatigue rule for a driver as of the
// given date. Only the recorded last work date and that day's shift hours
// are consulted; a missing last work date means not fatigued.
func Fatigued(d model.Driver, asOf time.Time) bool {
	if d.LastWorkDate == nil {
		return false
	}
	yesterday := asOf.AddDate(0, 0, -1)
	if !sameDay(*d.LastWorkDate, yesterday) {
		return false
	}
	return d.CurrentShiftHours > fatigueShiftHours
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
