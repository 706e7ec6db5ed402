// Package reschedule offers alternative slots for an existing
// appointment and performs the old-to-new swap. The swap is rollback
// safe: the original appointment stays valid until the replacement is
// confirmed and committed.
package reschedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
)

const (
	scanDays       = 14
	maxSuggestions = 5
)

// SlotDirectory is the read-only slot source suggestions are drawn
// from.
type SlotDirectory interface {
	AvailableSlotsForDate(doctorID uuid.UUID, date string) []appointment.TimeSlot
}

type Suggester struct {
	slots SlotDirectory
	clk   clock.Clock
}

func NewSuggester(slots SlotDirectory, clk clock.Clock) *Suggester {
	return &Suggester{slots: slots, clk: clk}
}

// SuggestSlots returns ranked alternatives for the original slot, each
// tagged with the reason it was picked. The first entry is the
// recommended choice.
func (s *Suggester) SuggestSlots(original appointment.Appointment) []appointment.RescheduleSuggestion {
	candidates := s.collect(original.Doctor.ID)
	if len(candidates) == 0 {
		return nil
	}

	used := make(map[string]bool)
	var out []appointment.RescheduleSuggestion

	take := func(slot appointment.TimeSlot, reason appointment.SuggestionReason) {
		key := slot.Date + " " + slot.Time
		if used[key] || len(out) >= maxSuggestions {
			return
		}
		used[key] = true
		out = append(out, appointment.RescheduleSuggestion{Slot: slot, Reason: reason})
	}

	// Exact same clock time on the soonest possible day.
	for _, c := range candidates {
		if c.Time == original.Time {
			take(c, appointment.ReasonSameTime)
			break
		}
	}

	// Nearest time on the soonest day with availability.
	if best, ok := closestOnDate(candidates, candidates[0].Date, original.Time, used); ok {
		take(best, appointment.ReasonSimilarTime)
	}

	// Earliest slot overall.
	for _, c := range candidates {
		if !used[c.Date+" "+c.Time] {
			take(c, appointment.ReasonSoonest)
			break
		}
	}

	// Next slot on the original weekday.
	if wd, ok := weekdayOf(original.Date); ok {
		for _, c := range candidates {
			cw, okc := weekdayOf(c.Date)
			if okc && cw == wd && !used[c.Date+" "+c.Time] {
				take(c, appointment.ReasonSameWeekday)
				break
			}
		}
	}

	// Fill the remainder with the next earliest options.
	for _, c := range candidates {
		if len(out) >= maxSuggestions {
			break
		}
		take(c, appointment.ReasonNextAvailable)
	}

	return out
}

// collect gathers the doctor's available slots over the scan horizon in
// chronological order.
func (s *Suggester) collect(doctorID uuid.UUID) []appointment.TimeSlot {
	today := s.clk.Now()

	var out []appointment.TimeSlot
	for day := 1; day <= scanDays; day++ {
		date := today.AddDate(0, 0, day).Format(appointment.DateLayout)
		out = append(out, s.slots.AvailableSlotsForDate(doctorID, date)...)
	}
	return out
}

func closestOnDate(candidates []appointment.TimeSlot, date, target string, used map[string]bool) (appointment.TimeSlot, bool) {
	targetMin, ok := minutesOf(target)
	if !ok {
		return appointment.TimeSlot{}, false
	}

	var best appointment.TimeSlot
	bestDiff := -1
	for _, c := range candidates {
		if c.Date != date || used[c.Date+" "+c.Time] {
			continue
		}
		m, ok := minutesOf(c.Time)
		if !ok {
			continue
		}
		diff := m - targetMin
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best, bestDiff >= 0
}

func minutesOf(clockTime string) (int, bool) {
	t, err := time.Parse(appointment.TimeLayout, clockTime)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func weekdayOf(date string) (time.Weekday, bool) {
	d, err := time.Parse(appointment.DateLayout, date)
	if err != nil {
		return 0, false
	}
	return d.Weekday(), true
}
