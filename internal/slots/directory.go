// Package slots is the slot directory: a read-only, side-effect-free
// source of bookable time slots. Availability is a pure function of
// (doctor id, date), so repeated queries within a session always return
// the same pattern.
package slots

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
)

const (
	openingHour  = 7
	closingHour  = 19
	slotMinutes  = 30
	availability = 0.35
)

type Directory struct {
	clock   clock.Clock
	horizon int
}

func NewDirectory(clk clock.Clock) *Directory {
	return &Directory{clock: clk, horizon: 14}
}

// GetSlotsForDate returns every slot of the doctor's working day with
// its availability flag. Deterministic per (doctorID, date).
func (d *Directory) GetSlotsForDate(doctorID uuid.UUID, date string) []appointment.TimeSlot {
	rng := rand.New(rand.NewSource(seedFor(doctorID, date)))

	var out []appointment.TimeSlot
	for hour := openingHour; hour < closingHour; hour++ {
		for minute := 0; minute < 60; minute += slotMinutes {
			out = append(out, appointment.TimeSlot{
				Date:      date,
				Time:      fmt.Sprintf("%02d:%02d", hour, minute),
				Available: rng.Float64() < availability,
			})
		}
	}
	return out
}

// AvailableSlotsForDate filters GetSlotsForDate down to bookable slots.
func (d *Directory) AvailableSlotsForDate(doctorID uuid.UUID, date string) []appointment.TimeSlot {
	var out []appointment.TimeSlot
	for _, s := range d.GetSlotsForDate(doctorID, date) {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// GetAvailableDates returns the dates within the directory horizon,
// starting tomorrow, on which the doctor has at least one open slot.
func (d *Directory) GetAvailableDates(doctorID uuid.UUID) []string {
	today := d.clock.Now()

	var out []string
	for day := 1; day <= d.horizon; day++ {
		date := today.AddDate(0, 0, day).Format(appointment.DateLayout)
		if len(d.AvailableSlotsForDate(doctorID, date)) > 0 {
			out = append(out, date)
		}
	}
	return out
}

// IsAvailable reports whether the given (date, time) slot is open.
func (d *Directory) IsAvailable(doctorID uuid.UUID, date, clockTime string) bool {
	for _, s := range d.GetSlotsForDate(doctorID, date) {
		if s.Time == clockTime {
			return s.Available
		}
	}
	return false
}

func seedFor(doctorID uuid.UUID, date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(doctorID.String()))
	h.Write([]byte("|"))
	h.Write([]byte(date))
	return int64(h.Sum64())
}
