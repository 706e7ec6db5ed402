package reschedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
)

var ErrSlotUnavailable = errors.New("slot no longer available")

// Confirmer performs the doctor-side reschedule confirmation and
// returns a confirmation number. It is the external call the swap
// hinges on: the store is only touched after it succeeds.
type Confirmer interface {
	Confirm(ctx context.Context, original appointment.Appointment, newSlot appointment.TimeSlot) (string, error)
}

// SlotChecker re-validates a slot at confirmation time.
type SlotChecker interface {
	IsAvailable(doctorID uuid.UUID, date, clockTime string) bool
}

// Rand is the injected randomness for the simulated rejection rate.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// rejectionRate simulates the slot being snapped up between suggestion
// and confirmation.
const rejectionRate = 0.03

// SimulatedConfirmer models the confirmation network call: a short
// latency, a slot re-check, and a small random rejection chance.
type SimulatedConfirmer struct {
	slots   SlotChecker
	clk     clock.Clock
	rng     Rand
	latency time.Duration
}

func NewSimulatedConfirmer(slots SlotChecker, clk clock.Clock, rng Rand) *SimulatedConfirmer {
	return &SimulatedConfirmer{slots: slots, clk: clk, rng: rng, latency: 2 * time.Second}
}

func (c *SimulatedConfirmer) Confirm(ctx context.Context, original appointment.Appointment, newSlot appointment.TimeSlot) (string, error) {
	if err := c.clk.Sleep(ctx, c.latency); err != nil {
		return "", err
	}
	if !c.slots.IsAvailable(original.Doctor.ID, newSlot.Date, newSlot.Time) {
		return "", ErrSlotUnavailable
	}
	if c.rng.Float64() < rejectionRate {
		return "", ErrSlotUnavailable
	}
	return fmt.Sprintf("RSV-%06d", c.rng.Intn(1_000_000)), nil
}
