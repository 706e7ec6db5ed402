package appointment

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusMatching         Status = "matching"
	StatusAwaitConfirm     Status = "await_confirm"
	StatusConfirmed        Status = "confirmed"
	StatusCompleted        Status = "completed"
	StatusCancelledPatient Status = "cancelled_patient"
	StatusCancelledDoctor  Status = "cancelled_doctor"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// transitions lists every valid stored-status edge. completed has no
// entry: it is derived at read time, never written. A matching record
// that fails to resolve is discarded from the store, which is not a
// transition either.
var transitions = map[Status][]Status{
	StatusMatching:     {StatusConfirmed},
	StatusAwaitConfirm: {StatusConfirmed, StatusCancelledDoctor},
	StatusConfirmed:    {StatusCancelledPatient},
}

// CanTransition validates a stored-status edge.
func CanTransition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// Transition applies a validated status change and stamps UpdatedAt.
func (a *Appointment) Transition(to Status, now time.Time) error {
	if err := CanTransition(a.Status, to); err != nil {
		return err
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
