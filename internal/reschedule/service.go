package reschedule

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/observability/metrics"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

type Service struct {
	suggester *Suggester
	confirmer Confirmer
	clk       clock.Clock
	logger    *logging.Logger
	metrics   *metrics.MatchingMetrics
}

func NewService(suggester *Suggester, confirmer Confirmer, clk clock.Clock, logger *logging.Logger, m *metrics.MatchingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		suggester: suggester,
		confirmer: confirmer,
		clk:       clk,
		logger:    logger,
		metrics:   m,
	}
}

// Suggestions returns ranked alternative slots for a confirmed
// appointment.
func (s *Service) Suggestions(st *store.Store, apptID uuid.UUID) ([]appointment.RescheduleSuggestion, error) {
	original, ok := st.Snapshot().FindAppointment(apptID)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if original.Status != appointment.StatusConfirmed {
		return nil, appointment.CanTransition(original.Status, appointment.StatusCancelledPatient)
	}
	return s.suggester.SuggestSlots(original), nil
}

// Reschedule swaps the original appointment for newSlot. The
// confirmation call runs first; only on success are the new-appointment
// insert and the old-appointment cancellation committed, as one store
// mutation. On any confirmation failure the original stays untouched.
func (s *Service) Reschedule(ctx context.Context, st *store.Store, originalID uuid.UUID, newSlot appointment.TimeSlot, reason string) (*appointment.Appointment, error) {
	original, ok := st.Snapshot().FindAppointment(originalID)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if err := appointment.CanTransition(original.Status, appointment.StatusCancelledPatient); err != nil {
		return nil, err
	}

	confirmation, err := s.confirmer.Confirm(ctx, original, newSlot)
	if err != nil {
		s.metrics.ObserveReschedule("rejected")
		s.logger.Info("reschedule confirmation failed, original untouched",
			"appointment_id", originalID, "error", err)
		return nil, err
	}

	now := s.clk.Now()
	var created *appointment.Appointment
	var swapErr error

	st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
		for i := range snap.Appointments {
			if snap.Appointments[i].ID != originalID {
				continue
			}

			old := &snap.Appointments[i]
			if err := old.Transition(appointment.StatusCancelledPatient, now); err != nil {
				swapErr = err
				return snap
			}

			replacement := *old
			replacement.ID = uuid.New()
			replacement.Status = appointment.StatusConfirmed
			replacement.Date = newSlot.Date
			replacement.Time = newSlot.Time
			replacement.RescheduleReason = reason
			replacement.Confirmation = confirmation
			replacement.CreatedAt = now
			replacement.UpdatedAt = now

			snap.Appointments = append(snap.Appointments, replacement)
			created = &replacement
			return snap
		}

		swapErr = ErrAppointmentNotFound
		return snap
	})

	if swapErr != nil {
		s.metrics.ObserveReschedule("conflict")
		return nil, swapErr
	}

	s.metrics.ObserveReschedule("swapped")
	s.logger.Info("appointment rescheduled",
		"old_id", originalID, "new_id", created.ID,
		"date", created.Date, "time", created.Time, "confirmation", confirmation)
	return created, nil
}
