// Package booking holds the direct appointment operations that do not
// go through the matching orchestrator: booking an explicitly chosen
// slot, cancelling, and flag toggles.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/directory"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("slot not available")
)

// SlotChecker validates a picked slot against the slot directory.
type SlotChecker interface {
	IsAvailable(doctorID uuid.UUID, date, clockTime string) bool
}

type Service struct {
	doctors directory.Directory
	slots   SlotChecker
	clk     clock.Clock
	logger  *logging.Logger
}

func NewService(doctors directory.Directory, slots SlotChecker, clk clock.Clock, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{doctors: doctors, slots: slots, clk: clk, logger: logger}
}

// BookSlot books an explicitly chosen slot from the manual search flow.
// The appointment is created directly in confirmed status, or in
// await_confirm when the doctor signs off bookings manually.
func (s *Service) BookSlot(ctx context.Context, st *store.Store, doctorID uuid.UUID, patient appointment.PatientRef, slot appointment.TimeSlot, awaitDoctor bool) (*appointment.Appointment, error) {
	doc, err := s.doctors.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if !s.slots.IsAvailable(doctorID, slot.Date, slot.Time) {
		return nil, ErrSlotUnavailable
	}

	status := appointment.StatusConfirmed
	if awaitDoctor {
		status = appointment.StatusAwaitConfirm
	}

	now := s.clk.Now()
	appt := appointment.Appointment{
		ID:        uuid.New(),
		Doctor:    appointment.DoctorRef{ID: doc.ID, Name: doc.Name, Specialty: doc.Specialty},
		Date:      slot.Date,
		Time:      slot.Time,
		Patient:   patient,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
		snap.Appointments = append(snap.Appointments, appt)
		snap.Booking = nil // the draft is consumed by the booking
		return snap
	})

	s.logger.Info("slot booked",
		"appointment_id", appt.ID, "doctor", doc.Name, "date", slot.Date, "time", slot.Time, "status", status)
	return &appt, nil
}

// Cancel transitions a confirmed appointment to cancelled_patient.
func (s *Service) Cancel(ctx context.Context, st *store.Store, apptID uuid.UUID) (*appointment.Appointment, error) {
	now := s.clk.Now()
	var cancelled *appointment.Appointment
	var opErr error

	st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
		for i := range snap.Appointments {
			if snap.Appointments[i].ID != apptID {
				continue
			}
			a := &snap.Appointments[i]
			if err := a.Transition(appointment.StatusCancelledPatient, now); err != nil {
				opErr = err
				return snap
			}
			out := *a
			cancelled = &out
			return snap
		}
		opErr = ErrAppointmentNotFound
		return snap
	})

	if opErr != nil {
		return nil, opErr
	}
	s.logger.Info("appointment cancelled by patient", "appointment_id", apptID)
	return cancelled, nil
}

// SetReminder toggles the reminder flag.
func (s *Service) SetReminder(ctx context.Context, st *store.Store, apptID uuid.UUID, on bool) error {
	return s.setFlag(ctx, st, apptID, func(a *appointment.Appointment) { a.ReminderSet = on })
}

// SetCalendarSync toggles the calendar-sync flag.
func (s *Service) SetCalendarSync(ctx context.Context, st *store.Store, apptID uuid.UUID, on bool) error {
	return s.setFlag(ctx, st, apptID, func(a *appointment.Appointment) { a.CalendarSynced = on })
}

func (s *Service) setFlag(ctx context.Context, st *store.Store, apptID uuid.UUID, apply func(*appointment.Appointment)) error {
	now := s.clk.Now()
	opErr := ErrAppointmentNotFound

	st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
		for i := range snap.Appointments {
			if snap.Appointments[i].ID == apptID {
				apply(&snap.Appointments[i])
				snap.Appointments[i].UpdatedAt = now
				opErr = nil
				break
			}
		}
		return snap
	})
	return opErr
}

// List splits the patient's appointments into upcoming and past using
// the derived read-time classification. Past includes archived history.
func (s *Service) List(st *store.Store, scope string) []appointment.Appointment {
	now := s.clk.Now()
	snap := st.Snapshot()

	var out []appointment.Appointment
	switch scope {
	case "past":
		out = append(out, snap.History...)
		for _, a := range snap.Appointments {
			if !a.Upcoming(now) {
				a.Status = a.EffectiveStatus(now)
				out = append(out, a)
			}
		}
	default: // upcoming
		for _, a := range snap.Appointments {
			if a.Upcoming(now) {
				out = append(out, a)
			}
		}
	}
	return out
}

// ArchiveSettled moves terminal appointments (cancelled, or completed
// by date) out of the active list into history.
func (s *Service) ArchiveSettled(ctx context.Context, st *store.Store) int {
	now := s.clk.Now()
	moved := 0

	st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
		var active []appointment.Appointment
		for _, a := range snap.Appointments {
			if a.Upcoming(now) {
				active = append(active, a)
				continue
			}
			a.Status = a.EffectiveStatus(now)
			snap.History = append(snap.History, a)
			moved++
		}
		snap.Appointments = active
		return snap
	})

	if moved > 0 {
		s.logger.Info("archived settled appointments", "count", moved)
	}
	return moved
}
