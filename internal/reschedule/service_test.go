package reschedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

var testStart = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type stubConfirmer struct {
	err    error
	number string
	calls  int
}

func (c *stubConfirmer) Confirm(context.Context, appointment.Appointment, appointment.TimeSlot) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.number, nil
}

func newServiceFixture(confirmer Confirmer) (*Service, *store.Store) {
	clk := clock.NewFake(testStart)
	st := store.New(store.NewMemoryPersister(), logging.Discard())
	svc := NewService(nil, confirmer, clk, logging.Discard(), nil)
	return svc, st
}

func seedConfirmed(t *testing.T, st *store.Store) appointment.Appointment {
	t.Helper()
	appt := appointment.Appointment{
		ID:     uuid.New(),
		Doctor: appointment.DoctorRef{ID: uuid.New(), Name: "Dr. Weber", Specialty: "Cardiology"},
		Date:   "2026-03-18",
		Time:   "10:00",
		Status: appointment.StatusConfirmed,
	}
	st.Mutate(context.Background(), func(s store.Snapshot) store.Snapshot {
		s.Appointments = append(s.Appointments, appt)
		return s
	})
	return appt
}

func TestRescheduleSwapsInOneMutation(t *testing.T) {
	confirmer := &stubConfirmer{number: "RSV-001234"}
	svc, st := newServiceFixture(confirmer)
	original := seedConfirmed(t, st)

	// Every snapshot a subscriber observes must already be consistent:
	// never a cancelled original without its replacement.
	var inconsistent bool
	st.Subscribe(func(s store.Snapshot) {
		cancelled, replaced := false, false
		for _, a := range s.Appointments {
			if a.ID == original.ID && a.Status == appointment.StatusCancelledPatient {
				cancelled = true
			}
			if a.ID != original.ID && a.Status == appointment.StatusConfirmed {
				replaced = true
			}
		}
		if cancelled != replaced {
			inconsistent = true
		}
	})

	newSlot := appointment.TimeSlot{Date: "2026-03-20", Time: "14:00", Available: true}
	created, err := svc.Reschedule(context.Background(), st, original.ID, newSlot, "work conflict")
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}

	if inconsistent {
		t.Error("swap was observable as two separate mutations")
	}
	if created.Date != "2026-03-20" || created.Time != "14:00" {
		t.Errorf("new slot = %s %s, want 2026-03-20 14:00", created.Date, created.Time)
	}
	if created.Doctor != original.Doctor {
		t.Error("doctor not carried over")
	}
	if created.ID == original.ID {
		t.Error("replacement must get a fresh id")
	}
	if created.Confirmation != "RSV-001234" {
		t.Errorf("confirmation = %q, want RSV-001234", created.Confirmation)
	}
	if created.RescheduleReason != "work conflict" {
		t.Errorf("reason = %q not carried", created.RescheduleReason)
	}

	snap := st.Snapshot()
	old, _ := snap.FindAppointment(original.ID)
	if old.Status != appointment.StatusCancelledPatient {
		t.Errorf("original status = %s, want cancelled_patient", old.Status)
	}
	if len(snap.Appointments) != 2 {
		t.Errorf("store has %d appointments, want 2", len(snap.Appointments))
	}
}

func TestRescheduleRollsBackWhenConfirmationFails(t *testing.T) {
	confirmer := &stubConfirmer{err: ErrSlotUnavailable}
	svc, st := newServiceFixture(confirmer)
	original := seedConfirmed(t, st)

	newSlot := appointment.TimeSlot{Date: "2026-03-20", Time: "14:00"}
	_, err := svc.Reschedule(context.Background(), st, original.ID, newSlot, "")

	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}

	snap := st.Snapshot()
	if len(snap.Appointments) != 1 {
		t.Fatalf("store has %d appointments after failed swap, want 1", len(snap.Appointments))
	}
	got, _ := snap.FindAppointment(original.ID)
	if got.Status != appointment.StatusConfirmed {
		t.Errorf("original status = %s after failed swap, want confirmed", got.Status)
	}
	if got.Date != original.Date || got.Time != original.Time {
		t.Error("original slot changed after failed swap")
	}
}

func TestRescheduleUnknownAppointment(t *testing.T) {
	confirmer := &stubConfirmer{number: "RSV-1"}
	svc, st := newServiceFixture(confirmer)

	_, err := svc.Reschedule(context.Background(), st, uuid.New(), appointment.TimeSlot{}, "")
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound", err)
	}
	if confirmer.calls != 0 {
		t.Error("confirmation called for an unknown appointment")
	}
}

func TestRescheduleRejectsNonConfirmedOriginal(t *testing.T) {
	confirmer := &stubConfirmer{number: "RSV-1"}
	svc, st := newServiceFixture(confirmer)

	appt := appointment.Appointment{ID: uuid.New(), Status: appointment.StatusCancelledPatient}
	st.Mutate(context.Background(), func(s store.Snapshot) store.Snapshot {
		s.Appointments = append(s.Appointments, appt)
		return s
	})

	_, err := svc.Reschedule(context.Background(), st, appt.ID, appointment.TimeSlot{}, "")
	if !errors.Is(err, appointment.ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition", err)
	}
	if confirmer.calls != 0 {
		t.Error("confirmation called for a non-confirmed appointment")
	}
}
