package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

var testStart = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type scriptRand struct{ floats []float64 }

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func newSweepFixture(rng Rand) (*Sweeper, *store.Manager, *clock.Fake) {
	clk := clock.NewFake(testStart)
	mgr := store.NewManager(func(uuid.UUID) store.Persister { return store.NewMemoryPersister() }, logging.Discard())
	sw := NewSweeper(mgr, clk, rng, 10*time.Minute, logging.Discard(), nil)
	return sw, mgr, clk
}

func seedAwaiting(mgr *store.Manager, patientID uuid.UUID, updatedAt time.Time) uuid.UUID {
	id := uuid.New()
	mgr.ForPatient(patientID).Mutate(context.Background(), func(s store.Snapshot) store.Snapshot {
		s.Appointments = append(s.Appointments, appointment.Appointment{
			ID:        id,
			Status:    appointment.StatusAwaitConfirm,
			Date:      "2026-03-20",
			Time:      "10:00",
			UpdatedAt: updatedAt,
		})
		return s
	})
	return id
}

func TestSweepConfirmsOnAcceptingDraw(t *testing.T) {
	sw, mgr, clk := newSweepFixture(&scriptRand{floats: []float64{0.10}})
	patientID := uuid.New()
	apptID := seedAwaiting(mgr, patientID, testStart)

	clk.Advance(time.Hour)
	if n := sw.RunOnce(context.Background()); n != 1 {
		t.Fatalf("resolved %d, want 1", n)
	}

	got, _ := mgr.ForPatient(patientID).Snapshot().FindAppointment(apptID)
	if got.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
}

func TestSweepCancelsOnDecliningDraw(t *testing.T) {
	sw, mgr, clk := newSweepFixture(&scriptRand{floats: []float64{0.95}})
	patientID := uuid.New()
	apptID := seedAwaiting(mgr, patientID, testStart)

	clk.Advance(time.Hour)
	sw.RunOnce(context.Background())

	got, _ := mgr.ForPatient(patientID).Snapshot().FindAppointment(apptID)
	if got.Status != appointment.StatusCancelledDoctor {
		t.Errorf("status = %s, want cancelled_doctor", got.Status)
	}
}

func TestSweepSkipsRecentRequests(t *testing.T) {
	sw, mgr, clk := newSweepFixture(&scriptRand{})
	patientID := uuid.New()
	apptID := seedAwaiting(mgr, patientID, testStart)

	// Inside the hold window: nothing to do yet.
	clk.Advance(time.Minute)
	if n := sw.RunOnce(context.Background()); n != 0 {
		t.Fatalf("resolved %d inside hold window, want 0", n)
	}

	got, _ := mgr.ForPatient(patientID).Snapshot().FindAppointment(apptID)
	if got.Status != appointment.StatusAwaitConfirm {
		t.Errorf("status = %s, want await_confirm untouched", got.Status)
	}
}

func TestSweepIgnoresOtherStatuses(t *testing.T) {
	sw, mgr, clk := newSweepFixture(&scriptRand{})
	patientID := uuid.New()

	mgr.ForPatient(patientID).Mutate(context.Background(), func(s store.Snapshot) store.Snapshot {
		s.Appointments = append(s.Appointments,
			appointment.Appointment{ID: uuid.New(), Status: appointment.StatusConfirmed, UpdatedAt: testStart},
			appointment.Appointment{ID: uuid.New(), Status: appointment.StatusMatching, UpdatedAt: testStart},
		)
		return s
	})

	clk.Advance(time.Hour)
	if n := sw.RunOnce(context.Background()); n != 0 {
		t.Errorf("resolved %d, want 0 for non-await_confirm statuses", n)
	}
}

func TestSweepResolvesAcrossPatients(t *testing.T) {
	sw, mgr, clk := newSweepFixture(&scriptRand{floats: []float64{0.10, 0.10}})
	seedAwaiting(mgr, uuid.New(), testStart)
	seedAwaiting(mgr, uuid.New(), testStart)

	clk.Advance(time.Hour)
	if n := sw.RunOnce(context.Background()); n != 2 {
		t.Errorf("resolved %d, want 2 across patients", n)
	}
}
