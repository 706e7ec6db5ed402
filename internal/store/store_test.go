package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/pkg/logging"
)

func newTestStore() (*Store, *MemoryPersister) {
	p := NewMemoryPersister()
	return New(p, logging.Discard()), p
}

func confirmedAppointment() appointment.Appointment {
	return appointment.Appointment{
		ID:     uuid.New(),
		Doctor: appointment.DoctorRef{ID: uuid.New(), Name: "Dr. Weber", Specialty: "Cardiology"},
		Date:   "2026-04-01",
		Time:   "10:00",
		Status: appointment.StatusConfirmed,
	}
}

func TestRoundTripReproducesSnapshot(t *testing.T) {
	st, p := newTestStore()
	ctx := context.Background()

	appt := confirmedAppointment()
	st.Mutate(ctx, func(s Snapshot) Snapshot {
		s.Auth = Auth{LoggedIn: true, PatientID: uuid.New(), Name: "Anna"}
		s.Profile = Profile{Insurance: "GKV", City: "Berlin"}
		s.Appointments = append(s.Appointments, appt)
		return s
	})
	want := st.Snapshot()

	// Fresh store over the same persisted blob.
	reloaded := New(p, logging.Discard())
	got := reloaded.Load(ctx)

	if got.Auth != want.Auth {
		t.Errorf("auth differs after round trip: %+v vs %+v", got.Auth, want.Auth)
	}
	if got.Profile.Insurance != "GKV" || got.Profile.City != "Berlin" {
		t.Errorf("profile differs after round trip: %+v", got.Profile)
	}
	if len(got.Appointments) != 1 || got.Appointments[0].ID != appt.ID {
		t.Fatalf("appointments differ after round trip: %+v", got.Appointments)
	}
	if got.Appointments[0].Status != appointment.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Appointments[0].Status)
	}
}

func TestLoadFallsBackOnCorruptBlob(t *testing.T) {
	st, p := newTestStore()
	p.Corrupt([]byte(`{"auth": not json`))

	got := st.Load(context.Background())
	if got.Auth.LoggedIn {
		t.Error("corrupt blob should fall back to initial state")
	}
	if got.Preferences.Language != "de" {
		t.Errorf("initial preferences missing, got %+v", got.Preferences)
	}
}

func TestLoadFallsBackOnPersisterError(t *testing.T) {
	p := &failingPersister{err: errors.New("storage unavailable")}
	st := New(p, logging.Discard())

	got := st.Load(context.Background())
	if len(got.Appointments) != 0 || got.Auth.LoggedIn {
		t.Error("persister error should fall back to initial state")
	}
}

func TestMutateSurvivesSaveFailure(t *testing.T) {
	st, p := newTestStore()
	p.FailSaves = errors.New("quota exceeded")

	appt := confirmedAppointment()
	got := st.Mutate(context.Background(), func(s Snapshot) Snapshot {
		s.Appointments = append(s.Appointments, appt)
		return s
	})

	// Persistence is best-effort; in-memory state must still advance.
	if len(got.Appointments) != 1 {
		t.Fatal("mutation lost when save failed")
	}
	if len(st.Snapshot().Appointments) != 1 {
		t.Fatal("store state lost when save failed")
	}
}

func TestMutateIsCopyOnWrite(t *testing.T) {
	st, _ := newTestStore()
	ctx := context.Background()

	appt := confirmedAppointment()
	st.Mutate(ctx, func(s Snapshot) Snapshot {
		s.Appointments = append(s.Appointments, appt)
		return s
	})

	leaked := st.Snapshot()
	leaked.Appointments[0].Status = appointment.StatusCancelledPatient

	if st.Snapshot().Appointments[0].Status != appointment.StatusConfirmed {
		t.Error("mutating a returned snapshot changed the stored state")
	}
}

func TestResetClearsPersistedState(t *testing.T) {
	st, p := newTestStore()
	ctx := context.Background()

	st.Mutate(ctx, func(s Snapshot) Snapshot {
		s.Auth.LoggedIn = true
		return s
	})
	st.Reset(ctx)

	if _, err := p.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("persisted blob survived reset: %v", err)
	}
	if st.Snapshot().Auth.LoggedIn {
		t.Error("in-memory state survived reset")
	}
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	st, _ := newTestStore()

	var seen []int
	st.Subscribe(func(s Snapshot) { seen = append(seen, len(s.Appointments)) })

	ctx := context.Background()
	st.Mutate(ctx, func(s Snapshot) Snapshot {
		s.Appointments = append(s.Appointments, confirmedAppointment())
		return s
	})
	st.Mutate(ctx, func(s Snapshot) Snapshot {
		s.Appointments = append(s.Appointments, confirmedAppointment())
		return s
	})

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("subscriber notifications = %v, want [1 2]", seen)
	}
}

func TestManagerReturnsSameStorePerPatient(t *testing.T) {
	m := NewManager(func(uuid.UUID) Persister { return NewMemoryPersister() }, logging.Discard())
	id := uuid.New()

	if m.ForPatient(id) != m.ForPatient(id) {
		t.Error("manager created two stores for one patient")
	}
	if m.ForPatient(id) == m.ForPatient(uuid.New()) {
		t.Error("manager shared a store across patients")
	}
	if len(m.Stores()) != 2 {
		t.Errorf("Stores() has %d entries, want 2", len(m.Stores()))
	}
}

type failingPersister struct{ err error }

func (f *failingPersister) Load(context.Context) ([]byte, error) { return nil, f.err }
func (f *failingPersister) Save(context.Context, []byte) error   { return f.err }
func (f *failingPersister) Delete(context.Context) error         { return f.err }
