package store

import (
	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
)

// Snapshot is the single authoritative application state for one
// patient. It serializes to one JSON blob under one storage key.
type Snapshot struct {
	Auth         Auth                      `json:"auth"`
	Profile      Profile                   `json:"profile"`
	Preferences  Preferences               `json:"preferences"`
	Appointments []appointment.Appointment `json:"appointments"`
	History      []appointment.Appointment `json:"history"`
	Booking      *BookingDraft             `json:"booking,omitempty"`
}

type Auth struct {
	LoggedIn  bool      `json:"logged_in"`
	PatientID uuid.UUID `json:"patient_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
}

type Member struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Relation string    `json:"relation"`
}

type Profile struct {
	Insurance string   `json:"insurance,omitempty"`
	City      string   `json:"city,omitempty"`
	Family    []Member `json:"family,omitempty"`
}

type Preferences struct {
	Language          string `json:"language,omitempty"`
	RemindersDefault  bool   `json:"reminders_default"`
	CalendarByDefault bool   `json:"calendar_by_default"`
}

// BookingDraft is the in-progress booking selection a screen is
// assembling before it submits a request.
type BookingDraft struct {
	Specialty string                `json:"specialty,omitempty"`
	Symptom   string                `json:"symptom,omitempty"`
	DoctorID  uuid.UUID             `json:"doctor_id,omitempty"`
	Slot      *appointment.TimeSlot `json:"slot,omitempty"`
}

func initialSnapshot() Snapshot {
	return Snapshot{
		Preferences: Preferences{Language: "de", RemindersDefault: true},
	}
}

// Clone deep-copies the snapshot so mutation functions can transform
// freely without aliasing the stored state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Appointments = cloneAppointments(s.Appointments)
	out.History = cloneAppointments(s.History)
	if s.Profile.Family != nil {
		out.Profile.Family = append([]Member(nil), s.Profile.Family...)
	}
	if s.Booking != nil {
		draft := *s.Booking
		if s.Booking.Slot != nil {
			slot := *s.Booking.Slot
			draft.Slot = &slot
		}
		out.Booking = &draft
	}
	return out
}

func cloneAppointments(in []appointment.Appointment) []appointment.Appointment {
	if in == nil {
		return nil
	}
	out := make([]appointment.Appointment, len(in))
	for i, a := range in {
		out[i] = a
		if a.Request != nil {
			req := *a.Request
			if a.Request.Preferences != nil {
				req.Preferences = append([]appointment.SlotPreference(nil), a.Request.Preferences...)
			}
			out[i].Request = &req
		}
	}
	return out
}

// FindAppointment returns a copy of the appointment with the given id.
func (s Snapshot) FindAppointment(id uuid.UUID) (appointment.Appointment, bool) {
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return appointment.Appointment{}, false
}
