package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/matching"
)

// StartMatchingRequest starts a matching run for a patient. For
// by_specialty bookings doctor_id is required and either
// fully_flexible or at least one preference must be set.
type StartMatchingRequest struct {
	BookingType   string                       `json:"booking_type"`
	Specialty     string                       `json:"specialty"`
	Symptom       string                       `json:"symptom,omitempty"`
	City          string                       `json:"city"`
	Insurance     string                       `json:"insurance"`
	PatientName   string                       `json:"patient_name"`
	DoctorID      string                       `json:"doctor_id,omitempty"`
	FullyFlexible bool                         `json:"fully_flexible,omitempty"`
	Preferences   []appointment.SlotPreference `json:"preferences,omitempty"`
}

// MatchingOperationResponse reports the progress of a matching run.
type MatchingOperationResponse struct {
	ID          uuid.UUID                `json:"id"`
	PatientID   uuid.UUID                `json:"patient_id"`
	Done        bool                     `json:"done"`
	Cancelled   bool                     `json:"cancelled"`
	Success     bool                     `json:"success"`
	Stages      []matching.StageEvent    `json:"stages"`
	Appointment *appointment.Appointment `json:"appointment,omitempty"`
}

type BookSlotRequest struct {
	DoctorID    string `json:"doctor_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	PatientName string `json:"patient_name"`
	AwaitDoctor bool   `json:"await_doctor,omitempty"`
}

type RescheduleRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason,omitempty"`
}

type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type AppointmentListResponse struct {
	Appointments []appointment.Appointment `json:"appointments"`
}

type SuggestionsResponse struct {
	Suggestions []appointment.RescheduleSuggestion `json:"suggestions"`
}

type AvailableDatesResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Dates    []string  `json:"dates"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID              `json:"doctor_id"`
	Date     string                 `json:"date"`
	Slots    []appointment.TimeSlot `json:"slots"`
}

type ResetResponse struct {
	PatientID uuid.UUID `json:"patient_id"`
	ResetAt   time.Time `json:"reset_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
