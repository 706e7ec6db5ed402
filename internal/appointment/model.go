package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wire layouts for calendar dates and local clock times. Times carry no
// timezone; they are interpreted in the patient's locale at display time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type BookingType string

const (
	BookingFastLane    BookingType = "fast_lane"
	BookingBySpecialty BookingType = "by_specialty"
)

// TimeRange names the hour band a patient is available in.
type TimeRange string

const (
	RangeMorning   TimeRange = "morning"   // 07:00–12:00
	RangeAfternoon TimeRange = "afternoon" // 12:00–15:00
	RangeEvening   TimeRange = "evening"   // 15:00–19:00
)

// Hours returns the half-open [from, to) hour band for the range.
func (r TimeRange) Hours() (from, to int) {
	switch r {
	case RangeMorning:
		return 7, 12
	case RangeAfternoon:
		return 12, 15
	case RangeEvening:
		return 15, 19
	default:
		return 0, 0
	}
}

// Contains reports whether a "15:04" clock time falls inside the band.
func (r TimeRange) Contains(clock string) bool {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return false
	}
	from, to := r.Hours()
	return t.Hour() >= from && t.Hour() < to
}

type DoctorRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}

type PatientRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// SlotPreference is one declared availability window for specialty-first
// matching. Day is a lowercase three-letter weekday ("mon".."sun").
type SlotPreference struct {
	Day       string    `json:"day"`
	TimeRange TimeRange `json:"time_range"`
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// Weekday resolves the preference day, with ok=false for unknown names.
func (p SlotPreference) Weekday() (time.Weekday, bool) {
	wd, ok := weekdays[p.Day]
	return wd, ok
}

// MatchingRequest is the transient input to the matching orchestrator.
// It is constructed by the requesting screen, consumed once, and kept
// only as an audit snapshot on the resulting appointment.
type MatchingRequest struct {
	Specialty   string      `json:"specialty"`
	Symptom     string      `json:"symptom,omitempty"`
	City        string      `json:"city"`
	Insurance   string      `json:"insurance"`
	PatientID   uuid.UUID   `json:"patient_id"`
	PatientName string      `json:"patient_name"`
	BookingType BookingType `json:"booking_type"`

	// Specialty-first only.
	DoctorID      uuid.UUID        `json:"doctor_id,omitempty"`
	FullyFlexible bool             `json:"fully_flexible,omitempty"`
	Preferences   []SlotPreference `json:"preferences,omitempty"`
}

// TimeSlot is one bookable (date, time) pair for a doctor. Slots are
// produced only by the slot directory and are immutable.
type TimeSlot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// StartsAt combines the slot's date and time in loc.
func (s TimeSlot) StartsAt(loc *time.Location) (time.Time, error) {
	return combine(s.Date, s.Time, loc)
}

// SuggestionReason explains why a reschedule alternative was offered
// relative to the original slot.
type SuggestionReason string

const (
	ReasonSameTime      SuggestionReason = "same_time"
	ReasonSimilarTime   SuggestionReason = "similar_time"
	ReasonSoonest       SuggestionReason = "soonest"
	ReasonSameWeekday   SuggestionReason = "same_weekday"
	ReasonNextAvailable SuggestionReason = "next_available"
)

type RescheduleSuggestion struct {
	Slot   TimeSlot         `json:"slot"`
	Reason SuggestionReason `json:"reason"`
}

// Appointment is the persisted booking record. An Appointment exists in
// the store only once its status has reached a stable state; a request
// that never produces one leaves no record.
type Appointment struct {
	ID               uuid.UUID        `json:"id"`
	Doctor           DoctorRef        `json:"doctor"`
	Date             string           `json:"date"`
	Time             string           `json:"time"`
	Patient          PatientRef       `json:"patient"`
	Status           Status           `json:"status"`
	ReminderSet      bool             `json:"reminder_set"`
	CalendarSynced   bool             `json:"calendar_synced"`
	BookingType      BookingType      `json:"booking_type,omitempty"`
	Request          *MatchingRequest `json:"matching_request,omitempty"`
	RescheduleReason string           `json:"reschedule_reason,omitempty"`
	Confirmation     string           `json:"confirmation,omitempty"`
	CreatedAt        time.Time        `json:"created_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at,omitempty"`
}

// StartsAt combines the appointment's date and time in loc.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return combine(a.Date, a.Time, loc)
}

// EffectiveStatus derives the read-time status: a confirmed appointment
// whose start is behind now classifies as completed. Completion is never
// stored; this is the single rule for "upcoming vs. past".
func (a Appointment) EffectiveStatus(now time.Time) Status {
	if a.Status != StatusConfirmed {
		return a.Status
	}
	at, err := a.StartsAt(now.Location())
	if err != nil {
		return a.Status
	}
	if at.Before(now) {
		return StatusCompleted
	}
	return StatusConfirmed
}

// Upcoming reports whether the appointment should appear in the
// patient's upcoming list.
func (a Appointment) Upcoming(now time.Time) bool {
	switch a.EffectiveStatus(now) {
	case StatusMatching, StatusAwaitConfirm, StatusConfirmed:
		return true
	default:
		return false
	}
}

func combine(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment time %q %q: %w", date, clock, err)
	}
	return t, nil
}
