package appointment

import (
	"testing"
	"time"
)

func TestTimeRangeContains(t *testing.T) {
	tests := []struct {
		r     TimeRange
		clock string
		want  bool
	}{
		{RangeMorning, "07:00", true},
		{RangeMorning, "11:30", true},
		{RangeMorning, "12:00", false},
		{RangeAfternoon, "12:00", true},
		{RangeAfternoon, "14:59", true},
		{RangeAfternoon, "15:00", false},
		{RangeEvening, "15:00", true},
		{RangeEvening, "18:30", true},
		{RangeEvening, "19:00", false},
		{RangeMorning, "not-a-time", false},
	}
	for _, tt := range tests {
		if got := tt.r.Contains(tt.clock); got != tt.want {
			t.Errorf("%s.Contains(%q) = %v, want %v", tt.r, tt.clock, got, tt.want)
		}
	}
}

func TestEffectiveStatusDerivesCompleted(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		appt Appointment
		want Status
	}{
		{
			"confirmed in the past reads as completed",
			Appointment{Status: StatusConfirmed, Date: "2026-03-09", Time: "10:00"},
			StatusCompleted,
		},
		{
			"confirmed earlier today reads as completed",
			Appointment{Status: StatusConfirmed, Date: "2026-03-10", Time: "09:00"},
			StatusCompleted,
		},
		{
			"confirmed in the future stays confirmed",
			Appointment{Status: StatusConfirmed, Date: "2026-03-11", Time: "10:00"},
			StatusConfirmed,
		},
		{
			"cancelled in the past stays cancelled",
			Appointment{Status: StatusCancelledPatient, Date: "2026-03-09", Time: "10:00"},
			StatusCancelledPatient,
		},
		{
			"matching placeholder is never completed",
			Appointment{Status: StatusMatching},
			StatusMatching,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appt.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	future := Appointment{Status: StatusConfirmed, Date: "2026-03-12", Time: "10:00"}
	if !future.Upcoming(now) {
		t.Error("future confirmed appointment should be upcoming")
	}

	past := Appointment{Status: StatusConfirmed, Date: "2026-03-01", Time: "10:00"}
	if past.Upcoming(now) {
		t.Error("past confirmed appointment should not be upcoming")
	}

	cancelled := Appointment{Status: StatusCancelledDoctor, Date: "2026-03-12", Time: "10:00"}
	if cancelled.Upcoming(now) {
		t.Error("cancelled appointment should not be upcoming")
	}
}

func TestSlotPreferenceWeekday(t *testing.T) {
	p := SlotPreference{Day: "mon", TimeRange: RangeMorning}
	wd, ok := p.Weekday()
	if !ok || wd != time.Monday {
		t.Errorf("Weekday() = %v, %v; want Monday, true", wd, ok)
	}

	if _, ok := (SlotPreference{Day: "monday"}).Weekday(); ok {
		t.Error("long-form day names are not accepted")
	}
}

func TestStartsAtRejectsMalformedDate(t *testing.T) {
	appt := Appointment{Date: "10.03.2026", Time: "09:00"}
	if _, err := appt.StartsAt(time.UTC); err == nil {
		t.Error("expected parse error for malformed date")
	}
}
