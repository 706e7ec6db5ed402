package slots

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/clock"
)

func TestSlotsAreDeterministicPerDoctorAndDate(t *testing.T) {
	dir := NewDirectory(clock.NewFake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))
	doctorID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	first := dir.GetSlotsForDate(doctorID, "2026-03-12")
	second := dir.GetSlotsForDate(doctorID, "2026-03-12")

	if len(first) != len(second) {
		t.Fatalf("slot counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between queries: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSlotsDifferAcrossDoctors(t *testing.T) {
	dir := NewDirectory(clock.NewFake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))

	a := dir.GetSlotsForDate(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), "2026-03-12")
	b := dir.GetSlotsForDate(uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"), "2026-03-12")

	same := true
	for i := range a {
		if a[i].Available != b[i].Available {
			same = false
			break
		}
	}
	if same {
		t.Error("two doctors produced identical availability patterns; seed likely ignores doctor id")
	}
}

func TestSlotsCoverWorkingHours(t *testing.T) {
	dir := NewDirectory(clock.NewFake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))
	got := dir.GetSlotsForDate(uuid.New(), "2026-03-12")

	wantCount := (closingHour - openingHour) * 60 / slotMinutes
	if len(got) != wantCount {
		t.Fatalf("got %d slots, want %d", len(got), wantCount)
	}
	if got[0].Time != "07:00" {
		t.Errorf("first slot at %s, want 07:00", got[0].Time)
	}
	if got[len(got)-1].Time != "18:30" {
		t.Errorf("last slot at %s, want 18:30", got[len(got)-1].Time)
	}
}

func TestGetAvailableDatesStartsTomorrow(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	dir := NewDirectory(clock.NewFake(today))

	dates := dir.GetAvailableDates(uuid.New())
	for _, d := range dates {
		if d == "2026-03-10" {
			t.Error("available dates must not include today")
		}
		if d < "2026-03-11" || d > "2026-03-24" {
			t.Errorf("date %s outside the 14-day horizon", d)
		}
	}
}

func TestIsAvailableMatchesSlotList(t *testing.T) {
	dir := NewDirectory(clock.NewFake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))
	doctorID := uuid.New()

	for _, s := range dir.GetSlotsForDate(doctorID, "2026-03-15") {
		if dir.IsAvailable(doctorID, "2026-03-15", s.Time) != s.Available {
			t.Fatalf("IsAvailable disagrees with slot list at %s", s.Time)
		}
	}

	if dir.IsAvailable(doctorID, "2026-03-15", "23:00") {
		t.Error("slot outside working hours reported available")
	}
}
