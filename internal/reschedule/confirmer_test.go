package reschedule

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
)

type fixedChecker struct{ available bool }

func (f fixedChecker) IsAvailable(uuid.UUID, string, string) bool { return f.available }

type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(int) int     { return r.n }

func TestSimulatedConfirmerIssuesNumber(t *testing.T) {
	c := NewSimulatedConfirmer(fixedChecker{available: true}, clock.NewFake(testStart), fixedRand{f: 0.5, n: 1234})

	number, err := c.Confirm(context.Background(), originalAppointment(), appointment.TimeSlot{Date: "2026-03-20", Time: "14:00"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if !strings.HasPrefix(number, "RSV-") || len(number) != 10 {
		t.Errorf("confirmation number %q not in RSV-NNNNNN form", number)
	}
}

func TestSimulatedConfirmerRejectsUnavailableSlot(t *testing.T) {
	c := NewSimulatedConfirmer(fixedChecker{available: false}, clock.NewFake(testStart), fixedRand{f: 0.5})

	_, err := c.Confirm(context.Background(), originalAppointment(), appointment.TimeSlot{Date: "2026-03-20", Time: "14:00"})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestSimulatedConfirmerRandomRejection(t *testing.T) {
	c := NewSimulatedConfirmer(fixedChecker{available: true}, clock.NewFake(testStart), fixedRand{f: 0.0})

	_, err := c.Confirm(context.Background(), originalAppointment(), appointment.TimeSlot{Date: "2026-03-20", Time: "14:00"})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("err = %v, want ErrSlotUnavailable on a drawn rejection", err)
	}
}

func TestSimulatedConfirmerHonoursCancellation(t *testing.T) {
	c := NewSimulatedConfirmer(fixedChecker{available: true}, clock.NewFake(testStart), fixedRand{f: 0.5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Confirm(ctx, originalAppointment(), appointment.TimeSlot{}); err == nil {
		t.Error("expected context error from cancelled confirmation")
	}
}
