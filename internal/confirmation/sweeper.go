// Package confirmation resolves appointments waiting on doctor-side
// confirmation. Booking a slot that requires the doctor's sign-off
// parks the appointment in await_confirm; the sweeper periodically
// resolves those to confirmed or cancelled_doctor.
package confirmation

import (
	"context"
	"time"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/observability/metrics"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

// acceptRate is the simulated chance a doctor accepts the request.
const acceptRate = 0.90

type Rand interface {
	Float64() float64
}

type Sweeper struct {
	stores  *store.Manager
	clk     clock.Clock
	rng     Rand
	hold    time.Duration
	logger  *logging.Logger
	metrics *metrics.MatchingMetrics
}

// NewSweeper creates a sweeper that resolves await_confirm appointments
// older than hold.
func NewSweeper(stores *store.Manager, clk clock.Clock, rng Rand, hold time.Duration, logger *logging.Logger, m *metrics.MatchingMetrics) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		stores:  stores,
		clk:     clk,
		rng:     rng,
		hold:    hold,
		logger:  logger,
		metrics: m,
	}
}

// RunOnce sweeps every loaded store, resolving due appointments with a
// single mutation per patient. Returns the number resolved.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	now := s.clk.Now()
	due := now.Add(-s.hold)
	total := 0

	for patientID, st := range s.stores.Stores() {
		if ctx.Err() != nil {
			return total
		}

		resolved := 0
		st.Mutate(ctx, func(snap store.Snapshot) store.Snapshot {
			for i := range snap.Appointments {
				a := &snap.Appointments[i]
				if a.Status != appointment.StatusAwaitConfirm || a.UpdatedAt.After(due) {
					continue
				}

				to := appointment.StatusConfirmed
				resolution := "accepted"
				if s.rng.Float64() >= acceptRate {
					to = appointment.StatusCancelledDoctor
					resolution = "declined"
				}
				if err := a.Transition(to, now); err != nil {
					s.logger.Warn("sweep transition rejected", "appointment_id", a.ID, "error", err)
					continue
				}
				s.metrics.ObserveConfirmation(resolution)
				resolved++
			}
			return snap
		})

		if resolved > 0 {
			s.logger.Info("confirmation sweep resolved appointments",
				"patient_id", patientID, "count", resolved)
			total += resolved
		}
	}
	return total
}

// Run sweeps on the given interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("confirmation sweeper stopping")
			return
		case <-ticker.C:
			start := time.Now()
			n := s.RunOnce(ctx)
			if n > 0 {
				s.logger.Info("confirmation sweep complete", "resolved", n, "took", time.Since(start))
			}
		}
	}
}
