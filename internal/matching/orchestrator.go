// Package matching drives a booking request through the staged doctor
// matching flow to a terminal outcome. The flow is a simulation with
// real contracts: stage callbacks are strictly ordered, cancellation is
// honored at every suspension point, and minimum elapsed-duration
// floors are enforced before any terminal report.
package matching

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/directory"
	"github.com/curalink/patient-booking/internal/observability/metrics"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

type Stage string

const (
	StageSearching            Stage = "searching"
	StageFoundDoctors         Stage = "found_doctors"
	StageCheckingAvailability Stage = "checking_availability"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
)

// StageFunc receives ordered stage notifications. doctorCount is only
// meaningful for found_doctors.
type StageFunc func(stage Stage, doctorCount int)

// Outcome is the caller-visible result. The contract is binary: success
// with an appointment, or failure. Never an error.
type Outcome struct {
	Success     bool                     `json:"success"`
	Appointment *appointment.Appointment `json:"appointment,omitempty"`
}

// Delays are the per-stage simulated waits. Their sum stays under the
// success floor so the floors, not the delays, dominate pacing.
type Delays struct {
	Searching            time.Duration
	FoundDoctors         time.Duration
	CheckingAvailability time.Duration
	AwaitingConfirmation time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Searching:            3 * time.Second,
		FoundDoctors:         2 * time.Second,
		CheckingAvailability: 4 * time.Second,
		AwaitingConfirmation: 5 * time.Second,
	}
}

const (
	fastLaneSuccessRate  = 0.90
	specialtySuccessRate = 0.95

	// Dwell floors: deliberate minimum elapsed durations before a
	// terminal outcome is reported (fast-lane only).
	fastLaneNoMatchFloor = 60 * time.Second
	fastLaneFailFloor    = 40 * time.Second
	fastLaneSuccessFloor = 30 * time.Second

	fastLaneScanDays  = 7
	specialtyScanDays = 14
)

// SlotDirectory is the read-only slot source the orchestrator scans.
type SlotDirectory interface {
	AvailableSlotsForDate(doctorID uuid.UUID, date string) []appointment.TimeSlot
}

type Orchestrator struct {
	doctors directory.Directory
	slots   SlotDirectory
	clk     clock.Clock
	rng     Rand
	logger  *logging.Logger
	metrics *metrics.MatchingMetrics
	delays  Delays
}

func NewOrchestrator(
	doctors directory.Directory,
	slots SlotDirectory,
	clk clock.Clock,
	rng Rand,
	delays Delays,
	logger *logging.Logger,
	m *metrics.MatchingMetrics,
) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		doctors: doctors,
		slots:   slots,
		clk:     clk,
		rng:     rng,
		logger:  logger,
		metrics: m,
		delays:  delays,
	}
}

// Run resolves req to a terminal outcome, mutating the placeholder
// appointment identified by opID in st. Once ctx is cancelled no
// further stage callback fires and no store mutation is applied, even
// if a result was already computed. Internal panics resolve to the
// no-match outcome; Run never propagates an error.
func (o *Orchestrator) Run(ctx context.Context, st *store.Store, opID uuid.UUID, req appointment.MatchingRequest, notify StageFunc) (out Outcome) {
	start := o.clk.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("matching run panicked, resolving as no-match", "op_id", opID, "panic", r)
			out = o.fail(ctx, st, opID, string(req.BookingType), start, "internal_error")
		}
	}()

	if req.BookingType == appointment.BookingBySpecialty {
		return o.runSpecialty(ctx, st, opID, req, notify, start)
	}
	return o.runFastLane(ctx, st, opID, req, notify, start)
}

func (o *Orchestrator) runFastLane(ctx context.Context, st *store.Store, opID uuid.UUID, req appointment.MatchingRequest, notify StageFunc, start time.Time) Outcome {
	const flow = "fast_lane"

	if err := o.clk.Sleep(ctx, o.delays.Searching); err != nil {
		return Outcome{}
	}
	notify(StageSearching, 0)

	docs, err := o.doctors.SearchDoctors(ctx, directory.Filter{
		Specialty: req.Specialty,
		City:      req.City,
		Insurance: req.Insurance,
	})
	if ctx.Err() != nil {
		return Outcome{}
	}
	if err != nil {
		// A failed lookup resolves like an empty one rather than
		// surfacing an error to the screen.
		o.logger.Warn("doctor search failed, treating as no candidates", "op_id", opID, "error", err)
		docs = nil
	}

	if len(docs) == 0 {
		if err := o.holdUntil(ctx, start, fastLaneNoMatchFloor); err != nil {
			return Outcome{}
		}
		return o.fail(ctx, st, opID, flow, start, "no_candidates")
	}

	if err := o.clk.Sleep(ctx, o.delays.FoundDoctors); err != nil {
		return Outcome{}
	}
	notify(StageFoundDoctors, len(docs))

	if err := o.clk.Sleep(ctx, o.delays.CheckingAvailability); err != nil {
		return Outcome{}
	}
	notify(StageCheckingAvailability, 0)

	doc := docs[o.rng.Intn(len(docs))]

	if o.rng.Float64() >= fastLaneSuccessRate {
		if err := o.holdUntil(ctx, start, fastLaneFailFloor); err != nil {
			return Outcome{}
		}
		return o.fail(ctx, st, opID, flow, start, "declined")
	}

	slot, ok := o.pickFastLaneSlot(doc.ID)
	if ctx.Err() != nil {
		return Outcome{}
	}
	if !ok {
		if err := o.holdUntil(ctx, start, fastLaneFailFloor); err != nil {
			return Outcome{}
		}
		return o.fail(ctx, st, opID, flow, start, "no_slots")
	}

	if err := o.clk.Sleep(ctx, o.delays.AwaitingConfirmation); err != nil {
		return Outcome{}
	}
	notify(StageAwaitingConfirmation, 0)

	if err := o.holdUntil(ctx, start, fastLaneSuccessFloor); err != nil {
		return Outcome{}
	}
	return o.commit(ctx, st, opID, doc, slot, req, flow, start)
}

func (o *Orchestrator) runSpecialty(ctx context.Context, st *store.Store, opID uuid.UUID, req appointment.MatchingRequest, notify StageFunc, start time.Time) Outcome {
	const flow = "by_specialty"

	if err := o.clk.Sleep(ctx, o.delays.Searching); err != nil {
		return Outcome{}
	}
	notify(StageSearching, 0)

	doc, err := o.doctors.GetDoctorByID(ctx, req.DoctorID)
	if ctx.Err() != nil {
		return Outcome{}
	}
	if err != nil {
		return o.fail(ctx, st, opID, flow, start, "doctor_not_found")
	}

	if err := o.clk.Sleep(ctx, o.delays.CheckingAvailability); err != nil {
		return Outcome{}
	}
	notify(StageCheckingAvailability, 0)

	if o.rng.Float64() >= specialtySuccessRate {
		return o.fail(ctx, st, opID, flow, start, "declined")
	}

	slot, ok := o.pickSpecialtySlot(doc.ID, req)
	if ctx.Err() != nil {
		return Outcome{}
	}
	if !ok {
		return o.fail(ctx, st, opID, flow, start, "no_slots")
	}

	if err := o.clk.Sleep(ctx, o.delays.AwaitingConfirmation); err != nil {
		return Outcome{}
	}
	notify(StageAwaitingConfirmation, 0)

	return o.commit(ctx, st, opID, *doc, slot, req, flow, start)
}

// pickFastLaneSlot scans the next 7 calendar days, weekends included,
// and picks uniformly among the first day's available slots.
func (o *Orchestrator) pickFastLaneSlot(doctorID uuid.UUID) (appointment.TimeSlot, bool) {
	today := o.clk.Now()
	for day := 1; day <= fastLaneScanDays; day++ {
		date := today.AddDate(0, 0, day).Format(appointment.DateLayout)
		avail := o.slots.AvailableSlotsForDate(doctorID, date)
		if len(avail) > 0 {
			return avail[o.rng.Intn(len(avail))], true
		}
	}
	return appointment.TimeSlot{}, false
}

// pickSpecialtySlot scans the next 14 days skipping weekends. A
// fully-flexible patient takes the first day with availability;
// otherwise each day's slots are intersected with the declared
// {day, timeRange} preferences and days without an intersection are
// skipped.
func (o *Orchestrator) pickSpecialtySlot(doctorID uuid.UUID, req appointment.MatchingRequest) (appointment.TimeSlot, bool) {
	today := o.clk.Now()
	for day := 1; day <= specialtyScanDays; day++ {
		d := today.AddDate(0, 0, day)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		avail := o.slots.AvailableSlotsForDate(doctorID, d.Format(appointment.DateLayout))
		if len(avail) == 0 {
			continue
		}

		if req.FullyFlexible {
			return avail[o.rng.Intn(len(avail))], true
		}

		var usable []appointment.TimeSlot
		for _, s := range avail {
			if slotMatchesPreference(s, d.Weekday(), req.Preferences) {
				usable = append(usable, s)
			}
		}
		if len(usable) > 0 {
			return usable[o.rng.Intn(len(usable))], true
		}
	}
	return appointment.TimeSlot{}, false
}

func slotMatchesPreference(s appointment.TimeSlot, weekday time.Weekday, prefs []appointment.SlotPreference) bool {
	for _, p := range prefs {
		wd, ok := p.Weekday()
		if !ok || wd != weekday {
			continue
		}
		if p.TimeRange.Contains(s.Time) {
			return true
		}
	}
	return false
}

// holdUntil sleeps out the remainder of the dwell floor measured from
// the start of the run.
func (o *Orchestrator) holdUntil(ctx context.Context, start time.Time, floor time.Duration) error {
	remaining := floor - o.clk.Now().Sub(start)
	if remaining > 0 {
		return o.clk.Sleep(ctx, remaining)
	}
	return ctx.Err()
}

// fail removes the matching placeholder so a request that never matched
// leaves no record. A cancelled run mutates nothing.
func (o *Orchestrator) fail(ctx context.Context, st *store.Store, opID uuid.UUID, flow string, start time.Time, reason string) Outcome {
	if ctx.Err() != nil {
		return Outcome{}
	}

	st.Mutate(ctx, func(s store.Snapshot) store.Snapshot {
		s.Appointments = removePlaceholder(s.Appointments, opID)
		return s
	})

	elapsed := o.clk.Now().Sub(start)
	o.metrics.ObserveOutcome(flow, "no_match", elapsed.Seconds())
	o.logger.Info("matching resolved without a match",
		"op_id", opID, "flow", flow, "reason", reason, "elapsed", elapsed)
	return Outcome{Success: false}
}

// commit resolves the placeholder in place: same appointment id, now
// carrying the matched doctor and slot in confirmed status. The final
// cancellation check sits immediately before the mutation.
func (o *Orchestrator) commit(ctx context.Context, st *store.Store, opID uuid.UUID, doc directory.Doctor, slot appointment.TimeSlot, req appointment.MatchingRequest, flow string, start time.Time) Outcome {
	if ctx.Err() != nil {
		return Outcome{}
	}

	now := o.clk.Now()
	var result *appointment.Appointment

	st.Mutate(ctx, func(s store.Snapshot) store.Snapshot {
		for i := range s.Appointments {
			if s.Appointments[i].ID != opID {
				continue
			}
			a := &s.Appointments[i]
			a.Doctor = appointment.DoctorRef{ID: doc.ID, Name: doc.Name, Specialty: doc.Specialty}
			a.Date = slot.Date
			a.Time = slot.Time
			if err := a.Transition(appointment.StatusConfirmed, now); err != nil {
				// Placeholder left the matching state underneath us
				// (store reset or concurrent cancel); keep it as is.
				return s
			}
			resolved := *a
			result = &resolved
			return s
		}

		// Placeholder gone (store was reset mid-flight): record the
		// match as a fresh confirmed appointment.
		appt := appointment.Appointment{
			ID:          opID,
			Doctor:      appointment.DoctorRef{ID: doc.ID, Name: doc.Name, Specialty: doc.Specialty},
			Date:        slot.Date,
			Time:        slot.Time,
			Patient:     appointment.PatientRef{ID: req.PatientID, Name: req.PatientName},
			Status:      appointment.StatusConfirmed,
			BookingType: req.BookingType,
			Request:     &req,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.Appointments = append(s.Appointments, appt)
		result = &appt
		return s
	})

	if result == nil {
		return Outcome{Success: false}
	}

	elapsed := o.clk.Now().Sub(start)
	o.metrics.ObserveOutcome(flow, "matched", elapsed.Seconds())
	o.logger.Info("matching resolved with appointment",
		"op_id", opID, "flow", flow, "doctor", doc.Name, "date", slot.Date, "time", slot.Time, "elapsed", elapsed)
	return Outcome{Success: true, Appointment: result}
}

func removePlaceholder(appts []appointment.Appointment, opID uuid.UUID) []appointment.Appointment {
	out := appts[:0]
	for _, a := range appts {
		if a.ID == opID && a.Status == appointment.StatusMatching {
			continue
		}
		out = append(out, a)
	}
	return out
}
