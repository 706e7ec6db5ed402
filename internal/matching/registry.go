package matching

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

var ErrOperationNotFound = errors.New("matching operation not found")

// Locker guards against two concurrent matching operations for one
// patient. Satisfied by the redis match locker.
type Locker interface {
	Acquire(ctx context.Context, patientID uuid.UUID) (func(), error)
}

// StageEvent is one recorded stage notification.
type StageEvent struct {
	Stage       Stage     `json:"stage"`
	DoctorCount int       `json:"doctor_count,omitempty"`
	At          time.Time `json:"at"`
}

// Operation is one in-flight or finished matching run. Independent
// operations share nothing but the store's mutation API.
type Operation struct {
	ID        uuid.UUID
	PatientID uuid.UUID

	mu        sync.Mutex
	stages    []StageEvent
	outcome   Outcome
	done      bool
	cancelled bool
	cancel    context.CancelFunc
	clk       clock.Clock
}

// Stages returns the ordered stage notifications recorded so far.
func (op *Operation) Stages() []StageEvent {
	op.mu.Lock()
	defer op.mu.Unlock()
	return append([]StageEvent(nil), op.stages...)
}

// Result returns the terminal outcome once the operation finished.
func (op *Operation) Result() (Outcome, bool) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.outcome, op.done
}

// Cancelled reports whether the operation was cancelled by its owner.
func (op *Operation) Cancelled() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.cancelled
}

// Cancel stops the operation. After Cancel no stage event is recorded
// and the run applies no store mutation.
func (op *Operation) Cancel() {
	op.mu.Lock()
	op.cancelled = true
	op.mu.Unlock()
	op.cancel()
}

func (op *Operation) record(stage Stage, doctorCount int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.cancelled || op.done {
		return
	}
	op.stages = append(op.stages, StageEvent{Stage: stage, DoctorCount: doctorCount, At: op.clk.Now()})
}

func (op *Operation) complete(out Outcome) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.cancelled {
		return
	}
	op.outcome = out
	op.done = true
}

// Registry starts and tracks matching operations.
type Registry struct {
	orch   *Orchestrator
	locker Locker
	clk    clock.Clock
	logger *logging.Logger

	mu  sync.Mutex
	ops map[uuid.UUID]*Operation

	// wg lets tests wait for the run goroutine to settle.
	wg sync.WaitGroup
}

func NewRegistry(orch *Orchestrator, locker Locker, clk clock.Clock, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		orch:   orch,
		locker: locker,
		clk:    clk,
		logger: logger,
		ops:    make(map[uuid.UUID]*Operation),
	}
}

// Start acquires the patient's match lock, writes the matching
// placeholder into the store, and launches the orchestrator. The
// operation owns its own context and outlives the submitting request.
func (r *Registry) Start(ctx context.Context, st *store.Store, req appointment.MatchingRequest) (*Operation, error) {
	release, err := r.locker.Acquire(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	opID := uuid.New()
	now := r.clk.Now()

	st.Mutate(ctx, func(s store.Snapshot) store.Snapshot {
		s.Appointments = append(s.Appointments, appointment.Appointment{
			ID:          opID,
			Patient:     appointment.PatientRef{ID: req.PatientID, Name: req.PatientName},
			Status:      appointment.StatusMatching,
			BookingType: req.BookingType,
			Request:     &req,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return s
	})

	runCtx, cancel := context.WithCancel(context.Background())
	op := &Operation{ID: opID, PatientID: req.PatientID, cancel: cancel, clk: r.clk}

	r.mu.Lock()
	r.ops[opID] = op
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()

		outcome := r.orch.Run(runCtx, st, opID, req, op.record)
		if runCtx.Err() != nil {
			// A cancelled request must leave no record. Placeholder
			// cleanup runs on a fresh context because runCtx is dead.
			st.Mutate(context.Background(), func(s store.Snapshot) store.Snapshot {
				s.Appointments = removePlaceholder(s.Appointments, opID)
				return s
			})
			r.logger.Info("matching operation cancelled", "op_id", opID)
			return
		}
		op.complete(outcome)
	}()

	return op, nil
}

// Get looks up an operation by id.
func (r *Registry) Get(opID uuid.UUID) (*Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[opID]
	if !ok {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

// Cancel cancels an in-flight operation.
func (r *Registry) Cancel(opID uuid.UUID) error {
	op, err := r.Get(opID)
	if err != nil {
		return err
	}
	op.Cancel()
	return nil
}

// Wait blocks until every launched operation goroutine has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
