package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/curalink/patient-booking/pkg/logging"
)

// PersisterFactory builds the persister bound to one patient's storage
// key.
type PersisterFactory func(patientID uuid.UUID) Persister

// Manager hands out one Store per patient, creating it lazily from the
// persister factory.
type Manager struct {
	mu      sync.Mutex
	stores  map[uuid.UUID]*Store
	factory PersisterFactory
	logger  *logging.Logger
}

func NewManager(factory PersisterFactory, logger *logging.Logger) *Manager {
	return &Manager{
		stores:  make(map[uuid.UUID]*Store),
		factory: factory,
		logger:  logger,
	}
}

// ForPatient returns the patient's store, loading the persisted
// snapshot on first access.
func (m *Manager) ForPatient(patientID uuid.UUID) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[patientID]; ok {
		return st
	}
	st := New(m.factory(patientID), m.logger)
	st.Load(context.Background())
	m.stores[patientID] = st
	return st
}

// Stores returns the currently loaded stores keyed by patient, used by
// the confirmation sweeper.
func (m *Manager) Stores() map[uuid.UUID]*Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[uuid.UUID]*Store, len(m.stores))
	for id, st := range m.stores {
		out[id] = st
	}
	return out
}
