package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-memory Directory used by tests and the
// simulator. Safe for concurrent reads.
type MemoryDirectory struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]Doctor
}

func NewMemoryDirectory(doctors ...Doctor) *MemoryDirectory {
	m := &MemoryDirectory{doctors: make(map[uuid.UUID]Doctor, len(doctors))}
	for _, d := range doctors {
		m.doctors[d.ID] = d
	}
	return m
}

func (m *MemoryDirectory) Add(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *MemoryDirectory) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *MemoryDirectory) SearchDoctors(_ context.Context, f Filter) ([]Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Doctor
	for _, d := range m.doctors {
		if f.Specialty != "" && d.Specialty != f.Specialty {
			continue
		}
		if f.City != "" && d.City != f.City {
			continue
		}
		if !d.AcceptsInsurance(f.Insurance) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
