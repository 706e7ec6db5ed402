// Package directory is the doctor directory consumed by matching. It is
// read-only from the engine's perspective.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDoctorNotFound = errors.New("doctor not found")

type Doctor struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Specialty  string    `json:"specialty"`
	City       string    `json:"city"`
	Insurances []string  `json:"insurances"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AcceptsInsurance reports whether the doctor bills the given insurance
// type. An empty accepted list means all types.
func (d Doctor) AcceptsInsurance(insurance string) bool {
	if insurance == "" || len(d.Insurances) == 0 {
		return true
	}
	for _, ins := range d.Insurances {
		if ins == insurance {
			return true
		}
	}
	return false
}

// Filter narrows a doctor search. Empty fields match everything.
type Filter struct {
	Specialty string
	City      string
	Insurance string
}

type Directory interface {
	SearchDoctors(ctx context.Context, f Filter) ([]Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
