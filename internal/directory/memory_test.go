package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func berlinCardiologist() Doctor {
	return Doctor{
		ID:         uuid.New(),
		Name:       "Dr. Weber",
		Specialty:  "Cardiology",
		City:       "Berlin",
		Insurances: []string{"GKV", "PKV"},
	}
}

func TestSearchDoctorsFilters(t *testing.T) {
	hamburg := Doctor{ID: uuid.New(), Name: "Dr. Ahrens", Specialty: "Cardiology", City: "Hamburg", Insurances: []string{"GKV"}}
	derm := Doctor{ID: uuid.New(), Name: "Dr. Busch", Specialty: "Dermatology", City: "Berlin", Insurances: []string{"PKV"}}
	cardio := berlinCardiologist()
	dir := NewMemoryDirectory(cardio, hamburg, derm)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"specialty and city", Filter{Specialty: "Cardiology", City: "Berlin"}, 1},
		{"specialty only", Filter{Specialty: "Cardiology"}, 2},
		{"empty filter matches all", Filter{}, 3},
		{"insurance narrows", Filter{City: "Berlin", Insurance: "GKV"}, 1},
		{"no match", Filter{Specialty: "Neurology", City: "Berlin"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dir.SearchDoctors(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("SearchDoctors returned error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d doctors, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSearchDoctorsSortedByName(t *testing.T) {
	dir := NewMemoryDirectory(
		Doctor{ID: uuid.New(), Name: "Dr. Zorn", Specialty: "Cardiology", City: "Berlin"},
		Doctor{ID: uuid.New(), Name: "Dr. Abel", Specialty: "Cardiology", City: "Berlin"},
	)

	got, err := dir.SearchDoctors(context.Background(), Filter{Specialty: "Cardiology"})
	if err != nil {
		t.Fatalf("SearchDoctors returned error: %v", err)
	}
	if got[0].Name != "Dr. Abel" || got[1].Name != "Dr. Zorn" {
		t.Errorf("results not sorted by name: %s, %s", got[0].Name, got[1].Name)
	}
}

func TestGetDoctorByID(t *testing.T) {
	cardio := berlinCardiologist()
	dir := NewMemoryDirectory(cardio)

	got, err := dir.GetDoctorByID(context.Background(), cardio.ID)
	if err != nil {
		t.Fatalf("GetDoctorByID returned error: %v", err)
	}
	if got.Name != cardio.Name {
		t.Errorf("got %q, want %q", got.Name, cardio.Name)
	}

	_, err = dir.GetDoctorByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestAcceptsInsuranceEmptyListMeansAll(t *testing.T) {
	d := Doctor{ID: uuid.New(), Name: "Dr. Frei", Specialty: "Cardiology", City: "Berlin"}
	if !d.AcceptsInsurance("GKV") {
		t.Error("doctor with no insurance list should accept any type")
	}
}
