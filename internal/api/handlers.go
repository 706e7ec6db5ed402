package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curalink/patient-booking/internal/appointment"
	"github.com/curalink/patient-booking/internal/booking"
	"github.com/curalink/patient-booking/internal/directory"
	"github.com/curalink/patient-booking/internal/matching"
	redisclient "github.com/curalink/patient-booking/internal/redis"
	"github.com/curalink/patient-booking/internal/reschedule"
	"github.com/curalink/patient-booking/internal/slots"
	"github.com/curalink/patient-booking/internal/store"
)

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func startMatchingHandler(stores *store.Manager, registry *matching.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		var req StartMatchingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		mreq := appointment.MatchingRequest{
			Specialty:     req.Specialty,
			Symptom:       req.Symptom,
			City:          req.City,
			Insurance:     req.Insurance,
			PatientID:     patientID,
			PatientName:   req.PatientName,
			BookingType:   appointment.BookingType(req.BookingType),
			FullyFlexible: req.FullyFlexible,
			Preferences:   req.Preferences,
		}

		switch mreq.BookingType {
		case appointment.BookingFastLane:
			if mreq.Specialty == "" {
				writeError(w, http.StatusBadRequest, "missing_specialty", "specialty is required for fast-lane matching")
				return
			}
		case appointment.BookingBySpecialty:
			doctorID, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			mreq.DoctorID = doctorID
			if !mreq.FullyFlexible && len(mreq.Preferences) == 0 {
				writeError(w, http.StatusBadRequest, "missing_preferences", "either fully_flexible or at least one preference is required")
				return
			}
			for _, p := range mreq.Preferences {
				if _, ok := p.Weekday(); !ok {
					writeError(w, http.StatusBadRequest, "invalid_preference_day", "preference day must be mon..sun")
					return
				}
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid_booking_type", "booking_type must be fast_lane or by_specialty")
			return
		}

		st := stores.ForPatient(patientID)
		op, err := registry.Start(r.Context(), st, mreq)
		if err != nil {
			if errors.Is(err, redisclient.ErrMatchInProgress) {
				writeError(w, http.StatusConflict, "match_in_progress", "a matching operation is already running for this patient")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, operationResponse(op))
	}
}

func getMatchingHandler(registry *matching.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opID, err := urlUUID(r, "opID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_operation_id", "opID must be a valid UUID")
			return
		}

		op, err := registry.Get(opID)
		if err != nil {
			writeError(w, http.StatusNotFound, "operation_not_found", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, operationResponse(op))
	}
}

func cancelMatchingHandler(registry *matching.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opID, err := urlUUID(r, "opID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_operation_id", "opID must be a valid UUID")
			return
		}

		if err := registry.Cancel(opID); err != nil {
			writeError(w, http.StatusNotFound, "operation_not_found", err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func operationResponse(op *matching.Operation) MatchingOperationResponse {
	resp := MatchingOperationResponse{
		ID:        op.ID,
		PatientID: op.PatientID,
		Cancelled: op.Cancelled(),
		Stages:    op.Stages(),
	}
	if outcome, done := op.Result(); done {
		resp.Done = true
		resp.Success = outcome.Success
		resp.Appointment = outcome.Appointment
	}
	return resp
}

func listAppointmentsHandler(stores *store.Manager, svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		scope := r.URL.Query().Get("scope")
		appts := svc.List(stores.ForPatient(patientID), scope)
		writeJSON(w, http.StatusOK, AppointmentListResponse{Appointments: appts})
	}
}

func bookSlotHandler(stores *store.Manager, svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		if _, err := time.Parse(appointment.DateLayout, req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
			return
		}
		if _, err := time.Parse(appointment.TimeLayout, req.Time); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be formatted HH:MM")
			return
		}

		appt, err := svc.BookSlot(r.Context(), stores.ForPatient(patientID), doctorID,
			appointment.PatientRef{ID: patientID, Name: req.PatientName},
			appointment.TimeSlot{Date: req.Date, Time: req.Time},
			req.AwaitDoctor)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func cancelAppointmentHandler(stores *store.Manager, svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}
		apptID, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), stores.ForPatient(patientID), apptID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func toggleHandler(stores *store.Manager, toggle func(context.Context, *store.Store, uuid.UUID, bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}
		apptID, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := toggle(r.Context(), stores.ForPatient(patientID), apptID, req.Enabled); err != nil {
			handleBookingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reminderHandler(stores *store.Manager, svc *booking.Service) http.HandlerFunc {
	return toggleHandler(stores, svc.SetReminder)
}

func calendarSyncHandler(stores *store.Manager, svc *booking.Service) http.HandlerFunc {
	return toggleHandler(stores, svc.SetCalendarSync)
}

func suggestionsHandler(stores *store.Manager, svc *reschedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}
		apptID, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		sugg, err := svc.Suggestions(stores.ForPatient(patientID), apptID)
		if err != nil {
			handleRescheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: sugg})
	}
}

func rescheduleHandler(stores *store.Manager, svc *reschedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}
		apptID, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if _, err := time.Parse(appointment.DateLayout, req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
			return
		}
		if _, err := time.Parse(appointment.TimeLayout, req.Time); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be formatted HH:MM")
			return
		}

		appt, err := svc.Reschedule(r.Context(), stores.ForPatient(patientID), apptID,
			appointment.TimeSlot{Date: req.Date, Time: req.Time}, req.Reason)
		if err != nil {
			handleRescheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func resetHandler(stores *store.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := urlUUID(r, "patientID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		stores.ForPatient(patientID).Reset(r.Context())
		writeJSON(w, http.StatusOK, ResetResponse{PatientID: patientID, ResetAt: time.Now().UTC()})
	}
}

func searchDoctorsHandler(dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := directory.Filter{
			Specialty: q.Get("specialty"),
			City:      q.Get("city"),
			Insurance: q.Get("insurance"),
		}

		docs, err := dir.SearchDoctors(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func getDoctorHandler(dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doc, err := dir.GetDoctorByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, directory.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func doctorSlotsHandler(dir directory.Directory, sl *slots.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		if _, err := dir.GetDoctorByID(r.Context(), id); err != nil {
			if errors.Is(err, directory.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		// Without a date the endpoint lists the days that still have
		// open slots.
		date := r.URL.Query().Get("date")
		if date == "" {
			writeJSON(w, http.StatusOK, AvailableDatesResponse{
				DoctorID: id,
				Dates:    sl.GetAvailableDates(id),
			})
			return
		}
		if _, err := time.Parse(appointment.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be formatted YYYY-MM-DD")
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			DoctorID: id,
			Date:     date,
			Slots:    sl.AvailableSlotsForDate(id, date),
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleRescheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reschedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, reschedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
