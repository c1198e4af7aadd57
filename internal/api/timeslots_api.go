package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotdesk/internal/export"
	"slotdesk/internal/metrics"
	"slotdesk/internal/models"
)

// GenerateTimeslotsRequest is the body for POST /generate-timeslots.
// Hour and duration overrides are optional; the configured working day
// applies when they are omitted.
type GenerateTimeslotsRequest struct {
	Date         string `json:"date"` // Format: YYYY-MM-DD
	StartHour    *int   `json:"start_hour,omitempty"`
	EndHour      *int   `json:"end_hour,omitempty"`
	SlotDuration *int   `json:"slot_duration,omitempty"` // minutes
}

// BookAppointmentRequest is the body for POST /book-appointment.
type BookAppointmentRequest struct {
	SlotID        int64  `json:"slot_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// CancelAppointmentRequest is the body for POST /cancel-appointment.
type CancelAppointmentRequest struct {
	SlotID int64 `json:"slot_id"`
}

// handleGenerateTimeslots creates the slot grid for a date.
// POST /generate-timeslots
func (s *HTTPServer) handleGenerateTimeslots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("generate_timeslots")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req GenerateTimeslotsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	params := s.svc.DefaultParams()
	if req.StartHour != nil {
		params.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		params.EndHour = *req.EndHour
	}
	if req.SlotDuration != nil {
		params.DurationMinutes = *req.SlotDuration
	}

	created, err := s.svc.GenerateSlots(r.Context(), req.Date, params)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "timeslots generated successfully",
		"created": created,
	})
}

// handleAvailableTimeslots lists free slots for a date.
// GET /available-timeslots?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailableTimeslots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("available_timeslots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	available, err := s.svc.AvailableSlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, slotList(available))
}

// handleBookAppointment books a free slot with customer details.
// POST /book-appointment
func (s *HTTPServer) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book_appointment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookAppointmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	customer := models.Customer{
		Name:  strings.TrimSpace(req.CustomerName),
		Email: strings.TrimSpace(req.CustomerEmail),
		Phone: strings.TrimSpace(req.CustomerPhone),
	}

	slot, err := s.svc.Book(r.Context(), req.SlotID, customer)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "appointment booked successfully",
		"slot":    slot,
	})
}

// handleCancelAppointment frees a booked slot.
// POST /cancel-appointment
func (s *HTTPServer) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_appointment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CancelAppointmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	slot, err := s.svc.Cancel(r.Context(), req.SlotID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "appointment cancelled successfully",
		"slot":    slot,
	})
}

// handleBookedAppointments lists booked slots, optionally for one date.
// GET /booked-appointments?date=YYYY-MM-DD
func (s *HTTPServer) handleBookedAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booked_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	booked, err := s.svc.BookedAppointments(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, slotList(booked))
}

// handleExportAppointments streams booked appointments as an xlsx file.
// GET /export-appointments?date=YYYY-MM-DD
func (s *HTTPServer) handleExportAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	booked, err := s.svc.BookedAppointments(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	workbook, err := export.Appointments(booked)
	if err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("appointments_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Save(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

// slotList keeps empty results as [] instead of null on the wire.
func slotList(slots []models.TimeSlot) []models.TimeSlot {
	if slots == nil {
		return []models.TimeSlot{}
	}
	return slots
}
