package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Handler wires HTTP requests to the booking service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CreateAppointment handles POST /appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode create appointment request", "error", err)
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.CreateAppointment(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to create appointment")
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

// GetAppointment handles GET /appointments/{appointmentID}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	appt, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to get appointment")
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// UpdateAppointment handles PATCH /appointments/{appointmentID}.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode update appointment request", "error", err)
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ID = id

	appt, err := h.service.UpdateAppointment(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to update appointment")
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

type statusChangeRequest struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

func decodeOptional[T any](r *http.Request, dst *T) {
	if r.Body == nil {
		return
	}
	// Absent or malformed bodies leave the zero value; these endpoints only
	// carry optional annotations.
	_ = json.NewDecoder(r.Body).Decode(dst)
}

// ConfirmAppointment handles POST /appointments/{appointmentID}/confirm.
func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) (*schedule.Appointment, error) {
		return h.service.ConfirmAppointment(r.Context(), id)
	})
}

// StartAppointment handles POST /appointments/{appointmentID}/start.
func (h *Handler) StartAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) (*schedule.Appointment, error) {
		return h.service.StartAppointment(r.Context(), id)
	})
}

// CancelAppointment handles POST /appointments/{appointmentID}/cancel.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	var body statusChangeRequest
	decodeOptional(r, &body)
	h.transition(w, r, func(id uuid.UUID) (*schedule.Appointment, error) {
		return h.service.CancelAppointment(r.Context(), id, body.Reason)
	})
}

// CompleteAppointment handles POST /appointments/{appointmentID}/complete.
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	var body statusChangeRequest
	decodeOptional(r, &body)
	h.transition(w, r, func(id uuid.UUID) (*schedule.Appointment, error) {
		return h.service.CompleteAppointment(r.Context(), id, body.Notes)
	})
}

// MarkNoShow handles POST /appointments/{appointmentID}/no-show.
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) (*schedule.Appointment, error) {
		return h.service.MarkNoShow(r.Context(), id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID) (*schedule.Appointment, error)) {
	id, ok := h.pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	appt, err := fn(id)
	if err != nil {
		h.writeError(w, r, err, "failed to change appointment status")
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

// RescheduleAppointment handles POST /appointments/{appointmentID}/reschedule.
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var body rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.service.RescheduleAppointment(r.Context(), id, body.StartsAt, body.DurationMinutes)
	if err != nil {
		h.writeError(w, r, err, "failed to reschedule appointment")
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

// ListDoctorAppointments handles GET /doctors/{doctorID}/appointments?from=&to=.
func (h *Handler) ListDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	from, to, err := parseRange(r, 7*24*time.Hour)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	appts, err := h.service.ListDoctorAppointments(r.Context(), doctorID, from, to)
	if err != nil {
		h.writeError(w, r, err, "failed to list appointments")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// GetAvailableSlots handles GET /doctors/{doctorID}/slots?date=2025-06-02.
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	slots, err := h.service.GetAvailableTimeSlots(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, r, err, "failed to compute slots")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

// GetDoctorAvailability handles GET /doctors/{doctorID}/availability?from=&to=.
func (h *Handler) GetDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	from, to, err := parseRange(r, 7*24*time.Hour)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, err := h.service.GetDoctorAvailability(r.Context(), doctorID, from, to)
	if err != nil {
		h.writeError(w, r, err, "failed to compute availability")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// CheckConflict handles GET /doctors/{doctorID}/conflicts?date=&start=&end=.
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	conflict, err := h.service.HasConflict(r.Context(), doctorID, date, q.Get("start"), q.Get("end"), schedule.CheckOptions{})
	if err != nil {
		h.writeError(w, r, err, "failed to check conflict")
		return
	}
	resp := map[string]any{"has_conflict": conflict != nil}
	if conflict != nil {
		resp["conflict"] = conflict
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateTimeBlock handles POST /doctors/{doctorID}/time-blocks.
func (h *Handler) CreateTimeBlock(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	var req CreateTimeBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.DoctorID = doctorID

	block, err := h.service.CreateTimeBlock(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to create time block")
		return
	}
	h.writeJSON(w, http.StatusCreated, block)
}

// UpdateTimeBlock handles PATCH /time-blocks/{blockID}.
func (h *Handler) UpdateTimeBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "blockID")
	if !ok {
		return
	}
	var req UpdateTimeBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ID = id

	block, err := h.service.UpdateTimeBlock(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to update time block")
		return
	}
	h.writeJSON(w, http.StatusOK, block)
}

// DeleteTimeBlock handles DELETE /time-blocks/{blockID}.
func (h *Handler) DeleteTimeBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "blockID")
	if !ok {
		return
	}
	if err := h.service.DeleteTimeBlock(r.Context(), id); err != nil {
		h.writeError(w, r, err, "failed to delete time block")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTimeBlocks handles GET /doctors/{doctorID}/time-blocks.
func (h *Handler) ListTimeBlocks(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	blocks, err := h.service.ListTimeBlocks(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err, "failed to list time blocks")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"time_blocks": blocks})
}

// CreateIntakeRequest handles POST /appointment-requests.
func (h *Handler) CreateIntakeRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ar, err := h.service.CreateIntakeRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to create intake request")
		return
	}
	h.writeJSON(w, http.StatusCreated, ar)
}

// GetIntakeRequest handles GET /appointment-requests/{requestID}.
func (h *Handler) GetIntakeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	ar, err := h.service.GetIntakeRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to get intake request")
		return
	}
	h.writeJSON(w, http.StatusOK, ar)
}

// ReviewIntakeRequest handles POST /appointment-requests/{requestID}/review.
func (h *Handler) ReviewIntakeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	ar, err := h.service.ReviewIntakeRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to review intake request")
		return
	}
	h.writeJSON(w, http.StatusOK, ar)
}

type approveRequest struct {
	ReviewerID uuid.UUID  `json:"reviewer_id"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
}

// ApproveIntakeRequest handles POST /appointment-requests/{requestID}/approve.
func (h *Handler) ApproveIntakeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	var body approveRequest
	decodeOptional(r, &body)
	var startsAt time.Time
	if body.StartsAt != nil {
		startsAt = *body.StartsAt
	}
	appt, err := h.service.ApproveIntakeRequest(r.Context(), id, body.ReviewerID, startsAt)
	if err != nil {
		h.writeError(w, r, err, "failed to approve intake request")
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

type rejectRequest struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Reason     string    `json:"reason,omitempty"`
}

// RejectIntakeRequest handles POST /appointment-requests/{requestID}/reject.
func (h *Handler) RejectIntakeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	var body rejectRequest
	decodeOptional(r, &body)
	ar, err := h.service.RejectIntakeRequest(r.Context(), id, body.ReviewerID, body.Reason)
	if err != nil {
		h.writeError(w, r, err, "failed to reject intake request")
		return
	}
	h.writeJSON(w, http.StatusOK, ar)
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		jsonError(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseRange reads from/to query params as RFC 3339 or YYYY-MM-DD. An absent
// range defaults to [today, today+fallback).
func parseRange(r *http.Request, fallback time.Duration) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be RFC 3339 or YYYY-MM-DD")
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be RFC 3339 or YYYY-MM-DD")
	}
	if from.IsZero() {
		from = schedule.NormalizeDate(time.Now().UTC())
	}
	if to.IsZero() {
		to = from.Add(fallback)
	}
	return from, to, nil
}

func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var (
		validation *schedule.ValidationError
		conflict   *schedule.ConflictError
		transition *TransitionError
	)
	switch {
	case errors.As(err, &validation):
		jsonError(w, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &conflict):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "scheduling conflict",
			"conflict": conflict,
		})
	case errors.As(err, &transition):
		jsonError(w, transition.Error(), http.StatusConflict)
	case errors.Is(err, ErrRequestClosed):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrTimeBlockNotFound),
		errors.Is(err, ErrRequestNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(msg, "error", err, "path", r.URL.Path)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
