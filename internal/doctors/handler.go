package doctors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Handler exposes doctor working hours over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a working-hours handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetHours handles GET /doctors/{doctorID}/hours.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	if doctorID == "" {
		h.jsonError(w, "doctorID required", http.StatusBadRequest)
		return
	}
	hours, err := h.store.Get(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("failed to get working hours", "error", err, "doctor_id", doctorID)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, hours)
}

// SetHours handles PUT /doctors/{doctorID}/hours.
func (h *Handler) SetHours(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	if doctorID == "" {
		h.jsonError(w, "doctorID required", http.StatusBadRequest)
		return
	}
	var hours WeeklyHours
	if err := json.NewDecoder(r.Body).Decode(&hours); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	hours.DoctorID = doctorID

	// Reject schedules the planner cannot turn into windows.
	for _, day := range []*DayHours{
		hours.Monday, hours.Tuesday, hours.Wednesday, hours.Thursday,
		hours.Friday, hours.Saturday, hours.Sunday,
	} {
		if day == nil {
			continue
		}
		if _, err := day.Window(); err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.store.Set(r.Context(), &hours); err != nil {
		h.logger.Error("failed to save working hours", "error", err, "doctor_id", doctorID)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, hours)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
