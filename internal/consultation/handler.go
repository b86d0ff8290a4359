package consultation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/identity"
	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Handler wires HTTP requests to the consultation service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a consultation handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CreateSession handles POST /consultations.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, err := h.service.CreateSession(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to create session")
		return
	}
	h.writeJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /consultations/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to get session")
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// StartSession handles POST /consultations/{sessionID}/start.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := h.service.StartConsultation(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to start session")
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// EndSession handles POST /consultations/{sessionID}/end.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var summary CloseSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&summary)

	session, err := h.service.EndConsultation(r.Context(), id, &summary)
	if err != nil {
		h.writeError(w, r, err, "failed to end session")
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// CancelSession handles POST /consultations/{sessionID}/cancel.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	session, err := h.service.CancelConsultation(r.Context(), id, body.Reason)
	if err != nil {
		h.writeError(w, r, err, "failed to cancel session")
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// StartRecording handles POST /consultations/{sessionID}/recordings/start.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var body struct {
		Type string `json:"type,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	rec, err := h.service.StartRecording(r.Context(), id, body.Type)
	if err != nil {
		h.writeError(w, r, err, "failed to start recording")
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// StopRecording handles POST /consultations/{sessionID}/recordings/stop.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var body struct {
		URL string `json:"url,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	rec, err := h.service.StopRecording(r.Context(), id, body.URL)
	if err != nil {
		h.writeError(w, r, err, "failed to stop recording")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// AddParticipant handles POST /consultations/{sessionID}/participants.
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.SessionID = id

	p, err := h.service.AddParticipant(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to add participant")
		return
	}
	// The token is returned exactly once, at issue time.
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"participant":      p,
		"invitation_token": p.InvitationToken,
	})
}

// Join handles POST /consultations/join.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		jsonError(w, "token required", http.StatusBadRequest)
		return
	}
	p, err := h.service.JoinWithToken(r.Context(), body.Token)
	if err != nil {
		h.writeError(w, r, err, "failed to join session")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// RemoveParticipant handles DELETE /consultations/{sessionID}/participants/{participantID}.
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	participantID, ok := h.pathUUID(w, r, "participantID")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p, err := h.service.RemoveParticipant(r.Context(), sessionID, participantID, body.Reason)
	if err != nil {
		h.writeError(w, r, err, "failed to remove participant")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// ListParticipants handles GET /consultations/{sessionID}/participants.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	participants, err := h.service.ListParticipants(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to list participants")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"participants": participants})
}

// AddNote handles POST /consultations/{sessionID}/notes.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.SessionID = id
	if actor, ok := identity.ActorFromContext(r.Context()); ok && req.AuthorID == uuid.Nil {
		if authorID, err := uuid.Parse(actor.UserID); err == nil {
			req.AuthorID = authorID
		}
	}

	note, err := h.service.AddNote(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to add note")
		return
	}
	h.writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /consultations/{sessionID}/notes/{noteID}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := h.pathUUID(w, r, "noteID")
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.NoteID = noteID
	req.AuthorID = h.callerID(r)

	note, err := h.service.UpdateNote(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "failed to update note")
		return
	}
	h.writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /consultations/{sessionID}/notes/{noteID}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := h.pathUUID(w, r, "noteID")
	if !ok {
		return
	}
	if err := h.service.DeleteNote(r.Context(), noteID, h.callerID(r)); err != nil {
		h.writeError(w, r, err, "failed to delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /consultations/{sessionID}/notes. Patients get the
// projection with private notes removed.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}

	var (
		notes []Note
		err   error
	)
	if actor, found := identity.ActorFromContext(r.Context()); found && actor.Role == identity.RolePatient {
		notes, err = h.service.ListPatientNotes(r.Context(), id)
	} else {
		notes, err = h.service.ListNotes(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, r, err, "failed to list notes")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// callerID resolves the authenticated user id, or Nil when absent.
func (h *Handler) callerID(r *http.Request) uuid.UUID {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		jsonError(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var (
		validation *schedule.ValidationError
		transition *TransitionError
	)
	switch {
	case errors.As(err, &validation):
		jsonError(w, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &transition):
		jsonError(w, transition.Error(), http.StatusConflict)
	case errors.Is(err, ErrRecordingActive):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenConsumed):
		jsonError(w, err.Error(), http.StatusGone)
	case errors.Is(err, ErrParticipantRemoved), errors.Is(err, ErrNotAuthor):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrRecordingNotFound),
		errors.Is(err, ErrNoteNotFound):
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
