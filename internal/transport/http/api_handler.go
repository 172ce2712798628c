package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// APIHandler serves the small HTTP boundary the host and participant UIs
// call before switching to the live transport.
type APIHandler struct {
	service *app.LiveService
}

func NewAPIHandler(service *app.LiveService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the session endpoints on a mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/quiz/host/create-session", h.CreateSession)
	mux.HandleFunc("/api/v1/quiz/host/join", h.JoinSession)
	mux.HandleFunc("/api/v1/quiz/host/sessions", h.ListSessions)
	mux.HandleFunc("/api/v1/quiz/session/", h.GetSession)
}

type createSessionRequest struct {
	HostUserID      string   `json:"hostUserId"`
	SessionName     string   `json:"sessionName"`
	MaxParticipants int      `json:"maxParticipants"`
	Questions       []string `json:"questions"`
}

type createSessionResponse struct {
	ID              string `json:"id"`
	SessionName     string `json:"sessionName"`
	SessionCode     string `json:"sessionCode"`
	MaxParticipants int    `json:"maxParticipants"`
}

func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionName == "" {
		writeError(w, http.StatusBadRequest, "session name is required")
		return
	}

	session, err := h.service.CreateSession(r.Context(), req.HostUserID, req.SessionName, req.MaxParticipants, req.Questions)
	if errors.Is(err, domain.ErrCodeExhausted) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		ID:              session.ID,
		SessionName:     session.Name,
		SessionCode:     session.Code,
		MaxParticipants: session.MaxParticipants,
	})
}

type joinRequest struct {
	SessionCode     string `json:"sessionCode"`
	ParticipantName string `json:"participantName"`
	UserID          string `json:"userId"`
}

type joinResponse struct {
	ParticipantID string `json:"participantId"`
	SessionName   string `json:"sessionName"`
	CurrentScore  int    `json:"currentScore"`
	Rejoined      bool   `json:"rejoined"`
}

func (h *APIHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionCode == "" || req.ParticipantName == "" {
		writeError(w, http.StatusBadRequest, "session code and participant name are required")
		return
	}

	result, err := h.service.JoinByCode(r.Context(), req.SessionCode, req.ParticipantName, req.UserID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "invalid session code or session has ended")
		return
	case errors.Is(err, domain.ErrSessionFull):
		writeError(w, http.StatusBadRequest, "session is full")
		return
	case errors.Is(err, domain.ErrLateJoinClosed):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to join session")
		return
	}

	status := http.StatusCreated
	if result.Rejoined {
		status = http.StatusOK
	}
	writeJSON(w, status, joinResponse{
		ParticipantID: result.Participant.ID,
		SessionName:   result.SessionName,
		CurrentScore:  result.Participant.Score,
		Rejoined:      result.Rejoined,
	})
}

func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	code := strings.TrimPrefix(r.URL.Path, "/api/v1/quiz/session/")
	if code == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusBadRequest, "session code is required")
		return
	}

	session, err := h.service.SessionByCode(r.Context(), code)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found or inactive")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *APIHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ownerID := r.URL.Query().Get("hostUserId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "hostUserId is required")
		return
	}

	sessions, err := h.service.ActiveSessions(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.HostedSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
