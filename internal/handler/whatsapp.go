package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/middleware"
	"github.com/imobiai/leadqual-server-go/internal/service"
)

type WhatsAppHandler struct {
	pairingService    *service.PairingService
	connectionService *service.ConnectionService
}

func NewWhatsAppHandler(pairingService *service.PairingService, connectionService *service.ConnectionService) *WhatsAppHandler {
	return &WhatsAppHandler{
		pairingService:    pairingService,
		connectionService: connectionService,
	}
}

func (h *WhatsAppHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/session", h.CreateSession)
	r.Get("/session", h.ActiveSession)
	r.Get("/session/{id}", h.GetSession)
	r.Delete("/session/{id}", h.CancelSession)
	r.Post("/session/{id}/simulate-pair", h.SimulatePair)

	r.Get("/connections", h.ListConnections)
	r.Post("/connections", h.CreateConnection)
	r.Delete("/connections/{id}", h.DeleteConnection)

	return r
}

// POST /api/whatsapp/session
func (h *WhatsAppHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Label string `json:"label"`
	}
	// An empty body is fine, the label is optional.
	_ = decodeJSON(r, &req)

	session, err := h.pairingService.CreateSession(r.Context(), user.UserID, req.Label)
	if err != nil {
		log.Error().Err(err).Msg("failed to create pairing session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GET /api/whatsapp/session/{id}
func (h *WhatsAppHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, remaining, err := h.pairingService.GetSession(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to load pairing session")
		writeError(w, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":          session,
		"secondsRemaining": remaining,
	})
}

// GET /api/whatsapp/session
func (h *WhatsAppHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, remaining, err := h.pairingService.ActiveSession(r.Context(), user.UserID)
	if err != nil {
		log.Error().Err(err).Str("ownerUserId", user.UserID).Msg("failed to load active session")
		writeError(w, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":          session,
		"secondsRemaining": remaining,
	})
}

// DELETE /api/whatsapp/session/{id}
func (h *WhatsAppHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.pairingService.Cancel(r.Context(), id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to cancel pairing session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/whatsapp/session/{id}/simulate-pair
func (h *WhatsAppHandler) SimulatePair(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, _, err := h.pairingService.GetSession(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to load pairing session")
		writeError(w, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}

	if _, err := h.pairingService.MarkPaired(r.Context(), id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to pair session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/whatsapp/connections
func (h *WhatsAppHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	connections, err := h.connectionService.List(r.Context(), user.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list connections")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"connections": connections})
}

// POST /api/whatsapp/connections
func (h *WhatsAppHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Label       string `json:"label"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	conn, err := h.connectionService.Create(r.Context(), user.UserID, req.Label, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// DELETE /api/whatsapp/connections/{id}
func (h *WhatsAppHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.connectionService.Delete(r.Context(), user.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
