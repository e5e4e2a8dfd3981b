package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/service"
)

type InboxHandler struct {
	conversationService *service.ConversationService
	responderService    *service.ResponderService
}

func NewInboxHandler(conversationService *service.ConversationService, responderService *service.ResponderService) *InboxHandler {
	return &InboxHandler{
		conversationService: conversationService,
		responderService:    responderService,
	}
}

func (h *InboxHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/simulate", h.SimulateLead)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/messages", h.ListMessages)
	r.Post("/{id}/messages", h.SendMessage)
	r.Get("/{id}/profile", h.GetProfile)
	r.Post("/{id}/read", h.MarkRead)
	r.Put("/{id}/lead-status", h.UpdateLeadStatus)
	r.Post("/{id}/ai-response", h.TriggerAIResponse)

	return r
}

// GET /api/conversations
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.conversationService.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list conversations")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// POST /api/conversations/simulate
func (h *InboxHandler) SimulateLead(w http.ResponseWriter, r *http.Request) {
	detail, err := h.conversationService.SimulateLead(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to simulate lead")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// GET /api/conversations/{id}
func (h *InboxHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.conversationService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GET /api/conversations/{id}/messages
func (h *InboxHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	detail, err := h.conversationService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": detail.Messages})
}

// POST /api/conversations/{id}/messages
func (h *InboxHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Text   string `json:"text"`
		Sender string `json:"sender"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Sender == "" {
		req.Sender = string(model.SenderAgent)
	}

	msg, err := h.conversationService.SendMessage(r.Context(), id, req.Text, model.MessageSender(req.Sender))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// GET /api/conversations/{id}/profile
func (h *InboxHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.conversationService.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// POST /api/conversations/{id}/read
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationService.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PUT /api/conversations/{id}/lead-status
func (h *InboxHandler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		LeadStatus string `json:"leadStatus"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if err := h.conversationService.UpdateLeadStatus(r.Context(), id, model.LeadStatus(req.LeadStatus)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/conversations/{id}/ai-response
func (h *InboxHandler) TriggerAIResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Verify the conversation exists before queueing work.
	if _, err := h.conversationService.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.responderService.Trigger(id)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}
