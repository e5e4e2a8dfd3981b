package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/middleware"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

// eventStream is the subscribe side of the broker.
type eventStream interface {
	Subscribe(ownerUserID string) *sse.Client
	Unsubscribe(client *sse.Client)
}

type EventsHandler struct {
	stream         eventStream
	heartbeatEvery time.Duration
}

func NewEventsHandler(broker *sse.Broker) *EventsHandler {
	return &EventsHandler{stream: broker, heartbeatEvery: sse.HeartbeatInterval}
}

// GET /api/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.stream.Subscribe(user.UserID)
	defer h.stream.Unsubscribe(client)

	log.Info().
		Str("ownerUserId", user.UserID).
		Msg("sse connection established")

	h.sendEvent(w, flusher, sse.Event{
		Type: "connected",
		Data: mustMarshal(map[string]string{"uid": user.UserID}),
	})

	ctx := r.Context()
	heartbeat := time.NewTicker(h.heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("ownerUserId", user.UserID).
				Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().
				Str("ownerUserId", user.UserID).
				Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("ownerUserId", user.UserID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
