package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"aireporter/internal/events"
)

const eventWriteTimeout = 10 * time.Second

// EventsHandler streams lifecycle events to websocket clients
type EventsHandler struct {
	hub            *events.Hub
	originPatterns []string
	logger         *slog.Logger
}

// NewEventsHandler creates a new events handler. originPatterns are the
// host patterns allowed to open a cross-origin socket.
func NewEventsHandler(hub *events.Hub, originPatterns []string, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub:            hub,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Stream upgrades to a websocket and forwards every hub event as JSON text
// frames until either side closes. Client messages are ignored.
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("ws accept error", "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)
	h.logger.Debug("event subscriber connected", "subscribers", h.hub.Count())

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("event subscriber disconnected", "dropped", sub.Dropped())
			return
		case ev, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				h.logger.Debug("ws write error", "error", err)
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
