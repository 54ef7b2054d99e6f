// internal/handlers/events/events_handler.go
package events

import (
	"net/http"

	"shopfloor-service/internal/events"
	"shopfloor-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type EventsHandler struct {
	broadcaster *events.Broadcaster
	logger      *zap.Logger
}

func NewEventsHandler(broadcaster *events.Broadcaster, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, logger: logger}
}

// StreamSSE serves the dashboard change feed over Server-Sent Events.
// The connection stays open until the client goes away.
func (h *EventsHandler) StreamSSE(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	stream, err := events.NewSSEStream(c.Writer)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "streaming unsupported", err)
		return
	}

	h.broadcaster.Accept(stream)

	// Close the stream when the client disconnects; Accept's close watcher
	// handles deregistration.
	select {
	case <-c.Request.Context().Done():
		stream.Close()
	case <-stream.Done():
	}
}

// StreamWS serves the same feed over a websocket.
func (h *EventsHandler) StreamWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.broadcaster.Accept(events.NewWSStream(conn))
}
