package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/events"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// EventHandler streams live notification and unread-count events to the SPA.
type EventHandler struct {
	hub events.Hub
}

// NewEventHandler creates an event handler
func NewEventHandler(hub events.Hub) *EventHandler {
	return &EventHandler{
		hub: hub,
	}
}

// Stream is the SSE endpoint the SPA subscribes to. One event per queue
// message: the SSE event name is the topic, the data is the payload JSON.
// The connection lives until the client disconnects.
func (h *EventHandler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	// subscribe before the headers go out so no event published after the
	// client sees the stream open can be missed
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event := <-ch:
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Topic, event.Payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
