package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/stream"
)

// StreamHandler serves the long-lived push connection for live
// dashboard clients. Authentication runs in middleware before the
// stream opens.
type StreamHandler struct {
	hub    *stream.Hub
	logger *logrus.Logger
}

func NewStreamHandler(hub *stream.Hub, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger}
}

// Stream subscribes the client to the hub and relays events as SSE
// frames until the client disconnects or a write fails. The deferred
// unsubscribe is the cancellation path: a dangling subscription would
// keep the write side alive forever.
func (h *StreamHandler) Stream(c *gin.Context) {
	conn := h.hub.Subscribe()
	defer h.hub.Unsubscribe(conn)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-conn.Events():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
				h.logger.WithError(err).Debug("Stream write failed, dropping connection")
				return
			}
			c.Writer.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
