package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// progressHandler streams import-progress events to the UI.
type progressHandler struct {
	progressService portssvc.ProgressSvcFacade
}

func newProgressHandler(ps portssvc.ProgressSvcFacade) *progressHandler {
	return &progressHandler{progressService: ps}
}

// registerProgressRoutes registers the sync progress stream.
func registerProgressRoutes(rg *gin.RouterGroup, progressService portssvc.ProgressSvcFacade) {
	h := newProgressHandler(progressService)

	syncLogs := rg.Group("/sync-logs")
	syncLogs.GET("/:syncLogID/progress", h.streamProgress)
}

// streamProgress godoc
// @Summary Stream sync progress
// @Description Server-sent event stream of progress for one sync. Ends when the sync completes or fails.
// @Tags sync-logs
// @Produce  text/event-stream
// @Param   syncLogID path string true "Sync log ID"
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /sync-logs/{syncLogID}/progress [get]
func (h *progressHandler) streamProgress(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	syncLogID := c.Param("syncLogID")

	events, cancel := h.progressService.Subscribe(syncLogID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				// Broker closed the feed: the sync reached a terminal state.
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal progress event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
		}
	}
}
