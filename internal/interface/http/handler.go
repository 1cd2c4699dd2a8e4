package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

const (
	streamBuffer      = 16
	heartbeatInterval = 25 * time.Second
)

// DashboardHandler wires the HTTP transport to the dashboard service.
type DashboardHandler struct {
	svc    dashboard.Service
	logger *slog.Logger
}

// NewDashboardHandler constructs the dashboard HTTP handler.
func NewDashboardHandler(svc dashboard.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:    svc,
		logger: logger.With("component", "http.dashboard"),
	}
}

// Get returns the dashboard view, refreshing it when the cached copy is stale.
// ?cached=true skips the refresh entirely.
func (h *DashboardHandler) Get(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	var (
		view dashboard.View
		err  error
	)
	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		view, err = h.svc.Current(creds)
	} else {
		view, err = h.svc.Refresh(c.Request.Context(), creds, false)
	}
	if err != nil {
		abortWithError(c, fromDomainError(err, "dashboard_failed"))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Refresh forces a coordinated refetch of every panel.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	view, err := h.svc.Refresh(c.Request.Context(), creds, true)
	if err != nil {
		abortWithError(c, fromDomainError(err, "refresh_failed"))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Visibility records a focus or visibility change of the dashboard tab.
func (h *DashboardHandler) Visibility(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	if err := h.svc.NotifyVisible(creds); err != nil {
		abortWithError(c, fromDomainError(err, "visibility_failed"))
		return
	}
	c.Status(http.StatusAccepted)
}

// ClearCache resets the caller's cache, e.g. on logout.
func (h *DashboardHandler) ClearCache(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	if err := h.svc.ClearCache(c.Request.Context(), creds); err != nil {
		abortWithError(c, fromDomainError(err, "clear_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// Redeem proxies a reward redemption and returns the refreshed dashboard.
func (h *DashboardHandler) Redeem(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	rewardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "reward id must be an integer", err))
		return
	}
	result, err := h.svc.Redeem(c.Request.Context(), creds, rewardID)
	if err != nil {
		abortWithError(c, fromDomainError(err, "redeem_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream pushes one Server-Sent Event per cache mutation until the client leaves.
func (h *DashboardHandler) Stream(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}

	updates := make(chan dashboard.View, streamBuffer)
	unsubscribe, err := h.svc.Subscribe(creds, func(view dashboard.View) {
		select {
		case updates <- view:
		default:
			h.logger.Warn("stream subscriber lagging, update dropped", "version", view.Version)
		}
	})
	if err != nil {
		abortWithError(c, fromDomainError(err, "stream_failed"))
		return
	}
	defer unsubscribe()

	initial, err := h.svc.Current(creds)
	if err != nil {
		abortWithError(c, fromDomainError(err, "stream_failed"))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	h.writeFrame(c, initial)
	flusher.Flush()

	// mounting a stream is a refresh trigger; its loading and ready
	// transitions arrive as frames through the subscription
	go func(ctx context.Context) {
		if _, err := h.svc.Refresh(ctx, creds, false); err != nil {
			h.logger.Warn("stream mount refresh failed", "error", err)
		}
	}(context.WithoutCancel(c.Request.Context()))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-updates:
			h.writeFrame(c, view)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = c.Writer.Write([]byte(": ping\n\n"))
			flusher.Flush()
		}
	}
}

func (h *DashboardHandler) writeFrame(c *gin.Context, view dashboard.View) {
	payload, err := json.Marshal(view)
	if err != nil {
		h.logger.Error("marshal dashboard frame failed", "error", err)
		return
	}
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(payload)
	_, _ = c.Writer.Write([]byte("\n\n"))
}

func (h *DashboardHandler) credentials(c *gin.Context) (dashboard.Credentials, bool) {
	creds, ok := getCredentials(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
	}
	return creds, ok
}
