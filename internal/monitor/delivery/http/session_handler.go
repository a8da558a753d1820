package http

import (
	"net/http"
	"time"

	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SessionHandler reports the current trading session.
type SessionHandler struct {
	schedule market.Schedule
	clock    utils.Clock
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(schedule market.Schedule, clock utils.Clock) *SessionHandler {
	return &SessionHandler{schedule: schedule, clock: clock}
}

// RegisterRoutes registers the session routes to the Echo group.
func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSession)
}

// GetSession godoc
// @Summary Current trading session
// @Description Classify now, or the RFC3339 time in "at", into a trading session
// @Tags session
// @Produce  json
// @Param   at  query    string false    "RFC3339 timestamp"
// @Success 200 {object} market.SessionInfo
// @Failure 400 {object} dto.ErrorResponse
// @Router /session [get]
func (h *SessionHandler) GetSession(c echo.Context) error {
	at := h.clock.Now()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid time, expected RFC3339"})
		}
		at = parsed
	}
	return c.JSON(http.StatusOK, h.schedule.Classify(at))
}
