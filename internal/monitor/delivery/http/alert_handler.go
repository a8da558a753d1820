package http

import (
	"net/http"
	"strconv"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/service"
	"golang-stock-monitor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AlertHandler handles HTTP requests for alerts.
type AlertHandler struct {
	alertService service.AlertService
	logger       *logger.Logger
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService service.AlertService, logger *logger.Logger) *AlertHandler {
	return &AlertHandler{alertService: alertService, logger: logger}
}

// RegisterRoutes registers the alert routes to the Echo group.
func (h *AlertHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pending", h.GetPending)
	g.GET("/history", h.GetHistory)
	g.POST("/:id/sent", h.MarkSent)
	g.POST("/:id/confirm-exit", h.ConfirmExit)
	g.DELETE("", h.Purge)
}

// GetPending godoc
// @Summary List pending alerts
// @Description List alerts that have not been delivered yet
// @Tags alerts
// @Produce  json
// @Success 200 {array} dto.AlertResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alerts/pending [get]
func (h *AlertHandler) GetPending(c echo.Context) error {
	alerts, err := h.alertService.Pending(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "Failed to get pending alerts", err)
	}
	return c.JSON(http.StatusOK, toAlertResponses(alerts))
}

// GetHistory godoc
// @Summary Alert history
// @Description List the most recent alerts, newest first
// @Tags alerts
// @Produce  json
// @Param   limit  query    int false    "Maximum number of alerts"
// @Success 200 {array} dto.AlertResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alerts/history [get]
func (h *AlertHandler) GetHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = parsed
	}

	alerts, err := h.alertService.History(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, h.logger, "Failed to get alert history", err)
	}
	return c.JSON(http.StatusOK, toAlertResponses(alerts))
}

// MarkSent godoc
// @Summary Mark an alert as sent
// @Description Acknowledge an alert so it is no longer pending
// @Tags alerts
// @Produce  json
// @Param   id  path    int true    "Alert ID"
// @Success 200 {object} dto.AlertResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alerts/{id}/sent [post]
func (h *AlertHandler) MarkSent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid alert ID"})
	}

	alert, err := h.alertService.MarkSent(c.Request().Context(), uint(id))
	if err != nil {
		return respondError(c, h.logger, "Failed to mark alert sent", err)
	}
	return c.JSON(http.StatusOK, dto.NewAlertResponse(alert))
}

// ConfirmExit godoc
// @Summary Confirm an exit alert
// @Description Mark an exit alert as sent and remove its position
// @Tags alerts
// @Accept  json
// @Produce  json
// @Param   id  path    int true    "Alert ID"
// @Param   request  body    dto.ConfirmExitRequest   false    "Exit reason"
// @Success 200 {object} dto.AlertResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alerts/{id}/confirm-exit [post]
func (h *AlertHandler) ConfirmExit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid alert ID"})
	}

	var req dto.ConfirmExitRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
		}
	}

	alert, err := h.alertService.ConfirmExit(c.Request().Context(), uint(id), req.Reason)
	if err != nil {
		return respondError(c, h.logger, "Failed to confirm exit", err)
	}
	return c.JSON(http.StatusOK, dto.NewAlertResponse(alert))
}

// Purge godoc
// @Summary Purge sent alerts
// @Description Delete sent alerts older than the given number of days
// @Tags alerts
// @Produce  json
// @Param   days  query    int true    "Retention in days"
// @Success 200 {object} dto.PurgeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alerts [delete]
func (h *AlertHandler) Purge(c echo.Context) error {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid days"})
	}

	deleted, err := h.alertService.Purge(c.Request().Context(), days)
	if err != nil {
		return respondError(c, h.logger, "Failed to purge alerts", err)
	}
	return c.JSON(http.StatusOK, dto.PurgeResponse{Deleted: deleted})
}

func toAlertResponses(alerts []entity.Alert) []dto.AlertResponse {
	resp := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		resp = append(resp, dto.NewAlertResponse(&alerts[i]))
	}
	return resp
}
