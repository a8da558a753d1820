package http

import (
	"net/http"
	"strconv"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/service"
	"golang-stock-monitor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PositionHandler handles HTTP requests for monitored positions.
type PositionHandler struct {
	positionService service.PositionService
	logger          *logger.Logger
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positionService service.PositionService, logger *logger.Logger) *PositionHandler {
	return &PositionHandler{positionService: positionService, logger: logger}
}

// RegisterRoutes registers the position routes to the Echo group.
func (h *PositionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.AddPosition)
	g.POST("/batch", h.BatchUpsertPositions)
	g.GET("", h.ListPositions)
	g.PUT("/:id", h.UpdatePosition)
	g.PATCH("/:id/notification", h.SetNotification)
	g.DELETE("/:symbol", h.RemovePosition)
	g.DELETE("/:id/purge", h.PurgePosition)
}

// AddPosition godoc
// @Summary Add a position
// @Description Start monitoring a held position or an entry candidate
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   position  body    dto.AddPositionRequest   true    "Position to add"
// @Success 201 {object} dto.PositionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions [post]
func (h *PositionHandler) AddPosition(c echo.Context) error {
	var req dto.AddPositionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	position, err := h.positionService.Add(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, "Failed to add position", err)
	}
	return c.JSON(http.StatusCreated, dto.NewPositionResponse(position))
}

// BatchUpsertPositions godoc
// @Summary Add or update positions in bulk
// @Description Add symbols that are not monitored yet and update the holding positions of the rest
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   request  body    dto.BatchUpsertRequest   true    "Positions to add or update"
// @Success 200 {object} dto.BatchUpsertResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/batch [post]
func (h *PositionHandler) BatchUpsertPositions(c echo.Context) error {
	var req dto.BatchUpsertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if len(req.Positions) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "positions must not be empty"})
	}

	result, err := h.positionService.BatchUpsert(c.Request().Context(), req.Positions)
	if err != nil {
		return respondError(c, h.logger, "Failed to upsert positions", err)
	}
	return c.JSON(http.StatusOK, result)
}

// UpdatePosition godoc
// @Summary Update a position
// @Description Edit the entry, targets, buy date or delivery flags of a holding position
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   id  path    int true    "Position ID"
// @Param   position  body    dto.UpdatePositionRequest   true    "Fields to change"
// @Success 200 {object} dto.PositionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{id} [put]
func (h *PositionHandler) UpdatePosition(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid position ID"})
	}

	var req dto.UpdatePositionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	position, err := h.positionService.Update(c.Request().Context(), uint(id), req)
	if err != nil {
		return respondError(c, h.logger, "Failed to update position", err)
	}
	return c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// SetNotification godoc
// @Summary Switch alert delivery
// @Description Enable or disable alert delivery for a holding position
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   id  path    int true    "Position ID"
// @Param   request  body    dto.NotificationRequest   true    "Notification flag"
// @Success 200 {object} dto.PositionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{id}/notification [patch]
func (h *PositionHandler) SetNotification(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid position ID"})
	}

	var req dto.NotificationRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "enabled is required"})
	}

	position, err := h.positionService.SetNotification(c.Request().Context(), uint(id), *req.Enabled)
	if err != nil {
		return respondError(c, h.logger, "Failed to switch notification", err)
	}
	return c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// ListPositions godoc
// @Summary List positions
// @Description List holding positions, optionally including removed ones
// @Tags positions
// @Produce  json
// @Param   include_removed  query    bool false    "Include removed positions"
// @Success 200 {array} dto.PositionResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions [get]
func (h *PositionHandler) ListPositions(c echo.Context) error {
	includeRemoved, _ := strconv.ParseBool(c.QueryParam("include_removed"))

	positions, err := h.positionService.List(c.Request().Context(), includeRemoved)
	if err != nil {
		return respondError(c, h.logger, "Failed to list positions", err)
	}

	resp := make([]dto.PositionResponse, 0, len(positions))
	for i := range positions {
		resp = append(resp, dto.NewPositionResponse(&positions[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// RemovePosition godoc
// @Summary Remove a position
// @Description Stop monitoring the holding position of a symbol
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   symbol  path    string true    "Stock symbol"
// @Param   request  body    dto.RemovePositionRequest   false    "Removal reason"
// @Success 200 {object} dto.PositionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{symbol} [delete]
func (h *PositionHandler) RemovePosition(c echo.Context) error {
	var req dto.RemovePositionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
		}
	}
	if req.Reason == "" {
		req.Reason = c.QueryParam("reason")
	}

	position, err := h.positionService.Remove(c.Request().Context(), c.Param("symbol"), req.Reason)
	if err != nil {
		return respondError(c, h.logger, "Failed to remove position", err)
	}
	return c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// PurgePosition godoc
// @Summary Purge a position
// @Description Physically delete a position with its price history, alerts and decisions
// @Tags positions
// @Produce  json
// @Param   id  path    int true    "Position ID"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{id}/purge [delete]
func (h *PositionHandler) PurgePosition(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid position ID"})
	}

	if err := h.positionService.Purge(c.Request().Context(), uint(id)); err != nil {
		return respondError(c, h.logger, "Failed to purge position", err)
	}
	return c.NoContent(http.StatusNoContent)
}
