package http

import (
	"net/http"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// respondError maps the error taxonomy to HTTP status codes.
func respondError(c echo.Context, log *logger.Logger, msg string, err error) error {
	switch {
	case common.IsValidation(err):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case common.IsNotFound(err):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case common.IsDuplicate(err), common.IsConflict(err):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	log.Error(msg, logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
}
