package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

// respondServiceError maps service sentinel errors to HTTP responses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAlreadyTerminal), errors.Is(err, services.ErrStageUnassigned):
		response.BadRequest(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
