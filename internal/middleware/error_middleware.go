package middleware

import (
	"errors"
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins
var errorMappings = []errorMapping{
	{apperrors.ErrPartialUpdate, http.StatusPartialContent, dto.ErrorCodePartialUpdate, "Partial update"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Unauthorized"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrMissingUserID, http.StatusBadRequest, dto.ErrorCodeMissingUserID, apperrors.MsgNoUserID},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Conflict"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token format"},
	{apperrors.ErrServiceUnavailable, http.StatusServiceUnavailable, dto.ErrorCodeExternalServiceError, "Service unavailable"},
}

// HandleAPIError handles common API errors and returns appropriate responses.
// The message of an apperrors.CustomError is passed to the client verbatim.
func HandleAPIError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status = m.status
			errorDetail = dto.NewErrorDetail(m.code, m.message)
			break
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error in request")
		c.JSON(status, dto.NewErrorResponse(errorDetail))
		return
	}

	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		if custom.Message != "" {
			errorDetail.Message = custom.Message
		}
		if field, ok := custom.Details["field"].(string); ok {
			errorDetail = errorDetail.WithField(field)
		} else if len(custom.Details) > 0 {
			errorDetail = errorDetail.WithDetails(custom.Details)
		}
	}

	c.JSON(status, dto.NewErrorResponse(errorDetail))
}
