package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/restodash/backend/internal/interfaces/http/dto"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

// getRequestID extracts the request ID from the context, then the header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getRestaurantScope returns the restaurant of the request, if one was sent
func getRestaurantScope(c *gin.Context) *uuid.UUID {
	id, ok := middleware.GetRestaurantID(c)
	if !ok {
		return nil
	}
	return &id
}

// bindID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid cash register ID")
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithWarnings sends a success response carrying degradation warnings
func (h *BaseHandler) SuccessWithWarnings(c *gin.Context, status int, data any, warnings ...string) {
	c.JSON(status, dto.NewSuccessResponseWithWarnings(data, warnings...))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their message; anything else is logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		if statusCode >= http.StatusInternalServerError && h.logger != nil {
			h.logger.Error("Ledger request failed",
				zap.String("request_id", getRequestID(c)),
				zap.String("code", code),
				zap.Error(err),
			)
		}
		h.Error(c, statusCode, code, domainErr.Message)
		return
	}

	if h.logger != nil {
		h.logger.Error("Unexpected error", zap.String("request_id", getRequestID(c)), zap.Error(err))
	}
	h.InternalError(c, "An unexpected error occurred")
}
