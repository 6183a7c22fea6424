package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/application/issuance"
	"github.com/nucleon/receipts/internal/domain/shared"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
	"github.com/nucleon/receipts/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// issueErrorCodes maps pipeline stages to API error codes
var issueErrorCodes = map[issuance.Stage]string{
	issuance.StageValidation: dto.ErrCodeValidation,
	issuance.StageRender:     dto.ErrCodeRender,
	issuance.StageLedger:     dto.ErrCodeLedger,
	issuance.StageStorage:    dto.ErrCodeStorage,
}

// HandleError converts issuance and domain errors to HTTP responses. The
// error is attached to the gin context so the request logger records it.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var issueErr *issuance.IssueError
	if errors.As(err, &issueErr) {
		code, ok := issueErrorCodes[issueErr.Stage]
		if !ok {
			code = dto.ErrCodeInternal
		}
		h.ErrorWithCode(c, code, issueErr.Message)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
