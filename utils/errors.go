package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error categories for the knowledge core. Validation, auth, not-found,
// rate-limit and budget errors are terminal per request; provider errors
// abort ingestion; scoring errors are isolated per evaluation question.
const (
	ErrValidation     = "validation_error"
	ErrAuth           = "auth_error"
	ErrNotFound       = "not_found"
	ErrProvider       = "provider_error"
	ErrRateLimit      = "rate_limit_exceeded"
	ErrBudgetExceeded = "budget_exceeded"
	ErrScoring        = "scoring_error"
	ErrInternal       = "internal_error"
)

// KnowledgeError is the typed error carried through the core.
type KnowledgeError struct {
	Category string `json:"error_code"`
	Message  string `json:"message"`
	Cause    error  `json:"-"`
}

func (e *KnowledgeError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *KnowledgeError) Unwrap() error { return e.Cause }

// NewError creates a typed error with no underlying cause.
func NewError(category, message string) *KnowledgeError {
	return &KnowledgeError{Category: category, Message: message}
}

// WrapError attaches a cause to a typed error.
func WrapError(category, message string, cause error) *KnowledgeError {
	return &KnowledgeError{Category: category, Message: message, Cause: cause}
}

// Category extracts the category of err, defaulting to internal_error for
// untyped errors so raw provider exceptions never leak to clients.
func Category(err error) string {
	var ke *KnowledgeError
	if errors.As(err, &ke) {
		return ke.Category
	}
	return ErrInternal
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response.
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithKnowledgeError maps a typed core error to an HTTP status.
func RespondWithKnowledgeError(c *gin.Context, err error) {
	category := Category(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch category {
	case ErrValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case ErrAuth:
		status = http.StatusUnauthorized
		message = err.Error()
	case ErrNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case ErrRateLimit:
		status = http.StatusTooManyRequests
		message = err.Error()
	case ErrBudgetExceeded:
		status = http.StatusPaymentRequired
		message = err.Error()
	case ErrProvider:
		status = http.StatusBadGateway
		message = "upstream provider unavailable"
	}

	RespondWithError(c, status, category, message, nil)
}

// RespondWithBadRequest sends a 400 Bad Request error.
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, ErrValidation, message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error.
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, ErrAuth, message, nil)
}

// RespondWithNotFound sends a 404 Not Found error.
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error.
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, ErrInternal, message, details)
}
