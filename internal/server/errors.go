package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/authorization"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	responsedomain "github.com/quillform/quillform/internal/response/domain"
	"github.com/quillform/quillform/internal/translation"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError collapses internal causes into a small public taxonomy. Session
// failures in particular all surface as the same 401 so a caller cannot
// probe which stage rejected them.
func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, responsedomain.ErrFormClosed),
		errors.Is(err, responsedomain.ErrDeadlineReached),
		errors.Is(err, responsedomain.ErrSubmissionsLimit):
		return http.StatusBadRequest, errorPayload{
			Type:    "form_not_accepting",
			Message: err.Error(),
		}
	case errors.Is(err, authorization.ErrUnauthorized):
		message := "Not authorized."
		var authzErr *authorization.Error
		if errors.As(err, &authzErr) {
			message = authzErr.Error()
		}
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: message,
		}
	case errors.Is(err, authdomain.ErrNotAuthenticated),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "Could not validate credentials.",
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "Account already exists.",
		}
	case errors.Is(err, authdomain.ErrPasswordMismatch),
		errors.Is(err, formdomain.ErrInvalidFieldType),
		errors.Is(err, formdomain.ErrMissingChoices),
		errors.Is(err, responsedomain.ErrInvalidAnswer),
		errors.Is(err, responsedomain.ErrRequiredFieldMissing):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, translation.ErrUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "Could not get a response.",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, formdomain.ErrFormNotFound),
		errors.Is(err, formdomain.ErrFieldNotFound),
		errors.Is(err, responsedomain.ErrSessionNotFound),
		errors.Is(err, responsedomain.ErrAnswerNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
