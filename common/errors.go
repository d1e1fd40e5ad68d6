package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateName      = errors.New("name already exists")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateSlug      = errors.New("slug already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("token is not valid")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not authorized")
	ErrHasDependents      = errors.New("resource is still referenced")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrUploadRejected     = errors.New("upload rejected")
)

// StatusFor maps a domain error onto its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicateSlug),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrHasDependents),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrUploadRejected):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes {"message": ...}. Internal errors are logged and
// replaced by a generic message so driver details never reach the client.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"message": "Server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}

// RespondBindError reports a request body that failed gin binding.
func RespondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": ErrValidation.Error(),
		"errors":  ValidationMessages(err),
	})
}
