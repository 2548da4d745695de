package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"petii/config"
	"petii/services"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps service errors onto 400/401/404/500 with a {"error": string} body.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationErrors(verrs)})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrFileTooLarge.Error()})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")})
	case errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrMissingMedia),
		errors.Is(err, services.ErrUnsupportedMedia),
		errors.Is(err, services.ErrFileTooLarge),
		errors.Is(err, services.ErrTooManyFiles):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrInvalidCredentials.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg := "internal server error"
		if !config.AppConfig.IsProduction() {
			msg = err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// respondBindError handles failures of ShouldBind*: validator errors keep their
// field messages, anything else (bad JSON, broken multipart) is a generic 400.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	if errors.As(err, &verrs) || errors.As(err, &tooLarge) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		return services.ErrPostNotFound.Error()
	case errors.Is(err, services.ErrUserNotFound):
		return services.ErrUserNotFound.Error()
	default:
		return services.ErrNotFound.Error()
	}
}
