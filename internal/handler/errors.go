package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/playback"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/internal/session"
	"github.com/tutorcast/api/pkg/response"
)

// formatValidationErrors maps each failing field to its tag. Fields are keyed
// by their path below the request, e.g. "Steps[1].Selector".
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	out := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		key := e.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		out[key] = e.Tag()
	}
	return out
}

// serviceError maps domain errors onto the error envelope
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, compiler.ErrUnknownStep):
		return response.TraceIntegrity(c, err.Error())
	case errors.Is(err, playback.ErrProjectMalformed):
		return response.ProjectMalformed(c, err.Error())
	case errors.Is(err, service.ErrProjectNotFound):
		return response.ProjectNotFound(c, "Project not found")
	case errors.Is(err, session.ErrNotFound):
		return response.SessionNotFound(c, "Session not found or expired")
	case errors.Is(err, session.ErrInvalidToken):
		return response.Unauthorized(c, "Invalid session token")
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrJobNotCompleted):
		return response.ValidationError(c, "Job not completed yet", nil)
	case errors.Is(err, service.ErrJobFinished):
		return response.ValidationError(c, "Job already completed", nil)
	case errors.Is(err, service.ErrNarration):
		return response.UpstreamError(c, err.Error())
	case errors.Is(err, service.ErrQueueUnavailable):
		return response.ServiceUnavailable(c, "Background compilation is not available")
	case errors.Is(err, playback.ErrUnknownQuestion),
		errors.Is(err, playback.ErrInvalidOption),
		errors.Is(err, playback.ErrInvalidViewport),
		errors.Is(err, playback.ErrInvalidMode):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, playback.ErrNoSession), errors.Is(err, playback.ErrNotLoaded):
		return response.InvalidAction(c, err.Error())
	}
	return response.ServiceError(c, err.Error())
}
