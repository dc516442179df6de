package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/pkg/response"
)

type SessionHandler struct {
	service   *service.PlaybackService
	validator *validator.Validate
}

func NewSessionHandler(svc *service.PlaybackService, v *validator.Validate) *SessionHandler {
	return &SessionHandler{
		service:   svc,
		validator: v,
	}
}

// bind parses and validates a JSON body. It reports false after writing the
// error response.
func (h *SessionHandler) bind(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return false, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return true, nil
}

// Start handles POST /api/sessions
// @Summary      Start playback session
// @Description  Load a compiled project in a learning mode and issue a viewer token
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request body model.SessionStartRequest true "Session start request"
// @Success      201 {object} model.SessionStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /api/sessions [post]
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req model.SessionStartRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.service.StartSession(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, result)
}

// Get handles GET /api/sessions/:sessionId
// @Summary      Get session state
// @Tags         Sessions
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Success      200 {object} model.SessionResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     SessionToken
// @Router       /api/sessions/{sessionId} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	result, err := h.service.GetSession(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Pointer handles POST /api/sessions/:sessionId/pointer
// @Summary      Submit pointer event
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Param        request body model.PointerRequest true "Pointer position in percent"
// @Success      200 {object} model.Feedback
// @Security     SessionToken
// @Router       /api/sessions/{sessionId}/pointer [post]
func (h *SessionHandler) Pointer(c *fiber.Ctx) error {
	var req model.PointerRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.service.Pointer(c.UserContext(), c.Params("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Tick handles POST /api/sessions/:sessionId/tick
// @Summary      Report video time
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Param        request body model.TickRequest true "Current video time"
// @Success      200 {object} model.TickResult
// @Security     SessionToken
// @Router       /api/sessions/{sessionId}/tick [post]
func (h *SessionHandler) Tick(c *fiber.Ctx) error {
	var req model.TickRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.service.Tick(c.UserContext(), c.Params("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Answer handles POST /api/sessions/:sessionId/answer
// @Summary      Answer a question
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Param        request body model.AnswerRequest true "Answer"
// @Success      200 {object} model.AnswerResult
// @Security     SessionToken
// @Router       /api/sessions/{sessionId}/answer [post]
func (h *SessionHandler) Answer(c *fiber.Ctx) error {
	var req model.AnswerRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.service.Answer(c.UserContext(), c.Params("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Advance handles POST /api/sessions/:sessionId/advance
// @Summary      Confirm a solved step
// @Tags         Sessions
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Success      200 {object} model.Feedback
// @Security     SessionToken
// @Router       /api/sessions/{sessionId}/advance [post]
func (h *SessionHandler) Advance(c *fiber.Ctx) error {
	result, err := h.service.Advance(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Viewport handles POST /api/sessions/:sessionId/viewport
// @Summary      Report player resize
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Param        request body model.ViewportRequest true "Viewport in pixels"
// @Success      200 {object} model.SessionResponse
// @Security     SessionToken
// @Router       /api/sessions/{sessionId}/viewport [post]
func (h *SessionHandler) Viewport(c *fiber.Ctx) error {
	var req model.ViewportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.service.Resize(c.UserContext(), c.Params("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Delete handles DELETE /api/sessions/:sessionId
// @Summary      Discard session
// @Tags         Sessions
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Success      200 {object} model.SessionDeleteResponse
// @Security     SessionToken
// @Router       /api/sessions/{sessionId} [delete]
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	result, err := h.service.EndSession(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}
