package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/pkg/response"
)

type CompileHandler struct {
	service   *service.CompileService
	validator *validator.Validate
}

func NewCompileHandler(svc *service.CompileService, v *validator.Validate) *CompileHandler {
	return &CompileHandler{
		service:   svc,
		validator: v,
	}
}

// Compile handles POST /api/compile
// @Summary      Compile a trace
// @Description  Compile an automation trace into a tutorial project synchronously
// @Tags         Compile
// @Accept       json
// @Produce      json
// @Param        request body model.CompileRequest true "Trace"
// @Success      200 {object} model.CompileResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/compile [post]
func (h *CompileHandler) Compile(c *fiber.Ctx) error {
	var req model.CompileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Compile(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Start handles POST /api/compile/start
// @Summary      Start compile job
// @Description  Queue a trace for background compilation and assembly
// @Tags         Compile
// @Accept       json
// @Produce      json
// @Param        request body model.CompileRequest true "Trace"
// @Success      202 {object} model.CompileStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /api/compile/start [post]
func (h *CompileHandler) Start(c *fiber.Ctx) error {
	var req model.CompileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartCompile(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/compile/status/:jobId
// @Summary      Get compile job status
// @Tags         Compile
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CompileStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/compile/status/{jobId} [get]
func (h *CompileHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.UserContext(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/compile/result/:jobId
// @Summary      Get compile job result
// @Tags         Compile
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CompileResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/compile/result/{jobId} [get]
func (h *CompileHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.UserContext(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/compile/cancel/:jobId
// @Summary      Cancel compile job
// @Tags         Compile
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CompileCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/compile/cancel/{jobId} [post]
func (h *CompileHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.CancelCompile(c.UserContext(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Project handles GET /api/projects/:projectId
// @Summary      Get a compiled project
// @Description  Read back a recently compiled document from the cache
// @Tags         Projects
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {object} model.Project
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/projects/{projectId} [get]
func (h *CompileHandler) Project(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	project, err := h.service.GetProject(c.UserContext(), projectID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, project)
}
