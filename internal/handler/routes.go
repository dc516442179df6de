package handler

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/tutorcast/api/internal/middleware"
	ws "github.com/tutorcast/api/internal/websocket"
)

// Routes collects everything the HTTP surface is built from
type Routes struct {
	Compile     *CompileHandler
	Sessions    *SessionHandler
	Verifier    middleware.TokenVerifier
	RateLimiter *middleware.RateLimiter
	Hub         *ws.Hub

	CompilePerHour  int
	SessionsPerHour int

	// Health reports which collaborators are configured
	Health func() fiber.Map
}

// Register mounts the API on app
func Register(app *fiber.App, r Routes) {
	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		services := fiber.Map{}
		if r.Health != nil {
			services = r.Health()
		}
		return c.JSON(fiber.Map{
			"status":   "ok",
			"services": services,
		})
	})

	api := app.Group("/api")

	// Compile routes
	compileLimit := r.RateLimiter.CompileLimit(r.CompilePerHour)
	api.Post("/compile", compileLimit, r.Compile.Compile)
	compile := api.Group("/compile")
	compile.Post("/start", compileLimit, r.Compile.Start)
	compile.Get("/status/:jobId", r.Compile.Status)
	compile.Get("/result/:jobId", r.Compile.Result)
	compile.Post("/cancel/:jobId", r.Compile.Cancel)

	api.Get("/projects/:projectId", r.Compile.Project)

	// Session routes
	api.Post("/sessions", r.RateLimiter.SessionLimit(r.SessionsPerHour), r.Sessions.Start)
	sess := api.Group("/sessions/:sessionId", middleware.SessionAuth(r.Verifier, "sessionId"))
	sess.Get("", r.Sessions.Get)
	sess.Delete("", r.Sessions.Delete)
	sess.Post("/pointer", r.Sessions.Pointer)
	sess.Post("/tick", r.Sessions.Tick)
	sess.Post("/answer", r.Sessions.Answer)
	sess.Post("/advance", r.Sessions.Advance)
	sess.Post("/viewport", r.Sessions.Viewport)

	if r.Hub == nil {
		return
	}

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, ws.JobTopic(c.Params("jobId")))
	}))

	app.Get("/ws/sessions/:sessionId", middleware.SessionAuth(r.Verifier, "sessionId"), websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, ws.SessionTopic(c.Params("sessionId")))
	}))
}

// ErrorHandler renders unhandled errors in the API error envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
