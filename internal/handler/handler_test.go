package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/middleware"
	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/internal/session"
	"github.com/tutorcast/api/pkg/response"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	validate := model.NewValidator()
	compileSvc := service.NewCompileService(service.CompileServiceConfig{
		Logger:  log,
		Options: compiler.DefaultOptions(),
	})

	store := session.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	tokens, err := session.NewTokenIssuer("handler-test", time.Hour)
	require.NoError(t, err)
	playbackSvc := service.NewPlaybackService(service.PlaybackServiceConfig{
		Store:    store,
		Projects: compileSvc,
		Tokens:   tokens,
		Logger:   log,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(app, Routes{
		Compile:     NewCompileHandler(compileSvc, validate),
		Sessions:    NewSessionHandler(playbackSvc, validate),
		Verifier:    playbackSvc,
		RateLimiter: middleware.NewRateLimiter(nil),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func traceRequest() model.CompileRequest {
	return model.CompileRequest{
		Title: "Save a document",
		Steps: []model.TraceStep{
			{ID: "s1", Action: model.ActionNavigate, Value: "https://docs.example.com", NarrationText: "Open the editor."},
			{ID: "s2", Action: model.ActionClick, Selector: "#save", Description: "Click save", HighlightHint: &model.HighlightHint{X: 80, Y: 10}},
		},
		Timestamps: []model.Timestamp{
			{StepID: "s1", StartMs: 0, EndMs: 1500},
			{StepID: "s2", StartMs: 1500, EndMs: 3000},
		},
	}
}

func TestCompileEndpoint(t *testing.T) {
	app := setupApp(t)

	var res model.CompileResponse
	status := do(t, app, "POST", "/api/compile", "", traceRequest(), &res)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, res.Project.InteractiveSteps, 1)
	assert.Len(t, res.Project.Layers.Subtitles, 1)
	assert.EqualValues(t, 3000, res.Project.Duration)
}

func TestCompileEndpoint_ClampsAuthoringErrors(t *testing.T) {
	app := setupApp(t)

	req := traceRequest()
	req.Steps[1].HighlightHint.X = 104
	req.Timestamps[0].StartMs = -20

	var res model.CompileResponse
	status := do(t, app, "POST", "/api/compile", "", req, &res)
	require.Equal(t, fiber.StatusOK, status)

	require.Len(t, res.Project.InteractiveSteps, 1)
	target := res.Project.InteractiveSteps[0].Target
	assert.EqualValues(t, 100, target.X)
	assert.EqualValues(t, 0, target.Width)
	assert.EqualValues(t, 0, res.Project.Layers.Subtitles[0].Start)

	joined := strings.Join(res.Warnings, "\n")
	assert.Contains(t, joined, "click target clamped")
	assert.Contains(t, joined, "negative start clamped")
}

func TestCompileEndpoint_Errors(t *testing.T) {
	app := setupApp(t)

	var errResp response.ErrorResponse
	status := do(t, app, "POST", "/api/compile", "", model.CompileRequest{}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, response.CodeValidationError, errResp.Error.Code)

	req := traceRequest()
	req.Steps[1].Selector = ""
	errResp = response.ErrorResponse{}
	status = do(t, app, "POST", "/api/compile", "", req, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
	details, ok := errResp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "required_for_click", details["Steps[1].selector"])

	req = traceRequest()
	req.Timestamps = append(req.Timestamps, model.Timestamp{StepID: "ghost", StartMs: 0, EndMs: 1})
	errResp = response.ErrorResponse{}
	status = do(t, app, "POST", "/api/compile", "", req, &errResp)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, response.CodeTraceIntegrity, errResp.Error.Code)

	errResp = response.ErrorResponse{}
	status = do(t, app, "POST", "/api/compile/start", "", traceRequest(), &errResp)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	status = do(t, app, "GET", "/api/compile/status/nope", "", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	errResp = response.ErrorResponse{}
	status = do(t, app, "GET", "/api/projects/nope", "", nil, &errResp)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, response.CodeProjectNotFound, errResp.Error.Code)
}

func TestSessionLifecycle(t *testing.T) {
	app := setupApp(t)

	var compiled model.CompileResponse
	require.Equal(t, fiber.StatusOK, do(t, app, "POST", "/api/compile", "", traceRequest(), &compiled))

	var start model.SessionStartResponse
	status := do(t, app, "POST", "/api/sessions", "", model.SessionStartRequest{
		Project: compiled.Project, Mode: model.ModeGuideMe,
	}, &start)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, start.Token)
	id := start.Session.ID
	require.NotNil(t, start.Prompt)
	assert.Equal(t, "s2", start.Prompt.StepID)
	assert.Equal(t, model.StateWaitingForInput, start.State)

	base := "/api/sessions/" + id

	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", base, "", nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "GET", base, "forged", nil, nil))

	var fb model.Feedback
	require.Equal(t, fiber.StatusOK, do(t, app, "POST", base+"/pointer", start.Token, model.PointerRequest{X: 5, Y: 90}, &fb))
	assert.False(t, fb.Correct)

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, "POST", base+"/pointer", start.Token, model.PointerRequest{X: 150, Y: 10}, nil))

	fb = model.Feedback{}
	require.Equal(t, fiber.StatusOK, do(t, app, "POST", base+"/pointer", start.Token, model.PointerRequest{X: 85, Y: 14}, &fb))
	assert.True(t, fb.Correct)
	assert.True(t, fb.Complete)

	var got model.SessionResponse
	require.Equal(t, fiber.StatusOK, do(t, app, "GET", base, start.Token, nil, &got))
	assert.Equal(t, model.StateComplete, got.State)
	assert.Len(t, got.Session.Attempts, 2)

	var tick model.TickResult
	require.Equal(t, fiber.StatusOK, do(t, app, "POST", base+"/tick", start.Token, model.TickRequest{CurrentTimeMs: 100}, &tick))
	require.Len(t, tick.Subtitles, 1)
	assert.Equal(t, "s1", tick.Subtitles[0].StepID)

	var errResp response.ErrorResponse
	require.Equal(t, fiber.StatusBadRequest, do(t, app, "POST", base+"/answer", start.Token, model.AnswerRequest{QuestionID: "q9"}, &errResp))

	var resized model.SessionResponse
	require.Equal(t, fiber.StatusOK, do(t, app, "POST", base+"/viewport", start.Token, model.ViewportRequest{Width: 800, Height: 600}, &resized))
	assert.Equal(t, 800.0, resized.Viewport.Width)

	var del model.SessionDeleteResponse
	require.Equal(t, fiber.StatusOK, do(t, app, "DELETE", base, start.Token, nil, &del))
	assert.True(t, del.Success)

	errResp = response.ErrorResponse{}
	require.Equal(t, fiber.StatusNotFound, do(t, app, "GET", base, start.Token, nil, &errResp))
	assert.Equal(t, response.CodeSessionNotFound, errResp.Error.Code)
}

func TestSessionStart_Errors(t *testing.T) {
	app := setupApp(t)

	var errResp response.ErrorResponse
	status := do(t, app, "POST", "/api/sessions", "", model.SessionStartRequest{Mode: model.ModeShowMe}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status, "project or projectId required")

	errResp = response.ErrorResponse{}
	status = do(t, app, "POST", "/api/sessions", "", model.SessionStartRequest{
		Project: &model.Project{ID: "p", DefaultLanguage: model.LanguageEN, AvailableLanguages: []model.Language{model.LanguageTR}},
		Mode:    model.ModeShowMe,
	}, &errResp)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, response.CodeProjectMalformed, errResp.Error.Code)
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	var out map[string]interface{}
	require.Equal(t, fiber.StatusOK, do(t, app, "GET", "/health", "", nil, &out))
	assert.Equal(t, "ok", out["status"])
}
