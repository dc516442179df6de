// Package playback replays a compiled tutorial in one of three learning
// modes and grades pointer input against its interactive steps.
//
// An Engine belongs to a single viewer and is not safe for concurrent use.
package playback

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tutorcast/api/internal/element"
	"github.com/tutorcast/api/internal/model"
)

// Policy fallbacks for interactive steps that carry no explicit settings
const (
	DefaultMaxAttempts = 3
	DefaultFeedback    = "Correct!"
	DefaultMissMessage = "Not quite, try again."
)

var (
	ErrNotLoaded       = errors.New("no project loaded")
	ErrNoSession       = errors.New("playback not started")
	ErrInvalidMode     = errors.New("invalid learning mode")
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidOption   = errors.New("option out of range")
)

// DefaultViewport is used until the player reports its size
var DefaultViewport = model.Viewport{Width: 1280, Height: 720}

// Config wires an engine to its host
type Config struct {
	SessionID string
	Viewport  model.Viewport
	Clock     func() time.Time
	Listener  Listener
}

// Engine is the playback state machine for one viewing
type Engine struct {
	id       string
	clock    func() time.Time
	listener Listener

	project  *model.Project
	viewport model.Viewport
	mode     model.LearningMode
	state    model.PlaybackState
	session  *model.Session

	// current interactive step
	stepAttempts int
	stepPenalty  int
	// sum of solved step contributions in test-me
	solvedTotal int

	fired     map[string]bool
	answered  map[string]bool
	pausedOn  string
	lastTick  int64
	questions map[string]model.Question
}

// New returns an idle engine.
func New(cfg Config) *Engine {
	e := &Engine{
		id:       cfg.SessionID,
		clock:    cfg.Clock,
		listener: cfg.Listener,
		viewport: cfg.Viewport,
		state:    model.StateIdle,
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.viewport.Width <= 0 || e.viewport.Height <= 0 {
		e.viewport = DefaultViewport
	}
	return e
}

// ID returns the session id this engine records under.
func (e *Engine) ID() string { return e.id }

// Load validates and installs a project. The caller's document is copied
// and never modified. A mode that was already set restarts on the new project.
func (e *Engine) Load(p *model.Project) error {
	cp, err := prepare(p)
	if err != nil {
		return err
	}
	e.project = cp
	e.questions = make(map[string]model.Question, len(cp.Layers.Questions))
	for _, q := range cp.Layers.Questions {
		e.questions[q.ID] = q
	}
	if e.mode != "" {
		e.start(e.mode)
		return nil
	}
	e.setState(model.StateIdle)
	return nil
}

// SetMode starts a fresh session in mode m.
func (e *Engine) SetMode(m model.LearningMode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	if e.project == nil {
		return ErrNotLoaded
	}
	e.start(m)
	return nil
}

func (e *Engine) start(m model.LearningMode) {
	e.mode = m
	e.stepAttempts, e.stepPenalty, e.solvedTotal = 0, 0, 0
	e.fired = make(map[string]bool)
	e.answered = make(map[string]bool)
	e.pausedOn = ""
	e.lastTick = 0

	e.session = &model.Session{
		ID:             e.id,
		Mode:           m,
		ProjectID:      e.project.ID,
		Attempts:       make([]model.Attempt, 0),
		CompletedSteps: make([]string, 0),
		Answers:        make([]model.Answer, 0),
		StartedAt:      e.clock().UTC(),
	}
	if m == model.ModeTestMe {
		for _, s := range e.project.InteractiveSteps {
			e.session.MaxScore += points(s)
		}
	}
	e.emit(Event{Type: EventStarted})

	if !m.Interactive() {
		e.setState(model.StatePlaying)
		return
	}
	if len(e.project.InteractiveSteps) == 0 {
		e.complete()
		return
	}
	e.setState(model.StateWaitingForInput)
}

// Mode returns the active learning mode, empty before SetMode.
func (e *Engine) Mode() model.LearningMode { return e.mode }

// State returns the current state.
func (e *Engine) State() model.PlaybackState { return e.state }

// Viewport returns the player size used for hit-testing.
func (e *Engine) Viewport() model.Viewport { return e.viewport }

// Project returns the engine's private copy of the loaded document.
func (e *Engine) Project() *model.Project { return e.project }

// Resize records a new player size. Tolerances are re-derived from it on
// every following pointer event.
func (e *Engine) Resize(vp model.Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 || math.IsNaN(vp.Width) || math.IsNaN(vp.Height) {
		return ErrInvalidViewport
	}
	e.viewport = vp
	return nil
}

// Reset discards the session. The loaded project is kept.
func (e *Engine) Reset() {
	if e.session != nil {
		e.emit(Event{Type: EventReset})
	}
	e.session = nil
	e.mode = ""
	e.fired, e.answered = nil, nil
	e.pausedOn = ""
	e.stepAttempts, e.stepPenalty, e.solvedTotal = 0, 0, 0
	e.lastTick = 0
	e.state = model.StateIdle
}

// GetSession returns a copy of the session, nil before SetMode.
func (e *Engine) GetSession() *model.Session {
	if e.session == nil {
		return nil
	}
	s := *e.session
	s.Attempts = append([]model.Attempt(nil), e.session.Attempts...)
	s.CompletedSteps = append([]string(nil), e.session.CompletedSteps...)
	s.Answers = append([]model.Answer(nil), e.session.Answers...)
	if e.session.CompletedAt != nil {
		at := *e.session.CompletedAt
		s.CompletedAt = &at
	}
	return &s
}

// Prompt describes the current interactive step as the viewer should see
// it, nil when no step is pending.
func (e *Engine) Prompt() *model.StepPrompt {
	step := e.currentStep()
	if step == nil {
		return nil
	}
	reveal := e.stepAttempts >= maxAttempts(*step)
	p := &model.StepPrompt{
		StepID:       step.StepID,
		Order:        step.Order,
		Attempts:     e.stepAttempts,
		RevealTarget: reveal,
	}
	showHint := step.OnIncorrect == nil || step.OnIncorrect.ShowHint
	switch e.mode {
	case model.ModeGuideMe:
		p.Instruction = step.Instruction
		if reveal || (showHint && e.stepAttempts > 0) {
			p.Hint = step.Hint
		}
		t := step.Target
		p.Target = &t
	case model.ModeTestMe:
		// instruction is withheld; the hint and target only show once
		// the attempt budget is spent
		if reveal {
			p.Hint = step.Hint
			t := step.Target
			p.Target = &t
		}
	}
	return p
}

func (e *Engine) currentStep() *model.InteractiveStep {
	if e.session == nil || !e.mode.Interactive() || e.state == model.StateComplete {
		return nil
	}
	i := e.session.CurrentStepIndex
	if i < 0 || i >= len(e.project.InteractiveSteps) {
		return nil
	}
	return &e.project.InteractiveSteps[i]
}

// OnPointerEvent evaluates a pointer event at percent coordinates (x, y)
// against the current interactive step. Events outside guide-me/test-me,
// after completion or while a solved step waits for Advance are ignored.
func (e *Engine) OnPointerEvent(x, y float64) model.Feedback {
	step := e.currentStep()
	if step == nil || math.IsNaN(x) || math.IsNaN(y) ||
		(e.state != model.StateWaitingForInput && e.state != model.StateIncorrect) {
		return e.ignored()
	}

	e.setState(model.StateEvaluating)
	e.stepAttempts++
	correct := e.hit(step.Target, x, y)

	e.session.Attempts = append(e.session.Attempts, model.Attempt{
		StepID:  step.StepID,
		Order:   step.Order,
		X:       x,
		Y:       y,
		Correct: correct,
		Attempt: e.stepAttempts,
		At:      e.clock().UTC(),
	})
	e.emit(Event{Type: EventAttempt, StepID: step.StepID, Attempt: e.stepAttempts, Correct: correct})

	if correct {
		return e.solve(step)
	}
	return e.miss(step)
}

// hit tests (x, y) against t grown by its pixel tolerance at the current viewport
func (e *Engine) hit(t model.ClickTarget, x, y float64) bool {
	dx, dy := element.TolerancePercent(t.TolerancePx, e.viewport)
	box := model.Position{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
	return element.Contains(box, dx, dy, x, y)
}

func (e *Engine) solve(step *model.InteractiveStep) model.Feedback {
	if e.mode == model.ModeTestMe {
		e.solvedTotal += points(*step) - e.stepPenalty
		e.session.Score = e.solvedTotal
	}
	e.session.CompletedSteps = append(e.session.CompletedSteps, step.StepID)
	e.setState(model.StateCorrect)
	e.emit(Event{Type: EventStepCompleted, StepID: step.StepID})

	fb := model.Feedback{
		Correct: true,
		Message: DefaultFeedback,
		Attempt: e.stepAttempts,
	}
	advance := true
	if step.OnCorrect != nil {
		if step.OnCorrect.Feedback != "" {
			fb.Message = step.OnCorrect.Feedback
		}
		advance = step.OnCorrect.AutoAdvance || e.mode == model.ModeGuideMe
	}
	if advance {
		e.advance()
	}
	return e.feedback(fb)
}

func (e *Engine) miss(step *model.InteractiveStep) model.Feedback {
	if e.mode == model.ModeTestMe {
		pts := points(*step)
		e.stepPenalty += penalty(*step)
		if e.stepPenalty > pts {
			e.stepPenalty = pts
		}
		e.session.Score = e.solvedTotal - e.stepPenalty
		if e.session.Score < 0 {
			e.session.Score = 0
		}
	}
	e.setState(model.StateIncorrect)

	fb := model.Feedback{
		Message:      DefaultMissMessage,
		Attempt:      e.stepAttempts,
		RevealTarget: e.stepAttempts >= maxAttempts(*step),
	}
	if step.OnIncorrect != nil && step.OnIncorrect.Feedback != "" {
		fb.Message = step.OnIncorrect.Feedback
	}
	if fb.RevealTarget && e.stepAttempts == maxAttempts(*step) {
		e.emit(Event{Type: EventTargetRevealed, StepID: step.StepID, Attempt: e.stepAttempts})
	}
	return e.feedback(fb)
}

// Advance moves past a solved step that is held for confirmation.
func (e *Engine) Advance() model.Feedback {
	if e.session == nil || e.state != model.StateCorrect {
		return e.ignored()
	}
	e.advance()
	return e.feedback(model.Feedback{Correct: true})
}

func (e *Engine) advance() {
	e.setState(model.StateAdvancing)
	e.session.CurrentStepIndex++
	e.stepAttempts, e.stepPenalty = 0, 0
	if e.session.CurrentStepIndex >= len(e.project.InteractiveSteps) {
		e.complete()
		return
	}
	e.setState(model.StateWaitingForInput)
}

func (e *Engine) complete() {
	if e.session.IsComplete {
		return
	}
	now := e.clock().UTC()
	e.session.IsComplete = true
	e.session.CompletedAt = &now
	e.setState(model.StateComplete)
	e.emit(Event{Type: EventCompleted, Score: e.session.Score})
}

func (e *Engine) feedback(fb model.Feedback) model.Feedback {
	fb.State = e.state
	fb.Complete = e.state == model.StateComplete
	if e.session != nil {
		fb.Score = e.session.Score
	}
	if !fb.Complete {
		fb.Next = e.Prompt()
	}
	return fb
}

func (e *Engine) ignored() model.Feedback {
	fb := model.Feedback{Ignored: true, State: e.state, Complete: e.state == model.StateComplete}
	if e.session != nil {
		fb.Score = e.session.Score
	}
	return fb
}

func (e *Engine) setState(s model.PlaybackState) {
	if e.state == s {
		return
	}
	e.state = s
	e.emit(Event{Type: EventState})
}

func points(s model.InteractiveStep) int {
	if s.Scoring == nil {
		return 0
	}
	return s.Scoring.Points
}

func penalty(s model.InteractiveStep) int {
	if s.Scoring == nil {
		return 0
	}
	return s.Scoring.PenaltyPerWrongClick
}

func maxAttempts(s model.InteractiveStep) int {
	if s.OnIncorrect == nil || s.OnIncorrect.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return s.OnIncorrect.MaxAttempts
}
