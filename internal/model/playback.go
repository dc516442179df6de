package model

import "time"

// StepPrompt is what the viewer is shown for the current interactive step.
// Instruction is empty in test-me; Hint is only set once revealed.
type StepPrompt struct {
	StepID       string       `json:"stepId"`
	Order        int          `json:"order"`
	Instruction  string       `json:"instruction,omitempty"`
	Hint         string       `json:"hint,omitempty"`
	Target       *ClickTarget `json:"target,omitempty"`
	Attempts     int          `json:"attempts"`
	RevealTarget bool         `json:"revealTarget"`
}

// Feedback is the engine's reaction to one pointer event
type Feedback struct {
	Ignored      bool          `json:"ignored"`
	Correct      bool          `json:"correct"`
	Message      string        `json:"message,omitempty"`
	Attempt      int           `json:"attempt"`
	RevealTarget bool          `json:"revealTarget"`
	Score        int           `json:"score"`
	State        PlaybackState `json:"state"`
	Next         *StepPrompt   `json:"next,omitempty"`
	Complete     bool          `json:"complete"`
}

// TickResult is the active-layer set at one playback time
type TickResult struct {
	TimeMs           int64            `json:"timeMs"`
	Subtitles        []Subtitle       `json:"subtitles"`
	Highlights       []HighlightEntry `json:"highlights"`
	Questions        []Question       `json:"questions"`
	Paused           bool             `json:"paused"`
	PausedOn         string           `json:"pausedOn,omitempty"`
	CurrentStepIndex int              `json:"currentStepIndex"`
	State            PlaybackState    `json:"state"`
	Complete         bool             `json:"complete"`
}

// AnswerResult is the outcome of a question submission
type AnswerResult struct {
	QuestionID  string        `json:"questionId"`
	Correct     bool          `json:"correct"`
	Explanation string        `json:"explanation,omitempty"`
	Resumed     bool          `json:"resumed"`
	State       PlaybackState `json:"state"`
}

// SessionStartRequest opens a viewing of a compiled project
type SessionStartRequest struct {
	ProjectID string       `json:"projectId" validate:"required_without=Project,max=64"`
	Project   *Project     `json:"project,omitempty"`
	Mode      LearningMode `json:"mode" validate:"required,oneof=show-me guide-me test-me"`
	Viewport  *Viewport    `json:"viewport,omitempty"`
}

// PointerRequest is a pointer event in percent of the player viewport
type PointerRequest struct {
	X float64 `json:"x" validate:"min=0,max=100"`
	Y float64 `json:"y" validate:"min=0,max=100"`
}

// TickRequest reports the video's current time
type TickRequest struct {
	CurrentTimeMs int64 `json:"currentTimeMs" validate:"min=0"`
}

// AnswerRequest submits an option for a question
type AnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Option     int    `json:"option" validate:"min=0"`
}

// ViewportRequest reports a player resize
type ViewportRequest struct {
	Width  float64 `json:"width" validate:"gt=0,max=16384"`
	Height float64 `json:"height" validate:"gt=0,max=16384"`
}

// SessionResponse is the viewer-facing state of a session
type SessionResponse struct {
	Session  *Session      `json:"session"`
	State    PlaybackState `json:"state"`
	Prompt   *StepPrompt   `json:"prompt,omitempty"`
	Viewport Viewport      `json:"viewport"`
}

// SessionStartResponse is returned when a session is created
type SessionStartResponse struct {
	SessionResponse
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionDeleteResponse is returned when a session is discarded
type SessionDeleteResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}
