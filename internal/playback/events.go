package playback

import "github.com/tutorcast/api/internal/model"

// Event types reported to a Listener
const (
	EventStarted        = "started"
	EventState          = "state"
	EventAttempt        = "attempt"
	EventTargetRevealed = "target-revealed"
	EventStepCompleted  = "step-completed"
	EventQuestionPaused = "question-paused"
	EventAnswered       = "answered"
	EventCompleted      = "completed"
	EventReset          = "reset"
)

// Event is one transition of an engine
type Event struct {
	Type       string              `json:"type"`
	SessionID  string              `json:"sessionId"`
	State      model.PlaybackState `json:"state"`
	StepID     string              `json:"stepId,omitempty"`
	QuestionID string              `json:"questionId,omitempty"`
	Attempt    int                 `json:"attempt,omitempty"`
	Correct    bool                `json:"correct,omitempty"`
	Score      int                 `json:"score,omitempty"`
	TimeMs     int64               `json:"timeMs,omitempty"`
}

// Listener receives engine events synchronously, on the caller's goroutine
type Listener func(Event)

func (e *Engine) emit(ev Event) {
	if e.listener == nil {
		return
	}
	ev.SessionID = e.id
	ev.State = e.state
	e.listener(ev)
}
