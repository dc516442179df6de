package playback

import (
	"fmt"

	"github.com/tutorcast/api/internal/model"
)

// OnTick recomputes the active layer entries at video time t. In show-me it
// also fires the time-driven effects: question pauses, step progress and
// completion at the project duration. Each effect fires at most once per
// session, so repeated ticks at the same time are side-effect free.
func (e *Engine) OnTick(t int64) model.TickResult {
	if t < 0 {
		t = 0
	}
	res := model.TickResult{
		TimeMs:     t,
		Subtitles:  make([]model.Subtitle, 0),
		Highlights: make([]model.HighlightEntry, 0),
		Questions:  make([]model.Question, 0),
		State:      e.state,
	}
	if e.project == nil {
		return res
	}

	l := e.project.Layers
	for _, s := range l.Subtitles {
		if active(s.Start, s.End, t) {
			res.Subtitles = append(res.Subtitles, s)
		}
	}
	for _, h := range l.Highlights {
		if active(h.Start, h.End, t) {
			res.Highlights = append(res.Highlights, h)
		}
	}
	for _, q := range l.Questions {
		if active(q.Start, q.End, t) {
			res.Questions = append(res.Questions, q)
		}
	}

	if e.session != nil && e.mode == model.ModeShowMe && e.state != model.StateComplete {
		e.lastTick = t
		e.showMeEffects(t, res.Questions)
	}

	res.State = e.state
	res.Complete = e.state == model.StateComplete
	res.Paused = e.pausedOn != ""
	res.PausedOn = e.pausedOn
	if e.session != nil {
		res.CurrentStepIndex = e.session.CurrentStepIndex
	}
	return res
}

func (e *Engine) showMeEffects(t int64, questions []model.Question) {
	if e.pausedOn != "" {
		return
	}

	for _, q := range questions {
		key := "pause:" + q.ID
		if !q.PauseVideo || e.answered[q.ID] || e.fired[key] {
			continue
		}
		e.fired[key] = true
		e.pausedOn = q.ID
		e.emit(Event{Type: EventQuestionPaused, QuestionID: q.ID, TimeMs: t})
		return
	}

	steps := e.project.InteractiveSteps
	for i, s := range steps {
		key := "step:" + s.ID
		if e.fired[key] || t < s.EndMs {
			continue
		}
		e.fired[key] = true
		e.session.CompletedSteps = append(e.session.CompletedSteps, s.StepID)
		if i+1 > e.session.CurrentStepIndex {
			e.session.CurrentStepIndex = i + 1
		}
		e.emit(Event{Type: EventStepCompleted, StepID: s.StepID, TimeMs: t})
	}

	if t >= e.project.Duration && !e.fired["complete"] {
		e.fired["complete"] = true
		e.complete()
	}
}

// active reports whether t falls in the window [start, end)
func active(start, end, t int64) bool {
	return start <= t && t < end
}

// SubmitAnswer records an answer to question qid. Answering the question
// that paused show-me playback resumes it.
func (e *Engine) SubmitAnswer(qid string, option int) (model.AnswerResult, error) {
	if e.project == nil {
		return model.AnswerResult{}, ErrNotLoaded
	}
	if e.session == nil {
		return model.AnswerResult{}, ErrNoSession
	}
	q, ok := e.questions[qid]
	if !ok {
		return model.AnswerResult{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, qid)
	}
	if option < 0 || option >= len(q.Options) {
		return model.AnswerResult{}, fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}

	correct := option == q.CorrectOption
	e.session.Answers = append(e.session.Answers, model.Answer{
		QuestionID: qid,
		Option:     option,
		Correct:    correct,
		At:         e.clock().UTC(),
	})
	e.answered[qid] = true

	res := model.AnswerResult{QuestionID: qid, Correct: correct, Explanation: q.Explanation}
	if e.pausedOn == qid {
		e.pausedOn = ""
		res.Resumed = true
	}
	e.emit(Event{Type: EventAnswered, QuestionID: qid, Correct: correct})

	// a resumed player may already sit past the end of the video
	if res.Resumed && e.mode == model.ModeShowMe {
		e.showMeEffects(e.lastTick, nil)
	}
	res.State = e.state
	return res, nil
}
