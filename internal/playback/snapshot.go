package playback

import (
	"sort"

	"github.com/tutorcast/api/internal/model"
)

// Snapshot is the serializable state of an engine, without its project
type Snapshot struct {
	SessionID    string              `json:"sessionId"`
	Mode         model.LearningMode  `json:"mode"`
	State        model.PlaybackState `json:"state"`
	Session      *model.Session      `json:"session,omitempty"`
	Viewport     model.Viewport      `json:"viewport"`
	StepAttempts int                 `json:"stepAttempts"`
	StepPenalty  int                 `json:"stepPenalty"`
	SolvedTotal  int                 `json:"solvedTotal"`
	Fired        []string            `json:"fired,omitempty"`
	Answered     []string            `json:"answered,omitempty"`
	PausedOn     string              `json:"pausedOn,omitempty"`
	LastTickMs   int64               `json:"lastTickMs"`
}

// Snapshot captures the engine so it can be rebuilt with Restore.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		SessionID:    e.id,
		Mode:         e.mode,
		State:        e.state,
		Session:      e.GetSession(),
		Viewport:     e.viewport,
		StepAttempts: e.stepAttempts,
		StepPenalty:  e.stepPenalty,
		SolvedTotal:  e.solvedTotal,
		Fired:        keys(e.fired),
		Answered:     keys(e.answered),
		PausedOn:     e.pausedOn,
		LastTickMs:   e.lastTick,
	}
}

// Restore rebuilds an engine from a snapshot taken against project p.
func Restore(p *model.Project, snap Snapshot, cfg Config) (*Engine, error) {
	cfg.SessionID = snap.SessionID
	if snap.Viewport.Width > 0 && snap.Viewport.Height > 0 {
		cfg.Viewport = snap.Viewport
	}
	e := New(cfg)
	if err := e.Load(p); err != nil {
		return nil, err
	}

	e.mode = snap.Mode
	e.state = snap.State
	if e.state == "" {
		e.state = model.StateIdle
	}
	if snap.Session != nil {
		s := *snap.Session
		e.session = &s
	}
	e.stepAttempts = snap.StepAttempts
	e.stepPenalty = snap.StepPenalty
	e.solvedTotal = snap.SolvedTotal
	e.fired = set(snap.Fired)
	e.answered = set(snap.Answered)
	e.pausedOn = snap.PausedOn
	e.lastTick = snap.LastTickMs
	return e, nil
}

func keys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func set(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, k := range list {
		m[k] = true
	}
	return m
}
