package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tutorcast/api/internal/element"
	"github.com/tutorcast/api/internal/model"
)

// ErrProjectMalformed is returned by Load for documents that cannot be played
var ErrProjectMalformed = errors.New("project malformed")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProjectMalformed, fmt.Sprintf(format, args...))
}

// prepare validates p and returns a private, clamped copy of it. Structural
// problems are rejected; out-of-range geometry is repaired.
func prepare(p *model.Project) (*model.Project, error) {
	if p == nil {
		return nil, malformed("no project")
	}
	if p.ID == "" {
		return nil, malformed("missing id")
	}
	if p.Duration < 0 {
		return nil, malformed("negative duration %d", p.Duration)
	}
	if len(p.AvailableLanguages) == 0 {
		return nil, malformed("no available languages")
	}
	for _, l := range p.AvailableLanguages {
		if !l.Valid() {
			return nil, malformed("unsupported language %q", l)
		}
	}
	if !p.HasLanguage(p.DefaultLanguage) {
		return nil, malformed("default language %q is not available", p.DefaultLanguage)
	}
	seen := make(map[string]bool, len(p.InteractiveSteps))
	for _, s := range p.InteractiveSteps {
		if s.ID == "" {
			return nil, malformed("interactive step without id")
		}
		if seen[s.ID] {
			return nil, malformed("duplicate interactive step %q", s.ID)
		}
		seen[s.ID] = true
	}

	cp, err := deepCopy(p)
	if err != nil {
		return nil, malformed("copy: %v", err)
	}

	sort.SliceStable(cp.InteractiveSteps, func(i, j int) bool {
		return cp.InteractiveSteps[i].Order < cp.InteractiveSteps[j].Order
	})
	for i := range cp.InteractiveSteps {
		s := &cp.InteractiveSteps[i]
		s.Order = i
		s.Target = clampTarget(s.Target)
		s.HintTarget = clampTarget(s.HintTarget)
		if s.Scoring != nil {
			if s.Scoring.Points < 0 {
				s.Scoring.Points = 0
			}
			if s.Scoring.PenaltyPerWrongClick < 0 {
				s.Scoring.PenaltyPerWrongClick = 0
			}
		}
		if s.OnIncorrect != nil && s.OnIncorrect.MaxAttempts <= 0 {
			s.OnIncorrect.MaxAttempts = DefaultMaxAttempts
		}
	}
	for i := range cp.Layers.Highlights {
		h := &cp.Layers.Highlights[i]
		h.Position, _ = element.Clamp(h.Position)
	}
	return cp, nil
}

func clampTarget(t model.ClickTarget) model.ClickTarget {
	p, _ := element.Clamp(model.Position{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height})
	t.X, t.Y, t.Width, t.Height = p.X, p.Y, p.Width, p.Height
	if t.TolerancePx < 0 {
		t.TolerancePx = 0
	}
	return t
}

// deepCopy detaches the engine's project from the caller's document
func deepCopy(p *model.Project) (*model.Project, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out model.Project
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
