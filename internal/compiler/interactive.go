package compiler

import (
	"strings"

	"github.com/tutorcast/api/internal/element"
	"github.com/tutorcast/api/internal/model"
)

// interactiveSteps emits one gated step per click/type step that carries a
// highlight hint, in trace order with a dense zero-based order.
func (c *compilation) interactiveSteps() []model.InteractiveStep {
	d := c.opts.Interactive
	out := make([]model.InteractiveStep, 0)

	for _, s := range c.steps {
		if !s.Action.Interactive() || s.HighlightHint == nil {
			continue
		}

		hlType := s.HighlightHint.Type
		if hlType == "" {
			hlType = model.HighlightTypeFor(s.Action)
		}
		box, changed := element.Clamp(model.Position{
			X:      s.HighlightHint.X,
			Y:      s.HighlightHint.Y,
			Width:  d.TargetWidth,
			Height: d.TargetHeight,
		})
		if changed {
			c.warnf("step %q: click target clamped to the viewport", s.ID)
		}
		hintTarget := clickTarget(box, hlType, d.TolerancePx)
		target := hintTarget

		var tr *model.Translation
		if h := c.highlightFor(s.ID); h != nil {
			if c.measured {
				target = clickTarget(h.Position, hlType, d.TolerancePx)
			}
			if t, ok := h.Translations[c.opts.DefaultLanguage]; ok {
				tr = &t
			}
		}

		is := model.InteractiveStep{
			ID:          "is-" + s.ID,
			StepID:      s.ID,
			Order:       len(out),
			Instruction: instructionFor(s, tr),
			Hint:        hintFor(s, tr),
			Target:      target,
			HintTarget:  hintTarget,
			OnCorrect:   &model.OnCorrect{Feedback: d.OnCorrect.Feedback, AutoAdvance: d.OnCorrect.AutoAdvance},
			OnIncorrect: &model.OnIncorrect{
				Feedback:    d.OnIncorrect.Feedback,
				ShowHint:    d.OnIncorrect.ShowHint,
				MaxAttempts: d.OnIncorrect.MaxAttempts,
			},
			Scoring: &model.Scoring{
				Points:               d.Scoring.Points,
				PenaltyPerWrongClick: d.Scoring.PenaltyPerWrongClick,
			},
		}
		if t, ok := c.ts[s.ID]; ok {
			is.StartMs, is.EndMs = t.StartMs, t.EndMs
		}
		out = append(out, is)
	}
	return out
}

func clickTarget(p model.Position, t model.HighlightType, tolerance float64) model.ClickTarget {
	return model.ClickTarget{
		X:             p.X,
		Y:             p.Y,
		Width:         p.Width,
		Height:        p.Height,
		HighlightType: t,
		TolerancePx:   tolerance,
	}
}

func instructionFor(s model.TraceStep, tr *model.Translation) string {
	if tr != nil {
		if tr.Instruction != "" {
			return tr.Instruction
		}
		if tr.ActionDescription != "" {
			return tr.ActionDescription
		}
	}
	if desc := strings.TrimSpace(s.Description); desc != "" {
		return desc
	}
	return element.DescribeAction(model.ElementDescriptor{
		Action:    s.Action,
		FieldName: s.Selector,
		Value:     s.Value,
	})
}

// hintFor synthesizes a hint from the step description when none was authored
func hintFor(s model.TraceStep, tr *model.Translation) string {
	if tr != nil && tr.Hint != "" {
		return tr.Hint
	}
	if desc := strings.TrimSpace(s.Description); desc != "" {
		return "Hint: " + desc
	}
	if s.Selector != "" {
		return "Look for " + s.Selector
	}
	return "Look for the highlighted element"
}
