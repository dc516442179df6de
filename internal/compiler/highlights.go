package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorcast/api/internal/element"
	"github.com/tutorcast/api/internal/model"
)

// highlightStrategy produces the highlight layer. One is picked per compile
// from the richest data the driver supplied.
type highlightStrategy interface {
	name() string
	// measured reports whether entries carry real element bounds
	measured() bool
	build(c *compilation) ([]model.HighlightEntry, error)
}

func selectHighlightStrategy(in Input) highlightStrategy {
	switch {
	case len(in.AutoHighlights) > 0:
		return autoDetected{}
	case len(in.DetectedElements) > 0:
		return detectedElements{}
	default:
		return hintDerived{}
	}
}

// autoDetected passes the driver's own highlight list through
type autoDetected struct{}

func (autoDetected) name() string   { return "auto-detected" }
func (autoDetected) measured() bool { return true }

func (autoDetected) build(c *compilation) ([]model.HighlightEntry, error) {
	out := make([]model.HighlightEntry, 0, len(c.in.AutoHighlights))
	for i, h := range c.in.AutoHighlights {
		if err := c.requireStep("highlight", i, h.StepID); err != nil {
			return nil, err
		}
		h.Translations = copyTranslations(h.Translations)
		if h.Element != nil {
			el := *h.Element
			h.Element = &el
		}
		if h.ID == "" {
			h.ID = fmt.Sprintf("hl-%s-%d", h.StepID, i)
		}
		if h.Type == "" {
			h.Type = model.HighlightTypeFor(c.byID[h.StepID].Action)
		}
		if pos, changed := element.Clamp(h.Position); changed {
			c.warnf("highlight %q: position out of range, clamped", h.ID)
			h.Position = pos
		}
		if h.End < h.Start {
			c.warnf("highlight %q: end before start, clamped", h.ID)
			h.End = h.Start
		}
		out = append(out, h)
	}
	return out, nil
}

// detectedElements converts raw pixel detections into highlights
type detectedElements struct{}

func (detectedElements) name() string   { return "detected-elements" }
func (detectedElements) measured() bool { return true }

func (detectedElements) build(c *compilation) ([]model.HighlightEntry, error) {
	vp := c.opts.Viewport
	if c.in.Viewport != nil && c.in.Viewport.Width > 0 && c.in.Viewport.Height > 0 {
		vp = *c.in.Viewport
	} else {
		c.warnf("no recording viewport, assuming %.0fx%.0f", vp.Width, vp.Height)
	}

	perStep := make(map[string]int)
	out := make([]model.HighlightEntry, 0, len(c.in.DetectedElements))
	for i, d := range c.in.DetectedElements {
		if err := c.requireStep("detected element", i, d.StepID); err != nil {
			return nil, err
		}
		t, ok := c.ts[d.StepID]
		if !ok {
			continue
		}
		step := c.byID[d.StepID]
		desc := element.Describe(d, step)

		perStep[d.StepID]++
		id := "hl-" + d.StepID
		if n := perStep[d.StepID]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}

		hlType := model.HighlightTypeFor(step.Action)
		if step.HighlightHint != nil && step.HighlightHint.Type != "" {
			hlType = step.HighlightHint.Type
		}

		out = append(out, model.HighlightEntry{
			ID:             id,
			StepID:         d.StepID,
			Start:          t.StartMs,
			End:            t.EndMs,
			Type:           hlType,
			Position:       element.Normalize(d.BoundingBox, vp),
			Element:        &desc,
			Translations:   copyTranslations(d.Translations),
			ScreenshotFile: d.ScreenshotFile,
		})
	}
	return out, nil
}

// hintDerived builds a fixed-size highlight for every step with a manual hint
type hintDerived struct{}

func (hintDerived) name() string   { return "hint-derived" }
func (hintDerived) measured() bool { return false }

func (hintDerived) build(c *compilation) ([]model.HighlightEntry, error) {
	out := make([]model.HighlightEntry, 0)
	for _, s := range c.steps {
		if s.HighlightHint == nil {
			continue
		}
		t, ok := c.ts[s.ID]
		if !ok {
			continue
		}
		hlType := s.HighlightHint.Type
		if hlType == "" {
			hlType = model.HighlightTypeFor(s.Action)
		}
		pos, changed := element.Clamp(model.Position{
			X:      s.HighlightHint.X,
			Y:      s.HighlightHint.Y,
			Width:  c.opts.HighlightWidth,
			Height: c.opts.HighlightHeight,
		})
		if changed {
			c.warnf("step %q: hint highlight clamped to the viewport", s.ID)
		}
		out = append(out, model.HighlightEntry{
			ID:       "hl-" + s.ID,
			StepID:   s.ID,
			Start:    t.StartMs,
			End:      t.EndMs,
			Type:     hlType,
			Position: pos,
		})
	}
	return out, nil
}

// fillTranslations gives every element-backed highlight an entry for each
// declared language. Missing entries copy the default language, or fall
// back to generated English text.
func (c *compilation) fillTranslations() {
	missing := make(map[model.Language]int)
	for i := range c.highlights {
		h := &c.highlights[i]
		if h.Element == nil && len(h.Translations) == 0 {
			continue
		}
		if h.Translations == nil {
			h.Translations = make(map[model.Language]model.Translation, len(c.langs))
		}

		base, ok := h.Translations[c.opts.DefaultLanguage]
		if !ok {
			if h.Element != nil {
				base = element.DefaultTranslation(*h.Element)
			} else {
				base = anyTranslation(h.Translations)
			}
		}
		for _, l := range c.langs {
			if _, ok := h.Translations[l]; ok {
				continue
			}
			h.Translations[l] = base
			missing[l]++
		}
	}

	if len(missing) == 0 {
		return
	}
	langs := make([]string, 0, len(missing))
	for l, n := range missing {
		langs = append(langs, fmt.Sprintf("%s (%d)", l, n))
	}
	sort.Strings(langs)
	c.warnf("missing highlight translations filled for %s", strings.Join(langs, ", "))
}

// highlightFor returns the highlight of a step, preferring one backed by
// an element descriptor
func (c *compilation) highlightFor(stepID string) *model.HighlightEntry {
	var first *model.HighlightEntry
	for i := range c.highlights {
		h := &c.highlights[i]
		if h.StepID != stepID {
			continue
		}
		if h.Element != nil {
			return h
		}
		if first == nil {
			first = h
		}
	}
	return first
}

func copyTranslations(in map[model.Language]model.Translation) map[model.Language]model.Translation {
	if in == nil {
		return nil
	}
	out := make(map[model.Language]model.Translation, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// anyTranslation picks a deterministic entry from a non-empty map
func anyTranslation(m map[model.Language]model.Translation) model.Translation {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return m[model.Language(keys[0])]
}
