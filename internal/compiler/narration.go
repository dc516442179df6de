package compiler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tutorcast/api/internal/model"
)

// SynthesisRequest is one narration line to be voiced
type SynthesisRequest struct {
	StepID   string         `json:"stepId"`
	Text     string         `json:"text"`
	Language model.Language `json:"language"`
	Voice    string         `json:"voice,omitempty"`
}

// SynthesisResult is the voiced clip and its measured length
type SynthesisResult struct {
	AudioURL   string `json:"audioUrl"`
	DurationMs int64  `json:"durationMs"`
}

// Synthesizer voices narration text
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}

// NarrationOptions controls AttachNarration
type NarrationOptions struct {
	Language    model.Language
	Voice       string
	Format      string
	Concurrency int
}

// AttachNarration voices every step with narration text and returns the
// track in trace order. Calls run concurrently up to opts.Concurrency; the
// first failure cancels the rest.
func AttachNarration(ctx context.Context, steps []model.TraceStep, synth Synthesizer, opts NarrationOptions) (*model.NarrationTrack, error) {
	type line struct {
		stepID string
		text   string
	}
	var lines []line
	seen := make(map[string]bool)
	for _, s := range steps {
		text := strings.TrimSpace(s.NarrationText)
		if text == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		lines = append(lines, line{stepID: s.ID, text: text})
	}

	segments := make([]model.NarrationSegment, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i, l := range lines {
		i, l := i, l
		g.Go(func() error {
			res, err := synth.Synthesize(gctx, SynthesisRequest{
				StepID:   l.stepID,
				Text:     l.text,
				Language: opts.Language,
				Voice:    opts.Voice,
			})
			if err != nil {
				return fmt.Errorf("narration for step %q: %w", l.stepID, err)
			}
			segments[i] = model.NarrationSegment{
				StepID:     l.stepID,
				Src:        res.AudioURL,
				DurationMs: res.DurationMs,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &model.NarrationTrack{Format: opts.Format, Segments: segments}, nil
}
