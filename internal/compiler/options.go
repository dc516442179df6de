package compiler

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorcast/api/internal/model"
)

// InteractiveDefaults are applied to every generated interactive step
type InteractiveDefaults struct {
	TargetWidth  float64
	TargetHeight float64
	TolerancePx  float64
	OnCorrect    model.OnCorrect
	OnIncorrect  model.OnIncorrect
	Scoring      model.Scoring
}

// Options controls one compile run
type Options struct {
	Interactive InteractiveDefaults

	// HighlightWidth and HighlightHeight size hint-derived highlights, in percent.
	HighlightWidth  float64
	HighlightHeight float64

	GenerateSummary bool

	// QuestionWindowMs is how long a step-bound question without its own
	// window stays active.
	QuestionWindowMs int64

	DefaultLanguage    model.Language
	AvailableLanguages []model.Language

	// Viewport is assumed for pixel detections when the input has none.
	Viewport model.Viewport

	DocumentName string
	VideoExt     string
	AudioExt     string

	IDFunc func() string
	Now    func() time.Time
}

// DefaultOptions returns the stock compiler configuration.
func DefaultOptions() Options {
	return Options{
		Interactive: InteractiveDefaults{
			TargetWidth:  10,
			TargetHeight: 8,
			TolerancePx:  15,
			OnCorrect:    model.OnCorrect{Feedback: "Great job!", AutoAdvance: true},
			OnIncorrect:  model.OnIncorrect{ShowHint: true, MaxAttempts: 3},
			Scoring:      model.Scoring{Points: 10, PenaltyPerWrongClick: 2},
		},
		HighlightWidth:     5,
		HighlightHeight:    5,
		QuestionWindowMs:   5000,
		DefaultLanguage:    model.LanguageEN,
		AvailableLanguages: []model.Language{model.LanguageEN},
		Viewport:           model.Viewport{Width: 1280, Height: 720},
		DocumentName:       "project.json",
		VideoExt:           "mp4",
		AudioExt:           "mp3",
		IDFunc:             uuid.NewString,
		Now:                time.Now,
	}
}

// WithRequest returns a copy of o adjusted by the per-request switches.
func (o Options) WithRequest(req model.CompileOptions) Options {
	o.GenerateSummary = o.GenerateSummary || req.GenerateSummary
	if req.DefaultLanguage != "" {
		o.DefaultLanguage = req.DefaultLanguage
	}
	if len(req.AvailableLanguages) > 0 {
		o.AvailableLanguages = append([]model.Language(nil), req.AvailableLanguages...)
	}

	ov := req.Interactive
	if ov == nil {
		return o
	}
	d := &o.Interactive
	if ov.TargetWidth != nil {
		d.TargetWidth = *ov.TargetWidth
	}
	if ov.TargetHeight != nil {
		d.TargetHeight = *ov.TargetHeight
	}
	if ov.TolerancePx != nil {
		d.TolerancePx = *ov.TolerancePx
	}
	if ov.CorrectFeedback != "" {
		d.OnCorrect.Feedback = ov.CorrectFeedback
	}
	if ov.AutoAdvance != nil {
		d.OnCorrect.AutoAdvance = *ov.AutoAdvance
	}
	if ov.ShowHint != nil {
		d.OnIncorrect.ShowHint = *ov.ShowHint
	}
	if ov.MaxAttempts != nil {
		d.OnIncorrect.MaxAttempts = *ov.MaxAttempts
	}
	if ov.Points != nil {
		d.Scoring.Points = *ov.Points
	}
	if ov.PenaltyPerWrongClick != nil {
		d.Scoring.PenaltyPerWrongClick = *ov.PenaltyPerWrongClick
	}
	return o
}

// fill replaces zero values with the stock defaults
func (o Options) fill() Options {
	def := DefaultOptions()
	if o.Interactive.TargetWidth <= 0 {
		o.Interactive.TargetWidth = def.Interactive.TargetWidth
	}
	if o.Interactive.TargetHeight <= 0 {
		o.Interactive.TargetHeight = def.Interactive.TargetHeight
	}
	if o.Interactive.TolerancePx < 0 {
		o.Interactive.TolerancePx = 0
	}
	if o.Interactive.OnIncorrect.MaxAttempts <= 0 {
		o.Interactive.OnIncorrect.MaxAttempts = def.Interactive.OnIncorrect.MaxAttempts
	}
	if o.HighlightWidth <= 0 {
		o.HighlightWidth = def.HighlightWidth
	}
	if o.HighlightHeight <= 0 {
		o.HighlightHeight = def.HighlightHeight
	}
	if o.QuestionWindowMs <= 0 {
		o.QuestionWindowMs = def.QuestionWindowMs
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = def.DefaultLanguage
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = def.Viewport
	}
	if o.DocumentName == "" {
		o.DocumentName = def.DocumentName
	}
	if o.VideoExt == "" {
		o.VideoExt = def.VideoExt
	}
	if o.AudioExt == "" {
		o.AudioExt = def.AudioExt
	}
	if o.IDFunc == nil {
		o.IDFunc = def.IDFunc
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}
