package model

import "time"

// Subtitle is one narrated line shown during its activation window
type Subtitle struct {
	ID       string   `json:"id"`
	StepID   string   `json:"stepId"`
	Start    int64    `json:"start"`
	End      int64    `json:"end"`
	Text     string   `json:"text"`
	Language Language `json:"language,omitempty"`
}

// HighlightEntry is a positional overlay on the video layer
type HighlightEntry struct {
	ID             string                   `json:"id"`
	StepID         string                   `json:"stepId"`
	Start          int64                    `json:"start"`
	End            int64                    `json:"end"`
	Type           HighlightType            `json:"type"`
	Position       Position                 `json:"position"`
	Element        *ElementDescriptor       `json:"element,omitempty"`
	Translations   map[Language]Translation `json:"translations,omitempty"`
	ScreenshotFile string                   `json:"screenshotFile,omitempty"`
}

// Question is a comprehension check placed on the timeline
type Question struct {
	ID            string   `json:"id" validate:"required"`
	StepID        string   `json:"stepId,omitempty"`
	Start         int64    `json:"start" validate:"min=0"`
	End           int64    `json:"end" validate:"min=0"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOption int      `json:"correctOption" validate:"min=0"`
	PauseVideo    bool     `json:"pauseVideo"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ClickTarget is the rectangle a learner has to hit, in percent
type ClickTarget struct {
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	HighlightType HighlightType `json:"highlightType"`
	TolerancePx   float64       `json:"tolerancePx"`
}

// OnCorrect configures the reaction to a correct hit
type OnCorrect struct {
	Feedback    string `json:"feedback"`
	AutoAdvance bool   `json:"autoAdvance"`
}

// OnIncorrect configures the reaction to a miss
type OnIncorrect struct {
	Feedback    string `json:"feedback,omitempty"`
	ShowHint    bool   `json:"showHint"`
	MaxAttempts int    `json:"maxAttempts"`
}

// Scoring configures how a step is graded in test-me
type Scoring struct {
	Points               int `json:"points"`
	PenaltyPerWrongClick int `json:"penaltyPerWrongClick"`
}

// InteractiveStep is a gated click/type step for guide-me and test-me
type InteractiveStep struct {
	ID          string       `json:"id"`
	StepID      string       `json:"stepId"`
	Order       int          `json:"order"`
	Instruction string       `json:"instruction"`
	Hint        string       `json:"hint,omitempty"`
	Target      ClickTarget  `json:"target"`
	HintTarget  ClickTarget  `json:"hintTarget"`
	StartMs     int64        `json:"startMs"`
	EndMs       int64        `json:"endMs"`
	OnCorrect   *OnCorrect   `json:"onCorrect,omitempty"`
	OnIncorrect *OnIncorrect `json:"onIncorrect,omitempty"`
	Scoring     *Scoring     `json:"scoring,omitempty"`
}

// VideoLayer references the screen recording
type VideoLayer struct {
	Src string `json:"src"`
}

// AudioSegment is one narration clip aligned to a step
type AudioSegment struct {
	StepID     string `json:"stepId"`
	Src        string `json:"src,omitempty"`
	StartMs    int64  `json:"startMs"`
	DurationMs int64  `json:"durationMs"`
}

// AudioLayer references the narration track
type AudioLayer struct {
	Src      string         `json:"src,omitempty"`
	Segments []AudioSegment `json:"segments,omitempty"`
}

// Chapter is a seek target in the player menu
type Chapter struct {
	StepID  string `json:"stepId"`
	Title   string `json:"title"`
	StartMs int64  `json:"startMs"`
}

// Summary is the optional recap of a tutorial
type Summary struct {
	KeyPoints []string  `json:"keyPoints"`
	Chapters  []Chapter `json:"chapters"`
}

// Layers holds every time-indexed channel of a project
type Layers struct {
	Video      VideoLayer       `json:"video"`
	Audio      *AudioLayer      `json:"audio,omitempty"`
	Subtitles  []Subtitle       `json:"subtitles"`
	Highlights []HighlightEntry `json:"highlights"`
	Questions  []Question       `json:"questions"`
	Summary    *Summary         `json:"summary,omitempty"`
}

// Project is the interactive tutorial document
type Project struct {
	ID                 string            `json:"id" validate:"required"`
	Title              string            `json:"title"`
	Duration           int64             `json:"duration" validate:"min=0"`
	Layers             Layers            `json:"layers"`
	InteractiveSteps   []InteractiveStep `json:"interactiveSteps"`
	DefaultLanguage    Language          `json:"defaultLanguage" validate:"required"`
	AvailableLanguages []Language        `json:"availableLanguages" validate:"required,min=1"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// HasLanguage reports whether l is declared by the project.
func (p *Project) HasLanguage(l Language) bool {
	for _, v := range p.AvailableLanguages {
		if v == l {
			return true
		}
	}
	return false
}

// AssetFile is one file the caller must materialize next to the document
type AssetFile struct {
	Kind   AssetKind `json:"kind"`
	Source string    `json:"source,omitempty"`
	Target string    `json:"target"`
}

// AssetPlan names the files of an assembled project directory
type AssetPlan struct {
	Document string      `json:"document"`
	Files    []AssetFile `json:"files"`
}
