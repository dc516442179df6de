package model

import "time"

// NarrationSegment is the synthesized audio for one step's narration
type NarrationSegment struct {
	StepID     string `json:"stepId" validate:"required"`
	Src        string `json:"src,omitempty"`
	DurationMs int64  `json:"durationMs" validate:"min=0"`
}

// NarrationTrack is the narration input of a compile run
type NarrationTrack struct {
	Format   string             `json:"format,omitempty" validate:"omitempty,oneof=mp3 wav ogg m4a"`
	Source   string             `json:"source,omitempty"`
	Segments []NarrationSegment `json:"segments,omitempty" validate:"dive"`
}

// Recording points at the driver's output files for assembly
type Recording struct {
	ID        string `json:"id" validate:"required,max=128"`
	VideoFile string `json:"videoFile" validate:"required"`
}

// InteractiveOverrides replaces the configured interactive-step defaults for one compile
type InteractiveOverrides struct {
	TargetWidth          *float64 `json:"targetWidth,omitempty" validate:"omitempty,gt=0,max=100"`
	TargetHeight         *float64 `json:"targetHeight,omitempty" validate:"omitempty,gt=0,max=100"`
	TolerancePx          *float64 `json:"tolerancePx,omitempty" validate:"omitempty,min=0,max=200"`
	CorrectFeedback      string   `json:"correctFeedback,omitempty" validate:"max=200"`
	AutoAdvance          *bool    `json:"autoAdvance,omitempty"`
	ShowHint             *bool    `json:"showHint,omitempty"`
	MaxAttempts          *int     `json:"maxAttempts,omitempty" validate:"omitempty,min=1,max=20"`
	Points               *int     `json:"points,omitempty" validate:"omitempty,min=0,max=1000"`
	PenaltyPerWrongClick *int     `json:"penaltyPerWrongClick,omitempty" validate:"omitempty,min=0,max=1000"`
}

// CompileOptions are the per-request compiler switches
type CompileOptions struct {
	GenerateSummary     bool                  `json:"generateSummary"`
	DefaultLanguage     Language              `json:"defaultLanguage,omitempty" validate:"omitempty,oneof=en es fr de tr pt it ja"`
	AvailableLanguages  []Language            `json:"availableLanguages,omitempty" validate:"omitempty,max=8,dive,oneof=en es fr de tr pt it ja"`
	SynthesizeNarration bool                  `json:"synthesizeNarration"`
	Voice               string                `json:"voice,omitempty" validate:"max=64"`
	Interactive         *InteractiveOverrides `json:"interactive,omitempty"`
}

// CompileRequest is the wire contract of the automation driver
type CompileRequest struct {
	Title            string            `json:"title" validate:"required,max=200"`
	Steps            []TraceStep       `json:"steps" validate:"max=2000,dive"`
	Timestamps       []Timestamp       `json:"timestamps" validate:"max=2000,dive"`
	Narration        *NarrationTrack   `json:"narration,omitempty"`
	Questions        []Question        `json:"questions,omitempty" validate:"max=200,dive"`
	AutoHighlights   []HighlightEntry  `json:"autoHighlights,omitempty" validate:"max=2000"`
	DetectedElements []DetectedElement `json:"detectedElements,omitempty" validate:"max=2000,dive"`
	Viewport         *Viewport         `json:"viewport,omitempty"`
	Recording        *Recording        `json:"recording,omitempty"`
	Options          CompileOptions    `json:"options"`
}

// CompileResponse is returned by a synchronous compile
type CompileResponse struct {
	Project   *Project  `json:"project"`
	AssetPlan AssetPlan `json:"assetPlan"`
	Warnings  []string  `json:"warnings"`
}

// CompileStartResponse is returned when a compile job is queued
type CompileStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompileStatusResponse reports the state of a compile job
type CompileStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	RetryCount  int        `json:"retryCount"`
}

// CompileResultResponse is the outcome of a finished compile job
type CompileResultResponse struct {
	ProjectID   string    `json:"projectId"`
	Project     *Project  `json:"project"`
	AssetPlan   AssetPlan `json:"assetPlan"`
	Warnings    []string  `json:"warnings"`
	DocumentURL string    `json:"documentUrl,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// CompileCancelResponse is returned when a compile job is canceled
type CompileCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}
