package model

// Step actions recorded by the automation driver
type StepAction string

const (
	ActionNavigate   StepAction = "navigate"
	ActionClick      StepAction = "click"
	ActionType       StepAction = "type"
	ActionHover      StepAction = "hover"
	ActionScroll     StepAction = "scroll"
	ActionWait       StepAction = "wait"
	ActionScreenshot StepAction = "screenshot"
)

var ValidStepActions = []StepAction{
	ActionNavigate, ActionClick, ActionType, ActionHover,
	ActionScroll, ActionWait, ActionScreenshot,
}

// Interactive reports whether a step of this action can become an interactive step.
func (a StepAction) Interactive() bool {
	return a == ActionClick || a == ActionType
}

// Highlight types
type HighlightType string

const (
	HighlightClick     HighlightType = "click"
	HighlightInput     HighlightType = "input"
	HighlightHover     HighlightType = "hover"
	HighlightFocus     HighlightType = "focus"
	HighlightSpotlight HighlightType = "spotlight"
)

var ValidHighlightTypes = []HighlightType{
	HighlightClick, HighlightInput, HighlightHover, HighlightFocus, HighlightSpotlight,
}

// HighlightTypeFor returns the overlay style used for an action when the
// source carries no explicit type.
func HighlightTypeFor(a StepAction) HighlightType {
	switch a {
	case ActionType:
		return HighlightInput
	case ActionHover:
		return HighlightHover
	case ActionClick:
		return HighlightClick
	default:
		return HighlightSpotlight
	}
}

// Learning modes
type LearningMode string

const (
	ModeShowMe  LearningMode = "show-me"
	ModeGuideMe LearningMode = "guide-me"
	ModeTestMe  LearningMode = "test-me"
)

var ValidLearningModes = []LearningMode{ModeShowMe, ModeGuideMe, ModeTestMe}

// Interactive reports whether the mode is gated by interactive steps.
func (m LearningMode) Interactive() bool {
	return m == ModeGuideMe || m == ModeTestMe
}

// Valid reports whether m is one of the known modes.
func (m LearningMode) Valid() bool {
	for _, v := range ValidLearningModes {
		if v == m {
			return true
		}
	}
	return false
}

// Language codes
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
	LanguageFR Language = "fr"
	LanguageDE Language = "de"
	LanguageTR Language = "tr"
	LanguagePT Language = "pt"
	LanguageIT Language = "it"
	LanguageJA Language = "ja"
)

var ValidLanguages = []Language{
	LanguageEN, LanguageES, LanguageFR, LanguageDE,
	LanguageTR, LanguagePT, LanguageIT, LanguageJA,
}

// Valid reports whether l is one of the supported language codes.
func (l Language) Valid() bool {
	for _, v := range ValidLanguages {
		if v == l {
			return true
		}
	}
	return false
}

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Asset kinds in an assembly plan
type AssetKind string

const (
	AssetDocument   AssetKind = "document"
	AssetVideo      AssetKind = "video"
	AssetAudio      AssetKind = "audio"
	AssetScreenshot AssetKind = "screenshot"
)

// Playback engine states
type PlaybackState string

const (
	StateIdle            PlaybackState = "idle"
	StatePlaying         PlaybackState = "playing"
	StateWaitingForInput PlaybackState = "waiting-for-input"
	StateEvaluating      PlaybackState = "evaluating"
	StateCorrect         PlaybackState = "correct"
	StateIncorrect       PlaybackState = "incorrect"
	StateAdvancing       PlaybackState = "advancing"
	StateComplete        PlaybackState = "complete"
)
