package model

// HighlightHint is a manual highlight marker recorded with a step.
// Coordinates are percent of the recording viewport; the compiler clamps
// out-of-range values.
type HighlightHint struct {
	X    float64       `json:"x"`
	Y    float64       `json:"y"`
	Type HighlightType `json:"type,omitempty" validate:"omitempty,oneof=click input hover focus spotlight"`
}

// TraceStep is one recorded automation instruction
type TraceStep struct {
	ID              string         `json:"id" validate:"required"`
	Action          StepAction     `json:"action" validate:"required,oneof=navigate click type hover scroll wait screenshot"`
	Selector        string         `json:"selector,omitempty"`
	Value           string         `json:"value,omitempty"`
	Description     string         `json:"description"`
	NarrationText   string         `json:"narrationText,omitempty"`
	WaitAfterMs     *int           `json:"waitAfterMs,omitempty" validate:"omitempty,min=0"`
	WaitForSelector string         `json:"waitForSelector,omitempty"`
	HighlightHint   *HighlightHint `json:"highlightHint,omitempty"`
}

// Timestamp is the execution window of one trace step. Negative or
// inverted windows are clamped by the compiler.
type Timestamp struct {
	StepID  string `json:"stepId" validate:"required"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// Duration returns the length of the window in milliseconds.
func (t Timestamp) Duration() int64 {
	return t.EndMs - t.StartMs
}

// Position is a viewport-relative rectangle in percent (0-100)
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementDescriptor describes one detected UI element
type ElementDescriptor struct {
	TagName   string     `json:"tagName"`
	FieldName string     `json:"fieldName"`
	FieldType string     `json:"fieldType,omitempty"`
	Action    StepAction `json:"action"`
	Value     string     `json:"value,omitempty"`
	Selector  string     `json:"selector"`
}

// Translation carries the per-language labels of a highlighted element
type Translation struct {
	FieldName         string `json:"fieldName"`
	ActionDescription string `json:"actionDescription"`
	Instruction       string `json:"instruction,omitempty"`
	Hint              string `json:"hint,omitempty"`
}

// BoundingBox is a pixel rectangle as reported by the automation driver
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the pixel size of a recording or player surface
type Viewport struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// DetectedElement is a raw element detection made by the driver while a step ran
type DetectedElement struct {
	StepID         string                   `json:"stepId" validate:"required"`
	Attributes     ElementAttributes        `json:"attributes"`
	BoundingBox    BoundingBox              `json:"boundingBox"`
	ScreenshotFile string                   `json:"screenshotFile,omitempty"`
	Translations   map[Language]Translation `json:"translations,omitempty"`
}

// ElementAttributes are the DOM facts used to infer a human field name
type ElementAttributes struct {
	TagName     string `json:"tagName"`
	Type        string `json:"type,omitempty"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Title       string `json:"title,omitempty"`
	Name        string `json:"name,omitempty"`
	Text        string `json:"text,omitempty"`
	Alt         string `json:"alt,omitempty"`
	Value       string `json:"value,omitempty"`
	Selector    string `json:"selector,omitempty"`
}
