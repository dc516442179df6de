package model

import "github.com/go-playground/validator/v10"

// NewValidator returns a validator with the trace-step variant rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(traceStepStructLevel, TraceStep{})
	return v
}

// traceStepStructLevel checks the fields each action requires
func traceStepStructLevel(sl validator.StructLevel) {
	step := sl.Current().Interface().(TraceStep)

	switch step.Action {
	case ActionNavigate:
		if step.Value == "" {
			sl.ReportError(step.Value, "value", "Value", "required_for_navigate", "")
		}
	case ActionClick, ActionHover:
		if step.Selector == "" {
			sl.ReportError(step.Selector, "selector", "Selector", "required_for_"+string(step.Action), "")
		}
	case ActionType:
		if step.Selector == "" {
			sl.ReportError(step.Selector, "selector", "Selector", "required_for_type", "")
		}
		if step.Value == "" {
			sl.ReportError(step.Value, "value", "Value", "required_for_type", "")
		}
	case ActionWait:
		if step.WaitAfterMs == nil && step.WaitForSelector == "" {
			sl.ReportError(step.WaitAfterMs, "waitAfterMs", "WaitAfterMs", "required_for_wait", "")
		}
	}
}
