// Package element turns raw driver detections into element descriptors
// with a human field name and a viewport-relative position.
package element

import (
	"fmt"
	"strings"

	"github.com/tutorcast/api/internal/model"
)

// MaxLabelLength drops candidate labels longer than this; long text usually
// belongs to a container, not the control itself.
const MaxLabelLength = 40

// Rule resolves one candidate field name from element attributes.
// An empty return means the rule does not apply.
type Rule struct {
	Name    string
	Resolve func(model.ElementAttributes) string
}

// Rules is an ordered field-name lookup; the first rule returning a usable
// label wins.
type Rules []Rule

func attr(name string, get func(model.ElementAttributes) string) Rule {
	return Rule{Name: name, Resolve: get}
}

// DefaultRules is the built-in lookup order.
var DefaultRules = Rules{
	attr("label", func(a model.ElementAttributes) string { return a.Label }),
	attr("placeholder", func(a model.ElementAttributes) string { return a.Placeholder }),
	attr("aria-label", func(a model.ElementAttributes) string { return a.AriaLabel }),
	attr("title", func(a model.ElementAttributes) string { return a.Title }),
	attr("name", func(a model.ElementAttributes) string { return humanizeName(a.Name) }),
	attr("text", func(a model.ElementAttributes) string { return a.Text }),
	attr("alt", func(a model.ElementAttributes) string { return a.Alt }),
	attr("value", func(a model.ElementAttributes) string { return a.Value }),
	{Name: "fallback", Resolve: fallbackName},
}

// InsertBefore returns a copy of r with rule placed ahead of the rule named
// before. The rule is appended ahead of the fallback when before is unknown.
func (r Rules) InsertBefore(before string, rule Rule) Rules {
	at := len(r)
	for i, existing := range r {
		if existing.Name == before {
			at = i
			break
		}
		if existing.Name == "fallback" {
			at = i
		}
	}

	out := make(Rules, 0, len(r)+1)
	out = append(out, r[:at]...)
	out = append(out, rule)
	out = append(out, r[at:]...)
	return out
}

// Infer returns the first usable label.
func (r Rules) Infer(attrs model.ElementAttributes) string {
	for _, rule := range r {
		label := cleanLabel(rule.Resolve(attrs))
		if label == "" {
			continue
		}
		if rule.Name != "fallback" && len(label) > MaxLabelLength {
			continue
		}
		return label
	}
	return fallbackName(attrs)
}

// InferFieldName resolves a field name with DefaultRules.
func InferFieldName(attrs model.ElementAttributes) string {
	return DefaultRules.Infer(attrs)
}

func fallbackName(a model.ElementAttributes) string {
	tag := strings.ToLower(strings.TrimSpace(a.TagName))
	if tag == "" {
		tag = "element"
	}
	if a.Type != "" && a.Type != tag {
		return strings.ToLower(a.Type) + " " + tag
	}
	return tag
}

// cleanLabel collapses whitespace and strips required-field markers
func cleanLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ":* ")
	return s
}

// humanizeName turns form names like "first_name" into "first name"
func humanizeName(s string) string {
	return strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
}

// Describe builds the descriptor for a detection made while step ran.
func Describe(d model.DetectedElement, step model.TraceStep) model.ElementDescriptor {
	desc := model.ElementDescriptor{
		TagName:   strings.ToLower(d.Attributes.TagName),
		FieldName: InferFieldName(d.Attributes),
		FieldType: d.Attributes.Type,
		Action:    step.Action,
		Selector:  d.Attributes.Selector,
	}
	if desc.Selector == "" {
		desc.Selector = step.Selector
	}
	if step.Action == model.ActionType {
		desc.Value = step.Value
	}
	return desc
}

// DescribeAction is the English action phrase for a descriptor.
func DescribeAction(desc model.ElementDescriptor) string {
	field := desc.FieldName
	if field == "" {
		field = "the highlighted element"
	}

	switch desc.Action {
	case model.ActionClick:
		return fmt.Sprintf("Click %s", field)
	case model.ActionType:
		if desc.Value != "" {
			return fmt.Sprintf("Type %q into %s", desc.Value, field)
		}
		return fmt.Sprintf("Fill in %s", field)
	case model.ActionHover:
		return fmt.Sprintf("Hover over %s", field)
	case model.ActionNavigate:
		return fmt.Sprintf("Open %s", field)
	default:
		return fmt.Sprintf("Look at %s", field)
	}
}

// DefaultTranslation is the translation used when a declared language has none.
func DefaultTranslation(desc model.ElementDescriptor) model.Translation {
	action := DescribeAction(desc)
	return model.Translation{
		FieldName:         desc.FieldName,
		ActionDescription: action,
		Instruction:       action,
		Hint:              fmt.Sprintf("Look for %s", desc.FieldName),
	}
}
