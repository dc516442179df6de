package element

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcast/api/internal/model"
)

func TestInferFieldNameOrder(t *testing.T) {
	full := model.ElementAttributes{
		TagName:     "INPUT",
		Type:        "email",
		Label:       "Email address *",
		Placeholder: "you@example.com",
		AriaLabel:   "email",
		Title:       "Your email",
		Name:        "user_email",
		Text:        "ignored",
		Alt:         "ignored",
		Value:       "ignored",
	}

	tests := []struct {
		name  string
		attrs func(a model.ElementAttributes) model.ElementAttributes
		want  string
	}{
		{"label first", func(a model.ElementAttributes) model.ElementAttributes { return a }, "Email address"},
		{"placeholder", func(a model.ElementAttributes) model.ElementAttributes {
			a.Label = ""
			return a
		}, "you@example.com"},
		{"aria-label", func(a model.ElementAttributes) model.ElementAttributes {
			a.Label, a.Placeholder = "", ""
			return a
		}, "email"},
		{"title", func(a model.ElementAttributes) model.ElementAttributes {
			a.Label, a.Placeholder, a.AriaLabel = "", "", ""
			return a
		}, "Your email"},
		{"name humanized", func(a model.ElementAttributes) model.ElementAttributes {
			a.Label, a.Placeholder, a.AriaLabel, a.Title = "", "", "", ""
			return a
		}, "user email"},
		{"text", func(a model.ElementAttributes) model.ElementAttributes {
			return model.ElementAttributes{TagName: "button", Text: "  Sign \n up ", Alt: "x"}
		}, "Sign up"},
		{"alt", func(a model.ElementAttributes) model.ElementAttributes {
			return model.ElementAttributes{TagName: "img", Alt: "Company logo", Value: "v"}
		}, "Company logo"},
		{"value", func(a model.ElementAttributes) model.ElementAttributes {
			return model.ElementAttributes{TagName: "input", Type: "submit", Value: "Send"}
		}, "Send"},
		{"fallback with type", func(a model.ElementAttributes) model.ElementAttributes {
			return model.ElementAttributes{TagName: "INPUT", Type: "checkbox"}
		}, "checkbox input"},
		{"fallback bare", func(a model.ElementAttributes) model.ElementAttributes {
			return model.ElementAttributes{}
		}, "element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFieldName(tt.attrs(full)))
		})
	}
}

func TestInferSkipsContainerNoise(t *testing.T) {
	attrs := model.ElementAttributes{
		TagName: "div",
		Text:    strings.Repeat("long paragraph ", 10),
		Alt:     "Menu",
	}
	assert.Equal(t, "Menu", InferFieldName(attrs))
}

func TestRulesInsertBefore(t *testing.T) {
	testID := Rule{Name: "data-testid", Resolve: func(a model.ElementAttributes) string {
		if strings.HasPrefix(a.Selector, "[data-testid=") {
			return strings.Trim(strings.TrimPrefix(a.Selector, "[data-testid="), "\"']")
		}
		return ""
	}}

	rules := DefaultRules.InsertBefore("name", testID)
	require.Len(t, rules, len(DefaultRules)+1)
	assert.Equal(t, "data-testid", rules[4].Name)
	assert.Equal(t, "name", rules[5].Name)

	attrs := model.ElementAttributes{TagName: "button", Name: "go", Selector: `[data-testid="checkout"]`}
	assert.Equal(t, "checkout", rules.Infer(attrs))
	assert.Equal(t, "go", DefaultRules.Infer(attrs))

	appended := DefaultRules.InsertBefore("missing", testID)
	assert.Equal(t, "data-testid", appended[len(appended)-2].Name)
	assert.Equal(t, "fallback", appended[len(appended)-1].Name)
}

func TestDescribe(t *testing.T) {
	d := model.DetectedElement{
		StepID:     "s2",
		Attributes: model.ElementAttributes{TagName: "INPUT", Type: "email", Label: "Email"},
	}
	step := model.TraceStep{ID: "s2", Action: model.ActionType, Selector: "#email", Value: "a@b.co"}

	desc := Describe(d, step)
	assert.Equal(t, "input", desc.TagName)
	assert.Equal(t, "Email", desc.FieldName)
	assert.Equal(t, "email", desc.FieldType)
	assert.Equal(t, "#email", desc.Selector)
	assert.Equal(t, "a@b.co", desc.Value)

	tr := DefaultTranslation(desc)
	assert.Equal(t, `Type "a@b.co" into Email`, tr.ActionDescription)
	assert.Equal(t, "Email", tr.FieldName)

	step.Action = model.ActionClick
	assert.Empty(t, Describe(d, step).Value)
	assert.Equal(t, "Click Email", DescribeAction(Describe(d, step)))
}

func TestNormalize(t *testing.T) {
	vp := model.Viewport{Width: 1280, Height: 720}

	p := Normalize(model.BoundingBox{X: 640, Y: 360, Width: 128, Height: 72}, vp)
	assert.Equal(t, model.Position{X: 50, Y: 50, Width: 10, Height: 10}, p)

	p = Normalize(model.BoundingBox{X: 1200, Y: -10, Width: 200, Height: 50}, vp)
	assert.Equal(t, 93.75, p.X)
	assert.Equal(t, 6.25, p.Width)
	assert.Equal(t, 0.0, p.Y)

	assert.Equal(t, model.Position{}, Normalize(model.BoundingBox{X: 1}, model.Viewport{}))
}

func TestClamp(t *testing.T) {
	p, changed := Clamp(model.Position{X: 95, Y: 10, Width: 10, Height: 5})
	assert.True(t, changed)
	assert.Equal(t, model.Position{X: 95, Y: 10, Width: 5, Height: 5}, p)

	p, changed = Clamp(model.Position{X: -5, Y: 120, Width: -1, Height: 3})
	assert.True(t, changed)
	assert.Equal(t, model.Position{X: 0, Y: 100, Width: 0, Height: 0}, p)

	_, changed = Clamp(model.Position{X: 1, Y: 2, Width: 3, Height: 4})
	assert.False(t, changed)
}

func TestContainsWithTolerance(t *testing.T) {
	target := model.Position{X: 50, Y: 50, Width: 10, Height: 8}
	dx, dy := TolerancePercent(15, model.Viewport{Width: 1280, Height: 720})

	assert.True(t, Contains(target, dx, dy, 55, 54))
	assert.False(t, Contains(target, dx, dy, 70, 70))
	assert.True(t, Contains(target, 0, 0, 60, 58), "edges are inside")
	assert.True(t, Contains(target, dx, dy, 50-dx, 50-dy))
	assert.False(t, Contains(target, 0, 0, 49.99, 50))
}
