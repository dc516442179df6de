// Package compiler turns a recorded automation trace into a layered,
// time-indexed tutorial project. It performs no I/O.
package compiler

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/tutorcast/api/internal/model"
)

// ErrUnknownStep is returned when an input entry references a step id that
// is not in the trace.
var ErrUnknownStep = errors.New("unknown step")

// Input is everything the automation driver hands over for one tutorial
type Input struct {
	Title            string
	Steps            []model.TraceStep
	Timestamps       []model.Timestamp
	Narration        *model.NarrationTrack
	Questions        []model.Question
	AutoHighlights   []model.HighlightEntry
	DetectedElements []model.DetectedElement
	Viewport         *model.Viewport
	Recording        *model.Recording
}

// InputFromRequest maps the driver's wire request onto an Input.
func InputFromRequest(req *model.CompileRequest) Input {
	return Input{
		Title:            req.Title,
		Steps:            req.Steps,
		Timestamps:       req.Timestamps,
		Narration:        req.Narration,
		Questions:        req.Questions,
		AutoHighlights:   req.AutoHighlights,
		DetectedElements: req.DetectedElements,
		Viewport:         req.Viewport,
		Recording:        req.Recording,
	}
}

// Result is a compiled project plus the files the caller has to materialize
type Result struct {
	Project  *model.Project
	Assets   model.AssetPlan
	Warnings []string

	// HighlightSource names the strategy that built the highlight layer.
	HighlightSource string
}

// compilation carries the indexed input through the generators
type compilation struct {
	in    Input
	opts  Options
	steps []model.TraceStep
	byID  map[string]model.TraceStep
	ts    map[string]model.Timestamp
	langs []model.Language

	highlights []model.HighlightEntry
	measured   bool
	warnings   []string
}

func (c *compilation) warnf(format string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Compile builds a new Project from in. Every call yields a fresh project id;
// everything else is deterministic for identical input.
func Compile(in Input, opts Options) (*Result, error) {
	c := &compilation{in: in, opts: opts.fill()}

	c.indexSteps()
	c.resolveLanguages()
	if err := c.indexTimestamps(); err != nil {
		return nil, err
	}

	strategy := selectHighlightStrategy(in)
	highlights, err := strategy.build(c)
	if err != nil {
		return nil, err
	}
	c.highlights = highlights
	c.measured = strategy.measured()
	c.fillTranslations()

	questions, err := c.questions()
	if err != nil {
		return nil, err
	}
	audio, err := c.audio()
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		ID:       c.opts.IDFunc(),
		Title:    strings.TrimSpace(in.Title),
		Duration: c.duration(),
		Layers: model.Layers{
			Video:      model.VideoLayer{Src: c.videoFile()},
			Audio:      audio,
			Subtitles:  c.subtitles(),
			Highlights: c.highlights,
			Questions:  questions,
		},
		InteractiveSteps:   c.interactiveSteps(),
		DefaultLanguage:    c.opts.DefaultLanguage,
		AvailableLanguages: c.langs,
		CreatedAt:          c.opts.Now().UTC(),
	}
	if c.opts.GenerateSummary {
		project.Layers.Summary = c.summary()
	}

	c.sortLayers(&project.Layers)
	assets := c.assetPlan(project)

	return &Result{
		Project:         project,
		Assets:          assets,
		Warnings:        c.warnings,
		HighlightSource: strategy.name(),
	}, nil
}

// indexSteps drops duplicate step ids, keeping the first occurrence
func (c *compilation) indexSteps() {
	c.byID = make(map[string]model.TraceStep, len(c.in.Steps))
	c.steps = make([]model.TraceStep, 0, len(c.in.Steps))
	for _, s := range c.in.Steps {
		if _, dup := c.byID[s.ID]; dup {
			c.warnf("step %q: duplicate id, keeping the first occurrence", s.ID)
			continue
		}
		c.byID[s.ID] = s
		c.steps = append(c.steps, s)
	}
}

func (c *compilation) resolveLanguages() {
	seen := make(map[model.Language]bool)
	for _, l := range c.opts.AvailableLanguages {
		if !l.Valid() {
			c.warnf("language %q is not supported, dropped", l)
			continue
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		c.langs = append(c.langs, l)
	}

	def := c.opts.DefaultLanguage
	if !def.Valid() {
		c.warnf("default language %q is not supported, using %s", def, model.LanguageEN)
		def = model.LanguageEN
		c.opts.DefaultLanguage = def
	}
	if !seen[def] {
		c.langs = append([]model.Language{def}, c.langs...)
	}
}

func (c *compilation) indexTimestamps() error {
	c.ts = make(map[string]model.Timestamp, len(c.in.Timestamps))
	for i, t := range c.in.Timestamps {
		if _, ok := c.byID[t.StepID]; !ok {
			return fmt.Errorf("timestamp %d references step %q: %w", i, t.StepID, ErrUnknownStep)
		}
		if _, dup := c.ts[t.StepID]; dup {
			c.warnf("step %q: duplicate timestamp ignored", t.StepID)
			continue
		}
		if t.StartMs < 0 {
			c.warnf("step %q: negative start clamped to 0", t.StepID)
			t.StartMs = 0
		}
		if t.EndMs < t.StartMs {
			c.warnf("step %q: end %d before start %d, clamped", t.StepID, t.EndMs, t.StartMs)
			t.EndMs = t.StartMs
		}
		c.ts[t.StepID] = t
	}
	return nil
}

// duration is the last end time over all timestamps
func (c *compilation) duration() int64 {
	var last int64
	for _, t := range c.ts {
		if t.EndMs > last {
			last = t.EndMs
		}
	}
	return last
}

func (c *compilation) requireStep(kind string, i int, stepID string) error {
	if _, ok := c.byID[stepID]; !ok {
		return fmt.Errorf("%s %d references step %q: %w", kind, i, stepID, ErrUnknownStep)
	}
	return nil
}

func (c *compilation) subtitles() []model.Subtitle {
	subs := make([]model.Subtitle, 0)
	for _, s := range c.steps {
		text := strings.TrimSpace(s.NarrationText)
		if text == "" {
			continue
		}
		t, ok := c.ts[s.ID]
		if !ok {
			continue
		}
		subs = append(subs, model.Subtitle{
			ID:       "sub-" + s.ID,
			StepID:   s.ID,
			Start:    t.StartMs,
			End:      t.EndMs,
			Text:     text,
			Language: c.opts.DefaultLanguage,
		})
	}
	return subs
}

func (c *compilation) questions() ([]model.Question, error) {
	out := make([]model.Question, 0, len(c.in.Questions))
	seen := make(map[string]bool)
	for i, q := range c.in.Questions {
		if q.StepID != "" {
			if err := c.requireStep("question", i, q.StepID); err != nil {
				return nil, err
			}
		}
		if seen[q.ID] {
			c.warnf("question %q: duplicate id, keeping the first occurrence", q.ID)
			continue
		}
		seen[q.ID] = true

		q.Options = append([]string(nil), q.Options...)
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			c.warnf("question %q: correct option %d out of range, using 0", q.ID, q.CorrectOption)
			q.CorrectOption = 0
		}

		if q.End <= q.Start {
			t, ok := c.ts[q.StepID]
			if !ok {
				c.warnf("question %q: no activation window, dropped", q.ID)
				continue
			}
			q.Start = t.EndMs - c.opts.QuestionWindowMs
			if q.Start < t.StartMs {
				q.Start = t.StartMs
			}
			q.End = t.EndMs
			if q.End == q.Start {
				q.End = q.Start + c.opts.QuestionWindowMs
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func (c *compilation) audio() (*model.AudioLayer, error) {
	n := c.in.Narration
	if n == nil {
		return nil, nil
	}

	layer := &model.AudioLayer{Segments: make([]model.AudioSegment, 0, len(n.Segments))}
	if n.Source != "" {
		layer.Src = "narration." + c.audioExt()
	}
	for i, seg := range n.Segments {
		if err := c.requireStep("narration segment", i, seg.StepID); err != nil {
			return nil, err
		}
		t, ok := c.ts[seg.StepID]
		if !ok {
			continue
		}
		layer.Segments = append(layer.Segments, model.AudioSegment{
			StepID:     seg.StepID,
			Src:        seg.Src,
			StartMs:    t.StartMs,
			DurationMs: seg.DurationMs,
		})
	}
	if layer.Src == "" && len(layer.Segments) == 0 {
		return nil, nil
	}
	return layer, nil
}

func (c *compilation) summary() *model.Summary {
	sum := &model.Summary{KeyPoints: make([]string, 0), Chapters: make([]model.Chapter, 0)}
	for _, s := range c.steps {
		desc := strings.TrimSpace(s.Description)
		if s.Action != model.ActionWait && desc != "" {
			sum.KeyPoints = append(sum.KeyPoints, desc)
		}
		if s.Action != model.ActionNavigate && s.Action != model.ActionClick {
			continue
		}
		t, ok := c.ts[s.ID]
		if !ok {
			continue
		}
		title := desc
		if title == "" {
			title = string(s.Action) + " " + s.ID
		}
		sum.Chapters = append(sum.Chapters, model.Chapter{StepID: s.ID, Title: title, StartMs: t.StartMs})
	}
	return sum
}

// sortLayers orders entries by start time and trims same-layer overlaps.
// Subtitles and questions each hold one entry at a time, so an earlier
// window ends where the next one starts. Non-overlapping windows keep their
// timestamps exactly.
func (c *compilation) sortLayers(l *model.Layers) {
	sort.SliceStable(l.Subtitles, func(i, j int) bool { return l.Subtitles[i].Start < l.Subtitles[j].Start })
	for i := 1; i < len(l.Subtitles); i++ {
		prev := &l.Subtitles[i-1]
		if cur := l.Subtitles[i]; cur.Start < prev.End {
			c.warnf("subtitle %q overlaps %q, trimmed to %d", prev.ID, cur.ID, cur.Start)
			prev.End = cur.Start
		}
	}

	sort.SliceStable(l.Questions, func(i, j int) bool { return l.Questions[i].Start < l.Questions[j].Start })
	for i := 1; i < len(l.Questions); i++ {
		prev := &l.Questions[i-1]
		if cur := l.Questions[i]; cur.Start < prev.End {
			c.warnf("question %q overlaps %q, trimmed to %d", prev.ID, cur.ID, cur.Start)
			prev.End = cur.Start
		}
	}

	sort.SliceStable(l.Highlights, func(i, j int) bool { return l.Highlights[i].Start < l.Highlights[j].Start })
}

func (c *compilation) videoFile() string {
	return "video." + c.videoExt()
}

func (c *compilation) videoExt() string {
	if r := c.in.Recording; r != nil {
		if ext := strings.TrimPrefix(path.Ext(r.VideoFile), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}
	return c.opts.VideoExt
}

func (c *compilation) audioExt() string {
	if n := c.in.Narration; n != nil {
		if n.Format != "" {
			return n.Format
		}
		if ext := strings.TrimPrefix(path.Ext(n.Source), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}
	return c.opts.AudioExt
}

// assetPlan names every file of the project directory. Highlight screenshot
// references are rewritten to their name inside screenshots/.
func (c *compilation) assetPlan(p *model.Project) model.AssetPlan {
	plan := model.AssetPlan{Document: c.opts.DocumentName}
	plan.Files = append(plan.Files, model.AssetFile{Kind: model.AssetDocument, Target: c.opts.DocumentName})

	video := model.AssetFile{Kind: model.AssetVideo, Target: p.Layers.Video.Src}
	if c.in.Recording != nil {
		video.Source = c.in.Recording.VideoFile
	}
	plan.Files = append(plan.Files, video)

	if p.Layers.Audio != nil && p.Layers.Audio.Src != "" {
		plan.Files = append(plan.Files, model.AssetFile{
			Kind:   model.AssetAudio,
			Source: c.in.Narration.Source,
			Target: p.Layers.Audio.Src,
		})
	}

	planned := make(map[string]bool)
	for i := range p.Layers.Highlights {
		h := &p.Layers.Highlights[i]
		if h.ScreenshotFile == "" {
			continue
		}
		source := h.ScreenshotFile
		name := path.Base(strings.ReplaceAll(source, "\\", "/"))
		h.ScreenshotFile = name
		if planned[name] {
			continue
		}
		planned[name] = true
		plan.Files = append(plan.Files, model.AssetFile{
			Kind:   model.AssetScreenshot,
			Source: source,
			Target: path.Join("screenshots", name),
		})
	}
	return plan
}
