package assembly

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcast/api/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func samplePlan() (model.AssetPlan, *model.Project) {
	p := &model.Project{
		ID:                 "p1",
		Title:              "Demo",
		Duration:           4000,
		Layers:             model.Layers{Video: model.VideoLayer{Src: "video.mp4"}},
		DefaultLanguage:    model.LanguageEN,
		AvailableLanguages: []model.Language{model.LanguageEN},
	}
	plan := model.AssetPlan{
		Document: "project.json",
		Files: []model.AssetFile{
			{Kind: model.AssetDocument, Target: "project.json"},
			{Kind: model.AssetVideo, Source: "rec/session.webm", Target: "video.mp4"},
			{Kind: model.AssetScreenshot, Source: "rec/shots/s1.png", Target: "screenshots/s1.png"},
		},
	}
	return plan, p
}

func TestMaterialize_Dir(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeFile(t, src, "rec/session.webm", "VIDEO")
	writeFile(t, src, "rec/shots/s1.png", "PNG")

	plan, p := samplePlan()
	report, err := Materialize(context.Background(), plan, p, DirSource{Root: src}, DirSink{Root: out}, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Missing)
	assert.Len(t, report.Written, 3)
	assert.Equal(t, filepath.Join(out, "project.json"), report.DocumentLocation)

	video, err := os.ReadFile(filepath.Join(out, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "VIDEO", string(video))
	shot, err := os.ReadFile(filepath.Join(out, "screenshots", "s1.png"))
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(shot))

	doc, err := os.ReadFile(filepath.Join(out, "project.json"))
	require.NoError(t, err)
	var back model.Project
	require.NoError(t, json.Unmarshal(doc, &back))
	assert.Equal(t, "p1", back.ID)
	assert.Equal(t, "video.mp4", back.Layers.Video.Src)
}

func TestMaterialize_MissingSource(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeFile(t, src, "rec/session.webm", "VIDEO")

	plan, p := samplePlan()
	report, err := Materialize(context.Background(), plan, p, DirSource{Root: src}, DirSink{Root: out}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"screenshots/s1.png"}, report.Missing)

	_, err = Materialize(context.Background(), plan, p, DirSource{Root: src}, DirSink{Root: t.TempDir()}, Options{Strict: true})
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestMaterialize_NoVideoSource(t *testing.T) {
	plan, p := samplePlan()
	plan.Files = plan.Files[:2]
	plan.Files[1].Source = ""

	out := t.TempDir()
	report, err := Materialize(context.Background(), plan, p, DirSource{Root: t.TempDir()}, DirSink{Root: out}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"video.mp4"}, report.Missing)
	assert.FileExists(t, filepath.Join(out, "project.json"))
}

func TestMaterialize_UnsafeTarget(t *testing.T) {
	plan, p := samplePlan()
	plan.Files[2].Target = "../outside.png"
	_, err := Materialize(context.Background(), plan, p, DirSource{Root: t.TempDir()}, DirSink{Root: t.TempDir()}, Options{})
	assert.ErrorIs(t, err, ErrUnsafeTarget)

	assert.ErrorIs(t, checkTarget("/etc/passwd"), ErrUnsafeTarget)
	assert.NoError(t, checkTarget("screenshots/a.png"))
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (m *memStorage) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (m *memStorage) Delete(context.Context, string) error { return nil }

func (m *memStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.test/" + key + "?signed", nil
}

func (m *memStorage) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func TestMaterialize_ObjectSink(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "rec/session.webm", "VIDEO")
	writeFile(t, src, "rec/shots/s1.png", "PNG")

	store := &memStorage{objects: map[string]string{}, types: map[string]string{}}
	plan, p := samplePlan()
	report, err := Materialize(context.Background(), plan, p, DirSource{Root: src}, ObjectSink{Storage: store, Prefix: "projects/p1"}, Options{Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.test/projects/p1/project.json", report.DocumentLocation)
	assert.Equal(t, "VIDEO", store.objects["projects/p1/video.mp4"])
	assert.Equal(t, "PNG", store.objects["projects/p1/screenshots/s1.png"])
	assert.Equal(t, "application/json", store.types["projects/p1/project.json"])
}

func TestDirSource_RejectsEscapes(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "secret.txt", "TOP-SECRET")
	root := filepath.Join(base, "recordings")
	writeFile(t, root, "rec/session.webm", "VIDEO")
	src := DirSource{Root: root}

	for _, name := range []string{
		filepath.Join(base, "secret.txt"),
		"/etc/passwd",
		"../secret.txt",
		"rec/../../secret.txt",
		`..\secret.txt`,
		"",
	} {
		_, err := src.Open(name)
		assert.ErrorIs(t, err, ErrUnsafeSource, name)
	}

	r, err := src.Open("rec/../rec/session.webm")
	require.NoError(t, err)
	r.Close()
}

func TestMaterialize_UnsafeSourceIsNotPublished(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "secret.txt", "TOP-SECRET")
	root := filepath.Join(base, "recordings")
	require.NoError(t, os.MkdirAll(root, 0o755))

	for _, source := range []string{filepath.Join(base, "secret.txt"), "../secret.txt"} {
		plan, p := samplePlan()
		plan.Files = plan.Files[:2]
		plan.Files[1].Source = source

		out := t.TempDir()
		_, err := Materialize(context.Background(), plan, p, DirSource{Root: root}, DirSink{Root: out}, Options{})
		assert.ErrorIs(t, err, ErrUnsafeSource, source)
		assert.NoFileExists(t, filepath.Join(out, "video.mp4"))
		assert.NoFileExists(t, filepath.Join(out, "project.json"))
	}
}

// gatedSink holds every write until release is closed
type gatedSink struct {
	release chan struct{}
	mu      sync.Mutex
	written []string
}

func (s *gatedSink) Write(_ context.Context, target string, r io.Reader, _ string) (string, error) {
	<-s.release
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, target)
	return target, nil
}

func (s *gatedSink) targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func TestMaterialize_RejectedPlanStartsNoCopies(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "rec/session.webm", "VIDEO")

	plans := map[string]func(*model.AssetPlan){
		"strict missing source": func(plan *model.AssetPlan) { plan.Files[2].Source = "" },
		"unsafe target":         func(plan *model.AssetPlan) { plan.Files[2].Target = "../outside.png" },
	}
	for name, mutate := range plans {
		t.Run(name, func(t *testing.T) {
			plan, p := samplePlan()
			mutate(&plan)
			sink := &gatedSink{release: make(chan struct{})}

			_, err := Materialize(context.Background(), plan, p, DirSource{Root: src}, sink, Options{Strict: true})
			require.Error(t, err)

			close(sink.release)
			assert.Never(t, func() bool { return len(sink.targets()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
		})
	}
}

func TestMaterialize_WaitsForInflightCopies(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "rec/session.webm", "VIDEO")

	// the screenshot source does not exist, so its copy fails while the
	// video write is still held by the sink
	plan, p := samplePlan()
	sink := &gatedSink{release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := Materialize(context.Background(), plan, p, DirSource{Root: src}, sink, Options{Strict: true})
		done <- err
	}()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	close(sink.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrMissingSource)
	case <-time.After(2 * time.Second):
		t.Fatal("Materialize did not return")
	}
	assert.Equal(t, []string{"video.mp4"}, sink.targets())
}
