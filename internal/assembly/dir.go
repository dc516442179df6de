package assembly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirSource reads recording files relative to a root directory. Names must
// stay inside the root: absolute names and names climbing out with ".." are
// rejected with ErrUnsafeSource.
type DirSource struct {
	Root string
}

func (s DirSource) Open(name string) (io.ReadCloser, error) {
	p := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	if !filepath.IsLocal(p) {
		return nil, fmt.Errorf("%w: %q", ErrUnsafeSource, name)
	}
	f, err := os.Open(filepath.Join(s.Root, p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, name)
	}
	if err != nil {
		return nil, fmt.Errorf("assembly: open %s: %w", name, err)
	}
	return f, nil
}

// DirSink writes the project into a local directory
type DirSink struct {
	Root string
}

func (s DirSink) Write(ctx context.Context, target string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkTarget(target); err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(target))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}
