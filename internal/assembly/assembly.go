// Package assembly materializes a compiled project's asset plan: the
// document plus the recording files it references, copied into a project
// directory or an object store.
package assembly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tutorcast/api/internal/model"
)

var (
	ErrMissingSource = errors.New("asset source missing")
	ErrUnsafeTarget  = errors.New("asset target escapes the project root")
	ErrUnsafeSource  = errors.New("asset source escapes the source root")
)

// Source opens recording files by the names used in the trace
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// Sink receives project files under relative targets and returns where
// each one ended up.
type Sink interface {
	Write(ctx context.Context, target string, r io.Reader, contentType string) (string, error)
}

// Options controls Materialize.
// Strict fails on a missing source file instead of reporting it.
type Options struct {
	Strict      bool
	Concurrency int
	Logger      logrus.FieldLogger
}

// Written is one materialized file
type Written struct {
	Kind     model.AssetKind `json:"kind"`
	Target   string          `json:"target"`
	Location string          `json:"location"`
}

// Report summarizes a Materialize run
type Report struct {
	DocumentLocation string    `json:"documentLocation"`
	Written          []Written `json:"written"`
	Missing          []string  `json:"missing,omitempty"`
}

// Materialize writes the project document and copies every planned asset
// from src to sink. Files are copied concurrently; the document is written
// last so a reader never sees it before its assets.
func Materialize(ctx context.Context, plan model.AssetPlan, p *model.Project, src Source, sink Sink, opts Options) (*Report, error) {
	if p == nil {
		return nil, fmt.Errorf("assembly: nil project")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	doc := plan.Document
	if doc == "" {
		doc = "project.json"
	}
	if err := checkTarget(doc); err != nil {
		return nil, err
	}

	report := &Report{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	// targets and empty sources are checked before the first copy starts
	var copies []model.AssetFile
	for _, f := range plan.Files {
		if f.Kind == model.AssetDocument {
			continue
		}
		if err := checkTarget(f.Target); err != nil {
			return nil, err
		}
		if f.Source == "" {
			if opts.Strict {
				return nil, fmt.Errorf("%w: %s has no source", ErrMissingSource, f.Target)
			}
			log.WithField("target", f.Target).Warn("asset has no source, skipped")
			report.Missing = append(report.Missing, f.Target)
			continue
		}
		copies = append(copies, f)
	}

	for _, f := range copies {
		f := f
		g.Go(func() error {
			loc, err := copyFile(gctx, src, sink, f)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrMissingSource) && !opts.Strict {
				log.WithFields(logrus.Fields{"source": f.Source, "target": f.Target}).Warn("asset source not found, skipped")
				report.Missing = append(report.Missing, f.Target)
				return nil
			}
			if err != nil {
				return err
			}
			report.Written = append(report.Written, Written{Kind: f.Kind, Target: f.Target, Location: loc})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("assembly: encode project: %w", err)
	}
	loc, err := sink.Write(ctx, doc, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, fmt.Errorf("assembly: write %s: %w", doc, err)
	}
	report.DocumentLocation = loc
	report.Written = append(report.Written, Written{Kind: model.AssetDocument, Target: doc, Location: loc})

	log.WithFields(logrus.Fields{
		"projectId": p.ID,
		"written":   len(report.Written),
		"missing":   len(report.Missing),
	}).Info("project assembled")
	return report, nil
}

func copyFile(ctx context.Context, src Source, sink Sink, f model.AssetFile) (string, error) {
	r, err := src.Open(f.Source)
	if err != nil {
		return "", err
	}
	defer r.Close()

	loc, err := sink.Write(ctx, f.Target, r, contentType(f.Target))
	if err != nil {
		return "", fmt.Errorf("assembly: write %s: %w", f.Target, err)
	}
	return loc, nil
}

// checkTarget rejects absolute targets and targets that climb out of the root
func checkTarget(target string) error {
	t := strings.ReplaceAll(target, "\\", "/")
	if t == "" || strings.HasPrefix(t, "/") {
		return fmt.Errorf("%w: %q", ErrUnsafeTarget, target)
	}
	clean := path.Clean(t)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrUnsafeTarget, target)
	}
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
