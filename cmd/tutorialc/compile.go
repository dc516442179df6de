package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutorcast/api/internal/assembly"
	"github.com/tutorcast/api/internal/client"
	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/config"
	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
)

type compileOptions struct {
	trace        string
	source       string
	out          string
	strict       bool
	summary      bool
	narrationURL string
}

func newCompileCmd(root *rootOptions) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a trace file into a project",
		Long: `Compile reads a trace request (the JSON body accepted by POST /api/compile),
builds the project and, with --out, writes project.json next to its media files.`,
		Example: "  tutorialc compile --trace trace.json --source ./recordings --out ./dist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.trace, "trace", "t", "", "trace request file")
	cmd.Flags().StringVar(&opts.source, "source", ".", "directory holding the recorded media")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory; without it the project is printed")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail when a media file is missing")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "generate the summary layer")
	cmd.Flags().StringVar(&opts.narrationURL, "narration-url", "", "narration service used when the trace asks for synthesis")
	_ = cmd.MarkFlagRequired("trace")
	return cmd
}

func runCompile(cmd *cobra.Command, root *rootOptions, opts *compileOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	req, err := readRequest(opts.trace)
	if err != nil {
		return err
	}
	if opts.summary {
		req.Options.GenerateSummary = true
	}
	if err := model.NewValidator().Struct(req); err != nil {
		return fmt.Errorf("invalid trace: %w", err)
	}

	if opts.narrationURL != "" {
		cfg.Narration.ServiceURL = opts.narrationURL
	}
	var synth compiler.Synthesizer
	if nc := client.NewNarrationClient(&cfg.Narration); nc.IsConfigured() {
		synth = nc
	}

	svc := service.NewCompileService(service.CompileServiceConfig{
		Logger:      root.log,
		Options:     service.CompilerOptions(cfg.Compiler),
		Synthesizer: synth,
		Narration: compiler.NarrationOptions{
			Language:    model.Language(cfg.Compiler.DefaultLanguage),
			Voice:       cfg.Narration.Voice,
			Format:      cfg.Narration.Format,
			Concurrency: cfg.Narration.Concurrency,
		},
	})

	res, err := svc.Compile(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.out == "" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Project)
	}

	report, err := assembly.Materialize(cmd.Context(), res.AssetPlan, res.Project,
		assembly.DirSource{Root: opts.source},
		assembly.DirSink{Root: opts.out},
		assembly.Options{Strict: opts.strict, Logger: root.log})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "project\t%s\n", res.Project.ID)
	fmt.Fprintf(w, "document\t%s\n", report.DocumentLocation)
	for _, f := range report.Written {
		fmt.Fprintf(w, "%s\t%s\n", f.Kind, f.Location)
	}
	for _, m := range report.Missing {
		fmt.Fprintf(w, "missing\t%s\n", m)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning\t%s\n", warn)
	}
	return w.Flush()
}

func readRequest(path string) (*model.CompileRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	var req model.CompileRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse trace %s: %w", path, err)
	}
	return &req, nil
}
