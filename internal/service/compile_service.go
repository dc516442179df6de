package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/config"
	"github.com/tutorcast/api/internal/model"
)

const (
	TaskTypeCompile = "compile:process"
	QueueCompile    = "compile"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobNotCompleted  = errors.New("job not completed")
	ErrJobFinished      = errors.New("job already completed")
	ErrProjectNotFound  = errors.New("project not found")
	ErrQueueUnavailable = errors.New("job queue unavailable")
	ErrNarration        = errors.New("narration synthesis failed")
)

// ProjectSource resolves compiled projects by id
type ProjectSource interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
}

// CompileService compiles traces synchronously or through the job queue and
// caches the resulting documents.
type CompileService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	log         logrus.FieldLogger

	options    compiler.Options
	synth      compiler.Synthesizer
	narration  compiler.NarrationOptions
	projectTTL time.Duration
	jobTTL     time.Duration

	group singleflight.Group
}

// CompileServiceConfig wires a CompileService. Redis and Asynq may be nil,
// in which case only synchronous compiles without caching are available.
type CompileServiceConfig struct {
	Redis       *redis.Client
	Asynq       *asynq.Client
	Logger      logrus.FieldLogger
	Options     compiler.Options
	Synthesizer compiler.Synthesizer
	Narration   compiler.NarrationOptions
	ProjectTTL  time.Duration
}

func NewCompileService(cfg CompileServiceConfig) *CompileService {
	ttl := cfg.ProjectTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CompileService{
		redis:       cfg.Redis,
		asynqClient: cfg.Asynq,
		log:         cfg.Logger,
		options:     cfg.Options,
		synth:       cfg.Synthesizer,
		narration:   cfg.Narration,
		projectTTL:  ttl,
		jobTTL:      24 * time.Hour,
	}
}

// CompilerOptions maps the configured defaults onto compiler options
func CompilerOptions(cfg config.CompilerConfig) compiler.Options {
	opts := compiler.DefaultOptions()
	if cfg.TargetWidth > 0 {
		opts.Interactive.TargetWidth = cfg.TargetWidth
	}
	if cfg.TargetHeight > 0 {
		opts.Interactive.TargetHeight = cfg.TargetHeight
	}
	if cfg.TolerancePx > 0 {
		opts.Interactive.TolerancePx = cfg.TolerancePx
	}
	if cfg.MaxAttempts > 0 {
		opts.Interactive.OnIncorrect.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Points > 0 {
		opts.Interactive.Scoring.Points = cfg.Points
	}
	if cfg.PenaltyPerWrongClick > 0 {
		opts.Interactive.Scoring.PenaltyPerWrongClick = cfg.PenaltyPerWrongClick
	}
	if cfg.QuestionWindowMs > 0 {
		opts.QuestionWindowMs = cfg.QuestionWindowMs
	}
	if cfg.DefaultLanguage != "" {
		opts.DefaultLanguage = model.Language(cfg.DefaultLanguage)
	}
	if len(cfg.AvailableLanguages) > 0 {
		langs := make([]model.Language, 0, len(cfg.AvailableLanguages))
		for _, l := range cfg.AvailableLanguages {
			langs = append(langs, model.Language(l))
		}
		opts.AvailableLanguages = langs
	}
	return opts
}

// Compile runs the compiler on a request and caches the project
func (s *CompileService) Compile(ctx context.Context, req *model.CompileRequest) (*model.CompileResponse, error) {
	return s.compile(ctx, req, func(int, string) {})
}

// compile reports coarse progress through step so the worker can relay it
func (s *CompileService) compile(ctx context.Context, req *model.CompileRequest, step func(progress int, msg string)) (*model.CompileResponse, error) {
	in := compiler.InputFromRequest(req)

	if req.Options.SynthesizeNarration && req.Narration == nil && s.synth != nil {
		step(20, "Synthesizing narration...")
		nopts := s.narration
		if req.Options.Voice != "" {
			nopts.Voice = req.Options.Voice
		}
		if req.Options.DefaultLanguage != "" {
			nopts.Language = req.Options.DefaultLanguage
		}
		track, err := compiler.AttachNarration(ctx, req.Steps, s.synth, nopts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNarration, err)
		}
		in.Narration = track
	}

	step(50, "Compiling timeline...")
	res, err := compiler.Compile(in, s.options.WithRequest(req.Options))
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"projectId":        res.Project.ID,
		"interactiveSteps": len(res.Project.InteractiveSteps),
		"highlights":       len(res.Project.Layers.Highlights),
		"highlightSource":  res.HighlightSource,
		"warnings":         len(res.Warnings),
	}).Info("trace compiled")

	if s.redis != nil {
		step(80, "Caching project...")
		if err := s.saveProject(ctx, res.Project); err != nil {
			return nil, fmt.Errorf("failed to cache project: %w", err)
		}
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &model.CompileResponse{Project: res.Project, AssetPlan: res.Assets, Warnings: warnings}, nil
}

// StartCompile queues a compile job
func (s *CompileService) StartCompile(ctx context.Context, req *model.CompileRequest) (*model.CompileStartResponse, error) {
	if s.redis == nil || s.asynqClient == nil {
		return nil, ErrQueueUnavailable
	}

	jobID := uuid.New().String()
	now := time.Now()

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Create job record
	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeCompile,
		Status:    model.JobStatusQueued,
		Payload:   payloadBytes,
		CreatedAt: now,
	}
	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newCompileTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueCompile),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.log.WithField("jobId", jobID).Info("compile job queued")
	return &model.CompileStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// RunJob executes a queued compile (called by worker)
func (s *CompileService) RunJob(ctx context.Context, jobID string, req *model.CompileRequest, step func(progress int, msg string)) (*model.CompileResultResponse, error) {
	res, err := s.compile(ctx, req, step)
	if err != nil {
		return nil, err
	}
	return &model.CompileResultResponse{
		ProjectID:   res.Project.ID,
		Project:     res.Project,
		AssetPlan:   res.AssetPlan,
		Warnings:    res.Warnings,
		CompletedAt: time.Now(),
	}, nil
}

// GetStatus returns the current status of a compile job
func (s *CompileService) GetStatus(ctx context.Context, jobID string) (*model.CompileStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.CompileStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the result of a completed compile job
func (s *CompileService) GetResult(ctx context.Context, jobID string) (*model.CompileResultResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotCompleted
	}

	var result model.CompileResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// CancelCompile cancels a compile job
func (s *CompileService) CancelCompile(ctx context.Context, jobID string) (*model.CompileCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Finished() {
		return nil, ErrJobFinished
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.CompileCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// IsCanceled reports whether a job was canceled while queued or running
func (s *CompileService) IsCanceled(ctx context.Context, jobID string) bool {
	job, err := s.getJob(ctx, jobID)
	return err == nil && job.Status == model.JobStatusCanceled
}

// UpdateJobProgress updates job progress (called by worker)
func (s *CompileService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks job as completed (called by worker)
func (s *CompileService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *CompileService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// GetProject reads a compiled project back from the cache. Concurrent
// lookups of the same id share one Redis round trip.
func (s *CompileService) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	if s.redis == nil {
		return nil, ErrProjectNotFound
	}
	v, err, _ := s.group.Do(projectID, func() (interface{}, error) {
		data, err := s.redis.Get(ctx, projectKey(projectID)).Bytes()
		if err == redis.Nil {
			return nil, ErrProjectNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get project: %w", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	// each caller decodes its own copy
	var p model.Project
	if err := json.Unmarshal(v.([]byte), &p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	return &p, nil
}

// Helper methods

func projectKey(id string) string { return fmt.Sprintf("project:%s", id) }
func jobKey(id string) string     { return fmt.Sprintf("job:%s", id) }

func (s *CompileService) saveProject(ctx context.Context, p *model.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, projectKey(p.ID), data, s.projectTTL).Err()
}

func (s *CompileService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, s.jobTTL).Err()
}

func (s *CompileService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	if s.redis == nil {
		return nil, ErrJobNotFound
	}
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func newCompileTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCompile, data), nil
}
